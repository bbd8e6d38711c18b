package nla

import (
	"bytes"
	"errors"
	"testing"

	"github.com/mdlayher/netlink/nlenc"
)

type u32Attr struct {
	kind uint16
	v    uint32
}

func (a u32Attr) Kind() uint16       { return a.kind }
func (a u32Attr) ValueLen() int      { return 4 }
func (a u32Attr) EmitValue(b []byte) { PutUint32(b, a.v) }

func span(kind uint16, value []byte) []byte {
	b := make([]byte, Align(HeaderLen+len(value)))
	nlenc.PutUint16(b[0:2], uint16(HeaderLen+len(value)))
	nlenc.PutUint16(b[2:4], kind)
	copy(b[HeaderLen:], value)
	return b
}

func TestMarshalPadsToAlignment(t *testing.T) {
	attrs := []Attribute{
		Raw{Type: 7, Value: []byte{0xAA}},
		u32Attr{kind: 2, v: 9},
	}
	b := Marshal(attrs)
	if len(b) != 8+8 {
		t.Fatalf("expected 16 bytes, got %d", len(b))
	}
	if nlenc.Uint16(b[0:2]) != 5 {
		t.Fatalf("length field must exclude padding, got %d", nlenc.Uint16(b[0:2]))
	}
	if !bytes.Equal(b[5:8], []byte{0, 0, 0}) {
		t.Fatalf("padding not zeroed: % x", b[5:8])
	}
}

func TestSpansRoundTripPreservesUnknown(t *testing.T) {
	in := append(span(9999&TypeMask, []byte{0xAA, 0xBB}), span(Nested|3, span(1, []byte{1, 2, 3, 4}))...)
	raws, err := ParseList(in, "test", func(buf Buffer) (Raw, error) { return RawFrom(buf), nil })
	if err != nil {
		t.Fatalf("parse list: %v", err)
	}
	if len(raws) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(raws))
	}
	if raws[1].Type != Nested|3 {
		t.Fatalf("nested flag lost: %#x", raws[1].Type)
	}
	if out := Marshal(raws); !bytes.Equal(out, in) {
		t.Fatalf("round trip mismatch:\n in=% x\nout=% x", in, out)
	}
}

func TestSpansMalformedHeaderIsDeterministic(t *testing.T) {
	_, err := ParseList([]byte{1, 2, 3}, "test", func(buf Buffer) (Raw, error) { return RawFrom(buf), nil })
	if !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
}

func TestSpansMalformedLengthIsDeterministic(t *testing.T) {
	b := span(1, []byte{1, 2, 3, 4})
	nlenc.PutUint16(b[0:2], 12)
	_, err := ParseList(b, "test", func(buf Buffer) (Raw, error) { return RawFrom(buf), nil })
	if !errors.Is(err, ErrShortValue) {
		t.Fatalf("expected ErrShortValue, got %v", err)
	}
	var de *DecodeError
	if !errors.As(err, &de) || de.Index != 0 || de.Kind != 1 || de.Context != "test" {
		t.Fatalf("unexpected decode error context: %+v", de)
	}
}

func TestParseListReportsFailingIndex(t *testing.T) {
	b := append(span(1, []byte{1, 0, 0, 0}), span(2, []byte{1, 2})...)
	_, err := ParseList(b, "counts", func(buf Buffer) (uint32, error) { return Uint32(buf.Value) })
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if de.Index != 1 || de.Kind != 2 || !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("unexpected decode error: %v", err)
	}
}

func TestStringRoundTrip(t *testing.T) {
	b := make([]byte, StringLen("eth0"))
	PutString(b, "eth0")
	if !bytes.Equal(b, []byte("eth0\x00")) {
		t.Fatalf("unexpected encoding: %q", b)
	}
	s, err := String(b)
	if err != nil || s != "eth0" {
		t.Fatalf("decode string: %q %v", s, err)
	}
}
