package nla

import (
	"bytes"
	"errors"
	"fmt"
	"iter"

	"github.com/mdlayher/netlink/nlenc"
)

// HeaderLen is the size of the length+kind prefix of every attribute.
const HeaderLen = 4

// Kind flag bits carried in the upper two bits of the attribute type.
const (
	Nested       uint16 = 0x8000
	NetByteOrder uint16 = 0x4000
	TypeMask            = ^(Nested | NetByteOrder)
)

var (
	ErrShortHeader   = errors.New("nla: short attribute header")
	ErrShortValue    = errors.New("nla: short attribute value")
	ErrInvalidLength = errors.New("nla: invalid attribute length")
)

// Attribute is one encodable netlink attribute.
//
// Kind includes the Nested flag for attributes whose value is itself a
// sequence of attributes. ValueLen must be known before EmitValue is called
// so callers can size buffers up front.
type Attribute interface {
	Kind() uint16
	ValueLen() int
	EmitValue(b []byte)
}

// Align rounds n up to the 4-byte attribute alignment.
func Align(n int) int {
	return (n + 3) &^ 3
}

// BufferLen is the padded on-wire size of a.
func BufferLen(a Attribute) int {
	return Align(HeaderLen + a.ValueLen())
}

// ListLen is the padded on-wire size of attrs.
func ListLen[A Attribute](attrs []A) int {
	n := 0
	for _, a := range attrs {
		n += BufferLen(a)
	}
	return n
}

// Emit writes a into b and returns the number of bytes used including padding.
// b must hold at least BufferLen(a) bytes.
func Emit(b []byte, a Attribute) int {
	vl := a.ValueLen()
	nlenc.PutUint16(b[0:2], uint16(HeaderLen+vl))
	nlenc.PutUint16(b[2:4], a.Kind())
	a.EmitValue(b[HeaderLen : HeaderLen+vl])
	end := Align(HeaderLen + vl)
	clear(b[HeaderLen+vl : end])
	return end
}

// EmitList writes attrs back to back into b and returns the bytes used.
func EmitList[A Attribute](b []byte, attrs []A) int {
	off := 0
	for _, a := range attrs {
		off += Emit(b[off:], a)
	}
	return off
}

// Marshal encodes attrs into a freshly allocated buffer.
func Marshal[A Attribute](attrs []A) []byte {
	b := make([]byte, ListLen(attrs))
	EmitList(b, attrs)
	return b
}

// Buffer is one attribute span as found on the wire.
type Buffer struct {
	Index int
	Kind  uint16
	Value []byte
}

// Type is the attribute kind with the flag bits masked off.
func (b Buffer) Type() uint16 { return b.Kind & TypeMask }

// IsNested reports whether the sender flagged the value as nested.
func (b Buffer) IsNested() bool { return b.Kind&Nested != 0 }

// Spans iterates the attributes packed in b. Iteration stops at the first
// malformed span; the yielded Buffer still carries the failing index and,
// when the header was readable, its kind.
func Spans(b []byte) iter.Seq2[Buffer, error] {
	return func(yield func(Buffer, error) bool) {
		for i, off := 0, 0; off < len(b); i++ {
			buf := Buffer{Index: i}
			if len(b)-off < HeaderLen {
				yield(buf, ErrShortHeader)
				return
			}
			l := int(nlenc.Uint16(b[off : off+2]))
			buf.Kind = nlenc.Uint16(b[off+2 : off+4])
			if l < HeaderLen {
				yield(buf, fmt.Errorf("%w: %d", ErrInvalidLength, l))
				return
			}
			if l > len(b)-off {
				yield(buf, fmt.Errorf("%w: need %d bytes, have %d", ErrShortValue, l, len(b)-off))
				return
			}
			buf.Value = b[off+HeaderLen : off+l]
			if !yield(buf, nil) {
				return
			}
			off = min(off+Align(l), len(b))
		}
	}
}

// DecodeError reports which attribute of which group failed to decode.
type DecodeError struct {
	Context string
	Index   int
	Kind    uint16
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("nla: decode %s: attribute %d (kind %#04x): %v", e.Context, e.Index, e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ParseList decodes every span of b with parse. The first failure aborts the
// whole list and is wrapped in a DecodeError naming context.
func ParseList[A any](b []byte, context string, parse func(Buffer) (A, error)) ([]A, error) {
	out := make([]A, 0)
	for buf, err := range Spans(b) {
		var a A
		if err == nil {
			a, err = parse(buf)
		}
		if err != nil {
			return nil, &DecodeError{Context: context, Index: buf.Index, Kind: buf.Kind, Err: err}
		}
		out = append(out, a)
	}
	return out, nil
}

// ParseAttrs is ParseList for attribute lists that must re-encode exactly.
// A span whose decoded form would emit different bytes, such as a known kind
// carrying flag bits or a string without exactly one trailing NUL, is kept as
// other(Raw) instead.
func ParseAttrs[A Attribute](b []byte, context string, parse func(Buffer) (A, error), other func(Raw) A) ([]A, error) {
	return ParseList(b, context, func(buf Buffer) (A, error) {
		a, err := parse(buf)
		if err != nil {
			return a, err
		}
		if !Canonical(a, buf) {
			return other(RawFrom(buf)), nil
		}
		return a, nil
	})
}

// Canonical reports whether a emits exactly the kind and value of buf.
func Canonical(a Attribute, buf Buffer) bool {
	if a.Kind() != buf.Kind || a.ValueLen() != len(buf.Value) {
		return false
	}
	v := make([]byte, len(buf.Value))
	a.EmitValue(v)
	return bytes.Equal(v, buf.Value)
}

// Raw is an attribute kept verbatim: the full kind (flags included) and the
// unpadded value bytes.
type Raw struct {
	Type  uint16
	Value []byte
}

// RawFrom copies buf into a Raw that no longer aliases the receive buffer.
func RawFrom(buf Buffer) Raw {
	return Raw{Type: buf.Kind, Value: bytes.Clone(buf.Value)}
}

func (r Raw) Kind() uint16       { return r.Type }
func (r Raw) ValueLen() int      { return len(r.Value) }
func (r Raw) EmitValue(b []byte) { copy(b, r.Value) }
func (r Raw) String() string     { return fmt.Sprintf("raw(kind=%#04x, % x)", r.Type, r.Value) }

// Uint8 decodes a one byte value.
func Uint8(b []byte) (uint8, error) {
	if len(b) != 1 {
		return 0, fmt.Errorf("%w: u8 needs 1 byte, got %d", ErrInvalidLength, len(b))
	}
	return b[0], nil
}

// Uint32 decodes a native-endian four byte value.
func Uint32(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("%w: u32 needs 4 bytes, got %d", ErrInvalidLength, len(b))
	}
	return nlenc.Uint32(b), nil
}

// PutUint32 encodes v native-endian into the first four bytes of b.
func PutUint32(b []byte, v uint32) {
	nlenc.PutUint32(b[:4], v)
}

// String decodes a NUL-terminated string value.
func String(b []byte) (string, error) {
	if len(b) == 0 {
		return "", fmt.Errorf("%w: empty string value", ErrInvalidLength)
	}
	return nlenc.String(b), nil
}

// StringLen is the encoded size of s including the terminating NUL.
func StringLen(s string) int { return len(s) + 1 }

// PutString encodes s followed by a NUL into b.
func PutString(b []byte, s string) {
	n := copy(b, s)
	b[n] = 0
}
