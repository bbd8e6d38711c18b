package frame

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/mdlayher/genetlink"
	"github.com/mdlayher/netlink"
	"github.com/mdlayher/netlink/nlenc"

	"github.com/yiya1989/netlink/internal/protocol/nla"
)

// HeaderLen is the fixed netlink message header size.
const HeaderLen = 16

// Extended ack attributes appended to error and done messages.
const (
	extAckMsg  uint16 = 1
	extAckOffs uint16 = 2
)

var (
	ErrShortHeader       = errors.New("frame: short netlink header")
	ErrHeaderLenMismatch = errors.New("frame: netlink length exceeds datagram")
	ErrShortErrorPayload = errors.New("frame: short error payload")
	ErrUnexpectedFamily  = errors.New("frame: unexpected message family")
)

// ProtocolError is an error status returned by the kernel in place of data.
type ProtocolError struct {
	Errno   syscall.Errno
	Message string
	Offset  uint32
}

func (e *ProtocolError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("netlink: kernel returned %v: %s", e.Errno, e.Message)
	}
	return fmt.Sprintf("netlink: kernel returned %v", e.Errno)
}

func (e *ProtocolError) Unwrap() error { return e.Errno }

// Align rounds n up to the netlink message alignment.
func Align(n int) int {
	return (n + 3) &^ 3
}

// RequestFlags derives the netlink header flags for a request. Dump requests
// always carry Acknowledge: without it some kernels never terminate a
// multi-part ethtool reply in a way the reader can recognise.
func RequestFlags(isDump, wantAck bool) netlink.HeaderFlags {
	flags := netlink.Request
	if isDump {
		return flags | netlink.Dump | netlink.Acknowledge
	}
	if wantAck {
		flags |= netlink.Acknowledge
	}
	return flags
}

// Wrap places a generic netlink payload for family into a netlink envelope.
// Length, sequence and port ID are left for the transport to fill in.
func Wrap(family uint16, version, cmd uint8, payload []byte, flags netlink.HeaderFlags) (netlink.Message, error) {
	gm := genetlink.Message{
		Header: genetlink.Header{Command: cmd, Version: version},
		Data:   payload,
	}
	b, err := gm.MarshalBinary()
	if err != nil {
		return netlink.Message{}, err
	}
	return netlink.Message{
		Header: netlink.Header{Type: netlink.HeaderType(family), Flags: flags},
		Data:   b,
	}, nil
}

// Unwrap extracts the generic netlink message carried by m for family.
func Unwrap(m netlink.Message, family uint16) (genetlink.Message, error) {
	if m.Header.Type != netlink.HeaderType(family) {
		return genetlink.Message{}, fmt.Errorf("%w: got type %d want %d", ErrUnexpectedFamily, m.Header.Type, family)
	}
	var gm genetlink.Message
	if err := gm.UnmarshalBinary(m.Data); err != nil {
		return genetlink.Message{}, err
	}
	return gm, nil
}

// Encode serializes m, computing the aligned header length.
func Encode(m netlink.Message) ([]byte, error) {
	m.Header.Length = uint32(Align(HeaderLen + len(m.Data)))
	return m.MarshalBinary()
}

// SplitError reports where a datagram stopped parsing. Sequence and PID are
// set when the offending header itself was complete.
type SplitError struct {
	Offset    int
	HasHeader bool
	Sequence  uint32
	PID       uint32
	Err       error
}

func (e *SplitError) Error() string {
	if e.HasHeader {
		return fmt.Sprintf("frame: message seq=%d at offset %d: %v", e.Sequence, e.Offset, e.Err)
	}
	return fmt.Sprintf("frame: message at offset %d: %v", e.Offset, e.Err)
}

func (e *SplitError) Unwrap() error { return e.Err }

// Split parses every netlink message packed into one datagram. On a
// malformed message it returns the messages before it along with a
// *SplitError.
func Split(b []byte) ([]netlink.Message, error) {
	msgs := make([]netlink.Message, 0, 1)
	for off := 0; off < len(b); {
		if len(b)-off < HeaderLen {
			return msgs, &SplitError{Offset: off, Err: ErrShortHeader}
		}
		l := int(nlenc.Uint32(b[off : off+4]))
		seq := nlenc.Uint32(b[off+8 : off+12])
		pid := nlenc.Uint32(b[off+12 : off+16])
		if l < HeaderLen || l > len(b)-off {
			return msgs, &SplitError{
				Offset:    off,
				HasHeader: true,
				Sequence:  seq,
				PID:       pid,
				Err:       fmt.Errorf("%w: length=%d remaining=%d", ErrHeaderLenMismatch, l, len(b)-off),
			}
		}
		msgs = append(msgs, netlink.Message{
			Header: netlink.Header{
				Length:   uint32(l),
				Type:     netlink.HeaderType(nlenc.Uint16(b[off+4 : off+6])),
				Flags:    netlink.HeaderFlags(nlenc.Uint16(b[off+6 : off+8])),
				Sequence: seq,
				PID:      pid,
			},
			Data: append([]byte(nil), b[off+HeaderLen:off+l]...),
		})
		off = min(off+Align(l), len(b))
	}
	return msgs, nil
}

// ParseError decodes an NLMSG_ERROR message. A nil ProtocolError with a nil
// error is a plain acknowledgement.
func ParseError(m netlink.Message) (*ProtocolError, error) {
	if len(m.Data) < 4 {
		return nil, ErrShortErrorPayload
	}
	code := nlenc.Int32(m.Data[0:4])
	if code == 0 {
		return nil, nil
	}
	perr := &ProtocolError{Errno: syscall.Errno(-code)}
	if m.Header.Flags&netlink.AcknowledgeTLVs == 0 || len(m.Data) < 4+HeaderLen {
		return perr, nil
	}
	// The echoed request follows the code: header only when capped, whole
	// message otherwise.
	skip := 4 + HeaderLen
	if m.Header.Flags&netlink.Capped == 0 {
		skip = 4 + Align(int(nlenc.Uint32(m.Data[4:8])))
	}
	if skip <= len(m.Data) {
		parseExtAck(m.Data[skip:], perr)
	}
	return perr, nil
}

// ParseDone decodes the status word of an NLMSG_DONE message. Dumps that fail
// part way report the error here rather than in an NLMSG_ERROR.
func ParseDone(m netlink.Message) *ProtocolError {
	if len(m.Data) < 4 {
		return nil
	}
	code := nlenc.Int32(m.Data[0:4])
	if code == 0 {
		return nil
	}
	perr := &ProtocolError{Errno: syscall.Errno(-code)}
	if m.Header.Flags&netlink.AcknowledgeTLVs != 0 {
		parseExtAck(m.Data[4:], perr)
	}
	return perr
}

func parseExtAck(b []byte, perr *ProtocolError) {
	for buf, err := range nla.Spans(b) {
		if err != nil {
			return
		}
		switch buf.Type() {
		case extAckMsg:
			if s, err := nla.String(buf.Value); err == nil {
				perr.Message = s
			}
		case extAckOffs:
			if v, err := nla.Uint32(buf.Value); err == nil {
				perr.Offset = v
			}
		}
	}
}
