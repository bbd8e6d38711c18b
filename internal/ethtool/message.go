package ethtool

import (
	"fmt"
	"strings"

	"github.com/yiya1989/netlink/internal/protocol/nla"
	"github.com/yiya1989/netlink/internal/protocol/schema"
)

// Attr is an attribute of any ethtool group.
type Attr interface {
	nla.Attribute
}

// Message is the generic netlink payload of one ethtool request or reply:
// the command plus the ordered attributes of the command's group.
type Message struct {
	Cmd   uint8
	Attrs []Attr
}

// MarshalAttrs encodes the attribute list.
func (m Message) MarshalAttrs() []byte {
	return nla.Marshal(m.Attrs)
}

func (m Message) kinds() []uint16 {
	kinds := make([]uint16, 0, len(m.Attrs))
	for _, a := range m.Attrs {
		kinds = append(kinds, a.Kind()&nla.TypeMask)
	}
	return kinds
}

func (m Message) String() string {
	parts := make([]string, 0, len(m.Attrs))
	for _, a := range m.Attrs {
		if s, ok := a.(fmt.Stringer); ok {
			parts = append(parts, s.String())
			continue
		}
		parts = append(parts, fmt.Sprintf("%T(%v)", a, a))
	}
	return fmt.Sprintf("cmd=%d [%s]", m.Cmd, strings.Join(parts, " "))
}

// AttrsOf returns the attributes of m that are of type A, in order.
func AttrsOf[A any](m Message) []A {
	out := make([]A, 0, len(m.Attrs))
	for _, a := range m.Attrs {
		if v, ok := a.(A); ok {
			out = append(out, v)
		}
	}
	return out
}

// ParseMessage decodes the attributes of a kernel reply or notification with
// command cmd.
func ParseMessage(cmd uint8, data []byte) (Message, error) {
	var (
		attrs []Attr
		err   error
	)
	switch cmd {
	case schema.MsgChannelsGetReply, schema.MsgChannelsNtf:
		attrs, err = parseInto(data, ParseChannelAttrs)
	case schema.MsgPauseGetReply, schema.MsgPauseNtf:
		attrs, err = parseInto(data, ParsePauseAttrs)
	case schema.MsgRingsGetReply, schema.MsgRingsNtf:
		attrs, err = parseInto(data, ParseRingAttrs)
	case schema.MsgCoalesceGetReply, schema.MsgCoalesceNtf:
		attrs, err = parseInto(data, ParseCoalesceAttrs)
	case schema.MsgFeaturesGetReply, schema.MsgFeaturesSetReply, schema.MsgFeaturesNtf:
		attrs, err = parseInto(data, ParseFeatureAttrs)
	case schema.MsgLinkmodesGetReply, schema.MsgLinkmodesNtf:
		attrs, err = parseInto(data, ParseLinkModeAttrs)
	default:
		return Message{}, fmt.Errorf("%w: %d", ErrUnsupportedCommand, cmd)
	}
	if err != nil {
		return Message{}, err
	}
	return Message{Cmd: cmd, Attrs: attrs}, nil
}

func parseInto[A Attr](b []byte, parse func([]byte) ([]A, error)) ([]Attr, error) {
	typed, err := parse(b)
	if err != nil {
		return nil, err
	}
	out := make([]Attr, 0, len(typed))
	for _, a := range typed {
		out = append(out, a)
	}
	return out, nil
}
