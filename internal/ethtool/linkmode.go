package ethtool

import (
	"context"

	"github.com/yiya1989/netlink/internal/protocol/nla"
	"github.com/yiya1989/netlink/internal/protocol/schema"
)

// Duplex values of LinkModeDuplex.
const (
	DuplexHalf    uint8 = 0
	DuplexFull    uint8 = 1
	DuplexUnknown uint8 = 0xff
)

// SpeedUnknown is reported when the link is down.
const SpeedUnknown uint32 = 0xffffffff

// LinkModeAttr is one attribute of the link modes group.
type LinkModeAttr interface {
	nla.Attribute
	linkModeAttr()
}

type (
	LinkModeHeader  []HeaderAttr
	LinkModeAutoneg bool
	// LinkModeSet is the ours (advertised) or peer bitset.
	LinkModeSet struct {
		Type uint16
		Set  Bitset
	}
	LinkModeSpeed  uint32
	LinkModeDuplex uint8
	LinkModeOther  struct{ nla.Raw }
)

func (h LinkModeHeader) Kind() uint16       { return headerNest(h).Kind() }
func (h LinkModeHeader) ValueLen() int      { return headerNest(h).ValueLen() }
func (h LinkModeHeader) EmitValue(b []byte) { headerNest(h).EmitValue(b) }

func (LinkModeAutoneg) Kind() uint16         { return schema.LinkmodesAutoneg }
func (LinkModeAutoneg) ValueLen() int        { return 1 }
func (v LinkModeAutoneg) EmitValue(b []byte) { putBool(b, bool(v)) }

func (s LinkModeSet) Kind() uint16       { return s.Type | nla.Nested }
func (s LinkModeSet) ValueLen() int      { return s.Set.ValueLen() }
func (s LinkModeSet) EmitValue(b []byte) { s.Set.EmitValue(b) }

func (LinkModeSpeed) Kind() uint16         { return schema.LinkmodesSpeed }
func (LinkModeSpeed) ValueLen() int        { return 4 }
func (v LinkModeSpeed) EmitValue(b []byte) { nla.PutUint32(b, uint32(v)) }

func (LinkModeDuplex) Kind() uint16         { return schema.LinkmodesDuplex }
func (LinkModeDuplex) ValueLen() int        { return 1 }
func (v LinkModeDuplex) EmitValue(b []byte) { b[0] = uint8(v) }

func (LinkModeHeader) linkModeAttr()  {}
func (LinkModeAutoneg) linkModeAttr() {}
func (LinkModeSet) linkModeAttr()     {}
func (LinkModeSpeed) linkModeAttr()   {}
func (LinkModeDuplex) linkModeAttr()  {}
func (LinkModeOther) linkModeAttr()   {}

func parseLinkModeAttr(buf nla.Buffer) (LinkModeAttr, error) {
	switch buf.Type() {
	case schema.GroupHeader:
		h, err := parseHeaderNest("linkmodes", buf)
		return LinkModeHeader(h), err
	case schema.LinkmodesAutoneg:
		v, err := parseBool(buf.Value)
		return LinkModeAutoneg(v), err
	case schema.LinkmodesOurs, schema.LinkmodesPeer:
		set, err := ParseBitset(buf.Value)
		if err != nil {
			return nil, err
		}
		return LinkModeSet{Type: buf.Type(), Set: set}, nil
	case schema.LinkmodesSpeed:
		v, err := nla.Uint32(buf.Value)
		return LinkModeSpeed(v), err
	case schema.LinkmodesDuplex:
		v, err := nla.Uint8(buf.Value)
		return LinkModeDuplex(v), err
	default:
		return LinkModeOther{nla.RawFrom(buf)}, nil
	}
}

func ParseLinkModeAttrs(b []byte) ([]LinkModeAttr, error) {
	return nla.ParseAttrs(b, "linkmodes", parseLinkModeAttr, otherLinkMode)
}

// LinkModeParams selects link settings to change (ethtool -s); nil and empty
// fields are left as they are.
type LinkModeParams struct {
	Autoneg   *bool
	Speed     *uint32
	Duplex    *uint8
	Advertise map[string]bool
}

func newLinkModeGet(iface string) Message {
	return Message{
		Cmd:   schema.MsgLinkmodesGet,
		Attrs: []Attr{LinkModeHeader(requestHeader(iface))},
	}
}

func newLinkModeSet(iface string, p LinkModeParams) Message {
	attrs := []Attr{LinkModeHeader(requestHeader(iface))}
	if p.Autoneg != nil {
		attrs = append(attrs, LinkModeAutoneg(*p.Autoneg))
	}
	if len(p.Advertise) > 0 {
		attrs = append(attrs, LinkModeSet{Type: schema.LinkmodesOurs, Set: NamedBitset(p.Advertise)})
	}
	if p.Speed != nil {
		attrs = append(attrs, LinkModeSpeed(*p.Speed))
	}
	if p.Duplex != nil {
		attrs = append(attrs, LinkModeDuplex(*p.Duplex))
	}
	return Message{Cmd: schema.MsgLinkmodesSet, Attrs: attrs}
}

type LinkModeHandle struct {
	handle Handle
}

func (h LinkModeHandle) Get(iface string) *LinkModeGetRequest {
	return &LinkModeGetRequest{request: newRequest(h.handle, iface)}
}

func (h LinkModeHandle) Set(iface string, params LinkModeParams) *LinkModeSetRequest {
	return &LinkModeSetRequest{request: newRequest(h.handle, iface), params: params}
}

type LinkModeGetRequest struct {
	request
}

func (r *LinkModeGetRequest) Execute(ctx context.Context) *Stream {
	return r.run(ctx, func() Message { return newLinkModeGet(r.iface) })
}

type LinkModeSetRequest struct {
	request
	params LinkModeParams
}

func (r *LinkModeSetRequest) Execute(ctx context.Context) *Stream {
	return r.run(ctx, func() Message { return newLinkModeSet(r.iface, r.params) })
}

func otherLinkMode(r nla.Raw) LinkModeAttr { return LinkModeOther{r} }
