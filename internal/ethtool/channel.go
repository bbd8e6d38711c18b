package ethtool

import (
	"context"

	"github.com/yiya1989/netlink/internal/protocol/nla"
	"github.com/yiya1989/netlink/internal/protocol/schema"
)

// ChannelAttr is one attribute of the channels group: queue counts of a
// multi-queue device. Attributes this package does not know decode to
// ChannelOther and re-encode byte for byte.
type ChannelAttr interface {
	nla.Attribute
	channelAttr()
}

type (
	ChannelHeader        []HeaderAttr
	ChannelRxMax         uint32
	ChannelTxMax         uint32
	ChannelOtherMax      uint32
	ChannelMaxCombined   uint32
	ChannelRxCount       uint32
	ChannelTxCount       uint32
	ChannelOtherCount    uint32
	ChannelCombinedCount uint32
	ChannelOther         struct{ nla.Raw }
)

func (h ChannelHeader) Kind() uint16       { return headerNest(h).Kind() }
func (h ChannelHeader) ValueLen() int      { return headerNest(h).ValueLen() }
func (h ChannelHeader) EmitValue(b []byte) { headerNest(h).EmitValue(b) }

func (ChannelRxMax) Kind() uint16         { return schema.ChannelsRxMax }
func (ChannelTxMax) Kind() uint16         { return schema.ChannelsTxMax }
func (ChannelOtherMax) Kind() uint16      { return schema.ChannelsOtherMax }
func (ChannelMaxCombined) Kind() uint16   { return schema.ChannelsCombinedMax }
func (ChannelRxCount) Kind() uint16       { return schema.ChannelsRxCount }
func (ChannelTxCount) Kind() uint16       { return schema.ChannelsTxCount }
func (ChannelOtherCount) Kind() uint16    { return schema.ChannelsOtherCount }
func (ChannelCombinedCount) Kind() uint16 { return schema.ChannelsCombinedCount }

func (ChannelRxMax) ValueLen() int         { return 4 }
func (ChannelTxMax) ValueLen() int         { return 4 }
func (ChannelOtherMax) ValueLen() int      { return 4 }
func (ChannelMaxCombined) ValueLen() int   { return 4 }
func (ChannelRxCount) ValueLen() int       { return 4 }
func (ChannelTxCount) ValueLen() int       { return 4 }
func (ChannelOtherCount) ValueLen() int    { return 4 }
func (ChannelCombinedCount) ValueLen() int { return 4 }

func (v ChannelRxMax) EmitValue(b []byte)         { nla.PutUint32(b, uint32(v)) }
func (v ChannelTxMax) EmitValue(b []byte)         { nla.PutUint32(b, uint32(v)) }
func (v ChannelOtherMax) EmitValue(b []byte)      { nla.PutUint32(b, uint32(v)) }
func (v ChannelMaxCombined) EmitValue(b []byte)   { nla.PutUint32(b, uint32(v)) }
func (v ChannelRxCount) EmitValue(b []byte)       { nla.PutUint32(b, uint32(v)) }
func (v ChannelTxCount) EmitValue(b []byte)       { nla.PutUint32(b, uint32(v)) }
func (v ChannelOtherCount) EmitValue(b []byte)    { nla.PutUint32(b, uint32(v)) }
func (v ChannelCombinedCount) EmitValue(b []byte) { nla.PutUint32(b, uint32(v)) }

func (ChannelHeader) channelAttr()        {}
func (ChannelRxMax) channelAttr()         {}
func (ChannelTxMax) channelAttr()         {}
func (ChannelOtherMax) channelAttr()      {}
func (ChannelMaxCombined) channelAttr()   {}
func (ChannelRxCount) channelAttr()       {}
func (ChannelTxCount) channelAttr()       {}
func (ChannelOtherCount) channelAttr()    {}
func (ChannelCombinedCount) channelAttr() {}
func (ChannelOther) channelAttr()         {}

func parseChannelAttr(buf nla.Buffer) (ChannelAttr, error) {
	if buf.Type() == schema.GroupHeader {
		h, err := parseHeaderNest("channel", buf)
		return ChannelHeader(h), err
	}
	var wrap func(uint32) ChannelAttr
	switch buf.Type() {
	case schema.ChannelsRxMax:
		wrap = func(v uint32) ChannelAttr { return ChannelRxMax(v) }
	case schema.ChannelsTxMax:
		wrap = func(v uint32) ChannelAttr { return ChannelTxMax(v) }
	case schema.ChannelsOtherMax:
		wrap = func(v uint32) ChannelAttr { return ChannelOtherMax(v) }
	case schema.ChannelsCombinedMax:
		wrap = func(v uint32) ChannelAttr { return ChannelMaxCombined(v) }
	case schema.ChannelsRxCount:
		wrap = func(v uint32) ChannelAttr { return ChannelRxCount(v) }
	case schema.ChannelsTxCount:
		wrap = func(v uint32) ChannelAttr { return ChannelTxCount(v) }
	case schema.ChannelsOtherCount:
		wrap = func(v uint32) ChannelAttr { return ChannelOtherCount(v) }
	case schema.ChannelsCombinedCount:
		wrap = func(v uint32) ChannelAttr { return ChannelCombinedCount(v) }
	default:
		return ChannelOther{nla.RawFrom(buf)}, nil
	}
	v, err := nla.Uint32(buf.Value)
	if err != nil {
		return nil, err
	}
	return wrap(v), nil
}

// ParseChannelAttrs decodes a full channels attribute buffer, typically the
// payload of one reply. The first malformed attribute fails the whole group.
func ParseChannelAttrs(b []byte) ([]ChannelAttr, error) {
	return nla.ParseAttrs(b, "channel", parseChannelAttr, otherChannel)
}

func newChannelGet(iface string) Message {
	return Message{
		Cmd:   schema.MsgChannelsGet,
		Attrs: []Attr{ChannelHeader(requestHeader(iface))},
	}
}

func newChannelSet(iface string, combined uint32) Message {
	return Message{
		Cmd: schema.MsgChannelsSet,
		Attrs: []Attr{
			ChannelHeader(requestHeader(iface)),
			ChannelCombinedCount(combined),
		},
	}
}

// ChannelHandle builds requests for the channels group.
type ChannelHandle struct {
	handle Handle
}

// Get reads the channel counts of iface, or of every interface when iface is
// empty (ethtool -l).
func (h ChannelHandle) Get(iface string) *ChannelGetRequest {
	return &ChannelGetRequest{request: newRequest(h.handle, iface)}
}

// Set changes the combined queue count of iface (ethtool -L iface combined n).
func (h ChannelHandle) Set(iface string, combined uint32) *ChannelSetRequest {
	return &ChannelSetRequest{request: newRequest(h.handle, iface), combined: combined}
}

type ChannelGetRequest struct {
	request
}

func (r *ChannelGetRequest) Execute(ctx context.Context) *Stream {
	return r.run(ctx, func() Message { return newChannelGet(r.iface) })
}

type ChannelSetRequest struct {
	request
	combined uint32
}

func (r *ChannelSetRequest) Execute(ctx context.Context) *Stream {
	return r.run(ctx, func() Message { return newChannelSet(r.iface, r.combined) })
}

func otherChannel(r nla.Raw) ChannelAttr { return ChannelOther{r} }
