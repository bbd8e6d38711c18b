package ethtool

import (
	"context"
	"fmt"

	"github.com/yiya1989/netlink/internal/protocol/nla"
	"github.com/yiya1989/netlink/internal/protocol/schema"
)

// RingAttr is one attribute of the rings group. Every known rings attribute
// is a u32, so they share RingParam keyed by kind.
type RingAttr interface {
	nla.Attribute
	ringAttr()
}

type (
	RingHeader []HeaderAttr
	RingParam  struct {
		Type  uint16
		Value uint32
	}
	RingOther struct{ nla.Raw }
)

func (h RingHeader) Kind() uint16       { return headerNest(h).Kind() }
func (h RingHeader) ValueLen() int      { return headerNest(h).ValueLen() }
func (h RingHeader) EmitValue(b []byte) { headerNest(h).EmitValue(b) }

func (p RingParam) Kind() uint16       { return p.Type }
func (RingParam) ValueLen() int        { return 4 }
func (p RingParam) EmitValue(b []byte) { nla.PutUint32(b, p.Value) }
func (p RingParam) String() string     { return fmt.Sprintf("%s=%d", ringNames[p.Type], p.Value) }

func (RingHeader) ringAttr() {}
func (RingParam) ringAttr()  {}
func (RingOther) ringAttr()  {}

var ringNames = map[uint16]string{
	schema.RingsRxMax:      "rx_max",
	schema.RingsRxMiniMax:  "rx_mini_max",
	schema.RingsRxJumboMax: "rx_jumbo_max",
	schema.RingsTxMax:      "tx_max",
	schema.RingsRx:         "rx",
	schema.RingsRxMini:     "rx_mini",
	schema.RingsRxJumbo:    "rx_jumbo",
	schema.RingsTx:         "tx",
}

func parseRingAttr(buf nla.Buffer) (RingAttr, error) {
	if buf.Type() == schema.GroupHeader {
		h, err := parseHeaderNest("rings", buf)
		return RingHeader(h), err
	}
	if _, ok := ringNames[buf.Type()]; !ok {
		return RingOther{nla.RawFrom(buf)}, nil
	}
	v, err := nla.Uint32(buf.Value)
	if err != nil {
		return nil, err
	}
	return RingParam{Type: buf.Type(), Value: v}, nil
}

func ParseRingAttrs(b []byte) ([]RingAttr, error) {
	return nla.ParseAttrs(b, "rings", parseRingAttr, otherRing)
}

// RingParams selects ring sizes to change (ethtool -G); nil fields are left
// as they are.
type RingParams struct {
	Rx      *uint32
	RxMini  *uint32
	RxJumbo *uint32
	Tx      *uint32
}

func newRingGet(iface string) Message {
	return Message{
		Cmd:   schema.MsgRingsGet,
		Attrs: []Attr{RingHeader(requestHeader(iface))},
	}
}

func newRingSet(iface string, p RingParams) Message {
	attrs := []Attr{RingHeader(requestHeader(iface))}
	for _, f := range []struct {
		kind uint16
		v    *uint32
	}{
		{schema.RingsRx, p.Rx},
		{schema.RingsRxMini, p.RxMini},
		{schema.RingsRxJumbo, p.RxJumbo},
		{schema.RingsTx, p.Tx},
	} {
		if f.v != nil {
			attrs = append(attrs, RingParam{Type: f.kind, Value: *f.v})
		}
	}
	return Message{Cmd: schema.MsgRingsSet, Attrs: attrs}
}

type RingHandle struct {
	handle Handle
}

func (h RingHandle) Get(iface string) *RingGetRequest {
	return &RingGetRequest{request: newRequest(h.handle, iface)}
}

func (h RingHandle) Set(iface string, params RingParams) *RingSetRequest {
	return &RingSetRequest{request: newRequest(h.handle, iface), params: params}
}

type RingGetRequest struct {
	request
}

func (r *RingGetRequest) Execute(ctx context.Context) *Stream {
	return r.run(ctx, func() Message { return newRingGet(r.iface) })
}

type RingSetRequest struct {
	request
	params RingParams
}

func (r *RingSetRequest) Execute(ctx context.Context) *Stream {
	return r.run(ctx, func() Message { return newRingSet(r.iface, r.params) })
}

func otherRing(r nla.Raw) RingAttr { return RingOther{r} }
