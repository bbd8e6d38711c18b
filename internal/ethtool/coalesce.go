package ethtool

import (
	"context"
	"fmt"

	"github.com/yiya1989/netlink/internal/protocol/nla"
	"github.com/yiya1989/netlink/internal/protocol/schema"
)

// CoalesceAttr is one attribute of the interrupt coalescing group.
type CoalesceAttr interface {
	nla.Attribute
	coalesceAttr()
}

type (
	CoalesceHeader []HeaderAttr
	// CoalesceParam is any u32 coalescing setting.
	CoalesceParam struct {
		Type  uint16
		Value uint32
	}
	// CoalesceAdaptive is the adaptive rx or tx switch.
	CoalesceAdaptive struct {
		Type    uint16
		Enabled bool
	}
	CoalesceOther struct{ nla.Raw }
)

func (h CoalesceHeader) Kind() uint16       { return headerNest(h).Kind() }
func (h CoalesceHeader) ValueLen() int      { return headerNest(h).ValueLen() }
func (h CoalesceHeader) EmitValue(b []byte) { headerNest(h).EmitValue(b) }

func (p CoalesceParam) Kind() uint16       { return p.Type }
func (CoalesceParam) ValueLen() int        { return 4 }
func (p CoalesceParam) EmitValue(b []byte) { nla.PutUint32(b, p.Value) }
func (p CoalesceParam) String() string     { return fmt.Sprintf("coalesce[%d]=%d", p.Type, p.Value) }

func (a CoalesceAdaptive) Kind() uint16       { return a.Type }
func (CoalesceAdaptive) ValueLen() int        { return 1 }
func (a CoalesceAdaptive) EmitValue(b []byte) { putBool(b, a.Enabled) }
func (a CoalesceAdaptive) String() string     { return fmt.Sprintf("coalesce[%d]=%t", a.Type, a.Enabled) }

func (CoalesceHeader) coalesceAttr()   {}
func (CoalesceParam) coalesceAttr()    {}
func (CoalesceAdaptive) coalesceAttr() {}
func (CoalesceOther) coalesceAttr()    {}

func parseCoalesceAttr(buf nla.Buffer) (CoalesceAttr, error) {
	kind := buf.Type()
	switch {
	case kind == schema.GroupHeader:
		h, err := parseHeaderNest("coalesce", buf)
		return CoalesceHeader(h), err
	case kind == schema.CoalesceUseAdaptiveRx, kind == schema.CoalesceUseAdaptiveTx:
		v, err := parseBool(buf.Value)
		if err != nil {
			return nil, err
		}
		return CoalesceAdaptive{Type: kind, Enabled: v}, nil
	case kind >= schema.CoalesceRxUsecs && kind <= schema.CoalesceRateSampleInterval:
		v, err := nla.Uint32(buf.Value)
		if err != nil {
			return nil, err
		}
		return CoalesceParam{Type: kind, Value: v}, nil
	default:
		return CoalesceOther{nla.RawFrom(buf)}, nil
	}
}

func ParseCoalesceAttrs(b []byte) ([]CoalesceAttr, error) {
	return nla.ParseAttrs(b, "coalesce", parseCoalesceAttr, otherCoalesce)
}

// CoalesceParams selects coalescing settings to change (ethtool -C). Extra
// carries settings without a dedicated field.
type CoalesceParams struct {
	RxUsecs     *uint32
	RxMaxFrames *uint32
	TxUsecs     *uint32
	TxMaxFrames *uint32
	AdaptiveRx  *bool
	AdaptiveTx  *bool
	Extra       []CoalesceParam
}

func newCoalesceGet(iface string) Message {
	return Message{
		Cmd:   schema.MsgCoalesceGet,
		Attrs: []Attr{CoalesceHeader(requestHeader(iface))},
	}
}

func newCoalesceSet(iface string, p CoalesceParams) Message {
	attrs := []Attr{CoalesceHeader(requestHeader(iface))}
	for _, f := range []struct {
		kind uint16
		v    *uint32
	}{
		{schema.CoalesceRxUsecs, p.RxUsecs},
		{schema.CoalesceRxMaxFrames, p.RxMaxFrames},
		{schema.CoalesceTxUsecs, p.TxUsecs},
		{schema.CoalesceTxMaxFrames, p.TxMaxFrames},
	} {
		if f.v != nil {
			attrs = append(attrs, CoalesceParam{Type: f.kind, Value: *f.v})
		}
	}
	if p.AdaptiveRx != nil {
		attrs = append(attrs, CoalesceAdaptive{Type: schema.CoalesceUseAdaptiveRx, Enabled: *p.AdaptiveRx})
	}
	if p.AdaptiveTx != nil {
		attrs = append(attrs, CoalesceAdaptive{Type: schema.CoalesceUseAdaptiveTx, Enabled: *p.AdaptiveTx})
	}
	for _, e := range p.Extra {
		attrs = append(attrs, e)
	}
	return Message{Cmd: schema.MsgCoalesceSet, Attrs: attrs}
}

type CoalesceHandle struct {
	handle Handle
}

func (h CoalesceHandle) Get(iface string) *CoalesceGetRequest {
	return &CoalesceGetRequest{request: newRequest(h.handle, iface)}
}

func (h CoalesceHandle) Set(iface string, params CoalesceParams) *CoalesceSetRequest {
	return &CoalesceSetRequest{request: newRequest(h.handle, iface), params: params}
}

type CoalesceGetRequest struct {
	request
}

func (r *CoalesceGetRequest) Execute(ctx context.Context) *Stream {
	return r.run(ctx, func() Message { return newCoalesceGet(r.iface) })
}

type CoalesceSetRequest struct {
	request
	params CoalesceParams
}

func (r *CoalesceSetRequest) Execute(ctx context.Context) *Stream {
	return r.run(ctx, func() Message { return newCoalesceSet(r.iface, r.params) })
}

func otherCoalesce(r nla.Raw) CoalesceAttr { return CoalesceOther{r} }
