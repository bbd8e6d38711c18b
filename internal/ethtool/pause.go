package ethtool

import (
	"context"

	"github.com/yiya1989/netlink/internal/protocol/nla"
	"github.com/yiya1989/netlink/internal/protocol/schema"
)

// PauseAttr is one attribute of the pause (flow control) group. The pause
// statistics nest is kept as PauseOther.
type PauseAttr interface {
	nla.Attribute
	pauseAttr()
}

type (
	PauseHeader  []HeaderAttr
	PauseAutoneg bool
	PauseRx      bool
	PauseTx      bool
	PauseOther   struct{ nla.Raw }
)

func (h PauseHeader) Kind() uint16       { return headerNest(h).Kind() }
func (h PauseHeader) ValueLen() int      { return headerNest(h).ValueLen() }
func (h PauseHeader) EmitValue(b []byte) { headerNest(h).EmitValue(b) }

func (PauseAutoneg) Kind() uint16 { return schema.PauseAutoneg }
func (PauseRx) Kind() uint16      { return schema.PauseRx }
func (PauseTx) Kind() uint16      { return schema.PauseTx }

func (PauseAutoneg) ValueLen() int { return 1 }
func (PauseRx) ValueLen() int      { return 1 }
func (PauseTx) ValueLen() int      { return 1 }

func (v PauseAutoneg) EmitValue(b []byte) { putBool(b, bool(v)) }
func (v PauseRx) EmitValue(b []byte)      { putBool(b, bool(v)) }
func (v PauseTx) EmitValue(b []byte)      { putBool(b, bool(v)) }

func (PauseHeader) pauseAttr()  {}
func (PauseAutoneg) pauseAttr() {}
func (PauseRx) pauseAttr()      {}
func (PauseTx) pauseAttr()      {}
func (PauseOther) pauseAttr()   {}

func putBool(b []byte, v bool) {
	if v {
		b[0] = 1
		return
	}
	b[0] = 0
}

func parseBool(b []byte) (bool, error) {
	v, err := nla.Uint8(b)
	return v != 0, err
}

func parsePauseAttr(buf nla.Buffer) (PauseAttr, error) {
	switch buf.Type() {
	case schema.GroupHeader:
		h, err := parseHeaderNest("pause", buf)
		return PauseHeader(h), err
	case schema.PauseAutoneg:
		v, err := parseBool(buf.Value)
		return PauseAutoneg(v), err
	case schema.PauseRx:
		v, err := parseBool(buf.Value)
		return PauseRx(v), err
	case schema.PauseTx:
		v, err := parseBool(buf.Value)
		return PauseTx(v), err
	default:
		return PauseOther{nla.RawFrom(buf)}, nil
	}
}

func ParsePauseAttrs(b []byte) ([]PauseAttr, error) {
	return nla.ParseAttrs(b, "pause", parsePauseAttr, otherPause)
}

// PauseParams selects the pause settings to change; nil fields are left as
// they are.
type PauseParams struct {
	Autoneg *bool
	Rx      *bool
	Tx      *bool
}

func newPauseGet(iface string) Message {
	return Message{
		Cmd:   schema.MsgPauseGet,
		Attrs: []Attr{PauseHeader(requestHeader(iface))},
	}
}

func newPauseSet(iface string, p PauseParams) Message {
	attrs := []Attr{PauseHeader(requestHeader(iface))}
	if p.Autoneg != nil {
		attrs = append(attrs, PauseAutoneg(*p.Autoneg))
	}
	if p.Rx != nil {
		attrs = append(attrs, PauseRx(*p.Rx))
	}
	if p.Tx != nil {
		attrs = append(attrs, PauseTx(*p.Tx))
	}
	return Message{Cmd: schema.MsgPauseSet, Attrs: attrs}
}

type PauseHandle struct {
	handle Handle
}

// Get reads pause settings (ethtool -a).
func (h PauseHandle) Get(iface string) *PauseGetRequest {
	return &PauseGetRequest{request: newRequest(h.handle, iface)}
}

// Set changes pause settings (ethtool -A).
func (h PauseHandle) Set(iface string, params PauseParams) *PauseSetRequest {
	return &PauseSetRequest{request: newRequest(h.handle, iface), params: params}
}

type PauseGetRequest struct {
	request
}

func (r *PauseGetRequest) Execute(ctx context.Context) *Stream {
	return r.run(ctx, func() Message { return newPauseGet(r.iface) })
}

type PauseSetRequest struct {
	request
	params PauseParams
}

func (r *PauseSetRequest) Execute(ctx context.Context) *Stream {
	return r.run(ctx, func() Message { return newPauseSet(r.iface, r.params) })
}

func otherPause(r nla.Raw) PauseAttr { return PauseOther{r} }
