package ethtool

import (
	"context"

	"github.com/yiya1989/netlink/internal/protocol/nla"
	"github.com/yiya1989/netlink/internal/protocol/schema"
)

// FeatureAttr is one attribute of the features (offload) group.
type FeatureAttr interface {
	nla.Attribute
	featureAttr()
}

type (
	FeatureHeader []HeaderAttr
	// FeatureSet is one of the hw, wanted, active or nochange bitsets.
	FeatureSet struct {
		Type uint16
		Set  Bitset
	}
	FeatureOther struct{ nla.Raw }
)

func (h FeatureHeader) Kind() uint16       { return headerNest(h).Kind() }
func (h FeatureHeader) ValueLen() int      { return headerNest(h).ValueLen() }
func (h FeatureHeader) EmitValue(b []byte) { headerNest(h).EmitValue(b) }

func (f FeatureSet) Kind() uint16       { return f.Type | nla.Nested }
func (f FeatureSet) ValueLen() int      { return f.Set.ValueLen() }
func (f FeatureSet) EmitValue(b []byte) { f.Set.EmitValue(b) }

func (FeatureHeader) featureAttr() {}
func (FeatureSet) featureAttr()    {}
func (FeatureOther) featureAttr()  {}

func parseFeatureAttr(buf nla.Buffer) (FeatureAttr, error) {
	switch buf.Type() {
	case schema.GroupHeader:
		h, err := parseHeaderNest("features", buf)
		return FeatureHeader(h), err
	case schema.FeaturesHW, schema.FeaturesWanted, schema.FeaturesActive, schema.FeaturesNoChange:
		set, err := ParseBitset(buf.Value)
		if err != nil {
			return nil, err
		}
		return FeatureSet{Type: buf.Type(), Set: set}, nil
	default:
		return FeatureOther{nla.RawFrom(buf)}, nil
	}
}

func ParseFeatureAttrs(b []byte) ([]FeatureAttr, error) {
	return nla.ParseAttrs(b, "features", parseFeatureAttr, otherFeature)
}

func newFeatureGet(iface string) Message {
	return Message{
		Cmd:   schema.MsgFeaturesGet,
		Attrs: []Attr{FeatureHeader(requestHeader(iface))},
	}
}

func newFeatureSet(iface string, wanted map[string]bool) Message {
	return Message{
		Cmd: schema.MsgFeaturesSet,
		Attrs: []Attr{
			FeatureHeader(requestHeader(iface)),
			FeatureSet{Type: schema.FeaturesWanted, Set: NamedBitset(wanted)},
		},
	}
}

type FeatureHandle struct {
	handle Handle
}

// Get reads offload features (ethtool -k).
func (h FeatureHandle) Get(iface string) *FeatureGetRequest {
	return &FeatureGetRequest{request: newRequest(h.handle, iface)}
}

// Set turns the named features on or off (ethtool -K). Features not named
// keep their state.
func (h FeatureHandle) Set(iface string, wanted map[string]bool) *FeatureSetRequest {
	return &FeatureSetRequest{request: newRequest(h.handle, iface), wanted: wanted}
}

type FeatureGetRequest struct {
	request
}

func (r *FeatureGetRequest) Execute(ctx context.Context) *Stream {
	return r.run(ctx, func() Message { return newFeatureGet(r.iface) })
}

type FeatureSetRequest struct {
	request
	wanted map[string]bool
}

func (r *FeatureSetRequest) Execute(ctx context.Context) *Stream {
	return r.run(ctx, func() Message { return newFeatureSet(r.iface, r.wanted) })
}

func otherFeature(r nla.Raw) FeatureAttr { return FeatureOther{r} }
