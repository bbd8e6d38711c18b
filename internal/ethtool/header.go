package ethtool

import (
	"fmt"

	"github.com/yiya1989/netlink/internal/protocol/nla"
	"github.com/yiya1989/netlink/internal/protocol/schema"
)

// HeaderAttr is one attribute of the request/reply header nest that
// identifies the device.
type HeaderAttr interface {
	nla.Attribute
	headerAttr()
}

type (
	HeaderDevIndex uint32
	HeaderDevName  string
	HeaderFlags    uint32
	HeaderOther    struct{ nla.Raw }
)

func (HeaderDevIndex) Kind() uint16         { return schema.HeaderDevIndex }
func (HeaderDevIndex) ValueLen() int        { return 4 }
func (v HeaderDevIndex) EmitValue(b []byte) { nla.PutUint32(b, uint32(v)) }
func (HeaderDevName) Kind() uint16          { return schema.HeaderDevName }
func (v HeaderDevName) ValueLen() int       { return nla.StringLen(string(v)) }
func (v HeaderDevName) EmitValue(b []byte)  { nla.PutString(b, string(v)) }
func (HeaderFlags) Kind() uint16            { return schema.HeaderFlags }
func (HeaderFlags) ValueLen() int           { return 4 }
func (v HeaderFlags) EmitValue(b []byte)    { nla.PutUint32(b, uint32(v)) }
func (v HeaderDevName) String() string      { return fmt.Sprintf("dev_name=%q", string(v)) }
func (v HeaderDevIndex) String() string     { return fmt.Sprintf("dev_index=%d", uint32(v)) }
func (v HeaderFlags) String() string        { return fmt.Sprintf("flags=%#x", uint32(v)) }

func (HeaderDevIndex) headerAttr() {}
func (HeaderDevName) headerAttr()  {}
func (HeaderFlags) headerAttr()    {}
func (HeaderOther) headerAttr()    {}

// requestHeader selects iface, or every interface when iface is empty.
func requestHeader(iface string) []HeaderAttr {
	if iface == "" {
		return []HeaderAttr{}
	}
	return []HeaderAttr{HeaderDevName(iface)}
}

func parseHeaderAttr(buf nla.Buffer) (HeaderAttr, error) {
	switch buf.Type() {
	case schema.HeaderDevIndex:
		v, err := nla.Uint32(buf.Value)
		return HeaderDevIndex(v), err
	case schema.HeaderDevName:
		v, err := nla.String(buf.Value)
		return HeaderDevName(v), err
	case schema.HeaderFlags:
		v, err := nla.Uint32(buf.Value)
		return HeaderFlags(v), err
	default:
		return HeaderOther{nla.RawFrom(buf)}, nil
	}
}

// ParseHeader decodes the contents of a header nest.
func ParseHeader(b []byte) ([]HeaderAttr, error) {
	return nla.ParseAttrs(b, "header", parseHeaderAttr, otherHeader)
}

// headerNest is the shared encoding of every group's header attribute.
type headerNest []HeaderAttr

func (h headerNest) Kind() uint16       { return schema.GroupHeader | nla.Nested }
func (h headerNest) ValueLen() int      { return nla.ListLen(h) }
func (h headerNest) EmitValue(b []byte) { nla.EmitList(b, h) }

// parseHeaderNest decodes a group header, naming group in failures.
func parseHeaderNest(group string, buf nla.Buffer) ([]HeaderAttr, error) {
	attrs, err := nla.ParseAttrs(buf.Value, group+" header", parseHeaderAttr, otherHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s header attributes: %w", group, err)
	}
	return attrs, nil
}

// headerIdentity returns the device name and index carried by a header.
func headerIdentity(h []HeaderAttr) (name string, index uint32) {
	for _, a := range h {
		switch v := a.(type) {
		case HeaderDevName:
			name = string(v)
		case HeaderDevIndex:
			index = uint32(v)
		}
	}
	return name, index
}

func otherHeader(r nla.Raw) HeaderAttr { return HeaderOther{r} }
