package ethtool

import (
	"fmt"
	"sort"

	"github.com/yiya1989/netlink/internal/protocol/nla"
	"github.com/yiya1989/netlink/internal/protocol/schema"
)

// Bitset is the contents of an ethtool bitset nest in its verbose form: a
// list of named bits, optionally with the compact value and mask arrays.
// Features and link modes both carry bitsets.
type Bitset []BitsetAttr

type BitsetAttr interface {
	nla.Attribute
	bitsetAttr()
}

type (
	// BitsetNoMask marks a bitset that lists only set bits.
	BitsetNoMask struct{}
	BitsetSize   uint32
	BitsetBits   []BitsetEntry
	BitsetValue  []byte
	BitsetMask   []byte
	BitsetOther  struct{ nla.Raw }
)

func (BitsetNoMask) Kind() uint16        { return schema.BitsetNoMask }
func (BitsetNoMask) ValueLen() int       { return 0 }
func (BitsetNoMask) EmitValue([]byte)    {}
func (BitsetSize) Kind() uint16          { return schema.BitsetSize }
func (BitsetSize) ValueLen() int         { return 4 }
func (v BitsetSize) EmitValue(b []byte)  { nla.PutUint32(b, uint32(v)) }
func (BitsetBits) Kind() uint16          { return schema.BitsetBits | nla.Nested }
func (v BitsetBits) ValueLen() int       { return nla.ListLen(v) }
func (v BitsetBits) EmitValue(b []byte)  { nla.EmitList(b, v) }
func (BitsetValue) Kind() uint16         { return schema.BitsetValue }
func (v BitsetValue) ValueLen() int      { return len(v) }
func (v BitsetValue) EmitValue(b []byte) { copy(b, v) }
func (BitsetMask) Kind() uint16          { return schema.BitsetMask }
func (v BitsetMask) ValueLen() int       { return len(v) }
func (v BitsetMask) EmitValue(b []byte)  { copy(b, v) }

func (BitsetNoMask) bitsetAttr() {}
func (BitsetSize) bitsetAttr()   {}
func (BitsetBits) bitsetAttr()   {}
func (BitsetValue) bitsetAttr()  {}
func (BitsetMask) bitsetAttr()   {}
func (BitsetOther) bitsetAttr()  {}

// BitsetEntry is one entry of the bits nest.
type BitsetEntry interface {
	nla.Attribute
	bitsetEntry()
}

type (
	// BitsetBit describes a single bit by index, name and value.
	BitsetBit        []BitAttr
	BitsetEntryOther struct{ nla.Raw }
)

func (BitsetBit) Kind() uint16         { return schema.BitsetBitsBit | nla.Nested }
func (v BitsetBit) ValueLen() int      { return nla.ListLen(v) }
func (v BitsetBit) EmitValue(b []byte) { nla.EmitList(b, v) }

func (BitsetBit) bitsetEntry()        {}
func (BitsetEntryOther) bitsetEntry() {}

type BitAttr interface {
	nla.Attribute
	bitAttr()
}

type (
	BitIndex uint32
	BitName  string
	// BitValue is a flag: present means the bit is set.
	BitValue struct{}
	BitOther struct{ nla.Raw }
)

func (BitIndex) Kind() uint16         { return schema.BitsetBitIndex }
func (BitIndex) ValueLen() int        { return 4 }
func (v BitIndex) EmitValue(b []byte) { nla.PutUint32(b, uint32(v)) }
func (BitName) Kind() uint16          { return schema.BitsetBitName }
func (v BitName) ValueLen() int       { return nla.StringLen(string(v)) }
func (v BitName) EmitValue(b []byte)  { nla.PutString(b, string(v)) }
func (BitValue) Kind() uint16         { return schema.BitsetBitValue }
func (BitValue) ValueLen() int        { return 0 }
func (BitValue) EmitValue([]byte)     {}

func (BitIndex) bitAttr() {}
func (BitName) bitAttr()  {}
func (BitValue) bitAttr() {}
func (BitOther) bitAttr() {}

func parseBitAttr(buf nla.Buffer) (BitAttr, error) {
	switch buf.Type() {
	case schema.BitsetBitIndex:
		v, err := nla.Uint32(buf.Value)
		return BitIndex(v), err
	case schema.BitsetBitName:
		v, err := nla.String(buf.Value)
		return BitName(v), err
	case schema.BitsetBitValue:
		return BitValue{}, nil
	default:
		return BitOther{nla.RawFrom(buf)}, nil
	}
}

func parseBitsetEntry(buf nla.Buffer) (BitsetEntry, error) {
	if buf.Type() != schema.BitsetBitsBit {
		return BitsetEntryOther{nla.RawFrom(buf)}, nil
	}
	attrs, err := nla.ParseAttrs(buf.Value, "bitset bit", parseBitAttr, otherBit)
	if err != nil {
		return nil, err
	}
	return BitsetBit(attrs), nil
}

func parseBitsetAttr(buf nla.Buffer) (BitsetAttr, error) {
	switch buf.Type() {
	case schema.BitsetNoMask:
		return BitsetNoMask{}, nil
	case schema.BitsetSize:
		v, err := nla.Uint32(buf.Value)
		return BitsetSize(v), err
	case schema.BitsetBits:
		entries, err := nla.ParseAttrs(buf.Value, "bitset bits", parseBitsetEntry, otherBitsetEntry)
		if err != nil {
			return nil, err
		}
		return BitsetBits(entries), nil
	case schema.BitsetValue:
		return BitsetValue(append([]byte(nil), buf.Value...)), nil
	case schema.BitsetMask:
		return BitsetMask(append([]byte(nil), buf.Value...)), nil
	default:
		return BitsetOther{nla.RawFrom(buf)}, nil
	}
}

// ParseBitset decodes the contents of a bitset nest.
func ParseBitset(b []byte) (Bitset, error) {
	attrs, err := nla.ParseAttrs(b, "bitset", parseBitsetAttr, otherBitset)
	if err != nil {
		return nil, err
	}
	return Bitset(attrs), nil
}

func (s Bitset) ValueLen() int      { return nla.ListLen(s) }
func (s Bitset) EmitValue(b []byte) { nla.EmitList(b, s) }

// Bits returns the named bits of the set and whether each is set. Bits
// without a name are keyed as "bit<index>".
func (s Bitset) Bits() map[string]bool {
	out := map[string]bool{}
	for _, a := range s {
		bits, ok := a.(BitsetBits)
		if !ok {
			continue
		}
		for _, e := range bits {
			bit, ok := e.(BitsetBit)
			if !ok {
				continue
			}
			name, set := bit.describe()
			out[name] = set
		}
	}
	return out
}

// Active lists the names of set bits in sorted order.
func (s Bitset) Active() []string {
	var names []string
	for name, set := range s.Bits() {
		if set {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (b BitsetBit) describe() (name string, set bool) {
	var (
		index    uint32
		hasIndex bool
	)
	for _, a := range b {
		switch v := a.(type) {
		case BitName:
			name = string(v)
		case BitIndex:
			index, hasIndex = uint32(v), true
		case BitValue:
			set = true
		}
	}
	if name == "" && hasIndex {
		name = fmt.Sprintf("bit%d", index)
	}
	return name, set
}

// NamedBitset builds a verbose bitset that changes only the listed bits: each
// is set or cleared according to its value. Names are emitted sorted.
func NamedBitset(bits map[string]bool) Bitset {
	names := make([]string, 0, len(bits))
	for name := range bits {
		names = append(names, name)
	}
	sort.Strings(names)
	entries := make(BitsetBits, 0, len(names))
	for _, name := range names {
		bit := BitsetBit{BitName(name)}
		if bits[name] {
			bit = append(bit, BitValue{})
		}
		entries = append(entries, bit)
	}
	return Bitset{entries}
}

func otherBit(r nla.Raw) BitAttr { return BitOther{r} }

func otherBitsetEntry(r nla.Raw) BitsetEntry { return BitsetEntryOther{r} }

func otherBitset(r nla.Raw) BitsetAttr { return BitsetOther{r} }
