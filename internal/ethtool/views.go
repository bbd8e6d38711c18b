package ethtool

import "github.com/yiya1989/netlink/internal/protocol/schema"

// Flattened per-interface views of replies, used by the CLI and HTTP front
// ends. Fields absent from a reply stay zero.

type Channels struct {
	Interface     string `json:"interface"`
	Index         uint32 `json:"index,omitempty"`
	RxMax         uint32 `json:"rx_max,omitempty"`
	TxMax         uint32 `json:"tx_max,omitempty"`
	OtherMax      uint32 `json:"other_max,omitempty"`
	CombinedMax   uint32 `json:"combined_max"`
	RxCount       uint32 `json:"rx_count,omitempty"`
	TxCount       uint32 `json:"tx_count,omitempty"`
	OtherCount    uint32 `json:"other_count,omitempty"`
	CombinedCount uint32 `json:"combined_count"`
}

func ChannelsFromMessage(m Message) Channels {
	var c Channels
	for _, a := range AttrsOf[ChannelAttr](m) {
		switch v := a.(type) {
		case ChannelHeader:
			c.Interface, c.Index = headerIdentity(v)
		case ChannelRxMax:
			c.RxMax = uint32(v)
		case ChannelTxMax:
			c.TxMax = uint32(v)
		case ChannelOtherMax:
			c.OtherMax = uint32(v)
		case ChannelMaxCombined:
			c.CombinedMax = uint32(v)
		case ChannelRxCount:
			c.RxCount = uint32(v)
		case ChannelTxCount:
			c.TxCount = uint32(v)
		case ChannelOtherCount:
			c.OtherCount = uint32(v)
		case ChannelCombinedCount:
			c.CombinedCount = uint32(v)
		}
	}
	return c
}

type Rings struct {
	Interface string `json:"interface"`
	Index     uint32 `json:"index,omitempty"`
	RxMax     uint32 `json:"rx_max"`
	TxMax     uint32 `json:"tx_max"`
	Rx        uint32 `json:"rx"`
	Tx        uint32 `json:"tx"`
}

func RingsFromMessage(m Message) Rings {
	var r Rings
	for _, a := range AttrsOf[RingAttr](m) {
		switch v := a.(type) {
		case RingHeader:
			r.Interface, r.Index = headerIdentity(v)
		case RingParam:
			switch v.Type {
			case schema.RingsRxMax:
				r.RxMax = v.Value
			case schema.RingsTxMax:
				r.TxMax = v.Value
			case schema.RingsRx:
				r.Rx = v.Value
			case schema.RingsTx:
				r.Tx = v.Value
			}
		}
	}
	return r
}

type Pause struct {
	Interface string `json:"interface"`
	Index     uint32 `json:"index,omitempty"`
	Autoneg   bool   `json:"autoneg"`
	Rx        bool   `json:"rx"`
	Tx        bool   `json:"tx"`
}

func PauseFromMessage(m Message) Pause {
	var p Pause
	for _, a := range AttrsOf[PauseAttr](m) {
		switch v := a.(type) {
		case PauseHeader:
			p.Interface, p.Index = headerIdentity(v)
		case PauseAutoneg:
			p.Autoneg = bool(v)
		case PauseRx:
			p.Rx = bool(v)
		case PauseTx:
			p.Tx = bool(v)
		}
	}
	return p
}

// Features maps feature names to their active state.
type Features struct {
	Interface string          `json:"interface"`
	Active    map[string]bool `json:"active"`
}

func FeaturesFromMessage(m Message) Features {
	f := Features{Active: map[string]bool{}}
	for _, a := range AttrsOf[FeatureAttr](m) {
		switch v := a.(type) {
		case FeatureHeader:
			f.Interface, _ = headerIdentity(v)
		case FeatureSet:
			if v.Type == schema.FeaturesActive {
				f.Active = v.Set.Bits()
			}
		}
	}
	return f
}

type LinkModes struct {
	Interface  string   `json:"interface"`
	Autoneg    bool     `json:"autoneg"`
	Speed      uint32   `json:"speed"`
	Duplex     uint8    `json:"duplex"`
	Advertised []string `json:"advertised"`
	Peer       []string `json:"peer,omitempty"`
}

func LinkModesFromMessage(m Message) LinkModes {
	var l LinkModes
	for _, a := range AttrsOf[LinkModeAttr](m) {
		switch v := a.(type) {
		case LinkModeHeader:
			l.Interface, _ = headerIdentity(v)
		case LinkModeAutoneg:
			l.Autoneg = bool(v)
		case LinkModeSpeed:
			l.Speed = uint32(v)
		case LinkModeDuplex:
			l.Duplex = uint8(v)
		case LinkModeSet:
			if v.Type == schema.LinkmodesOurs {
				l.Advertised = v.Set.Active()
			} else {
				l.Peer = v.Set.Active()
			}
		}
	}
	return l
}
