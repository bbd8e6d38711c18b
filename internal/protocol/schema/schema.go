package schema

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Generic netlink family of the ethtool netlink interface.
const (
	FamilyName    = "ethtool"
	FamilyVersion = 1
	// MonitorGroup is the multicast group carrying *_NTF notifications.
	MonitorGroup = "monitor"
)

// Request command IDs (user space to kernel).
const (
	MsgStrsetGet    uint8 = 1
	MsgLinkinfoGet  uint8 = 2
	MsgLinkinfoSet  uint8 = 3
	MsgLinkmodesGet uint8 = 4
	MsgLinkmodesSet uint8 = 5
	MsgLinkstateGet uint8 = 6
	MsgDebugGet     uint8 = 7
	MsgDebugSet     uint8 = 8
	MsgWolGet       uint8 = 9
	MsgWolSet       uint8 = 10
	MsgFeaturesGet  uint8 = 11
	MsgFeaturesSet  uint8 = 12
	MsgPrivflagsGet uint8 = 13
	MsgPrivflagsSet uint8 = 14
	MsgRingsGet     uint8 = 15
	MsgRingsSet     uint8 = 16
	MsgChannelsGet  uint8 = 17
	MsgChannelsSet  uint8 = 18
	MsgCoalesceGet  uint8 = 19
	MsgCoalesceSet  uint8 = 20
	MsgPauseGet     uint8 = 21
	MsgPauseSet     uint8 = 22
)

// Reply and notification command IDs (kernel to user space). These share the
// number space with the request IDs but not their values.
const (
	MsgLinkmodesGetReply uint8 = 4
	MsgLinkmodesNtf      uint8 = 5
	MsgFeaturesGetReply  uint8 = 11
	MsgFeaturesSetReply  uint8 = 12
	MsgFeaturesNtf       uint8 = 13
	MsgRingsGetReply     uint8 = 16
	MsgRingsNtf          uint8 = 17
	MsgChannelsGetReply  uint8 = 18
	MsgChannelsNtf       uint8 = 19
	MsgCoalesceGetReply  uint8 = 20
	MsgCoalesceNtf       uint8 = 21
	MsgPauseGetReply     uint8 = 22
	MsgPauseNtf          uint8 = 23
)

// Header nest, shared by every group as attribute 1.
const (
	HeaderDevIndex uint16 = 1
	HeaderDevName  uint16 = 2
	HeaderFlags    uint16 = 3
)

// Header request flags.
const (
	FlagCompactBitsets uint32 = 1 << 0
	FlagOmitReply      uint32 = 1 << 1
	FlagStats          uint32 = 1 << 2
)

// GroupHeader is the attribute ID of the header nest in every group.
const GroupHeader uint16 = 1

// Channels group.
const (
	ChannelsRxMax         uint16 = 2
	ChannelsTxMax         uint16 = 3
	ChannelsOtherMax      uint16 = 4
	ChannelsCombinedMax   uint16 = 5
	ChannelsRxCount       uint16 = 6
	ChannelsTxCount       uint16 = 7
	ChannelsOtherCount    uint16 = 8
	ChannelsCombinedCount uint16 = 9
)

// Pause group.
const (
	PauseAutoneg uint16 = 2
	PauseRx      uint16 = 3
	PauseTx      uint16 = 4
	PauseStats   uint16 = 5
)

// Rings group.
const (
	RingsRxMax      uint16 = 2
	RingsRxMiniMax  uint16 = 3
	RingsRxJumboMax uint16 = 4
	RingsTxMax      uint16 = 5
	RingsRx         uint16 = 6
	RingsRxMini     uint16 = 7
	RingsRxJumbo    uint16 = 8
	RingsTx         uint16 = 9
)

// Coalesce group.
const (
	CoalesceRxUsecs            uint16 = 2
	CoalesceRxMaxFrames        uint16 = 3
	CoalesceRxUsecsIrq         uint16 = 4
	CoalesceRxMaxFramesIrq     uint16 = 5
	CoalesceTxUsecs            uint16 = 6
	CoalesceTxMaxFrames        uint16 = 7
	CoalesceTxUsecsIrq         uint16 = 8
	CoalesceTxMaxFramesIrq     uint16 = 9
	CoalesceStatsBlockUsecs    uint16 = 10
	CoalesceUseAdaptiveRx      uint16 = 11
	CoalesceUseAdaptiveTx      uint16 = 12
	CoalescePktRateLow         uint16 = 13
	CoalesceRxUsecsLow         uint16 = 14
	CoalesceRxMaxFramesLow     uint16 = 15
	CoalesceTxUsecsLow         uint16 = 16
	CoalesceTxMaxFramesLow     uint16 = 17
	CoalescePktRateHigh        uint16 = 18
	CoalesceRxUsecsHigh        uint16 = 19
	CoalesceRxMaxFramesHigh    uint16 = 20
	CoalesceTxUsecsHigh        uint16 = 21
	CoalesceTxMaxFramesHigh    uint16 = 22
	CoalesceRateSampleInterval uint16 = 23
)

// Features group.
const (
	FeaturesHW       uint16 = 2
	FeaturesWanted   uint16 = 3
	FeaturesActive   uint16 = 4
	FeaturesNoChange uint16 = 5
)

// Link modes group.
const (
	LinkmodesAutoneg uint16 = 2
	LinkmodesOurs    uint16 = 3
	LinkmodesPeer    uint16 = 4
	LinkmodesSpeed   uint16 = 5
	LinkmodesDuplex  uint16 = 6
)

// Bitset nest and its bit entries.
const (
	BitsetNoMask uint16 = 1
	BitsetSize   uint16 = 2
	BitsetBits   uint16 = 3
	BitsetValue  uint16 = 4
	BitsetMask   uint16 = 5

	BitsetBitsBit uint16 = 1

	BitsetBitIndex uint16 = 1
	BitsetBitName  uint16 = 2
	BitsetBitValue uint16 = 3
)

var requestNames = map[uint8]string{
	MsgLinkmodesGet: "linkmodes_get",
	MsgLinkmodesSet: "linkmodes_set",
	MsgFeaturesGet:  "features_get",
	MsgFeaturesSet:  "features_set",
	MsgRingsGet:     "rings_get",
	MsgRingsSet:     "rings_set",
	MsgChannelsGet:  "channels_get",
	MsgChannelsSet:  "channels_set",
	MsgCoalesceGet:  "coalesce_get",
	MsgCoalesceSet:  "coalesce_set",
	MsgPauseGet:     "pause_get",
	MsgPauseSet:     "pause_set",
}

var replyNames = map[uint8]string{
	MsgLinkmodesGetReply: "linkmodes_get_reply",
	MsgLinkmodesNtf:      "linkmodes_ntf",
	MsgFeaturesGetReply:  "features_get_reply",
	MsgFeaturesSetReply:  "features_set_reply",
	MsgFeaturesNtf:       "features_ntf",
	MsgRingsGetReply:     "rings_get_reply",
	MsgRingsNtf:          "rings_ntf",
	MsgChannelsGetReply:  "channels_get_reply",
	MsgChannelsNtf:       "channels_ntf",
	MsgCoalesceGetReply:  "coalesce_get_reply",
	MsgCoalesceNtf:       "coalesce_ntf",
	MsgPauseGetReply:     "pause_get_reply",
	MsgPauseNtf:          "pause_ntf",
}

// RequestName names a request command for logs and metric labels.
func RequestName(cmd uint8) string {
	if name, ok := requestNames[cmd]; ok {
		return name
	}
	return fmt.Sprintf("cmd_%d", cmd)
}

// ReplyName names a reply or notification command.
func ReplyName(cmd uint8) string {
	if name, ok := replyNames[cmd]; ok {
		return name
	}
	return fmt.Sprintf("cmd_%d", cmd)
}

type ValidationError struct {
	Command uint8
	Kind    uint16
	Reason  string
}

func (e ValidationError) Error() string {
	if e.Kind == 0 {
		return fmt.Sprintf("schema: command=%s: %s", RequestName(e.Command), e.Reason)
	}
	return fmt.Sprintf("schema: command=%s attribute=%d: %s", RequestName(e.Command), e.Kind, e.Reason)
}

// Validate checks an outgoing request: the command must be one this client
// speaks and the header nest must lead the attribute list. kinds are the
// masked attribute kinds in emission order. Unknown attributes are allowed.
func Validate(cmd uint8, kinds []uint16) error {
	log.Debug().Str("command", RequestName(cmd)).Int("attrs", len(kinds)).Msg("schema.Validate")
	if _, ok := requestNames[cmd]; !ok {
		log.Error().Uint8("command", cmd).Msg("schema.Validate unknown command")
		return ValidationError{Command: cmd, Reason: "unknown command"}
	}
	if len(kinds) == 0 || kinds[0] != GroupHeader {
		log.Error().Str("command", RequestName(cmd)).Msg("schema.Validate missing header")
		return ValidationError{Command: cmd, Kind: GroupHeader, Reason: "missing request header"}
	}
	return nil
}
