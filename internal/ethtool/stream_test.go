package ethtool

import (
	"context"
	"errors"
	"io"
	"syscall"
	"testing"

	"github.com/mdlayher/netlink"
	"github.com/stretchr/testify/require"

	"github.com/yiya1989/netlink/internal/protocol/frame"
	"github.com/yiya1989/netlink/internal/protocol/nla"
	"github.com/yiya1989/netlink/internal/protocol/schema"
)

// dumpReplies answers with a malformed channel reply followed by a good one.
func dumpReplies(t *testing.T) func(netlink.Message) []rawItem {
	return func(netlink.Message) []rawItem {
		return []rawItem{
			replyMsg(t, schema.MsgChannelsGetReply, tlv(schema.ChannelsCombinedMax, []byte{1, 2})),
			replyMsg(t, schema.MsgChannelsGetReply, cat(
				tlv(schema.GroupHeader|nla.Nested, tlv(schema.HeaderDevName, []byte("eth1\x00"))),
				tlv(schema.ChannelsCombinedCount, u32(3)),
			)),
		}
	}
}

func TestDecodePolicies(t *testing.T) {
	tests := []struct {
		name     string
		policy   DecodePolicy
		wantMsgs int
		wantErrs int
	}{
		{"report", DecodeReport, 1, 1},
		{"abort", DecodeAbort, 0, 1},
		{"skip", DecodeSkip, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &fakeConn{replies: dumpReplies(t)}
			h := newTestHandle(t, conn, tt.policy)

			msgs, errs := drain(t, h.Channel().Get("").Execute(context.Background()))
			require.Len(t, msgs, tt.wantMsgs)
			require.Len(t, errs, tt.wantErrs)
			for _, err := range errs {
				var derr *nla.DecodeError
				require.ErrorAs(t, err, &derr)
				require.Equal(t, "channel", derr.Context)
			}
			if tt.wantMsgs > 0 {
				require.Equal(t, "eth1", ChannelsFromMessage(msgs[0]).Interface)
			}
		})
	}
}

func TestReportedDecodeErrorComesFirst(t *testing.T) {
	conn := &fakeConn{replies: dumpReplies(t)}
	h := newTestHandle(t, conn, DecodeReport)
	s := h.Channel().Get("").Execute(context.Background())

	_, err := s.Next(context.Background())
	require.ErrorIs(t, err, nla.ErrInvalidLength)
	msg, err := s.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, []ChannelAttr{
		ChannelHeader{HeaderDevName("eth1")},
		ChannelCombinedCount(3),
	}, AttrsOf[ChannelAttr](msg))
	_, err = s.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)
}

func TestProtocolErrorPassesThrough(t *testing.T) {
	conn := &fakeConn{replies: func(netlink.Message) []rawItem {
		return []rawItem{{err: &frame.ProtocolError{Errno: syscall.ENODEV, Message: "no such device"}}}
	}}
	h := newTestHandle(t, conn, DecodeReport)

	_, errs := drain(t, h.Channel().Get("nope0").Execute(context.Background()))
	require.Len(t, errs, 1)
	var perr *ProtocolError
	require.ErrorAs(t, errs[0], &perr)
	require.ErrorIs(t, errs[0], syscall.ENODEV)
	require.Equal(t, "no such device", perr.Message)
	require.NotErrorIs(t, errs[0], ErrRequestFailed)
}

func TestTransportFailureEndsStream(t *testing.T) {
	conn := &fakeConn{replies: func(netlink.Message) []rawItem {
		return []rawItem{
			{err: errors.New("receive: connection reset")},
			replyMsg(t, schema.MsgChannelsGetReply, tlv(schema.ChannelsCombinedCount, u32(1))),
		}
	}}
	h := newTestHandle(t, conn, DecodeReport)

	msgs, errs := drain(t, h.Channel().Get("").Execute(context.Background()))
	require.Empty(t, msgs)
	require.Len(t, errs, 1)
	require.ErrorIs(t, errs[0], ErrRequestFailed)
	require.True(t, conn.streams[0].closed)
}

func TestReplyForOtherFamilyIsDecodeError(t *testing.T) {
	conn := &fakeConn{replies: func(netlink.Message) []rawItem {
		m, err := frame.Wrap(testFamily+1, 1, schema.MsgChannelsGetReply, nil, 0)
		require.NoError(t, err)
		return []rawItem{{msg: m}}
	}}
	h := newTestHandle(t, conn, DecodeReport)

	_, errs := drain(t, h.Channel().Get("eth0").Execute(context.Background()))
	require.Len(t, errs, 1)
	require.ErrorIs(t, errs[0], frame.ErrUnexpectedFamily)
}

func TestUnsupportedReplyCommand(t *testing.T) {
	conn := &fakeConn{replies: func(netlink.Message) []rawItem {
		return []rawItem{replyMsg(t, 99, nil)}
	}}
	h := newTestHandle(t, conn, DecodeReport)

	_, errs := drain(t, h.Channel().Get("eth0").Execute(context.Background()))
	require.Len(t, errs, 1)
	require.ErrorIs(t, errs[0], ErrUnsupportedCommand)
}

func TestCanceledContextLeavesStreamOpen(t *testing.T) {
	conn := &fakeConn{replies: func(netlink.Message) []rawItem {
		return []rawItem{replyMsg(t, schema.MsgChannelsGetReply, tlv(schema.ChannelsCombinedCount, u32(1)))}
	}}
	h := newTestHandle(t, conn, DecodeReport)
	s := h.Channel().Get("eth0").Execute(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)

	msgs, err := s.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestCloseStopsStream(t *testing.T) {
	conn := &fakeConn{replies: dumpReplies(t)}
	h := newTestHandle(t, conn, DecodeReport)
	s := h.Channel().Get("").Execute(context.Background())

	require.NoError(t, s.Close())
	require.True(t, conn.streams[0].closed)
	_, err := s.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)
}

func TestValidationFailureIsSubmissionFailure(t *testing.T) {
	conn := &fakeConn{}
	h := newTestHandle(t, conn, DecodeReport)

	s := h.execute(context.Background(), Message{Cmd: schema.MsgChannelsGet, Attrs: []Attr{ChannelCombinedCount(1)}}, false, true)
	_, err := s.Next(context.Background())
	require.ErrorIs(t, err, ErrRequestFailed)
	var verr schema.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Empty(t, conn.sent)
}

func TestParseDecodePolicy(t *testing.T) {
	for raw, want := range map[string]DecodePolicy{"": DecodeReport, "Report": DecodeReport, "abort": DecodeAbort, " skip ": DecodeSkip} {
		got, err := ParseDecodePolicy(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got, raw)
	}
	_, err := ParseDecodePolicy("drop")
	require.Error(t, err)
	require.Equal(t, "abort", DecodeAbort.String())
}
