package ethtool

import (
	"context"
	"io"
	"testing"

	"github.com/mdlayher/netlink"
	"github.com/mdlayher/netlink/nlenc"
	"github.com/stretchr/testify/require"

	"github.com/yiya1989/netlink/internal/protocol/frame"
	"github.com/yiya1989/netlink/internal/protocol/nla"
	"github.com/yiya1989/netlink/internal/testutil/testlog"
)

const testFamily uint16 = 0x1c

type rawItem struct {
	msg netlink.Message
	err error
}

type fakeRaw struct {
	items  []rawItem
	pos    int
	closed bool
}

func (r *fakeRaw) Recv(ctx context.Context) (netlink.Message, error) {
	if err := ctx.Err(); err != nil {
		return netlink.Message{}, err
	}
	if r.pos >= len(r.items) {
		return netlink.Message{}, io.EOF
	}
	it := r.items[r.pos]
	r.pos++
	return it.msg, it.err
}

func (r *fakeRaw) Close() error {
	r.closed = true
	return nil
}

// fakeConn records submitted envelopes and answers each with the items
// produced by replies.
type fakeConn struct {
	sent    []netlink.Message
	streams []*fakeRaw
	err     error
	replies func(netlink.Message) []rawItem
}

func (c *fakeConn) Request(_ context.Context, m netlink.Message) (RawStream, error) {
	c.sent = append(c.sent, m)
	if c.err != nil {
		return nil, c.err
	}
	var items []rawItem
	if c.replies != nil {
		items = c.replies(m)
	}
	raw := &fakeRaw{items: items}
	c.streams = append(c.streams, raw)
	return raw, nil
}

func newTestHandle(t *testing.T, conn Conn, policy DecodePolicy) Handle {
	t.Helper()
	testlog.Start(t)
	cfg := DefaultHandleConfig()
	cfg.DecodePolicy = policy
	return NewHandle(conn, Family{ID: testFamily, Version: 1}, cfg)
}

// replyMsg wraps an attribute payload the way the kernel frames a reply.
func replyMsg(t *testing.T, cmd uint8, payload []byte) rawItem {
	t.Helper()
	m, err := frame.Wrap(testFamily, 1, cmd, payload, netlink.Multi)
	require.NoError(t, err)
	return rawItem{msg: m}
}

// sentPayload returns the command and attribute bytes of the n-th envelope.
func sentPayload(t *testing.T, c *fakeConn, n int) (uint8, []byte) {
	t.Helper()
	require.Greater(t, len(c.sent), n)
	gm, err := frame.Unwrap(c.sent[n], testFamily)
	require.NoError(t, err)
	return gm.Header.Command, gm.Data
}

// tlv encodes one attribute by hand, padding the value to four bytes.
func tlv(kind uint16, value []byte) []byte {
	b := make([]byte, nla.Align(nla.HeaderLen+len(value)))
	nlenc.PutUint16(b[0:2], uint16(nla.HeaderLen+len(value)))
	nlenc.PutUint16(b[2:4], kind)
	copy(b[nla.HeaderLen:], value)
	return b
}

func u32(v uint32) []byte { return nlenc.Uint32Bytes(v) }

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func drain(t *testing.T, s *Stream) ([]Message, []error) {
	t.Helper()
	var (
		msgs []Message
		errs []error
	)
	for msg, err := range s.All(context.Background()) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, errs
}
