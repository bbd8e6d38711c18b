package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"syscall"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mdlayher/netlink"
	"github.com/stretchr/testify/require"

	"github.com/yiya1989/netlink/internal/ethtool"
	"github.com/yiya1989/netlink/internal/protocol/frame"
	"github.com/yiya1989/netlink/internal/protocol/nla"
	"github.com/yiya1989/netlink/internal/protocol/schema"
	"github.com/yiya1989/netlink/internal/testutil/testlog"
)

const family uint16 = 0x20

type item struct {
	msg netlink.Message
	err error
}

type stubStream struct {
	items []item
}

func (s *stubStream) Recv(context.Context) (netlink.Message, error) {
	if len(s.items) == 0 {
		return netlink.Message{}, io.EOF
	}
	it := s.items[0]
	s.items = s.items[1:]
	return it.msg, it.err
}

func (s *stubStream) Close() error { return nil }

// stubConn answers every request through reply and remembers what was sent.
type stubConn struct {
	sent  []netlink.Message
	reply func(t *testing.T, cmd uint8) []item
	t     *testing.T
}

func (c *stubConn) Request(_ context.Context, m netlink.Message) (ethtool.RawStream, error) {
	c.sent = append(c.sent, m)
	gm, err := frame.Unwrap(m, family)
	require.NoError(c.t, err)
	var items []item
	if c.reply != nil {
		items = c.reply(c.t, gm.Header.Command)
	}
	return &stubStream{items: items}, nil
}

func wrap[A nla.Attribute](t *testing.T, cmd uint8, attrs []A) item {
	t.Helper()
	m, err := frame.Wrap(family, 1, cmd, nla.Marshal(attrs), netlink.Multi)
	require.NoError(t, err)
	return item{msg: m}
}

func newTestServer(t *testing.T, reply func(*testing.T, uint8) []item) (*Server, *stubConn) {
	t.Helper()
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	conn := &stubConn{reply: reply, t: t}
	h := ethtool.NewHandle(conn, ethtool.Family{ID: family, Version: 1}, ethtool.DefaultHandleConfig())
	s := New(":0", h, nil)
	s.RegisterRoutes()
	return s, conn
}

func do(t *testing.T, s *Server, method, path string, body []byte) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rr, req)

	var out map[string]any
	if rr.Body.Len() > 0 && rr.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	}
	return rr, out
}

func channelReply(name string, max, count uint32) []ethtool.ChannelAttr {
	return []ethtool.ChannelAttr{
		ethtool.ChannelHeader{ethtool.HeaderDevName(name)},
		ethtool.ChannelMaxCombined(max),
		ethtool.ChannelCombinedCount(count),
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rr, body := do(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", body["status"])
	require.EqualValues(t, family, body["family"])
}

func TestGetChannels(t *testing.T) {
	s, conn := newTestServer(t, func(t *testing.T, cmd uint8) []item {
		require.Equal(t, schema.MsgChannelsGet, cmd)
		return []item{wrap(t, schema.MsgChannelsGetReply, channelReply("eth0", 8, 4))}
	})

	rr, body := do(t, s, http.MethodGet, "/interfaces/eth0/channels", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, "eth0", body["interface"])
	require.EqualValues(t, 8, body["combined_max"])
	require.EqualValues(t, 4, body["combined_count"])
	require.Equal(t, netlink.Request|netlink.Acknowledge, conn.sent[0].Header.Flags)
}

func TestDumpChannels(t *testing.T) {
	s, conn := newTestServer(t, func(t *testing.T, cmd uint8) []item {
		return []item{
			wrap(t, schema.MsgChannelsGetReply, channelReply("eth0", 8, 4)),
			wrap(t, schema.MsgChannelsGetReply, channelReply("eth1", 16, 16)),
		}
	})

	rr, body := do(t, s, http.MethodGet, "/interfaces/channels", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list, ok := body["interfaces"].([]any)
	require.True(t, ok)
	require.Len(t, list, 2)
	require.Nil(t, body["errors"])
	require.Equal(t, netlink.Request|netlink.Dump|netlink.Acknowledge, conn.sent[0].Header.Flags)
}

func TestGetChannelsUnknownInterface(t *testing.T) {
	s, _ := newTestServer(t, func(*testing.T, uint8) []item {
		return []item{{err: &frame.ProtocolError{Errno: syscall.ENODEV}}}
	})

	rr, body := do(t, s, http.MethodGet, "/interfaces/nope0/channels", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, body["error"], "no such device")
}

func TestPutChannels(t *testing.T) {
	s, conn := newTestServer(t, nil)

	rr, body := do(t, s, http.MethodPut, "/interfaces/eth0/channels", []byte(`{"combined": 6}`))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, "ok", body["status"])

	gm, err := frame.Unwrap(conn.sent[0], family)
	require.NoError(t, err)
	require.Equal(t, schema.MsgChannelsSet, gm.Header.Command)
	attrs, err := ethtool.ParseChannelAttrs(gm.Data)
	require.NoError(t, err)
	require.Equal(t, []ethtool.ChannelAttr{
		ethtool.ChannelHeader{ethtool.HeaderDevName("eth0")},
		ethtool.ChannelCombinedCount(6),
	}, attrs)
}

func TestPutChannelsRejectsBadBody(t *testing.T) {
	s, conn := newTestServer(t, nil)

	rr, _ := do(t, s, http.MethodPut, "/interfaces/eth0/channels", []byte(`{}`))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Empty(t, conn.sent)
}

func TestPutChannelsUnsupported(t *testing.T) {
	s, _ := newTestServer(t, func(*testing.T, uint8) []item {
		return []item{{err: &frame.ProtocolError{Errno: syscall.EOPNOTSUPP, Message: "combined channels not supported"}}}
	})

	rr, _ := do(t, s, http.MethodPut, "/interfaces/eth0/channels", []byte(`{"combined": 2}`))
	require.Equal(t, http.StatusNotImplemented, rr.Code)
}

func TestGetRingsAndPause(t *testing.T) {
	s, _ := newTestServer(t, func(t *testing.T, cmd uint8) []item {
		switch cmd {
		case schema.MsgRingsGet:
			return []item{wrap(t, schema.MsgRingsGetReply, []ethtool.RingAttr{
				ethtool.RingHeader{ethtool.HeaderDevName("eth0")},
				ethtool.RingParam{Type: schema.RingsRxMax, Value: 4096},
				ethtool.RingParam{Type: schema.RingsRx, Value: 512},
			})}
		case schema.MsgPauseGet:
			return []item{wrap(t, schema.MsgPauseGetReply, []ethtool.PauseAttr{
				ethtool.PauseHeader{ethtool.HeaderDevName("eth0")},
				ethtool.PauseRx(true),
			})}
		}
		return nil
	})

	rr, body := do(t, s, http.MethodGet, "/interfaces/eth0/rings", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.EqualValues(t, 4096, body["rx_max"])
	require.EqualValues(t, 512, body["rx"])

	rr, body = do(t, s, http.MethodGet, "/interfaces/eth0/pause", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, true, body["rx"])
	require.Equal(t, false, body["tx"])
}

func TestStatusFor(t *testing.T) {
	require.Equal(t, http.StatusForbidden, statusFor(&frame.ProtocolError{Errno: syscall.EPERM}))
	require.Equal(t, http.StatusBadRequest, statusFor(&frame.ProtocolError{Errno: syscall.EINVAL}))
	require.Equal(t, http.StatusBadGateway, statusFor(&ethtool.RequestError{Err: io.ErrUnexpectedEOF}))
	require.Equal(t, http.StatusInternalServerError, statusFor(io.ErrClosedPipe))
}
