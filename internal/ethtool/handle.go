package ethtool

import (
	"context"
	"fmt"
	"strings"

	"github.com/mdlayher/netlink"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RawStream yields the netlink replies to one request in arrival order and
// returns io.EOF once the request is complete.
type RawStream interface {
	Recv(ctx context.Context) (netlink.Message, error)
	Close() error
}

// Conn is an open channel to the kernel generic netlink multiplexer. Request
// returns once the message has been handed to the kernel.
type Conn interface {
	Request(ctx context.Context, m netlink.Message) (RawStream, error)
}

// Family identifies the resolved ethtool generic netlink family.
type Family struct {
	ID      uint16
	Version uint8
}

// DecodePolicy decides what a Stream does with a reply it cannot decode.
type DecodePolicy int

const (
	// DecodeReport returns the error for that reply and keeps streaming.
	DecodeReport DecodePolicy = iota
	// DecodeAbort returns the error and ends the stream.
	DecodeAbort
	// DecodeSkip logs the error and moves on to the next reply.
	DecodeSkip
)

func (p DecodePolicy) String() string {
	switch p {
	case DecodeAbort:
		return "abort"
	case DecodeSkip:
		return "skip"
	default:
		return "report"
	}
}

func ParseDecodePolicy(raw string) (DecodePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "report":
		return DecodeReport, nil
	case "abort":
		return DecodeAbort, nil
	case "skip":
		return DecodeSkip, nil
	default:
		return DecodeReport, fmt.Errorf("ethtool: unknown decode policy %q", raw)
	}
}

type HandleConfig struct {
	Logger       zerolog.Logger
	DecodePolicy DecodePolicy
}

func DefaultHandleConfig() HandleConfig {
	return HandleConfig{
		Logger:       log.Logger.With().Str("component", "ethtool").Logger(),
		DecodePolicy: DecodeReport,
	}
}

// Handle is the entry point for ethtool requests. It is a small value: copies
// share the underlying Conn, so any number of requests built from copies of
// one Handle may be in flight at once.
type Handle struct {
	conn   Conn
	family Family
	log    zerolog.Logger
	policy DecodePolicy
}

func NewHandle(conn Conn, family Family, cfg HandleConfig) Handle {
	return Handle{
		conn:   conn,
		family: family,
		log:    cfg.Logger,
		policy: cfg.DecodePolicy,
	}
}

func (h Handle) Family() Family { return h.family }

func (h Handle) Channel() ChannelHandle   { return ChannelHandle{handle: h} }
func (h Handle) Pause() PauseHandle       { return PauseHandle{handle: h} }
func (h Handle) Feature() FeatureHandle   { return FeatureHandle{handle: h} }
func (h Handle) LinkMode() LinkModeHandle { return LinkModeHandle{handle: h} }
func (h Handle) Ring() RingHandle         { return RingHandle{handle: h} }
func (h Handle) Coalesce() CoalesceHandle { return CoalesceHandle{handle: h} }

// request is the state shared by every request builder.
type request struct {
	handle   Handle
	iface    string
	consumed bool
}

func newRequest(h Handle, iface string) request {
	return request{handle: h, iface: iface}
}

// run executes the message produced by build. An empty interface selects all
// interfaces and turns the request into a dump. A request runs at most once.
func (r *request) run(ctx context.Context, build func() Message) *Stream {
	msg := build()
	isDump := r.iface == ""
	if r.consumed {
		return r.handle.failedStream(msg.Cmd, isDump, &RequestError{Err: ErrRequestConsumed})
	}
	r.consumed = true
	return r.handle.execute(ctx, msg, isDump, true)
}
