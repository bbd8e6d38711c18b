package ethtool

import (
	"context"
	"time"

	"github.com/yiya1989/netlink/internal/observability"
	"github.com/yiya1989/netlink/internal/protocol/frame"
	"github.com/yiya1989/netlink/internal/protocol/schema"
)

// execute wraps msg in the generic netlink envelope, submits it and returns
// the reply stream. Dumps always ask for an ack as well; the kernel ends a dump
// with NLMSG_DONE and a single request with the ack, and both are consumed by
// the transport rather than surfaced here.
//
// Failures before submission come back as a stream with one RequestError.
func (h Handle) execute(ctx context.Context, msg Message, isDump, wantAck bool) *Stream {
	name := schema.RequestName(msg.Cmd)
	if err := schema.Validate(msg.Cmd, msg.kinds()); err != nil {
		observability.RecordRequest(name, isDump, false)
		return h.failedStream(msg.Cmd, isDump, &RequestError{Err: err})
	}

	flags := frame.RequestFlags(isDump, wantAck)
	env, err := frame.Wrap(h.family.ID, h.family.Version, msg.Cmd, msg.MarshalAttrs(), flags)
	if err != nil {
		observability.RecordRequest(name, isDump, false)
		return h.failedStream(msg.Cmd, isDump, &RequestError{Err: err})
	}

	h.log.Debug().
		Str("command", name).
		Bool("dump", isDump).
		Uint16("flags", uint16(flags)).
		Stringer("msg", msg).
		Msg("ethtool execute")

	raw, err := h.conn.Request(ctx, env)
	if err != nil {
		h.log.Warn().Err(err).Str("command", name).Msg("ethtool submit failed")
		observability.RecordRequest(name, isDump, false)
		return h.failedStream(msg.Cmd, isDump, &RequestError{Err: err})
	}
	observability.RecordRequest(name, isDump, true)
	return &Stream{
		handle:  h,
		cmd:     msg.Cmd,
		dump:    isDump,
		raw:     raw,
		started: time.Now(),
	}
}

func (h Handle) failedStream(cmd uint8, isDump bool, err error) *Stream {
	return &Stream{
		handle:  h,
		cmd:     cmd,
		dump:    isDump,
		failure: err,
		started: time.Now(),
	}
}
