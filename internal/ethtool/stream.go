package ethtool

import (
	"context"
	"errors"
	"io"
	"iter"
	"time"

	"github.com/mdlayher/netlink"

	"github.com/yiya1989/netlink/internal/observability"
	"github.com/yiya1989/netlink/internal/protocol/frame"
	"github.com/yiya1989/netlink/internal/protocol/schema"
)

// Stream is the lazy sequence of decoded replies to one request. Next returns
// io.EOF once the kernel has finished the request. A Stream is not safe for
// concurrent use.
type Stream struct {
	handle  Handle
	cmd     uint8
	dump    bool
	raw     RawStream
	failure error
	done    bool
	started time.Time
}

// Next returns the next reply. Per-reply errors are:
//   - *RequestError when the request never reached the kernel or the
//     transport failed, after which the stream ends;
//   - *ProtocolError for a kernel error reply;
//   - an nla decode error for a reply that could not be decoded, handled
//     according to the Handle's DecodePolicy.
//
// Context errors are returned as is and leave the stream open.
func (s *Stream) Next(ctx context.Context) (Message, error) {
	for {
		if s.done {
			return Message{}, io.EOF
		}
		if s.raw == nil {
			err := s.failure
			s.finish()
			return Message{}, err
		}

		nm, err := s.raw.Recv(ctx)
		if err != nil {
			return Message{}, s.recvError(err)
		}

		msg, err := s.decode(nm)
		if err == nil {
			observability.RecordReply(s.name(), observability.OutcomeDecoded)
			return msg, nil
		}
		switch s.handle.policy {
		case DecodeSkip:
			s.handle.log.Warn().Err(err).Str("command", s.name()).Msg("ethtool reply skipped")
			observability.RecordReply(s.name(), observability.OutcomeSkipped)
			continue
		case DecodeAbort:
			observability.RecordReply(s.name(), observability.OutcomeDecodeError)
			s.finish()
			return Message{}, err
		default:
			observability.RecordReply(s.name(), observability.OutcomeDecodeError)
			return Message{}, err
		}
	}
}

func (s *Stream) recvError(err error) error {
	switch {
	case errors.Is(err, io.EOF):
		s.finish()
		return io.EOF
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	var perr *ProtocolError
	if errors.As(err, &perr) {
		observability.RecordReply(s.name(), observability.OutcomeProtocolError)
		return err
	}
	observability.RecordReply(s.name(), observability.OutcomeTransport)
	s.handle.log.Warn().Err(err).Str("command", s.name()).Msg("ethtool transport failed")
	s.finish()
	return &RequestError{Err: err}
}

func (s *Stream) decode(nm netlink.Message) (Message, error) {
	gm, err := frame.Unwrap(nm, s.handle.family.ID)
	if err != nil {
		return Message{}, err
	}
	return ParseMessage(gm.Header.Command, gm.Data)
}

// All ranges over the remaining replies, closing the stream when the loop
// ends. Iteration stops after a context error.
func (s *Stream) All(ctx context.Context) iter.Seq2[Message, error] {
	return func(yield func(Message, error) bool) {
		defer s.Close()
		for {
			msg, err := s.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(msg, err) {
				return
			}
			if err != nil && ctx.Err() != nil {
				return
			}
		}
	}
}

// Collect drains the stream and stops at the first error, returning the
// replies decoded before it.
func (s *Stream) Collect(ctx context.Context) ([]Message, error) {
	var out []Message
	for msg, err := range s.All(ctx) {
		if err != nil {
			return out, err
		}
		out = append(out, msg)
	}
	return out, nil
}

// Close abandons the stream. Replies still in flight are discarded.
func (s *Stream) Close() error {
	if s.done {
		return nil
	}
	return s.finish()
}

func (s *Stream) finish() error {
	if s.done {
		return nil
	}
	s.done = true
	observability.RecordStream(s.name(), s.dump, time.Since(s.started))
	if s.raw == nil {
		return nil
	}
	return s.raw.Close()
}

func (s *Stream) name() string { return schema.RequestName(s.cmd) }
