package netlinkmux

import (
	"context"
	"io"
	"sync"

	"github.com/mdlayher/netlink"

	"github.com/yiya1989/netlink/internal/protocol/frame"
)

type reply struct {
	msg netlink.Message
	err error
}

// Stream is the reply queue of one request. Recv returns io.EOF once the
// request is complete: on the ack, on NLMSG_DONE, or after the only reply of
// a request that asked for neither. A stream that failed returns its error
// after the replies queued before the failure, then io.EOF.
type Stream struct {
	conn  *Conn
	seq   uint32
	dump  bool
	ack   bool
	limit int

	mu      sync.Mutex
	queue   []reply
	ended   bool
	failErr error

	wake chan struct{}
	done chan struct{}
	once sync.Once
}

func newStream(c *Conn, seq uint32, flags netlink.HeaderFlags, limit int) *Stream {
	return &Stream{
		conn:  c,
		seq:   seq,
		dump:  flags&netlink.Dump == netlink.Dump,
		ack:   flags&netlink.Acknowledge != 0,
		limit: limit,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

func (s *Stream) Sequence() uint32 { return s.seq }

func (s *Stream) Recv(ctx context.Context) (netlink.Message, error) {
	for {
		select {
		case <-s.done:
			return netlink.Message{}, ErrStreamClosed
		default:
		}

		s.mu.Lock()
		if len(s.queue) > 0 {
			r := s.queue[0]
			s.queue[0] = reply{}
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return r.msg, r.err
		}
		if s.ended {
			err := s.failErr
			s.failErr = nil
			s.mu.Unlock()
			if err != nil {
				return netlink.Message{}, err
			}
			return netlink.Message{}, io.EOF
		}
		s.mu.Unlock()

		select {
		case <-s.wake:
		case <-s.done:
			return netlink.Message{}, ErrStreamClosed
		case <-ctx.Done():
			return netlink.Message{}, ctx.Err()
		}
	}
}

// Close unregisters the stream. Replies that arrive later are discarded.
func (s *Stream) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.conn.remove(s.seq)
	})
	return nil
}

// classify turns one routed message into an optional stream item and reports
// whether it ends the stream.
func (s *Stream) classify(m netlink.Message) (*reply, bool) {
	switch m.Header.Type {
	case netlink.Error:
		perr, err := frame.ParseError(m)
		if err != nil {
			return &reply{err: err}, true
		}
		if perr == nil {
			return nil, true
		}
		return &reply{err: perr}, true
	case netlink.Done:
		if perr := frame.ParseDone(m); perr != nil {
			return &reply{err: perr}, true
		}
		return nil, true
	case netlink.Noop:
		return nil, false
	case netlink.Overrun:
		return &reply{err: ErrOverrun}, true
	default:
		end := !s.dump && !s.ack && m.Header.Flags&netlink.Multi == 0
		return &reply{msg: m}, end
	}
}

// deliver queues r and, when end is set, completes the stream. It never
// blocks; a stream holding limit unread replies fails with ErrQueueFull and
// deliver reports false so the caller unregisters it.
func (s *Stream) deliver(r *reply, end bool) bool {
	s.mu.Lock()
	defer s.signal()
	defer s.mu.Unlock()
	if s.ended {
		return false
	}
	if r != nil {
		if len(s.queue) >= s.limit {
			s.ended = true
			s.failErr = ErrQueueFull
			return false
		}
		s.queue = append(s.queue, *r)
	}
	if end {
		s.ended = true
	}
	return true
}

// fail ends the stream with err unless it already ended.
func (s *Stream) fail(err error) {
	s.mu.Lock()
	if !s.ended {
		s.ended = true
		s.failErr = err
	}
	s.mu.Unlock()
	s.signal()
}

func (s *Stream) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
