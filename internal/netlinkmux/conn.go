package netlinkmux

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mdlayher/netlink"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/yiya1989/netlink/internal/protocol/frame"
)

var (
	ErrClosed       = errors.New("netlinkmux: connection closed")
	ErrStreamClosed = errors.New("netlinkmux: stream closed")
	ErrOverrun      = errors.New("netlinkmux: receive buffer overrun")
	ErrQueueFull    = errors.New("netlinkmux: reply queue full")
	ErrMalformed    = errors.New("netlinkmux: malformed reply")
)

// errSendBusy is returned by socket.Send when the kernel is out of buffer
// space and the send may be retried.
var errSendBusy = errors.New("netlinkmux: socket busy")

// errPollTimeout is returned by socket.Receive when the poll interval passes
// without a datagram.
var errPollTimeout = errors.New("netlinkmux: poll timeout")

// socket is the datagram transport under Conn. Receive reads one datagram
// into buf; a datagram larger than buf stays queued and its full length is
// returned so the caller can grow buf and read again.
type socket interface {
	Send(b []byte) error
	Receive(buf []byte) (int, error)
	PID() uint32
	Close() error
}

// Conn routes replies to the request that caused them by sequence number.
// Messages that match no request and were not addressed to this socket, such
// as multicast notifications, go to the Notifications channel.
type Conn struct {
	sock socket
	cfg  Config
	log  zerolog.Logger

	seq    atomic.Uint32
	closed atomic.Bool

	mu      sync.Mutex
	pending map[uint32]*Stream

	notify chan netlink.Message
}

// Dial opens a NETLINK_GENERIC socket. The caller must drive Run.
func Dial(cfg Config) (*Conn, error) {
	cfg = cfg.WithDefaults()
	sock, err := openSocket(cfg)
	if err != nil {
		return nil, err
	}
	return newConn(sock, cfg), nil
}

func newConn(sock socket, cfg Config) *Conn {
	cfg = cfg.WithDefaults()
	return &Conn{
		sock:    sock,
		cfg:     cfg,
		log:     cfg.Logger,
		pending: make(map[uint32]*Stream),
		notify:  make(chan netlink.Message, cfg.NotifyQueueDepth),
	}
}

// Notifications delivers unsolicited messages. It is never closed; messages
// are dropped while it is full.
func (c *Conn) Notifications() <-chan netlink.Message { return c.notify }

func (c *Conn) nextSeq() uint32 {
	for {
		if s := c.seq.Inc(); s != 0 {
			return s
		}
	}
}

// Request assigns m a sequence number, registers its stream and sends it.
func (c *Conn) Request(ctx context.Context, m netlink.Message) (*Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seq := c.nextSeq()
	m.Header.Sequence = seq
	b, err := frame.Encode(m)
	if err != nil {
		return nil, err
	}

	s := newStream(c, seq, m.Header.Flags, c.cfg.ReplyQueueDepth)
	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[seq] = s
	c.mu.Unlock()

	if err := c.send(ctx, b); err != nil {
		c.remove(seq)
		return nil, fmt.Errorf("netlinkmux: send: %w", err)
	}
	c.log.Debug().Uint32("seq", seq).Uint16("flags", uint16(m.Header.Flags)).Int("bytes", len(b)).Msg("netlinkmux sent")
	return s, nil
}

func (c *Conn) send(ctx context.Context, b []byte) error {
	bo := c.cfg.SendBackoff
	for attempt := 1; ; attempt++ {
		err := c.sock.Send(b)
		if err == nil || !errors.Is(err, errSendBusy) || attempt >= bo.Attempts {
			return err
		}
		delay := bo.Delay(attempt)
		c.log.Debug().Int("attempt", attempt).Dur("delay", delay).Msg("netlinkmux send busy, retrying")
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Run reads the socket until ctx is done or the Conn is closed. Every pending
// stream is failed when Run returns.
func (c *Conn) Run(ctx context.Context) error {
	buf := make([]byte, c.cfg.RecvBufferBytes)
	for {
		if err := ctx.Err(); err != nil {
			c.failAll(err)
			return err
		}
		if c.closed.Load() {
			c.failAll(ErrClosed)
			return nil
		}

		n, err := c.sock.Receive(buf)
		if errors.Is(err, errPollTimeout) {
			continue
		}
		if errors.Is(err, ErrOverrun) {
			// Replies may have been lost; no pending stream can be trusted.
			c.failPending(ErrOverrun, false)
			continue
		}
		if err != nil {
			if c.closed.Load() {
				c.failAll(ErrClosed)
				return nil
			}
			err = fmt.Errorf("netlinkmux: receive: %w", err)
			c.failAll(err)
			return err
		}

		if n > len(buf) {
			c.log.Debug().Int("datagram", n).Int("buffer", len(buf)).Msg("netlinkmux growing receive buffer")
			buf = make([]byte, frame.Align(n))
			continue
		}

		msgs, err := frame.Split(buf[:n])
		for _, m := range msgs {
			c.route(m)
		}
		if err != nil {
			c.dropMalformed(err, n)
		}
	}
}

// Close closes the socket. A running Run loop fails pending streams with
// ErrClosed.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.sock.Close()
}

func (c *Conn) route(m netlink.Message) {
	seq := m.Header.Sequence
	c.mu.Lock()
	s, ok := c.pending[seq]
	c.mu.Unlock()
	if !ok {
		if seq != 0 && m.Header.PID == c.sock.PID() {
			c.log.Debug().Uint32("seq", seq).Msg("netlinkmux discarded late reply")
			return
		}
		c.publish(m)
		return
	}

	item, end := s.classify(m)
	if !s.deliver(item, end) {
		c.remove(seq)
		c.log.Warn().Uint32("seq", seq).Int("limit", c.cfg.ReplyQueueDepth).Msg("netlinkmux reader too slow, stream failed")
		return
	}
	if end {
		c.remove(seq)
	}
}

// dropMalformed fails the stream that owned the unparseable tail of a
// datagram, when its header names one.
func (c *Conn) dropMalformed(err error, n int) {
	ev := c.log.Warn().Err(err).Int("bytes", n)
	var serr *frame.SplitError
	if errors.As(err, &serr) && serr.HasHeader {
		c.mu.Lock()
		s, ok := c.pending[serr.Sequence]
		delete(c.pending, serr.Sequence)
		c.mu.Unlock()
		if ok {
			s.fail(fmt.Errorf("%w: %w", ErrMalformed, err))
			ev = ev.Uint32("seq", serr.Sequence)
		}
	}
	ev.Msg("netlinkmux dropped malformed datagram")
}

func (c *Conn) publish(m netlink.Message) {
	select {
	case c.notify <- m:
	default:
		c.log.Warn().Uint16("type", uint16(m.Header.Type)).Msg("netlinkmux notification dropped")
	}
}

func (c *Conn) remove(seq uint32) {
	c.mu.Lock()
	delete(c.pending, seq)
	c.mu.Unlock()
}

func (c *Conn) failAll(err error) {
	c.failPending(err, true)
}

func (c *Conn) failPending(err error, closing bool) {
	c.mu.Lock()
	if closing {
		c.closed.Store(true)
	}
	pending := c.pending
	c.pending = make(map[uint32]*Stream)
	c.mu.Unlock()

	for _, s := range pending {
		s.fail(err)
	}
	if len(pending) > 0 {
		c.log.Warn().Err(err).Int("streams", len(pending)).Msg("netlinkmux failed pending streams")
	}
}
