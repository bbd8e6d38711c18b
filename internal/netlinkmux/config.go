package netlinkmux

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultRecvBufferBytes  = 32 * 1024
	defaultReplyQueueDepth  = 1024
	defaultNotifyQueueDepth = 256
	defaultPollInterval     = 200 * time.Millisecond
)

type Config struct {
	// RecvBufferBytes sizes SO_RCVBUF and the initial read buffer, which
	// grows to fit larger datagrams.
	RecvBufferBytes int
	// ReplyQueueDepth caps the replies held unread for one request. A request
	// whose reader falls further behind fails with ErrQueueFull.
	ReplyQueueDepth  int
	NotifyQueueDepth int
	// PollInterval bounds how long Run blocks in a read before it checks for
	// cancellation.
	PollInterval time.Duration
	// Groups are multicast group IDs joined at dial time.
	Groups []uint32
	// SendBackoff paces retries of sends the kernel refused for lack of
	// buffer space.
	SendBackoff Backoff
	Logger      zerolog.Logger
}

func DefaultConfig() Config {
	return Config{
		RecvBufferBytes:  defaultRecvBufferBytes,
		ReplyQueueDepth:  defaultReplyQueueDepth,
		NotifyQueueDepth: defaultNotifyQueueDepth,
		PollInterval:     defaultPollInterval,
		SendBackoff:      DefaultBackoff(),
		Logger:           log.Logger.With().Str("component", "netlinkmux").Logger(),
	}
}

// WithDefaults fills zero sizes and intervals from DefaultConfig. The
// logger is taken as is.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.RecvBufferBytes <= 0 {
		c.RecvBufferBytes = d.RecvBufferBytes
	}
	if c.ReplyQueueDepth <= 0 {
		c.ReplyQueueDepth = d.ReplyQueueDepth
	}
	if c.NotifyQueueDepth <= 0 {
		c.NotifyQueueDepth = d.NotifyQueueDepth
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.SendBackoff.Attempts <= 0 {
		c.SendBackoff = d.SendBackoff
	}
	return c
}
