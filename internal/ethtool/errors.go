package ethtool

import (
	"errors"

	"github.com/yiya1989/netlink/internal/protocol/frame"
)

var (
	ErrRequestFailed      = errors.New("ethtool: request failed")
	ErrRequestConsumed    = errors.New("ethtool: request already executed")
	ErrUnsupportedCommand = errors.New("ethtool: unsupported reply command")
)

// ProtocolError is an error status returned by the kernel for a request.
type ProtocolError = frame.ProtocolError

// RequestError reports that a request could not be submitted or that the
// transport failed while its replies were streaming.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	return ErrRequestFailed.Error() + ": " + e.Err.Error()
}

func (e *RequestError) Unwrap() error { return e.Err }

func (e *RequestError) Is(target error) bool { return target == ErrRequestFailed }
