//go:build !linux

package netlinkmux

import (
	"errors"
	"fmt"
	"runtime"
)

func openSocket(Config) (socket, error) {
	return nil, fmt.Errorf("netlinkmux: netlink on %s: %w", runtime.GOOS, errors.ErrUnsupported)
}
