//go:build linux

package netlinkmux

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

type sysSocket struct {
	fd  int
	pid uint32
}

func openSocket(cfg Config) (socket, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.NETLINK_GENERIC)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	s := &sysSocket{fd: fd}
	if err := s.setup(cfg); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return s, nil
}

func (s *sysSocket) setup(cfg Config) error {
	// Extended and capped acks are best effort; older kernels reject them.
	_ = unix.SetsockoptInt(s.fd, unix.SOL_NETLINK, unix.NETLINK_EXT_ACK, 1)
	_ = unix.SetsockoptInt(s.fd, unix.SOL_NETLINK, unix.NETLINK_CAP_ACK, 1)

	if err := unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_RCVBUF, cfg.RecvBufferBytes); err != nil {
		return os.NewSyscallError("setsockopt SO_RCVBUF", err)
	}
	tv := unix.NsecToTimeval(cfg.PollInterval.Nanoseconds())
	if err := unix.SetsockoptTimeval(s.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		return os.NewSyscallError("setsockopt SO_RCVTIMEO", err)
	}
	if err := unix.Bind(s.fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK}); err != nil {
		return os.NewSyscallError("bind", err)
	}
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return os.NewSyscallError("getsockname", err)
	}
	nl, ok := sa.(*unix.SockaddrNetlink)
	if !ok {
		return fmt.Errorf("netlinkmux: unexpected socket address %T", sa)
	}
	s.pid = nl.Pid

	for _, g := range cfg.Groups {
		if err := unix.SetsockoptInt(s.fd, unix.SOL_NETLINK, unix.NETLINK_ADD_MEMBERSHIP, int(g)); err != nil {
			return os.NewSyscallError(fmt.Sprintf("join group %d", g), err)
		}
	}
	return nil
}

func (s *sysSocket) Send(b []byte) error {
	err := unix.Sendto(s.fd, b, 0, &unix.SockaddrNetlink{Family: unix.AF_NETLINK})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.ENOBUFS), errors.Is(err, unix.EAGAIN):
		return fmt.Errorf("%w: %v", errSendBusy, err)
	default:
		return os.NewSyscallError("sendto", err)
	}
}

func (s *sysSocket) Receive(buf []byte) (int, error) {
	// MSG_TRUNC makes the peek report the full datagram length.
	n, _, err := unix.Recvfrom(s.fd, buf, unix.MSG_PEEK|unix.MSG_TRUNC)
	if err != nil {
		return 0, recvError(err)
	}
	if n > len(buf) {
		return n, nil
	}
	n, _, err = unix.Recvfrom(s.fd, buf, 0)
	if err != nil {
		return 0, recvError(err)
	}
	return n, nil
}

func recvError(err error) error {
	switch {
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK), errors.Is(err, unix.EINTR):
		return errPollTimeout
	case errors.Is(err, unix.ENOBUFS):
		return ErrOverrun
	default:
		return os.NewSyscallError("recvfrom", err)
	}
}

func (s *sysSocket) PID() uint32 { return s.pid }

func (s *sysSocket) Close() error {
	return unix.Close(s.fd)
}
