package ethtool

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mdlayher/genetlink"
	"github.com/mdlayher/netlink"

	"github.com/yiya1989/netlink/internal/netlinkmux"
	"github.com/yiya1989/netlink/internal/protocol/schema"
)

type ConnectionConfig struct {
	Mux    netlinkmux.Config
	Handle HandleConfig
	// Monitor joins the ethtool monitor group so notifications reach the
	// returned channel.
	Monitor bool
}

func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		Mux:    netlinkmux.DefaultConfig(),
		Handle: DefaultHandleConfig(),
	}
}

// NewConnection resolves the ethtool family and opens a multiplexed socket
// for it. The caller must run conn.Run for replies to be delivered and close
// conn when done.
func NewConnection(cfg ConnectionConfig) (*netlinkmux.Conn, Handle, <-chan netlink.Message, error) {
	family, groups, err := resolveFamily()
	if err != nil {
		return nil, Handle{}, nil, err
	}
	if cfg.Monitor {
		for _, g := range groups {
			if g.Name == schema.MonitorGroup {
				cfg.Mux.Groups = append(cfg.Mux.Groups, g.ID)
			}
		}
	}
	mux, err := netlinkmux.Dial(cfg.Mux)
	if err != nil {
		return nil, Handle{}, nil, fmt.Errorf("ethtool: open socket: %w", err)
	}
	cfg.Handle.Logger.Debug().
		Uint16("family", family.ID).
		Uint8("version", family.Version).
		Bool("monitor", cfg.Monitor).
		Msg("ethtool connection open")
	return mux, NewHandle(MuxConn(mux), family, cfg.Handle), mux.Notifications(), nil
}

func resolveFamily() (Family, []genetlink.MulticastGroup, error) {
	c, err := genetlink.Dial(nil)
	if err != nil {
		return Family{}, nil, fmt.Errorf("ethtool: dial generic netlink: %w", err)
	}
	defer c.Close()

	f, err := c.GetFamily(schema.FamilyName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Family{}, nil, fmt.Errorf("ethtool: kernel has no %q netlink family: %w", schema.FamilyName, err)
		}
		return Family{}, nil, fmt.Errorf("ethtool: resolve family: %w", err)
	}
	return Family{ID: f.ID, Version: f.Version}, f.Groups, nil
}

// MuxConn adapts a netlinkmux connection to Conn.
func MuxConn(mux *netlinkmux.Conn) Conn {
	return muxConn{mux: mux}
}

type muxConn struct {
	mux *netlinkmux.Conn
}

func (c muxConn) Request(ctx context.Context, m netlink.Message) (RawStream, error) {
	s, err := c.mux.Request(ctx, m)
	if err != nil {
		return nil, err
	}
	return s, nil
}
