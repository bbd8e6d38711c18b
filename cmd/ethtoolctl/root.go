package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/mdlayher/netlink"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yiya1989/netlink/internal/config"
	"github.com/yiya1989/netlink/internal/ethtool"
	"github.com/yiya1989/netlink/internal/logging"
	"github.com/yiya1989/netlink/internal/netlinkmux"
)

type cli struct {
	configPath string
	cfg        config.Config
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "ethtoolctl",
		Short:         "Query and tune network devices over ethtool netlink",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.ConfigureRuntime()
			cfg, err := loadRuntimeConfig(c.configPath)
			if err != nil {
				return err
			}
			logging.OverrideLevel(cfg.LogLevel)
			c.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to config.toml")

	root.AddCommand(
		c.channelsCommand(),
		c.getCommand("pause", "Show pause (flow control) settings", func(h ethtool.Handle, iface string) *ethtool.Stream {
			return h.Pause().Get(iface).Execute(context.Background())
		}, asView(ethtool.PauseFromMessage)),
		c.getCommand("rings", "Show ring buffer sizes", func(h ethtool.Handle, iface string) *ethtool.Stream {
			return h.Ring().Get(iface).Execute(context.Background())
		}, asView(ethtool.RingsFromMessage)),
		c.getCommand("coalesce", "Show interrupt coalescing settings", func(h ethtool.Handle, iface string) *ethtool.Stream {
			return h.Coalesce().Get(iface).Execute(context.Background())
		}, asView(ethtool.Message.String)),
		c.getCommand("features", "Show offload features", func(h ethtool.Handle, iface string) *ethtool.Stream {
			return h.Feature().Get(iface).Execute(context.Background())
		}, asView(ethtool.FeaturesFromMessage)),
		c.getCommand("linkmodes", "Show link modes, speed and duplex", func(h ethtool.Handle, iface string) *ethtool.Stream {
			return h.LinkMode().Get(iface).Execute(context.Background())
		}, asView(ethtool.LinkModesFromMessage)),
		c.monitorCommand(),
		c.serveCommand(),
		configCommand(),
	)
	return root
}

func asView[T any](view func(ethtool.Message) T) func(ethtool.Message) any {
	return func(m ethtool.Message) any { return view(m) }
}

// connect opens the netlink connection and runs its reader until the
// returned close function is called.
func (c *cli) connect(monitor bool) (ethtool.Handle, <-chan netlink.Message, func(), error) {
	cc := c.cfg.ConnectionConfig()
	cc.Monitor = cc.Monitor || monitor
	mux, h, notify, err := ethtool.NewConnection(cc)
	if err != nil {
		return ethtool.Handle{}, nil, nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mux.Run(ctx) }()
	closeFn := func() {
		_ = mux.Close()
		cancel()
		if err := <-done; err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, netlinkmux.ErrClosed) {
			log.Warn().Err(err).Msg("netlink reader stopped")
		}
	}
	return h, notify, closeFn, nil
}

// printStream writes one JSON document per reply and returns the first error
// after draining the stream.
func printStream(out io.Writer, s *ethtool.Stream, view func(ethtool.Message) any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var first error
	for msg, err := range s.All(ctx) {
		if err != nil {
			log.Error().Err(err).Msg("reply failed")
			if first == nil {
				first = err
			}
			continue
		}
		if err := enc.Encode(view(msg)); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	return first
}

func ifaceArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
