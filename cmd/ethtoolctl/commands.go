package main

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yiya1989/netlink/internal/config"
	"github.com/yiya1989/netlink/internal/ethtool"
	"github.com/yiya1989/netlink/internal/protocol/frame"
	"github.com/yiya1989/netlink/internal/server"
)

func (c *cli) channelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "Show or change queue channel counts",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get [iface]",
			Short: "Show channel counts of iface, or of every interface",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				h, _, closeFn, err := c.connect(false)
				if err != nil {
					return err
				}
				defer closeFn()
				s := h.Channel().Get(ifaceArg(args)).Execute(context.Background())
				return printStream(cmd.OutOrStdout(), s, asView(ethtool.ChannelsFromMessage))
			},
		},
		&cobra.Command{
			Use:   "set <iface> <combined>",
			Short: "Set the combined channel count of iface",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				combined, err := strconv.ParseUint(args[1], 10, 32)
				if err != nil {
					return fmt.Errorf("invalid combined count %q: %w", args[1], err)
				}
				h, _, closeFn, err := c.connect(false)
				if err != nil {
					return err
				}
				defer closeFn()
				s := h.Channel().Set(args[0], uint32(combined)).Execute(context.Background())
				if err := printStream(cmd.OutOrStdout(), s, asView(ethtool.Message.String)); err != nil {
					return err
				}
				log.Info().Str("iface", args[0]).Uint64("combined", combined).Msg("channels updated")
				return nil
			},
		},
	)
	return cmd
}

func (c *cli) getCommand(name, short string, exec func(ethtool.Handle, string) *ethtool.Stream, view func(ethtool.Message) any) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get [iface]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, _, closeFn, err := c.connect(false)
			if err != nil {
				return err
			}
			defer closeFn()
			return printStream(cmd.OutOrStdout(), exec(h, ifaceArg(args)), view)
		},
	})
	return cmd
}

func (c *cli) monitorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Print ethtool change notifications until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, notify, closeFn, err := c.connect(true)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			out := cmd.OutOrStdout()
			for {
				select {
				case <-ctx.Done():
					return nil
				case m := <-notify:
					gm, err := frame.Unwrap(m, h.Family().ID)
					if err != nil {
						log.Debug().Err(err).Msg("ignoring foreign notification")
						continue
					}
					msg, err := ethtool.ParseMessage(gm.Header.Command, gm.Data)
					if err != nil {
						log.Warn().Err(err).Uint8("command", gm.Header.Command).Msg("undecodable notification")
						continue
					}
					fmt.Fprintln(out, msg.String())
				}
			}
		},
	}
}

func (c *cli) serveCommand() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, _, closeFn, err := c.connect(false)
			if err != nil {
				return err
			}
			defer closeFn()
			addr := c.cfg.ListenAddr
			if listen != "" {
				addr = listen
			}
			return server.New(addr, h, c.cfg.CorsOrigins).Serve()
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides listen_addr)")
	return cmd
}

func configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write or check config.toml",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write a config template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteTemplate(args[0], force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote config template to %s\n", args[0])
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	validateCmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Strictly validate a config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "validated config at %s\n", args[0])
			return nil
		},
	}
	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}
