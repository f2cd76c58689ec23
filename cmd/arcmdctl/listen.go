package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newListenCmd(opts *rootOptions) *cobra.Command {
	var addr, network string
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Connect to a device and log decoded commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Transport.Addr = addr
			}
			if network != "" {
				cfg.Transport.Network = network
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			conn, err := dial(ctx, cfg.Transport)
			if err != nil {
				return err
			}
			l, err := buildLink(cfg, conn)
			if err != nil {
				_ = conn.Close()
				return err
			}
			defer l.close()

			l.tracker.OnChange(func() {
				for _, line := range l.tracker.Lines(1) {
					log.Debug().Msg(line)
				}
			})
			err = l.run(ctx)
			log.Info().
				Uint64("decode_errors", l.tracker.Errors()).
				Int("commands_seen", len(l.tracker.Entries())).
				Msg("link closed")
			if ctx.Err() != nil && err == nil {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "device address, overrides config")
	cmd.Flags().StringVar(&network, "network", "", "udp|tcp, overrides config")
	return cmd
}
