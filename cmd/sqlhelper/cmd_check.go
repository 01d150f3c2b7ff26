package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dronm/sqlhelper"
	"github.com/dronm/sqlhelper/config"
)

// newCheckCmd creates the check subcommand
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Connect and probe the configured servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cfg, m, err := connect(ctx)
			if err != nil {
				return err
			}
			defer m.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "url:       %s\n", m.URL())
			fmt.Fprintf(out, "connected: %t\n", m.IsConnected(ctx))
			if s, ok := m.Stats(); ok {
				fmt.Fprintf(out, "pool:      %d/%d open, %d in use, %d idle\n", s.Open, s.MaxOpen, s.InUse, s.Idle)
			}
			if cfg.Secondary != nil {
				fmt.Fprintf(out, "secondary: %t\n", checkSecondary(ctx, cfg))
			}
			return nil
		},
	}
}

// checkSecondary opens its own pool to the secondary so the main manager
// never switches targets and the notifier stays quiet.
func checkSecondary(ctx context.Context, cfg *config.Config) bool {
	s := sqlhelper.New(*cfg.Secondary,
		sqlhelper.WithDriver(cfg.Driver),
		sqlhelper.WithSource(cfg.Source),
		sqlhelper.WithLogger(log.Logger),
	)
	if err := s.ConnectWithOptions(ctx, cfg.PoolOptions()); err != nil {
		log.Warn().Err(err).Str("url", s.URL()).Msg("secondary unreachable")
		return false
	}
	defer s.Disconnect()
	return s.IsConnected(ctx)
}
