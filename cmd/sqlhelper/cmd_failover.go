package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dronm/sqlhelper"
	"github.com/dronm/sqlhelper/metrics"
)

// newFailoverCmd creates the failover subcommand
func newFailoverCmd() *cobra.Command {
	var failback bool

	cmd := &cobra.Command{
		Use:   "failover",
		Short: "Switch to the secondary server and report its health",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			_, m, err := connect(ctx)
			if err != nil {
				return err
			}
			defer m.Close()

			if !m.HasSecondary() {
				return errors.New("no [secondary] configured")
			}
			m.Failover(ctx)
			fmt.Printf("active: %s connected: %t\n", m.Active(), m.IsConnected(ctx))

			if failback {
				if err := m.Failback(ctx); err != nil {
					return err
				}
				fmt.Printf("active: %s connected: %t\n", m.Active(), m.IsConnected(ctx))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&failback, "failback", false, "fail back to the primary afterwards")
	return cmd
}

// newWatchCmd creates the watch subcommand
func newWatchCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Probe periodically, failing over and back as the primary comes and goes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cfg, m, err := connect(ctx)
			if err != nil {
				return err
			}
			defer m.Close()

			if cfg.Metrics.Listen != "" {
				every, err := cfg.GetMetricsInterval()
				if err != nil {
					return err
				}
				m.StartPoolMetrics(ctx, every)
				srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: metrics.Handler()}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Error().Err(err).Str("listen", cfg.Metrics.Listen).Msg("metrics server stopped")
					}
				}()
				defer srv.Close()
			}

			primary := sqlhelper.New(m.Endpoint(), sqlhelper.WithDriver(m.DriverName()), sqlhelper.WithLogger(log.Logger))
			if err := primary.ConnectWithOptions(ctx, cfg.PoolOptions()); err != nil {
				return err
			}
			defer primary.Disconnect()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}

				up := primary.IsConnected(ctx)
				switch {
				case !up && m.Active() == sqlhelper.TargetPrimary:
					m.Failover(ctx)
				case up && m.Active() == sqlhelper.TargetSecondary:
					if err := m.Failback(ctx); err != nil {
						log.Error().Err(err).Msg("failback failed")
					}
				}
				log.Debug().Bool("primary_up", up).Str("active", m.Active().String()).Msg("probe")
			}
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "probe interval")
	return cmd
}
