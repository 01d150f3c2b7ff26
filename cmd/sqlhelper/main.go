package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dronm/sqlhelper"
	"github.com/dronm/sqlhelper/config"
	_ "github.com/dronm/sqlhelper/pgds"
	_ "github.com/dronm/sqlhelper/sqlds"
	_ "github.com/dronm/sqlhelper/sqliteds"
)

var (
	// Version info (set by ldflags)
	version = "dev"

	// Flags
	configPath string
	debug      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sqlhelper",
		Short: "Pooled SQL connections with primary/secondary failover",
		Long: `sqlhelper connects to the primary server described in a TOML file,
runs parameterized statements and can switch to a secondary server.

  sqlhelper check                      Probe the primary (and secondary)
  sqlhelper exec  "<sql>" [args...]    Run an update or DDL statement
  sqlhelper query "<sql>" [args...]    Run a query and print the rows
  sqlhelper failover [--failback]      Switch to the secondary and back
  sqlhelper watch                      Fail over automatically while running`,
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "sqlhelper.toml", "config file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newCheckCmd(),
		newExecCmd(),
		newQueryCmd(),
		newFailoverCmd(),
		newWatchCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	zerolog.TimeFieldFormat = time.RFC3339
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// connect loads the configuration and opens the primary pool, and the
// secondary pool when one is configured. The caller must Close the
// manager, which also releases the notifier.
func connect(ctx context.Context) (*config.Config, *sqlhelper.Manager, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	m, err := cfg.Manager(log.Logger)
	if err != nil {
		return nil, nil, err
	}
	if err := m.ConnectWithOptions(ctx, cfg.PoolOptions()); err != nil {
		m.Close()
		return nil, nil, err
	}
	if cfg.Secondary != nil {
		if err := m.RegisterSecondary(ctx, *cfg.Secondary); err != nil {
			m.Close()
			return nil, nil, err
		}
	}
	return cfg, m, nil
}

// toArgs passes command line values through as strings; the driver
// converts them to the column types.
func toArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
