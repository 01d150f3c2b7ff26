// Package config loads manager settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/dronm/sqlhelper"
	"github.com/dronm/sqlhelper/notify"
)

// Notifier selects and configures the failover notification sink.
type Notifier struct {
	Kind    string `toml:"kind"` // "http", "nats", "log" or "none"
	URL     string `toml:"url"`
	Token   string `toml:"token"`
	Subject string `toml:"subject"`
	Timeout string `toml:"timeout"`
}

// Metrics configures the Prometheus listener.
type Metrics struct {
	Listen   string `toml:"listen"`
	Interval string `toml:"interval"`
}

// Config is the top level of the configuration file.
type Config struct {
	Driver        string              `toml:"driver"`
	Source        string              `toml:"source"`
	ProbeTimeout  string              `toml:"probe_timeout"`
	NotifyTimeout string              `toml:"notify_timeout"`
	Primary       sqlhelper.Endpoint  `toml:"primary"`
	Secondary     *sqlhelper.Endpoint `toml:"secondary"`
	Options       map[string]any      `toml:"options"`
	Notifier      Notifier            `toml:"notifier"`
	Metrics       Metrics             `toml:"metrics"`
}

// Default returns a configuration with the default driver and no
// notification sink.
func Default() *Config {
	return &Config{
		Driver:        sqlhelper.DefaultDriver,
		ProbeTimeout:  "1s",
		NotifyTimeout: "5s",
		Notifier:      Notifier{Kind: "none"},
		Metrics:       Metrics{Interval: "15s"},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config keys in %s: %v", path, undecoded)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseDuration(name, v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	return d, nil
}

func (c *Config) GetProbeTimeout() (time.Duration, error) {
	return parseDuration("probe_timeout", c.ProbeTimeout)
}

func (c *Config) GetNotifyTimeout() (time.Duration, error) {
	return parseDuration("notify_timeout", c.NotifyTimeout)
}

func (c *Config) GetMetricsInterval() (time.Duration, error) {
	return parseDuration("metrics.interval", c.Metrics.Interval)
}

// Validate checks the driver name, the durations, the option values and
// the notifier.
func (c *Config) Validate() error {
	var errs []error
	if c.Driver == "" {
		errs = append(errs, errors.New("driver is required"))
	} else if !slices.Contains(sqlhelper.Drivers(), c.Driver) {
		errs = append(errs, fmt.Errorf("driver %q is not registered (known: %v)", c.Driver, sqlhelper.Drivers()))
	}
	for _, get := range []func() (time.Duration, error){c.GetProbeTimeout, c.GetNotifyTimeout, c.GetMetricsInterval} {
		if _, err := get(); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := parseDuration("notifier.timeout", c.Notifier.Timeout); err != nil {
		errs = append(errs, err)
	}
	for k, v := range c.Options {
		switch v.(type) {
		case string, bool, int64, float64:
		default:
			errs = append(errs, fmt.Errorf("options.%s: expected a string, boolean or number, got %T", k, v))
		}
	}
	switch c.Notifier.Kind {
	case "", "none", "log":
	case "http":
		if c.Notifier.URL == "" {
			errs = append(errs, errors.New("notifier.url is required for http notifier"))
		}
	case "nats":
		if c.Notifier.URL == "" || c.Notifier.Subject == "" {
			errs = append(errs, errors.New("notifier.url and notifier.subject are required for nats notifier"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown notifier kind %q", c.Notifier.Kind))
	}
	return errors.Join(errs...)
}

// BuildNotifier creates the configured notification sink.
func (c *Config) BuildNotifier(log zerolog.Logger) (sqlhelper.Notifier, error) {
	timeout, err := parseDuration("notifier.timeout", c.Notifier.Timeout)
	if err != nil {
		return nil, err
	}
	switch c.Notifier.Kind {
	case "http":
		return notify.NewHTTP(c.Notifier.URL, c.Notifier.Token, timeout), nil
	case "nats":
		n, err := notify.NewNATS(c.Notifier.URL, c.Notifier.Token, c.Notifier.Subject)
		if err != nil {
			return nil, err
		}
		return n, nil
	case "log":
		return notify.Log{Logger: log}, nil
	default:
		return sqlhelper.NopNotifier{}, nil
	}
}

// Manager builds a disconnected Manager for the primary endpoint with the
// configured driver, source, timeouts and notifier.
func (c *Config) Manager(log zerolog.Logger) (*sqlhelper.Manager, error) {
	n, err := c.BuildNotifier(log)
	if err != nil {
		return nil, err
	}
	probe, err := c.GetProbeTimeout()
	if err != nil {
		return nil, err
	}
	notifyTimeout, err := c.GetNotifyTimeout()
	if err != nil {
		return nil, err
	}
	return sqlhelper.New(c.Primary,
		sqlhelper.WithDriver(c.Driver),
		sqlhelper.WithSource(c.Source),
		sqlhelper.WithLogger(log),
		sqlhelper.WithNotifier(n),
		sqlhelper.WithProbeTimeout(probe),
		sqlhelper.WithNotifyTimeout(notifyTimeout),
	), nil
}

// PoolOptions returns the [options] table as pool properties. Booleans
// and numbers are written out in their TOML form.
func (c *Config) PoolOptions() sqlhelper.Options {
	if len(c.Options) == 0 {
		return nil
	}
	opts := make(sqlhelper.Options, len(c.Options))
	for k, v := range c.Options {
		opts[k] = fmt.Sprint(v)
	}
	return opts
}
