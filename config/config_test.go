package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dronm/sqlhelper"
	"github.com/dronm/sqlhelper/notify"
	_ "github.com/dronm/sqlhelper/sqlds"
	_ "github.com/dronm/sqlhelper/sqliteds"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sqlhelper.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
driver = "mysql"
source = "billing-1"
probe_timeout = "2s"

[primary]
host = "db1"
port = "3306"
database = "orders"
username = "app"
password = "secret"

[secondary]
host = "db2"
port = "3306"
database = "orders"

[options]
maximumPoolSize = "10"
useServerPrepStmts = "false"

[notifier]
kind = "http"
url = "https://hooks.example.com/failover"
token = "t0ken"
timeout = "3s"

[metrics]
listen = ":9108"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "billing-1", cfg.Source)
	assert.Equal(t, sqlhelper.Endpoint{Host: "db1", Port: "3306", Database: "orders", Username: "app", Password: "secret"}, cfg.Primary)
	require.NotNil(t, cfg.Secondary)
	assert.Equal(t, "db2", cfg.Secondary.Host)
	assert.Equal(t, sqlhelper.Options{"maximumPoolSize": "10", "useServerPrepStmts": "false"}, cfg.PoolOptions())

	probe, err := cfg.GetProbeTimeout()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, probe)

	notifyTimeout, err := cfg.GetNotifyTimeout()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, notifyTimeout, "default kept")

	interval, err := cfg.GetMetricsInterval()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, interval)

	n, err := cfg.BuildNotifier(zerolog.Nop())
	require.NoError(t, err)
	hn, ok := n.(*notify.HTTPNotifier)
	require.True(t, ok)
	assert.Equal(t, "https://hooks.example.com/failover", hn.URL)
	assert.Equal(t, 3*time.Second, hn.Client.Timeout)

	m, err := cfg.Manager(zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "mysql://db1:3306/orders", m.URL())
	assert.Equal(t, sqlhelper.TargetNone, m.Active())
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
[primary]
host = "db1"
port = "3306"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, sqlhelper.DefaultDriver, cfg.Driver)
	assert.Nil(t, cfg.Secondary)
	assert.Nil(t, cfg.PoolOptions())

	n, err := cfg.BuildNotifier(zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, sqlhelper.NopNotifier{}, n)
}

func TestLoadTypedOptions(t *testing.T) {
	path := writeConfig(t, `
[primary]
host = "db1"

[options]
cachePrepStmts = false
prepStmtCacheSize = 500
maximumPoolSize = 10
connectTimeout = 2.5
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, sqlhelper.Options{
		"cachePrepStmts":    "false",
		"prepStmtCacheSize": "500",
		"maximumPoolSize":   "10",
		"connectTimeout":    "2.5",
	}, cfg.PoolOptions())
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]string{
		"unknown key":      "drvier = \"mysql\"\n",
		"unknown driver":   "driver = \"oracle\"\n",
		"bad duration":     "probe_timeout = \"soon\"\n",
		"unknown notifier": "[notifier]\nkind = \"pager\"\n",
		"http without url": "[notifier]\nkind = \"http\"\n",
		"nats no subject":  "[notifier]\nkind = \"nats\"\nurl = \"nats://127.0.0.1:4222\"\n",
		"syntax":           "driver = \n",
		"option array":     "[options]\nfoo = [1, 2]\n",
		"option table":     "[options.pool]\nsize = 1\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestSQLiteManager(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "app.db")
	path := writeConfig(t, `
driver = "sqlite"

[primary]
database = "`+filepath.ToSlash(dbPath)+`"

[notifier]
kind = "log"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	n, err := cfg.BuildNotifier(zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, notify.Log{}, n)

	m, err := cfg.Manager(zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, m.ConnectWithOptions(t.Context(), cfg.PoolOptions()))
	defer m.Disconnect()
	assert.True(t, m.IsConnected(t.Context()))
}
