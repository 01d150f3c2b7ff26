package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckLeavesNotifierQuiet(t *testing.T) {
	var hooks atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "sqlhelper.toml")
	body := `
driver = "sqlite"

[primary]
database = "` + filepath.ToSlash(filepath.Join(dir, "primary.db")) + `"

[secondary]
database = "` + filepath.ToSlash(filepath.Join(dir, "secondary.db")) + `"

[notifier]
kind = "http"
url = "` + srv.URL + `"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	prev := configPath
	configPath = path
	t.Cleanup(func() { configPath = prev })

	var out bytes.Buffer
	cmd := newCheckCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "connected: true")
	assert.Contains(t, out.String(), "secondary: true")
	assert.Equal(t, int32(0), hooks.Load(), "check must not fail over")
}

func TestToArgs(t *testing.T) {
	assert.Equal(t, []any{"1", "ann"}, toArgs([]string{"1", "ann"}))
	assert.Empty(t, toArgs(nil))
}
