package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 300*time.Millisecond, cfg.Client.Debounce)
	assert.Equal(t, 3*time.Second, cfg.Client.NotificationTTL)
	assert.Empty(t, cfg.Server.DB)
}

func TestDecode_Overlays(t *testing.T) {
	cfg := Default()
	err := Decode(strings.NewReader(`
server:
  addr: ":8080"
  db: /tmp/todos.db
  seed: true
client:
  debounce: 150ms
log:
  format: json
`), &cfg)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "/tmp/todos.db", cfg.Server.DB)
	assert.True(t, cfg.Server.Seed)
	assert.Equal(t, 150*time.Millisecond, cfg.Client.Debounce)
	assert.Equal(t, 3*time.Second, cfg.Client.NotificationTTL, "untouched keys keep defaults")
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "http://localhost:4000", cfg.Client.Server)
}

func TestDecode_RejectsUnknownKeys(t *testing.T) {
	cfg := Default()
	err := Decode(strings.NewReader("server:\n  port: 4000\n"), &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
}

func TestDecode_EmptyDocument(t *testing.T) {
	cfg := Default()
	require.NoError(t, Decode(strings.NewReader(""), &cfg))
	assert.Equal(t, Default(), cfg)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(&cfg, envMap(map[string]string{
		EnvAddr:      ":9000",
		EnvDB:        "postgres://localhost/todos",
		EnvSeed:      "true",
		EnvServer:    "http://example:9000",
		EnvLogFormat: "json",
		EnvLogLevel:  "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "postgres://localhost/todos", cfg.Server.DB)
	assert.True(t, cfg.Server.Seed)
	assert.Equal(t, "http://example:9000", cfg.Client.Server)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestApplyEnv_BadSeed(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(&cfg, envMap(map[string]string{EnvSeed: "sometimes"}))
	assert.ErrorContains(t, err, EnvSeed)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todosync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":7000\"\n  db: file.db\n"), 0o644))
	t.Setenv(EnvDB, "env.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "env.db", cfg.Server.DB, "environment wins over the file")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Server.Addr = " "
	cfg.Client.Debounce = 0
	cfg.Log.Format = "xml"
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"server.addr", "client.debounce", "log.format", "log.level"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Format: "json", Level: "warn"}.NewLogger(&buf, false)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	logger = LogConfig{Format: "text", Level: "warn"}.NewLogger(&buf, true)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
	logger.Debug("detail")
	assert.Contains(t, buf.String(), "msg=detail")
}
