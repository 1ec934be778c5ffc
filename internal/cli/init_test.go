package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	applog "ledger/internal/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("LEDGER_TEST_FROM_FILE=yes\nLEDGER_TEST_PRESET=file\n"), 0o600))

	t.Setenv("LEDGER_TEST_PRESET", "env")
	t.Cleanup(func() { os.Unsetenv("LEDGER_TEST_FROM_FILE") })

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "yes", os.Getenv("LEDGER_TEST_FROM_FILE"))
	assert.Equal(t, "env", os.Getenv("LEDGER_TEST_PRESET"))
}

func TestLoadEnvFile_Missing(t *testing.T) {
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")))
}

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := SetupLogger("debug", "json", &buf)
	logger.Debug("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	logger = SetupLogger("loud", "text", &buf)
	assert.Contains(t, buf.String(), "Falling back to info level")
	logger.Debug("hidden")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestGracefulShutdown(t *testing.T) {
	logger := applog.New(applog.Config{Output: &bytes.Buffer{}})
	var order []int
	boom := errors.New("boom")

	err := GracefulShutdown(logger, time.Second,
		func(context.Context) error { order = append(order, 1); return boom },
		func(ctx context.Context) error {
			order = append(order, 2)
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return nil
		},
	)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{1, 2}, order)

	assert.NoError(t, GracefulShutdown(logger, time.Second))
}

func TestLoadAndValidateConfig_ReturnsConfigOnError(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadAndValidateConfig()
	require.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "debug", cfg.LogLevel)
}
