package main

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/vodnik/internal/config"
	"github.com/erazemk/vodnik/internal/model"
)

func TestLevelRouter(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := slog.New(&levelRouter{
		level:  slog.LevelInfo,
		stdout: slog.NewTextHandler(&out, nil),
		stderr: slog.NewTextHandler(&errOut, nil),
	})

	logger.Debug("hidden")
	logger.Info("to stdout")
	logger.Warn("also stdout")
	logger.With("k", "v").Error("to stderr")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "to stdout")
	assert.Contains(t, out.String(), "also stdout")
	assert.NotContains(t, out.String(), "to stderr")
	assert.Contains(t, errOut.String(), "to stderr")
	assert.Contains(t, errOut.String(), "k=v")
}

func TestTeeHandler(t *testing.T) {
	var a, b bytes.Buffer
	logger := slog.New(&teeHandler{slog.NewTextHandler(&a, nil), slog.NewJSONHandler(&b, nil)})
	logger.Info("hello", "n", 1)

	assert.Contains(t, a.String(), "msg=hello")
	assert.Contains(t, b.String(), `"msg":"hello"`)
}

func TestSQLiteBackendPersistsJWTSecret(t *testing.T) {
	ctx := context.Background()
	cfg, err := config.FromMap(map[string]string{
		"VODNIK_SQLITE_PATH": filepath.Join(t.TempDir(), "vodnik.db"),
	})
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	backend, err := openBackend(ctx, cfg)
	require.NoError(t, err)
	first, err := jwtSecret(ctx, cfg, backend)
	require.NoError(t, err)
	require.NoError(t, backend.CreateUser(ctx, model.User{UserID: "u1", Password: "secret"}))
	require.NoError(t, backend.Close())

	backend, err = openBackend(ctx, cfg)
	require.NoError(t, err)
	defer backend.Close()
	second, err := jwtSecret(ctx, cfg, backend)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	u, err := backend.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.NotNil(t, u)
}

func TestConfiguredJWTSecretWins(t *testing.T) {
	cfg := &config.Config{JWTSecret: "from-env"}
	secret, err := jwtSecret(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "from-env", secret)
}
