package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, resolved, err := Load(nil, path)
	require.NoError(t, err)
	require.Equal(t, path, resolved)
	require.Equal(t, Default(), cfg)

	// The default file was written out for the operator to edit.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestLoadReadsExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("addr: \":9999\"\nlog_level: debug\nsession_queue_size: 8\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, _, err := Load(nil, path)
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.Addr)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 8, cfg.SessionQueueSize)
	// Unset keys keep their defaults.
	require.Equal(t, Default().ShutdownTimeout, cfg.ShutdownTimeout)
}
