package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	want := Default()
	assert.Equal(t, want.UDPListen, cfg.UDPListen)
	assert.Equal(t, want.QueueSize, cfg.QueueSize)
	assert.Equal(t, want.StatsListen, cfg.StatsListen)
}

func TestLoadOverlaysOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "l7tap.yaml")
	body := "udp_listen: \":9999\"\nworkers: 8\ngrpc_api_keys:\n  - abc123\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.UDPListen)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, Default().QueueSize, cfg.QueueSize)
	assert.Equal(t, []string{"abc123"}, cfg.GRPCAPIKeys)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/path/l7tap.yaml")
	assert.Error(t, err)
}
