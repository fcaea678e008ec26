package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigMatchesDocumentedDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "default", cfg.Agent)
	assert.True(t, cfg.Executors.DuckDB.Enabled)
	assert.Equal(t, ":memory:", cfg.Executors.DuckDB.Database)
	assert.Equal(t, "stdout", cfg.Logging.Sink)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadWithoutConfigFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.Agent)
	assert.True(t, cfg.Executors.DuckDB.Enabled)
}

func TestLoadReadsExplicitConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "htnql.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
agent: heuristic
executors:
  duckdb:
    enabled: false
  postgres:
    enabled: true
    dsn: "postgres://localhost/htnql"
logging:
  sink: postgres
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "heuristic", cfg.Agent)
	assert.False(t, cfg.Executors.DuckDB.Enabled)
	assert.True(t, cfg.Executors.Postgres.Enabled)
	assert.Equal(t, "postgres://localhost/htnql", cfg.Executors.Postgres.DSN)
	assert.Equal(t, "postgres", cfg.Logging.Sink)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "htnql.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent: custom\n"), 0o644))

	t.Setenv("HTNQL_AGENT", "heuristic")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "heuristic", cfg.Agent)
}
