package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentNameFromPathStripsDirAndExtension(t *testing.T) {
	assert.Equal(t, "default", agentNameFromPath("/etc/htnql/agents/default.yaml"))
	assert.Equal(t, "heuristic", agentNameFromPath("heuristic.yml"))
	assert.Equal(t, "noext", agentNameFromPath("noext"))
}

func TestLoadAgentCatalogsParsesValidDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tasks:
  root:
    methods:
      - name: only
        steps:
          - primitive: ChooseExecutionMode
`), 0o644))

	catalogs, err := loadAgentCatalogs(path)
	require.NoError(t, err)
	require.Contains(t, catalogs, "custom")
	assert.Contains(t, catalogs["custom"], "root")
}

func TestLoadAgentCatalogsRejectsUnknownPrimitive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tasks:
  root:
    methods:
      - name: only
        steps:
          - primitive: NotARealPrimitive
`), 0o644))

	_, err := loadAgentCatalogs(path)
	assert.Error(t, err)
}

func TestCatalogNamesListsKeys(t *testing.T) {
	catalogs, err := loadAgentCatalogs(writeTempAgentDoc(t))
	require.NoError(t, err)
	names := catalogNames(catalogs)
	assert.Len(t, names, 1)
}

func writeTempAgentDoc(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tasks:
  root:
    methods:
      - name: only
        steps:
          - primitive: ChooseExecutionMode
`), 0o644))
	return path
}
