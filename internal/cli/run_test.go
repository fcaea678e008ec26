package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htnql/htnql/internal/config"
)

func TestLoadReportSpecParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: revenue_by_region
metrics:
  - expression: "SUM(orders.amount_cents)"
    alias: total
group_by:
  - customers.region
limit: 10
`), 0o644))

	spec, err := loadReportSpec(path)
	require.NoError(t, err)
	assert.Equal(t, "revenue_by_region", spec.Name)
	require.Len(t, spec.Metrics, 1)
	assert.Equal(t, "total", spec.Metrics[0].Alias)
	require.NotNil(t, spec.Limit)
	assert.Equal(t, 10, *spec.Limit)
}

func TestLoadReportSpecMissingFile(t *testing.T) {
	_, err := loadReportSpec(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestAgentOrDefaultPrefersFlagOverConfig(t *testing.T) {
	c := &CLI{agent: "heuristic", cfg: &config.Config{Agent: "custom"}}
	assert.Equal(t, "heuristic", c.agentOrDefault())
}

func TestAgentOrDefaultFallsBackToBuiltinDefault(t *testing.T) {
	c := &CLI{}
	assert.Equal(t, "default", c.agentOrDefault())
}
