package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
state_dir: /var/lib/execdesk
server_addr: 127.0.0.1:9090
cycle_interval: 30m
signing_key: sekrit
notify_channels: [log, slack]
orgs:
  acme:
    name: Acme Corp
    industry: SaaS
    north_star_metric: mrr
    markets: [US]
    team_size: 12
    thresholds:
      mrr:
        name: mrr
        min: 10000
        unit: usd
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "execdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/execdesk", cfg.StateDir)
	assert.Equal(t, "127.0.0.1:9090", cfg.ServerAddr)
	assert.Equal(t, "sekrit", cfg.SigningKey)
	assert.Equal(t, []string{"log", "slack"}, cfg.NotifyChannels)
	assert.Equal(t, 30*60, int(cfg.CycleInterval.Seconds()))

	org, err := cfg.ForOrg("acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", org.Name)
	assert.Equal(t, "mrr", org.NorthStarMetric)
	th, ok := org.Thresholds["mrr"]
	require.True(t, ok)
	require.NotNil(t, th.MinValue)
	assert.Equal(t, 10000.0, *th.MinValue)

	_, err = cfg.ForOrg("globex")
	assert.Error(t, err)
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ".execdesk", cfg.StateDir)
	assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddr)

	org, err := cfg.ForOrg("default")
	require.NoError(t, err)
	assert.Equal(t, "weekly_active_users", org.NorthStarMetric)
	assert.NotEmpty(t, org.BusinessContext())
}

func TestLoadRejectsIncompleteOrg(t *testing.T) {
	path := writeConfig(t, "orgs:\n  broken:\n    industry: SaaS\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")

	path = writeConfig(t, "orgs:\n  broken:\n    name: No Metric Co\n")
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "north_star_metric is required")
}
