package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "repo: colonyops/daylog\n")

	cfg, err := Load(path, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "colonyops/daylog", cfg.Repo)
	assert.Equal(t, "git", cfg.GitPath)
	assert.Equal(t, "📅 Development Status Report", cfg.Report.TitlePrefix)
	assert.Equal(t, "DSR", cfg.Report.Label)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.APIBase)
	assert.Equal(t, 3, cfg.GitHub.RetryAttempts)
	assert.True(t, cfg.Updates.Enabled)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"), t.TempDir())
	// Defaults alone fail validation: repo is required.
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repo")
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `
repo: colonyops/daylog
timezone: Europe/Berlin
report:
  title_prefix: "📅 Daily Log"
  excluded_types: [chore, style]
  excluded_branches: ["wip/**"]
github:
  retry_attempts: 5
  retry_base_delay: 2s
`)

	cfg, err := Load(path, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "Europe/Berlin", cfg.Timezone)
	assert.Equal(t, "📅 Daily Log", cfg.Report.TitlePrefix)
	assert.Equal(t, 5, cfg.GitHub.RetryAttempts)
	assert.Equal(t, "2s", cfg.GitHub.RetryBaseDelay.String())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoad_InvalidTimezone(t *testing.T) {
	path := writeConfig(t, "repo: colonyops/daylog\ntimezone: Mars/Olympus\n")

	_, err := Load(path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timezone")
}

func TestLoad_InvalidRepo(t *testing.T) {
	path := writeConfig(t, "repo: not-a-slug\n")

	_, err := Load(path, t.TempDir())
	require.Error(t, err)
}

func TestExclusions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Report.ExcludedTypes = []string{"chore"}

	assert.True(t, cfg.BranchExcluded("dependabot/npm/lodash-4.17.21"))
	assert.False(t, cfg.BranchExcluded("feature/login"))

	assert.True(t, cfg.AuthorExcluded("renovate[bot]"))
	assert.False(t, cfg.AuthorExcluded("alice"))

	assert.True(t, cfg.TypeExcluded("chore"))
	assert.False(t, cfg.TypeExcluded("feat"))
}

func TestTokenResolution(t *testing.T) {
	t.Setenv("DAYLOG_TEST_TOKEN", "tok123")

	cfg := DefaultConfig()
	cfg.GitHub.TokenEnv = "DAYLOG_TEST_TOKEN"
	assert.Equal(t, "tok123", cfg.GitHub.Token())
}

func TestProposalsPath(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "/repo/tasks", cfg.ProposalsPath("/repo"))

	cfg.Tasks.ProposalsDir = "/abs/tasks"
	assert.Equal(t, "/abs/tasks", cfg.ProposalsPath("/repo"))
}
