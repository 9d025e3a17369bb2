// Package config handles configuration loading and validation for daylog.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/colonyops/daylog/internal/core/validate"
)

// Config holds the application configuration.
type Config struct {
	Repo     string        `yaml:"repo"` // owner/name of the tracked repository
	Timezone string        `yaml:"timezone"`
	GitPath  string        `yaml:"git_path"`
	Report   ReportConfig  `yaml:"report"`
	GitHub   GitHubConfig  `yaml:"github"`
	Slack    SlackConfig   `yaml:"slack"`
	Tasks    TasksConfig   `yaml:"tasks"`
	Updates  UpdatesConfig `yaml:"updates"`
	DataDir  string        `yaml:"-"` // set by caller, not from config file
}

// ReportConfig controls how daily records are created and what gets
// ingested into them.
type ReportConfig struct {
	// TitlePrefix leads every record title, before the date.
	TitlePrefix string `yaml:"title_prefix"`
	// Label marks record issues so they can be located across days.
	Label string `yaml:"label"`
	// BranchLabelPrefix is prepended to the branch name label on records.
	BranchLabelPrefix string `yaml:"branch_label_prefix"`
	// ExcludedTypes lists commit types that are parsed but never rendered.
	ExcludedTypes []string `yaml:"excluded_types"`
	// ExcludedBranches holds glob patterns for branches to skip entirely.
	ExcludedBranches []string `yaml:"excluded_branches"`
	// ExcludedAuthors holds glob patterns for commit authors to skip.
	ExcludedAuthors []string `yaml:"excluded_authors"`
}

// GitHubConfig holds API access settings.
type GitHubConfig struct {
	APIBase  string `yaml:"api_base"`
	TokenEnv string `yaml:"token_env"`
	// RetryAttempts bounds write retries; delays grow exponentially
	// from RetryBaseDelay.
	RetryAttempts  int           `yaml:"retry_attempts"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
}

// SlackConfig holds the optional notification webhook.
type SlackConfig struct {
	WebhookEnv string `yaml:"webhook_env"`
	Channel    string `yaml:"channel"`
}

// TasksConfig controls task proposal handling.
type TasksConfig struct {
	// ProposalsDir is scanned for pending task proposal files.
	ProposalsDir string `yaml:"proposals_dir"`
	// ApprovalLabel is attached to converted proposals awaiting approval.
	ApprovalLabel string `yaml:"approval_label"`
}

// UpdatesConfig controls the release update check.
type UpdatesConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Token resolves the GitHub API token from the configured environment
// variable.
func (c GitHubConfig) Token() string {
	return os.Getenv(c.TokenEnv)
}

// Webhook resolves the Slack webhook URL from the configured
// environment variable.
func (c SlackConfig) Webhook() string {
	return os.Getenv(c.WebhookEnv)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timezone: "Local",
		GitPath:  "git",
		Report: ReportConfig{
			TitlePrefix:       "📅 Development Status Report",
			Label:             "DSR",
			BranchLabelPrefix: "branch:",
			ExcludedBranches:  []string{"dependabot/**", "renovate/**"},
			ExcludedAuthors:   []string{"*[bot]"},
		},
		GitHub: GitHubConfig{
			APIBase:        "https://api.github.com",
			TokenEnv:       "GITHUB_TOKEN",
			RetryAttempts:  3,
			RetryBaseDelay: time.Second,
		},
		Slack: SlackConfig{
			WebhookEnv: "SLACK_WEBHOOK_URL",
		},
		Tasks: TasksConfig{
			ProposalsDir:  "tasks",
			ApprovalLabel: "needs-approval",
		},
		Updates: UpdatesConfig{
			Enabled: true,
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Timezone == "" {
		c.Timezone = defaults.Timezone
	}
	if c.GitPath == "" {
		c.GitPath = defaults.GitPath
	}
	if c.Report.TitlePrefix == "" {
		c.Report.TitlePrefix = defaults.Report.TitlePrefix
	}
	if c.Report.Label == "" {
		c.Report.Label = defaults.Report.Label
	}
	if c.Report.BranchLabelPrefix == "" {
		c.Report.BranchLabelPrefix = defaults.Report.BranchLabelPrefix
	}
	if c.GitHub.APIBase == "" {
		c.GitHub.APIBase = defaults.GitHub.APIBase
	}
	if c.GitHub.TokenEnv == "" {
		c.GitHub.TokenEnv = defaults.GitHub.TokenEnv
	}
	if c.GitHub.RetryAttempts == 0 {
		c.GitHub.RetryAttempts = defaults.GitHub.RetryAttempts
	}
	if c.GitHub.RetryBaseDelay == 0 {
		c.GitHub.RetryBaseDelay = defaults.GitHub.RetryBaseDelay
	}
	if c.Slack.WebhookEnv == "" {
		c.Slack.WebhookEnv = defaults.Slack.WebhookEnv
	}
	if c.Tasks.ProposalsDir == "" {
		c.Tasks.ProposalsDir = defaults.Tasks.ProposalsDir
	}
	if c.Tasks.ApprovalLabel == "" {
		c.Tasks.ApprovalLabel = defaults.Tasks.ApprovalLabel
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.RepoSlugField("repo", c.Repo); err != nil {
		return err
	}

	if c.GitPath == "" {
		return fmt.Errorf("git_path cannot be empty")
	}

	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}

	if c.GitHub.RetryAttempts < 1 {
		return fmt.Errorf("github.retry_attempts must be at least 1")
	}

	for _, pattern := range c.Report.ExcludedBranches {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("report.excluded_branches: invalid pattern %q", pattern)
		}
	}
	for _, pattern := range c.Report.ExcludedAuthors {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("report.excluded_authors: invalid pattern %q", pattern)
		}
	}

	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// BranchExcluded reports whether a branch matches an exclusion pattern.
func (c *Config) BranchExcluded(branch string) bool {
	return matchAny(c.Report.ExcludedBranches, branch)
}

// AuthorExcluded reports whether a commit author matches an exclusion
// pattern.
func (c *Config) AuthorExcluded(author string) bool {
	return matchAny(c.Report.ExcludedAuthors, author)
}

// TypeExcluded reports whether a commit type is filtered from reports.
func (c *Config) TypeExcluded(commitType string) bool {
	for _, t := range c.Report.ExcludedTypes {
		if t == commitType {
			return true
		}
	}
	return false
}

func matchAny(patterns []string, value string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, value); err == nil && ok {
			return true
		}
	}
	return false
}

// DBFile returns the path to the local cache database.
func (c *Config) DBFile() string {
	return filepath.Join(c.DataDir, "daylog.db")
}

// ProposalsPath resolves the proposals directory against a repository
// checkout.
func (c *Config) ProposalsPath(repoDir string) string {
	if filepath.IsAbs(c.Tasks.ProposalsDir) {
		return c.Tasks.ProposalsDir
	}
	return filepath.Join(repoDir, c.Tasks.ProposalsDir)
}
