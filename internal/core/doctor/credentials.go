package doctor

import (
	"context"
	"os"

	"github.com/colonyops/daylog/internal/core/config"
)

// CredentialsCheck verifies that the environment carries the secrets
// the configured integrations need.
type CredentialsCheck struct {
	cfg *config.Config
}

// NewCredentialsCheck creates a credentials check.
func NewCredentialsCheck(cfg *config.Config) *CredentialsCheck {
	return &CredentialsCheck{cfg: cfg}
}

func (c *CredentialsCheck) Name() string {
	return "Credentials"
}

func (c *CredentialsCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	if os.Getenv(c.cfg.GitHub.TokenEnv) == "" {
		result.Items = append(result.Items, CheckItem{
			Label:  "github token",
			Status: StatusFail,
			Detail: c.cfg.GitHub.TokenEnv + " is not set",
		})
	} else {
		result.Items = append(result.Items, CheckItem{
			Label:  "github token",
			Status: StatusPass,
			Detail: "read from " + c.cfg.GitHub.TokenEnv,
		})
	}

	switch {
	case c.cfg.Slack.WebhookEnv == "":
		result.Items = append(result.Items, CheckItem{
			Label:  "slack webhook",
			Status: StatusPass,
			Detail: "notifications disabled",
		})
	case os.Getenv(c.cfg.Slack.WebhookEnv) == "":
		result.Items = append(result.Items, CheckItem{
			Label:  "slack webhook",
			Status: StatusWarn,
			Detail: c.cfg.Slack.WebhookEnv + " is not set",
		})
	default:
		result.Items = append(result.Items, CheckItem{
			Label:  "slack webhook",
			Status: StatusPass,
			Detail: "read from " + c.cfg.Slack.WebhookEnv,
		})
	}

	return result
}
