// Package notify posts run summaries to chat webhooks.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/daylog/internal/core/logging"
	"github.com/colonyops/daylog/internal/daylog"
)

// Slack posts Block Kit messages to an incoming webhook.
type Slack struct {
	webhookURL string
	channel    string
	httpClient *http.Client
	log        zerolog.Logger
}

var _ daylog.Notifier = (*Slack)(nil)

// NewSlack creates a Slack notifier. client may be nil.
func NewSlack(webhookURL, channel string, client *http.Client) *Slack {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Slack{
		webhookURL: webhookURL,
		channel:    channel,
		httpClient: client,
		log:        logging.Component("slack"),
	}
}

type blockText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type block struct {
	Type string     `json:"type"`
	Text *blockText `json:"text,omitempty"`
}

type payload struct {
	Channel string  `json:"channel,omitempty"`
	Text    string  `json:"text"`
	Blocks  []block `json:"blocks"`
}

// ReportUpdated posts a short summary of a persisted run.
func (s *Slack) ReportUpdated(ctx context.Context, update daylog.ReportUpdate) error {
	verb := "updated"
	if update.Created {
		verb = "created"
	}

	headline := fmt.Sprintf("Daily report %s for %s (%s)", verb, update.Repo, update.Day)
	details := fmt.Sprintf("*<%s|#%d>* — %d new commits, %d open todos",
		update.URL, update.IssueNumber, update.NewCommits, update.OpenTodos)

	msg := payload{
		Channel: s.channel,
		Text:    headline,
		Blocks: []block{
			{Type: "header", Text: &blockText{Type: "plain_text", Text: headline}},
			{Type: "section", Text: &blockText{Type: "mrkdwn", Text: details}},
		},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			s.log.Debug().Err(err).Msg("close webhook response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("post slack webhook: status %d", resp.StatusCode)
	}

	s.log.Debug().Str("repo", update.Repo).Str("day", update.Day).Msg("notification sent")
	return nil
}
