package issuestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/daylog/internal/core/logging"
)

// GitHub implements Store against the GitHub REST API.
type GitHub struct {
	apiBase    string
	repo       string // owner/name
	token      string
	attempts   int
	baseDelay  time.Duration
	httpClient *http.Client
	log        zerolog.Logger
}

var _ Store = (*GitHub)(nil)

// GitHubOptions configures a GitHub store.
type GitHubOptions struct {
	APIBase   string
	Repo      string
	Token     string
	Attempts  int
	BaseDelay time.Duration
	// Client overrides the default HTTP client, mainly for tests.
	Client *http.Client
}

// NewGitHub creates a GitHub-backed issue store.
func NewGitHub(opts GitHubOptions) *GitHub {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}
	return &GitHub{
		apiBase:    opts.APIBase,
		repo:       opts.Repo,
		token:      opts.Token,
		attempts:   opts.Attempts,
		baseDelay:  opts.BaseDelay,
		httpClient: opts.Client,
		log:        logging.Component("issuestore"),
	}
}

type issuePayload struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	State   string `json:"state"`
	HTMLURL string `json:"html_url"`
	Labels  []struct {
		Name string `json:"name"`
	} `json:"labels"`
	CreatedAt   time.Time `json:"created_at"`
	PullRequest *struct{} `json:"pull_request,omitempty"`
}

func (p issuePayload) record() Record {
	rec := Record{
		Number:    p.Number,
		Title:     p.Title,
		Body:      p.Body,
		State:     p.State,
		URL:       p.HTMLURL,
		CreatedAt: p.CreatedAt,
	}
	for _, l := range p.Labels {
		rec.Labels = append(rec.Labels, l.Name)
	}
	return rec
}

// Get returns a single issue by number.
func (g *GitHub) Get(ctx context.Context, number int) (Record, error) {
	var payload issuePayload
	err := g.do(ctx, http.MethodGet, g.issuePath(number), nil, &payload)
	if err != nil {
		return Record{}, err
	}
	return payload.record(), nil
}

// ListOpen returns all open issues carrying the given label. Pull
// requests share the issues endpoint and are filtered out.
func (g *GitHub) ListOpen(ctx context.Context, label string) ([]Record, error) {
	path := fmt.Sprintf("/repos/%s/issues?state=open&labels=%s&per_page=100", g.repo, url.QueryEscape(label))

	var payloads []issuePayload
	if err := g.do(ctx, http.MethodGet, path, nil, &payloads); err != nil {
		return nil, err
	}

	var records []Record
	for _, p := range payloads {
		if p.PullRequest != nil {
			continue
		}
		records = append(records, p.record())
	}
	return records, nil
}

// Create opens a new issue.
func (g *GitHub) Create(ctx context.Context, issue NewIssue) (Record, error) {
	body := map[string]any{
		"title": issue.Title,
		"body":  issue.Body,
	}
	if len(issue.Labels) > 0 {
		body["labels"] = issue.Labels
	}

	var payload issuePayload
	err := g.do(ctx, http.MethodPost, "/repos/"+g.repo+"/issues", body, &payload)
	if err != nil {
		return Record{}, err
	}

	g.log.Info().Int("number", payload.Number).Str("title", issue.Title).Msg("created issue")
	return payload.record(), nil
}

// UpdateBody replaces an issue body.
func (g *GitHub) UpdateBody(ctx context.Context, number int, body string) error {
	return g.do(ctx, http.MethodPatch, g.issuePath(number), map[string]any{"body": body}, nil)
}

// Close marks an issue closed.
func (g *GitHub) Close(ctx context.Context, number int) error {
	return g.do(ctx, http.MethodPatch, g.issuePath(number), map[string]any{"state": StateClosed}, nil)
}

// Comment appends a comment to an issue.
func (g *GitHub) Comment(ctx context.Context, number int, body string) error {
	return g.do(ctx, http.MethodPost, g.issuePath(number)+"/comments", map[string]any{"body": body}, nil)
}

// AddLabels attaches labels to an issue.
func (g *GitHub) AddLabels(ctx context.Context, number int, labels []string) error {
	return g.do(ctx, http.MethodPost, g.issuePath(number)+"/labels", map[string]any{"labels": labels}, nil)
}

func (g *GitHub) issuePath(number int) string {
	return "/repos/" + g.repo + "/issues/" + strconv.Itoa(number)
}

// do sends one API request with exponential backoff. Responses in the
// 4xx range other than 429 are not retried.
func (g *GitHub) do(ctx context.Context, method, path string, body any, dest any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	delay := g.baseDelay
	var lastErr error

	for attempt := 1; attempt <= g.attempts; attempt++ {
		if attempt > 1 {
			g.log.Debug().
				Str("method", method).
				Str("path", path).
				Int("attempt", attempt).
				Msg("retrying request")

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}

		retryable, err := g.doOnce(ctx, method, path, payload, dest)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
	}

	return fmt.Errorf("%s %s after %d attempts: %w", method, path, g.attempts, lastErr)
}

func (g *GitHub) doOnce(ctx context.Context, method, path string, payload []byte, dest any) (retryable bool, err error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.apiBase+path, reqBody)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "daylog")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return true, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			g.log.Debug().Err(err).Msg("close response body")
		}
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return true, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	case resp.StatusCode >= 500:
		return true, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	case resp.StatusCode >= 400:
		return false, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if dest == nil {
		return false, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}

	return false, nil
}
