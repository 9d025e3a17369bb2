// Package issuestore persists daily records and task issues on an
// issue tracker.
package issuestore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when an issue does not exist.
var ErrNotFound = errors.New("issue not found")

// Issue states.
const (
	StateOpen   = "open"
	StateClosed = "closed"
)

// Record is one tracker issue.
type Record struct {
	Number    int
	Title     string
	Body      string
	State     string
	Labels    []string
	URL       string
	CreatedAt time.Time
}

// HasLabel reports whether the record carries a label.
func (r Record) HasLabel(label string) bool {
	for _, l := range r.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// NewIssue describes an issue to create.
type NewIssue struct {
	Title  string
	Body   string
	Labels []string
}

// Store is the tracker boundary. All writes are expected to be
// retried by implementations; callers treat a returned error as final.
type Store interface {
	// Get returns a single issue by number.
	Get(ctx context.Context, number int) (Record, error)
	// ListOpen returns all open issues carrying the given label.
	ListOpen(ctx context.Context, label string) ([]Record, error)
	// Create opens a new issue.
	Create(ctx context.Context, issue NewIssue) (Record, error)
	// UpdateBody replaces an issue body.
	UpdateBody(ctx context.Context, number int, body string) error
	// Close marks an issue closed.
	Close(ctx context.Context, number int) error
	// Comment appends a comment to an issue.
	Comment(ctx context.Context, number int, body string) error
	// AddLabels attaches labels to an issue.
	AddLabels(ctx context.Context, number int, labels []string) error
}
