package issuestore

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory is an in-process Store used by tests and dry runs.
type Memory struct {
	mu     sync.Mutex
	next   int
	issues map[int]*Record

	// Comments records comment bodies by issue number.
	Comments map[int][]string
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		next:     1,
		issues:   make(map[int]*Record),
		Comments: make(map[int][]string),
	}
}

// Seed inserts a record directly, assigning the next number when the
// record has none.
func (m *Memory) Seed(rec Record) Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.Number == 0 {
		rec.Number = m.next
	}
	if rec.Number >= m.next {
		m.next = rec.Number + 1
	}
	if rec.State == "" {
		rec.State = StateOpen
	}
	m.issues[rec.Number] = &rec
	return rec
}

// Get returns a single issue by number.
func (m *Memory) Get(ctx context.Context, number int) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.issues[number]
	if !ok {
		return Record{}, fmt.Errorf("issue %d: %w", number, ErrNotFound)
	}
	return *rec, nil
}

// ListOpen returns all open issues carrying the given label, newest
// first to match tracker ordering.
func (m *Memory) ListOpen(ctx context.Context, label string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var records []Record
	for n := m.next - 1; n >= 1; n-- {
		rec, ok := m.issues[n]
		if !ok || rec.State != StateOpen {
			continue
		}
		if label != "" && !rec.HasLabel(label) {
			continue
		}
		records = append(records, *rec)
	}
	return records, nil
}

// Create opens a new issue.
func (m *Memory) Create(ctx context.Context, issue NewIssue) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := &Record{
		Number:    m.next,
		Title:     issue.Title,
		Body:      issue.Body,
		State:     StateOpen,
		Labels:    append([]string(nil), issue.Labels...),
		CreatedAt: time.Now(),
	}
	m.issues[m.next] = rec
	m.next++
	return *rec, nil
}

// UpdateBody replaces an issue body.
func (m *Memory) UpdateBody(ctx context.Context, number int, body string) error {
	return m.update(number, func(rec *Record) { rec.Body = body })
}

// Close marks an issue closed.
func (m *Memory) Close(ctx context.Context, number int) error {
	return m.update(number, func(rec *Record) { rec.State = StateClosed })
}

// Comment appends a comment to an issue.
func (m *Memory) Comment(ctx context.Context, number int, body string) error {
	return m.update(number, func(rec *Record) {
		m.Comments[number] = append(m.Comments[number], body)
	})
}

// AddLabels attaches labels to an issue.
func (m *Memory) AddLabels(ctx context.Context, number int, labels []string) error {
	return m.update(number, func(rec *Record) {
		for _, label := range labels {
			if !rec.HasLabel(label) {
				rec.Labels = append(rec.Labels, label)
			}
		}
	})
}

func (m *Memory) update(number int, fn func(*Record)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.issues[number]
	if !ok {
		return fmt.Errorf("issue %d: %w", number, ErrNotFound)
	}
	fn(rec)
	return nil
}
