package daylog

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/colonyops/daylog/internal/core/config"
	"github.com/colonyops/daylog/internal/core/ledger"
	"github.com/colonyops/daylog/internal/core/logging"
	"github.com/colonyops/daylog/internal/core/report"
	"github.com/colonyops/daylog/internal/data/issuestore"
)

// Syncer reconciles todo checkboxes on the current record with the
// state of their linked issues. A closed linked issue checks the box;
// a manually checked box closes the linked issue.
type Syncer struct {
	cfg   *config.Config
	store issuestore.Store
	log   zerolog.Logger
}

// NewSyncer creates a syncer.
func NewSyncer(cfg *config.Config, store issuestore.Store) *Syncer {
	return &Syncer{
		cfg:   cfg,
		store: store,
		log:   logging.Component("syncer"),
	}
}

// SyncResult reports what a sync pass changed.
type SyncResult struct {
	IssueNumber  int
	Checked      []string
	ClosedIssues []int
	// NoRecord is set when there is no open record to sync.
	NoRecord bool
}

// Run performs one sync pass over the most recent open record.
func (s *Syncer) Run(ctx context.Context, dryRun bool) (*SyncResult, error) {
	ctx = logging.WithRepo(ctx, s.cfg.Repo)

	target, err := s.currentRecord(ctx)
	if err != nil {
		return nil, err
	}
	if target == nil {
		s.log.Info().Ctx(ctx).Msg("no open record to sync")
		return &SyncResult{NoRecord: true}, nil
	}

	result := &SyncResult{IssueNumber: target.Number}
	doc := report.Decode(target.Body)
	bodyChanged := false

	for _, entry := range doc.Ledger.Entries() {
		if entry.IssueRef == "" {
			continue
		}

		var number int
		if _, err := fmt.Sscanf(entry.IssueRef, "%d", &number); err != nil {
			continue
		}

		linked, err := s.store.Get(ctx, number)
		if errors.Is(err, issuestore.ErrNotFound) {
			s.log.Warn().Ctx(ctx).Int("number", number).Msg("linked issue missing")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get linked issue %d: %w", number, err)
		}

		switch {
		case linked.State == issuestore.StateClosed && !entry.Checked:
			s.check(doc.Ledger, entry)
			bodyChanged = true
			result.Checked = append(result.Checked, entry.Text)

		case linked.State == issuestore.StateOpen && entry.Checked:
			if !dryRun {
				if err := s.store.Close(ctx, number); err != nil {
					return nil, fmt.Errorf("close linked issue %d: %w", number, err)
				}
				comment := fmt.Sprintf("Completed via #%d.", target.Number)
				if err := s.store.Comment(ctx, number, comment); err != nil {
					s.log.Warn().Ctx(ctx).Err(err).Int("number", number).Msg("comment linked issue")
				}
			}
			result.ClosedIssues = append(result.ClosedIssues, number)
		}
	}

	if bodyChanged && !dryRun {
		if err := s.store.UpdateBody(ctx, target.Number, report.Encode(doc)); err != nil {
			return nil, fmt.Errorf("write record body: %w", err)
		}
	}

	s.log.Info().Ctx(ctx).
		Int("number", target.Number).
		Int("checked", len(result.Checked)).
		Int("closed_issues", len(result.ClosedIssues)).
		Bool("dry_run", dryRun).
		Msg("sync complete")

	return result, nil
}

// currentRecord returns the open record with the most recent date.
func (s *Syncer) currentRecord(ctx context.Context) (*issuestore.Record, error) {
	open, err := s.store.ListOpen(ctx, s.cfg.Report.Label)
	if err != nil {
		return nil, fmt.Errorf("list open records: %w", err)
	}

	var best *issuestore.Record
	bestDay := ""
	for i := range open {
		day := report.DateFromTitle(open[i].Title)
		if day == "" {
			continue
		}
		if best == nil || day > bestDay {
			best = &open[i]
			bestDay = day
		}
	}
	return best, nil
}

// check flips one entry to done in place.
func (s *Syncer) check(l *ledger.Ledger, entry ledger.Entry) {
	entry.Checked = true
	l.Merge([]ledger.Entry{entry})
}
