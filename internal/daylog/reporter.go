package daylog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/daylog/internal/core/commitmsg"
	"github.com/colonyops/daylog/internal/core/config"
	"github.com/colonyops/daylog/internal/core/git"
	"github.com/colonyops/daylog/internal/core/ledger"
	"github.com/colonyops/daylog/internal/core/logging"
	"github.com/colonyops/daylog/internal/core/report"
	"github.com/colonyops/daylog/internal/data/issuestore"
)

// skipMarker in a commit message keeps the whole commit out of the
// report.
const skipMarker = "[skip-automation]"

// promoteSuffix on a todo item asks for a linked tracker issue.
const promoteSuffix = "(issue)"

// ReportUpdate summarizes a persisted run for notification targets.
type ReportUpdate struct {
	Repo        string
	Day         string
	URL         string
	IssueNumber int
	Created     bool
	NewCommits  int
	OpenTodos   int
}

// Notifier receives a summary after a successful persist. Failures are
// logged, never fatal.
type Notifier interface {
	ReportUpdated(ctx context.Context, update ReportUpdate) error
}

// GitSource reads commit history. Satisfied by *git.Executor.
type GitSource interface {
	CurrentBranch(ctx context.Context, dir string) (string, error)
	CommitsOnDay(ctx context.Context, dir, rev string, day time.Time, loc *time.Location) ([]git.Commit, error)
	MergeParents(ctx context.Context, dir, sha string) ([]string, error)
	CommitsBetween(ctx context.Context, dir, from, to string) ([]git.Commit, error)
}

// Reporter drives one daily-report run: it locates the day's record,
// rotates stale ones, ingests the day's commits, and writes everything
// back in a single persist step at the end. Nothing is written to the
// tracker before that step, so a failed run leaves the tracker as it
// was.
type Reporter struct {
	cfg      *config.Config
	store    issuestore.Store
	git      GitSource
	repoDir  string
	notifier Notifier
	log      zerolog.Logger
	now      func() time.Time
}

// NewReporter creates a reporter. notifier may be nil.
func NewReporter(cfg *config.Config, store issuestore.Store, gitExec GitSource, repoDir string, notifier Notifier) *Reporter {
	return &Reporter{
		cfg:      cfg,
		store:    store,
		git:      gitExec,
		repoDir:  repoDir,
		notifier: notifier,
		log:      logging.Component("reporter"),
		now:      time.Now,
	}
}

// RunOptions control a single run.
type RunOptions struct {
	// Branch overrides the checked-out branch.
	Branch string
	// DryRun computes everything but writes nothing.
	DryRun bool
}

// RunResult reports what a run did (or, for dry runs, would do).
type RunResult struct {
	Day           string
	Branch        string
	IssueNumber   int
	IssueURL      string
	Created       bool
	Rotated       []int
	NewCommits    int
	SkippedCommit int
	CarriedTodos  int
	LinkedIssues  []int
	Body          string
	BranchSkipped bool
	NoChanges     bool
}

// staleRecord is an open record from an earlier day, scheduled for
// closing during persist.
type staleRecord struct {
	rec     issuestore.Record
	day     string
	carried []ledger.Entry
}

// promotion is a todo item that asked for a linked issue.
type promotion struct {
	category ledger.Category
	text     string
	title    string
}

// Run executes the pipeline once.
func (r *Reporter) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	loc, err := r.cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("resolve timezone: %w", err)
	}

	today := r.now().In(loc)
	day := today.Format("2006-01-02")
	ctx = logging.WithDay(logging.WithRepo(ctx, r.cfg.Repo), day)

	result := &RunResult{Day: day}

	branch := opts.Branch
	if branch == "" {
		branch, err = r.git.CurrentBranch(ctx, r.repoDir)
		if err != nil {
			return nil, fmt.Errorf("resolve branch: %w", err)
		}
	}
	result.Branch = branch

	if r.cfg.BranchExcluded(branch) {
		r.log.Info().Ctx(ctx).Str("branch", branch).Msg("branch excluded, nothing to do")
		result.BranchSkipped = true
		return result, nil
	}

	// LOCATE
	target, stale, err := r.locate(ctx, day)
	if err != nil {
		return nil, err
	}

	var doc *report.Document
	originalBody := ""
	if target != nil {
		result.IssueNumber = target.Number
		result.IssueURL = target.URL
		originalBody = target.Body
		doc = report.Decode(target.Body)
		doc.Title = r.recordTitle(day)
	} else {
		doc = report.NewDocument(r.recordTitle(day), day)
	}

	// ROTATE: plan the closes and set aside the carry-forward. The
	// records stay open until persist, and carried items merge only
	// after today's commits so categories they introduce keep
	// first-seen order.
	var carried []ledger.Entry
	for _, s := range stale {
		carried = append(carried, s.carried...)
		result.Rotated = append(result.Rotated, s.rec.Number)
	}

	// INGEST
	commits, err := r.collectCommits(ctx, branch, today, loc)
	if err != nil {
		return nil, err
	}

	for _, c := range commits {
		added, err := r.ingest(ctx, doc, branch, c)
		if err != nil {
			return nil, err
		}
		if added {
			result.NewCommits++
		} else {
			result.SkippedCommit++
		}
	}

	doc.Ledger.Merge(carried)
	result.CarriedTodos = len(carried)

	promotions := r.pendingPromotions(doc)

	// RENDER
	body := report.Encode(doc)

	changed := len(stale) > 0 || len(promotions) > 0 || target == nil || body != originalBody
	if target == nil && result.NewCommits == 0 && result.CarriedTodos == 0 && len(stale) == 0 {
		// Nothing happened today; do not open an empty record.
		changed = false
	}
	if !changed {
		r.log.Info().Ctx(ctx).Msg("no changes, skipping persist")
		result.NoChanges = true
		result.Body = body
		return result, nil
	}

	result.Body = body

	if opts.DryRun {
		r.log.Info().Ctx(ctx).
			Int("new_commits", result.NewCommits).
			Int("carried_todos", result.CarriedTodos).
			Int("rotated", len(stale)).
			Msg("dry run, skipping persist")
		return result, nil
	}

	// PERSIST
	if err := r.persist(ctx, doc, target, stale, promotions, branch, result); err != nil {
		return nil, err
	}

	r.notify(ctx, doc, result)
	return result, nil
}

// locate splits the open labeled records into today's record (if any)
// and stale ones from earlier days.
func (r *Reporter) locate(ctx context.Context, day string) (*issuestore.Record, []staleRecord, error) {
	open, err := r.store.ListOpen(ctx, r.cfg.Report.Label)
	if err != nil {
		return nil, nil, fmt.Errorf("list open records: %w", err)
	}

	var target *issuestore.Record
	var stale []staleRecord

	for i := range open {
		rec := open[i]
		recDay := report.DateFromTitle(rec.Title)

		switch {
		case recDay == day && target == nil:
			target = &rec
		case recDay == "":
			r.log.Warn().Ctx(ctx).Int("number", rec.Number).Str("title", rec.Title).
				Msg("labeled record without a date in title, leaving untouched")
		default:
			prior := report.Decode(rec.Body)
			stale = append(stale, staleRecord{
				rec:     rec,
				day:     recDay,
				carried: uncheckedEntries(prior.Ledger),
			})
		}
	}

	// Only the most recent prior record carries forward. Older stale
	// records close without carrying, so items cannot resurface from
	// records already rotated past once.
	if len(stale) > 1 {
		newest := 0
		for i := 1; i < len(stale); i++ {
			s, n := stale[i], stale[newest]
			if s.day > n.day || (s.day == n.day && s.rec.CreatedAt.After(n.rec.CreatedAt)) {
				newest = i
			}
		}
		for i := range stale {
			if i != newest {
				stale[i].carried = nil
			}
		}
	}

	return target, stale, nil
}

// collectCommits returns today's commits on the branch, with merge
// commits expanded into the commits they brought in.
func (r *Reporter) collectCommits(ctx context.Context, branch string, today time.Time, loc *time.Location) ([]git.Commit, error) {
	commits, err := r.git.CommitsOnDay(ctx, r.repoDir, branch, today, loc)
	if err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}

	var out []git.Commit
	for _, c := range commits {
		if !c.IsMerge() {
			out = append(out, c)
			continue
		}

		expanded, err := r.expandMerge(ctx, c)
		if err != nil {
			r.log.Warn().Ctx(ctx).Err(err).Str("sha", c.SHA).Msg("cannot expand merge commit, skipping")
			continue
		}
		out = append(out, expanded...)
	}

	return out, nil
}

// expandMerge replaces a merge commit with the commits its second
// parent contributed. De-duplication downstream absorbs any overlap
// with commits already ingested.
func (r *Reporter) expandMerge(ctx context.Context, c git.Commit) ([]git.Commit, error) {
	parents, err := r.git.MergeParents(ctx, r.repoDir, c.SHA)
	if err != nil {
		return nil, err
	}
	if len(parents) < 2 {
		return nil, nil
	}

	constituents, err := r.git.CommitsBetween(ctx, r.repoDir, parents[0], c.SHA)
	if err != nil {
		return nil, err
	}

	var out []git.Commit
	for _, cc := range constituents {
		if cc.SHA == c.SHA || cc.IsMerge() {
			continue
		}
		out = append(out, cc)
	}
	return out, nil
}

// ingest parses one commit and folds it into the document. Returns
// false when the commit was filtered or already present.
func (r *Reporter) ingest(ctx context.Context, doc *report.Document, branch string, c git.Commit) (bool, error) {
	if strings.Contains(c.Message, skipMarker) {
		r.log.Debug().Ctx(ctx).Str("sha", c.SHA).Msg("skip marker present")
		return false, nil
	}
	if r.cfg.AuthorExcluded(c.Author) {
		r.log.Debug().Ctx(ctx).Str("sha", c.SHA).Str("author", c.Author).Msg("author excluded")
		return false, nil
	}

	rec, err := commitmsg.Parse(c.Message)
	if err != nil {
		if errors.Is(err, commitmsg.ErrBadFormat) || errors.Is(err, commitmsg.ErrMergeCommit) {
			r.log.Debug().Ctx(ctx).Err(err).Str("sha", c.SHA).Msg("commit message not ingestible")
			return false, nil
		}
		return false, fmt.Errorf("parse commit %s: %w", c.SHA, err)
	}

	rec.Author = c.Author
	rec.SHA = c.SHA
	rec.Time = c.Time

	// Todos count even when the commit type is filtered from the
	// rendered sections.
	for _, todo := range rec.Todos {
		doc.Ledger.Merge([]ledger.Entry{{
			Category: ledger.NewCategory(todo.Category),
			Text:     todo.Text,
		}})
	}

	if r.cfg.TypeExcluded(string(rec.Type)) {
		r.log.Debug().Ctx(ctx).Str("sha", c.SHA).Str("type", string(rec.Type)).Msg("type excluded")
		return false, nil
	}

	if doc.HasCommit(rec.Title, rec.ShortSHA()) {
		r.log.Debug().Ctx(ctx).Str("sha", c.SHA).Msg("commit already recorded")
		return false, nil
	}

	doc.AppendBlock(branch, report.RenderCommitBlock(rec, rec.IssueRefs()))
	return true, nil
}

// pendingPromotions finds unchecked todo items carrying the promote
// suffix.
func (r *Reporter) pendingPromotions(doc *report.Document) []promotion {
	var out []promotion
	for _, e := range doc.Ledger.Unchecked() {
		if !strings.HasSuffix(e.Text, promoteSuffix) {
			continue
		}
		title := strings.TrimSpace(strings.TrimSuffix(e.Text, promoteSuffix))
		if title == "" {
			continue
		}
		out = append(out, promotion{category: e.Category, text: e.Text, title: title})
	}
	return out
}

// persist executes the planned writes: create today's record if
// missing, create linked issues for promoted todos, write the body,
// then close the stale records with a pointer to the new one.
func (r *Reporter) persist(ctx context.Context, doc *report.Document, target *issuestore.Record, stale []staleRecord, promotions []promotion, branch string, result *RunResult) error {
	if target == nil {
		created, err := r.store.Create(ctx, issuestore.NewIssue{
			Title:  doc.Title,
			Body:   "",
			Labels: []string{r.cfg.Report.Label, r.cfg.Report.BranchLabelPrefix + branch},
		})
		if err != nil {
			return fmt.Errorf("create record: %w", err)
		}
		target = &created
		result.Created = true
		result.IssueNumber = created.Number
		result.IssueURL = created.URL
	}

	for _, p := range promotions {
		linked, err := r.store.Create(ctx, issuestore.NewIssue{
			Title:  p.title,
			Body:   fmt.Sprintf("Tracked in #%d.", target.Number),
			Labels: []string{"todo"},
		})
		if err != nil {
			return fmt.Errorf("create linked issue for %q: %w", p.title, err)
		}
		doc.Ledger.SetText(p.category, p.text, fmt.Sprintf("#%d", linked.Number), fmt.Sprintf("%d", linked.Number))
		result.LinkedIssues = append(result.LinkedIssues, linked.Number)
	}

	body := report.Encode(doc)
	result.Body = body
	if err := r.store.UpdateBody(ctx, target.Number, body); err != nil {
		return fmt.Errorf("write record body: %w", err)
	}

	for _, s := range stale {
		comment := fmt.Sprintf("Rotated: open items moved to #%d.", target.Number)
		if err := r.store.Comment(ctx, s.rec.Number, comment); err != nil {
			return fmt.Errorf("comment record %d: %w", s.rec.Number, err)
		}
		if err := r.store.Close(ctx, s.rec.Number); err != nil {
			return fmt.Errorf("close record %d: %w", s.rec.Number, err)
		}
	}

	r.log.Info().Ctx(ctx).
		Int("number", target.Number).
		Bool("created", result.Created).
		Int("new_commits", result.NewCommits).
		Int("rotated", len(stale)).
		Int("linked_issues", len(result.LinkedIssues)).
		Msg("record persisted")

	return nil
}

func (r *Reporter) notify(ctx context.Context, doc *report.Document, result *RunResult) {
	if r.notifier == nil {
		return
	}

	err := r.notifier.ReportUpdated(ctx, ReportUpdate{
		Repo:        r.cfg.Repo,
		Day:         result.Day,
		URL:         result.IssueURL,
		IssueNumber: result.IssueNumber,
		Created:     result.Created,
		NewCommits:  result.NewCommits,
		OpenTodos:   len(doc.Ledger.Unchecked()),
	})
	if err != nil {
		r.log.Warn().Ctx(ctx).Err(err).Msg("notify failed")
	}
}

func (r *Reporter) recordTitle(day string) string {
	_, name, _ := strings.Cut(r.cfg.Repo, "/")
	return fmt.Sprintf("%s (%s) - %s", r.cfg.Report.TitlePrefix, day, name)
}

// uncheckedEntries returns the open items of a ledger with their
// checked state reset, ready to merge into the next day.
func uncheckedEntries(l *ledger.Ledger) []ledger.Entry {
	var out []ledger.Entry
	for _, e := range l.Unchecked() {
		e.Checked = false
		out = append(out, e)
	}
	return out
}
