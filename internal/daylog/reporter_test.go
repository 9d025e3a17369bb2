package daylog

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/daylog/internal/core/config"
	"github.com/colonyops/daylog/internal/core/git"
	"github.com/colonyops/daylog/internal/data/issuestore"
)

// fakeGit serves canned history.
type fakeGit struct {
	branch  string
	commits []git.Commit
	parents map[string][]string
	between map[string][]git.Commit
}

func (f *fakeGit) CurrentBranch(ctx context.Context, dir string) (string, error) {
	return f.branch, nil
}

func (f *fakeGit) CommitsOnDay(ctx context.Context, dir, rev string, day time.Time, loc *time.Location) ([]git.Commit, error) {
	return f.commits, nil
}

func (f *fakeGit) MergeParents(ctx context.Context, dir, sha string) ([]string, error) {
	return f.parents[sha], nil
}

func (f *fakeGit) CommitsBetween(ctx context.Context, dir, from, to string) ([]git.Commit, error) {
	return f.between[from+".."+to], nil
}

var testDay = time.Date(2026, 8, 26, 16, 0, 0, 0, time.UTC)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Repo = "colonyops/daylog"
	cfg.Timezone = "UTC"
	cfg.DataDir = t.TempDir()
	require.NoError(t, cfg.Validate())
	return &cfg
}

func newTestReporter(t *testing.T, store issuestore.Store, g GitSource) *Reporter {
	t.Helper()
	r := NewReporter(testConfig(t), store, g, "/repo", nil)
	r.now = func() time.Time { return testDay }
	return r
}

func commit(sha, author, message string) git.Commit {
	return git.Commit{
		SHA:     sha,
		Author:  author,
		Time:    testDay.Add(-time.Hour),
		Message: message,
	}
}

func TestRun_CreatesRecordForFirstCommit(t *testing.T) {
	store := issuestore.NewMemory()
	g := &fakeGit{
		branch:  "main",
		commits: []git.Commit{commit("aaa111full", "alice", "[feat(auth)] add login\n\n[Todo]\n@Security\n- add 2FA")},
	}

	result, err := newTestReporter(t, store, g).Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.True(t, result.Created)
	assert.Equal(t, 1, result.NewCommits)
	assert.Equal(t, "2026-08-26", result.Day)

	rec, err := store.Get(context.Background(), result.IssueNumber)
	require.NoError(t, err)
	assert.Equal(t, "📅 Development Status Report (2026-08-26) - daylog", rec.Title)
	assert.True(t, rec.HasLabel("DSR"))
	assert.True(t, rec.HasLabel("branch:main"))
	assert.Contains(t, rec.Body, "add login")
	assert.Contains(t, rec.Body, "- [ ] add 2FA")
	assert.Contains(t, rec.Body, "📑 Security (0/1)")
}

func TestRun_AppendsToExistingRecordWithoutDuplicates(t *testing.T) {
	store := issuestore.NewMemory()
	g := &fakeGit{
		branch:  "main",
		commits: []git.Commit{commit("aaa111full", "alice", "[feat] add login")},
	}
	r := newTestReporter(t, store, g)

	first, err := r.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	require.True(t, first.Created)

	// Second run on the same day sees the same commit plus a new one.
	g.commits = append(g.commits, commit("bbb222full", "alice", "[fix] patch session"))

	second, err := r.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.False(t, second.Created)
	assert.Equal(t, first.IssueNumber, second.IssueNumber)
	assert.Equal(t, 1, second.NewCommits, "already-recorded commit must not be re-added")
	assert.Equal(t, 1, second.SkippedCommit)

	rec, err := store.Get(context.Background(), second.IssueNumber)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(rec.Body, "add login"))
	assert.Contains(t, rec.Body, "patch session")
}

func TestRun_ZeroChangesWritesNothing(t *testing.T) {
	store := issuestore.NewMemory()
	g := &fakeGit{branch: "main", commits: []git.Commit{commit("aaa111full", "alice", "[feat] add login")}}
	r := newTestReporter(t, store, g)

	first, err := r.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	before, err := store.Get(context.Background(), first.IssueNumber)
	require.NoError(t, err)

	// Same commits, nothing new.
	second, err := r.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.True(t, second.NoChanges)

	after, err := store.Get(context.Background(), first.IssueNumber)
	require.NoError(t, err)
	assert.Equal(t, before.Body, after.Body)
}

func TestRun_NothingToReportCreatesNoRecord(t *testing.T) {
	store := issuestore.NewMemory()
	g := &fakeGit{branch: "main"}

	result, err := newTestReporter(t, store, g).Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.True(t, result.NoChanges)

	open, err := store.ListOpen(context.Background(), "DSR")
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestRun_RotatesStaleRecordAndCarriesTodos(t *testing.T) {
	store := issuestore.NewMemory()
	stale := store.Seed(issuestore.Record{
		Title:  "📅 Development Status Report (2026-08-25) - daylog",
		Labels: []string{"DSR"},
		Body: "## 📝 Todo\n\n<details>\n<summary>📑 Security (1/2)</summary>\n\n" +
			"- [ ] add 2FA\n- [x] rotate keys\n\n⚫\n</details>\n",
	})

	g := &fakeGit{branch: "main", commits: []git.Commit{commit("ccc333full", "alice", "[feat] new day")}}

	result, err := newTestReporter(t, store, g).Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.True(t, result.Created)
	assert.Equal(t, []int{stale.Number}, result.Rotated)
	assert.Equal(t, 1, result.CarriedTodos)

	// Stale record is closed with a pointer to the new one.
	old, err := store.Get(context.Background(), stale.Number)
	require.NoError(t, err)
	assert.Equal(t, issuestore.StateClosed, old.State)
	require.Len(t, store.Comments[stale.Number], 1)
	assert.Contains(t, store.Comments[stale.Number][0], fmt.Sprintf("#%d", result.IssueNumber))

	// Only the unchecked item carried over, unchecked.
	fresh, err := store.Get(context.Background(), result.IssueNumber)
	require.NoError(t, err)
	assert.Contains(t, fresh.Body, "- [ ] add 2FA")
	assert.NotContains(t, fresh.Body, "rotate keys")
}

func TestRun_OnlyNewestStaleRecordCarriesForward(t *testing.T) {
	store := issuestore.NewMemory()
	// Seed the newer-dated record first so it gets the lower number;
	// the carry source must be picked by date, not list position.
	newer := store.Seed(issuestore.Record{
		Title:  "📅 Development Status Report (2026-08-25) - daylog",
		Labels: []string{"DSR"},
		Body:   "## 📝 Todo\n\n<details>\n<summary>📑 General (0/1)</summary>\n\n- [ ] fresh item\n\n⚫\n</details>\n",
	})
	older := store.Seed(issuestore.Record{
		Title:  "📅 Development Status Report (2026-08-20) - daylog",
		Labels: []string{"DSR"},
		Body:   "## 📝 Todo\n\n<details>\n<summary>📑 General (0/1)</summary>\n\n- [ ] ancient item\n\n⚫\n</details>\n",
	})

	g := &fakeGit{branch: "main"}

	result, err := newTestReporter(t, store, g).Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.ElementsMatch(t, []int{newer.Number, older.Number}, result.Rotated)
	assert.Equal(t, 1, result.CarriedTodos)

	fresh, err := store.Get(context.Background(), result.IssueNumber)
	require.NoError(t, err)
	assert.Contains(t, fresh.Body, "- [ ] fresh item")
	assert.NotContains(t, fresh.Body, "ancient item", "only the most recent prior record carries forward")

	// Both stale records close regardless of which one carried.
	for _, n := range []int{newer.Number, older.Number} {
		old, err := store.Get(context.Background(), n)
		require.NoError(t, err)
		assert.Equal(t, issuestore.StateClosed, old.State)
	}
}

func TestRun_CarriedCategoriesRenderAfterTodayCategories(t *testing.T) {
	store := issuestore.NewMemory()
	store.Seed(issuestore.Record{
		Title:  "📅 Development Status Report (2026-08-25) - daylog",
		Labels: []string{"DSR"},
		Body:   "## 📝 Todo\n\n<details>\n<summary>📑 Backlog (0/1)</summary>\n\n- [ ] carried item\n\n⚫\n</details>\n",
	})

	g := &fakeGit{
		branch:  "main",
		commits: []git.Commit{commit("aaa111full", "alice", "[feat] add login\n\n[Todo]\n@Security\n- add 2FA")},
	}

	result, err := newTestReporter(t, store, g).Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	rec, err := store.Get(context.Background(), result.IssueNumber)
	require.NoError(t, err)
	assert.Contains(t, rec.Body, "- [ ] carried item")

	security := strings.Index(rec.Body, "📑 Security")
	backlog := strings.Index(rec.Body, "📑 Backlog")
	require.GreaterOrEqual(t, security, 0)
	require.GreaterOrEqual(t, backlog, 0)
	assert.Less(t, security, backlog, "today's categories come before carried-only categories")
}

func TestRun_RotationWithoutCommitsStillPersists(t *testing.T) {
	store := issuestore.NewMemory()
	stale := store.Seed(issuestore.Record{
		Title:  "📅 Development Status Report (2026-08-24) - daylog",
		Labels: []string{"DSR"},
		Body:   "## 📝 Todo\n\n<details>\n<summary>📑 General (0/1)</summary>\n\n- [ ] leftover\n\n⚫\n</details>\n",
	})

	g := &fakeGit{branch: "main"}

	result, err := newTestReporter(t, store, g).Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.False(t, result.NoChanges)
	assert.True(t, result.Created)

	old, err := store.Get(context.Background(), stale.Number)
	require.NoError(t, err)
	assert.Equal(t, issuestore.StateClosed, old.State)

	fresh, err := store.Get(context.Background(), result.IssueNumber)
	require.NoError(t, err)
	assert.Contains(t, fresh.Body, "- [ ] leftover")
}

func TestRun_MergeCommitExpansion(t *testing.T) {
	store := issuestore.NewMemory()
	g := &fakeGit{
		branch: "main",
		commits: []git.Commit{
			commit("mmm111full", "alice", "Merge branch 'feature/login' into main"),
		},
		parents: map[string][]string{
			"mmm111full": {"ppp111full", "qqq222full"},
		},
		between: map[string][]git.Commit{
			"ppp111full..mmm111full": {
				commit("mmm111full", "alice", "Merge branch 'feature/login' into main"),
				commit("ddd444full", "bob", "[feat] add login form"),
				commit("eee555full", "bob", "[test] cover login form"),
			},
		},
	}

	result, err := newTestReporter(t, store, g).Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.NewCommits)

	rec, err := store.Get(context.Background(), result.IssueNumber)
	require.NoError(t, err)
	assert.Contains(t, rec.Body, "add login form")
	assert.Contains(t, rec.Body, "cover login form")
	assert.NotContains(t, rec.Body, "Merge branch")
}

func TestRun_Filters(t *testing.T) {
	cfgMut := func(cfg *config.Config) {
		cfg.Report.ExcludedTypes = []string{"chore"}
	}

	store := issuestore.NewMemory()
	g := &fakeGit{
		branch: "main",
		commits: []git.Commit{
			commit("aaa111full", "alice", "[feat] keep me"),
			commit("bbb222full", "renovate[bot]", "[chore] bump deps"),
			commit("ccc333full", "alice", "[chore] tidy\n\n[Todo]\n- follow up on tidy"),
			commit("ddd444full", "alice", "[fix] secret thing [skip-automation]"),
			commit("eee555full", "alice", "plain unstructured message"),
		},
	}

	r := newTestReporter(t, store, g)
	cfgMut(r.cfg)

	result, err := r.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.NewCommits)
	assert.Equal(t, 4, result.SkippedCommit)

	rec, err := store.Get(context.Background(), result.IssueNumber)
	require.NoError(t, err)
	assert.Contains(t, rec.Body, "keep me")
	assert.NotContains(t, rec.Body, "bump deps")
	assert.NotContains(t, rec.Body, "secret thing")
	// Excluded types still contribute their todos.
	assert.Contains(t, rec.Body, "- [ ] follow up on tidy")
}

func TestRun_BranchExcluded(t *testing.T) {
	store := issuestore.NewMemory()
	g := &fakeGit{branch: "dependabot/npm/lodash", commits: []git.Commit{commit("a", "alice", "[feat] x")}}

	result, err := newTestReporter(t, store, g).Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.True(t, result.BranchSkipped)

	open, err := store.ListOpen(context.Background(), "DSR")
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	store := issuestore.NewMemory()
	g := &fakeGit{branch: "main", commits: []git.Commit{commit("aaa111full", "alice", "[feat] add login")}}

	result, err := newTestReporter(t, store, g).Run(context.Background(), RunOptions{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, 1, result.NewCommits)
	assert.Contains(t, result.Body, "add login")

	open, err := store.ListOpen(context.Background(), "DSR")
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestRun_PromotesTodoToLinkedIssue(t *testing.T) {
	store := issuestore.NewMemory()
	g := &fakeGit{
		branch:  "main",
		commits: []git.Commit{commit("aaa111full", "alice", "[feat] add login\n\n[Todo]\n- harden rate limiting (issue)")},
	}

	result, err := newTestReporter(t, store, g).Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	require.Len(t, result.LinkedIssues, 1)
	linked, err := store.Get(context.Background(), result.LinkedIssues[0])
	require.NoError(t, err)
	assert.Equal(t, "harden rate limiting", linked.Title)
	assert.Contains(t, linked.Body, fmt.Sprintf("#%d", result.IssueNumber))

	rec, err := store.Get(context.Background(), result.IssueNumber)
	require.NoError(t, err)
	assert.Contains(t, rec.Body, fmt.Sprintf("- [ ] #%d", linked.Number))
	assert.NotContains(t, rec.Body, "(issue)")
}

func TestRun_NotifierReceivesSummary(t *testing.T) {
	store := issuestore.NewMemory()
	g := &fakeGit{branch: "main", commits: []git.Commit{commit("aaa111full", "alice", "[feat] add login")}}

	var got *ReportUpdate
	r := NewReporter(testConfig(t), store, g, "/repo", notifierFunc(func(ctx context.Context, u ReportUpdate) error {
		got = &u
		return nil
	}))
	r.now = func() time.Time { return testDay }

	result, err := r.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, result.IssueNumber, got.IssueNumber)
	assert.Equal(t, "2026-08-26", got.Day)
	assert.Equal(t, 1, got.NewCommits)
	assert.True(t, got.Created)
}

type notifierFunc func(ctx context.Context, update ReportUpdate) error

func (f notifierFunc) ReportUpdated(ctx context.Context, update ReportUpdate) error {
	return f(ctx, update)
}
