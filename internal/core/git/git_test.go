package git

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/daylog/pkg/executil"
)

// scriptedExecutor returns queued outputs in call order. The
// RecordingExecutor keys outputs by command name, which is too coarse
// for methods that issue several git calls.
type scriptedExecutor struct {
	executil.RecordingExecutor
	queue [][]byte
}

func (e *scriptedExecutor) Run(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	return e.next(ctx, "", cmd, args...)
}

func (e *scriptedExecutor) RunDir(ctx context.Context, dir, cmd string, args ...string) ([]byte, error) {
	return e.next(ctx, dir, cmd, args...)
}

func (e *scriptedExecutor) next(ctx context.Context, dir, cmd string, args ...string) ([]byte, error) {
	n := len(e.Commands)
	_, err := e.RecordingExecutor.RunDir(ctx, dir, cmd, args...)
	if err != nil {
		return nil, err
	}
	if n < len(e.queue) {
		return e.queue[n], nil
	}
	return nil, nil
}

func logOutput(records ...[]string) []byte {
	var b strings.Builder
	for _, r := range records {
		b.WriteString(strings.Join(r, fieldSep))
		b.WriteString(recordSep)
		b.WriteString("\n")
	}
	return []byte(b.String())
}

func TestCurrentBranch(t *testing.T) {
	t.Run("checked out branch", func(t *testing.T) {
		exec := &scriptedExecutor{queue: [][]byte{[]byte("feature/login\n")}}
		g := NewExecutor("git", exec)

		branch, err := g.CurrentBranch(context.Background(), "/repo")
		require.NoError(t, err)
		assert.Equal(t, "feature/login", branch)

		require.Len(t, exec.Commands, 1)
		assert.Equal(t, "/repo", exec.Commands[0].Dir)
		assert.Equal(t, []string{"branch", "--show-current"}, exec.Commands[0].Args)
	})

	t.Run("detached head falls back to short sha", func(t *testing.T) {
		exec := &scriptedExecutor{queue: [][]byte{[]byte("\n"), []byte("abc1234\n")}}
		g := NewExecutor("git", exec)

		branch, err := g.CurrentBranch(context.Background(), "/repo")
		require.NoError(t, err)
		assert.Equal(t, "abc1234", branch)

		require.Len(t, exec.Commands, 2)
		assert.Equal(t, []string{"rev-parse", "--short", "HEAD"}, exec.Commands[1].Args)
	})
}

func TestHead(t *testing.T) {
	exec := &executil.RecordingExecutor{
		Outputs: map[string][]byte{"git": []byte("deadbeefcafe\n")},
	}
	g := NewExecutor("git", exec)

	sha, err := g.Head(context.Background(), "/repo")
	require.NoError(t, err)
	assert.Equal(t, "deadbeefcafe", sha)
}

func TestCommitsOnDay(t *testing.T) {
	out := logOutput(
		[]string{"aaa111", "alice", "2026-08-26T15:04:05+02:00", "[feat] add login\n\n[Body]\nwire sessions\n"},
		[]string{"bbb222", "bob", "2026-08-26T09:30:00+02:00", "[fix] patch auth"},
	)
	exec := &executil.RecordingExecutor{Outputs: map[string][]byte{"git": out}}
	g := NewExecutor("git", exec)

	loc := time.FixedZone("CEST", 2*60*60)
	day := time.Date(2026, 8, 26, 12, 0, 0, 0, loc)

	commits, err := g.CommitsOnDay(context.Background(), "/repo", "main", day, loc)
	require.NoError(t, err)
	require.Len(t, commits, 2)

	assert.Equal(t, "aaa111", commits[0].SHA)
	assert.Equal(t, "alice", commits[0].Author)
	assert.Equal(t, "[feat] add login", commits[0].Title())
	assert.Equal(t, 15, commits[0].Time.Hour())
	assert.Contains(t, commits[0].Message, "wire sessions")

	assert.Equal(t, "bbb222", commits[1].SHA)
	assert.False(t, commits[1].IsMerge())

	require.Len(t, exec.Commands, 1)
	args := exec.Commands[0].Args
	assert.Contains(t, args, "--since=2026-08-26T00:00:00+02:00")
	assert.Contains(t, args, "--until=2026-08-27T00:00:00+02:00")
}

func TestCommitsOnDay_EmptyOutput(t *testing.T) {
	exec := &executil.RecordingExecutor{Outputs: map[string][]byte{"git": []byte("")}}
	g := NewExecutor("git", exec)

	commits, err := g.CommitsOnDay(context.Background(), "/repo", "main", time.Now(), time.UTC)
	require.NoError(t, err)
	assert.Empty(t, commits)
}

func TestMergeParents(t *testing.T) {
	exec := &executil.RecordingExecutor{
		Outputs: map[string][]byte{"git": []byte("aaa111 bbb222\n")},
	}
	g := NewExecutor("git", exec)

	parents, err := g.MergeParents(context.Background(), "/repo", "ccc333")
	require.NoError(t, err)
	assert.Equal(t, []string{"aaa111", "bbb222"}, parents)
}

func TestCommitsBetween(t *testing.T) {
	out := logOutput(
		[]string{"ddd444", "alice", "2026-08-26T11:00:00Z", "[chore] bump deps"},
	)
	exec := &executil.RecordingExecutor{Outputs: map[string][]byte{"git": out}}
	g := NewExecutor("git", exec)

	commits, err := g.CommitsBetween(context.Background(), "/repo", "aaa111", "bbb222")
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, "ddd444", commits[0].SHA)

	require.Len(t, exec.Commands, 1)
	assert.Contains(t, exec.Commands[0].Args, "aaa111..bbb222")
}

func TestCommitIsMerge(t *testing.T) {
	assert.True(t, Commit{Message: "Merge branch 'develop' into main"}.IsMerge())
	assert.True(t, Commit{Message: "Merge pull request #12 from fork/fix"}.IsMerge())
	assert.False(t, Commit{Message: "[feat] merge user accounts"}.IsMerge())
}

func TestParseLog_SkipsMalformedRecords(t *testing.T) {
	out := []byte("garbage without separators" + recordSep +
		"aaa111" + fieldSep + "alice" + fieldSep + "not-a-time" + fieldSep + "msg" + recordSep +
		"bbb222" + fieldSep + "bob" + fieldSep + "2026-08-26T10:00:00Z" + fieldSep + "[fix] ok" + recordSep)

	commits := parseLog(out)
	require.Len(t, commits, 1)
	assert.Equal(t, "bbb222", commits[0].SHA)
}
