package daylog

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/daylog/internal/data/issuestore"
)

func seedRecordWithTodos(store *issuestore.Memory, body string) issuestore.Record {
	return store.Seed(issuestore.Record{
		Title:  "📅 Development Status Report (2026-08-26) - daylog",
		Labels: []string{"DSR"},
		Body:   body,
	})
}

func TestSync_ChecksBoxWhenLinkedIssueClosed(t *testing.T) {
	store := issuestore.NewMemory()
	store.Seed(issuestore.Record{Number: 10, Title: "harden rate limiting", State: issuestore.StateClosed})

	rec := seedRecordWithTodos(store,
		"## 📝 Todo\n\n<details>\n<summary>📑 General (0/1)</summary>\n\n- [ ] #10\n\n⚫\n</details>\n")

	result, err := NewSyncer(testConfig(t), store).Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, rec.Number, result.IssueNumber)
	assert.Equal(t, []string{"#10"}, result.Checked)
	assert.Empty(t, result.ClosedIssues)

	got, err := store.Get(context.Background(), rec.Number)
	require.NoError(t, err)
	assert.Contains(t, got.Body, "- [x] #10")
	assert.Contains(t, got.Body, "📑 General (1/1)")
}

func TestSync_ClosesLinkedIssueWhenBoxChecked(t *testing.T) {
	store := issuestore.NewMemory()
	linked := store.Seed(issuestore.Record{Number: 10, Title: "harden rate limiting", State: issuestore.StateOpen})

	rec := seedRecordWithTodos(store,
		"## 📝 Todo\n\n<details>\n<summary>📑 General (1/1)</summary>\n\n- [x] #10\n\n⚫\n</details>\n")

	result, err := NewSyncer(testConfig(t), store).Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []int{10}, result.ClosedIssues)

	got, err := store.Get(context.Background(), linked.Number)
	require.NoError(t, err)
	assert.Equal(t, issuestore.StateClosed, got.State)
	require.Len(t, store.Comments[linked.Number], 1)
	assert.Contains(t, store.Comments[linked.Number][0], fmt.Sprintf("#%d", rec.Number))
}

func TestSync_DryRunTouchesNothing(t *testing.T) {
	store := issuestore.NewMemory()
	store.Seed(issuestore.Record{Number: 10, State: issuestore.StateOpen})
	rec := seedRecordWithTodos(store,
		"## 📝 Todo\n\n<details>\n<summary>📑 General (1/1)</summary>\n\n- [x] #10\n\n⚫\n</details>\n")

	result, err := NewSyncer(testConfig(t), store).Run(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, []int{10}, result.ClosedIssues)

	linked, err := store.Get(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, issuestore.StateOpen, linked.State)

	got, err := store.Get(context.Background(), rec.Number)
	require.NoError(t, err)
	assert.Equal(t, rec.Body, got.Body)
}

func TestSync_NoOpenRecord(t *testing.T) {
	result, err := NewSyncer(testConfig(t), issuestore.NewMemory()).Run(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, result.NoRecord)
}

func TestSync_IgnoresPlainTodos(t *testing.T) {
	store := issuestore.NewMemory()
	rec := seedRecordWithTodos(store,
		"## 📝 Todo\n\n<details>\n<summary>📑 General (0/1)</summary>\n\n- [ ] plain task\n\n⚫\n</details>\n")

	result, err := NewSyncer(testConfig(t), store).Run(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, result.Checked)
	assert.Empty(t, result.ClosedIssues)

	got, err := store.Get(context.Background(), rec.Number)
	require.NoError(t, err)
	assert.Equal(t, rec.Body, got.Body)
}

func TestSync_PicksMostRecentOpenRecord(t *testing.T) {
	store := issuestore.NewMemory()
	seedRecordWithTodos(store, "old body")
	older := store.Seed(issuestore.Record{
		Title:  "📅 Development Status Report (2026-08-20) - daylog",
		Labels: []string{"DSR"},
		Body:   "",
	})

	result, err := NewSyncer(testConfig(t), store).Run(context.Background(), false)
	require.NoError(t, err)
	assert.NotEqual(t, older.Number, result.IssueNumber)
}
