package issuestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	rec, err := store.Create(ctx, NewIssue{Title: "t", Body: "b", Labels: []string{"DSR"}})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Number)
	assert.Equal(t, StateOpen, rec.State)

	got, err := store.Get(ctx, rec.Number)
	require.NoError(t, err)
	assert.Equal(t, "t", got.Title)
}

func TestMemory_GetMissing(t *testing.T) {
	_, err := NewMemory().Get(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_ListOpen(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	first, err := store.Create(ctx, NewIssue{Title: "a", Labels: []string{"DSR"}})
	require.NoError(t, err)
	_, err = store.Create(ctx, NewIssue{Title: "b", Labels: []string{"DSR"}})
	require.NoError(t, err)
	_, err = store.Create(ctx, NewIssue{Title: "c"})
	require.NoError(t, err)

	require.NoError(t, store.Close(ctx, first.Number))

	records, err := store.ListOpen(ctx, "DSR")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "b", records[0].Title)
}

func TestMemory_UpdateCommentLabels(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	rec, err := store.Create(ctx, NewIssue{Title: "t"})
	require.NoError(t, err)

	require.NoError(t, store.UpdateBody(ctx, rec.Number, "new body"))
	require.NoError(t, store.Comment(ctx, rec.Number, "hello"))
	require.NoError(t, store.AddLabels(ctx, rec.Number, []string{"x", "x"}))

	got, err := store.Get(ctx, rec.Number)
	require.NoError(t, err)
	assert.Equal(t, "new body", got.Body)
	assert.Equal(t, []string{"x"}, got.Labels)
	assert.Equal(t, []string{"hello"}, store.Comments[rec.Number])
}
