package statefile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/execdesk/execdesk/internal/domain/workitem"
)

func newItem(title string) *workitem.WorkItem {
	return workitem.New(workitem.Draft{
		Title:       title,
		Description: title + " in full",
		Domain:      "general",
		Priority:    3,
		Tool:        workitem.ToolLog,
	}, time.Now().UTC())
}

func TestTasksStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewTasksStore(dir, "acme", zerolog.Nop())
	require.NoError(t, err)

	parent := newItem("parent")
	child := newItem("child")
	require.NoError(t, store.Create(ctx, parent))
	require.NoError(t, store.Create(ctx, child))
	require.NoError(t, store.Link(ctx, parent.ID, child.ID))
	require.NoError(t, store.SetReview(ctx, child.ID, workitem.ReviewRecord{
		Status:     workitem.ReviewAwaiting,
		ReviewedBy: "pool:content_writer",
	}))

	// A fresh open reads everything back from disk.
	reopened, err := NewTasksStore(dir, "acme", zerolog.Nop())
	require.NoError(t, err)

	got, err := reopened.GetByID(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, "parent", got.Title)

	children, err := reopened.Children(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, child.ID, children[0])

	parentID, ok, err := reopened.ParentOf(ctx, child.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, parent.ID, parentID)

	rec, err := reopened.Review(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, workitem.ReviewAwaiting, rec.Status)
	assert.Equal(t, "pool:content_writer", rec.ReviewedBy)

	_, err = reopened.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, workitem.ErrNotFound)
}

func TestTasksStoreToleratesCorruptDocument(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "acme_tasks.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json at all"), 0o644))

	store, err := NewTasksStore(dir, "acme", zerolog.Nop())
	require.NoError(t, err)

	items, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	// The store stays usable and overwrites the bad file.
	item := newItem("recovered")
	require.NoError(t, store.Create(ctx, item))

	reopened, err := NewTasksStore(dir, "acme", zerolog.Nop())
	require.NoError(t, err)
	got, err := reopened.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "recovered", got.Title)
}

func TestTasksStoreOrgIsolation(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	a, err := NewTasksStore(dir, "acme", zerolog.Nop())
	require.NoError(t, err)
	b, err := NewTasksStore(dir, "globex", zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, a.Create(ctx, newItem("acme only")))

	items, err := b.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestTasksStoreReturnsDetachedItems(t *testing.T) {
	ctx := context.Background()
	store, err := NewTasksStore(t.TempDir(), "acme", zerolog.Nop())
	require.NoError(t, err)

	item := newItem("original")
	require.NoError(t, store.Create(ctx, item))

	// Editing a lookup result must not leak into the document until Update.
	got, err := store.GetByID(ctx, item.ID)
	require.NoError(t, err)
	got.Title = "edited"
	got.Status = workitem.StatusBlocked

	fresh, err := store.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", fresh.Title)
	assert.Equal(t, workitem.StatusTodo, fresh.Status)

	require.NoError(t, store.Update(ctx, got))
	fresh, err = store.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", fresh.Title)

	// List results are detached the same way.
	listed, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	listed[0].Title = "scribbled over"
	fresh, err = store.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", fresh.Title)
}
