package journal

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/execdesk/execdesk/internal/domain/journal"
)

func entryAt(at time.Time, text string, units int) domain.Entry {
	return domain.Entry{
		ID:    uuid.New(),
		At:    at,
		Text:  text,
		Units: units,
	}
}

func TestSummaryCountsOneDay(t *testing.T) {
	ctx := context.Background()
	store, err := Open(t.TempDir(), "acme", nil, zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	today := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	require.NoError(t, store.Append(ctx, domain.KindDecision, entryAt(today, "planned 3 tasks", 0)))
	require.NoError(t, store.Append(ctx, domain.KindDecision, entryAt(today.Add(time.Hour), "routed to pool", 0)))
	require.NoError(t, store.Append(ctx, domain.KindExecution, entryAt(today, "item executed", 0)))
	require.NoError(t, store.Append(ctx, domain.KindGeneration, entryAt(today, "plan generated", 1200)))
	require.NoError(t, store.Append(ctx, domain.KindGeneration, entryAt(today, "task executed", 800)))
	// Yesterday's activity must not leak into today's summary.
	require.NoError(t, store.Append(ctx, domain.KindDecision, entryAt(yesterday, "stale", 0)))
	require.NoError(t, store.Append(ctx, domain.KindGeneration, entryAt(yesterday, "stale", 9999)))

	sum, err := store.Summary(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01", sum.Date)
	assert.Equal(t, 2, sum.Decisions)
	assert.Equal(t, 1, sum.Executions)
	assert.Equal(t, 0, sum.Events)
	assert.Equal(t, 2, sum.GenerationCalls)
	assert.Equal(t, 2000, sum.GenerationUnits)
}

func TestAppendRejectsDuplicateKey(t *testing.T) {
	ctx := context.Background()
	store, err := Open(t.TempDir(), "acme", nil, zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	e := entryAt(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), "once", 0)
	require.NoError(t, store.Append(ctx, domain.KindEvent, e))
	err = store.Append(ctx, domain.KindEvent, e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already written")
}

func TestAppendSignsWhenKeyed(t *testing.T) {
	ctx := context.Background()
	key := []byte("journal-signing-key")
	store, err := Open(t.TempDir(), "acme", key, zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	e := entryAt(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), "signed decision", 0)
	require.NoError(t, store.Append(ctx, domain.KindDecision, e))

	// Recompute the signature the reader would verify against.
	sig, err := domain.Sign(domain.KindDecision, &e, key)
	require.NoError(t, err)
	signed := e
	signed.Signature = sig
	ok, err := domain.Verify(domain.KindDecision, &signed, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStoresAreIndependentPerOrg(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a, err := Open(dir, "acme", nil, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()
	b, err := Open(dir, "globex", nil, zerolog.Nop())
	require.NoError(t, err)
	defer b.Close()

	day := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, a.Append(ctx, domain.KindDecision, entryAt(day, "acme only", 0)))

	sum, err := b.Summary(ctx, day)
	require.NoError(t, err)
	assert.Zero(t, sum.Decisions)
}
