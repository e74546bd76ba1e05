package orchestrator

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/execdesk/execdesk/internal/generation"
)

func TestSchedulerWritesCycleStats(t *testing.T) {
	h := newHarness(t, &generation.StaticClient{})
	statsDir := t.TempDir()
	statsPath := filepath.Join(statsDir, "testorg_cycle_stats.json")

	sched := NewScheduler([]*Orchestrator{h.orch}, time.Hour, statsDir, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- sched.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(statsPath)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	data, err := os.ReadFile(statsPath)
	require.NoError(t, err)
	var sum CycleSummary
	require.NoError(t, json.Unmarshal(data, &sum))
	assert.Equal(t, "testorg", sum.Org)
	assert.GreaterOrEqual(t, sum.PlannedItems, 1)
	require.NotEmpty(t, sum.Results)
}
