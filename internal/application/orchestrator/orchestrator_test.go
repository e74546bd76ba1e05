package orchestrator

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/execdesk/execdesk/internal/application/kpi"
	"github.com/execdesk/execdesk/internal/application/learning"
	"github.com/execdesk/execdesk/internal/application/pool"
	"github.com/execdesk/execdesk/internal/application/router"
	"github.com/execdesk/execdesk/internal/application/tasks"
	"github.com/execdesk/execdesk/internal/config"
	"github.com/execdesk/execdesk/internal/domain/event"
	"github.com/execdesk/execdesk/internal/domain/workitem"
	"github.com/execdesk/execdesk/internal/generation"
	"github.com/execdesk/execdesk/internal/generation/mocks"
	journalstore "github.com/execdesk/execdesk/internal/infrastructure/journal"
	"github.com/execdesk/execdesk/internal/infrastructure/metricsdb"
	"github.com/execdesk/execdesk/internal/infrastructure/statefile"
	"github.com/execdesk/execdesk/internal/roles"
)

type harness struct {
	orch  *Orchestrator
	tasks *tasks.Service
	learn *learning.Service
}

func newHarness(t *testing.T, gen generation.Client) *harness {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	jstore, err := journalstore.Open(dir, "testorg", nil, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = jstore.Close() })
	mstore, err := metricsdb.Open(dir, "testorg", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = mstore.Close() })
	taskStore, err := statefile.NewTasksStore(dir, "testorg", zerolog.Nop())
	require.NoError(t, err)
	staffStore, err := statefile.NewStaffStore(dir, "testorg", zerolog.Nop())
	require.NoError(t, err)
	learnStore, err := statefile.NewLearningStore(dir, "testorg", zerolog.Nop())
	require.NoError(t, err)

	profile := config.OrgProfile{Name: "Test Co", NorthStarMetric: "weekly_active_users"}
	reg := roles.NewRegistry(roles.Defaults())

	tasksSvc := tasks.NewService(taskStore, jstore, zerolog.Nop())
	poolSvc := pool.NewService(staffStore, reg, jstore, zerolog.Nop())
	routeSvc := router.NewService(reg, poolSvc, tasksSvc, gen, jstore, zerolog.Nop())
	kpiSvc := kpi.NewService(mstore, profile.Thresholds, jstore, zerolog.Nop())
	learnSvc, err := learning.NewService(ctx, learnStore, zerolog.Nop())
	require.NoError(t, err)

	orch := New("testorg", profile, gen, tasksSvc, routeSvc, poolSvc, kpiSvc, learnSvc,
		jstore, nil, nil, zerolog.Nop())
	return &harness{orch: orch, tasks: tasksSvc, learn: learnSvc}
}

func TestCycle(t *testing.T) {
	ctx := context.Background()
	plan := "PLAN:\n- ship the campaign\n\nTASKS:\n" +
		"1. [marketing, Virtual Growth Marketer, P2] Launch campaign – Run the spring push\n" +
		"2. File the quarterly report\n"
	gen := &generation.StaticClient{Responses: []string{plan, "campaign brief drafted"}}
	h := newHarness(t, gen)

	sum, err := h.orch.Cycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, "testorg", sum.Org)
	assert.Equal(t, 2, sum.PlannedItems)
	require.Len(t, sum.Results, 2)
	for _, r := range sum.Results {
		assert.Equal(t, router.ResultDone, r.Status)
	}

	// The pool item awaits review; the fallback item was closed directly.
	awaiting, err := h.tasks.AwaitingReview(ctx)
	require.NoError(t, err)
	require.Len(t, awaiting, 1)
	assert.Equal(t, "Launch campaign", awaiting[0].Title)

	assert.GreaterOrEqual(t, sum.Reflection.Decisions, 1)
	assert.GreaterOrEqual(t, sum.Reflection.GenerationCalls, 1)
}

func TestPlanDayWithoutTaskBlock(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	gen := mocks.NewMockClient(ctrl)
	gen.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("Everything looks healthy, nothing to delegate today.", nil)

	h := newHarness(t, gen)
	created, err := h.orch.PlanDay(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestIngestEvent(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	gen := mocks.NewMockClient(ctrl)
	gen.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("TASKS:\n1. [general, nobody in particular, P1] Notify affected customers – Send the outage apology\n", nil)

	h := newHarness(t, gen)
	ev := event.New("outage.resolved", map[string]any{"region": "eu-west", "minutes": 42})

	results, err := h.orch.IngestEvent(ctx, ev)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, router.ResultDone, results[0].Status)

	tree, err := h.tasks.OpenTaskTree(ctx)
	require.NoError(t, err)
	assert.Empty(t, tree, "event items were executed, not left open")
}

func TestReviewFeedsLearning(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	gen := mocks.NewMockClient(ctrl)
	gen.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).Return("post drafted", nil)

	h := newHarness(t, gen)
	item, err := h.tasks.Create(ctx, workitem.Draft{
		Title:       "Draft launch post",
		Description: "Write the launch announcement",
		Domain:      "content",
		Owner:       "Virtual Growth Marketer",
		Priority:    2,
		Tool:        workitem.ToolLog,
	})
	require.NoError(t, err)

	results, err := h.orch.RunPending(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, router.ResultDone, results[0].Status)

	require.NoError(t, h.orch.Review(ctx, item.ID, true, "operator", "ship it"))

	got, err := h.tasks.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, workitem.StatusDone, got.Status)
	assert.True(t, got.Approved)

	patterns := h.learn.Patterns()
	require.Len(t, patterns, 1)
	assert.Equal(t, "pool", patterns[0].ExecutorType)
	assert.Equal(t, "growth_marketer", patterns[0].Role)
	assert.Equal(t, "content", patterns[0].Domain)
	assert.Equal(t, 1, patterns[0].Approvals)
	assert.Greater(t, patterns[0].Score, 5.0)
}

func TestSplitExecutor(t *testing.T) {
	cases := []struct {
		in       string
		execType string
		role     string
	}{
		{"pool:growth_marketer", "pool", "growth_marketer"},
		{"specialist:Chief Revenue Officer", "specialist", "Chief Revenue Officer"},
		{"operator", "operator", ""},
		{"", "unknown", ""},
	}
	for _, tc := range cases {
		execType, role := splitExecutor(tc.in)
		assert.Equal(t, tc.execType, execType, tc.in)
		assert.Equal(t, tc.role, role, tc.in)
	}
}
