// Package orchestrator runs the planning cycle for one organization: ask the
// generation collaborator for a plan, parse it into work items, route each
// item, evaluate metrics, reflect, and send briefings. Cycles for the same
// org never overlap.
package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/execdesk/execdesk/internal/application/kpi"
	"github.com/execdesk/execdesk/internal/application/learning"
	"github.com/execdesk/execdesk/internal/application/pool"
	"github.com/execdesk/execdesk/internal/application/router"
	"github.com/execdesk/execdesk/internal/application/tasks"
	"github.com/execdesk/execdesk/internal/config"
	"github.com/execdesk/execdesk/internal/domain/event"
	"github.com/execdesk/execdesk/internal/domain/journal"
	"github.com/execdesk/execdesk/internal/domain/metric"
	"github.com/execdesk/execdesk/internal/domain/workitem"
	"github.com/execdesk/execdesk/internal/generation"
	"github.com/execdesk/execdesk/internal/notify"
	"github.com/execdesk/execdesk/internal/planning"
)

// maxParallelExecutions bounds concurrent generation calls within one cycle.
const maxParallelExecutions = 4

// CycleSummary is the structured outcome of one planning cycle.
type CycleSummary struct {
	Org             string                 `json:"org"`
	StartedAt       time.Time              `json:"startedAt"`
	Duration        time.Duration          `json:"duration"`
	PlannedItems    int                    `json:"plannedItems"`
	Results         []router.Result        `json:"results,omitempty"`
	Recommendations []metric.TrendSnapshot `json:"recommendations,omitempty"`
	Reflection      journal.DaySummary     `json:"reflection"`
}

// Orchestrator ties the engine together for one organization.
type Orchestrator struct {
	org      string
	profile  config.OrgProfile
	gen      generation.Client
	tasksSvc *tasks.Service
	routeSvc *router.Service
	poolSvc  *pool.Service
	kpiSvc   *kpi.Service
	learnSvc *learning.Service
	sink     journal.Sink
	notifier notify.Sender
	channels []string
	logger   zerolog.Logger
	now      func() time.Time

	sf           singleflight.Group
	lastResetDay string
}

// New creates an orchestrator for one org.
func New(
	org string,
	profile config.OrgProfile,
	gen generation.Client,
	tasksSvc *tasks.Service,
	routeSvc *router.Service,
	poolSvc *pool.Service,
	kpiSvc *kpi.Service,
	learnSvc *learning.Service,
	sink journal.Sink,
	notifier notify.Sender,
	channels []string,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		org:      org,
		profile:  profile,
		gen:      gen,
		tasksSvc: tasksSvc,
		routeSvc: routeSvc,
		poolSvc:  poolSvc,
		kpiSvc:   kpiSvc,
		learnSvc: learnSvc,
		sink:     sink,
		notifier: notifier,
		channels: channels,
		logger:   logger.With().Str("service", "orchestrator").Str("org", org).Logger(),
		now:      time.Now,
	}
}

// Org returns the organization key this orchestrator serves.
func (o *Orchestrator) Org() string { return o.org }

// Cycle runs one full planning cycle. Concurrent callers for the same org
// share a single in-flight cycle.
func (o *Orchestrator) Cycle(ctx context.Context) (CycleSummary, error) {
	v, err, _ := o.sf.Do(o.org, func() (interface{}, error) {
		return o.runCycle(ctx)
	})
	if err != nil {
		return CycleSummary{}, err
	}
	return v.(CycleSummary), nil
}

func (o *Orchestrator) runCycle(ctx context.Context) (CycleSummary, error) {
	started := o.now().UTC()
	sum := CycleSummary{Org: o.org, StartedAt: started}

	o.maybeResetDay(ctx, started)

	recs, err := o.kpiSvc.ProactiveRecommendations(ctx)
	if err != nil {
		o.logger.Warn().Err(err).Msg("trend analysis failed, planning without it")
		recs = nil
	}
	sum.Recommendations = recs

	created, err := o.PlanDay(ctx, recs)
	if err != nil {
		return sum, err
	}
	sum.PlannedItems = len(created)

	results, err := o.RunPending(ctx)
	if err != nil {
		return sum, err
	}
	sum.Results = results

	reflection, err := o.Reflect(ctx)
	if err != nil {
		o.logger.Warn().Err(err).Msg("reflection failed")
	}
	sum.Reflection = reflection
	sum.Duration = o.now().UTC().Sub(started)

	o.brief(ctx, sum)
	o.logger.Info().
		Int("planned", sum.PlannedItems).
		Int("executed", len(sum.Results)).
		Dur("duration", sum.Duration).
		Msg("cycle complete")
	return sum, nil
}

// PlanDay asks the generation collaborator for today's plan and inserts the
// parsed work items. Output with no recognizable task block yields zero
// items, not an error.
func (o *Orchestrator) PlanDay(ctx context.Context, recs []metric.TrendSnapshot) ([]*workitem.WorkItem, error) {
	tree, err := o.tasksSvc.OpenTaskTree(ctx)
	if err != nil {
		return nil, err
	}

	text, err := o.generate(ctx, systemMandate(o.profile), planPrompt(o.profile, recs, tasks.FormatTree(tree)))
	if err != nil {
		return nil, fmt.Errorf("plan generation: %w", err)
	}

	drafts := planning.ParseWorkItems(text)
	created := make([]*workitem.WorkItem, 0, len(drafts))
	for _, d := range drafts {
		item, err := o.tasksSvc.Create(ctx, d)
		if err != nil {
			return created, err
		}
		created = append(created, item)
	}
	o.audit(ctx, journal.KindDecision, fmt.Sprintf("planned %d tasks", len(created)), map[string]string{
		"planned": strconv.Itoa(len(created)),
	})
	return created, nil
}

// IngestEvent reacts to one external event: journal it, generate a response
// plan, insert the items tagged with the event, and execute them.
func (o *Orchestrator) IngestEvent(ctx context.Context, ev event.Event) ([]router.Result, error) {
	o.audit(ctx, journal.KindEvent, fmt.Sprintf("event received: %s", ev.Type), map[string]string{
		"event_id":   ev.ID.String(),
		"event_type": ev.Type,
	})

	text, err := o.generate(ctx, systemMandate(o.profile), eventPrompt(o.profile, ev))
	if err != nil {
		return nil, fmt.Errorf("event response generation: %w", err)
	}

	var items []*workitem.WorkItem
	for _, d := range planning.ParseWorkItems(text) {
		item, err := o.tasksSvc.CreateForEvent(ctx, d, ev.ID, ev.Type)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return o.execute(ctx, items)
}

// RunPending routes every open todo item.
func (o *Orchestrator) RunPending(ctx context.Context) ([]router.Result, error) {
	all, err := o.tasksSvc.OpenTaskTree(ctx)
	if err != nil {
		return nil, err
	}
	var items []*workitem.WorkItem
	var collect func(nodes []*workitem.TreeNode)
	collect = func(nodes []*workitem.TreeNode) {
		for _, n := range nodes {
			if n.Item.Status == workitem.StatusTodo {
				items = append(items, n.Item)
			}
			collect(n.Children)
		}
	}
	collect(all)
	return o.execute(ctx, items)
}

// execute dispatches items with bounded parallelism. The router serializes
// ledger and state mutations internally; only the generation calls overlap.
func (o *Orchestrator) execute(ctx context.Context, items []*workitem.WorkItem) ([]router.Result, error) {
	if len(items) == 0 {
		return nil, nil
	}
	bizCtx := o.profile.BusinessContext()
	results := make([]router.Result, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelExecutions)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			results[i] = o.routeSvc.Dispatch(gctx, item, bizCtx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// Review applies a verdict and feeds the outcome to the learning service.
func (o *Orchestrator) Review(ctx context.Context, id uuid.UUID, approved bool, reviewer, comments string) error {
	item, err := o.tasksSvc.Get(ctx, id)
	if err != nil {
		return err
	}
	rec, err := o.tasksSvc.ReviewOf(ctx, id)
	if err != nil {
		return err
	}
	if err := o.tasksSvc.ReviewTask(ctx, id, approved, reviewer, comments); err != nil {
		return err
	}
	if o.learnSvc != nil {
		execType, role := splitExecutor(rec.ReviewedBy)
		if err := o.learnSvc.RecordOutcome(ctx, execType, role, item.Domain, approved); err != nil {
			o.logger.Warn().Err(err).Msg("learning update failed")
		}
	}
	return nil
}

// Reflect summarizes today's journal activity and records the reflection.
func (o *Orchestrator) Reflect(ctx context.Context) (journal.DaySummary, error) {
	day := o.now().UTC()
	sum, err := o.sink.Summary(ctx, day)
	if err != nil {
		return journal.DaySummary{}, fmt.Errorf("day summary: %w", err)
	}
	o.audit(ctx, journal.KindReflection, fmt.Sprintf(
		"day %s: %d decisions, %d executions, %d metric updates, %d generation calls (%d units)",
		sum.Date, sum.Decisions, sum.Executions, sum.MetricUpdates, sum.GenerationCalls, sum.GenerationUnits,
	), nil)
	return sum, nil
}

// maybeResetDay zeroes the pool's daily counters on the first cycle of each
// UTC day. The ledger itself has no time-awareness.
func (o *Orchestrator) maybeResetDay(ctx context.Context, now time.Time) {
	day := now.Format("2006-01-02")
	if day == o.lastResetDay {
		return
	}
	if err := o.poolSvc.ResetDailyCounters(ctx); err != nil {
		o.logger.Warn().Err(err).Msg("daily counter reset failed")
		return
	}
	o.lastResetDay = day
}

// generate wraps the collaborator call with usage journaling.
func (o *Orchestrator) generate(ctx context.Context, system, user string) (string, error) {
	text, err := o.gen.Generate(ctx, system, user)
	usage := generation.UsageOf(o.gen)
	e := journal.NewEntry("generation call", map[string]string{"org": o.org})
	e.Units = usage.TotalUnits
	if jerr := o.sink.Append(ctx, journal.KindGeneration, e); jerr != nil {
		o.logger.Warn().Err(jerr).Msg("journal append failed")
	}
	return text, err
}

// brief renders and sends the snapshot and top-3 action briefing. Delivery
// failures never fail the cycle.
func (o *Orchestrator) brief(ctx context.Context, sum CycleSummary) {
	if o.notifier == nil || len(o.channels) == 0 {
		return
	}
	snapshot := o.renderSnapshot(sum)
	briefing := renderBriefing(sum)
	if err := o.notifier.Send(ctx, o.channels, snapshot, briefing); err != nil {
		o.logger.Warn().Err(err).Msg("briefing delivery failed")
	}
}

func (o *Orchestrator) renderSnapshot(sum CycleSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s operational snapshot (%s)\n", o.profile.Name, sum.StartedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "Planned: %d, executed: %d\n", sum.PlannedItems, len(sum.Results))
	blocked := 0
	for _, r := range sum.Results {
		if r.Status == router.ResultBlocked {
			blocked++
		}
	}
	if blocked > 0 {
		fmt.Fprintf(&b, "Blocked: %d\n", blocked)
	}
	fmt.Fprintf(&b, "Journal: %d decisions, %d executions, %d generation calls\n",
		sum.Reflection.Decisions, sum.Reflection.Executions, sum.Reflection.GenerationCalls)
	return b.String()
}

func renderBriefing(sum CycleSummary) string {
	var b strings.Builder
	b.WriteString("Top actions:\n")
	n := 0
	for _, rec := range sum.Recommendations {
		if n >= 3 {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n", n+1, rec.Recommendation)
		n++
	}
	for _, r := range sum.Results {
		if n >= 3 {
			break
		}
		if r.Status == router.ResultBlocked {
			fmt.Fprintf(&b, "%d. Unblock %q (%s)\n", n+1, r.Title, r.Error)
			n++
		}
	}
	if n == 0 {
		b.WriteString("1. No urgent actions; review open work at your leisure.\n")
	}
	return b.String()
}

func (o *Orchestrator) audit(ctx context.Context, kind journal.Kind, text string, kv map[string]string) {
	if err := o.sink.Append(ctx, kind, journal.NewEntry(text, kv)); err != nil {
		o.logger.Warn().Err(err).Str("kind", string(kind)).Msg("journal append failed")
	}
}

func splitExecutor(delegate string) (execType, role string) {
	if i := strings.IndexByte(delegate, ':'); i > 0 {
		return delegate[:i], delegate[i+1:]
	}
	if delegate == "" {
		return "unknown", ""
	}
	return delegate, ""
}
