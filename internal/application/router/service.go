// Package router decides who executes each work item. Resolution is tiered:
// explicit pool match, domain specialist, relaxed pool fallback, then the
// logging path. Execution failures block the item and never abort the batch.
package router

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/execdesk/execdesk/internal/application/pool"
	"github.com/execdesk/execdesk/internal/application/tasks"
	"github.com/execdesk/execdesk/internal/domain/journal"
	"github.com/execdesk/execdesk/internal/domain/workitem"
	"github.com/execdesk/execdesk/internal/generation"
	"github.com/execdesk/execdesk/internal/roles"
	"github.com/execdesk/execdesk/internal/specialist"
)

// Result is the outcome of dispatching one work item.
type Result struct {
	ItemID   string `json:"itemId"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Tier     int    `json:"tier"`
	Executor string `json:"executor"`
	Output   string `json:"output,omitempty"`
	Error    string `json:"error,omitempty"`
}

const (
	// ResultDone marks successful execution (work awaits review or was
	// closed on the logging path).
	ResultDone = "done"
	// ResultBlocked marks an execution failure left for a later cycle.
	ResultBlocked = "blocked"
)

type domainRule struct {
	keywords []string
	spec     *specialist.Specialist
}

// Service routes and executes work items.
type Service struct {
	roles  *roles.Registry
	pool   *pool.Service
	tasks  *tasks.Service
	gen    generation.Client
	rules  []domainRule
	sink   journal.Sink
	logger zerolog.Logger

	// mu serializes ledger and state mutations; generation calls run
	// outside it so independent items can execute concurrently.
	mu sync.Mutex
}

// NewService creates a router service with the fixed specialist rules.
func NewService(
	reg *roles.Registry,
	poolSvc *pool.Service,
	tasksSvc *tasks.Service,
	gen generation.Client,
	sink journal.Sink,
	logger zerolog.Logger,
) *Service {
	return &Service{
		roles: reg,
		pool:  poolSvc,
		tasks: tasksSvc,
		gen:   gen,
		rules: []domainRule{
			{keywords: []string{"revenue", "growth", "marketing", "sales"}, spec: specialist.Revenue(gen)},
			{keywords: []string{"operations", "support", "customer-success"}, spec: specialist.Operations(gen)},
			{keywords: []string{"product", "engineering", "data"}, spec: specialist.Technology(gen)},
		},
		sink:   sink,
		logger: logger.With().Str("service", "router").Logger(),
	}
}

// Dispatch resolves the executor for one open item and runs it. It never
// returns an error; failures surface in the result and the item's status.
func (s *Service) Dispatch(ctx context.Context, item *workitem.WorkItem, businessContext string) Result {
	if !item.Open() {
		return Result{ItemID: item.ID.String(), Title: item.Title, Status: ResultDone, Executor: "noop"}
	}

	if roleID, ok := NormalizeOwner(item.Owner, s.roles); ok {
		return s.executePool(ctx, item, roleID, 1, businessContext)
	}

	domain := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(item.Domain)), " ", "-")
	for _, rule := range s.rules {
		for _, kw := range rule.keywords {
			if domain == kw {
				return s.executeSpecialist(ctx, item, rule.spec, businessContext)
			}
		}
	}

	if roleID, ok := RelaxedMatch(item.Owner, s.roles); ok {
		return s.executePool(ctx, item, roleID, 3, businessContext)
	}

	return s.executeLog(ctx, item)
}

// DispatchBatch routes items in order, collecting every result.
func (s *Service) DispatchBatch(ctx context.Context, items []*workitem.WorkItem, businessContext string) []Result {
	out := make([]Result, 0, len(items))
	for _, it := range items {
		out = append(out, s.Dispatch(ctx, it, businessContext))
	}
	return out
}

// defaultDailySlots sizes workers provisioned for roles missing from the
// catalogue or carrying no daily quota.
const defaultDailySlots = 10

func (s *Service) executePool(ctx context.Context, item *workitem.WorkItem, roleID string, tier int, businessContext string) Result {
	res := Result{ItemID: item.ID.String(), Title: item.Title, Tier: tier, Executor: "pool:" + roleID}

	slots := defaultDailySlots
	if def, ok := s.roles.Get(roleID); ok && def.MaxDailyTasks > 0 {
		slots = def.MaxDailyTasks
	}
	s.mu.Lock()
	ensured, err := s.pool.EnsureCapacity(ctx, roleID, slots)
	s.mu.Unlock()
	if err != nil {
		return s.block(ctx, item, res, fmt.Errorf("ensure capacity: %w", err))
	}
	w := ensured.Worker

	output, err := s.gen.Generate(ctx, workerMandate(s.roles, roleID), workerPrompt(item, businessContext))
	if err != nil {
		return s.block(ctx, item, res, fmt.Errorf("pool execution: %w", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if w != nil {
		if err := s.pool.AssignTask(ctx, w.ID, item.Title, item.Description); err != nil {
			return s.blockLocked(ctx, item, res, fmt.Errorf("assign task: %w", err))
		}
	}
	if err := s.tasks.MarkDoneByDelegate(ctx, item.ID, res.Executor); err != nil {
		return s.blockLocked(ctx, item, res, fmt.Errorf("mark done: %w", err))
	}
	res.Status = ResultDone
	res.Output = output
	s.logger.Info().Str("item_id", res.ItemID).Str("executor", res.Executor).Int("tier", tier).Msg("item executed")
	return res
}

func (s *Service) executeSpecialist(ctx context.Context, item *workitem.WorkItem, sp *specialist.Specialist, businessContext string) Result {
	res := Result{ItemID: item.ID.String(), Title: item.Title, Tier: 2, Executor: "specialist:" + sp.Role}

	output, err := sp.Execute(ctx, item, businessContext)
	if err != nil {
		return s.block(ctx, item, res, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tasks.MarkDoneByDelegate(ctx, item.ID, res.Executor); err != nil {
		return s.blockLocked(ctx, item, res, fmt.Errorf("mark done: %w", err))
	}
	res.Status = ResultDone
	res.Output = output
	s.logger.Info().Str("item_id", res.ItemID).Str("executor", res.Executor).Int("tier", 2).Msg("item executed")
	return res
}

// executeLog: no specialist or pool capacity is touched; the item is closed
// and a decision recorded so a human can pick it up from the journal.
func (s *Service) executeLog(ctx context.Context, item *workitem.WorkItem) Result {
	res := Result{ItemID: item.ID.String(), Title: item.Title, Tier: 4, Executor: "log"}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tasks.MarkDone(ctx, item.ID); err != nil {
		return s.blockLocked(ctx, item, res, fmt.Errorf("mark done: %w", err))
	}
	s.audit(ctx, journal.KindDecision, fmt.Sprintf("logged for manual handling: %q", item.Title), map[string]string{
		"item_id": res.ItemID,
		"owner":   item.Owner,
		"domain":  item.Domain,
	})
	res.Status = ResultDone
	res.Output = "logged for manual handling"
	return res
}

func (s *Service) block(ctx context.Context, item *workitem.WorkItem, res Result, cause error) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blockLocked(ctx, item, res, cause)
}

func (s *Service) blockLocked(ctx context.Context, item *workitem.WorkItem, res Result, cause error) Result {
	res.Status = ResultBlocked
	res.Error = cause.Error()
	if err := s.tasks.MarkBlocked(ctx, item.ID, cause.Error()); err != nil {
		s.logger.Error().Err(err).Str("item_id", res.ItemID).Msg("failed to record blocked status")
	}
	s.audit(ctx, journal.KindExecution, fmt.Sprintf("execution failed: %q", item.Title), map[string]string{
		"item_id":  res.ItemID,
		"executor": res.Executor,
		"error":    cause.Error(),
	})
	s.logger.Warn().Err(cause).Str("item_id", res.ItemID).Str("executor", res.Executor).Msg("item blocked")
	return res
}

func (s *Service) audit(ctx context.Context, kind journal.Kind, text string, kv map[string]string) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Append(ctx, kind, journal.NewEntry(text, kv)); err != nil {
		s.logger.Warn().Err(err).Msg("journal append failed")
	}
}

func workerMandate(reg *roles.Registry, roleID string) string {
	def, ok := reg.Get(roleID)
	if !ok {
		return "You are a capable generalist operator. Deliver concrete, actionable work."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are a %s in the %s department.", def.Title, def.Department)
	if def.Description != "" {
		b.WriteString(" " + def.Description)
	}
	if def.Responsibilities != "" {
		b.WriteString("\nCore responsibilities: " + def.Responsibilities)
	}
	if def.StyleGuidelines != "" {
		b.WriteString("\nStyle: " + def.StyleGuidelines)
	}
	if def.KPIFocus != "" {
		b.WriteString("\nYou are measured on: " + def.KPIFocus)
	}
	return b.String()
}

func workerPrompt(item *workitem.WorkItem, businessContext string) string {
	return fmt.Sprintf(
		"Business Context:\n%s\n\nTask (P%d, domain %s):\n%s\n\n"+
			"Do the work now and return the deliverable, not a plan to do it later.",
		businessContext, item.Priority, item.Domain, item.Description,
	)
}
