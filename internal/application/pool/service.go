// Package pool manages the worker roster as a capacity ledger: it provisions
// workers for roles on demand and accounts daily assignment load.
package pool

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/execdesk/execdesk/internal/domain/journal"
	"github.com/execdesk/execdesk/internal/domain/worker"
	"github.com/execdesk/execdesk/internal/roles"
)

// EnsureResult reports what EnsureCapacity did for one role.
type EnsureResult struct {
	Created        bool           `json:"created"`
	Worker         *worker.Worker `json:"worker,omitempty"`
	CapacityBefore int            `json:"capacityBefore"`
	CapacityAfter  int            `json:"capacityAfter"`
}

// Service handles worker provisioning and capacity accounting.
type Service struct {
	repo   worker.Repository
	roles  *roles.Registry
	sink   journal.Sink
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a pool service.
func NewService(repo worker.Repository, reg *roles.Registry, sink journal.Sink, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		roles:  reg,
		sink:   sink,
		logger: logger.With().Str("service", "pool").Logger(),
		now:    time.Now,
	}
}

// EnsureCapacity guarantees the active workers for a role can absorb at least
// min more assignments today. When capacity falls short exactly one worker is
// provisioned, sized to min.
func (s *Service) EnsureCapacity(ctx context.Context, role string, min int) (EnsureResult, error) {
	if min < 1 {
		min = 1
	}
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return EnsureResult{}, fmt.Errorf("list active workers: %w", err)
	}

	capacity := 0
	var existing *worker.Worker
	for _, w := range active {
		if w.Role == role {
			capacity += w.RemainingSlots()
			if existing == nil {
				existing = w
			}
		}
	}
	res := EnsureResult{Worker: existing, CapacityBefore: capacity, CapacityAfter: capacity}
	if capacity >= min {
		return res, nil
	}

	title, ownerMetric := "", ""
	if def, ok := s.roles.Get(role); ok {
		title = def.Title
		ownerMetric = def.KPIFocus
	}
	w := worker.New(role, title, ownerMetric, min, s.now())
	if err := s.repo.Create(ctx, w); err != nil {
		return res, fmt.Errorf("provision worker for role %s: %w", role, err)
	}
	res.Created = true
	res.Worker = w
	res.CapacityAfter = capacity + w.RemainingSlots()

	s.logger.Info().
		Str("role", role).
		Str("worker_id", w.ID.String()).
		Int("capacity_before", res.CapacityBefore).
		Int("capacity_after", res.CapacityAfter).
		Msg("provisioned worker")
	s.audit(ctx, journal.KindDecision, fmt.Sprintf("provisioned worker for role %s", role), map[string]string{
		"worker_id":       w.ID.String(),
		"role":            role,
		"capacity_before": strconv.Itoa(res.CapacityBefore),
		"capacity_after":  strconv.Itoa(res.CapacityAfter),
	})
	return res, nil
}

// AssignTask charges one assignment against a worker's daily counter and
// records the work handed over. Unknown or inactive workers are not charged.
func (s *Service) AssignTask(ctx context.Context, id uuid.UUID, taskTitle, payload string) error {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load worker %s: %w", id, err)
	}
	if w == nil || !w.Active {
		s.logger.Warn().Str("worker_id", id.String()).Msg("assignment skipped, worker unknown or inactive")
		return nil
	}
	w.TasksAssignedToday++
	if err := s.repo.Update(ctx, w); err != nil {
		return fmt.Errorf("update worker %s: %w", id, err)
	}
	kv := map[string]string{
		"worker_id":      w.ID.String(),
		"role":           w.Role,
		"task":           taskTitle,
		"assigned_today": strconv.Itoa(w.TasksAssignedToday),
	}
	if payload != "" {
		kv["payload"] = payload
	}
	s.audit(ctx, journal.KindExecution, fmt.Sprintf("assigned task to %s", w.Role), kv)
	return nil
}

// ResetDailyCounters zeroes every worker's assignment counter, active or not.
func (s *Service) ResetDailyCounters(ctx context.Context) error {
	all, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list workers: %w", err)
	}
	for _, w := range all {
		if w.TasksAssignedToday == 0 {
			continue
		}
		w.TasksAssignedToday = 0
		if err := s.repo.Update(ctx, w); err != nil {
			return fmt.Errorf("reset worker %s: %w", w.ID, err)
		}
	}
	s.logger.Info().Int("workers", len(all)).Msg("daily counters reset")
	return nil
}

// Deactivate retires a worker without deleting it.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID, reason string) error {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load worker %s: %w", id, err)
	}
	if w == nil {
		return fmt.Errorf("worker not found: %s", id)
	}
	if !w.Active {
		return nil
	}
	w.Active = false
	if reason != "" {
		w.Notes = reason
	}
	if err := s.repo.Update(ctx, w); err != nil {
		return fmt.Errorf("update worker %s: %w", id, err)
	}
	s.audit(ctx, journal.KindDecision, fmt.Sprintf("deactivated worker %s", w.Role), map[string]string{
		"worker_id": w.ID.String(),
		"role":      w.Role,
		"reason":    reason,
	})
	return nil
}

// RosterLine is one row of the staff summary.
type RosterLine struct {
	Worker    *worker.Worker `json:"worker"`
	Remaining int            `json:"remaining"`
}

// Summarize returns the full roster with remaining capacity per worker.
func (s *Service) Summarize(ctx context.Context) ([]RosterLine, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	out := make([]RosterLine, 0, len(all))
	for _, w := range all {
		out = append(out, RosterLine{Worker: w, Remaining: w.RemainingSlots()})
	}
	return out, nil
}

// Breakdown counts active workers by role and by department.
func (s *Service) Breakdown(ctx context.Context) (byRole, byDepartment map[string]int, err error) {
	all, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list workers: %w", err)
	}
	byRole = make(map[string]int)
	byDepartment = make(map[string]int)
	for _, w := range all {
		byRole[w.Role]++
		byDepartment[w.Department]++
	}
	return byRole, byDepartment, nil
}

func (s *Service) audit(ctx context.Context, kind journal.Kind, text string, kv map[string]string) {
	if s.sink == nil {
		return
	}
	e := journal.NewEntry(text, kv)
	e.At = s.now().UTC()
	if err := s.sink.Append(ctx, kind, e); err != nil {
		s.logger.Warn().Err(err).Str("kind", string(kind)).Msg("journal append failed")
	}
}
