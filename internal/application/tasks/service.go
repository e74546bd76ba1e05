// Package tasks owns the work item lifecycle: subtask creation, delegate
// completion, review, and the auto-close of fully approved subtrees.
package tasks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/execdesk/execdesk/internal/domain/journal"
	"github.com/execdesk/execdesk/internal/domain/workitem"
)

// Service handles work item lifecycle operations.
type Service struct {
	repo   workitem.Repository
	sink   journal.Sink
	logger zerolog.Logger
	now    func() time.Time

	// mu serializes lifecycle mutations so a review verdict and a running
	// cycle can never interleave their read-modify-write sequences on the
	// same organization's items.
	mu sync.Mutex
}

// NewService creates a tasks service.
func NewService(repo workitem.Repository, sink journal.Sink, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		sink:   sink,
		logger: logger.With().Str("service", "tasks").Logger(),
		now:    time.Now,
	}
}

// Create materializes a draft into a stored work item.
func (s *Service) Create(ctx context.Context, d workitem.Draft) (*workitem.WorkItem, error) {
	item := workitem.New(d, s.now())
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create work item: %w", err)
	}
	return item, nil
}

// CreateForEvent materializes a draft tagged with its originating event.
func (s *Service) CreateForEvent(ctx context.Context, d workitem.Draft, eventID uuid.UUID, eventType string) (*workitem.WorkItem, error) {
	item := workitem.New(d, s.now())
	item.EventID = eventID
	item.EventType = eventType
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create work item: %w", err)
	}
	return item, nil
}

// Get returns one work item.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*workitem.WorkItem, error) {
	return s.repo.GetByID(ctx, id)
}

// ReviewOf returns the review record for an item.
func (s *Service) ReviewOf(ctx context.Context, id uuid.UUID) (workitem.ReviewRecord, error) {
	return s.repo.Review(ctx, id)
}

// CreateSubtask creates a child under parent, inheriting the parent's
// domain, owner and priority unless the draft overrides them.
func (s *Service) CreateSubtask(ctx context.Context, parentID uuid.UUID, d workitem.Draft) (*workitem.WorkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	parent, err := s.repo.GetByID(ctx, parentID)
	if err != nil {
		return nil, workitem.ErrParentNotFound
	}
	if d.Domain == "" {
		d.Domain = parent.Domain
	}
	if d.Owner == "" {
		d.Owner = parent.Owner
	}
	if d.Priority == 0 {
		d.Priority = parent.Priority
	}
	child := workitem.New(d, s.now())
	if err := s.repo.Create(ctx, child); err != nil {
		return nil, fmt.Errorf("create subtask: %w", err)
	}
	if err := s.repo.Link(ctx, parentID, child.ID); err != nil {
		return nil, fmt.Errorf("link subtask: %w", err)
	}
	s.logger.Debug().
		Str("parent_id", parentID.String()).
		Str("child_id", child.ID.String()).
		Msg("subtask created")
	return child, nil
}

// MarkDoneByDelegate records delegate completion: the item becomes done and
// enters the awaiting-review queue. Idempotent.
func (s *Service) MarkDoneByDelegate(ctx context.Context, id uuid.UUID, delegate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item.Status == workitem.StatusDone {
		rec, err := s.repo.Review(ctx, id)
		if err != nil {
			return err
		}
		// Rejected items may be resubmitted; awaiting/approved items are
		// left untouched.
		if rec.Status == workitem.ReviewAwaiting || rec.Status == workitem.ReviewApproved {
			return nil
		}
	}
	item.Status = workitem.StatusDone
	item.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, item); err != nil {
		return fmt.Errorf("update work item: %w", err)
	}
	rec := workitem.ReviewRecord{
		Status:     workitem.ReviewAwaiting,
		ReviewedBy: delegate,
		Timestamp:  s.now().UTC(),
	}
	if err := s.repo.SetReview(ctx, id, rec); err != nil {
		return fmt.Errorf("queue for review: %w", err)
	}
	return nil
}

// MarkDone closes an item directly with no review queue entry. Used by the
// logging/manual-completion path.
func (s *Service) MarkDone(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item.Status == workitem.StatusDone {
		return nil
	}
	item.Status = workitem.StatusDone
	item.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, item); err != nil {
		return fmt.Errorf("update work item: %w", err)
	}
	return nil
}

// MarkBlocked flags an item whose execution failed; it stays blocked until a
// later cycle or a human picks it up.
func (s *Service) MarkBlocked(ctx context.Context, id uuid.UUID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	item.Status = workitem.StatusBlocked
	item.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, item); err != nil {
		return fmt.Errorf("update work item: %w", err)
	}
	s.logger.Warn().Str("item_id", id.String()).Str("reason", reason).Msg("work item blocked")
	return nil
}

// ReviewTask records the review verdict for an item. Approval cascades: when
// every sibling under the parent is done and approved, the parent closes and
// the check repeats up the tree. Rejection never cascades.
func (s *Service) ReviewTask(ctx context.Context, id uuid.UUID, approved bool, reviewer, comments string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	status := workitem.ReviewRejected
	if approved {
		status = workitem.ReviewApproved
	}
	rec := workitem.ReviewRecord{
		Status:     status,
		ReviewedBy: reviewer,
		Comments:   comments,
		Timestamp:  s.now().UTC(),
	}
	if err := s.repo.SetReview(ctx, id, rec); err != nil {
		return fmt.Errorf("record review: %w", err)
	}
	item.Approved = approved
	item.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, item); err != nil {
		return fmt.Errorf("update work item: %w", err)
	}
	s.audit(ctx, fmt.Sprintf("reviewed %q: %s", item.Title, status), map[string]string{
		"item_id":  id.String(),
		"reviewer": reviewer,
		"verdict":  string(status),
	})
	if !approved {
		return nil
	}
	return s.autoClose(ctx, id)
}

// autoClose walks up from child: a parent closes only when all of its
// children are done and approved, then the same check applies to its own
// parent.
func (s *Service) autoClose(ctx context.Context, childID uuid.UUID) error {
	parentID, ok, err := s.repo.ParentOf(ctx, childID)
	if err != nil || !ok {
		return err
	}
	children, err := s.repo.Children(ctx, parentID)
	if err != nil {
		return err
	}
	for _, cid := range children {
		c, err := s.repo.GetByID(ctx, cid)
		if err != nil {
			return err
		}
		if c.Status != workitem.StatusDone {
			return nil
		}
		rec, err := s.repo.Review(ctx, cid)
		if err != nil {
			return err
		}
		if rec.Status != workitem.ReviewApproved {
			return nil
		}
	}
	parent, err := s.repo.GetByID(ctx, parentID)
	if err != nil {
		return err
	}
	if parent.Status != workitem.StatusDone {
		parent.Status = workitem.StatusDone
		parent.UpdatedAt = s.now().UTC()
		if err := s.repo.Update(ctx, parent); err != nil {
			return fmt.Errorf("close parent: %w", err)
		}
		s.logger.Info().Str("item_id", parentID.String()).Msg("parent auto-closed, all subtasks approved")
		s.audit(ctx, fmt.Sprintf("auto-closed %q", parent.Title), map[string]string{
			"item_id": parentID.String(),
		})
	}
	return s.autoClose(ctx, parentID)
}

// OpenTaskTree returns the forest of open items, roots in insertion order,
// each node annotated with its review state. Done items are pruned together
// with their subtrees.
func (s *Service) OpenTaskTree(ctx context.Context) ([]*workitem.TreeNode, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list work items: %w", err)
	}
	var roots []*workitem.TreeNode
	for _, it := range items {
		if _, linked, err := s.repo.ParentOf(ctx, it.ID); err != nil {
			return nil, err
		} else if linked {
			continue
		}
		node, err := s.buildNode(ctx, it)
		if err != nil {
			return nil, err
		}
		if node != nil {
			roots = append(roots, node)
		}
	}
	return roots, nil
}

func (s *Service) buildNode(ctx context.Context, item *workitem.WorkItem) (*workitem.TreeNode, error) {
	if !item.Open() {
		return nil, nil
	}
	rec, err := s.repo.Review(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	node := &workitem.TreeNode{Item: item, Review: rec.Status}
	childIDs, err := s.repo.Children(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	for _, cid := range childIDs {
		child, err := s.repo.GetByID(ctx, cid)
		if err != nil {
			return nil, err
		}
		cn, err := s.buildNode(ctx, child)
		if err != nil {
			return nil, err
		}
		if cn != nil {
			node.Children = append(node.Children, cn)
		}
	}
	return node, nil
}

// AwaitingReview lists done items still waiting for a verdict.
func (s *Service) AwaitingReview(ctx context.Context) ([]*workitem.WorkItem, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list work items: %w", err)
	}
	var out []*workitem.WorkItem
	for _, it := range items {
		rec, err := s.repo.Review(ctx, it.ID)
		if err != nil {
			return nil, err
		}
		if rec.Status == workitem.ReviewAwaiting {
			out = append(out, it)
		}
	}
	return out, nil
}

// FormatTree renders the open forest as an indented text listing.
func FormatTree(nodes []*workitem.TreeNode) string {
	var b strings.Builder
	var walk func(n *workitem.TreeNode, depth int)
	walk = func(n *workitem.TreeNode, depth int) {
		b.WriteString(strings.Repeat("  ", depth))
		fmt.Fprintf(&b, "- [%s] %s (P%d, %s", n.Item.Status, n.Item.Title, n.Item.Priority, n.Item.Owner)
		if n.Review != workitem.ReviewNone {
			fmt.Fprintf(&b, ", review: %s", n.Review)
		}
		b.WriteString(")\n")
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	for _, n := range nodes {
		walk(n, 0)
	}
	return b.String()
}

func (s *Service) audit(ctx context.Context, text string, kv map[string]string) {
	if s.sink == nil {
		return
	}
	e := journal.NewEntry(text, kv)
	e.At = s.now().UTC()
	if err := s.sink.Append(ctx, journal.KindDecision, e); err != nil {
		s.logger.Warn().Err(err).Msg("journal append failed")
	}
}
