// Package statefile implements the per-organization JSON document stores.
// Each store owns one logical document that is read once at open and
// rewritten as a whole on every mutation; a malformed document is treated as
// empty state, never an error.
package statefile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/execdesk/execdesk/internal/domain/workitem"
)

type tasksDocument struct {
	Items   []*workitem.WorkItem             `json:"items"`
	Links   map[string][]string              `json:"links"`
	Reviews map[string]workitem.ReviewRecord `json:"reviews"`
}

// TasksStore persists work items, parent/child links and review records as
// one document. It implements workitem.Repository. Lookups return detached
// copies and mutations are applied by whole-record replacement, so callers
// can edit results without racing the document writer.
type TasksStore struct {
	mu     sync.Mutex
	path   string
	doc    tasksDocument
	logger zerolog.Logger
}

// NewTasksStore opens (or initializes) the tasks document for one org.
func NewTasksStore(dir, org string, logger zerolog.Logger) (*TasksStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	s := &TasksStore{
		path:   filepath.Join(dir, org+"_tasks.json"),
		logger: logger.With().Str("store", "tasks").Str("org", org).Logger(),
	}
	s.load()
	return s, nil
}

func (s *TasksStore) load() {
	s.doc = tasksDocument{
		Links:   map[string][]string{},
		Reviews: map[string]workitem.ReviewRecord{},
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var doc tasksDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("unreadable tasks document, starting empty")
		return
	}
	if doc.Links == nil {
		doc.Links = map[string][]string{}
	}
	if doc.Reviews == nil {
		doc.Reviews = map[string]workitem.ReviewRecord{}
	}
	s.doc = doc
}

func (s *TasksStore) save() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tasks document: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write tasks document: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Create appends a work item.
func (s *TasksStore) Create(_ context.Context, item *workitem.WorkItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.doc.Items = append(s.doc.Items, &cp)
	return s.save()
}

// GetByID returns a copy of the item or workitem.ErrNotFound.
func (s *TasksStore) GetByID(_ context.Context, id uuid.UUID) (*workitem.WorkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.doc.Items {
		if it.ID == id {
			cp := *it
			return &cp, nil
		}
	}
	return nil, workitem.ErrNotFound
}

// List returns copies of every item in insertion order.
func (s *TasksStore) List(_ context.Context) ([]*workitem.WorkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*workitem.WorkItem, 0, len(s.doc.Items))
	for _, it := range s.doc.Items {
		cp := *it
		out = append(out, &cp)
	}
	return out, nil
}

// Update rewrites an existing item.
func (s *TasksStore) Update(_ context.Context, item *workitem.WorkItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.doc.Items {
		if it.ID == item.ID {
			cp := *item
			s.doc.Items[i] = &cp
			return s.save()
		}
	}
	return workitem.ErrNotFound
}

// Link records child under parent, preserving child order.
func (s *TasksStore) Link(_ context.Context, parentID, childID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := parentID.String()
	s.doc.Links[key] = append(s.doc.Links[key], childID.String())
	return s.save()
}

// Children returns the ordered direct children of parent.
func (s *TasksStore) Children(_ context.Context, parentID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw := s.doc.Links[parentID.String()]
	out := make([]uuid.UUID, 0, len(raw))
	for _, c := range raw {
		id, err := uuid.Parse(c)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// ParentOf returns the parent of child, if linked.
func (s *TasksStore) ParentOf(_ context.Context, childID uuid.UUID) (uuid.UUID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := childID.String()
	for parent, children := range s.doc.Links {
		for _, c := range children {
			if c == want {
				id, err := uuid.Parse(parent)
				if err != nil {
					return uuid.Nil, false, nil
				}
				return id, true, nil
			}
		}
	}
	return uuid.Nil, false, nil
}

// SetReview stores the review record for an item.
func (s *TasksStore) SetReview(_ context.Context, id uuid.UUID, rec workitem.ReviewRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Reviews[id.String()] = rec
	return s.save()
}

// Review returns the review record, defaulting to ReviewNone.
func (s *TasksStore) Review(_ context.Context, id uuid.UUID) (workitem.ReviewRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.doc.Reviews[id.String()]; ok {
		return rec, nil
	}
	return workitem.ReviewRecord{Status: workitem.ReviewNone}, nil
}
