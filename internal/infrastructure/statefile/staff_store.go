package statefile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/execdesk/execdesk/internal/domain/worker"
)

type staffDocument struct {
	Org     string           `json:"org"`
	SavedAt time.Time        `json:"savedAt"`
	Workers []*worker.Worker `json:"workers"`
}

// StaffStore persists the worker roster as one document. It implements
// worker.Repository. Like TasksStore, lookups return detached copies and
// mutations replace whole records.
type StaffStore struct {
	mu     sync.Mutex
	path   string
	org    string
	doc    staffDocument
	logger zerolog.Logger
}

// NewStaffStore opens (or initializes) the roster document for one org.
func NewStaffStore(dir, org string, logger zerolog.Logger) (*StaffStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	s := &StaffStore{
		path:   filepath.Join(dir, org+"_staff.json"),
		org:    org,
		logger: logger.With().Str("store", "staff").Str("org", org).Logger(),
	}
	s.load()
	return s, nil
}

func (s *StaffStore) load() {
	s.doc = staffDocument{Org: s.org}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var doc staffDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("unreadable roster document, starting empty")
		return
	}
	s.doc = doc
	s.doc.Org = s.org
}

func (s *StaffStore) save() error {
	s.doc.SavedAt = time.Now().UTC()
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal roster document: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write roster document: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Create appends a worker to the roster.
func (s *StaffStore) Create(_ context.Context, w *worker.Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *w
	s.doc.Workers = append(s.doc.Workers, &cp)
	return s.save()
}

// GetByID returns a copy of the worker, or nil when unknown.
func (s *StaffStore) GetByID(_ context.Context, id uuid.UUID) (*worker.Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.doc.Workers {
		if w.ID == id {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

// List returns the full roster in hire order.
func (s *StaffStore) List(_ context.Context) ([]*worker.Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*worker.Worker, 0, len(s.doc.Workers))
	for _, w := range s.doc.Workers {
		cp := *w
		out = append(out, &cp)
	}
	return out, nil
}

// ListActive returns active workers in hire order.
func (s *StaffStore) ListActive(_ context.Context) ([]*worker.Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*worker.Worker
	for _, w := range s.doc.Workers {
		if w.Active {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Update rewrites a worker record.
func (s *StaffStore) Update(_ context.Context, w *worker.Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.doc.Workers {
		if existing.ID == w.ID {
			cp := *w
			s.doc.Workers[i] = &cp
			return s.save()
		}
	}
	return fmt.Errorf("worker not found: %s", w.ID)
}
