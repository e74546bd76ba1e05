package statefile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/execdesk/execdesk/internal/domain/learning"
)

type learningDocument struct {
	Org      string                             `json:"org"`
	SavedAt  time.Time                          `json:"savedAt"`
	Patterns map[string]learning.SuccessPattern `json:"patterns"`
}

// LearningStore persists success patterns as one document. It implements
// learning.Repository.
type LearningStore struct {
	mu     sync.Mutex
	path   string
	org    string
	logger zerolog.Logger
}

// NewLearningStore opens (or initializes) the learning document for one org.
func NewLearningStore(dir, org string, logger zerolog.Logger) (*LearningStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &LearningStore{
		path:   filepath.Join(dir, org+"_learning.json"),
		org:    org,
		logger: logger.With().Str("store", "learning").Str("org", org).Logger(),
	}, nil
}

// Load reads the pattern map, returning empty state for a missing or
// malformed document.
func (s *LearningStore) Load(_ context.Context) (map[string]learning.SuccessPattern, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		return map[string]learning.SuccessPattern{}, nil
	}
	var doc learningDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("unreadable learning document, starting empty")
		return map[string]learning.SuccessPattern{}, nil
	}
	if doc.Patterns == nil {
		doc.Patterns = map[string]learning.SuccessPattern{}
	}
	return doc.Patterns, nil
}

// Save rewrites the whole pattern map.
func (s *LearningStore) Save(_ context.Context, patterns map[string]learning.SuccessPattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := learningDocument{Org: s.org, SavedAt: time.Now().UTC(), Patterns: patterns}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal learning document: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write learning document: %w", err)
	}
	return os.Rename(tmp, s.path)
}
