// Package learning records review outcomes per executor so the engine can
// report which executors tend to succeed. It never overrides routing.
package learning

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/execdesk/execdesk/internal/domain/learning"
)

const (
	approvedScore = 8.0
	rejectedScore = 3.0
	// scoreBlend weights the incoming outcome against the rolling score.
	scoreBlend = 0.3
)

// Service maintains success patterns over review outcomes.
type Service struct {
	repo   learning.Repository
	logger zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	patterns map[string]learning.SuccessPattern
}

// NewService loads existing patterns and creates a learning service.
func NewService(ctx context.Context, repo learning.Repository, logger zerolog.Logger) (*Service, error) {
	patterns, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load success patterns: %w", err)
	}
	return &Service{
		repo:     repo,
		logger:   logger.With().Str("service", "learning").Logger(),
		now:      time.Now,
		patterns: patterns,
	}, nil
}

// RecordOutcome folds one review verdict into the pattern for the executor
// that produced the work.
func (s *Service) RecordOutcome(ctx context.Context, executorType, role, domain string, approved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := learning.PatternKey(executorType, role, domain)
	p, ok := s.patterns[key]
	if !ok {
		p = learning.SuccessPattern{ExecutorType: executorType, Role: role, Domain: domain, Score: 5.0}
	}
	p.Attempts++
	outcome := rejectedScore
	if approved {
		p.Approvals++
		outcome = approvedScore
	} else {
		p.Rejections++
	}
	p.Score = p.Score*(1-scoreBlend) + outcome*scoreBlend
	p.UpdatedAt = s.now().UTC()
	s.patterns[key] = p

	if err := s.repo.Save(ctx, s.patterns); err != nil {
		return fmt.Errorf("save success patterns: %w", err)
	}
	s.logger.Debug().
		Str("executor", executorType).
		Str("role", role).
		Str("domain", domain).
		Bool("approved", approved).
		Float64("score", p.Score).
		Msg("outcome recorded")
	return nil
}

// BestExecutor reports the highest-scoring executor observed for a domain,
// false when nothing has been recorded for it.
func (s *Service) BestExecutor(domain string) (learning.SuccessPattern, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best learning.SuccessPattern
	found := false
	for _, p := range s.patterns {
		if p.Domain != domain {
			continue
		}
		if !found || p.Score > best.Score {
			best = p
			found = true
		}
	}
	return best, found
}

// Patterns returns a copy of every pattern for reporting.
func (s *Service) Patterns() []learning.SuccessPattern {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]learning.SuccessPattern, 0, len(s.patterns))
	for _, p := range s.patterns {
		out = append(out, p)
	}
	return out
}
