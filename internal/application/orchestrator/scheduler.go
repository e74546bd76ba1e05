package orchestrator

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler drives continuous cycles on a fixed interval until the context
// is cancelled. A tick never overlaps a running cycle for the same org; the
// per-org single-flight guard collapses late ticks into the in-flight run.
type Scheduler struct {
	orchs    []*Orchestrator
	interval time.Duration
	statsDir string
	logger   zerolog.Logger
}

// NewScheduler creates a scheduler over the given orchestrators. Each
// finished cycle's summary is written to statsDir; an empty statsDir
// disables the stats files.
func NewScheduler(orchs []*Orchestrator, interval time.Duration, statsDir string, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		orchs:    orchs,
		interval: interval,
		statsDir: statsDir,
		logger:   logger.With().Str("service", "scheduler").Logger(),
	}
}

// Run executes one immediate cycle per org, then keeps cycling on the
// interval. Returns when ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	for _, o := range s.orchs {
		sum, err := o.Cycle(ctx)
		if err != nil {
			s.logger.Error().Err(err).Str("org", o.Org()).Msg("cycle failed")
			continue
		}
		s.writeStats(sum)
		s.logger.Info().
			Str("org", sum.Org).
			Int("planned", sum.PlannedItems).
			Int("executed", len(sum.Results)).
			Msg("cycle finished")
	}
}

// writeStats persists the latest cycle summary so operators can inspect the
// most recent run without scraping logs.
func (s *Scheduler) writeStats(sum CycleSummary) {
	if s.statsDir == "" {
		return
	}
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		s.logger.Warn().Err(err).Str("org", sum.Org).Msg("marshal cycle stats failed")
		return
	}
	path := filepath.Join(s.statsDir, sum.Org+"_cycle_stats.json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("write cycle stats failed")
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("write cycle stats failed")
	}
}
