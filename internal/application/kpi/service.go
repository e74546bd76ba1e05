// Package kpi evaluates metric readings against configured thresholds and
// derives trend snapshots from the reading history.
package kpi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Knetic/govaluate"
	"github.com/rs/zerolog"

	"github.com/execdesk/execdesk/internal/domain/journal"
	"github.com/execdesk/execdesk/internal/domain/metric"
)

// Service records readings and evaluates thresholds and trends.
type Service struct {
	history    metric.HistoryRepository
	thresholds map[string]metric.Threshold
	sink       journal.Sink
	logger     zerolog.Logger
	now        func() time.Time
}

// NewService creates a kpi service. Thresholds are static per organization.
func NewService(history metric.HistoryRepository, thresholds map[string]metric.Threshold, sink journal.Sink, logger zerolog.Logger) *Service {
	if thresholds == nil {
		thresholds = map[string]metric.Threshold{}
	}
	return &Service{
		history:    history,
		thresholds: thresholds,
		sink:       sink,
		logger:     logger.With().Str("service", "kpi").Logger(),
		now:        time.Now,
	}
}

// Record appends a reading, journals the update, and returns any threshold
// alerts it triggers.
func (s *Service) Record(ctx context.Context, r metric.Reading) ([]metric.Alert, error) {
	if r.Timestamp.IsZero() {
		r.Timestamp = s.now().UTC()
	}
	if err := s.history.Append(ctx, r); err != nil {
		return nil, fmt.Errorf("append reading: %w", err)
	}
	s.audit(ctx, fmt.Sprintf("recorded %s = %g%s", r.Name, r.Value, suffix(r.Unit)), map[string]string{
		"metric": r.Name,
		"source": r.Source,
	})

	var alerts []metric.Alert
	if th, ok := s.thresholds[r.Name]; ok {
		if a := Check(r, th); a != nil {
			alerts = append(alerts, *a)
			s.logger.Warn().Str("metric", r.Name).Float64("value", r.Value).Str("reason", a.Reason).Msg("threshold alert")
		}
	}
	return alerts, nil
}

// Check flags a reading against its threshold. The reason lists every
// violated bound; a min above max is a configuration error that is still
// reported, not rejected.
func Check(r metric.Reading, th metric.Threshold) *metric.Alert {
	var reasons []string
	if th.MinValue != nil && r.Value < *th.MinValue {
		reasons = append(reasons, fmt.Sprintf("below minimum %g", *th.MinValue))
	}
	if th.MaxValue != nil && r.Value > *th.MaxValue {
		reasons = append(reasons, fmt.Sprintf("above maximum %g", *th.MaxValue))
	}
	if fired, why := evalCondition(th, r.Value); fired {
		reasons = append(reasons, why)
	}
	if len(reasons) == 0 {
		return nil
	}
	return &metric.Alert{
		Metric:    r.Name,
		Value:     r.Value,
		Unit:      th.Unit,
		Reason:    fmt.Sprintf("%s is %g%s: %s", r.Name, r.Value, suffix(th.Unit), strings.Join(reasons, "; ")),
		Timestamp: r.Timestamp,
	}
}

// evalCondition runs the optional threshold expression against value/min/max.
// Expression errors never fail the check.
func evalCondition(th metric.Threshold, value float64) (bool, string) {
	cond := strings.TrimSpace(th.Condition)
	if cond == "" {
		return false, ""
	}
	expr, err := govaluate.NewEvaluableExpression(cond)
	if err != nil {
		return false, ""
	}
	params := map[string]interface{}{"value": value}
	if th.MinValue != nil {
		params["min"] = *th.MinValue
	}
	if th.MaxValue != nil {
		params["max"] = *th.MaxValue
	}
	result, err := expr.Evaluate(params)
	if err != nil {
		return false, ""
	}
	if fired, ok := result.(bool); ok && fired {
		return true, fmt.Sprintf("condition %q triggered", cond)
	}
	return false, ""
}

// Threshold returns the configured threshold for a metric, if any.
func (s *Service) Threshold(name string) (metric.Threshold, bool) {
	th, ok := s.thresholds[name]
	return th, ok
}

// ProactiveRecommendations analyzes every metric with history and returns
// the snapshots that warrant action, worst risk first within input order.
func (s *Service) ProactiveRecommendations(ctx context.Context) ([]metric.TrendSnapshot, error) {
	names, err := s.history.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	var out []metric.TrendSnapshot
	for _, name := range names {
		snap, err := s.AnalyzeTrend(ctx, name)
		if err != nil {
			return nil, err
		}
		if snap != nil && snap.ActionNeeded() {
			out = append(out, *snap)
		}
	}
	return out, nil
}

func (s *Service) audit(ctx context.Context, text string, kv map[string]string) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Append(ctx, journal.KindMetric, journal.NewEntry(text, kv)); err != nil {
		s.logger.Warn().Err(err).Msg("journal append failed")
	}
}

func suffix(unit string) string {
	if unit == "" {
		return ""
	}
	return " " + unit
}
