package kpi

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/execdesk/execdesk/internal/domain/metric"
)

const (
	trendWindowDays   = 30
	shortWindowDays   = 7
	minTrendReadings  = 3
	minWindowReadings = 2
	// directionBand is the +/- fraction of the 30-day average inside which
	// the trend counts as stable.
	directionBand = 0.02
	// proximityBand is how close (as a fraction of the bound) the current
	// value must be for a drifting metric to rate medium risk.
	proximityBand = 0.10
	slopePoints   = 7
)

// AnalyzeTrend derives a snapshot from the trailing 30 days of readings.
// Returns nil when fewer than 3 readings exist in that window.
func (s *Service) AnalyzeTrend(ctx context.Context, name string) (*metric.TrendSnapshot, error) {
	now := s.now().UTC()
	since := now.AddDate(0, 0, -trendWindowDays)
	readings, err := s.history.ListSince(ctx, name, since)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", name, err)
	}
	if len(readings) < minTrendReadings {
		return nil, nil
	}

	current := readings[len(readings)-1].Value
	snap := &metric.TrendSnapshot{
		Metric:       name,
		CurrentValue: current,
		Direction:    metric.TrendStable,
		DaysAnalyzed: daysSpanned(readings, now),
	}

	avg30 := windowAverage(readings, now.AddDate(0, 0, -trendWindowDays))
	avg7 := windowAverage(readings, now.AddDate(0, 0, -shortWindowDays))
	snap.MovingAvg30d = avg30
	snap.MovingAvg7d = avg7

	if avg7 != nil && avg30 != nil && *avg30 != 0 {
		diff := (*avg7 - *avg30) / math.Abs(*avg30)
		snap.Strength = diff * 100
		switch {
		case diff > directionBand:
			snap.Direction = metric.TrendIncreasing
		case diff < -directionBand:
			snap.Direction = metric.TrendDecreasing
		}
	}

	snap.RateOfChange = rateOfChange(readings, current)
	snap.Projected7d = current * (1 + snap.RateOfChange/100*shortWindowDays)

	th, hasTh := s.thresholds[name]
	snap.BreachRisk = classifyRisk(snap, th, hasTh)
	if snap.BreachRisk == metric.RiskMedium || snap.BreachRisk == metric.RiskHigh || snap.BreachRisk == metric.RiskCritical {
		snap.Recommendation = recommend(snap, th, hasTh)
	}
	return snap, nil
}

// windowAverage is the simple moving average of readings at or after cutoff,
// undefined below 2 readings.
func windowAverage(readings []metric.Reading, cutoff time.Time) *float64 {
	sum, n := 0.0, 0
	for _, r := range readings {
		if !r.Timestamp.Before(cutoff) {
			sum += r.Value
			n++
		}
	}
	if n < minWindowReadings {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

// rateOfChange fits ordinary least squares over the last 7 readings
// (x = index, y = value) and expresses the slope as percent of the current
// value per reading.
func rateOfChange(readings []metric.Reading, current float64) float64 {
	pts := readings
	if len(pts) > slopePoints {
		pts = pts[len(pts)-slopePoints:]
	}
	n := float64(len(pts))
	if n < 2 || current == 0 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, r := range pts {
		x := float64(i)
		sumX += x
		sumY += r.Value
		sumXY += x * r.Value
		sumXX += x * x
	}
	den := n*sumXX - sumX*sumX
	if den == 0 {
		return 0
	}
	slope := (n*sumXY - sumX*sumY) / den
	return slope / current * 100
}

// classifyRisk applies the ordered rules: already violating, projected to
// violate, drifting toward a near bound, else low.
func classifyRisk(snap *metric.TrendSnapshot, th metric.Threshold, hasTh bool) metric.BreachRisk {
	if !hasTh {
		return metric.RiskLow
	}
	if violates(snap.CurrentValue, th) {
		return metric.RiskCritical
	}
	if violates(snap.Projected7d, th) {
		return metric.RiskHigh
	}
	if th.MinValue != nil && snap.Direction == metric.TrendDecreasing && withinBand(snap.CurrentValue, *th.MinValue) {
		return metric.RiskMedium
	}
	if th.MaxValue != nil && snap.Direction == metric.TrendIncreasing && withinBand(snap.CurrentValue, *th.MaxValue) {
		return metric.RiskMedium
	}
	return metric.RiskLow
}

func violates(v float64, th metric.Threshold) bool {
	if th.MinValue != nil && v < *th.MinValue {
		return true
	}
	if th.MaxValue != nil && v > *th.MaxValue {
		return true
	}
	return false
}

func withinBand(v, bound float64) bool {
	if bound == 0 {
		return false
	}
	return math.Abs(v-bound)/math.Abs(bound) <= proximityBand
}

func recommend(snap *metric.TrendSnapshot, th metric.Threshold, hasTh bool) string {
	bound := ""
	if hasTh {
		switch {
		case th.MinValue != nil && (snap.Direction == metric.TrendDecreasing || snap.CurrentValue < *th.MinValue || snap.Projected7d < *th.MinValue):
			bound = fmt.Sprintf(" toward the %g floor", *th.MinValue)
		case th.MaxValue != nil:
			bound = fmt.Sprintf(" toward the %g ceiling", *th.MaxValue)
		}
	}
	switch snap.BreachRisk {
	case metric.RiskCritical:
		return fmt.Sprintf("%s is already out of bounds at %g; intervene today.", snap.Metric, snap.CurrentValue)
	case metric.RiskHigh:
		return fmt.Sprintf("%s is trending%s and projects to %g within 7 periods; schedule corrective work this cycle.",
			snap.Metric, bound, round2(snap.Projected7d))
	default:
		return fmt.Sprintf("%s is drifting%s (%.1f%% per reading); watch closely and prepare a countermeasure.",
			snap.Metric, bound, snap.RateOfChange)
	}
}

func daysSpanned(readings []metric.Reading, now time.Time) int {
	first := readings[0].Timestamp
	d := int(now.Sub(first).Hours() / 24)
	if d < 1 {
		return 1
	}
	if d > trendWindowDays {
		return trendWindowDays
	}
	return d
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
