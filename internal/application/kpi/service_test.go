package kpi

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/execdesk/execdesk/internal/domain/metric"
)

// memoryHistory is an in-memory HistoryRepository; readings stay in append
// order, which is oldest-first the way the tests feed them.
type memoryHistory struct {
	readings []metric.Reading
}

func (m *memoryHistory) Append(_ context.Context, r metric.Reading) error {
	m.readings = append(m.readings, r)
	return nil
}

func (m *memoryHistory) ListSince(_ context.Context, name string, since time.Time) ([]metric.Reading, error) {
	var out []metric.Reading
	for _, r := range m.readings {
		if r.Name == name && !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryHistory) Names(_ context.Context) ([]string, error) {
	seen := map[string]bool{}
	for _, r := range m.readings {
		seen[r.Name] = true
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func fptr(v float64) *float64 { return &v }

func TestCheck(t *testing.T) {
	t.Run("below minimum", func(t *testing.T) {
		a := Check(metric.Reading{Name: "mrr", Value: 90}, metric.Threshold{MinValue: fptr(100)})
		require.NotNil(t, a)
		assert.Contains(t, a.Reason, "below minimum 100")
	})

	t.Run("above maximum", func(t *testing.T) {
		a := Check(metric.Reading{Name: "churn_rate", Value: 60}, metric.Threshold{MaxValue: fptr(50)})
		require.NotNil(t, a)
		assert.Contains(t, a.Reason, "above maximum 50")
	})

	t.Run("within bounds", func(t *testing.T) {
		a := Check(metric.Reading{Name: "mrr", Value: 150}, metric.Threshold{MinValue: fptr(100), MaxValue: fptr(200)})
		assert.Nil(t, a)
	})

	t.Run("inverted bounds report both violations", func(t *testing.T) {
		a := Check(metric.Reading{Name: "odd", Value: 50}, metric.Threshold{MinValue: fptr(80), MaxValue: fptr(20)})
		require.NotNil(t, a)
		assert.Contains(t, a.Reason, "below minimum 80")
		assert.Contains(t, a.Reason, "above maximum 20")
	})

	t.Run("condition expression fires", func(t *testing.T) {
		th := metric.Threshold{MinValue: fptr(100), Condition: "value < min * 1.1"}
		a := Check(metric.Reading{Name: "mrr", Value: 105}, th)
		require.NotNil(t, a)
		assert.Contains(t, a.Reason, "condition")
		assert.NotContains(t, a.Reason, "below minimum")
	})

	t.Run("broken condition never fails the check", func(t *testing.T) {
		th := metric.Threshold{Condition: "value <<< nonsense"}
		assert.Nil(t, Check(metric.Reading{Name: "mrr", Value: 100}, th))
	})
}

func TestRecord(t *testing.T) {
	hist := &memoryHistory{}
	svc := NewService(hist, map[string]metric.Threshold{
		"weekly_active_users": {Name: "weekly_active_users", MinValue: fptr(8000)},
	}, nil, zerolog.Nop())
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	alerts, err := svc.Record(context.Background(), metric.Reading{Name: "weekly_active_users", Value: 7500})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].Reason, "below minimum 8000")

	// Zero timestamps get stamped with the service clock.
	require.Len(t, hist.readings, 1)
	assert.Equal(t, fixed, hist.readings[0].Timestamp)

	alerts, err = svc.Record(context.Background(), metric.Reading{Name: "weekly_active_users", Value: 9000})
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

// seedDecline appends count daily readings ending at now, dropping by step
// per day from start.
func seedDecline(hist *memoryHistory, name string, now time.Time, count int, start, step float64) {
	for i := 0; i < count; i++ {
		hist.readings = append(hist.readings, metric.Reading{
			Timestamp: now.AddDate(0, 0, i-count+1),
			Name:      name,
			Value:     start - step*float64(i),
		})
	}
}

func TestAnalyzeTrend(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("insufficient history yields no snapshot", func(t *testing.T) {
		hist := &memoryHistory{}
		seedDecline(hist, "mrr", now, 2, 10000, 60)
		svc := NewService(hist, nil, nil, zerolog.Nop())
		svc.now = func() time.Time { return now }

		snap, err := svc.AnalyzeTrend(context.Background(), "mrr")
		require.NoError(t, err)
		assert.Nil(t, snap)
	})

	t.Run("steady decline projects a breach", func(t *testing.T) {
		hist := &memoryHistory{}
		// 30 days from 10000 down 60/day lands at 8260, above the 8000
		// floor today but below it within the 7-day projection.
		seedDecline(hist, "weekly_active_users", now, 30, 10000, 60)
		svc := NewService(hist, map[string]metric.Threshold{
			"weekly_active_users": {Name: "weekly_active_users", MinValue: fptr(8000)},
		}, nil, zerolog.Nop())
		svc.now = func() time.Time { return now }

		snap, err := svc.AnalyzeTrend(context.Background(), "weekly_active_users")
		require.NoError(t, err)
		require.NotNil(t, snap)

		assert.Equal(t, 8260.0, snap.CurrentValue)
		assert.Equal(t, metric.TrendDecreasing, snap.Direction)
		require.NotNil(t, snap.MovingAvg30d)
		assert.InDelta(t, 9130, *snap.MovingAvg30d, 0.01)
		assert.Negative(t, snap.RateOfChange)
		assert.Less(t, snap.Projected7d, 8000.0)
		assert.Equal(t, metric.RiskHigh, snap.BreachRisk)
		assert.NotEmpty(t, snap.Recommendation)
		assert.True(t, snap.ActionNeeded())
	})

	t.Run("current violation is critical", func(t *testing.T) {
		hist := &memoryHistory{}
		seedDecline(hist, "weekly_active_users", now, 10, 8200, 50) // ends at 7750
		svc := NewService(hist, map[string]metric.Threshold{
			"weekly_active_users": {Name: "weekly_active_users", MinValue: fptr(8000)},
		}, nil, zerolog.Nop())
		svc.now = func() time.Time { return now }

		snap, err := svc.AnalyzeTrend(context.Background(), "weekly_active_users")
		require.NoError(t, err)
		require.NotNil(t, snap)
		assert.Equal(t, metric.RiskCritical, snap.BreachRisk)
		assert.Contains(t, snap.Recommendation, "intervene today")
	})

	t.Run("no threshold means low risk", func(t *testing.T) {
		hist := &memoryHistory{}
		seedDecline(hist, "page_views", now, 10, 1000, 30)
		svc := NewService(hist, nil, nil, zerolog.Nop())
		svc.now = func() time.Time { return now }

		snap, err := svc.AnalyzeTrend(context.Background(), "page_views")
		require.NoError(t, err)
		require.NotNil(t, snap)
		assert.Equal(t, metric.RiskLow, snap.BreachRisk)
		assert.Empty(t, snap.Recommendation)
		assert.False(t, snap.ActionNeeded())
	})
}

func TestProactiveRecommendations(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	hist := &memoryHistory{}
	seedDecline(hist, "weekly_active_users", now, 30, 10000, 60)
	// Flat metric with plenty of headroom stays quiet.
	for i := 0; i < 10; i++ {
		hist.readings = append(hist.readings, metric.Reading{
			Timestamp: now.AddDate(0, 0, i-9), Name: "mrr", Value: 50000,
		})
	}
	svc := NewService(hist, map[string]metric.Threshold{
		"weekly_active_users": {Name: "weekly_active_users", MinValue: fptr(8000)},
		"mrr":                 {Name: "mrr", MinValue: fptr(10000)},
	}, nil, zerolog.Nop())
	svc.now = func() time.Time { return now }

	recs, err := svc.ProactiveRecommendations(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "weekly_active_users", recs[0].Metric)
}
