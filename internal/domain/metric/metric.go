package metric

import (
	"time"
)

// Reading is one observed value for a named metric. Readings are append-only
// and never mutated.
type Reading struct {
	Timestamp time.Time `json:"timestamp"`
	Name      string    `json:"name"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit,omitempty"`
	Source    string    `json:"source,omitempty"`
}

// Threshold configures the acceptable range for one metric. Either bound may
// be unset. Direction is a hint for risk classification messaging.
type Threshold struct {
	Name      string   `json:"name" mapstructure:"name"`
	MinValue  *float64 `json:"minValue,omitempty" mapstructure:"min"`
	MaxValue  *float64 `json:"maxValue,omitempty" mapstructure:"max"`
	Unit      string   `json:"unit,omitempty" mapstructure:"unit"`
	Direction string   `json:"direction,omitempty" mapstructure:"direction"`
	// Condition is an optional boolean expression evaluated against
	// {value, min, max}; when set it fires an alert in addition to the
	// bound checks.
	Condition string `json:"condition,omitempty" mapstructure:"condition"`
}

// Alert is a threshold violation for one reading. Reason lists every
// violated bound.
type Alert struct {
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit,omitempty"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// BreachRisk is a qualitative forecast of how likely/soon a metric will
// violate its configured threshold.
type BreachRisk string

const (
	RiskLow      BreachRisk = "low"
	RiskMedium   BreachRisk = "medium"
	RiskHigh     BreachRisk = "high"
	RiskCritical BreachRisk = "critical"
)

// TrendDirection classifies the 7-day average against the 30-day average.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// TrendSnapshot is derived from the reading history on demand; the readings
// remain the source of truth.
type TrendSnapshot struct {
	Metric         string         `json:"metric"`
	CurrentValue   float64        `json:"currentValue"`
	Direction      TrendDirection `json:"direction"`
	Strength       float64        `json:"strength"`
	DaysAnalyzed   int            `json:"daysAnalyzed"`
	MovingAvg7d    *float64       `json:"movingAvg7d,omitempty"`
	MovingAvg30d   *float64       `json:"movingAvg30d,omitempty"`
	RateOfChange   float64        `json:"rateOfChange"`
	Projected7d    float64        `json:"projected7d"`
	BreachRisk     BreachRisk     `json:"breachRisk"`
	Recommendation string         `json:"recommendation,omitempty"`
}

// ActionNeeded reports whether the snapshot warrants a proactive task.
func (t *TrendSnapshot) ActionNeeded() bool {
	switch t.BreachRisk {
	case RiskMedium, RiskHigh, RiskCritical:
		return t.Recommendation != ""
	default:
		return false
	}
}
