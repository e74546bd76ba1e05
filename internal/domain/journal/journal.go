package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind names an append-only record stream in the journal.
type Kind string

const (
	KindDecision   Kind = "decisions"
	KindEvent      Kind = "events"
	KindExecution  Kind = "executions"
	KindMetric     Kind = "metrics"
	KindGeneration Kind = "generation"
	KindReflection Kind = "reflections"
)

// Kinds lists every journal stream.
var Kinds = []Kind{KindDecision, KindEvent, KindExecution, KindMetric, KindGeneration, KindReflection}

// Entry is one journal record: a decision text plus free-form context.
// Entries are write-once; the engine reads back only aggregated counts.
type Entry struct {
	ID        uuid.UUID         `json:"id"`
	At        time.Time         `json:"at"`
	Text      string            `json:"text"`
	Context   map[string]string `json:"context,omitempty"`
	Units     int               `json:"units,omitempty"`
	Signature []byte            `json:"signature,omitempty"`
}

// NewEntry builds an entry stamped now.
func NewEntry(text string, ctx map[string]string) Entry {
	return Entry{
		ID:      uuid.New(),
		At:      time.Now().UTC(),
		Text:    text,
		Context: ctx,
	}
}

// DaySummary aggregates one day of journal activity.
type DaySummary struct {
	Date            string `json:"date"`
	Decisions       int    `json:"decisions"`
	Executions      int    `json:"executions"`
	MetricUpdates   int    `json:"metricUpdates"`
	Events          int    `json:"events"`
	GenerationCalls int    `json:"generationCalls"`
	GenerationUnits int    `json:"generationUnits"`
	Reflections     int    `json:"reflections"`
}

// Sink is the append-only journal store. Failures to append must never fail
// the caller's cycle; implementations log and continue.
type Sink interface {
	Append(ctx context.Context, kind Kind, e Entry) error
	Summary(ctx context.Context, date time.Time) (DaySummary, error)
}
