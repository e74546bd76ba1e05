// Package notify defines the outbound notification boundary. Delivery is
// fire-and-forget: failures are logged and never fail a planning cycle.
package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Sender delivers two pre-rendered text blocks (operational snapshot and
// action briefing) to a set of named channels.
type Sender interface {
	Send(ctx context.Context, channels []string, snapshot, briefing string) error
}

// LogSender writes briefings to the log instead of an external channel.
type LogSender struct {
	Logger zerolog.Logger
}

// Send logs the briefing per channel and always succeeds.
func (s *LogSender) Send(_ context.Context, channels []string, snapshot, briefing string) error {
	for _, ch := range channels {
		s.Logger.Info().
			Str("channel", ch).
			Int("snapshotBytes", len(snapshot)).
			Int("briefingBytes", len(briefing)).
			Msg("briefing delivered")
	}
	return nil
}

// Fanout delivers through every sender; the first failure is returned after
// all senders have run.
type Fanout []Sender

func (f Fanout) Send(ctx context.Context, channels []string, snapshot, briefing string) error {
	var first error
	for _, s := range f {
		if err := s.Send(ctx, channels, snapshot, briefing); err != nil && first == nil {
			first = err
		}
	}
	return first
}
