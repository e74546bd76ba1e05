package generation

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// StaticClient is an offline Client used for dry runs and tests. It echoes a
// minimal plan so the rest of the engine can be exercised without a live
// collaborator. Safe for concurrent use.
type StaticClient struct {
	Responses []string

	mu    sync.Mutex
	calls int
}

// Generate returns the next canned response, or a small default plan when
// none are configured.
func (c *StaticClient) Generate(_ context.Context, _, userPrompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls < len(c.Responses) {
		resp := c.Responses[c.calls]
		c.calls++
		return resp, nil
	}
	c.calls++
	var b strings.Builder
	b.WriteString("PLAN:\n- review priorities\n\nTASKS:\n")
	b.WriteString("1. [general, Executive Desk, P3] Review daily priorities – ")
	b.WriteString(fmt.Sprintf("Summarize and triage: %s\n", firstLine(userPrompt)))
	return b.String(), nil
}

// LastUsage reports zero usage; the static client consumes no units.
func (c *StaticClient) LastUsage() Usage { return Usage{} }

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
