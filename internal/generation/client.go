// Package generation defines the text-generation collaborator boundary. The
// engine treats the collaborator as opaque and must tolerate any free-form
// output.
package generation

import "context"

//go:generate mockgen -source=client.go -destination=mocks/mock_client.go -package=mocks

// Client is the narrow capability interface for the generation collaborator.
type Client interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Usage reports the units consumed by the most recent generation call.
type Usage struct {
	PromptUnits     int `json:"promptUnits"`
	CompletionUnits int `json:"completionUnits"`
	TotalUnits      int `json:"totalUnits"`
}

// UsageReporter is the optional usage-reporting capability. Callers check
// for it with a type assertion and fall back to NopUsage.
type UsageReporter interface {
	LastUsage() Usage
}

// UsageOf returns the client's last usage when it reports one, else zero.
func UsageOf(c Client) Usage {
	if r, ok := c.(UsageReporter); ok {
		return r.LastUsage()
	}
	return Usage{}
}
