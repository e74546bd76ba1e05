// Package learning tracks which executors historically succeed at which kinds
// of work. Scores inform reporting only; routing stays deterministic.
package learning

import (
	"context"
	"fmt"
	"time"
)

// SuccessPattern is the rolling outcome record for one executor working one
// role/domain combination.
type SuccessPattern struct {
	ExecutorType string    `json:"executorType"`
	Role         string    `json:"role"`
	Domain       string    `json:"domain"`
	Attempts     int       `json:"attempts"`
	Approvals    int       `json:"approvals"`
	Rejections   int       `json:"rejections"`
	Score        float64   `json:"score"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Key identifies the pattern bucket for an outcome.
func (p *SuccessPattern) Key() string {
	return PatternKey(p.ExecutorType, p.Role, p.Domain)
}

// PatternKey builds the canonical map key for one executor/role/domain combo.
func PatternKey(executorType, role, domain string) string {
	return fmt.Sprintf("%s|%s|%s", executorType, role, domain)
}

// SuccessRate returns approvals over attempts, zero when nothing recorded.
func (p *SuccessPattern) SuccessRate() float64 {
	if p.Attempts == 0 {
		return 0
	}
	return float64(p.Approvals) / float64(p.Attempts)
}

// Repository persists success patterns keyed by PatternKey.
type Repository interface {
	Load(ctx context.Context) (map[string]SuccessPattern, error)
	Save(ctx context.Context, patterns map[string]SuccessPattern) error
}
