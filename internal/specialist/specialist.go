// Package specialist provides the fixed, named executors bound to one
// business domain each. Specialists are not pool-scaled; they wrap the
// generation collaborator with a role mandate.
package specialist

import (
	"context"
	"fmt"

	"github.com/execdesk/execdesk/internal/domain/workitem"
	"github.com/execdesk/execdesk/internal/generation"
)

// Specialist is a domain-bound executor.
type Specialist struct {
	Name    string
	Role    string
	Mandate string
	client  generation.Client
}

// Execute asks the specialist to do the work for one item and returns its
// free-text output.
func (s *Specialist) Execute(ctx context.Context, item *workitem.WorkItem, businessContext string) (string, error) {
	user := fmt.Sprintf(
		"Role: %s\nAgent Name: %s\n\nBusiness Context:\n%s\n\nInstruction:\n%s\n\n"+
			"Respond with a clear, structured answer including:\n"+
			"- Diagnosis (what's going on)\n"+
			"- 3-5 concrete actions\n"+
			"- Any risks or dependencies\n",
		s.Role, s.Name, businessContext, item.Description,
	)
	out, err := s.client.Generate(ctx, s.Mandate, user)
	if err != nil {
		return "", fmt.Errorf("specialist %s: %w", s.Role, err)
	}
	return out, nil
}

// Revenue owns revenue, growth, funnels, pricing and go-to-market.
func Revenue(client generation.Client) *Specialist {
	return &Specialist{
		Name: "Revenue Specialist",
		Role: "Chief Revenue Officer",
		Mandate: "You are the Chief Revenue Officer for a fast-moving company. " +
			"You think in terms of recurring revenue, funnels, retention, activation, " +
			"acquisition cost, pricing, packaging and growth loops. You are practical " +
			"and numbers-driven, and you explain clearly enough that a small team can " +
			"execute without confusion.",
		client: client,
	}
}

// Operations owns delivery, service quality, staffing and customer experience.
func Operations(client generation.Client) *Specialist {
	return &Specialist{
		Name: "Operations Specialist",
		Role: "Chief Operating Officer",
		Mandate: "You are the Chief Operating Officer. You own operations, delivery, " +
			"service quality, SLAs, staffing and customer experience. You turn strategy " +
			"into playbooks, processes, KPIs and daily execution routines. You are " +
			"concrete: who does what, by when, in which system.",
		client: client,
	}
}

// Technology owns product strategy, architecture and delivery velocity.
func Technology(client generation.Client) *Specialist {
	return &Specialist{
		Name: "Technology Specialist",
		Role: "Chief Technology Officer",
		Mandate: "You are the Chief Technology Officer and Head of Product. You own " +
			"product strategy, technical architecture, reliability and developer " +
			"velocity. You think in terms of user impact, complexity and time-to-value. " +
			"You propose lean, high-impact changes, not giant rewrites.",
		client: client,
	}
}
