package worker

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Worker is a provisioned pool member for one role. Workers are never hard
// deleted; deactivation preserves historical capacity accounting.
type Worker struct {
	ID                 uuid.UUID `json:"id"`
	Role               string    `json:"role"`
	Title              string    `json:"title"`
	OwnerMetric        string    `json:"ownerMetric,omitempty"`
	Department         string    `json:"department"`
	Skills             []string  `json:"skills"`
	Tools              []string  `json:"tools"`
	MaxDailyTasks      int       `json:"maxDailyTasks"`
	TasksAssignedToday int       `json:"tasksAssignedToday"`
	Active             bool      `json:"active"`
	Notes              string    `json:"notes,omitempty"`
	PerformanceScore   float64   `json:"performanceScore"`
	CreatedAt          time.Time `json:"createdAt"`
}

// New creates a worker for a role, filling profile defaults from the role
// name when not overridden.
func New(role, title, ownerMetric string, maxDailyTasks int, now time.Time) *Worker {
	if title == "" {
		title = role
	}
	p := GuessProfile(role)
	return &Worker{
		ID:                 uuid.New(),
		Role:               role,
		Title:              title,
		OwnerMetric:        ownerMetric,
		Department:         p.Department,
		Skills:             p.Skills,
		Tools:              p.Tools,
		MaxDailyTasks:      maxDailyTasks,
		TasksAssignedToday: 0,
		Active:             true,
		PerformanceScore:   1.0,
		CreatedAt:          now.UTC(),
	}
}

// RemainingSlots returns today's unused capacity, never negative.
func (w *Worker) RemainingSlots() int {
	r := w.MaxDailyTasks - w.TasksAssignedToday
	if r < 0 {
		return 0
	}
	return r
}

// Profile holds department/skill/tool defaults guessed from a role name.
type Profile struct {
	Department string
	Skills     []string
	Tools      []string
}

// GuessProfile maps a role name onto department, skills and tool affinities
// so callers don't have to define them for every new role.
func GuessProfile(role string) Profile {
	r := strings.ToLower(role)

	has := func(keys ...string) bool {
		for _, k := range keys {
			if strings.Contains(r, k) {
				return true
			}
		}
		return false
	}

	switch {
	case has("sales", "sdr", "closer", "bdm", "growth"):
		return Profile{
			Department: "Sales",
			Skills:     []string{"outbound", "inbound", "crm", "follow-ups", "pipeline-management"},
			Tools:      []string{"email", "broadcast", "crm", "log"},
		}
	case has("marketing", "cmo", "brand", "performance"):
		return Profile{
			Department: "Marketing",
			Skills:     []string{"funnel-design", "ads", "copywriting", "analysis"},
			Tools:      []string{"email", "broadcast", "ads", "log"},
		}
	case has("product", "pm", "roadmap"):
		return Profile{
			Department: "Product",
			Skills:     []string{"roadmap", "spec-writing", "user-research", "prioritisation"},
			Tools:      []string{"docs", "broadcast", "log"},
		}
	case has("ops", "operation", "coo", "support", "cx", "service"):
		return Profile{
			Department: "Operations",
			Skills:     []string{"process-design", "sops", "qa", "incident-management"},
			Tools:      []string{"docs", "broadcast", "helpdesk", "log"},
		}
	case has("cto", "engineering", "tech", "developer", "ai", "data"):
		return Profile{
			Department: "Technology",
			Skills:     []string{"architecture", "backlog", "review", "experiments"},
			Tools:      []string{"broadcast", "docs", "repo", "log"},
		}
	case has("finance", "cfo", "accounts", "billing"):
		return Profile{
			Department: "Finance",
			Skills:     []string{"cashflow", "invoicing", "forecasting"},
			Tools:      []string{"sheets", "email", "log"},
		}
	default:
		return Profile{
			Department: "General",
			Skills:     []string{"analysis", "reporting"},
			Tools:      []string{"log"},
		}
	}
}
