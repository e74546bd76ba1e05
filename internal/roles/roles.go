// Package roles holds the worker-pool role catalogue. Roles can be defined
// as YAML documents in a roles directory so new job titles are data, not
// code.
package roles

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition describes one pool role.
type Definition struct {
	RoleID           string   `yaml:"role_id" json:"roleId"`
	Title            string   `yaml:"title" json:"title"`
	Department       string   `yaml:"department" json:"department"`
	Seniority        string   `yaml:"seniority" json:"seniority,omitempty"`
	Description      string   `yaml:"description" json:"description,omitempty"`
	Responsibilities string   `yaml:"core_responsibilities" json:"responsibilities,omitempty"`
	StyleGuidelines  string   `yaml:"style_guidelines" json:"styleGuidelines,omitempty"`
	KPIFocus         string   `yaml:"kpi_focus" json:"kpiFocus,omitempty"`
	Aliases          []string `yaml:"aliases" json:"aliases,omitempty"`
	MaxDailyTasks    int      `yaml:"max_daily_tasks" json:"maxDailyTasks,omitempty"`
}

// Registry keeps roles in registration order; matching ties break toward the
// first-registered role.
type Registry struct {
	order []string
	byID  map[string]*Definition
}

// NewRegistry builds a registry from definitions, preserving order.
func NewRegistry(defs []Definition) *Registry {
	r := &Registry{byID: make(map[string]*Definition)}
	for i := range defs {
		d := defs[i]
		if d.RoleID == "" {
			continue
		}
		if _, dup := r.byID[d.RoleID]; dup {
			continue
		}
		r.order = append(r.order, d.RoleID)
		r.byID[d.RoleID] = &d
	}
	return r
}

// Get returns a role by id.
func (r *Registry) Get(roleID string) (*Definition, bool) {
	d, ok := r.byID[roleID]
	return d, ok
}

// All returns roles in registration order.
func (r *Registry) All() []*Definition {
	out := make([]*Definition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// LoadDir reads every *.yaml role definition from dir, sorted by filename
// for a deterministic registration order. A missing directory yields the
// built-in defaults.
func LoadDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return NewRegistry(Defaults()), nil
		}
		return nil, fmt.Errorf("read roles dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var defs []Definition
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read role %s: %w", name, err)
		}
		var d Definition
		if err := yaml.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("parse role %s: %w", name, err)
		}
		if d.RoleID == "" {
			return nil, fmt.Errorf("role %s: role_id is required", name)
		}
		defs = append(defs, d)
	}
	if len(defs) == 0 {
		defs = Defaults()
	}
	return NewRegistry(defs), nil
}

// Defaults is the built-in role catalogue used when no roles directory is
// configured.
func Defaults() []Definition {
	return []Definition{
		{
			RoleID:        "growth_marketer",
			Title:         "Growth Marketer",
			Department:    "Marketing",
			Seniority:     "IC",
			Description:   "Owns acquisition funnels, campaigns and conversion experiments.",
			KPIFocus:      "signups, CAC, conversion rate",
			Aliases:       []string{"marketer", "cmo", "head of growth"},
			MaxDailyTasks: 15,
		},
		{
			RoleID:        "sales_sdr",
			Title:         "Sales Development Rep",
			Department:    "Sales",
			Seniority:     "IC",
			Description:   "Runs outbound prospecting and pipeline follow-ups.",
			KPIFocus:      "meetings booked, pipeline value",
			Aliases:       []string{"sdr", "sales rep", "bdm"},
			MaxDailyTasks: 15,
		},
		{
			RoleID:        "product_manager",
			Title:         "Product Manager",
			Department:    "Product",
			Seniority:     "Manager",
			Description:   "Owns the roadmap, specs and prioritisation.",
			KPIFocus:      "activation, retention",
			Aliases:       []string{"pm", "head of product", "product owner"},
			MaxDailyTasks: 12,
		},
		{
			RoleID:        "ops_manager",
			Title:         "Operations Manager",
			Department:    "Operations",
			Seniority:     "Manager",
			Description:   "Owns SOPs, service quality and incident response.",
			KPIFocus:      "SLA compliance, NPS",
			Aliases:       []string{"ops", "coo", "operations lead"},
			MaxDailyTasks: 12,
		},
		{
			RoleID:        "support_agent",
			Title:         "Customer Support Agent",
			Department:    "Operations",
			Seniority:     "IC",
			Description:   "Handles customer tickets and escalations.",
			KPIFocus:      "first response time, CSAT",
			Aliases:       []string{"support", "customer success"},
			MaxDailyTasks: 20,
		},
		{
			RoleID:        "data_engineer",
			Title:         "Data Engineer",
			Department:    "Technology",
			Seniority:     "IC",
			Description:   "Builds pipelines, dashboards and experiments.",
			KPIFocus:      "report freshness, experiment velocity",
			Aliases:       []string{"data", "analytics engineer"},
			MaxDailyTasks: 10,
		},
	}
}

// Tokens returns the lower-cased words in a role's id, title and aliases,
// used for overlap matching.
func (d *Definition) Tokens() []string {
	seen := map[string]bool{}
	var out []string
	add := func(s string) {
		for _, tok := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
			return r == ' ' || r == '_' || r == '-'
		}) {
			if tok != "" && !seen[tok] {
				seen[tok] = true
				out = append(out, tok)
			}
		}
	}
	add(d.RoleID)
	add(d.Title)
	for _, a := range d.Aliases {
		add(a)
	}
	return out
}
