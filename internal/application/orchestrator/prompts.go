package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/execdesk/execdesk/internal/config"
	"github.com/execdesk/execdesk/internal/domain/event"
	"github.com/execdesk/execdesk/internal/domain/metric"
)

// systemMandate frames every planning call. The output contract matters more
// than the persona: the parser only picks up the numbered TASKS block.
func systemMandate(profile config.OrgProfile) string {
	return fmt.Sprintf(
		"You are the chief executive of %s, running its daily operating cadence. "+
			"You delegate aggressively to named owners, think in terms of the "+
			"north-star metric, and plan in small concrete steps.\n\n"+
			"Always end your answer with a section in exactly this format:\n\n"+
			"TASKS:\n"+
			"1. [domain, Owner Title, P1] Short title – what to actually do\n"+
			"2. [domain, Owner Title, P3] Short title – what to actually do\n\n"+
			"Domains: revenue, growth, marketing, sales, operations, support, "+
			"product, engineering, data, general. Priorities P1 (urgent) to P5.",
		profile.Name,
	)
}

func planPrompt(profile config.OrgProfile, trends []metric.TrendSnapshot, openTree string) string {
	var b strings.Builder
	b.WriteString(profile.BusinessContext())
	b.WriteString("\nPlan today's work.\n")
	if len(trends) > 0 {
		b.WriteString("\nMetric warnings:\n")
		for _, t := range trends {
			fmt.Fprintf(&b, "- %s: %s risk, %s\n", t.Metric, t.BreachRisk, t.Recommendation)
		}
	}
	if openTree != "" {
		b.WriteString("\nOpen work already in flight (do not duplicate):\n")
		b.WriteString(openTree)
	}
	b.WriteString("\nProduce at most 7 tasks, highest leverage first.")
	return b.String()
}

func eventPrompt(profile config.OrgProfile, ev event.Event) string {
	var b strings.Builder
	b.WriteString(profile.BusinessContext())
	fmt.Fprintf(&b, "\nAn event of type %q just arrived:\n", ev.Type)
	for _, k := range sortedKeys(ev.Payload) {
		fmt.Fprintf(&b, "- %s: %v\n", k, ev.Payload[k])
	}
	b.WriteString("\nDecide how to respond. Produce at most 3 tasks, or none if no action is needed.")
	return b.String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
