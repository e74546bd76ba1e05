// Package planning extracts structured work item drafts from semi-structured
// planning text produced by the generation collaborator.
package planning

import (
	"strconv"
	"strings"

	"github.com/execdesk/execdesk/internal/domain/workitem"
)

// ParseWorkItems scans text for a heading line whose first token starts with
// "TASKS" (case-insensitive) and parses the numbered lines after it into
// ordered work item drafts. Text with no heading yields an empty slice,
// never an error; stray prose between items is ignored.
func ParseWorkItems(text string) []workitem.Draft {
	var drafts []workitem.Draft
	inTasks := false

	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(line)

		if !inTasks {
			if strings.HasPrefix(strings.ToUpper(stripped), "TASKS") {
				inTasks = true
			}
			continue
		}
		if stripped == "" {
			continue
		}

		content, ok := stripItemMarker(stripped)
		if !ok {
			continue
		}
		drafts = append(drafts, parseItem(content))
	}

	return drafts
}

// stripItemMarker removes a leading "N." item marker. One or more digits
// followed by a period are accepted so items 10 and beyond are not dropped.
func stripItemMarker(s string) (string, bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(s) || s[i] != '.' {
		return "", false
	}
	return strings.TrimSpace(s[i+1:]), true
}

func parseItem(content string) workitem.Draft {
	d := workitem.Draft{
		Domain:   workitem.DefaultDomain,
		Owner:    workitem.DefaultOwner,
		Priority: workitem.DefaultPriority,
	}

	payload := content
	if meta, rest, ok := splitMetadata(content); ok {
		applyMetadata(&d, meta)
		payload = rest
	}

	d.Title, d.Description = splitTitle(payload)
	d.Tool = seedTool(d.Title)
	return d
}

// splitMetadata extracts a bracketed "[domain, owner, Pn]" block. A prefix
// block is checked first, then a suffix block; only one form is honored per
// line.
func splitMetadata(content string) (meta, rest string, ok bool) {
	if strings.HasPrefix(content, "[") {
		end := strings.Index(content, "]")
		if end > 0 {
			return content[1:end], strings.TrimSpace(content[end+1:]), true
		}
		return "", "", false
	}
	if strings.HasSuffix(content, "]") {
		start := strings.LastIndex(content, "[")
		if start >= 0 {
			return content[start+1 : len(content)-1], strings.TrimSpace(content[:start]), true
		}
	}
	return "", "", false
}

func applyMetadata(d *workitem.Draft, meta string) {
	fields := strings.SplitN(meta, ",", 3)
	if len(fields) > 0 {
		if v := strings.ToLower(strings.TrimSpace(fields[0])); v != "" {
			d.Domain = v
		}
	}
	if len(fields) > 1 {
		if v := strings.TrimSpace(fields[1]); v != "" {
			d.Owner = v
		}
	}
	if len(fields) > 2 {
		d.Priority = parsePriorityToken(strings.TrimSpace(fields[2]))
	}
}

// parsePriorityToken accepts "P<digits>" case-insensitively; anything else
// resolves to the default priority.
func parsePriorityToken(tok string) int {
	if len(tok) < 2 || (tok[0] != 'P' && tok[0] != 'p') {
		return workitem.DefaultPriority
	}
	n, err := strconv.Atoi(tok[1:])
	if err != nil {
		return workitem.DefaultPriority
	}
	return workitem.ClampPriority(n)
}

// splitTitle separates title from description on " – " then " - ". With no
// separator both fields carry the full payload so the description is never
// empty.
func splitTitle(payload string) (title, desc string) {
	payload = strings.TrimSpace(payload)
	for _, sep := range []string{" – ", " - "} {
		if i := strings.Index(payload, sep); i >= 0 {
			return strings.TrimSpace(payload[:i]), strings.TrimSpace(payload[i+len(sep):])
		}
	}
	return payload, payload
}

func seedTool(title string) workitem.Tool {
	t := strings.ToLower(title)
	if strings.Contains(t, "message the team") || strings.Contains(t, "notify the team") {
		return workitem.ToolBroadcast
	}
	return workitem.ToolLog
}
