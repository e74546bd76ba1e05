package planning

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/execdesk/execdesk/internal/domain/workitem"
)

func TestParseWorkItems(t *testing.T) {
	t.Run("metadata and plain item", func(t *testing.T) {
		text := "TASKS:\n1. [growth, Virtual Growth Marketer, P1] Launch campaign – Run the Q1 push\n2. Fix onboarding bug"
		drafts := ParseWorkItems(text)
		require.Len(t, drafts, 2)

		assert.Equal(t, "growth", drafts[0].Domain)
		assert.Equal(t, "Virtual Growth Marketer", drafts[0].Owner)
		assert.Equal(t, 1, drafts[0].Priority)
		assert.Equal(t, "Launch campaign", drafts[0].Title)
		assert.Equal(t, "Run the Q1 push", drafts[0].Description)

		assert.Equal(t, workitem.DefaultDomain, drafts[1].Domain)
		assert.Equal(t, workitem.DefaultOwner, drafts[1].Owner)
		assert.Equal(t, workitem.DefaultPriority, drafts[1].Priority)
		assert.Equal(t, "Fix onboarding bug", drafts[1].Title)
		assert.Equal(t, "Fix onboarding bug", drafts[1].Description)
	})

	t.Run("no heading yields empty", func(t *testing.T) {
		drafts := ParseWorkItems("1. Looks like a task\n2. But no heading came first")
		assert.Empty(t, drafts)
	})

	t.Run("lines before the heading are ignored", func(t *testing.T) {
		text := "1. Not yet a task\nSome plan prose.\ntasks for today\n1. Real task"
		drafts := ParseWorkItems(text)
		require.Len(t, drafts, 1)
		assert.Equal(t, "Real task", drafts[0].Title)
	})

	t.Run("heading match is case-insensitive and colon-free", func(t *testing.T) {
		for _, heading := range []string{"TASKS:", "Tasks", "tasks for the day"} {
			drafts := ParseWorkItems(heading + "\n1. Do the thing")
			require.Len(t, drafts, 1, "heading %q", heading)
		}
	})

	t.Run("items ten and beyond are kept", func(t *testing.T) {
		text := "TASKS:\n"
		for i := 1; i <= 12; i++ {
			text += fmt.Sprintf("%d. Task number %d\n", i, i)
		}
		drafts := ParseWorkItems(text)
		require.Len(t, drafts, 12)
		assert.Equal(t, "Task number 10", drafts[9].Title)
		assert.Equal(t, "Task number 12", drafts[11].Title)
	})

	t.Run("stray prose between items is ignored", func(t *testing.T) {
		text := "TASKS:\n1. First\nsome commentary the model added\n2. Second\n\n3. Third"
		drafts := ParseWorkItems(text)
		require.Len(t, drafts, 3)
	})

	t.Run("suffix metadata matches prefix metadata", func(t *testing.T) {
		prefix := ParseWorkItems("TASKS:\n1. [sales, Virtual SDR, P2] Chase pipeline – Call warm leads")
		suffix := ParseWorkItems("TASKS:\n1. Chase pipeline – Call warm leads [sales, Virtual SDR, P2]")
		require.Len(t, prefix, 1)
		require.Len(t, suffix, 1)
		assert.Equal(t, prefix[0].Domain, suffix[0].Domain)
		assert.Equal(t, prefix[0].Owner, suffix[0].Owner)
		assert.Equal(t, prefix[0].Priority, suffix[0].Priority)
		assert.Equal(t, prefix[0].Title, suffix[0].Title)
		assert.Equal(t, prefix[0].Description, suffix[0].Description)
	})

	t.Run("hyphen separator splits title from description", func(t *testing.T) {
		drafts := ParseWorkItems("TASKS:\n1. Write report - Summarize last week")
		require.Len(t, drafts, 1)
		assert.Equal(t, "Write report", drafts[0].Title)
		assert.Equal(t, "Summarize last week", drafts[0].Description)
	})

	t.Run("malformed priority falls back to default", func(t *testing.T) {
		for _, tok := range []string{"high", "P", "Pone", "1"} {
			drafts := ParseWorkItems("TASKS:\n1. [ops, Ops Lead, " + tok + "] Tidy runbooks")
			require.Len(t, drafts, 1, "token %q", tok)
			assert.Equal(t, workitem.DefaultPriority, drafts[0].Priority, "token %q", tok)
		}
	})

	t.Run("priority is clamped to the ordinal range", func(t *testing.T) {
		drafts := ParseWorkItems("TASKS:\n1. [ops, Ops Lead, P9] Tidy runbooks\n2. [ops, Ops Lead, P0] Other")
		require.Len(t, drafts, 2)
		assert.Equal(t, 5, drafts[0].Priority)
		assert.Equal(t, 1, drafts[1].Priority)
	})

	t.Run("broadcast tool seeds from the title", func(t *testing.T) {
		drafts := ParseWorkItems("TASKS:\n1. Message the team about the launch\n2. Notify the team – standup moved\n3. Ship the fix")
		require.Len(t, drafts, 3)
		assert.Equal(t, workitem.ToolBroadcast, drafts[0].Tool)
		assert.Equal(t, workitem.ToolBroadcast, drafts[1].Tool)
		assert.Equal(t, workitem.ToolLog, drafts[2].Tool)
	})

	t.Run("two-field metadata keeps default priority", func(t *testing.T) {
		drafts := ParseWorkItems("TASKS:\n1. [data, Data Engineer] Refresh the dashboard")
		require.Len(t, drafts, 1)
		assert.Equal(t, "data", drafts[0].Domain)
		assert.Equal(t, "Data Engineer", drafts[0].Owner)
		assert.Equal(t, workitem.DefaultPriority, drafts[0].Priority)
	})
}
