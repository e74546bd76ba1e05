package router

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/execdesk/execdesk/internal/roles"
)

func TestNormalizeOwner(t *testing.T) {
	reg := roles.NewRegistry(roles.Defaults())

	tests := []struct {
		label  string
		want   string
		wantOK bool
	}{
		{"growth_marketer", "growth_marketer", true},
		{"Growth Marketer", "growth_marketer", true},
		{"growth-marketer", "growth_marketer", true},
		{"Virtual Growth Marketer", "growth_marketer", true},
		{"virtual sales_sdr", "sales_sdr", true},
		{"Head of Product", "", false},
		{"", "", false},
		{"virtual ", "", false},
		{"Chief Vibes Officer", "", false},
	}
	for _, tc := range tests {
		got, ok := NormalizeOwner(tc.label, reg)
		assert.Equal(t, tc.wantOK, ok, "label %q", tc.label)
		assert.Equal(t, tc.want, got, "label %q", tc.label)
	}
}

func TestRelaxedMatch(t *testing.T) {
	reg := roles.NewRegistry(roles.Defaults())

	tests := []struct {
		label  string
		want   string
		wantOK bool
	}{
		// Alias table.
		{"CMO", "growth_marketer", true},
		{"Head of Growth", "growth_marketer", true},
		{"SDR", "sales_sdr", true},
		{"Product Owner", "product_manager", true},
		{"COO", "ops_manager", true},
		{"Customer Success", "support_agent", true},
		{"Head of Product", "product_manager", true},
		{"Operations Lead", "ops_manager", true},
		// Token overlap on id/title words.
		{"Product Guru", "product_manager", true},
		{"Virtual Data Wizard", "data_engineer", true},
		{"Senior Support Hero", "support_agent", true},
		// Short tokens never match on their own.
		{"VP of X", "", false},
		{"The Boss", "", false},
	}
	for _, tc := range tests {
		got, ok := RelaxedMatch(tc.label, reg)
		assert.Equal(t, tc.wantOK, ok, "label %q", tc.label)
		assert.Equal(t, tc.want, got, "label %q", tc.label)
	}
}

func TestRelaxedMatchTieBreak(t *testing.T) {
	reg := roles.NewRegistry([]roles.Definition{
		{RoleID: "first_writer", Title: "Content Writer"},
		{RoleID: "second_writer", Title: "Technical Writer"},
	})
	got, ok := RelaxedMatch("Ghost Writer", reg)
	assert.True(t, ok)
	assert.Equal(t, "first_writer", got, "ties break toward the first-registered role")
}
