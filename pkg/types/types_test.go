package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domain "github.com/sellerscope/sellerscope/pkg/types"
)

func TestQueueState(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state    domain.QueueState
		terminal bool
		live     bool
	}{
		{domain.StatePending, false, true},
		{domain.StateProcessing, false, true},
		{domain.StateCompleted, true, false},
		{domain.StateFailed, true, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.terminal, tt.state.IsTerminal(), "IsTerminal(%s)", tt.state)
		assert.Equal(t, tt.live, tt.state.IsLive(), "IsLive(%s)", tt.state)
	}
}

func TestQueueEntry_IsManual(t *testing.T) {
	t.Parallel()

	user := "user-1"

	manual := &domain.QueueEntry{Priority: domain.PriorityManual, RequestedBy: &user}
	assert.True(t, manual.IsManual())

	system := &domain.QueueEntry{Priority: 7}
	assert.False(t, system.IsManual())

	// Priority alone doesn't make an entry manual; attribution is required.
	unattributed := &domain.QueueEntry{Priority: domain.PriorityManual}
	assert.False(t, unattributed.IsManual())
}

func TestNormalizeKeyword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Garlic Press", "garlic press"},
		{"trims", "  garlic press  ", "garlic press"},
		{"collapses inner whitespace", "garlic \t  press", "garlic press"},
		{"already normal", "garlic press", "garlic press"},
		{"empty", "", ""},
		{"whitespace only", "   \t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, domain.NormalizeKeyword(tt.input))
		})
	}
}

func TestNormalizeMarketplace(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "amazon.com", domain.NormalizeMarketplace(" Amazon.com "))
	assert.Equal(t, "us", domain.NormalizeMarketplace("US"))
	assert.Equal(t, "", domain.NormalizeMarketplace("  "))
}

func TestSnapshot_HasData(t *testing.T) {
	t.Parallel()

	empty := &domain.Snapshot{Keyword: "k", Marketplace: "us"}
	assert.False(t, empty.HasData())

	filled := &domain.Snapshot{Keyword: "k", Marketplace: "us", ListingCount: 3}
	assert.True(t, filled.HasData())
}
