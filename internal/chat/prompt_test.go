package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wayfarerhq/wayfarer/internal/model"
)

func TestPromptBuild_LabelsItemsBySource(t *testing.T) {
	merged := model.MergedContext{
		Items: []model.ContextItem{
			{ID: "a", Source: model.SourceVector, Text: "Hoan Kiem Lake sits in central Hanoi.", Score: 0.912},
			{ID: "b", Source: model.SourceGraph, Text: "Hanoi → CONTAINS → Old Quarter", Score: 1.0},
		},
		Chars: 60,
	}
	b := NewPromptBuilder(6)

	prompt := b.Build(merged, nil, "what to see in hanoi")

	require.Contains(t, prompt, `SEARCH RESULTS FOR: "what to see in hanoi"`)
	require.Contains(t, prompt, "=== CONTEXT ===")
	require.Contains(t, prompt, "[vector 1 score=0.912] Hoan Kiem Lake sits in central Hanoi.")
	require.Contains(t, prompt, "[graph 2 strength=1.0] Hanoi → CONTAINS → Old Quarter")
	require.Contains(t, prompt, "USER QUESTION: what to see in hanoi")
}

func TestPromptBuild_EmptyContextFallsBackToGeneralMode(t *testing.T) {
	b := NewPromptBuilder(6)

	prompt := b.Build(model.MergedContext{}, nil, "best pho in town")

	require.NotContains(t, prompt, "=== CONTEXT ===")
	require.NotContains(t, prompt, "SEARCH RESULTS FOR")
	require.Contains(t, prompt, "No database matches were found")
	require.Contains(t, prompt, "USER QUESTION: best pho in town")
}

func TestPromptBuild_AlwaysCarriesPersona(t *testing.T) {
	b := NewPromptBuilder(6)

	withContext := b.Build(model.MergedContext{Items: []model.ContextItem{{ID: "a", Source: model.SourceVector, Text: "x"}}, Chars: 1}, nil, "q")
	withoutContext := b.Build(model.MergedContext{}, nil, "q")

	for _, prompt := range []string{withContext, withoutContext} {
		require.True(t, strings.HasPrefix(prompt, "You are an expert Vietnam travel assistant"))
	}
}

func TestPromptBuild_HistoryWindowIsHardCapped(t *testing.T) {
	tail := []model.Turn{
		{Role: model.RoleUser, Message: "first question"},
		{Role: model.RoleAssistant, Message: "first answer"},
		{Role: model.RoleUser, Message: "second question"},
		{Role: model.RoleAssistant, Message: "second answer"},
	}
	b := NewPromptBuilder(2)

	prompt := b.Build(model.MergedContext{}, tail, "third question")

	require.NotContains(t, prompt, "first question")
	require.NotContains(t, prompt, "first answer")
	require.Contains(t, prompt, "user: second question")
	require.Contains(t, prompt, "assistant: second answer")

	idxUser := strings.Index(prompt, "user: second question")
	idxAssistant := strings.Index(prompt, "assistant: second answer")
	require.Less(t, idxUser, idxAssistant, "history must stay in chronological order")
}

func TestPromptBuild_NoHistorySectionWhenTailEmpty(t *testing.T) {
	b := NewPromptBuilder(6)

	prompt := b.Build(model.MergedContext{}, nil, "q")
	require.NotContains(t, prompt, "=== CONVERSATION ===")
}
