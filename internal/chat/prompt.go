package chat

import (
	"fmt"
	"strings"

	"github.com/wayfarerhq/wayfarer/internal/model"
)

const personaPreamble = `You are an expert Vietnam travel assistant with access to a curated database of destinations, activities, food and attractions across Vietnam.

Your responses should be:
1. Specific and detailed, grounded in the context provided
2. Practical, with prices, timing and locations when available
3. Well-structured and easy to scan
4. Actionable, with concrete recommendations`

type PromptBuilder struct {
	historyTurns int
}

func NewPromptBuilder(historyTurns int) *PromptBuilder {
	return &PromptBuilder{historyTurns: historyTurns}
}

// Build renders the final instruction text. The history window is a
// hard cap applied here even if the caller hands in a longer tail.
func (b *PromptBuilder) Build(merged model.MergedContext, tail []model.Turn, userQuery string) string {
	var sb strings.Builder
	sb.WriteString(personaPreamble)
	sb.WriteString("\n\n")

	if merged.Empty() {
		sb.WriteString("No database matches were found for this question. Answer from your general knowledge of Vietnam travel and say so when you are unsure.\n\n")
	} else {
		fmt.Fprintf(&sb, "SEARCH RESULTS FOR: %q\n\n=== CONTEXT ===\n", userQuery)
		for i, item := range merged.Items {
			if item.Source == model.SourceVector {
				fmt.Fprintf(&sb, "[vector %d score=%.3f] %s\n", i+1, item.Score, item.Text)
			} else {
				fmt.Fprintf(&sb, "[graph %d strength=%.1f] %s\n", i+1, item.Score, item.Text)
			}
		}
		sb.WriteString("\n")
	}

	if b.historyTurns > 0 && len(tail) > b.historyTurns {
		tail = tail[len(tail)-b.historyTurns:]
	}
	if len(tail) > 0 {
		sb.WriteString("=== CONVERSATION ===\n")
		for _, turn := range tail {
			fmt.Fprintf(&sb, "%s: %s\n", turn.Role, turn.Message)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "USER QUESTION: %s\n\n", userQuery)
	if merged.Empty() {
		sb.WriteString("Keep the answer concise and actionable.")
	} else {
		sb.WriteString("Answer using the context above. Name specific places and include practical details from the context. Keep it concise and actionable.")
	}
	return sb.String()
}
