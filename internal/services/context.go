package services

import (
	"github.com/recallhq/recall/internal/types"
)

// DefaultRecentWindow caps how many recent turns enter the prompt. The
// bound is fixed, not adaptive to content length.
const DefaultRecentWindow = 12

// AssembleContext builds the ordered message list for generation:
// one system message with the system prompt, then the recent turns
// oldest-first with their roles preserved, then - only when memory was
// recalled - one more system message carrying the snippets as a grounding
// note. Memory goes after history, not interleaved, so the model reads it
// as secondary context rather than as a turn.
func AssembleContext(recentTurns []types.ChatTurn, memory []types.MemorySnippet, systemPrompt string) []types.Message {
	messages := make([]types.Message, 0, len(recentTurns)+2)
	messages = append(messages, types.Message{
		Role:    types.RoleSystem,
		Content: systemPrompt,
	})

	for _, turn := range recentTurns {
		messages = append(messages, types.Message{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}

	if joined := JoinSnippets(memory); joined != "" {
		messages = append(messages, types.Message{
			Role:    types.RoleSystem,
			Content: "Relevant memory:\n" + joined,
		})
	}

	return messages
}
