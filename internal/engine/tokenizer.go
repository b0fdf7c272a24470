// Package engine provides agent orchestration functionality.
// This file contains the token counting heuristic used by the
// conversation budget manager.

package engine

import (
	"fmt"
	"strings"
)

// messageOverheadTokens approximates the per-message formatting cost
// (role name, separators) providers add around each message.
const messageOverheadTokens = 4

// EstimateTokens provides a rough token count estimation.
// Uses a simple heuristic: ~4 characters per token for English/code, with
// a small correction for whitespace-heavy text. Exact tokenizer parity
// with any specific model is deliberately not attempted; the budget
// manager only needs a consistent approximation.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}

	charCount := len([]rune(text))
	whitespaceCount := strings.Count(text, " ") + strings.Count(text, "\n") + strings.Count(text, "\t")

	estimated := (charCount / 4) + (whitespaceCount / 6)
	if estimated < 1 {
		return 1
	}
	return estimated
}

// MessageTokens counts the tokens attributed to a single message:
// content, tool call names and arguments, plus formatting overhead.
func MessageTokens(msg ChatMessage) int {
	total := EstimateTokens(msg.Content)
	for _, tc := range msg.ToolCalls {
		total += EstimateTokens(tc.Name)
		total += EstimateTokens(fmt.Sprintf("%v", tc.Args))
	}
	return total + messageOverheadTokens
}

// CountTokensForMessages counts tokens for a slice of messages.
func CountTokensForMessages(messages []ChatMessage) int {
	total := 0
	for _, msg := range messages {
		total += MessageTokens(msg)
	}
	return total
}
