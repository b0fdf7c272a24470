package engine

import (
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"tiny rounds up to one", "ab", 1},
		{"plain chars", strings.Repeat("x", 400), 100},
		{"whitespace adds correction", strings.Repeat("ab ", 60), 55},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateTokens(tt.text); got != tt.want {
				t.Errorf("EstimateTokens(%q...) = %d, want %d", tt.text[:min(8, len(tt.text))], got, tt.want)
			}
		})
	}
}

func TestMessageTokens_IncludesOverheadAndToolCalls(t *testing.T) {
	plain := ChatMessage{Role: RoleUser, Content: strings.Repeat("x", 40)}
	if got := MessageTokens(plain); got != 10+messageOverheadTokens {
		t.Errorf("MessageTokens(plain) = %d, want %d", got, 10+messageOverheadTokens)
	}

	withCall := ChatMessage{
		Role: RoleAssistant,
		ToolCalls: []ToolCall{
			{ID: "c1", Name: "read_file", Args: map[string]any{"path": "a.go"}},
		},
	}
	if got := MessageTokens(withCall); got <= messageOverheadTokens {
		t.Errorf("MessageTokens(withCall) = %d, tool calls must be counted", got)
	}
}

func TestCountTokensForMessages(t *testing.T) {
	msgs := []ChatMessage{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "task"},
	}
	want := MessageTokens(msgs[0]) + MessageTokens(msgs[1])
	if got := CountTokensForMessages(msgs); got != want {
		t.Errorf("CountTokensForMessages() = %d, want %d", got, want)
	}
}
