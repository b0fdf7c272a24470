package engine

import (
	"strings"
	"testing"
)

// addExchange appends one assistant tool call plus its tool result of
// roughly the given content size.
func addExchange(c *Conversation, id string, resultSize int) {
	c.Add(ChatMessage{
		Role: RoleAssistant,
		ToolCalls: []ToolCall{
			{ID: id, Name: "t", Args: map[string]any{}},
		},
	})
	c.Add(ChatMessage{
		Role:    RoleTool,
		Name:    id,
		Content: strings.Repeat("x", resultSize),
	})
}

func TestConversation_NoPruneUnderThreshold(t *testing.T) {
	c := NewConversation(100000, 2, 0.8)
	c.Add(ChatMessage{Role: RoleSystem, Content: "sys"})
	c.Add(ChatMessage{Role: RoleUser, Content: "task"})
	addExchange(c, "call_1", 400)

	if c.PrunedUnits() != 0 {
		t.Errorf("PrunedUnits() = %d, want 0", c.PrunedUnits())
	}
	if c.Len() != 4 {
		t.Errorf("Len() = %d, want 4", c.Len())
	}
}

func TestConversation_PruneProtectsHead(t *testing.T) {
	c := NewConversation(400, 2, 0.8)
	c.Add(ChatMessage{Role: RoleSystem, Content: "sys"})
	c.Add(ChatMessage{Role: RoleUser, Content: "task"})
	for i := 0; i < 6; i++ {
		addExchange(c, "call", 400)
	}

	if c.PrunedUnits() == 0 {
		t.Fatal("expected pruning to have happened")
	}
	msgs := c.Messages()
	if msgs[0].Role != RoleSystem || msgs[0].Content != "sys" {
		t.Errorf("messages[0] = %+v, want original system message", msgs[0])
	}
	if msgs[1].Role != RoleUser || msgs[1].Content != "task" {
		t.Errorf("messages[1] = %+v, want original user message", msgs[1])
	}
	if msgs[2].Role != RoleSystem || !strings.Contains(msgs[2].Content, "context pruned") {
		t.Errorf("messages[2] = %+v, want prune summary", msgs[2])
	}
}

func TestConversation_MinRetainSurvives(t *testing.T) {
	// budget so small everything is over threshold: pruning must still
	// stop at minRetainTurns exchanges, even above maxTokens
	c := NewConversation(50, 2, 0.8)
	c.Add(ChatMessage{Role: RoleSystem, Content: "sys"})
	c.Add(ChatMessage{Role: RoleUser, Content: "task"})
	for i := 0; i < 5; i++ {
		addExchange(c, "call", 400)
	}

	if got := len(c.removableUnits()); got != 2 {
		t.Errorf("remaining exchanges = %d, want 2", got)
	}
	if c.PrunedUnits() != 3 {
		t.Errorf("PrunedUnits() = %d, want 3", c.PrunedUnits())
	}
	if c.TokenCount() <= 50 {
		t.Errorf("TokenCount() = %d, expected to stay over the ceiling at the floor", c.TokenCount())
	}
}

func TestConversation_PruneStopsUnderThreshold(t *testing.T) {
	c := NewConversation(500, 1, 0.8)
	c.Add(ChatMessage{Role: RoleSystem, Content: "sys"})
	c.Add(ChatMessage{Role: RoleUser, Content: "task"})
	for i := 0; i < 8; i++ {
		addExchange(c, "call", 400)
	}

	threshold := int(float64(500) * 0.8)
	units := len(c.removableUnits())
	if c.TokenCount() > threshold && units > 1 {
		t.Errorf("TokenCount() = %d over threshold %d with %d removable exchanges left", c.TokenCount(), threshold, units)
	}
}

func TestConversation_SummaryIsSingleAndUpdated(t *testing.T) {
	c := NewConversation(400, 1, 0.8)
	c.Add(ChatMessage{Role: RoleSystem, Content: "sys"})
	c.Add(ChatMessage{Role: RoleUser, Content: "task"})
	for i := 0; i < 8; i++ {
		addExchange(c, "call", 400)
	}

	summaries := 0
	for _, msg := range c.Messages()[2:] {
		if msg.Role == RoleSystem && strings.Contains(msg.Content, "context pruned") {
			summaries++
		}
	}
	if summaries != 1 {
		t.Errorf("found %d prune summaries, want 1", summaries)
	}
	if !strings.Contains(c.Messages()[2].Content, "tool exchanges removed") {
		t.Errorf("summary content = %q", c.Messages()[2].Content)
	}
}

func TestConversation_SetMaxTokensReprunes(t *testing.T) {
	c := NewConversation(100000, 1, 0.8)
	c.Add(ChatMessage{Role: RoleSystem, Content: "sys"})
	c.Add(ChatMessage{Role: RoleUser, Content: "task"})
	for i := 0; i < 6; i++ {
		addExchange(c, "call", 400)
	}
	if c.PrunedUnits() != 0 {
		t.Fatalf("PrunedUnits() = %d before shrink, want 0", c.PrunedUnits())
	}

	c.SetMaxTokens(400)
	if c.PrunedUnits() == 0 {
		t.Error("expected shrinking the ceiling to trigger pruning")
	}
}

func TestConversation_ZeroMaxTokensDisablesPruning(t *testing.T) {
	c := NewConversation(0, 1, 0.8)
	c.Add(ChatMessage{Role: RoleSystem, Content: "sys"})
	c.Add(ChatMessage{Role: RoleUser, Content: "task"})
	for i := 0; i < 10; i++ {
		addExchange(c, "call", 1000)
	}
	if c.PrunedUnits() != 0 {
		t.Errorf("PrunedUnits() = %d, want 0 with pruning disabled", c.PrunedUnits())
	}
}

func TestConversation_CloneIsIndependent(t *testing.T) {
	c := NewConversation(100000, 2, 0.8)
	c.Add(ChatMessage{Role: RoleSystem, Content: "sys"})
	c.Add(ChatMessage{Role: RoleUser, Content: "task"})
	addExchange(c, "call_1", 40)

	clone := c.Clone()
	clone.Add(ChatMessage{Role: RoleAssistant, Content: "extra"})

	if clone.Len() != c.Len()+1 {
		t.Errorf("clone.Len() = %d, want %d", clone.Len(), c.Len()+1)
	}
	if clone.TokenCount() == c.TokenCount() {
		t.Error("clone token count should diverge after append")
	}
}

func TestConversation_CloneCopiesToolCallArgs(t *testing.T) {
	c := NewConversation(100000, 2, 0.8)
	args := map[string]any{"path": "a.txt"}
	c.Add(ChatMessage{
		Role:      RoleAssistant,
		ToolCalls: []ToolCall{{ID: "call_1", Name: "read_file", Args: args}},
	})

	clone := c.Clone()
	args["path"] = "b.txt"

	got := clone.Messages()[0].ToolCalls[0].Args["path"]
	if got != "a.txt" {
		t.Errorf("clone args path = %v, want %q untouched by the original's mutation", got, "a.txt")
	}
}
