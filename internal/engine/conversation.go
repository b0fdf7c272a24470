// Package engine provides agent orchestration functionality.
// This file contains the conversation log and its token budget manager.

package engine

import "fmt"

// Conversation is an ordered message log exclusively owned by one Agent.
// It tracks an approximate token count and prunes old tool exchanges once
// the count crosses a configurable fraction of the ceiling. The system
// message and the first user message (the original instruction) are never
// pruned, and the most recent exchanges always survive.
type Conversation struct {
	messages       []ChatMessage
	tokenCount     int
	maxTokens      int
	minRetainTurns int
	pruneThreshold float64

	prunedUnits int  // tool exchanges removed so far
	hasSummary  bool // a prune summary message sits right after the head
}

// NewConversation creates a conversation with the given budget limits.
// pruneThreshold is clamped into (0,1]; a maxTokens of zero disables
// pruning entirely.
func NewConversation(maxTokens, minRetainTurns int, pruneThreshold float64) *Conversation {
	if pruneThreshold <= 0 || pruneThreshold > 1 {
		pruneThreshold = 0.8
	}
	return &Conversation{
		maxTokens:      maxTokens,
		minRetainTurns: minRetainTurns,
		pruneThreshold: pruneThreshold,
	}
}

// Add appends a message, recomputes the running token count, and prunes
// if the threshold is crossed. The threshold check runs on every append so
// the count can never transiently exceed the ceiling between checks.
func (c *Conversation) Add(msg ChatMessage) {
	c.messages = append(c.messages, msg)
	c.tokenCount += MessageTokens(msg)
	c.pruneIfNeeded()
}

// Messages returns the current log. Callers must treat it as read-only.
func (c *Conversation) Messages() []ChatMessage {
	return c.messages
}

// Len returns the number of messages in the log.
func (c *Conversation) Len() int { return len(c.messages) }

// TokenCount returns the current approximate token count.
func (c *Conversation) TokenCount() int { return c.tokenCount }

// MaxTokens returns the configured token ceiling.
func (c *Conversation) MaxTokens() int { return c.maxTokens }

// PrunedUnits returns how many tool exchanges have been pruned so far.
func (c *Conversation) PrunedUnits() int { return c.prunedUnits }

// SetMaxTokens updates the ceiling (used on model switch) and re-triggers
// pruning against the new limit.
func (c *Conversation) SetMaxTokens(maxTokens int) {
	c.maxTokens = maxTokens
	c.pruneIfNeeded()
}

// Clone deep-copies the conversation for a subagent fork or model switch.
// Conversations are never shared between agents, so the copy owns its
// messages outright.
func (c *Conversation) Clone() *Conversation {
	clone := &Conversation{
		messages:       make([]ChatMessage, len(c.messages)),
		tokenCount:     c.tokenCount,
		maxTokens:      c.maxTokens,
		minRetainTurns: c.minRetainTurns,
		pruneThreshold: c.pruneThreshold,
		prunedUnits:    c.prunedUnits,
		hasSummary:     c.hasSummary,
	}
	for i, msg := range c.messages {
		if len(msg.ToolCalls) > 0 {
			calls := make([]ToolCall, len(msg.ToolCalls))
			copy(calls, msg.ToolCalls)
			for j := range calls {
				if calls[j].Args != nil {
					args := make(map[string]any, len(calls[j].Args))
					for k, v := range calls[j].Args {
						args[k] = v
					}
					calls[j].Args = args
				}
			}
			msg.ToolCalls = calls
		}
		clone.messages[i] = msg
	}
	return clone
}

// pruneUnit marks one removable exchange: an assistant message carrying
// tool calls together with the tool-role messages answering it. Removing
// a call without its results would corrupt provider-side turn structure,
// so the unit is always dropped whole.
type pruneUnit struct {
	start, end int // half-open message index range
}

// headLen returns the count of leading protected messages: the system
// message, the first user message, and the prune summary if present.
func (c *Conversation) headLen() int {
	n := 0
	if len(c.messages) > 0 && c.messages[0].Role == RoleSystem {
		n++
	}
	if len(c.messages) > n && c.messages[n].Role == RoleUser {
		n++
	}
	if c.hasSummary && len(c.messages) > n {
		n++
	}
	return n
}

// removableUnits lists prunable tool exchanges in order, oldest first.
func (c *Conversation) removableUnits() []pruneUnit {
	var units []pruneUnit
	i := c.headLen()
	for i < len(c.messages) {
		msg := c.messages[i]
		if msg.Role == RoleAssistant && len(msg.ToolCalls) > 0 {
			end := i + 1
			for end < len(c.messages) && c.messages[end].Role == RoleTool {
				end++
			}
			units = append(units, pruneUnit{start: i, end: end})
			i = end
			continue
		}
		i++
	}
	return units
}

// pruneIfNeeded removes the oldest tool exchanges while the token count is
// over threshold, stopping once under threshold or once only
// minRetainTurns exchanges remain after the retained head. It may leave
// the count above maxTokens when nothing more is removable; that is the
// accepted edge case rather than corrupting the log.
func (c *Conversation) pruneIfNeeded() {
	if c.maxTokens <= 0 {
		return
	}
	threshold := int(float64(c.maxTokens) * c.pruneThreshold)
	for c.tokenCount > threshold {
		units := c.removableUnits()
		if len(units) <= c.minRetainTurns {
			return
		}
		oldest := units[0]
		c.messages = append(c.messages[:oldest.start], c.messages[oldest.end:]...)
		c.prunedUnits++
		c.refreshSummary()
		c.tokenCount = CountTokensForMessages(c.messages)
	}
}

// refreshSummary maintains a single system message right after the
// protected head describing what was dropped, so the model knows earlier
// context existed.
func (c *Conversation) refreshSummary() {
	summary := ChatMessage{
		Role:    RoleSystem,
		Content: fmt.Sprintf("[context pruned: %d earlier tool exchanges removed to stay within the token budget]", c.prunedUnits),
	}
	if c.hasSummary {
		c.messages[c.headLen()-1] = summary
		return
	}
	at := c.headLen()
	c.messages = append(c.messages, ChatMessage{})
	copy(c.messages[at+1:], c.messages[at:])
	c.messages[at] = summary
	c.hasSummary = true
}
