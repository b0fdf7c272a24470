package engine

import "context"

// Hook receives observability callbacks from the loop. Implementations
// must not mutate the agent or its conversation.
type Hook interface {
	OnIterationStart(ctx context.Context, iteration int)
	OnAssistantMessage(ctx context.Context, msg ChatMessage, usage Usage)
	OnToolCall(ctx context.Context, call ToolCall)
	OnToolResult(ctx context.Context, call ToolCall, result ToolResult)
	OnPruned(ctx context.Context, removedUnits, tokenCount int)
	OnDone(ctx context.Context, iterations int, totals Usage)
}

// Hooks fans callbacks out to zero or more hooks.
type Hooks []Hook

func (h Hooks) OnIterationStart(ctx context.Context, iteration int) {
	for _, hook := range h {
		hook.OnIterationStart(ctx, iteration)
	}
}

func (h Hooks) OnAssistantMessage(ctx context.Context, msg ChatMessage, usage Usage) {
	for _, hook := range h {
		hook.OnAssistantMessage(ctx, msg, usage)
	}
}

func (h Hooks) OnToolCall(ctx context.Context, call ToolCall) {
	for _, hook := range h {
		hook.OnToolCall(ctx, call)
	}
}

func (h Hooks) OnToolResult(ctx context.Context, call ToolCall, result ToolResult) {
	for _, hook := range h {
		hook.OnToolResult(ctx, call, result)
	}
}

func (h Hooks) OnPruned(ctx context.Context, removedUnits, tokenCount int) {
	for _, hook := range h {
		hook.OnPruned(ctx, removedUnits, tokenCount)
	}
}

func (h Hooks) OnDone(ctx context.Context, iterations int, totals Usage) {
	for _, hook := range h {
		hook.OnDone(ctx, iterations, totals)
	}
}

// NopHook implements Hook with no-ops; embed it to pick only the
// callbacks you care about.
type NopHook struct{}

func (NopHook) OnIterationStart(context.Context, int)                {}
func (NopHook) OnAssistantMessage(context.Context, ChatMessage, Usage) {}
func (NopHook) OnToolCall(context.Context, ToolCall)                 {}
func (NopHook) OnToolResult(context.Context, ToolCall, ToolResult)   {}
func (NopHook) OnPruned(context.Context, int, int)                   {}
func (NopHook) OnDone(context.Context, int, Usage)                   {}
