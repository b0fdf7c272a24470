package engine

import (
	"context"
	"log/slog"
)

// LoggerHook emits structured logs for every loop event.
type LoggerHook struct {
	NopHook
	log *slog.Logger
}

// NewLoggerHook creates a hook logging through the given slog logger.
func NewLoggerHook(log *slog.Logger) *LoggerHook {
	return &LoggerHook{log: log}
}

func (h *LoggerHook) OnIterationStart(ctx context.Context, iteration int) {
	h.log.DebugContext(ctx, "iteration start", "iteration", iteration)
}

func (h *LoggerHook) OnAssistantMessage(ctx context.Context, msg ChatMessage, usage Usage) {
	h.log.DebugContext(ctx, "assistant message",
		"content_len", len(msg.Content),
		"tool_calls", len(msg.ToolCalls),
		"prompt_tokens", usage.Prompt,
		"completion_tokens", usage.Completion)
}

func (h *LoggerHook) OnToolCall(ctx context.Context, call ToolCall) {
	h.log.InfoContext(ctx, "tool call", "tool", call.Name, "id", call.ID)
}

func (h *LoggerHook) OnToolResult(ctx context.Context, call ToolCall, result ToolResult) {
	if !result.Success {
		h.log.WarnContext(ctx, "tool failed", "tool", call.Name, "error", result.Error)
		return
	}
	h.log.DebugContext(ctx, "tool result",
		"tool", call.Name,
		"output_len", len(result.Output),
		"truncated", result.Truncated)
}

func (h *LoggerHook) OnPruned(ctx context.Context, removedUnits, tokenCount int) {
	h.log.InfoContext(ctx, "conversation pruned", "removed_units", removedUnits, "token_count", tokenCount)
}

func (h *LoggerHook) OnDone(ctx context.Context, iterations int, totals Usage) {
	h.log.InfoContext(ctx, "agent done", "iterations", iterations, "total_tokens", totals.Total)
}
