package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/wconnell87/drover/internal/engine"
)

func TestParallel_RunsAllTasks(t *testing.T) {
	registry := NewRegistry(0)
	registry.Register(echoTool())
	parent := newParentAgent(t, &cannedClient{answer: "task done", usage: engine.Usage{Total: 10}}, registry, 2, 0)
	registry.Register(NewParallelSubagentTool(parent, registry))

	res := registry.Dispatch(context.Background(), engine.ToolCall{
		Name: "parallel_subagents",
		Args: map[string]any{
			"tasks": []any{
				map[string]any{"label": "alpha", "task_prompt": "do a"},
				map[string]any{"label": "beta", "task_prompt": "do b"},
			},
		},
	})
	if !res.Success {
		t.Fatalf("parallel_subagents = %+v", res)
	}
	for _, label := range []string{"=== alpha ===", "=== beta ==="} {
		if !strings.Contains(res.Output, label) {
			t.Errorf("Output missing section %q:\n%s", label, res.Output)
		}
	}
	if res.Metadata["completed"] != "2" || res.Metadata["failed"] != "0" {
		t.Errorf("Metadata = %v, want completed=2 failed=0", res.Metadata)
	}
}

func TestParallel_AllFailedIsFailedResult(t *testing.T) {
	registry := NewRegistry(0)
	// depth limit 0 makes every spawn fail
	parent := newParentAgent(t, &cannedClient{answer: "x"}, registry, 0, 0)
	registry.Register(NewParallelSubagentTool(parent, registry))

	res := registry.Dispatch(context.Background(), engine.ToolCall{
		Name: "parallel_subagents",
		Args: map[string]any{
			"tasks": []any{
				map[string]any{"label": "alpha", "task_prompt": "do a"},
				map[string]any{"label": "beta", "task_prompt": "do b"},
			},
		},
	})
	if res.Success {
		t.Fatalf("parallel_subagents = %+v, want a failed result when no task completed", res)
	}
	if !strings.Contains(res.Error, "all 2 tasks failed") {
		t.Errorf("Error = %q, want the all-failed summary", res.Error)
	}
}

func TestParallel_PartialFailureStillSucceeds(t *testing.T) {
	outcomes := []parallelOutcome{
		{
			spec:   subagentSpec{Label: "good"},
			result: engine.ToolResult{Success: true, Output: "found it", Metadata: map[string]string{"tokens_used": "40"}},
		},
		{
			spec:   subagentSpec{Label: "bad"},
			result: engine.ToolResult{Success: false, Error: "tool exploded"},
		},
	}

	res := renderBatch(outcomes)
	if !res.Success {
		t.Fatalf("renderBatch = %+v, one completed task should carry the batch", res)
	}
	if !strings.Contains(res.Output, "found it") || !strings.Contains(res.Output, "FAILED: tool exploded") {
		t.Errorf("Output = %q, want both the answer and the inline failure", res.Output)
	}
	if res.Metadata["completed"] != "1" || res.Metadata["failed"] != "1" {
		t.Errorf("Metadata = %v, want completed=1 failed=1", res.Metadata)
	}
	if res.Metadata["tokens_used"] != "40" {
		t.Errorf("tokens_used = %q, want 40", res.Metadata["tokens_used"])
	}
}

func TestParallel_EmptyTasksRejected(t *testing.T) {
	registry := NewRegistry(0)
	parent := newParentAgent(t, &cannedClient{answer: "x"}, registry, 2, 0)
	registry.Register(NewParallelSubagentTool(parent, registry))

	res := registry.Dispatch(context.Background(), engine.ToolCall{
		Name: "parallel_subagents",
		Args: map[string]any{"tasks": []any{}},
	})
	if res.Success {
		t.Fatalf("parallel_subagents with no tasks = %+v, want schema rejection", res)
	}
}
