package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/wconnell87/drover/internal/engine"
)

// DefaultParallelTasks bounds how many delegated tasks of one batch run
// at the same time when the caller does not ask for a specific limit.
const DefaultParallelTasks = 5

// parallelOutcome is the per-task record of one batch run.
type parallelOutcome struct {
	spec   subagentSpec
	result engine.ToolResult
	err    error
}

func (o parallelOutcome) failed() bool {
	return o.err != nil || !o.result.Success
}

// NewParallelSubagentTool runs a batch of independent tasks on
// concurrent subagents. Every task draws from the same shared token
// budget and concurrency slots as single spawns; the batch adds its own
// max_concurrent gate on top. With fail_fast, the first failed task
// cancels the tasks still running.
func NewParallelSubagentTool(parent *engine.Agent, registry *Registry) Tool {
	return Tool{
		Name:        "parallel_subagents",
		Description: "Run several independent tasks at once, each on its own subagent. Use when subtasks do not depend on each other's results.",
		SchemaJSON: `{
			"type": "object",
			"properties": {
				"tasks": {
					"type": "array",
					"minItems": 1,
					"description": "Independent tasks to run concurrently",
					"items": {
						"type": "object",
						"properties": {
							"label": {"type": "string", "description": "Short name for the task, used in logs"},
							"task_prompt": {"type": "string", "description": "Complete instructions for the subagent; it cannot see this conversation"},
							"summary_prompt": {"type": "string", "description": "What the subagent should report back, appended to the task"},
							"allowed_tools": {"type": "array", "items": {"type": "string"}, "description": "Tool names the subagent may use, defaults to all"},
							"max_turns": {"type": "integer", "minimum": 1, "maximum": 50, "description": "Iteration limit for the subagent"}
						},
						"required": ["label", "task_prompt"],
						"additionalProperties": false
					}
				},
				"max_concurrent": {"type": "integer", "minimum": 1, "maximum": 10, "description": "How many tasks run at once, defaults to 5"},
				"fail_fast": {"type": "boolean", "description": "Cancel remaining tasks after the first failure, defaults to false"}
			},
			"required": ["tasks"],
			"additionalProperties": false
		}`,
		Fn: func(ctx context.Context, args map[string]any) (engine.ToolResult, error) {
			specs, err := parseParallelTasks(args)
			if err != nil {
				return engine.ToolResult{}, err
			}
			maxConcurrent := optionalInt(args, "max_concurrent", DefaultParallelTasks)
			failFast := optionalBool(args, "fail_fast", false)

			batchCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			outcomes := make([]parallelOutcome, len(specs))
			gate := make(chan struct{}, maxConcurrent)
			var wg sync.WaitGroup
			for i, spec := range specs {
				wg.Add(1)
				go func(i int, spec subagentSpec) {
					defer wg.Done()
					select {
					case gate <- struct{}{}:
						defer func() { <-gate }()
					case <-batchCtx.Done():
						outcomes[i] = parallelOutcome{spec: spec, err: batchCtx.Err()}
						return
					}
					res, err := runDelegated(batchCtx, parent, registry, spec)
					outcomes[i] = parallelOutcome{spec: spec, result: res, err: err}
					if failFast && outcomes[i].failed() {
						cancel()
					}
				}(i, spec)
			}
			wg.Wait()

			return renderBatch(outcomes), nil
		},
	}
}

// parseParallelTasks reads the tasks array by hand: the schema has
// already validated shape, this only lifts the values out.
func parseParallelTasks(args map[string]any) ([]subagentSpec, error) {
	raw, ok := args["tasks"].([]any)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("tasks must be a non-empty array")
	}
	specs := make([]subagentSpec, 0, len(raw))
	for i, item := range raw {
		task, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("tasks[%d] must be an object", i)
		}
		label, err := stringArg(task, "label")
		if err != nil {
			return nil, fmt.Errorf("tasks[%d]: %w", i, err)
		}
		taskPrompt, err := stringArg(task, "task_prompt")
		if err != nil {
			return nil, fmt.Errorf("tasks[%d]: %w", i, err)
		}
		specs = append(specs, subagentSpec{
			Label:         label,
			TaskPrompt:    taskPrompt,
			SummaryPrompt: optionalString(task, "summary_prompt", ""),
			Allowed:       optionalStrings(task, "allowed_tools"),
			MaxTurns:      optionalInt(task, "max_turns", DefaultSubagentTurns),
		})
	}
	return specs, nil
}

// renderBatch folds the per-task outcomes into one result. The batch
// succeeds when at least one task did; individual failures are reported
// inline so the model can retry just those.
func renderBatch(outcomes []parallelOutcome) engine.ToolResult {
	completed, failed, tokens := 0, 0, 0
	truncated := false
	var b strings.Builder
	for _, o := range outcomes {
		fmt.Fprintf(&b, "=== %s ===\n", o.spec.Label)
		switch {
		case o.err != nil:
			failed++
			fmt.Fprintf(&b, "FAILED: %v\n", o.err)
		case !o.result.Success:
			failed++
			fmt.Fprintf(&b, "FAILED: %s\n", o.result.Error)
		default:
			completed++
			b.WriteString(o.result.Output)
			if !strings.HasSuffix(o.result.Output, "\n") {
				b.WriteByte('\n')
			}
			if o.result.Truncated {
				truncated = true
				b.WriteString("[partial: token budget exhausted]\n")
			}
		}
	}
	for _, o := range outcomes {
		if o.result.Metadata != nil {
			var n int
			fmt.Sscanf(o.result.Metadata["tokens_used"], "%d", &n)
			tokens += n
		}
	}
	fmt.Fprintf(&b, "\n%d of %d tasks completed", completed, len(outcomes))

	res := engine.ToolResult{
		Success:   completed > 0,
		Output:    b.String(),
		Truncated: truncated,
		Metadata: map[string]string{
			"completed":   fmt.Sprintf("%d", completed),
			"failed":      fmt.Sprintf("%d", failed),
			"tokens_used": fmt.Sprintf("%d", tokens),
		},
	}
	if completed == 0 {
		res.Error = fmt.Sprintf("all %d tasks failed:\n%s", len(outcomes), b.String())
	}
	return res
}
