package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/wconnell87/drover/internal/engine"
)

// DefaultSubagentTurns bounds a delegated task when the caller does not
// ask for a specific limit.
const DefaultSubagentTurns = 15

// delegationToolNames are stripped from a child's tool set and replaced
// with child-bound registrations, so nested delegation stays bounded by
// the child's own depth.
var delegationToolNames = []string{"spawn_subagent", "parallel_subagents"}

// subagentSpec describes one delegated task.
type subagentSpec struct {
	Label         string
	TaskPrompt    string
	SummaryPrompt string
	Allowed       []string
	MaxTurns      int
}

// acquireDelegationSlot reserves a concurrency slot for a delegated run.
// A spawn at the tree root blocks until a slot frees up. A nested spawn
// is already covered by the slot its chain's root holds, so it takes an
// extra slot only when one is immediately free; blocking there would
// have the chain waiting on itself.
func acquireDelegationSlot(ctx context.Context, d engine.Delegation) (func(), error) {
	slots := d.Slots
	if d.Depth == 0 {
		if err := slots.Acquire(ctx); err != nil {
			return nil, fmt.Errorf("waiting for a subagent slot: %w", err)
		}
		return slots.Release, nil
	}
	if slots.TryAcquire() {
		return slots.Release, nil
	}
	return func() {}, nil
}

// runDelegated spawns a subagent for one task and folds its outcome into
// a tool result: a normal answer, a truncated partial answer when the
// shared budget ran out, or a failure.
func runDelegated(ctx context.Context, parent *engine.Agent, registry *Registry, spec subagentSpec) (engine.ToolResult, error) {
	release, err := acquireDelegationSlot(ctx, parent.Delegation())
	if err != nil {
		return engine.ToolResult{}, err
	}
	defer release()

	childTools := registry.Narrow(spec.Allowed, delegationToolNames...)
	child, err := parent.Spawn(childTools, spec.MaxTurns)
	if err != nil {
		var depthErr *engine.MaxDepthError
		if errors.As(err, &depthErr) {
			return engine.ToolResult{}, fmt.Errorf("delegation depth limit reached (%d), do the task yourself", depthErr.MaxDepth)
		}
		return engine.ToolResult{}, err
	}
	// the child may delegate further, bounded by depth
	childTools.Register(NewSubagentTool(child, childTools))
	childTools.Register(NewParallelSubagentTool(child, childTools))

	instruction := spec.TaskPrompt
	if spec.SummaryPrompt != "" {
		instruction += "\n\nWhen done, report back as follows: " + spec.SummaryPrompt
	}

	runID := uuid.NewString()
	answer, err := child.Execute(ctx, instruction)
	meta := map[string]string{
		"label":       spec.Label,
		"run_id":      runID,
		"depth":       fmt.Sprintf("%d", child.Delegation().Depth),
		"turns":       fmt.Sprintf("%d", child.Iterations()),
		"tokens_used": fmt.Sprintf("%d", child.Totals().Total),
	}
	if err != nil {
		var budgetErr *engine.TokenBudgetError
		if errors.As(err, &budgetErr) {
			res := OK(budgetErr.Partial)
			res.Truncated = true
			meta["token_budget"] = "exhausted"
			res.Metadata = meta
			return res, nil
		}
		return engine.ToolResult{}, fmt.Errorf("subagent %s: %w", spec.Label, err)
	}

	res := OK(answer)
	res.Metadata = meta
	return res, nil
}

// NewSubagentTool delegates a self-contained task to a fresh agent one
// level down. The child shares the parent's token budget and concurrency
// slots, sees a narrowed tool set, and reports back a single summary.
// When the shared budget runs out mid-task the partial answer comes back
// as a truncated success rather than an error, so the parent can still
// use what was produced.
func NewSubagentTool(parent *engine.Agent, registry *Registry) Tool {
	return Tool{
		Name:        "spawn_subagent",
		Description: "Delegate a self-contained task to a subagent with its own conversation. Use for work that would flood this conversation with intermediate output.",
		SchemaJSON: `{
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
		}`,
		Fn: func(ctx context.Context, args map[string]any) (engine.ToolResult, error) {
			label, err := stringArg(args, "label")
			if err != nil {
				return engine.ToolResult{}, err
			}
			taskPrompt, err := stringArg(args, "task_prompt")
			if err != nil {
				return engine.ToolResult{}, err
			}
			spec := subagentSpec{
				Label:         label,
				TaskPrompt:    taskPrompt,
				SummaryPrompt: optionalString(args, "summary_prompt", ""),
				Allowed:       optionalStrings(args, "allowed_tools"),
				MaxTurns:      optionalInt(args, "max_turns", DefaultSubagentTurns),
			}
			return runDelegated(ctx, parent, registry, spec)
		},
	}
}
