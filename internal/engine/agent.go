// Package engine provides agent orchestration functionality.
// This file contains the Agent and its execution loop.

package engine

import (
	"context"
	"fmt"
)

// AgentConfig holds the static settings for one agent instance.
type AgentConfig struct {
	Model           string
	SystemPrompt    string
	MaxIterations   int
	MaxOutputTokens int
	Temperature     float32
}

// Agent is one control-loop instance. It exclusively owns its
// Conversation; the LLM client, tool dispatcher, and delegation budget
// are shared by reference with any subagents it spawns.
type Agent struct {
	llm        LLMClient
	tools      ToolDispatcher
	config     AgentConfig
	conv       *Conversation
	hooks      Hooks
	delegation Delegation

	iterations int
	totals     Usage
}

// Conversation returns the agent's message log. Callers should treat it
// as read-only while Execute runs.
func (a *Agent) Conversation() *Conversation { return a.conv }

// Delegation returns the agent's delegation state.
func (a *Agent) Delegation() Delegation { return a.delegation }

// Config returns the agent's configuration.
func (a *Agent) Config() AgentConfig { return a.config }

// Totals returns accumulated token usage across all provider calls.
func (a *Agent) Totals() Usage { return a.totals }

// Iterations returns the provider calls made by the current or most
// recent Execute invocation.
func (a *Agent) Iterations() int { return a.iterations }

// SwitchModel replaces the model and token ceiling at runtime.
// Conversation history is preserved; the new ceiling re-triggers pruning.
func (a *Agent) SwitchModel(client LLMClient, model string, maxTokens int) {
	a.llm = client
	a.config.Model = model
	a.conv.SetMaxTokens(maxTokens)
}

// Execute runs the instruction through the loop until the model produces
// a final answer or a limit is hit.
//
// Provider-transport errors are fatal and returned as *ProviderError.
// Tool failures are not: they become failed tool results the model can
// react to. Hitting the iteration ceiling returns *MaxIterationsError;
// exhausting a shared delegation budget returns *TokenBudgetError whose
// Partial field carries the best answer produced so far.
func (a *Agent) Execute(ctx context.Context, instruction string) (string, error) {
	// The limit is per invocation: a REPL turn or resumed session starts
	// with a full allowance, only totals carry over.
	a.iterations = 0
	a.conv.Add(ChatMessage{Role: RoleUser, Content: instruction})

	lastAnswer := ""
	for {
		select {
		case <-ctx.Done():
			return lastAnswer, fmt.Errorf("execution cancelled: %w", ctx.Err())
		default:
		}

		// The limit gates the provider call itself: with MaxIterations=N
		// the provider is contacted at most N times.
		if a.iterations >= a.config.MaxIterations {
			return lastAnswer, &MaxIterationsError{
				Limit:      a.config.MaxIterations,
				Iterations: a.iterations,
			}
		}
		a.iterations++
		a.hooks.OnIterationStart(ctx, a.iterations)

		opts := ChatOptions{
			Temperature:     a.config.Temperature,
			MaxOutputTokens: a.config.MaxOutputTokens,
		}
		resp, err := a.llm.Chat(ctx, a.config.Model, a.conv.Messages(), a.tools.Schemas(), opts)
		if err != nil {
			return lastAnswer, &ProviderError{Err: err}
		}

		a.totals.Prompt += resp.Usage.Prompt
		a.totals.Completion += resp.Usage.Completion
		a.totals.Total += resp.Usage.Total
		a.hooks.OnAssistantMessage(ctx, resp.Assistant, resp.Usage)

		assistant := resp.Assistant
		assistant.Role = RoleAssistant
		assistant.ToolCalls = resp.ToolCalls
		a.addMessage(ctx, assistant)
		if assistant.Content != "" {
			lastAnswer = assistant.Content
		}

		// Subagents draw from the shared pool; overrunning it stops the
		// run with whatever answer exists so far.
		if a.delegation.Depth > 0 && !a.delegation.Budget.Consume(resp.Usage.Total) {
			return lastAnswer, &TokenBudgetError{
				Consumed: a.delegation.Budget.Consumed(),
				Budget:   a.delegation.Budget.Total(),
				Partial:  lastAnswer,
			}
		}

		if len(resp.ToolCalls) == 0 {
			a.hooks.OnDone(ctx, a.iterations, a.totals)
			return assistant.Content, nil
		}

		// Tool calls run sequentially in received order: later calls in
		// the same turn may depend on earlier ones' side effects.
		for _, call := range resp.ToolCalls {
			a.hooks.OnToolCall(ctx, call)
			result := a.tools.Dispatch(ctx, call)
			a.hooks.OnToolResult(ctx, call, result)
			a.addMessage(ctx, ChatMessage{
				Role:    RoleTool,
				Name:    call.ID,
				Content: result.Text(),
			})
		}
	}
}

// Spawn creates a subagent one delegation level down, with a fresh
// conversation seeded from the parent's system prompt and the given tool
// dispatcher. Fails with *MaxDepthError without creating anything when
// the depth limit would be exceeded.
func (a *Agent) Spawn(tools ToolDispatcher, maxIterations int) (*Agent, error) {
	if !a.delegation.SpawnAllowed() {
		return nil, &MaxDepthError{
			Depth:    a.delegation.Depth + 1,
			MaxDepth: a.delegation.MaxDepth,
		}
	}
	if maxIterations <= 0 {
		maxIterations = a.config.MaxIterations
	}

	childCfg := a.config
	childCfg.MaxIterations = maxIterations

	conv := NewConversation(a.conv.maxTokens, a.conv.minRetainTurns, a.conv.pruneThreshold)
	if childCfg.SystemPrompt != "" {
		conv.Add(ChatMessage{Role: RoleSystem, Content: childCfg.SystemPrompt})
	}

	return &Agent{
		llm:        a.llm,
		tools:      tools,
		config:     childCfg,
		conv:       conv,
		hooks:      a.hooks,
		delegation: a.delegation.Child(),
	}, nil
}

// addMessage appends to the conversation and reports pruning through the
// hooks when the append triggered it.
func (a *Agent) addMessage(ctx context.Context, msg ChatMessage) {
	before := a.conv.PrunedUnits()
	a.conv.Add(msg)
	if removed := a.conv.PrunedUnits() - before; removed > 0 {
		a.hooks.OnPruned(ctx, removed, a.conv.TokenCount())
	}
}
