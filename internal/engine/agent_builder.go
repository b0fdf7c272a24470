package engine

import "fmt"

// Default limits applied by the builder when not overridden.
const (
	DefaultMaxIterations   = 25
	DefaultMaxTokens       = 64000
	DefaultMinRetainTurns  = 2
	DefaultPruneThreshold  = 0.8
	DefaultMaxOutputTokens = 8192
)

// AgentBuilder assembles an Agent step by step.
type AgentBuilder struct {
	llm            LLMClient
	tools          ToolDispatcher
	config         AgentConfig
	hooks          Hooks
	delegation     Delegation
	maxTokens      int
	minRetainTurns int
	pruneThreshold float64
}

// NewAgentBuilder starts building an agent for the given provider client.
func NewAgentBuilder(llm LLMClient) *AgentBuilder {
	return &AgentBuilder{
		llm: llm,
		config: AgentConfig{
			MaxIterations:   DefaultMaxIterations,
			MaxOutputTokens: DefaultMaxOutputTokens,
		},
		maxTokens:      DefaultMaxTokens,
		minRetainTurns: DefaultMinRetainTurns,
		pruneThreshold: DefaultPruneThreshold,
	}
}

// WithModel sets the model name sent to the provider.
func (b *AgentBuilder) WithModel(model string) *AgentBuilder {
	b.config.Model = model
	return b
}

// WithSystemPrompt sets the system message seeded into the conversation.
func (b *AgentBuilder) WithSystemPrompt(prompt string) *AgentBuilder {
	b.config.SystemPrompt = prompt
	return b
}

// WithTools sets the tool dispatcher.
func (b *AgentBuilder) WithTools(tools ToolDispatcher) *AgentBuilder {
	b.tools = tools
	return b
}

// WithMaxIterations caps the number of provider calls per Execute.
func (b *AgentBuilder) WithMaxIterations(n int) *AgentBuilder {
	if n > 0 {
		b.config.MaxIterations = n
	}
	return b
}

// WithMaxOutputTokens caps the completion size requested per call.
func (b *AgentBuilder) WithMaxOutputTokens(n int) *AgentBuilder {
	if n > 0 {
		b.config.MaxOutputTokens = n
	}
	return b
}

// WithTokenBudget configures the conversation pruning policy.
func (b *AgentBuilder) WithTokenBudget(maxTokens, minRetainTurns int, pruneThreshold float64) *AgentBuilder {
	if maxTokens > 0 {
		b.maxTokens = maxTokens
	}
	if minRetainTurns > 0 {
		b.minRetainTurns = minRetainTurns
	}
	if pruneThreshold > 0 && pruneThreshold < 1 {
		b.pruneThreshold = pruneThreshold
	}
	return b
}

// WithDelegation configures subagent limits: depth ceiling, shared token
// pool, and the concurrency gate.
func (b *AgentBuilder) WithDelegation(maxDepth, totalTokens, maxConcurrent int) *AgentBuilder {
	b.delegation = Delegation{
		MaxDepth: maxDepth,
		Budget:   NewTokenBudget(totalTokens),
		Slots:    NewSemaphore(maxConcurrent),
	}
	return b
}

// WithHooks attaches observability hooks.
func (b *AgentBuilder) WithHooks(hooks ...Hook) *AgentBuilder {
	b.hooks = append(b.hooks, hooks...)
	return b
}

// Build validates the configuration and returns the agent.
func (b *AgentBuilder) Build() (*Agent, error) {
	if b.llm == nil {
		return nil, fmt.Errorf("agent requires an LLM client")
	}
	if b.tools == nil {
		return nil, fmt.Errorf("agent requires a tool dispatcher")
	}
	if b.config.Model == "" {
		return nil, fmt.Errorf("agent requires a model name")
	}

	conv := NewConversation(b.maxTokens, b.minRetainTurns, b.pruneThreshold)
	if b.config.SystemPrompt != "" {
		conv.Add(ChatMessage{Role: RoleSystem, Content: b.config.SystemPrompt})
	}

	return &Agent{
		llm:        b.llm,
		tools:      b.tools,
		config:     b.config,
		conv:       conv,
		hooks:      b.hooks,
		delegation: b.delegation,
	}, nil
}
