package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/wconnell87/drover/internal/config"
	"github.com/wconnell87/drover/internal/engine"
	"github.com/wconnell87/drover/internal/providers"
	"github.com/wconnell87/drover/internal/sandbox"
	"github.com/wconnell87/drover/internal/security"
	"github.com/wconnell87/drover/internal/session"
	"github.com/wconnell87/drover/internal/tools"
)

const systemPrompt = `You are a coding agent operating inside a single working directory.
You solve tasks by calling the tools available to you, one step at a time.

Rules:
- All file paths are relative to the working directory. You cannot reach outside it.
- The terminal tool runs a single command without a shell: no pipes, no redirection, no chaining.
- For large self-contained subtasks, delegate with spawn_subagent instead of flooding this conversation.
- For several independent subtasks, run them at once with parallel_subagents.
- Prefer edit_file for targeted changes to existing files; write_file replaces whole files.
- When the task is done, reply with a plain answer and no tool calls.`

// runtimeEnv wires the agent, its tool set and the session store for
// one working directory.
type runtimeEnv struct {
	Settings  config.Settings
	Agent     *engine.Agent
	Registry  *tools.Registry
	Store     *session.Store
	Session   session.Session
	WorkDir   string
	validator *security.Validator
}

type envOptions struct {
	Dir      string
	Provider string
	Model    string
	Mode     string
	Resume   string
	Verbose  bool
}

func (r *runtimeEnv) Close() {
	if r.Store != nil {
		r.Store.Close()
	}
}

func prepareRuntimeEnv(ctx context.Context, opts envOptions) (*runtimeEnv, error) {
	settings, err := loadSettings(opts)
	if err != nil {
		return nil, err
	}

	workDir := opts.Dir
	if workDir == "" {
		workDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
	}
	workDir, err = filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}
	if info, err := os.Stat(workDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("working directory %s is not a directory", workDir)
	}

	validator, err := security.NewValidator(settings.Mode(), workDir)
	if err != nil {
		return nil, fmt.Errorf("build validator: %w", err)
	}

	sandboxCfg := sandbox.DefaultConfig()
	sandboxCfg.Mode = sandbox.Mode(settings.SandboxMode)
	if settings.DockerImage != "" {
		sandboxCfg.DockerImage = settings.DockerImage
	}
	cmdTimeout := time.Duration(settings.CommandTimeoutSeconds) * time.Second
	sandboxCfg.CmdTimeout = cmdTimeout
	runner := sandbox.NewDefaultRunner(sandboxCfg)

	client, model, err := providers.NewLLMClientFromEnv(settings.Provider)
	if err != nil {
		return nil, err
	}
	if opts.Model != "" {
		model = opts.Model
	} else if settings.Model != "" {
		model = settings.Model
	}

	registry := tools.NewRegistry(settings.MaxOutputSize)
	registry.Register(tools.NewReadFileTool(validator))
	registry.Register(tools.NewWriteFileTool(validator))
	registry.Register(tools.NewListFilesTool(validator))
	registry.Register(tools.NewDeleteFileTool(validator))
	registry.Register(tools.NewCreateDirectoryTool(validator))
	registry.Register(tools.NewGrepTool(validator))
	registry.Register(tools.NewEditFileTool(validator))
	registry.Register(tools.NewTerminalTool(validator, runner, cmdTimeout))

	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	agent, err := engine.NewAgentBuilder(client).
		WithModel(model).
		WithSystemPrompt(systemPrompt).
		WithTools(registry).
		WithMaxIterations(settings.MaxIterations).
		WithMaxOutputTokens(settings.MaxOutputTokens).
		WithTokenBudget(settings.MaxTokens, settings.MinRetainTurns, settings.PruneThreshold).
		WithDelegation(settings.MaxSubagentDepth, settings.SubagentTokenBudget, settings.MaxConcurrentAgents).
		WithHooks(engine.NewLoggerHook(logger)).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build agent: %w", err)
	}
	registry.Register(tools.NewSubagentTool(agent, registry))
	registry.Register(tools.NewParallelSubagentTool(agent, registry))

	store, sess, err := openSession(ctx, workDir, model, opts.Resume, agent)
	if err != nil {
		return nil, err
	}

	return &runtimeEnv{
		Settings:  settings,
		Agent:     agent,
		Registry:  registry,
		Store:     store,
		Session:   sess,
		WorkDir:   workDir,
		validator: validator,
	}, nil
}

// loadSettings merges the persisted config with command line overrides.
func loadSettings(opts envOptions) (config.Settings, error) {
	manager, err := config.NewManager()
	if err != nil {
		return config.Settings{}, err
	}
	settings, err := manager.Load()
	if err != nil {
		return config.Settings{}, err
	}
	if opts.Provider != "" {
		settings.Provider = opts.Provider
	}
	if opts.Mode != "" {
		settings.ExecutionMode = opts.Mode
	}
	if err := settings.Normalize(); err != nil {
		return config.Settings{}, err
	}
	return settings, nil
}

func sessionDBPath(workDir string) string {
	return filepath.Join(workDir, ".drover", "sessions.db")
}

// openSession opens the per-workspace store and either creates a fresh
// session or reloads an existing conversation into the agent.
func openSession(ctx context.Context, workDir, model, resumeID string, agent *engine.Agent) (*session.Store, session.Session, error) {
	store, err := session.Open(sessionDBPath(workDir))
	if err != nil {
		return nil, session.Session{}, err
	}

	if resumeID == "" {
		sess, err := store.New(ctx, filepath.Base(workDir), model)
		if err != nil {
			store.Close()
			return nil, session.Session{}, err
		}
		return store, sess, nil
	}

	sess, err := store.Load(ctx, resumeID)
	if err != nil {
		store.Close()
		return nil, session.Session{}, fmt.Errorf("resume %s: %w", resumeID, err)
	}
	// the builder already seeded the system prompt, replay the rest
	for _, msg := range sess.Messages {
		if msg.Role == engine.RoleSystem {
			continue
		}
		agent.Conversation().Add(msg)
	}
	return store, sess, nil
}

// persistSession snapshots the current conversation.
func persistSession(ctx context.Context, env *runtimeEnv) {
	env.Session.Messages = env.Agent.Conversation().Messages()
	if err := env.Store.Save(ctx, env.Session); err != nil {
		slog.Warn("session save failed", "session", env.Session.ID, "error", err)
	}
}
