// Package config loads and persists user settings from the platform
// config directory.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wconnell87/drover/internal/engine"
	"github.com/wconnell87/drover/internal/security"
)

// Settings holds the persistent knobs of the agent. Zero values are
// filled in by Normalize.
type Settings struct {
	Provider string `json:"provider,omitempty"` // anthropic, openai, deepseek, groq, gemini, ollama
	Model    string `json:"model,omitempty"`

	MaxIterations   int     `json:"max_iterations,omitempty"`
	MaxTokens       int     `json:"max_tokens,omitempty"`
	PruneThreshold  float64 `json:"prune_threshold,omitempty"`
	MinRetainTurns  int     `json:"min_retain_turns,omitempty"`
	MaxOutputTokens int     `json:"max_output_tokens,omitempty"`
	MaxOutputSize   int     `json:"max_output_size,omitempty"` // bytes of tool output fed back per call

	// ExecutionMode selects the command policy. full_autonomous is
	// additionally gated behind AllowFullAutonomous so a config typo
	// cannot disable the denylist-only safety question.
	ExecutionMode       string `json:"execution_mode,omitempty"`
	AllowFullAutonomous bool   `json:"allow_full_autonomous,omitempty"`

	MaxSubagentDepth      int `json:"max_subagent_depth,omitempty"`
	SubagentTokenBudget   int `json:"subagent_token_budget,omitempty"`
	MaxConcurrentAgents   int `json:"max_concurrent_subagents,omitempty"`
	CommandTimeoutSeconds int `json:"command_timeout_seconds,omitempty"`

	SandboxMode string `json:"sandbox_mode,omitempty"` // docker, host, auto
	DockerImage string `json:"docker_image,omitempty"`
}

// Defaults mirrors the engine defaults plus the policy defaults.
func Defaults() Settings {
	return Settings{
		Provider:              "anthropic",
		MaxIterations:         engine.DefaultMaxIterations,
		MaxTokens:             engine.DefaultMaxTokens,
		PruneThreshold:        engine.DefaultPruneThreshold,
		MinRetainTurns:        engine.DefaultMinRetainTurns,
		MaxOutputTokens:       engine.DefaultMaxOutputTokens,
		MaxOutputSize:         16 * 1024,
		ExecutionMode:         string(security.ModeInteractive),
		MaxSubagentDepth:      2,
		SubagentTokenBudget:   200000,
		MaxConcurrentAgents:   4,
		CommandTimeoutSeconds: 120,
		SandboxMode:           "auto",
	}
}

// Normalize fills zero values with defaults and validates the mode
// fields.
func (s *Settings) Normalize() error {
	d := Defaults()
	if s.Provider == "" {
		s.Provider = d.Provider
	}
	if s.MaxIterations <= 0 {
		s.MaxIterations = d.MaxIterations
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = d.MaxTokens
	}
	if s.PruneThreshold <= 0 || s.PruneThreshold > 1 {
		s.PruneThreshold = d.PruneThreshold
	}
	if s.MinRetainTurns <= 0 {
		s.MinRetainTurns = d.MinRetainTurns
	}
	if s.MaxOutputTokens <= 0 {
		s.MaxOutputTokens = d.MaxOutputTokens
	}
	if s.MaxOutputSize <= 0 {
		s.MaxOutputSize = d.MaxOutputSize
	}
	if s.ExecutionMode == "" {
		s.ExecutionMode = d.ExecutionMode
	}
	if s.MaxSubagentDepth <= 0 {
		s.MaxSubagentDepth = d.MaxSubagentDepth
	}
	if s.SubagentTokenBudget < 0 {
		s.SubagentTokenBudget = d.SubagentTokenBudget
	}
	if s.MaxConcurrentAgents <= 0 {
		s.MaxConcurrentAgents = d.MaxConcurrentAgents
	}
	if s.CommandTimeoutSeconds <= 0 {
		s.CommandTimeoutSeconds = d.CommandTimeoutSeconds
	}
	if s.SandboxMode == "" {
		s.SandboxMode = d.SandboxMode
	}

	switch security.ExecutionMode(s.ExecutionMode) {
	case security.ModeInteractive, security.ModeRestrictedAutonomous:
	case security.ModeFullAutonomous:
		if !s.AllowFullAutonomous {
			return fmt.Errorf("execution_mode %q requires allow_full_autonomous to be set", s.ExecutionMode)
		}
	default:
		return fmt.Errorf("unknown execution_mode %q", s.ExecutionMode)
	}

	switch s.SandboxMode {
	case "docker", "host", "auto":
	default:
		return fmt.Errorf("unknown sandbox_mode %q", s.SandboxMode)
	}
	return nil
}

// Mode returns the validated execution mode.
func (s *Settings) Mode() security.ExecutionMode {
	return security.ExecutionMode(s.ExecutionMode)
}

// Manager loads and saves Settings under the user config directory.
type Manager struct {
	configDir string
}

// NewManager resolves the config directory for this tool.
func NewManager() (*Manager, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user config dir: %w", err)
	}
	return &Manager{configDir: filepath.Join(base, "drover")}, nil
}

// NewManagerAt uses an explicit directory, mainly for tests.
func NewManagerAt(dir string) *Manager {
	return &Manager{configDir: dir}
}

// Path returns the settings file location.
func (m *Manager) Path() string {
	return filepath.Join(m.configDir, "config.json")
}

// Exists reports whether a settings file has been written.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.Path())
	return err == nil
}

// Load reads settings from disk. A missing file yields the defaults.
// The result is always normalized.
func (m *Manager) Load() (Settings, error) {
	s := Defaults()

	data, err := os.ReadFile(m.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("read %s: %w", m.Path(), err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse %s: %w", m.Path(), err)
	}
	if err := s.Normalize(); err != nil {
		return s, err
	}
	return s, nil
}

// Save writes settings with owner-only permissions.
func (m *Manager) Save(s Settings) error {
	if err := s.Normalize(); err != nil {
		return err
	}
	if err := os.MkdirAll(m.configDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", m.configDir, err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(m.Path(), data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", m.Path(), err)
	}
	return nil
}
