package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

const (
	defaultCmdTimeout  = 2 * time.Minute
	defaultStdoutBytes = 64 * 1024
	defaultStderrBytes = 16 * 1024
)

// Mode represents the sandbox execution mode.
type Mode string

const (
	// ModeDocker uses Docker containers for isolation.
	ModeDocker Mode = "docker"
	// ModeHost runs commands directly on the host (no isolation).
	ModeHost Mode = "host"
	// ModeAuto selects Docker if available, otherwise falls back to host.
	ModeAuto Mode = "auto"
)

// Config holds configuration for sandbox execution.
type Config struct {
	Mode           Mode
	DockerImage    string        // Custom Docker image override
	CPU            string        // CPU limit (e.g., "2")
	Memory         string        // Memory limit (e.g., "1g")
	CmdTimeout     time.Duration // Default command timeout (0 = package default)
	MaxStdoutBytes int           // Cap on captured stdout (0 = package default)
	MaxStderrBytes int           // Cap on captured stderr (0 = package default)
}

// DefaultConfig returns the default configuration based on environment
// variables.
func DefaultConfig() Config {
	modeStr := strings.ToLower(os.Getenv("DROVER_SANDBOX_MODE"))
	var mode Mode
	switch modeStr {
	case "docker":
		mode = ModeDocker
	case "host":
		mode = ModeHost
	case "auto", "":
		mode = ModeAuto
	default:
		slog.Warn("unknown DROVER_SANDBOX_MODE, defaulting to auto", "value", modeStr)
		mode = ModeAuto
	}

	cmdTimeout := defaultCmdTimeout
	if timeoutStr := os.Getenv("DROVER_CMD_TIMEOUT"); timeoutStr != "" {
		if d, err := time.ParseDuration(timeoutStr); err == nil && d > 0 {
			cmdTimeout = d
		} else {
			slog.Warn("invalid DROVER_CMD_TIMEOUT, using default", "value", timeoutStr, "default", defaultCmdTimeout)
		}
	}

	return Config{
		Mode:           mode,
		DockerImage:    os.Getenv("DROVER_DOCKER_IMAGE"),
		CPU:            getEnvOrDefault("DROVER_DOCKER_CPU", "2"),
		Memory:         getEnvOrDefault("DROVER_DOCKER_MEMORY", "1g"),
		CmdTimeout:     cmdTimeout,
		MaxStdoutBytes: defaultStdoutBytes,
		MaxStderrBytes: defaultStderrBytes,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

// stdoutCap returns the effective stdout byte cap.
func (c Config) stdoutCap() int {
	if c.MaxStdoutBytes > 0 {
		return c.MaxStdoutBytes
	}
	return defaultStdoutBytes
}

// stderrCap returns the effective stderr byte cap.
func (c Config) stderrCap() int {
	if c.MaxStderrBytes > 0 {
		return c.MaxStderrBytes
	}
	return defaultStderrBytes
}

// IsDockerAvailable checks if Docker is available and accessible.
func IsDockerAvailable(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, "docker", "ps")
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run() == nil
}

// NewDefaultRunner creates a runner based on the configuration and
// Docker availability.
func NewDefaultRunner(config Config) Runner {
	ctx := context.Background()

	switch config.Mode {
	case ModeDocker:
		if !IsDockerAvailable(ctx) {
			slog.Warn("docker mode requested but docker is not available, falling back to host runner")
			return &HostRunner{config: config}
		}
		runner, err := NewDockerRunner(config)
		if err != nil {
			slog.Warn("failed to create docker runner, falling back to host runner", "error", err)
			return &HostRunner{config: config}
		}
		return runner

	case ModeHost:
		slog.Warn("using host runner without container isolation")
		return &HostRunner{config: config}

	default: // ModeAuto
		if IsDockerAvailable(ctx) {
			if runner, err := NewDockerRunner(config); err == nil {
				return runner
			}
		}
		slog.Warn("docker not available, using host runner without container isolation")
		return &HostRunner{config: config}
	}
}

// NewRunner creates a specific runner implementation.
func NewRunner(mode Mode, config Config) (Runner, error) {
	switch mode {
	case ModeDocker:
		return NewDockerRunner(config)
	case ModeHost:
		return &HostRunner{config: config}, nil
	default:
		return nil, fmt.Errorf("unknown runner mode: %s", mode)
	}
}
