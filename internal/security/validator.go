// Package security gates terminal execution and filesystem access for
// autonomous runs. This file contains the command validator: execution
// modes, the denylist/allowlist policy, and working-directory path
// confinement.

package security

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ExecutionMode is the terminal-security posture. It is configured once
// per session and never transitions at runtime.
type ExecutionMode string

const (
	// ModeInteractive requires caller confirmation for every command.
	ModeInteractive ExecutionMode = "interactive"
	// ModeRestrictedAutonomous permits only allowlisted executables.
	ModeRestrictedAutonomous ExecutionMode = "restricted_autonomous"
	// ModeFullAutonomous skips the allowlist; the denylist still applies.
	// Entering this mode requires an explicit configuration flag.
	ModeFullAutonomous ExecutionMode = "full_autonomous"
)

// DefaultAllowlist is the set of base executables permitted in
// RestrictedAutonomous mode when the configuration supplies none.
var DefaultAllowlist = []string{
	"ls", "cat", "grep", "find", "echo", "pwd", "whoami", "head", "tail",
	"wc", "sort", "uniq", "diff", "git", "cargo", "rustc", "npm", "node",
	"python", "python3", "go", "make", "cmake", "which", "basename",
	"dirname", "realpath",
}

// defaultDenylist blocks destructive or escape-prone commands in every
// mode. Patterns are matched against the raw command and against a
// quote-stripped, whitespace-collapsed rendering, so spacing and quoting
// tricks do not slip past them.
var defaultDenylist = []string{
	`rm\s+-[a-zA-Z]*[rR][a-zA-Z]*\s+/\s*$`,
	`rm\s+-[a-zA-Z]*[rR][a-zA-Z]*\s+/\*`,
	`rm\s+-[a-zA-Z]*[rR][a-zA-Z]*\s+~`,
	`rm\s+-[a-zA-Z]*[rR][a-zA-Z]*\s+\$HOME`,
	`dd\s+if=/dev/(zero|random|urandom)`,
	`dd\s+[^|]*of=/dev/(sd|hd|vd|nvme)[a-z0-9]*`,
	`\bmkfs(\.|\s)`,
	`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`,
	`while\s+true.*do.*done`,
	`for\s*\(\(;;`,
	`(curl|wget)\s+[^|]*\|\s*(ba|z|da)?sh`,
	`\bsudo\s`,
	`^su\s|\ssu\s+-`,
	`\bchmod\s+[0-7]*7[0-7]*(\s|$)`,
	`^\s*(eval|exec)\s`,
	`\b(eval|exec)\s*\(`,
	`>\s*/dev/(sd|hd)[a-z]`,
	`/etc/passwd`,
	`/etc/shadow`,
	`~/\.ssh/`,
	`\$HOME/\.ssh/`,
}

// Validator classifies commands and paths as allowed or denied before any
// process is spawned or file touched. It is immutable after construction
// and safe to share by reference across an agent and its subagents.
type Validator struct {
	mode       ExecutionMode
	workingDir string
	allowlist  map[string]bool
	denylist   []*regexp.Regexp
}

// Options customizes validator construction. Zero values fall back to
// the package defaults.
type Options struct {
	Allowlist []string // base executables permitted in restricted mode
	ExtraDeny []string // additional denylist regex patterns
}

// NewValidator builds a validator with the default policy.
func NewValidator(mode ExecutionMode, workingDir string) (*Validator, error) {
	return NewValidatorWith(mode, workingDir, Options{})
}

// NewValidatorWith builds a validator with configured overrides. The
// default denylist is always present; configuration can only extend it.
func NewValidatorWith(mode ExecutionMode, workingDir string, opts Options) (*Validator, error) {
	allow := opts.Allowlist
	if len(allow) == 0 {
		allow = DefaultAllowlist
	}
	allowSet := make(map[string]bool, len(allow))
	for _, name := range allow {
		allowSet[name] = true
	}

	patterns := append(append([]string{}, defaultDenylist...), opts.ExtraDeny...)
	deny := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid denylist pattern %q: %w", p, err)
		}
		deny = append(deny, re)
	}

	return &Validator{
		mode:       mode,
		workingDir: workingDir,
		allowlist:  allowSet,
		denylist:   deny,
	}, nil
}

// Mode returns the configured execution mode.
func (v *Validator) Mode() ExecutionMode { return v.mode }

// WorkingDir returns the confinement root.
func (v *Validator) WorkingDir() string { return v.workingDir }

// normalizeCommand strips quote characters and collapses whitespace runs
// so denylist patterns see a canonical rendering.
func normalizeCommand(command string) string {
	s := strings.NewReplacer("'", "", `"`, "").Replace(command)
	return strings.Join(strings.Fields(s), " ")
}

// ValidateCommand classifies a command string for the configured mode.
//
// The denylist applies first and in every mode. Interactive mode then
// requires confirmation for everything; RestrictedAutonomous requires the
// base executable to be allowlisted; FullAutonomous passes. Path-looking
// argument tokens are confined to the working directory in both
// autonomous modes.
func (v *Validator) ValidateCommand(command string) error {
	normalized := normalizeCommand(command)
	for _, re := range v.denylist {
		if re.MatchString(command) || re.MatchString(normalized) {
			return &DangerousCommandError{
				Command: command,
				Reason:  fmt.Sprintf("matches denied pattern %q", re.String()),
			}
		}
	}

	parsed, err := SplitCommand(command)
	if err != nil {
		// Shell operators, substitution, and malformed quoting are
		// rejected in every mode: there is no safe interpretation.
		return &DangerousCommandError{Command: command, Reason: err.Error()}
	}

	switch v.mode {
	case ModeInteractive:
		return &ConfirmationRequiredError{
			Command: command,
			Reason:  "interactive mode confirms every command",
		}
	case ModeRestrictedAutonomous:
		base := filepath.Base(parsed.Program)
		if !v.allowlist[base] {
			return &ConfirmationRequiredError{
				Command: command,
				Reason:  fmt.Sprintf("command %q not in allowlist", base),
			}
		}
		return v.validateArgPaths(parsed)
	case ModeFullAutonomous:
		return v.validateArgPaths(parsed)
	default:
		return &DangerousCommandError{Command: command, Reason: fmt.Sprintf("unknown execution mode %q", v.mode)}
	}
}

// validateArgPaths confines every path-looking token of the parsed
// command to the working directory.
func (v *Validator) validateArgPaths(parsed ParsedCommand) error {
	for _, token := range parsed.Args {
		candidate := strings.TrimSpace(token)
		if candidate == "" {
			continue
		}
		// --flag=value carries the interesting part after the '='.
		if strings.HasPrefix(candidate, "--") && strings.Contains(candidate, "=") {
			candidate = candidate[strings.Index(candidate, "=")+1:]
		}
		if candidate == "" || strings.HasPrefix(candidate, "-") {
			continue
		}
		if !looksLikePath(candidate, v.workingDir) {
			continue
		}
		if _, err := v.ValidatePath(candidate); err != nil {
			return err
		}
	}
	return nil
}

func looksLikePath(token, workingDir string) bool {
	if strings.ContainsRune(token, '/') || token == "." || token == ".." || strings.HasPrefix(token, "~") {
		return true
	}
	_, err := os.Lstat(filepath.Join(workingDir, token))
	return err == nil
}

// ValidatePath confines a path to the working directory and returns its
// absolute form. Absolute paths and home references are rejected
// outright; relative paths must stay inside the working dir both
// lexically and after resolving symlinks. For targets that do not exist
// yet, the nearest existing ancestor is canonicalized instead so symlink
// escapes cannot hide behind a file still to be created.
func (v *Validator) ValidatePath(path string) (string, error) {
	if path == "" {
		return "", &PathEscapeError{Path: path, Reason: "empty path"}
	}
	if filepath.IsAbs(path) {
		return "", &PathEscapeError{Path: path, Reason: "absolute paths are not permitted"}
	}
	if strings.HasPrefix(path, "~") {
		return "", &PathEscapeError{Path: path, Reason: "home directory references are not permitted"}
	}

	root, err := filepath.Abs(v.workingDir)
	if err != nil {
		return "", &PathEscapeError{Path: path, Reason: fmt.Sprintf("cannot resolve working directory: %v", err)}
	}
	target := filepath.Join(root, path)
	if !isDescendant(root, target) {
		return "", &PathEscapeError{Path: path, Reason: "directory traversal escapes the working directory"}
	}

	canonRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", &PathEscapeError{Path: path, Reason: fmt.Sprintf("cannot canonicalize working directory: %v", err)}
	}

	// Canonicalize the deepest existing ancestor of the target.
	probe := target
	suffix := ""
	for {
		canon, err := filepath.EvalSymlinks(probe)
		if err == nil {
			resolved := filepath.Join(canon, suffix)
			if !isDescendant(canonRoot, resolved) {
				return "", &PathEscapeError{Path: path, Reason: "path resolves outside the working directory"}
			}
			return target, nil
		}
		if !os.IsNotExist(err) {
			return "", &PathEscapeError{Path: path, Reason: fmt.Sprintf("cannot canonicalize path: %v", err)}
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			return "", &PathEscapeError{Path: path, Reason: "no existing ancestor inside the working directory"}
		}
		suffix = filepath.Join(filepath.Base(probe), suffix)
		probe = parent
	}
}

// isDescendant reports whether target equals root or sits beneath it.
func isDescendant(root, target string) bool {
	root = filepath.Clean(root)
	target = filepath.Clean(target)
	if target == root {
		return true
	}
	return strings.HasPrefix(target, root+string(filepath.Separator))
}
