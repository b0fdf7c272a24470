package security

import (
	"errors"
	"fmt"
)

// DangerousCommandError indicates a command matched the denylist (or used
// a construct the validator refuses in any mode). The process is never
// spawned.
type DangerousCommandError struct {
	Command string
	Reason  string
}

func (e *DangerousCommandError) Error() string {
	return fmt.Sprintf("dangerous command rejected: %s (%s)", e.Command, e.Reason)
}

// IsDangerousCommand checks if an error is a DangerousCommandError.
func IsDangerousCommand(err error) bool {
	var de *DangerousCommandError
	return errors.As(err, &de)
}

// ConfirmationRequiredError indicates the command is permitted only with
// explicit caller confirmation (Interactive mode, or a non-allowlisted
// command in RestrictedAutonomous mode).
type ConfirmationRequiredError struct {
	Command string
	Reason  string
}

func (e *ConfirmationRequiredError) Error() string {
	return fmt.Sprintf("command requires confirmation: %s (%s)", e.Command, e.Reason)
}

// IsConfirmationRequired checks if an error is a ConfirmationRequiredError.
func IsConfirmationRequired(err error) bool {
	var ce *ConfirmationRequiredError
	return errors.As(err, &ce)
}

// PathEscapeError indicates a path would resolve outside the working
// directory.
type PathEscapeError struct {
	Path   string
	Reason string
}

func (e *PathEscapeError) Error() string {
	return fmt.Sprintf("path outside working directory: %s (%s)", e.Path, e.Reason)
}

// IsPathEscape checks if an error is a PathEscapeError.
func IsPathEscape(err error) bool {
	var pe *PathEscapeError
	return errors.As(err, &pe)
}
