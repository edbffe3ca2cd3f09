// Package errors provides sentinel errors and custom error types for the landit application.
// Use errors.Is() and errors.As() to check for specific error kinds.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors, one per fatal error kind of the land pipeline.
// Every failure is fatal; there is no partial success.
var (
	// ErrValidation indicates conflicting flags, a self-land, or a ref-kind mismatch
	ErrValidation = errors.New("validation error")

	// ErrConfiguration indicates the source or target ref could not be resolved
	ErrConfiguration = errors.New("configuration error")

	// ErrPrecondition indicates a dirty working copy or a missing backend capability
	ErrPrecondition = errors.New("precondition error")

	// ErrDivergence indicates the local target is ahead of its remote counterpart
	ErrDivergence = errors.New("local target diverged from remote")

	// ErrConflict indicates a rebase or merge conflict
	ErrConflict = errors.New("conflict")

	// ErrPushFailure indicates the push was rejected after the land commit was created
	ErrPushFailure = errors.New("push failed")

	// ErrUserAbort indicates a declined confirmation or an invalid interactive choice
	ErrUserAbort = errors.New("aborted by user")

	// ErrUnsupportedStrategy indicates the backend cannot execute the requested strategy
	ErrUnsupportedStrategy = errors.New("unsupported merge strategy")
)

// ValidationError represents a request that is invalid before any mutation
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is returns true if the target error is ErrValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a new ValidationError
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ConfigurationError represents an unresolvable source or target ref
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// Is returns true if the target error is ErrConfiguration
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// NewConfigurationError creates a new ConfigurationError
func NewConfigurationError(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// PreconditionError represents a precondition failure detected before mutation
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string {
	return e.Message
}

// Is returns true if the target error is ErrPrecondition
func (e *PreconditionError) Is(target error) bool {
	return target == ErrPrecondition
}

// NewPreconditionError creates a new PreconditionError
func NewPreconditionError(format string, args ...interface{}) *PreconditionError {
	return &PreconditionError{Message: fmt.Sprintf(format, args...)}
}

// DivergenceError is raised when the local target ref contains commits that
// are not present on the remote. Landing would silently publish them.
type DivergenceError struct {
	Target string
	Remote string
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("local %s is ahead of %s/%s; push or discard the extra commits before landing",
		e.Target, e.Remote, e.Target)
}

// Is returns true if the target error is ErrDivergence
func (e *DivergenceError) Is(target error) bool {
	return target == ErrDivergence
}

// ConflictError represents a rebase or merge conflict, with instructions
// for the user to resolve it manually.
type ConflictError struct {
	Operation string // "rebase" or "merge"
	Source    string
	Target    string
	Advice    string
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("%s of %s onto %s produced conflicts", e.Operation, e.Source, e.Target)
	if e.Advice != "" {
		msg += "\n" + e.Advice
	}
	return msg
}

// Is returns true if the target error is ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// PushFailureError represents a rejected push. The local land commit has
// already been stripped and the original checkout restored by the time this
// error surfaces.
type PushFailureError struct {
	Target string
	Remote string
	Err    error
}

func (e *PushFailureError) Error() string {
	msg := fmt.Sprintf("failed to push %s to %s", e.Target, e.Remote)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PushFailureError) Unwrap() error {
	return e.Err
}

// Is returns true if the target error is ErrPushFailure
func (e *PushFailureError) Is(target error) bool {
	return target == ErrPushFailure
}

// UserAbortError represents a declined confirmation or invalid choice
type UserAbortError struct {
	Prompt string
}

func (e *UserAbortError) Error() string {
	if e.Prompt != "" {
		return fmt.Sprintf("aborted by user: %s", e.Prompt)
	}
	return "aborted by user"
}

// Is returns true if the target error is ErrUserAbort
func (e *UserAbortError) Is(target error) bool {
	return target == ErrUserAbort
}

// UnsupportedStrategyError represents a strategy the backend cannot execute
type UnsupportedStrategyError struct {
	Strategy string
	Backend  string
	Reason   string
}

func (e *UnsupportedStrategyError) Error() string {
	msg := fmt.Sprintf("%s backend does not support the %s strategy", e.Backend, e.Strategy)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is returns true if the target error is ErrUnsupportedStrategy
func (e *UnsupportedStrategyError) Is(target error) bool {
	return target == ErrUnsupportedStrategy
}

// VCSCommandError represents an error from an external VCS command execution
type VCSCommandError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *VCSCommandError) Error() string {
	msg := fmt.Sprintf("%s command failed", e.Command)
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(": %s %s", e.Command, strings.Join(e.Args, " "))
	}
	if e.Stderr != "" {
		msg += "\nstderr: " + e.Stderr
	}
	if e.Stdout != "" {
		msg += "\nstdout: " + e.Stdout
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

func (e *VCSCommandError) Unwrap() error {
	return e.Err
}

// NewVCSCommandError creates a new VCSCommandError
func NewVCSCommandError(command string, args []string, stdout, stderr string, err error) *VCSCommandError {
	return &VCSCommandError{
		Command: command,
		Args:    args,
		Stdout:  stdout,
		Stderr:  stderr,
		Err:     err,
	}
}
