package vcs

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	landiterrors "landit.dev/landit/internal/errors"
)

// DefaultCommandTimeout is the default timeout for VCS commands
const DefaultCommandTimeout = 5 * time.Minute

// CommandRunner executes commands of a single VCS tool ("git", "hg") in a
// working directory. Network operations inherit the default timeout when
// the caller's context carries no deadline.
type CommandRunner struct {
	tool       string
	workingDir string
}

// NewCommandRunner creates a runner for the given tool and directory.
func NewCommandRunner(tool, workingDir string) *CommandRunner {
	return &CommandRunner{tool: tool, workingDir: workingDir}
}

// Tool returns the tool name the runner invokes.
func (r *CommandRunner) Tool() string {
	return r.tool
}

// Run executes a command and returns its trimmed stdout.
func (r *CommandRunner) Run(ctx context.Context, args ...string) (string, error) {
	return r.run(ctx, "", true, args...)
}

// RunRaw executes a command and returns stdout without trimming.
func (r *CommandRunner) RunRaw(ctx context.Context, args ...string) (string, error) {
	return r.run(ctx, "", false, args...)
}

// RunWithInput executes a command with the given stdin and returns its
// trimmed stdout.
func (r *CommandRunner) RunWithInput(ctx context.Context, input string, args ...string) (string, error) {
	return r.run(ctx, input, true, args...)
}

// RunLines executes a command and returns stdout split into lines.
func (r *CommandRunner) RunLines(ctx context.Context, args ...string) ([]string, error) {
	output, err := r.Run(ctx, args...)
	if err != nil {
		return nil, err
	}
	if output == "" {
		return []string{}, nil
	}
	return strings.Split(output, "\n"), nil
}

func (r *CommandRunner) run(ctx context.Context, input string, trim bool, args ...string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	// If no timeout/deadline is set in the context, add the default one
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultCommandTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.tool, args...)
	if r.workingDir != "" {
		cmd.Dir = r.workingDir
	}
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", landiterrors.NewVCSCommandError(r.tool, args, stdout.String(), stderr.String(), ctx.Err())
		}
		return "", landiterrors.NewVCSCommandError(r.tool, args, stdout.String(), stderr.String(), err)
	}
	if trim {
		return strings.TrimSpace(stdout.String()), nil
	}
	return stdout.String(), nil
}

// ExitCode extracts the process exit code from a command error, or -1 when
// the error did not come from a process exit.
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
