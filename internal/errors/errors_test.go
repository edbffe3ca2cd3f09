package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypedErrorsMatchTheirSentinels(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
	}{
		{NewValidationError("bad input"), ErrValidation},
		{NewConfigurationError("missing %s", "remote"), ErrConfiguration},
		{NewPreconditionError("dirty working copy"), ErrPrecondition},
		{&DivergenceError{Target: "master", Remote: "origin"}, ErrDivergence},
		{&ConflictError{Operation: "rebase", Source: "feature", Target: "master"}, ErrConflict},
		{&PushFailureError{Target: "master", Remote: "origin"}, ErrPushFailure},
		{&UserAbortError{Prompt: "continue?"}, ErrUserAbort},
		{&UnsupportedStrategyError{Strategy: "merge", Backend: "git"}, ErrUnsupportedStrategy},
	}
	for _, tc := range cases {
		require.ErrorIs(t, tc.err, tc.sentinel, "%T", tc.err)
	}
}

func TestSentinelsDoNotCrossMatch(t *testing.T) {
	require.NotErrorIs(t, NewValidationError("x"), ErrConfiguration)
	require.NotErrorIs(t, &DivergenceError{}, ErrConflict)
	require.NotErrorIs(t, &UserAbortError{}, ErrPushFailure)
}

func TestWrappedErrorsStillMatch(t *testing.T) {
	err := fmt.Errorf("landing failed: %w", &DivergenceError{Target: "master", Remote: "origin"})
	require.ErrorIs(t, err, ErrDivergence)

	var divergence *DivergenceError
	require.ErrorAs(t, err, &divergence)
	require.Equal(t, "master", divergence.Target)
}

func TestPushFailureUnwrapsCause(t *testing.T) {
	cause := stderrors.New("remote hung up")
	err := &PushFailureError{Target: "master", Remote: "origin", Err: cause}
	require.ErrorIs(t, err, cause)
}

func TestVCSCommandErrorMessageIncludesStderr(t *testing.T) {
	err := &VCSCommandError{
		Command: "git",
		Args:    []string{"push", "origin", "master"},
		Stderr:  "remote: permission denied",
		Err:     stderrors.New("exit status 128"),
	}
	require.Contains(t, err.Error(), "git push origin master")
	require.Contains(t, err.Error(), "permission denied")
}
