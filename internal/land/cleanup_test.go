package land

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"landit.dev/landit/internal/vcs"
)

func newTestCleanup(backend *fakeBackend) *CleanupManager {
	return &CleanupManager{Backend: backend, Splog: newQuietSplog()}
}

func TestCleanupDeletesLandedRef(t *testing.T) {
	backend := newFakeGit()
	sess := NewSession(WorkingCopyState{Ref: vcs.Ref{Name: "feature"}})

	err := newTestCleanup(backend).Run(context.Background(), squashRequest("master"), sess)
	require.NoError(t, err)
	require.Contains(t, backend.calls, "delete feature")
	// The original checkout was the deleted ref, so the target is the
	// natural place to end up.
	require.Equal(t, "checkout master", backend.calls[len(backend.calls)-1])
}

func TestCleanupKeepBranchFlag(t *testing.T) {
	backend := newFakeGit()
	sess := NewSession(WorkingCopyState{Ref: vcs.Ref{Name: "feature"}})

	req := squashRequest("master")
	req.Flags.Keep = true
	err := newTestCleanup(backend).Run(context.Background(), req, sess)
	require.NoError(t, err)
	require.NotContains(t, backend.calls, "delete feature")
	require.Equal(t, "checkout feature", backend.calls[len(backend.calls)-1])
}

func TestCleanupKeepSourceFromForkHandling(t *testing.T) {
	backend := newFakeGit()
	sess := NewSession(WorkingCopyState{Ref: vcs.Ref{Name: "feature"}})
	sess.KeepSource = true

	err := newTestCleanup(backend).Run(context.Background(), squashRequest("master"), sess)
	require.NoError(t, err)
	require.NotContains(t, backend.calls, "delete feature")
}

func TestCleanupDeleteRemoteWhenSupported(t *testing.T) {
	backend := newFakeGit()
	sess := NewSession(WorkingCopyState{Ref: vcs.Ref{Name: "feature"}})

	req := squashRequest("master")
	req.Flags.DeleteRemote = true
	err := newTestCleanup(backend).Run(context.Background(), req, sess)
	require.NoError(t, err)
	require.Contains(t, backend.calls, "delete-remote feature origin")
}

func TestCleanupDeleteRemoteSkippedWhenUnsupported(t *testing.T) {
	backend := newFakeHg()
	// A named branch cannot be deleted on the remote in mercurial.
	sess := NewSession(WorkingCopyState{Ref: vcs.Ref{Name: "feature"}})

	req := squashRequest("default")
	req.Flags.DeleteRemote = true
	err := newTestCleanup(backend).Run(context.Background(), req, sess)
	require.NoError(t, err)
	require.Contains(t, backend.calls, "delete feature")
	require.NotContains(t, backend.calls, "delete-remote feature default")
}

func TestCleanupFailedDeleteIsNotFatal(t *testing.T) {
	backend := newFakeGit()
	backend.failOn["delete"] = context.DeadlineExceeded
	sess := NewSession(WorkingCopyState{Ref: vcs.Ref{Name: "feature"}})

	err := newTestCleanup(backend).Run(context.Background(), squashRequest("master"), sess)
	require.NoError(t, err)
}

func TestCleanupRecoveryCommandPerRefKind(t *testing.T) {
	hg := newTestCleanup(newFakeHg())
	require.Equal(t, "hg bookmark feature -r feac1e",
		hg.recoveryCommand(vcs.Ref{Name: "feature", Kind: vcs.KindBookmark}, "feac1e"))

	git := newTestCleanup(newFakeGit())
	require.Equal(t, "git branch feature feac1e",
		git.recoveryCommand(vcs.Ref{Name: "feature", Kind: vcs.KindBranch}, "feac1e"))
}
