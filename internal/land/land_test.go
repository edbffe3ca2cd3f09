package land

import (
	"testing"

	"github.com/stretchr/testify/require"

	landiterrors "landit.dev/landit/internal/errors"
	"landit.dev/landit/internal/review"
	"landit.dev/landit/internal/runtime"
	"landit.dev/landit/internal/vcs"
)

func newTestContext(t *testing.T, backend *fakeBackend, client *fakeReview, prompter *fakePrompter) *runtime.Context {
	t.Helper()
	rctx := &runtime.Context{
		Backend:  backend,
		Splog:    newQuietSplog(),
		Prompter: prompter,
		MetaDir:  t.TempDir(),
	}
	if client != nil {
		rctx.Review = client
	}
	return rctx
}

func acceptedReview() *fakeReview {
	return &fakeReview{
		revisions: map[string][]review.RevisionRecord{
			"feature": {{ID: "42", Title: "Add the thing", Status: review.StatusAccepted, DiffID: "d7"}},
		},
		message: "Add the thing\n\nCloses #42",
	}
}

func TestActionHappyPathGit(t *testing.T) {
	backend := newFakeGit()
	client := acceptedReview()
	rctx := newTestContext(t, backend, client, &fakePrompter{})

	err := Action(rctx, Options{})
	require.NoError(t, err)
	require.Equal(t, []string{
		"checkout master",
		"pull origin master",
		"collapse feature onto master",
		"commit",
		"push master origin",
		"delete feature",
		"checkout master",
	}, backend.calls)
	require.Equal(t, []string{"42"}, client.finalized)
}

func TestActionDirtyWorkingCopyStopsImmediately(t *testing.T) {
	backend := newFakeGit()
	backend.clean = false
	rctx := newTestContext(t, backend, acceptedReview(), &fakePrompter{})

	err := Action(rctx, Options{})
	require.ErrorIs(t, err, landiterrors.ErrPrecondition)
	require.Empty(t, backend.calls)
}

func TestActionDivergenceStopsBeforeMutation(t *testing.T) {
	backend := newFakeGit()
	backend.ahead = []vcs.Commit{{Hash: "ccc333", Subject: "local only"}}
	rctx := newTestContext(t, backend, acceptedReview(), &fakePrompter{})

	err := Action(rctx, Options{})
	require.ErrorIs(t, err, landiterrors.ErrDivergence)
	// Checkout and pull are the only operations allowed before the guard.
	require.Equal(t, []string{"checkout master", "pull origin master"}, backend.calls)
}

func TestActionPreviewMutatesNothing(t *testing.T) {
	backend := newFakeGit()
	backend.between["aaa111|feature"] = []vcs.Commit{{Hash: "feac1e", Subject: "do the thing"}}
	rctx := newTestContext(t, backend, acceptedReview(), &fakePrompter{})

	err := Action(rctx, Options{Preview: true})
	require.NoError(t, err)
	require.Empty(t, backend.calls)
	// The preview lists the commits that would land before stopping.
	require.Contains(t, backend.betweenQueries, "aaa111|feature")
}

func TestActionNoReviewClientLandsWithFallbackMessage(t *testing.T) {
	backend := newFakeGit()
	backend.between["aaa111|feature"] = []vcs.Commit{{Hash: "feac1e", Subject: "do the thing"}}
	rctx := newTestContext(t, backend, nil, &fakePrompter{})

	err := Action(rctx, Options{})
	require.NoError(t, err)
	require.Contains(t, backend.calls, "push master origin")
}

func TestActionAmbiguousRevisions(t *testing.T) {
	backend := newFakeGit()
	client := acceptedReview()
	client.revisions["feature"] = append(client.revisions["feature"],
		review.RevisionRecord{ID: "43", Title: "Another one"})
	rctx := newTestContext(t, backend, client, &fakePrompter{})

	err := Action(rctx, Options{})
	require.ErrorIs(t, err, landiterrors.ErrConfiguration)
	require.Contains(t, err.Error(), "42")
	require.Contains(t, err.Error(), "43")
	require.Empty(t, backend.calls)
}

func TestActionNoAssociatedRevision(t *testing.T) {
	backend := newFakeGit()
	rctx := newTestContext(t, backend, &fakeReview{}, &fakePrompter{})

	err := Action(rctx, Options{})
	require.ErrorIs(t, err, landiterrors.ErrConfiguration)
}

func TestActionExplicitRevisionOverride(t *testing.T) {
	backend := newFakeGit()
	client := acceptedReview()
	client.byID = map[string]*review.RevisionRecord{
		"99": {ID: "99", Title: "Override", Status: review.StatusAccepted},
	}
	rctx := newTestContext(t, backend, client, &fakePrompter{})

	err := Action(rctx, Options{Revision: "99"})
	require.NoError(t, err)
	require.Equal(t, []string{"99"}, client.finalized)
}

func TestActionUnacceptedRevisionDeclined(t *testing.T) {
	backend := newFakeGit()
	client := acceptedReview()
	client.revisions["feature"][0].Status = review.StatusChangesPlanned
	rctx := newTestContext(t, backend, client, &fakePrompter{confirm: false})

	err := Action(rctx, Options{})
	require.ErrorIs(t, err, landiterrors.ErrUserAbort)
	require.Empty(t, backend.calls)
}

func TestActionOpenDependenciesDeclined(t *testing.T) {
	backend := newFakeGit()
	client := acceptedReview()
	client.deps = []review.RevisionRecord{{ID: "41", Title: "Prerequisite"}}
	rctx := newTestContext(t, backend, client, &fakePrompter{confirm: false})

	err := Action(rctx, Options{})
	require.ErrorIs(t, err, landiterrors.ErrUserAbort)
	require.Empty(t, backend.calls)
}

func TestActionHoldSkipsPushAndCleanup(t *testing.T) {
	backend := newFakeGit()
	rctx := newTestContext(t, backend, acceptedReview(), &fakePrompter{})

	err := Action(rctx, Options{Hold: true})
	require.NoError(t, err)
	require.NotContains(t, backend.calls, "push master origin")
	require.NotContains(t, backend.calls, "delete feature")
	require.True(t, backend.refs["feature"])
}

func TestActionKeepBranchSurvivesLanding(t *testing.T) {
	backend := newFakeGit()
	rctx := newTestContext(t, backend, acceptedReview(), &fakePrompter{})

	err := Action(rctx, Options{KeepBranch: true})
	require.NoError(t, err)
	require.Contains(t, backend.calls, "collapse feature onto master keep")
	require.Contains(t, backend.calls, "push master origin")
	require.True(t, backend.refs["feature"])
}

func TestActionFailedPushRestoresOriginalCheckout(t *testing.T) {
	backend := newFakeGit()
	backend.failOn["push"] = &landiterrors.VCSCommandError{Command: "git"}
	rctx := newTestContext(t, backend, acceptedReview(), &fakePrompter{})

	err := Action(rctx, Options{})
	require.ErrorIs(t, err, landiterrors.ErrPushFailure)
	require.Equal(t, "feature", backend.currentRef.Name)
	require.True(t, backend.refs["feature"])
}

func TestActionMergeStrategyOnHg(t *testing.T) {
	backend := newFakeHg()
	rctx := newTestContext(t, backend, nil, &fakePrompter{})
	backend.between["aaa111|feature"] = []vcs.Commit{{Hash: "feac1e", Subject: "change"}}

	err := Action(rctx, Options{Onto: "default"})
	require.NoError(t, err)
	require.Contains(t, backend.calls, "merge feature")
	require.Contains(t, backend.calls, "commit")
	require.NotContains(t, backend.calls, "collapse feature onto default")
}
