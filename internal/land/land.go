package land

import (
	"context"
	"fmt"
	"strings"

	"landit.dev/landit/internal/config"
	landiterrors "landit.dev/landit/internal/errors"
	"landit.dev/landit/internal/review"
	"landit.dev/landit/internal/runtime"
	"landit.dev/landit/internal/tui"
	"landit.dev/landit/internal/vcs"
)

// Options are the raw CLI inputs to the land pipeline.
type Options struct {
	// Args are the positional source ref arguments.
	Args []string
	// Onto overrides target resolution.
	Onto string
	// Remote overrides remote resolution.
	Remote string
	// Revision is an explicit revision id override.
	Revision string
	// Merge forces the strict-merge strategy.
	Merge bool
	// Squash forces the squash strategy.
	Squash bool
	// KeepBranch preserves the source ref after landing.
	KeepBranch bool
	// DeleteRemote also deletes the source ref's remote counterpart.
	DeleteRemote bool
	// Hold stops after the local commit, before pushing.
	Hold bool
	// Preview prints the resolved plan and stops before any mutation.
	Preview bool
}

// Action runs the land pipeline end to end. Every mutating stage past the
// sync guard records enough state on the session to compensate a failure.
func Action(rctx *runtime.Context, opts Options) error {
	ctx := context.Background()
	backend := rctx.Backend

	clean, err := backend.IsWorkingCopyClean(ctx)
	if err != nil {
		return err
	}
	if !clean {
		return landiterrors.NewPreconditionError(
			"the working copy has uncommitted changes; commit or shelve them before landing")
	}

	current, err := backend.GetCurrentRef(ctx)
	if err != nil {
		return landiterrors.NewConfigurationError(
			"unable to determine the current checkout: %v", err)
	}
	sess := NewSession(WorkingCopyState{Ref: current})

	req, err := resolve(ctx, rctx, opts)
	if err != nil {
		return err
	}

	rev, message, err := resolveRevision(ctx, rctx, req)
	if err != nil {
		return err
	}
	if err := reviewGates(ctx, rctx, rev); err != nil {
		return err
	}
	if message == "" {
		message, err = fallbackMessage(ctx, backend, req)
		if err != nil {
			return err
		}
	}

	printPlan(rctx, req, rev)
	if req.Flags.Preview {
		if err := printLandingCommits(ctx, rctx, req); err != nil {
			return err
		}
		rctx.Splog.Info("Preview only; nothing was changed.")
		return nil
	}

	sync := &SyncGuard{Backend: backend, Splog: rctx.Splog}
	if err := sync.Run(ctx, req); err != nil {
		return err
	}

	engine := &MergeEngine{
		Backend: backend,
		Splog:   rctx.Splog,
		Alternates: &AlternateBranchHandler{
			Backend:  backend,
			Splog:    rctx.Splog,
			Prompter: rctx.Prompter,
		},
	}
	if err := engine.Execute(ctx, req, sess, message); err != nil {
		return err
	}

	publish := &PublishGuard{
		Backend:  backend,
		Review:   rctx.Review,
		Splog:    rctx.Splog,
		Prompter: rctx.Prompter,
		Journal:  rctx.Journal,
		Engine:   engine,
		PolicyFor: func(plan string) config.LandingPolicy {
			policy, err := config.GetBuildPolicy(rctx.MetaDir, plan)
			if err != nil {
				return config.PolicyAlways
			}
			return policy
		},
	}
	if err := publish.Run(ctx, req, sess, rev, message); err != nil {
		return err
	}

	if req.Flags.Hold {
		rctx.Splog.Info("Skipping cleanup while the changeset is held.")
		return nil
	}

	cleanup := &CleanupManager{Backend: backend, Splog: rctx.Splog, Journal: rctx.Journal}
	if err := cleanup.Run(ctx, req, sess); err != nil {
		return err
	}

	rctx.Splog.Newline()
	rctx.Splog.Info("Landed %s onto %s.",
		tui.ColorRefName(req.Source.Name), tui.ColorRefName(req.Target))
	return nil
}

// resolve turns the raw options into a validated request with the
// strategy already selected.
func resolve(ctx context.Context, rctx *runtime.Context, opts Options) (*Request, error) {
	defaultOnto, err := config.GetDefaultOnto(rctx.MetaDir)
	if err != nil {
		return nil, err
	}
	defaultRemote, err := config.GetDefaultRemote(rctx.MetaDir)
	if err != nil {
		return nil, err
	}

	req, err := ResolveRequest(ctx, rctx.Backend, ResolveInput{
		Args:          opts.Args,
		Onto:          opts.Onto,
		Remote:        opts.Remote,
		RevisionID:    opts.Revision,
		DefaultOnto:   defaultOnto,
		DefaultRemote: defaultRemote,
		Flags: Flags{
			Keep:         opts.KeepBranch,
			Hold:         opts.Hold,
			Preview:      opts.Preview,
			DeleteRemote: opts.DeleteRemote,
		},
	})
	if err != nil {
		return nil, err
	}

	req.Strategy, err = SelectStrategy(rctx.Backend, opts.Merge, opts.Squash)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// resolveRevision associates exactly one revision with the request and
// builds its commit message. Without a review client the pipeline runs in
// degraded mode: no revision, empty message.
func resolveRevision(ctx context.Context, rctx *runtime.Context, req *Request) (*review.RevisionRecord, string, error) {
	if rctx.Review == nil {
		rctx.Splog.Warn("No review system is configured; landing without review metadata.")
		return nil, "", nil
	}

	var rev *review.RevisionRecord
	if req.RevisionID != "" {
		found, err := rctx.Review.GetRevision(ctx, req.RevisionID)
		if err != nil {
			return nil, "", err
		}
		rev = found
	} else {
		candidates, err := rctx.Review.ResolveRevisionForRef(ctx, req.Source.Name)
		if err != nil {
			return nil, "", err
		}
		switch len(candidates) {
		case 0:
			return nil, "", landiterrors.NewConfigurationError(
				"no open revision is associated with %q; use --revision to name one explicitly",
				req.Source.Name)
		case 1:
			rev = &candidates[0]
		default:
			var ids []string
			for _, c := range candidates {
				ids = append(ids, fmt.Sprintf("%s (%s)", c.ID, c.Title))
			}
			return nil, "", landiterrors.NewConfigurationError(
				"%q is associated with multiple revisions: %s; use --revision to pick one",
				req.Source.Name, strings.Join(ids, ", "))
		}
	}

	message, err := rctx.Review.BuildCommitMessage(ctx, rev.ID)
	if err != nil {
		return nil, "", err
	}
	return rev, message, nil
}

// reviewGates confirms landing a revision that is not accepted or that
// still has unlanded dependencies. Both run before any mutation.
func reviewGates(ctx context.Context, rctx *runtime.Context, rev *review.RevisionRecord) error {
	if rev == nil {
		return nil
	}

	if rev.Status != review.StatusAccepted {
		rctx.Splog.Warn("Revision %s is %s, not accepted.", rev.ID, rev.Status)
		confirmed, err := rctx.Prompter.Confirm("Land it anyway?", false)
		if err != nil || !confirmed {
			return &landiterrors.UserAbortError{Prompt: "revision not accepted"}
		}
	}

	deps, err := rctx.Review.QueryOpenDependencies(ctx, rev.ID)
	if err != nil {
		return err
	}
	if len(deps) > 0 {
		rctx.Splog.Warn("Revision %s depends on unlanded revisions:", rev.ID)
		for _, dep := range deps {
			rctx.Splog.Warn("  %s %s", dep.ID, dep.Title)
		}
		confirmed, err := rctx.Prompter.Confirm("Land it anyway?", false)
		if err != nil || !confirmed {
			return &landiterrors.UserAbortError{Prompt: "open dependencies"}
		}
	}
	return nil
}

// fallbackMessage summarizes the landed commits when no review system can
// supply a message.
func fallbackMessage(ctx context.Context, backend vcs.Backend, req *Request) (string, error) {
	base, err := backend.GetMergeBase(ctx, req.Source.Name, req.Target)
	if err != nil {
		return "", err
	}
	commits, err := backend.CommitsBetween(ctx, base, req.Source.Name)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Land %s\n", req.Source.Name)
	for _, commit := range commits {
		fmt.Fprintf(&b, "\n* %s", commit.Subject)
	}
	return b.String(), nil
}

// printLandingCommits lists the commits that would land, newest first.
func printLandingCommits(ctx context.Context, rctx *runtime.Context, req *Request) error {
	base, err := rctx.Backend.GetMergeBase(ctx, req.Source.Name, req.Target)
	if err != nil {
		return err
	}
	commits, err := rctx.Backend.CommitsBetween(ctx, base, req.Source.Name)
	if err != nil {
		return err
	}
	rctx.Splog.Info("%d commit(s) would land:", len(commits))
	for _, commit := range commits {
		rctx.Splog.Info("  %s %s", tui.ColorDim(commit.ShortHash()), commit.Subject)
	}
	return nil
}

func printPlan(rctx *runtime.Context, req *Request, rev *review.RevisionRecord) {
	rctx.Splog.Info("Landing %s onto %s (%s, remote %s, %s strategy)",
		tui.ColorRefName(req.Source.Name), tui.ColorRefName(req.Target),
		req.Source.Kind, req.Remote, req.Strategy)
	if rev != nil {
		rctx.Splog.Info("Revision %s: %s [%s]", rev.ID, rev.Title, rev.Status)
	}
}
