package land

import (
	"context"
	"fmt"

	"landit.dev/landit/internal/config"
	landiterrors "landit.dev/landit/internal/errors"
	"landit.dev/landit/internal/journal"
	"landit.dev/landit/internal/review"
	"landit.dev/landit/internal/tui"
	"landit.dev/landit/internal/vcs"
)

// PublishGuard gates the push on build status, attaches the final commit
// message, pushes, and compensates a failed push by stripping the land
// commit and restoring the original checkout.
type PublishGuard struct {
	Backend  vcs.Backend
	Review   review.Client
	Splog    *tui.Splog
	Prompter tui.Prompter
	Journal  *journal.Journal
	Engine   *MergeEngine
	// PolicyFor maps a build plan to its landing policy.
	PolicyFor func(plan string) config.LandingPolicy
}

// FilterBlockingBuilds returns the builds that should prompt before
// landing. Passing builds never block. A plan's landing policy then
// filters the rest: "never" drops the build, "building" keeps it only
// while incomplete, "complete" only once complete, "always" keeps it.
func FilterBlockingBuilds(statuses []review.BuildStatus, policyFor func(plan string) config.LandingPolicy) []review.BuildStatus {
	var blocking []review.BuildStatus
	for _, status := range statuses {
		if status.State == review.BuildPassed {
			continue
		}
		switch policyFor(status.Plan) {
		case config.PolicyNever:
			continue
		case config.PolicyBuilding:
			if status.Complete() {
				continue
			}
		case config.PolicyComplete:
			if !status.Complete() {
				continue
			}
		}
		blocking = append(blocking, status)
	}
	return blocking
}

// Run executes the gate → commit → push sequence. rev may be nil when no
// review record could be associated; the absence of buildable information
// is not an error and landing proceeds silently.
func (g *PublishGuard) Run(ctx context.Context, req *Request, sess *Session, rev *review.RevisionRecord, message string) error {
	if err := g.buildGate(ctx, req, sess, rev); err != nil {
		return err
	}

	if !sess.CollapseCommitted {
		if err := g.Backend.Commit(ctx, message); err != nil {
			g.Engine.Rollback(ctx, req, sess)
			return fmt.Errorf("failed to commit the land changeset: %w", err)
		}
	}
	sess.Stage = StageCommitted

	if req.Flags.Hold {
		g.Splog.Info("Holding the landed changeset on %s as requested.", tui.ColorRefName(req.Target))
		g.Splog.Tip("Push it with: %s push %s %s", g.Backend.Name(), req.Remote, req.Target)
		return nil
	}

	if err := g.Backend.Push(ctx, req.Target, req.Remote); err != nil {
		g.Splog.Error("Push of %s to %s was rejected; undoing the local land commit.", req.Target, req.Remote)
		g.recordStrip(ctx, req)
		g.Engine.Rollback(ctx, req, sess)
		return &landiterrors.PushFailureError{Target: req.Target, Remote: req.Remote, Err: err}
	}
	sess.Stage = StagePushed

	if rev != nil {
		if err := g.Review.FinalizeRevision(ctx, rev.ID); err != nil {
			// The push already happened; a finalize failure must not
			// trigger rollback.
			g.Splog.Warn("Landed, but failed to finalize revision %s: %v", rev.ID, err)
		}
	}
	return nil
}

func (g *PublishGuard) buildGate(ctx context.Context, req *Request, sess *Session, rev *review.RevisionRecord) error {
	if g.Review == nil || rev == nil || rev.DiffID == "" {
		return nil
	}

	statuses, err := g.Review.QueryBuildStatus(ctx, rev.DiffID)
	if err != nil {
		return fmt.Errorf("failed to query build status: %w", err)
	}
	blocking := FilterBlockingBuilds(statuses, g.PolicyFor)
	if len(blocking) == 0 {
		return nil
	}

	g.Splog.Warn("Builds for this revision are not green:")
	for _, status := range blocking {
		g.Splog.Warn("  %s: %s", status.Plan, status.State)
	}
	confirmed, err := g.Prompter.Confirm("Land anyway?", false)
	if err != nil || !confirmed {
		g.Engine.Rollback(ctx, req, sess)
		return &landiterrors.UserAbortError{Prompt: "build status gate"}
	}
	return nil
}

// recordStrip journals the commit about to be stripped so it can be
// recovered manually.
func (g *PublishGuard) recordStrip(ctx context.Context, req *Request) {
	if g.Journal == nil {
		return
	}
	commit, err := g.Backend.ResolveCommit(ctx, req.Target)
	if err != nil {
		return
	}
	_ = g.Journal.Record(journal.Entry{
		Ref:     req.Target,
		Commit:  commit,
		Action:  "stripped land commit after failed push",
		Restore: fmt.Sprintf("%s reset/merge %s back to %s", g.Backend.Name(), req.Target, commit),
	})
}
