package land

import (
	"context"
	"fmt"

	landiterrors "landit.dev/landit/internal/errors"
	"landit.dev/landit/internal/tui"
	"landit.dev/landit/internal/vcs"
)

// MergeEngine executes the selected strategy. Stages advance
// INIT → REBASED (squash only, conditional) → COLLAPSED; the commit and
// push stages belong to PublishGuard. Failures in abortable operations
// roll back to the working copy captured at invocation start.
type MergeEngine struct {
	Backend    vcs.Backend
	Splog      *tui.Splog
	Alternates *AlternateBranchHandler
}

// Execute runs the squash or strict-merge path for the request. message
// is the externally sourced commit message; backends whose collapse
// commits directly record it there.
func (e *MergeEngine) Execute(ctx context.Context, req *Request, sess *Session, message string) error {
	if req.Strategy == StrategyMerge {
		return e.executeMerge(ctx, req, sess)
	}
	return e.executeSquash(ctx, req, sess, message)
}

func (e *MergeEngine) executeSquash(ctx context.Context, req *Request, sess *Session, message string) error {
	// Rebase only if the target tip moved past the common ancestor.
	base, err := e.Backend.GetMergeBase(ctx, req.Source.Name, req.Target)
	if err != nil {
		return err
	}
	targetTip, err := e.Backend.ResolveCommit(ctx, req.Target)
	if err != nil {
		return err
	}

	if base != targetTip {
		e.Splog.Debug("Rebasing %s onto %s (%s)", req.Source.Name, req.Target, shortHash(targetTip))
		result, err := e.Backend.Rebase(ctx, req.Source.Name, req.Target, vcs.RebaseOptions{
			KeepOriginal: req.Flags.Keep,
		})
		if err != nil {
			// The rebase has already moved the checkout off the
			// starting ref even when it fails outright.
			e.restoreWorkingCopy(ctx, sess)
			return err
		}
		if result == vcs.RebaseConflict {
			// The rebase is abortable, so restore the starting state.
			if err := e.Backend.AbortRebase(ctx); err != nil {
				e.Splog.Debug("rebase abort failed: %v", err)
			}
			e.restoreWorkingCopy(ctx, sess)
			return &landiterrors.ConflictError{
				Operation: "rebase",
				Source:    req.Source.Name,
				Target:    req.Target,
				Advice: fmt.Sprintf("rebase %s onto %s manually, resolve the conflicts, then land again",
					req.Source.Name, req.Target),
			}
		}
		sess.Stage = StageRebased
	} else {
		e.Splog.Debug("%s already sits on the tip of %s; skipping rebase", req.Source.Name, req.Target)
	}

	// Sibling forks would be destroyed by the collapse; ask first.
	if !req.Flags.Keep {
		if err := e.Alternates.Resolve(ctx, req, sess); err != nil {
			if sess.Mutated() {
				e.restoreWorkingCopy(ctx, sess)
			}
			return err
		}
	}

	// The original changesets must survive the collapse when the source
	// ref is being kept or when forks still descend from them.
	result, err := e.Backend.CollapseOnto(ctx, req.Source.Name, req.Target, message, vcs.CollapseOptions{
		KeepOriginal: req.Flags.Keep || sess.KeepSource || len(sess.ForksToRelocate) > 0,
	})
	if err != nil {
		// A failed collapse may leave staged content behind.
		if discardErr := e.Backend.DiscardWorkingCopy(ctx); discardErr != nil {
			e.Splog.Debug("discard after failed collapse: %v", discardErr)
		}
		e.restoreWorkingCopy(ctx, sess)
		sess.Stage = StageRolledBack
		return err
	}
	sess.Stage = StageCollapsed
	sess.CollapseCommitted = result.Committed

	// Relocate forks onto the landed ref; they were chosen to survive.
	for _, fork := range sess.ForksToRelocate {
		e.Splog.Info("Relocating fork %q onto %s", fork.Ref.Name, req.Target)
		if err := e.Backend.RelocateFork(ctx, fork, req.Target); err != nil {
			return fmt.Errorf("failed to relocate fork %q: %w", fork.Ref.Name, err)
		}
	}
	return nil
}

func (e *MergeEngine) executeMerge(ctx context.Context, req *Request, sess *Session) error {
	if err := e.Backend.Checkout(ctx, req.Target); err != nil {
		return err
	}

	result, err := e.Backend.MergeNoCommit(ctx, req.Source.Name)
	if err != nil {
		return err
	}
	if result == vcs.MergeConflict {
		// The working copy is intentionally left mid-merge so the
		// conflicts can be inspected.
		return &landiterrors.ConflictError{
			Operation: "merge",
			Source:    req.Source.Name,
			Target:    req.Target,
			Advice: "resolve the conflicts and commit, or abort the merge to discard it; " +
				"then run land again",
		}
	}
	sess.Stage = StageCollapsed
	return nil
}

// Rollback compensates a failure after the collapse stage: committed
// changesets are stripped, staged state is discarded, and the original
// checkout is restored.
func (e *MergeEngine) Rollback(ctx context.Context, req *Request, sess *Session) {
	if sess.Stage == StageCommitted || (sess.Stage == StageCollapsed && sess.CollapseCommitted) {
		if err := e.Backend.StripLastCommit(ctx, req.Target); err != nil {
			e.Splog.Warn("Failed to remove the land commit on %s: %v", req.Target, err)
		}
	} else if sess.Stage == StageCollapsed {
		if err := e.Backend.DiscardWorkingCopy(ctx); err != nil {
			e.Splog.Warn("Failed to discard staged changes: %v", err)
		}
	}
	e.restoreWorkingCopy(ctx, sess)
	sess.Stage = StageRolledBack
}

func (e *MergeEngine) restoreWorkingCopy(ctx context.Context, sess *Session) {
	if err := e.Backend.Checkout(ctx, sess.WorkingCopy.Ref.Name); err != nil {
		e.Splog.Warn("Failed to restore checkout of %s: %v", sess.WorkingCopy.Ref.Name, err)
	}
}
