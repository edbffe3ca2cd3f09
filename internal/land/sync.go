package land

import (
	"context"

	landiterrors "landit.dev/landit/internal/errors"
	"landit.dev/landit/internal/tui"
	"landit.dev/landit/internal/vcs"
)

// SyncGuard brings the local target up to date with the remote and
// refuses to continue when the local target carries commits the remote
// does not have. It runs strictly before any content mutation.
type SyncGuard struct {
	Backend vcs.Backend
	Splog   *tui.Splog
}

// Run checks out the target, pulls fast-forward-only and verifies the
// local target is not ahead of the remote. A pull that finds no remote
// changes is success, not an error.
func (g *SyncGuard) Run(ctx context.Context, req *Request) error {
	if err := g.Backend.Checkout(ctx, req.Target); err != nil {
		return err
	}

	result, err := g.Backend.Pull(ctx, req.Remote, req.Target, true)
	if err != nil {
		return err
	}
	switch result {
	case vcs.PullDone:
		g.Splog.Debug("Updated %s from %s", req.Target, req.Remote)
	case vcs.PullUnneeded:
		g.Splog.Debug("%s is up to date with %s", req.Target, req.Remote)
	}

	ahead, err := g.Backend.DetectLocalAheadOfRemote(ctx, req.Target, req.Remote)
	if err != nil {
		return err
	}
	if len(ahead) > 0 {
		g.Splog.Warn("Local %s has %d commit(s) not present on %s:", req.Target, len(ahead), req.Remote)
		for _, commit := range ahead {
			g.Splog.Warn("  %s %s", commit.ShortHash(), commit.Subject)
		}
		return &landiterrors.DivergenceError{Target: req.Target, Remote: req.Remote}
	}
	return nil
}
