package land

import (
	"context"
	"fmt"

	"landit.dev/landit/internal/journal"
	"landit.dev/landit/internal/tui"
	"landit.dev/landit/internal/vcs"
)

// CleanupManager deletes the landed source ref and restores the original
// checkout. Before deleting anything it captures the tip commit, journals
// it, and prints the one-line command that would bring the ref back.
type CleanupManager struct {
	Backend vcs.Backend
	Splog   *tui.Splog
	Journal *journal.Journal
}

// Run performs post-land cleanup. The source ref survives when --keep-branch
// was passed, when the alternate-fork prompt chose to keep it, or when it is
// the target itself. Remote deletion is opt-in and capability gated.
func (m *CleanupManager) Run(ctx context.Context, req *Request, sess *Session) error {
	defer m.restoreCheckout(ctx, req, sess)

	if req.Flags.Keep || sess.KeepSource || req.Source.Name == req.Target {
		m.Splog.Debug("Keeping %s after landing", req.Source.Name)
		return nil
	}

	tip, err := m.Backend.ResolveCommit(ctx, req.Source.Name)
	if err != nil {
		m.Splog.Warn("Could not resolve %s before deletion, leaving it in place: %v", req.Source.Name, err)
		return nil
	}

	m.Splog.Tip("Recover the deleted ref with: %s", m.recoveryCommand(req.Source, tip))
	m.journalDeletion(req.Source, tip)

	if err := m.Backend.DeleteRef(ctx, req.Source); err != nil {
		m.Splog.Warn("Failed to delete %s: %v", req.Source.Name, err)
		return nil
	}
	m.Splog.Info("Deleted %s (was %s)", tui.ColorRefName(req.Source.Name), shortHash(tip))

	if req.Flags.DeleteRemote {
		if !m.Backend.SupportsRemoteRefDeletion(req.Source.Kind) {
			m.Splog.Warn("The %s backend cannot delete remote %ss; skipping remote cleanup",
				m.Backend.Name(), req.Source.Kind)
			return nil
		}
		if err := m.Backend.DeleteRemoteRef(ctx, req.Source, req.Remote); err != nil {
			m.Splog.Warn("Failed to delete %s on %s: %v", req.Source.Name, req.Remote, err)
			return nil
		}
		m.Splog.Info("Deleted %s on %s", tui.ColorRefName(req.Source.Name), req.Remote)
	}
	return nil
}

// restoreCheckout returns to the ref that was checked out when the land
// started, unless it was the ref that just got deleted. In that case the
// target is the natural place to leave the user.
func (m *CleanupManager) restoreCheckout(ctx context.Context, req *Request, sess *Session) {
	original := sess.WorkingCopy.Ref.Name
	deleted := !req.Flags.Keep && !sess.KeepSource && original == req.Source.Name && req.Source.Name != req.Target
	if deleted {
		original = req.Target
	}
	if err := m.Backend.Checkout(ctx, original); err != nil {
		m.Splog.Warn("Failed to restore checkout of %s: %v", original, err)
	}
}

func (m *CleanupManager) recoveryCommand(ref vcs.Ref, tip string) string {
	if ref.Kind == vcs.KindBookmark {
		return fmt.Sprintf("%s bookmark %s -r %s", m.Backend.Name(), ref.Name, tip)
	}
	return fmt.Sprintf("%s branch %s %s", m.Backend.Name(), ref.Name, tip)
}

func (m *CleanupManager) journalDeletion(ref vcs.Ref, tip string) {
	if m.Journal == nil {
		return
	}
	if err := m.Journal.Record(journal.Entry{
		Ref:     ref.Name,
		Commit:  tip,
		Action:  "deleted after landing",
		Restore: m.recoveryCommand(ref, tip),
	}); err != nil {
		m.Splog.Debug("journal write failed: %v", err)
	}
}
