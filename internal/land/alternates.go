package land

import (
	"context"

	landiterrors "landit.dev/landit/internal/errors"
	"landit.dev/landit/internal/tui"
	"landit.dev/landit/internal/vcs"
)

// Alternate-fork choices presented before a squash collapse.
const (
	choiceKeep   = "keep: land without deleting the original ref"
	choiceRebase = "rebase: relocate the forks onto the landed ref"
	choiceAbort  = "abort: stop and resolve the forks manually"
)

// AlternateBranchHandler detects sibling histories that fork off partway
// through the landing ref and would be destroyed by a squash collapse. It
// only applies to backends whose branches can fork at arbitrary ancestor
// commits.
type AlternateBranchHandler struct {
	Backend  vcs.Backend
	Splog    *tui.Splog
	Prompter tui.Prompter
}

// Resolve computes the alternate forks for the landing range and, when
// any exist, asks the user how to proceed. The outcome is recorded on the
// session: KeepSource for "keep", ForksToRelocate for "rebase". "abort"
// and any invalid choice are fatal; there is no silent default.
func (h *AlternateBranchHandler) Resolve(ctx context.Context, req *Request, sess *Session) error {
	if !h.Backend.HasForkingBranches() {
		return nil
	}

	root, err := h.Backend.GetMergeBase(ctx, req.Source.Name, req.Target)
	if err != nil {
		return err
	}
	tip, err := h.Backend.ResolveCommit(ctx, req.Source.Name)
	if err != nil {
		return err
	}

	forks, err := h.Backend.ListForkedDescendants(ctx, root, tip)
	if err != nil {
		return err
	}
	if len(forks) == 0 {
		return nil
	}

	h.Splog.Warn("Landing %s with squash would orphan %d forked sibling(s):", req.Source.Name, len(forks))
	for _, fork := range forks {
		h.Splog.Warn("  %s %q at %s", fork.Ref.Kind, fork.Ref.Name, shortHash(fork.Tip))
	}

	choice, err := h.Prompter.Select("How should the forked siblings be handled?",
		[]string{choiceKeep, choiceRebase, choiceAbort})
	if err != nil {
		return &landiterrors.UserAbortError{Prompt: "alternate fork handling"}
	}

	switch choice {
	case choiceKeep:
		sess.KeepSource = true
		h.Splog.Info("Keeping %s so the forks stay attached to it", req.Source.Name)
		return nil
	case choiceRebase:
		sess.ForksToRelocate = forks
		return nil
	case choiceAbort:
		for _, fork := range forks {
			h.Splog.Info("fork: %s %q (tip %s)", fork.Ref.Kind, fork.Ref.Name, fork.Tip)
		}
		return &landiterrors.UserAbortError{Prompt: "alternate fork handling"}
	default:
		return &landiterrors.UserAbortError{Prompt: "invalid choice " + choice}
	}
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
