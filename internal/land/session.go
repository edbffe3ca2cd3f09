package land

import "landit.dev/landit/internal/vcs"

// Stage tracks which mutating step of the pipeline has executed. It is
// consulted only to decide what to undo on failure.
type Stage int

const (
	// StageInit means no mutation has happened yet
	StageInit Stage = iota
	// StageRebased means the source was rebased onto the target tip
	StageRebased
	// StageCollapsed means the squash collapse or merge has been applied
	StageCollapsed
	// StageCommitted means the land commit exists locally
	StageCommitted
	// StagePushed means the target was pushed; the pipeline succeeded
	StagePushed
	// StageRolledBack means a failure was compensated
	StageRolledBack
)

// Session is the small mutable companion of the immutable Request: the
// rollback snapshot plus pipeline progress.
type Session struct {
	WorkingCopy WorkingCopyState
	Stage       Stage

	// CollapseCommitted is true when the backend's collapse already
	// created the final changeset, so the commit step must be skipped.
	CollapseCommitted bool

	// KeepSource is set when alternate-fork handling chose to preserve
	// the source ref instead of deleting it after the land.
	KeepSource bool

	// ForksToRelocate are alternate forks to rebase onto the landed ref.
	ForksToRelocate []vcs.Fork
}

// NewSession creates a session with the given rollback snapshot.
func NewSession(workingCopy WorkingCopyState) *Session {
	return &Session{WorkingCopy: workingCopy, Stage: StageInit}
}

// Mutated reports whether any mutating step has run.
func (s *Session) Mutated() bool {
	return s.Stage != StageInit
}
