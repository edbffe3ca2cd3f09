// Package land implements the land pipeline: resolving what to land and
// where, selecting a merge strategy, syncing the target, collapsing or
// merging the source, gating on review and build state, pushing, and
// cleaning up, with compensating rollback at every mutating stage.
package land

import "landit.dev/landit/internal/vcs"

// Strategy is the merge strategy used to land the source.
type Strategy int

const (
	// StrategySquash collapses the source history into one changeset
	StrategySquash Strategy = iota
	// StrategyMerge creates a no-fast-forward merge changeset
	StrategyMerge
)

func (s Strategy) String() string {
	if s == StrategyMerge {
		return "merge"
	}
	return "squash"
}

// Flags are the behavior switches of a land request.
type Flags struct {
	// Keep preserves the source ref after landing
	Keep bool
	// Hold stops after the commit, before pushing
	Hold bool
	// Preview prints what would land and stops before any mutation
	Preview bool
	// DeleteRemote also deletes the source ref's remote counterpart
	DeleteRemote bool
}

// Request is the fully resolved land request. It is immutable after
// resolution and threaded explicitly through each pipeline stage.
type Request struct {
	Source   vcs.Ref
	Target   string
	Remote   string
	Strategy Strategy
	Flags    Flags
	// RevisionID is the explicit revision override from --revision, or "".
	RevisionID string
}

// WorkingCopyState is the checked-out ref captured at invocation start.
// Rollback paths restore it; nothing else reads it.
type WorkingCopyState struct {
	Ref vcs.Ref
}
