// Package vcs defines the backend capability contract consumed by the land
// engine. Concrete backends live in the gitvcs and hgvcs subpackages; the
// engine itself only ever sees this interface, so backend-specific behavior
// is expressed through capability flags rather than type switches.
package vcs

import "context"

// RefKind distinguishes named branches from movable bookmarks.
type RefKind int

const (
	// KindBranch is a named branch ref
	KindBranch RefKind = iota
	// KindBookmark is a movable bookmark pointer
	KindBookmark
)

func (k RefKind) String() string {
	if k == KindBookmark {
		return "bookmark"
	}
	return "branch"
}

// Ref is a named ref together with its kind.
type Ref struct {
	Name string
	Kind RefKind
}

// Commit is a minimal commit descriptor used for previews, divergence
// reports and recovery instructions.
type Commit struct {
	Hash    string
	Subject string
}

// ShortHash returns an abbreviated commit hash for display.
func (c Commit) ShortHash() string {
	if len(c.Hash) > 12 {
		return c.Hash[:12]
	}
	return c.Hash
}

// Fork describes a sibling history that branched off partway through the
// landing ref's history. Collapsing the landing ref would orphan it.
type Fork struct {
	Ref  Ref
	Tip  string // head commit of the fork
	Base string // commit on the landing ref's history the fork branched from
}

// PullResult represents the result of a fast-forward-only pull.
type PullResult int

const (
	// PullDone indicates the target was fast-forwarded
	PullDone PullResult = iota
	// PullUnneeded indicates the remote had no new changes
	PullUnneeded
)

// RebaseResult represents the result of a rebase operation.
type RebaseResult int

const (
	// RebaseDone indicates the rebase completed
	RebaseDone RebaseResult = iota
	// RebaseConflict indicates the rebase stopped on conflicts
	RebaseConflict
)

// RebaseOptions control how a rebase is performed.
type RebaseOptions struct {
	// KeepOriginal leaves the original commits in place where the backend
	// supports it (hg --keep); ignored by backends that always preserve
	// the source ref until cleanup.
	KeepOriginal bool
}

// CollapseOptions control how a squash-collapse is performed.
type CollapseOptions struct {
	// KeepOriginal leaves the original source changesets in place on
	// backends whose collapse would otherwise strip them. Required when
	// sibling forks still descend from the source history.
	KeepOriginal bool
}

// MergeResult represents the result of a no-fast-forward merge.
type MergeResult int

const (
	// MergeStaged indicates the merge completed and is staged, uncommitted
	MergeStaged MergeResult = iota
	// MergeConflict indicates the working copy was left mid-merge
	MergeConflict
)

// CollapseResult reports how a squash-collapse concluded.
type CollapseResult struct {
	// Committed is true when the backend's collapse already created the
	// final changeset (and recorded the supplied message); false when the
	// collapse only staged changes and a separate commit must follow.
	Committed bool
}

// UpstreamInfo describes a ref's configured remote counterpart.
type UpstreamInfo struct {
	Ref    string // upstream ref name, e.g. "master"
	Remote string // remote name, e.g. "origin"
}

// Backend is the capability contract the land engine consumes. Mutating
// operations take a context and are modeled as atomic-or-failed; no
// partial retry happens inside the engine.
type Backend interface {
	// Name identifies the backend in messages ("git", "hg").
	Name() string

	// Capability flags. The engine branches on these instead of on
	// concrete backend types.
	SupportsRebase() bool
	SupportsBookmarks() bool
	HasForkingBranches() bool
	HasImmutableHistory() bool
	SupportsNoFFMerge() bool
	SupportsRemoteRefDeletion(kind RefKind) bool

	// Conventions used by ref resolution.
	DefaultTargetRef() string
	DefaultRemote() string
	// MirrorFetchRef returns the fetch ref of a mirrored foreign
	// centralized system (e.g. a subversion bridge), or "" when the
	// repository is not a mirror.
	MirrorFetchRef(ctx context.Context) (string, error)

	// Inspection.
	GetCurrentRef(ctx context.Context) (Ref, error)
	RefExists(ctx context.Context, name string) (bool, error)
	IsBookmarkLike(ctx context.Context, name string) (bool, error)
	ResolveCommit(ctx context.Context, ref string) (string, error)
	GetUpstream(ctx context.Context, ref string) (*UpstreamInfo, error)
	IsWorkingCopyClean(ctx context.Context) (bool, error)
	GetMergeBase(ctx context.Context, a, b string) (string, error)
	IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error)
	CommitsBetween(ctx context.Context, base, tip string) ([]Commit, error)
	// DetectLocalAheadOfRemote reports commits on the local ref that are
	// missing from its remote counterpart. Mechanics are backend-specific
	// (commit-range diff vs. phase/outgoing inspection).
	DetectLocalAheadOfRemote(ctx context.Context, ref, remote string) ([]Commit, error)
	// ListForkedDescendants computes commits descending from root that are
	// neither ancestors nor descendants of tip, grouped by the ref that
	// points at them. Only meaningful when HasForkingBranches is true.
	ListForkedDescendants(ctx context.Context, root, tip string) ([]Fork, error)

	// Mutation.
	Checkout(ctx context.Context, ref string) error
	Pull(ctx context.Context, remote, ref string, fastForwardOnly bool) (PullResult, error)
	Rebase(ctx context.Context, source, onto string, opts RebaseOptions) (RebaseResult, error)
	AbortRebase(ctx context.Context) error
	// CollapseOnto represents the source history (the commits on source
	// that target does not have, and nothing else) as a single changeset
	// on top of target. Backends that commit as part of the collapse
	// record message and return Committed=true; others leave the collapse
	// staged for a later Commit call.
	CollapseOnto(ctx context.Context, source, target, message string, opts CollapseOptions) (CollapseResult, error)
	MergeNoCommit(ctx context.Context, ref string) (MergeResult, error)
	AbortMerge(ctx context.Context) error
	Commit(ctx context.Context, message string) error
	// DiscardWorkingCopy throws away uncommitted working copy changes,
	// including a staged squash or merge.
	DiscardWorkingCopy(ctx context.Context) error
	Push(ctx context.Context, ref, remote string) error
	// StripLastCommit removes the most recent commit on ref, used to
	// compensate a failed push.
	StripLastCommit(ctx context.Context, ref string) error
	DeleteRef(ctx context.Context, ref Ref) error
	DeleteRemoteRef(ctx context.Context, ref Ref, remote string) error
	// RelocateFork rebases a forked sibling onto the landed ref.
	RelocateFork(ctx context.Context, fork Fork, onto string) error
}
