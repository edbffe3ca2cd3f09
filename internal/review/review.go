// Package review defines the review-system contract consumed by the land
// engine: revision lookup, commit message construction, build status and
// revision finalization. The github subset of this package implements the
// contract against pull requests.
package review

import "context"

// RevisionStatus is the review state of a revision.
type RevisionStatus int

const (
	// StatusAccepted means the revision has been approved for landing
	StatusAccepted RevisionStatus = iota
	// StatusChangesPlanned means the reviewer requested changes
	StatusChangesPlanned
	// StatusOther covers every remaining review state
	StatusOther
)

func (s RevisionStatus) String() string {
	switch s {
	case StatusAccepted:
		return "accepted"
	case StatusChangesPlanned:
		return "changes planned"
	default:
		return "needs review"
	}
}

// RevisionRecord is externally-sourced review metadata, fetched once per
// run and treated as read-only.
type RevisionRecord struct {
	ID     string
	Title  string
	Status RevisionStatus
	Author string
	// DiffID identifies the diff whose builds gate the land.
	DiffID string
}

// BuildState is the observed state of a build.
type BuildState int

const (
	// BuildPassed means the build succeeded
	BuildPassed BuildState = iota
	// BuildBuilding means the build is still running
	BuildBuilding
	// BuildFailed means the build failed
	BuildFailed
)

func (s BuildState) String() string {
	switch s {
	case BuildPassed:
		return "passed"
	case BuildBuilding:
		return "building"
	default:
		return "failed"
	}
}

// BuildStatus is the observed state of one build plan for a diff.
type BuildStatus struct {
	Plan  string
	State BuildState
}

// Complete reports whether the build has finished.
func (b BuildStatus) Complete() bool {
	return b.State != BuildBuilding
}

// Client is the review-system contract consumed by the land engine.
type Client interface {
	// ResolveRevisionForRef returns every unresolved revision associated
	// with the source ref; zero or multiple results are handled by the
	// caller.
	ResolveRevisionForRef(ctx context.Context, ref string) ([]RevisionRecord, error)
	// GetRevision fetches a revision by explicit id.
	GetRevision(ctx context.Context, id string) (*RevisionRecord, error)
	// BuildCommitMessage constructs the final commit message for a revision.
	BuildCommitMessage(ctx context.Context, revisionID string) (string, error)
	// QueryBuildStatus returns the build states associated with a diff.
	QueryBuildStatus(ctx context.Context, diffID string) ([]BuildStatus, error)
	// FinalizeRevision marks the revision as landed.
	FinalizeRevision(ctx context.Context, revisionID string) error
	// QueryOpenDependencies returns revisions this one depends on that
	// have not landed yet.
	QueryOpenDependencies(ctx context.Context, revisionID string) ([]RevisionRecord, error)
}
