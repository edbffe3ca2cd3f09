package land

import (
	landiterrors "landit.dev/landit/internal/errors"
	"landit.dev/landit/internal/vcs"
)

// SelectStrategy decides squash vs. strict merge. Squash is the default;
// backends with immutable history default to merge and require an
// explicit --squash to collapse anyway. The choice is validated against
// the backend's capabilities before any mutation.
func SelectStrategy(backend vcs.Backend, mergeFlag, squashFlag bool) (Strategy, error) {
	if mergeFlag && squashFlag {
		return 0, landiterrors.NewValidationError("--merge and --squash are mutually exclusive")
	}

	var strategy Strategy
	switch {
	case mergeFlag:
		strategy = StrategyMerge
	case backend.HasImmutableHistory() && !squashFlag:
		strategy = StrategyMerge
	default:
		strategy = StrategySquash
	}

	if strategy == StrategySquash && !backend.SupportsRebase() {
		return 0, landiterrors.NewPreconditionError(
			"squash landing requires rebase support, which the %s backend does not provide here; "+
				"use --merge instead", backend.Name())
	}
	if strategy == StrategyMerge && !backend.SupportsNoFFMerge() {
		return 0, &landiterrors.UnsupportedStrategyError{
			Strategy: "merge",
			Backend:  backend.Name(),
			Reason:   "history must stay linear",
		}
	}
	return strategy, nil
}
