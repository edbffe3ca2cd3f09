package land

import (
	"context"

	landiterrors "landit.dev/landit/internal/errors"
	"landit.dev/landit/internal/vcs"
)

// maxUpstreamDepth bounds recursive tracking-ref resolution so a config
// cycle cannot loop forever.
const maxUpstreamDepth = 10

// ResolveInput carries everything ref resolution considers: explicit
// input, flags and configured defaults.
type ResolveInput struct {
	// Args are the explicit source ref arguments (0 or 1 values).
	Args []string
	// Onto is the --onto flag value, or "".
	Onto string
	// Remote is the --remote flag value, or "".
	Remote string
	// RevisionID is the --revision flag value, or "".
	RevisionID string
	// DefaultOnto is the configured default landing target, or "".
	DefaultOnto string
	// DefaultRemote is the configured default remote, or "".
	DefaultRemote string

	Flags Flags
}

// ResolveRequest determines source ref, target ref and remote from
// explicit input, tracking relationships, configuration and backend
// conventions, and validates the combination. Target resolution order:
// flag > recursively-resolved upstream > mirror fetch ref > configured
// default > convention default.
func ResolveRequest(ctx context.Context, backend vcs.Backend, in ResolveInput) (*Request, error) {
	source, err := resolveSource(ctx, backend, in)
	if err != nil {
		return nil, err
	}

	target, remoteHint, err := resolveTarget(ctx, backend, in, source)
	if err != nil {
		return nil, err
	}

	remote, err := resolveRemote(ctx, backend, in, target, remoteHint)
	if err != nil {
		return nil, err
	}

	req := &Request{
		Source:     source,
		Target:     target,
		Remote:     remote,
		Flags:      in.Flags,
		RevisionID: in.RevisionID,
	}

	if err := validateRequest(ctx, backend, req); err != nil {
		return nil, err
	}
	return req, nil
}

func resolveSource(ctx context.Context, backend vcs.Backend, in ResolveInput) (vcs.Ref, error) {
	if len(in.Args) > 1 {
		return vcs.Ref{}, landiterrors.NewConfigurationError(
			"exactly one source ref may be landed, got %d", len(in.Args))
	}

	if len(in.Args) == 1 {
		name := in.Args[0]
		exists, err := backend.RefExists(ctx, name)
		if err != nil {
			return vcs.Ref{}, err
		}
		if !exists {
			return vcs.Ref{}, landiterrors.NewConfigurationError("ref %q does not exist", name)
		}
		bookmark, err := backend.IsBookmarkLike(ctx, name)
		if err != nil {
			return vcs.Ref{}, err
		}
		kind := vcs.KindBranch
		if bookmark {
			kind = vcs.KindBookmark
		}
		return vcs.Ref{Name: name, Kind: kind}, nil
	}

	current, err := backend.GetCurrentRef(ctx)
	if err != nil {
		return vcs.Ref{}, landiterrors.NewConfigurationError(
			"unable to determine the source ref from the current checkout: %v", err)
	}
	return current, nil
}

// resolveTarget returns the target ref plus a remote hint discovered while
// walking the source's tracking chain.
func resolveTarget(ctx context.Context, backend vcs.Backend, in ResolveInput, source vcs.Ref) (string, string, error) {
	if in.Onto != "" {
		return in.Onto, "", nil
	}

	// Follow local tracking relationships until they reach a ref that
	// tracks a real remote.
	cur := source.Name
	for depth := 0; depth < maxUpstreamDepth; depth++ {
		upstream, err := backend.GetUpstream(ctx, cur)
		if err != nil {
			return "", "", err
		}
		if upstream == nil {
			break
		}
		if upstream.Remote == "" || upstream.Remote == "." {
			cur = upstream.Ref
			continue
		}
		return upstream.Ref, upstream.Remote, nil
	}

	// A repository mirroring a centralized system lands onto its fetch
	// ref, ignoring the generic defaults.
	mirror, err := backend.MirrorFetchRef(ctx)
	if err != nil {
		return "", "", err
	}
	if mirror != "" {
		return mirror, "", nil
	}

	if in.DefaultOnto != "" {
		return in.DefaultOnto, "", nil
	}
	return backend.DefaultTargetRef(), "", nil
}

func resolveRemote(ctx context.Context, backend vcs.Backend, in ResolveInput, target, remoteHint string) (string, error) {
	if in.Remote != "" {
		return in.Remote, nil
	}

	// Remote implied by the resolved target's own tracking ref.
	upstream, err := backend.GetUpstream(ctx, target)
	if err != nil {
		return "", err
	}
	if upstream != nil && upstream.Remote != "" && upstream.Remote != "." {
		return upstream.Remote, nil
	}

	if remoteHint != "" {
		return remoteHint, nil
	}
	if in.DefaultRemote != "" {
		return in.DefaultRemote, nil
	}
	return backend.DefaultRemote(), nil
}

func validateRequest(ctx context.Context, backend vcs.Backend, req *Request) error {
	if req.Source.Name == req.Target {
		return landiterrors.NewValidationError(
			"source and target are both %q; there is nothing to land", req.Target)
	}

	// Backends with bookmark refs require homogeneous kinds: a bookmark
	// lands onto a bookmark, a branch onto a branch.
	if backend.SupportsBookmarks() {
		targetBookmark, err := backend.IsBookmarkLike(ctx, req.Target)
		if err != nil {
			return err
		}
		sourceBookmark := req.Source.Kind == vcs.KindBookmark
		targetExists, err := backend.RefExists(ctx, req.Target)
		if err != nil {
			return err
		}
		if targetExists && sourceBookmark != targetBookmark {
			return landiterrors.NewValidationError(
				"cannot land %s %q onto %s %q: ref kinds must match",
				req.Source.Kind, req.Source.Name, kindName(targetBookmark), req.Target)
		}
	}
	return nil
}

func kindName(bookmark bool) string {
	if bookmark {
		return "bookmark"
	}
	return "branch"
}
