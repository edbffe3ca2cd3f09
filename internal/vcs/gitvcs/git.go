// Package gitvcs implements the vcs.Backend contract on top of git.
// Mutating operations shell out to the git binary; a handful of read-only
// lookups go through go-git against the open repository.
package gitvcs

import (
	"context"
	"fmt"
	"os"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"landit.dev/landit/internal/vcs"
)

// Backend is the git implementation of vcs.Backend. git has mutable,
// rebase-friendly history and branches that are plain refs, so collapsing
// a branch never destroys sibling refs.
type Backend struct {
	runner *vcs.CommandRunner
	repo   *gogit.Repository
}

var _ vcs.Backend = (*Backend)(nil)

// Open opens the git repository rooted at dir.
func Open(dir string) (*Backend, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}
	return &Backend{
		runner: vcs.NewCommandRunner("git", dir),
		repo:   repo,
	}, nil
}

// Name returns "git".
func (b *Backend) Name() string { return "git" }

// SupportsRebase reports that git always supports rebase.
func (b *Backend) SupportsRebase() bool { return true }

// SupportsBookmarks reports that git has no bookmark-like refs.
func (b *Backend) SupportsBookmarks() bool { return false }

// HasForkingBranches is false: git branches are independent refs, so a
// squash-collapse of one branch leaves siblings untouched.
func (b *Backend) HasForkingBranches() bool { return false }

// HasImmutableHistory is false: git history is freely rewritten.
func (b *Backend) HasImmutableHistory() bool { return false }

// SupportsNoFFMerge reports whether strict merges are possible. A
// repository mirroring a centralized system must keep linear history.
func (b *Backend) SupportsNoFFMerge() bool {
	ref, _ := b.MirrorFetchRef(context.Background())
	return ref == ""
}

// SupportsRemoteRefDeletion reports that remote branches can be deleted.
func (b *Backend) SupportsRemoteRefDeletion(kind vcs.RefKind) bool {
	return kind == vcs.KindBranch
}

// DefaultTargetRef returns the conventional integration branch.
func (b *Backend) DefaultTargetRef() string { return "master" }

// DefaultRemote returns the conventional remote name.
func (b *Backend) DefaultRemote() string { return "origin" }

// MirrorFetchRef returns the fetch ref configured for a subversion bridge,
// or "" when the repository is not a mirror.
func (b *Backend) MirrorFetchRef(ctx context.Context) (string, error) {
	out, err := b.runner.Run(ctx, "config", "--get", "svn-remote.svn.fetch")
	if err != nil {
		// Unset config exits 1; that just means no mirror.
		if vcs.ExitCode(err) == 1 {
			return "", nil
		}
		return "", err
	}
	// Value is "<svn path>:<git ref>", e.g. "trunk:refs/remotes/trunk".
	if idx := strings.LastIndex(out, ":"); idx >= 0 {
		return out[idx+1:], nil
	}
	return out, nil
}

// RemoteURL returns the fetch URL configured for the named remote.
func (b *Backend) RemoteURL(ctx context.Context, remote string) (string, error) {
	return b.runner.Run(ctx, "remote", "get-url", remote)
}

// GetCurrentRef returns the checked-out branch.
func (b *Backend) GetCurrentRef(ctx context.Context) (vcs.Ref, error) {
	out, err := b.runner.Run(ctx, "symbolic-ref", "--short", "HEAD")
	if err != nil {
		return vcs.Ref{}, fmt.Errorf("not on a branch (detached HEAD?): %w", err)
	}
	return vcs.Ref{Name: out, Kind: vcs.KindBranch}, nil
}

// RefExists checks whether a local branch exists, via go-git.
func (b *Backend) RefExists(_ context.Context, name string) (bool, error) {
	_, err := b.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	if err == plumbing.ErrReferenceNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// IsBookmarkLike always reports false for git refs.
func (b *Backend) IsBookmarkLike(context.Context, string) (bool, error) {
	return false, nil
}

// ResolveCommit resolves any revision expression to a commit hash.
func (b *Backend) ResolveCommit(ctx context.Context, ref string) (string, error) {
	return b.runner.Run(ctx, "rev-parse", "--verify", ref+"^{commit}")
}

// GetUpstream returns the configured upstream of a branch, or nil when the
// branch has no tracking relationship.
func (b *Backend) GetUpstream(ctx context.Context, ref string) (*vcs.UpstreamInfo, error) {
	mergeRef, err := b.runner.Run(ctx, "config", "--get", "branch."+ref+".merge")
	if err != nil {
		if vcs.ExitCode(err) == 1 {
			return nil, nil
		}
		return nil, err
	}
	remote, err := b.runner.Run(ctx, "config", "--get", "branch."+ref+".remote")
	if err != nil {
		if vcs.ExitCode(err) == 1 {
			remote = ""
		} else {
			return nil, err
		}
	}
	return &vcs.UpstreamInfo{
		Ref:    strings.TrimPrefix(mergeRef, "refs/heads/"),
		Remote: remote,
	}, nil
}

// IsWorkingCopyClean reports whether there are uncommitted changes.
func (b *Backend) IsWorkingCopyClean(ctx context.Context) (bool, error) {
	out, err := b.runner.Run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out == "", nil
}

// GetMergeBase returns the common ancestor of two revisions.
func (b *Backend) GetMergeBase(ctx context.Context, a, c string) (string, error) {
	return b.runner.Run(ctx, "merge-base", a, c)
}

// IsAncestor reports whether ancestor is reachable from descendant.
func (b *Backend) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	_, err := b.runner.Run(ctx, "merge-base", "--is-ancestor", ancestor, descendant)
	if err != nil {
		if vcs.ExitCode(err) == 1 {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CommitsBetween lists commits reachable from tip but not from base,
// newest first.
func (b *Backend) CommitsBetween(ctx context.Context, base, tip string) ([]vcs.Commit, error) {
	lines, err := b.runner.RunLines(ctx, "log", "--format=%H%x09%s", base+".."+tip)
	if err != nil {
		return nil, err
	}
	commits := make([]vcs.Commit, 0, len(lines))
	for _, line := range lines {
		hash, subject, _ := strings.Cut(line, "\t")
		commits = append(commits, vcs.Commit{Hash: hash, Subject: subject})
	}
	return commits, nil
}

// DetectLocalAheadOfRemote lists commits on ref missing from remote/ref.
// The comparison is a direct commit-range diff against the tracking ref,
// which the preceding fetch has just updated.
func (b *Backend) DetectLocalAheadOfRemote(ctx context.Context, ref, remote string) ([]vcs.Commit, error) {
	remoteRef := remote + "/" + ref
	exists, err := b.remoteTrackingExists(ctx, remoteRef)
	if err != nil {
		return nil, err
	}
	if !exists {
		// Never-pushed target; nothing to compare against.
		return nil, nil
	}
	return b.CommitsBetween(ctx, remoteRef, ref)
}

func (b *Backend) remoteTrackingExists(_ context.Context, remoteRef string) (bool, error) {
	_, err := b.repo.Reference(plumbing.NewRemoteReferenceName(
		strings.SplitN(remoteRef, "/", 2)[0], strings.SplitN(remoteRef, "/", 2)[1]), true)
	if err == plumbing.ErrReferenceNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListForkedDescendants returns no forks: collapsing a git branch cannot
// destroy sibling refs.
func (b *Backend) ListForkedDescendants(context.Context, string, string) ([]vcs.Fork, error) {
	return nil, nil
}

// Checkout checks out the given ref.
func (b *Backend) Checkout(ctx context.Context, ref string) error {
	_, err := b.runner.Run(ctx, "checkout", ref)
	return err
}

// Pull fetches ref from remote and fast-forwards the checked-out branch.
// The caller has already checked out ref.
func (b *Backend) Pull(ctx context.Context, remote, ref string, fastForwardOnly bool) (vcs.PullResult, error) {
	if _, err := b.runner.Run(ctx, "fetch", remote, ref); err != nil {
		return vcs.PullUnneeded, err
	}

	before, err := b.ResolveCommit(ctx, "HEAD")
	if err != nil {
		return vcs.PullUnneeded, err
	}

	args := []string{"merge"}
	if fastForwardOnly {
		args = append(args, "--ff-only")
	}
	args = append(args, remote+"/"+ref)
	if _, err := b.runner.Run(ctx, args...); err != nil {
		return vcs.PullUnneeded, err
	}

	after, err := b.ResolveCommit(ctx, "HEAD")
	if err != nil {
		return vcs.PullUnneeded, err
	}
	if before == after {
		return vcs.PullUnneeded, nil
	}
	return vcs.PullDone, nil
}

// Rebase rebases source onto the tip of onto. On conflict the in-flight
// rebase is left in place for the caller to abort.
func (b *Backend) Rebase(ctx context.Context, source, onto string, _ vcs.RebaseOptions) (vcs.RebaseResult, error) {
	_, err := b.runner.Run(ctx, "rebase", onto, source)
	if err != nil {
		if b.isRebaseInProgress(ctx) {
			return vcs.RebaseConflict, nil
		}
		return vcs.RebaseConflict, err
	}
	return vcs.RebaseDone, nil
}

// AbortRebase aborts an in-flight rebase.
func (b *Backend) AbortRebase(ctx context.Context) error {
	_, err := b.runner.Run(ctx, "rebase", "--abort")
	return err
}

func (b *Backend) isRebaseInProgress(ctx context.Context) bool {
	gitDir, err := b.runner.Run(ctx, "rev-parse", "--git-dir")
	if err != nil {
		return false
	}
	if _, err := os.Stat(gitDir + "/rebase-merge"); err == nil {
		return true
	}
	if _, err := os.Stat(gitDir + "/rebase-apply"); err == nil {
		return true
	}
	return false
}

// CollapseOnto stages the entire source history as a single change on top
// of target. The commit with the final message happens separately, so
// Committed is always false for git. A squash merge never touches the
// source branch itself, so KeepOriginal is already satisfied.
func (b *Backend) CollapseOnto(ctx context.Context, source, target, _ string, _ vcs.CollapseOptions) (vcs.CollapseResult, error) {
	if err := b.Checkout(ctx, target); err != nil {
		return vcs.CollapseResult{}, err
	}
	if _, err := b.runner.Run(ctx, "merge", "--squash", source); err != nil {
		return vcs.CollapseResult{}, err
	}
	return vcs.CollapseResult{Committed: false}, nil
}

// MergeNoCommit performs a no-fast-forward merge of ref into the
// checked-out branch without committing. On conflict the working copy is
// left mid-merge.
func (b *Backend) MergeNoCommit(ctx context.Context, ref string) (vcs.MergeResult, error) {
	_, err := b.runner.Run(ctx, "merge", "--no-ff", "--no-commit", ref)
	if err != nil {
		if b.isMergeInProgress(ctx) {
			return vcs.MergeConflict, nil
		}
		return vcs.MergeConflict, err
	}
	return vcs.MergeStaged, nil
}

// AbortMerge aborts an in-flight merge.
func (b *Backend) AbortMerge(ctx context.Context) error {
	_, err := b.runner.Run(ctx, "merge", "--abort")
	return err
}

func (b *Backend) isMergeInProgress(ctx context.Context) bool {
	_, err := b.runner.Run(ctx, "rev-parse", "--verify", "--quiet", "MERGE_HEAD")
	return err == nil
}

// Commit commits staged changes with the given message.
func (b *Backend) Commit(ctx context.Context, message string) error {
	_, err := b.runner.RunWithInput(ctx, message, "commit", "-F", "-")
	return err
}

// DiscardWorkingCopy resets the working copy to HEAD, dropping staged
// squash or merge state.
func (b *Backend) DiscardWorkingCopy(ctx context.Context) error {
	if _, err := b.runner.Run(ctx, "reset", "--hard", "HEAD"); err != nil {
		return err
	}
	return nil
}

// Push publishes ref to remote.
func (b *Backend) Push(ctx context.Context, ref, remote string) error {
	_, err := b.runner.Run(ctx, "push", remote, ref+":"+ref)
	return err
}

// StripLastCommit discards the most recent commit on the checked-out ref.
func (b *Backend) StripLastCommit(ctx context.Context, ref string) error {
	if err := b.Checkout(ctx, ref); err != nil {
		return err
	}
	_, err := b.runner.Run(ctx, "reset", "--hard", "HEAD~1")
	return err
}

// DeleteRef deletes a local branch.
func (b *Backend) DeleteRef(ctx context.Context, ref vcs.Ref) error {
	_, err := b.runner.Run(ctx, "branch", "-D", ref.Name)
	return err
}

// DeleteRemoteRef deletes the branch's remote counterpart.
func (b *Backend) DeleteRemoteRef(ctx context.Context, ref vcs.Ref, remote string) error {
	_, err := b.runner.Run(ctx, "push", remote, "--delete", ref.Name)
	return err
}

// RelocateFork rebases a forked sibling onto the landed ref. git never
// reports forks, so this only exists to satisfy the contract.
func (b *Backend) RelocateFork(ctx context.Context, fork vcs.Fork, onto string) error {
	_, err := b.runner.Run(ctx, "rebase", "--onto", onto, fork.Base, fork.Ref.Name)
	return err
}
