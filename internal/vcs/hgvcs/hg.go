// Package hgvcs implements the vcs.Backend contract on top of mercurial.
// Mercurial changesets are treated as immutable once public, branches can
// fork at arbitrary ancestor commits, and bookmarks act as movable refs.
package hgvcs

import (
	"context"
	"fmt"
	"strings"

	"landit.dev/landit/internal/vcs"
)

// Backend is the mercurial implementation of vcs.Backend.
type Backend struct {
	runner    *vcs.CommandRunner
	rebaseExt bool
	stripExt  bool
}

var _ vcs.Backend = (*Backend)(nil)

// Open opens the mercurial repository rooted at dir and probes for the
// rebase and strip extensions once.
func Open(dir string) (*Backend, error) {
	runner := vcs.NewCommandRunner("hg", dir)
	if _, err := runner.Run(context.Background(), "root"); err != nil {
		return nil, fmt.Errorf("not a mercurial repository: %w", err)
	}
	b := &Backend{runner: runner}
	b.rebaseExt = extensionEnabled(runner, "rebase")
	b.stripExt = extensionEnabled(runner, "strip") || extensionEnabled(runner, "mq")
	return b, nil
}

func extensionEnabled(runner *vcs.CommandRunner, name string) bool {
	out, err := runner.Run(context.Background(), "showconfig", "extensions."+name)
	return err == nil && out != "!"
}

// Name returns "hg".
func (b *Backend) Name() string { return "hg" }

// SupportsRebase reports whether the rebase extension is enabled.
func (b *Backend) SupportsRebase() bool { return b.rebaseExt }

// SupportsBookmarks reports that mercurial has bookmark refs.
func (b *Backend) SupportsBookmarks() bool { return true }

// HasForkingBranches is true: mercurial branches can fork at arbitrary
// ancestor changesets, so collapsing a branch can orphan siblings.
func (b *Backend) HasForkingBranches() bool { return true }

// HasImmutableHistory is true: published changesets are not rewritten,
// which favors merge over squash by default.
func (b *Backend) HasImmutableHistory() bool { return true }

// SupportsNoFFMerge reports that mercurial merges always create a merge
// changeset.
func (b *Backend) SupportsNoFFMerge() bool { return true }

// SupportsRemoteRefDeletion reports that only bookmarks can be deleted on
// the remote. Branches are closed as a side effect of the land commit.
func (b *Backend) SupportsRemoteRefDeletion(kind vcs.RefKind) bool {
	return kind == vcs.KindBookmark
}

// DefaultTargetRef returns the conventional integration branch.
func (b *Backend) DefaultTargetRef() string { return "default" }

// DefaultRemote returns the conventional remote path alias.
func (b *Backend) DefaultRemote() string { return "default" }

// MirrorFetchRef reports that no centralized mirror is modeled for hg.
func (b *Backend) MirrorFetchRef(context.Context) (string, error) {
	return "", nil
}

// GetCurrentRef returns the active bookmark if one is active, otherwise
// the branch of the working copy parent.
func (b *Backend) GetCurrentRef(ctx context.Context) (vcs.Ref, error) {
	bookmark, err := b.runner.Run(ctx, "log", "-r", ".", "-T", "{activebookmark}")
	if err != nil {
		return vcs.Ref{}, err
	}
	if bookmark != "" {
		return vcs.Ref{Name: bookmark, Kind: vcs.KindBookmark}, nil
	}
	branch, err := b.runner.Run(ctx, "branch")
	if err != nil {
		return vcs.Ref{}, err
	}
	return vcs.Ref{Name: branch, Kind: vcs.KindBranch}, nil
}

// RefExists checks whether a bookmark or branch with the given name exists.
func (b *Backend) RefExists(ctx context.Context, name string) (bool, error) {
	if ok, err := b.IsBookmarkLike(ctx, name); err != nil {
		return false, err
	} else if ok {
		return true, nil
	}
	branches, err := b.runner.RunLines(ctx, "branches", "-T", "{branch}\n")
	if err != nil {
		return false, err
	}
	for _, branch := range branches {
		if branch == name {
			return true, nil
		}
	}
	return false, nil
}

// IsBookmarkLike reports whether name is a bookmark.
func (b *Backend) IsBookmarkLike(ctx context.Context, name string) (bool, error) {
	bookmarks, err := b.runner.RunLines(ctx, "bookmarks", "-T", "{bookmark}\n")
	if err != nil {
		return false, err
	}
	for _, bookmark := range bookmarks {
		if bookmark == name {
			return true, nil
		}
	}
	return false, nil
}

// ResolveCommit resolves a revision expression to a changeset node.
func (b *Backend) ResolveCommit(ctx context.Context, ref string) (string, error) {
	return b.runner.Run(ctx, "log", "-r", ref, "-T", "{node}")
}

// GetUpstream reports no tracking relationship: mercurial refs carry none.
func (b *Backend) GetUpstream(context.Context, string) (*vcs.UpstreamInfo, error) {
	return nil, nil
}

// IsWorkingCopyClean reports whether tracked files have local changes.
func (b *Backend) IsWorkingCopyClean(ctx context.Context) (bool, error) {
	out, err := b.runner.Run(ctx, "status", "--modified", "--added", "--removed", "--deleted")
	if err != nil {
		return false, err
	}
	return out == "", nil
}

// GetMergeBase returns the greatest common ancestor of two revisions.
func (b *Backend) GetMergeBase(ctx context.Context, a, c string) (string, error) {
	return b.runner.Run(ctx, "log", "-r", fmt.Sprintf("ancestor(%s, %s)", a, c), "-T", "{node}")
}

// IsAncestor reports whether ancestor is reachable from descendant.
func (b *Backend) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	out, err := b.runner.Run(ctx, "log", "-r",
		fmt.Sprintf("ancestors(%s) and (%s)", descendant, ancestor), "-T", "{node}")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// CommitsBetween lists changesets on tip's history that base does not
// have, newest first.
func (b *Backend) CommitsBetween(ctx context.Context, base, tip string) ([]vcs.Commit, error) {
	lines, err := b.runner.RunLines(ctx, "log", "-r",
		fmt.Sprintf("reverse(only(%s, %s))", tip, base),
		"-T", "{node}\t{desc|firstline}\n")
	if err != nil {
		return nil, err
	}
	commits := make([]vcs.Commit, 0, len(lines))
	for _, line := range lines {
		node, subject, _ := strings.Cut(line, "\t")
		commits = append(commits, vcs.Commit{Hash: node, Subject: subject})
	}
	return commits, nil
}

// DetectLocalAheadOfRemote inspects changeset phases: any non-public
// ancestor of ref has not been pushed to the remote yet.
func (b *Backend) DetectLocalAheadOfRemote(ctx context.Context, ref, _ string) ([]vcs.Commit, error) {
	lines, err := b.runner.RunLines(ctx, "log", "-r",
		fmt.Sprintf("ancestors(%s) and not public()", ref),
		"-T", "{node}\t{desc|firstline}\n")
	if err != nil {
		return nil, err
	}
	commits := make([]vcs.Commit, 0, len(lines))
	for _, line := range lines {
		node, subject, _ := strings.Cut(line, "\t")
		commits = append(commits, vcs.Commit{Hash: node, Subject: subject})
	}
	return commits, nil
}

// ListForkedDescendants computes the heads of histories that descend from
// root but are neither ancestors nor descendants of tip. These are the
// siblings a collapse of root..tip would orphan.
func (b *Backend) ListForkedDescendants(ctx context.Context, root, tip string) ([]vcs.Fork, error) {
	lines, err := b.runner.RunLines(ctx, "log", "-r",
		fmt.Sprintf("heads(descendants(%s) - ancestors(%s) - descendants(%s))", root, tip, tip),
		"-T", "{node}\t{branch}\t{bookmarks}\n")
	if err != nil {
		return nil, err
	}
	forks := make([]vcs.Fork, 0, len(lines))
	for _, line := range lines {
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) < 2 {
			continue
		}
		node := fields[0]
		ref := vcs.Ref{Name: fields[1], Kind: vcs.KindBranch}
		if len(fields) == 3 && fields[2] != "" {
			ref = vcs.Ref{Name: strings.Fields(fields[2])[0], Kind: vcs.KindBookmark}
		}
		base, err := b.GetMergeBase(ctx, node, tip)
		if err != nil {
			return nil, err
		}
		forks = append(forks, vcs.Fork{Ref: ref, Tip: node, Base: base})
	}
	return forks, nil
}

// Checkout updates the working copy to ref.
func (b *Backend) Checkout(ctx context.Context, ref string) error {
	_, err := b.runner.Run(ctx, "update", ref)
	return err
}

// Pull pulls from remote. "no changes found" is success, not an error.
func (b *Backend) Pull(ctx context.Context, remote, ref string, _ bool) (vcs.PullResult, error) {
	args := []string{"pull", remote}
	if ok, _ := b.IsBookmarkLike(ctx, ref); ok {
		args = append(args, "-B", ref)
	}
	out, err := b.runner.Run(ctx, args...)
	if err != nil {
		return vcs.PullUnneeded, err
	}
	if strings.Contains(out, "no changes found") {
		return vcs.PullUnneeded, nil
	}
	// Move the working copy to the possibly advanced ref.
	if err := b.Checkout(ctx, ref); err != nil {
		return vcs.PullDone, err
	}
	return vcs.PullDone, nil
}

// Rebase relocates the source history onto the tip of onto. The rebase
// set is restricted to the source line itself; sibling forks that branched
// off partway through must stay where they are.
func (b *Backend) Rebase(ctx context.Context, source, onto string, opts vcs.RebaseOptions) (vcs.RebaseResult, error) {
	args := []string{"rebase", "-r", fmt.Sprintf("only(%s, %s)", source, onto), "-d", onto}
	if opts.KeepOriginal {
		args = append(args, "--keep")
	}
	_, err := b.runner.Run(ctx, args...)
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
	out, err := b.runner.Run(ctx, "resolve", "--list")
	return err == nil && out != ""
}

// CollapseOnto rebases the source history onto target collapsed into a
// single changeset carrying message. The collapse commits, so Committed
// is true and the later commit step is skipped. The rebase set is
// restricted to only(source, target) so sibling forks are never folded
// into the collapsed changeset; with KeepOriginal the source changesets
// survive, which forks that still descend from them require.
func (b *Backend) CollapseOnto(ctx context.Context, source, target, message string, opts vcs.CollapseOptions) (vcs.CollapseResult, error) {
	args := []string{
		"rebase", "-r", fmt.Sprintf("only(%s, %s)", source, target),
		"-d", target, "--collapse", "-m", message,
	}
	if opts.KeepOriginal {
		args = append(args, "--keep")
	}
	_, err := b.runner.Run(ctx, args...)
	if err != nil {
		return vcs.CollapseResult{}, err
	}
	// A landed bookmark target must move to the collapsed changeset.
	if ok, _ := b.IsBookmarkLike(ctx, target); ok {
		if _, err := b.runner.Run(ctx, "bookmark", "--force", target, "-r", "tip"); err != nil {
			return vcs.CollapseResult{}, err
		}
	}
	if err := b.Checkout(ctx, target); err != nil {
		return vcs.CollapseResult{}, err
	}
	return vcs.CollapseResult{Committed: true}, nil
}

// MergeNoCommit merges ref into the working copy without committing,
// which is mercurial's native merge behavior.
func (b *Backend) MergeNoCommit(ctx context.Context, ref string) (vcs.MergeResult, error) {
	_, err := b.runner.Run(ctx, "merge", "--tool", ":merge", ref)
	if err != nil {
		unresolved, _ := b.runner.Run(ctx, "resolve", "--list")
		if strings.Contains(unresolved, "U ") || unresolved != "" {
			return vcs.MergeConflict, nil
		}
		return vcs.MergeConflict, err
	}
	return vcs.MergeStaged, nil
}

// AbortMerge discards the uncommitted merge.
func (b *Backend) AbortMerge(ctx context.Context) error {
	_, err := b.runner.Run(ctx, "update", "--clean", ".")
	return err
}

// Commit commits the working copy with the given message.
func (b *Backend) Commit(ctx context.Context, message string) error {
	_, err := b.runner.Run(ctx, "commit", "-m", message)
	return err
}

// DiscardWorkingCopy drops uncommitted changes, including an in-flight
// merge.
func (b *Backend) DiscardWorkingCopy(ctx context.Context) error {
	_, err := b.runner.Run(ctx, "update", "--clean", ".")
	return err
}

// Push publishes ref to remote. Bookmarks are pushed with -B so the
// bookmark itself propagates.
func (b *Backend) Push(ctx context.Context, ref, remote string) error {
	args := []string{"push", "-r", ref}
	if ok, _ := b.IsBookmarkLike(ctx, ref); ok {
		args = []string{"push", "-B", ref}
	}
	args = append(args, remote)
	_, err := b.runner.Run(ctx, args...)
	if err != nil {
		// "no changes found" exits 1 but means the push had nothing to do.
		if vcs.ExitCode(err) == 1 && strings.Contains(err.Error(), "no changes found") {
			return nil
		}
		return err
	}
	return nil
}

// StripLastCommit strips the working copy parent changeset. When neither
// the strip nor the mq extension is enabled, the bundled strip extension
// is enabled for this one invocation so push-failure compensation still
// works on a stock install.
func (b *Backend) StripLastCommit(ctx context.Context, ref string) error {
	if err := b.Checkout(ctx, ref); err != nil {
		return err
	}
	args := []string{"strip", "--rev", "."}
	if !b.stripExt {
		args = append([]string{"--config", "extensions.strip="}, args...)
	}
	_, err := b.runner.Run(ctx, args...)
	return err
}

// DeleteRef deletes a bookmark. Branch heads disappear with the history
// rewrite, so branch deletion is a no-op.
func (b *Backend) DeleteRef(ctx context.Context, ref vcs.Ref) error {
	if ref.Kind != vcs.KindBookmark {
		return nil
	}
	_, err := b.runner.Run(ctx, "bookmark", "--delete", ref.Name)
	return err
}

// DeleteRemoteRef propagates a bookmark deletion to the remote. The local
// bookmark must already be deleted for the push to carry the deletion.
func (b *Backend) DeleteRemoteRef(ctx context.Context, ref vcs.Ref, remote string) error {
	if ref.Kind != vcs.KindBookmark {
		return fmt.Errorf("cannot delete remote %s %q", ref.Kind, ref.Name)
	}
	_, err := b.runner.Run(ctx, "push", "-B", ref.Name, remote)
	if err != nil && vcs.ExitCode(err) == 1 {
		return nil
	}
	return err
}

// RelocateFork rebases a forked sibling onto the landed ref.
func (b *Backend) RelocateFork(ctx context.Context, fork vcs.Fork, onto string) error {
	_, err := b.runner.Run(ctx, "rebase", "-b", fork.Tip, "-d", onto)
	return err
}
