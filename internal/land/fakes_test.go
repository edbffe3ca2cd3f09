package land

import (
	"context"
	"fmt"

	"landit.dev/landit/internal/review"
	"landit.dev/landit/internal/vcs"
)

// fakeBackend is a scripted vcs.Backend. Every mutating call is appended
// to calls so tests can assert exact operation order, and any operation
// can be made to fail by name via failOn.
type fakeBackend struct {
	name      string
	rebase    bool
	bookmarks bool
	forking   bool
	immutable bool
	noFFMerge bool

	defaultTarget string
	defaultRemote string
	mirrorRef     string

	currentRef vcs.Ref
	refs       map[string]bool
	bookmarked map[string]bool
	commits    map[string]string
	upstreams  map[string]*vcs.UpstreamInfo
	clean      bool
	mergeBases map[string]string
	between    map[string][]vcs.Commit
	ahead      []vcs.Commit
	forks      []vcs.Fork

	pullResult        vcs.PullResult
	rebaseResult      vcs.RebaseResult
	mergeResult       vcs.MergeResult
	collapseCommitted bool

	failOn         map[string]error
	calls          []string
	betweenQueries []string
}

func newFakeGit() *fakeBackend {
	return &fakeBackend{
		name:          "git",
		rebase:        true,
		noFFMerge:     true,
		defaultTarget: "master",
		defaultRemote: "origin",
		currentRef:    vcs.Ref{Name: "feature", Kind: vcs.KindBranch},
		refs:          map[string]bool{"feature": true, "master": true},
		bookmarked:    map[string]bool{},
		commits: map[string]string{
			"feature": "feac1e",
			"master":  "aaa111",
		},
		upstreams:  map[string]*vcs.UpstreamInfo{},
		clean:      true,
		mergeBases: map[string]string{"feature|master": "aaa111"},
		between:    map[string][]vcs.Commit{},
		failOn:     map[string]error{},
	}
}

func newFakeHg() *fakeBackend {
	b := newFakeGit()
	b.name = "hg"
	b.bookmarks = true
	b.forking = true
	b.immutable = true
	b.defaultTarget = "default"
	b.defaultRemote = "default"
	b.collapseCommitted = true
	b.refs = map[string]bool{"feature": true, "default": true}
	b.commits = map[string]string{"feature": "feac1e", "default": "aaa111"}
	b.mergeBases = map[string]string{"feature|default": "aaa111"}
	return b
}

func (b *fakeBackend) record(call string) { b.calls = append(b.calls, call) }

func (b *fakeBackend) fail(op string) error { return b.failOn[op] }

func (b *fakeBackend) Name() string                    { return b.name }
func (b *fakeBackend) SupportsRebase() bool            { return b.rebase }
func (b *fakeBackend) SupportsBookmarks() bool         { return b.bookmarks }
func (b *fakeBackend) HasForkingBranches() bool        { return b.forking }
func (b *fakeBackend) HasImmutableHistory() bool       { return b.immutable }
func (b *fakeBackend) SupportsNoFFMerge() bool         { return b.noFFMerge }
func (b *fakeBackend) DefaultTargetRef() string        { return b.defaultTarget }
func (b *fakeBackend) DefaultRemote() string           { return b.defaultRemote }

func (b *fakeBackend) SupportsRemoteRefDeletion(kind vcs.RefKind) bool {
	if b.name == "hg" {
		return kind == vcs.KindBookmark
	}
	return kind == vcs.KindBranch
}

func (b *fakeBackend) MirrorFetchRef(context.Context) (string, error) {
	return b.mirrorRef, nil
}

func (b *fakeBackend) GetCurrentRef(context.Context) (vcs.Ref, error) {
	return b.currentRef, nil
}

func (b *fakeBackend) RefExists(_ context.Context, name string) (bool, error) {
	return b.refs[name], nil
}

func (b *fakeBackend) IsBookmarkLike(_ context.Context, name string) (bool, error) {
	return b.bookmarked[name], nil
}

func (b *fakeBackend) ResolveCommit(_ context.Context, ref string) (string, error) {
	hash, ok := b.commits[ref]
	if !ok {
		return "", fmt.Errorf("unknown ref %q", ref)
	}
	return hash, nil
}

func (b *fakeBackend) GetUpstream(_ context.Context, ref string) (*vcs.UpstreamInfo, error) {
	return b.upstreams[ref], nil
}

func (b *fakeBackend) IsWorkingCopyClean(context.Context) (bool, error) {
	return b.clean, nil
}

func (b *fakeBackend) GetMergeBase(_ context.Context, x, y string) (string, error) {
	if base, ok := b.mergeBases[x+"|"+y]; ok {
		return base, nil
	}
	return "", fmt.Errorf("no merge base for %s and %s", x, y)
}

func (b *fakeBackend) IsAncestor(_ context.Context, ancestor, descendant string) (bool, error) {
	return b.mergeBases[ancestor+"|"+descendant] == ancestor, nil
}

func (b *fakeBackend) CommitsBetween(_ context.Context, base, tip string) ([]vcs.Commit, error) {
	b.betweenQueries = append(b.betweenQueries, base+"|"+tip)
	return b.between[base+"|"+tip], nil
}

func (b *fakeBackend) DetectLocalAheadOfRemote(context.Context, string, string) ([]vcs.Commit, error) {
	return b.ahead, nil
}

func (b *fakeBackend) ListForkedDescendants(context.Context, string, string) ([]vcs.Fork, error) {
	return b.forks, nil
}

func (b *fakeBackend) Checkout(_ context.Context, ref string) error {
	b.record("checkout " + ref)
	if err := b.fail("checkout"); err != nil {
		return err
	}
	b.currentRef = vcs.Ref{Name: ref, Kind: b.currentRef.Kind}
	return nil
}

func (b *fakeBackend) Pull(_ context.Context, remote, ref string, _ bool) (vcs.PullResult, error) {
	b.record(fmt.Sprintf("pull %s %s", remote, ref))
	return b.pullResult, b.fail("pull")
}

func (b *fakeBackend) Rebase(_ context.Context, source, onto string, _ vcs.RebaseOptions) (vcs.RebaseResult, error) {
	b.record(fmt.Sprintf("rebase %s onto %s", source, onto))
	return b.rebaseResult, b.fail("rebase")
}

func (b *fakeBackend) AbortRebase(context.Context) error {
	b.record("abort-rebase")
	return nil
}

func (b *fakeBackend) CollapseOnto(_ context.Context, source, target, _ string, opts vcs.CollapseOptions) (vcs.CollapseResult, error) {
	call := fmt.Sprintf("collapse %s onto %s", source, target)
	if opts.KeepOriginal {
		call += " keep"
	}
	b.record(call)
	return vcs.CollapseResult{Committed: b.collapseCommitted}, b.fail("collapse")
}

func (b *fakeBackend) MergeNoCommit(_ context.Context, ref string) (vcs.MergeResult, error) {
	b.record("merge " + ref)
	return b.mergeResult, b.fail("merge")
}

func (b *fakeBackend) AbortMerge(context.Context) error {
	b.record("abort-merge")
	return nil
}

func (b *fakeBackend) Commit(_ context.Context, _ string) error {
	b.record("commit")
	return b.fail("commit")
}

func (b *fakeBackend) DiscardWorkingCopy(context.Context) error {
	b.record("discard")
	return nil
}

func (b *fakeBackend) Push(_ context.Context, ref, remote string) error {
	b.record(fmt.Sprintf("push %s %s", ref, remote))
	return b.fail("push")
}

func (b *fakeBackend) StripLastCommit(_ context.Context, ref string) error {
	b.record("strip " + ref)
	return b.fail("strip")
}

func (b *fakeBackend) DeleteRef(_ context.Context, ref vcs.Ref) error {
	b.record("delete " + ref.Name)
	if err := b.fail("delete"); err != nil {
		return err
	}
	delete(b.refs, ref.Name)
	return nil
}

func (b *fakeBackend) DeleteRemoteRef(_ context.Context, ref vcs.Ref, remote string) error {
	b.record(fmt.Sprintf("delete-remote %s %s", ref.Name, remote))
	return b.fail("delete-remote")
}

func (b *fakeBackend) RelocateFork(_ context.Context, fork vcs.Fork, onto string) error {
	b.record(fmt.Sprintf("relocate %s onto %s", fork.Ref.Name, onto))
	return b.fail("relocate")
}

var _ vcs.Backend = (*fakeBackend)(nil)

// fakePrompter answers prompts from a script instead of a terminal.
type fakePrompter struct {
	confirm    bool
	confirmErr error
	selection  string
	selectErr  error
	prompts    []string
}

func (p *fakePrompter) Confirm(prompt string, _ bool) (bool, error) {
	p.prompts = append(p.prompts, prompt)
	return p.confirm, p.confirmErr
}

func (p *fakePrompter) Select(prompt string, _ []string) (string, error) {
	p.prompts = append(p.prompts, prompt)
	return p.selection, p.selectErr
}

// fakeReview serves canned review metadata.
type fakeReview struct {
	revisions map[string][]review.RevisionRecord
	byID      map[string]*review.RevisionRecord
	message   string
	builds    []review.BuildStatus
	deps      []review.RevisionRecord
	finalized []string
}

func (r *fakeReview) ResolveRevisionForRef(_ context.Context, ref string) ([]review.RevisionRecord, error) {
	return r.revisions[ref], nil
}

func (r *fakeReview) GetRevision(_ context.Context, id string) (*review.RevisionRecord, error) {
	rev, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("no revision %q", id)
	}
	return rev, nil
}

func (r *fakeReview) BuildCommitMessage(_ context.Context, _ string) (string, error) {
	return r.message, nil
}

func (r *fakeReview) QueryBuildStatus(_ context.Context, _ string) ([]review.BuildStatus, error) {
	return r.builds, nil
}

func (r *fakeReview) FinalizeRevision(_ context.Context, id string) error {
	r.finalized = append(r.finalized, id)
	return nil
}

func (r *fakeReview) QueryOpenDependencies(_ context.Context, _ string) ([]review.RevisionRecord, error) {
	return r.deps, nil
}

var _ review.Client = (*fakeReview)(nil)
