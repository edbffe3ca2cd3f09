// Package runtime provides the context type that holds the detected
// backend, review client and logger for use throughout the application.
// This avoids passing multiple parameters.
package runtime

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"landit.dev/landit/internal/journal"
	"landit.dev/landit/internal/review"
	"landit.dev/landit/internal/tui"
	"landit.dev/landit/internal/vcs"
	"landit.dev/landit/internal/vcs/gitvcs"
	"landit.dev/landit/internal/vcs/hgvcs"
)

// Context provides access to the backend and output for commands.
type Context struct {
	Backend  vcs.Backend
	Review   review.Client
	Splog    *tui.Splog
	Prompter tui.Prompter
	Journal  *journal.Journal

	// RepoRoot is the working copy root.
	RepoRoot string
	// MetaDir is the VCS metadata directory (.git or .hg) under RepoRoot.
	MetaDir string
}

// NewContext creates a context with real output and prompting but no
// detected repository. Tests and early CLI paths use it.
func NewContext() *Context {
	return &Context{
		Splog:    tui.NewSplog(),
		Prompter: tui.NewPrompter(),
	}
}

// GetContext detects the repository at the current directory, opens the
// matching backend, and wires the optional review client and recovery
// journal. The review client and journal are best-effort; their absence
// degrades behavior but is not fatal.
func GetContext() (*Context, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, metaDir, err := findRepoRoot(cwd)
	if err != nil {
		return nil, err
	}

	rctx := NewContext()
	rctx.RepoRoot = root
	rctx.MetaDir = metaDir

	switch filepath.Base(metaDir) {
	case ".git":
		backend, err := gitvcs.Open(root)
		if err != nil {
			return nil, err
		}
		rctx.Backend = backend
		rctx.Review = openGitHubClient(backend)
	case ".hg":
		backend, err := hgvcs.Open(root)
		if err != nil {
			return nil, err
		}
		rctx.Backend = backend
	}

	if j, err := journal.Open(filepath.Join(metaDir, "landit-journal.db")); err == nil {
		rctx.Journal = j
	} else {
		rctx.Splog.Debug("recovery journal unavailable: %v", err)
	}
	return rctx, nil
}

// Close releases resources held by the context.
func (c *Context) Close() error {
	if c.Journal != nil {
		if err := c.Journal.Close(); err != nil {
			return err
		}
	}
	if c.Splog != nil {
		return c.Splog.Close()
	}
	return nil
}

func findRepoRoot(start string) (root, metaDir string, err error) {
	dir := start
	for {
		for _, meta := range []string{".git", ".hg"} {
			candidate := filepath.Join(dir, meta)
			if info, statErr := os.Stat(candidate); statErr == nil && info.IsDir() {
				return dir, candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", "", fmt.Errorf("not inside a git or mercurial repository: %s", start)
		}
		dir = parent
	}
}

var githubRemotePattern = regexp.MustCompile(`github\.com[:/]([^/]+)/([^/\s]+?)(?:\.git)?$`)

// openGitHubClient builds a review client when the origin remote points at
// GitHub and a token is available. Returns nil otherwise.
func openGitHubClient(backend *gitvcs.Backend) review.Client {
	url, err := backend.RemoteURL(context.Background(), backend.DefaultRemote())
	if err != nil {
		return nil
	}
	match := githubRemotePattern.FindStringSubmatch(url)
	if match == nil {
		return nil
	}
	client, err := review.NewGitHubClient(context.Background(), match[1], match[2])
	if err != nil {
		return nil
	}
	return client
}
