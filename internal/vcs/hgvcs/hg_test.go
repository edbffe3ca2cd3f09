package hgvcs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"landit.dev/landit/internal/vcs"
)

// stubHg installs a fake hg executable on PATH that logs every invocation
// and answers the probes Open performs, so the exact command lines the
// backend issues can be asserted without a mercurial install.
func stubHg(t *testing.T, stripEnabled bool) (backend *Backend, logPath string) {
	t.Helper()

	dir := t.TempDir()
	logPath = filepath.Join(dir, "invocations.log")

	stripCase := "exit 1"
	if stripEnabled {
		stripCase = "echo ''; exit 0"
	}
	script := `#!/bin/sh
echo "$@" >> "` + logPath + `"
case "$1" in
root)
	pwd
	exit 0
	;;
showconfig)
	case "$2" in
	extensions.rebase) echo ''; exit 0 ;;
	extensions.strip) ` + stripCase + ` ;;
	*) exit 1 ;;
	esac
	;;
esac
exit 0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hg"), []byte(script), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))

	backend, err := Open(dir)
	require.NoError(t, err)
	return backend, logPath
}

func loggedCommand(t *testing.T, logPath, prefix string) string {
	t.Helper()
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if strings.HasPrefix(line, prefix) {
			return line
		}
	}
	t.Fatalf("no %q invocation logged in:\n%s", prefix, data)
	return ""
}

func TestCollapseOntoRestrictsRebaseSetToSourceLine(t *testing.T) {
	backend, logPath := stubHg(t, false)

	result, err := backend.CollapseOnto(context.Background(), "feature", "default", "land msg", vcs.CollapseOptions{})
	require.NoError(t, err)
	require.True(t, result.Committed)

	rebase := loggedCommand(t, logPath, "rebase")
	// The set must be the source line only; -b would drag sibling forks
	// that branched off partway through into the collapsed changeset.
	require.Contains(t, rebase, "only(feature, default)")
	require.Contains(t, rebase, "--collapse")
	require.NotContains(t, rebase, "-b ")
	require.NotContains(t, rebase, "--keep")
}

func TestCollapseOntoKeepOriginal(t *testing.T) {
	backend, logPath := stubHg(t, false)

	_, err := backend.CollapseOnto(context.Background(), "feature", "default", "land msg", vcs.CollapseOptions{
		KeepOriginal: true,
	})
	require.NoError(t, err)
	require.Contains(t, loggedCommand(t, logPath, "rebase"), "--keep")
}

func TestRebaseRestrictsSetToSourceLine(t *testing.T) {
	backend, logPath := stubHg(t, false)

	result, err := backend.Rebase(context.Background(), "feature", "default", vcs.RebaseOptions{})
	require.NoError(t, err)
	require.Equal(t, vcs.RebaseDone, result)

	rebase := loggedCommand(t, logPath, "rebase")
	require.Contains(t, rebase, "only(feature, default)")
	require.NotContains(t, rebase, "-b ")
}

func TestStripLastCommitEnablesBundledExtension(t *testing.T) {
	backend, logPath := stubHg(t, false)
	require.False(t, backend.stripExt)

	require.NoError(t, backend.StripLastCommit(context.Background(), "default"))
	strip := loggedCommand(t, logPath, "--config")
	require.Contains(t, strip, "extensions.strip=")
	require.Contains(t, strip, "strip --rev .")
}

func TestStripLastCommitUsesEnabledExtensionDirectly(t *testing.T) {
	backend, logPath := stubHg(t, true)
	require.True(t, backend.stripExt)

	require.NoError(t, backend.StripLastCommit(context.Background(), "default"))
	strip := loggedCommand(t, logPath, "strip")
	require.NotContains(t, strip, "--config")
}
