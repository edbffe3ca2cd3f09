package journal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournalRoundTrip(t *testing.T) {
	j := openTestJournal(t)

	require.NoError(t, j.Record(Entry{
		Ref:     "feature",
		Commit:  "feac1e",
		Action:  "deleted after landing",
		Restore: "git branch feature feac1e",
	}))

	entries, err := j.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "feature", entries[0].Ref)
	require.Equal(t, "git branch feature feac1e", entries[0].Restore)
	require.False(t, entries[0].RecordedAt.IsZero())
}

func TestJournalPreservesInsertionOrder(t *testing.T) {
	j := openTestJournal(t)

	for _, ref := range []string{"one", "two", "three"} {
		require.NoError(t, j.Record(Entry{Ref: ref, Commit: "c", Action: "a", Restore: "r"}))
	}

	entries, err := j.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "one", entries[0].Ref)
	require.Equal(t, "three", entries[2].Ref)
}

func TestJournalEmpty(t *testing.T) {
	entries, err := openTestJournal(t).Entries()
	require.NoError(t, err)
	require.Empty(t, entries)
}
