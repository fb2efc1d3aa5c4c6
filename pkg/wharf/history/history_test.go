package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := New(filepath.Join(t.TempDir(), "history"))
	require.NoError(t, err)
	return j
}

func TestNew_EmptyDir(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestRecordAndGet(t *testing.T) {
	j := newJournal(t)

	e, err := j.Record(Entry{
		Operation: OpVerify,
		Root:      "/srv/site",
		Summary:   Summary{Files: 2, Passed: 1, Mismatched: 1},
		Drift:     []string{"a.txt"},
	})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^verify-\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}-[0-9a-f]{8}$`), e.ID)
	assert.WithinDuration(t, time.Now(), e.Timestamp, time.Minute)
	assert.True(t, e.Summary.Drift())

	got, err := j.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, "/srv/site", got.Root)
	assert.Equal(t, []string{"a.txt"}, got.Drift)

	_, err = os.Stat(filepath.Join(j.Dir(), e.ID+".json.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestRecord_CapsDrift(t *testing.T) {
	j := newJournal(t)

	drift := make([]string, MaxDriftPaths+10)
	for i := range drift {
		drift[i] = "f"
	}
	e, err := j.Record(Entry{Operation: OpVerify, Drift: drift})
	require.NoError(t, err)
	assert.Len(t, e.Drift, MaxDriftPaths)
}

func TestGet_Errors(t *testing.T) {
	j := newJournal(t)

	_, err := j.Get("verify-missing")
	assert.ErrorIs(t, err, ErrNotFound)

	for _, id := range []string{"", "../escape", ".hidden", `a\b`} {
		_, err := j.Get(id)
		assert.Error(t, err, id)
	}
}

func TestList(t *testing.T) {
	j := newJournal(t)

	entries, err := j.List(0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	for _, op := range []Operation{OpGenerate, OpVerify, OpMoor} {
		_, err := j.Record(Entry{Operation: op})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, os.WriteFile(filepath.Join(j.Dir(), "junk.json"), []byte("{"), 0o644))

	entries, err = j.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, OpMoor, entries[0].Operation, "newest first")
	assert.Equal(t, OpGenerate, entries[2].Operation)

	limited, err := j.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestCleanup(t *testing.T) {
	j := newJournal(t)

	fresh, err := j.Record(Entry{Operation: OpGenerate})
	require.NoError(t, err)

	stale := Entry{
		ID:        "verify-2020-01-01T00-00-00-deadbeef",
		Timestamp: time.Now().AddDate(0, 0, -90),
		Operation: OpVerify,
	}
	data, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(j.Dir(), stale.ID+".json"), data, 0o644))

	removed, err := j.Cleanup(30)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	entries, err := j.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, fresh.ID, entries[0].ID)
}

func TestCleanup_MissingDir(t *testing.T) {
	j := newJournal(t)
	removed, err := j.Cleanup(30)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
