package history

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, maxEntries int) (*FileManager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "history.json")
	return NewFileManager(path, maxEntries), path
}

func messages(entries []*Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Message)
	}
	return out
}

func TestFileManager_SaveFillsIDAndTimestamp(t *testing.T) {
	mgr, path := newTestManager(t, 10)

	entry := &Entry{Message: "feat: add cache", Provider: "openai", Model: "gpt-4o-mini", Committed: true}
	require.NoError(t, mgr.Save(entry))

	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.Timestamp.IsZero())
	assert.FileExists(t, path)

	fixed := &Entry{ID: "kept", Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), Message: "fix: keep id"}
	require.NoError(t, mgr.Save(fixed))

	entries, err := mgr.List(ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "kept", entries[1].ID)
	assert.True(t, entries[1].Timestamp.Equal(fixed.Timestamp))
}

func TestFileManager_ListMissingFile(t *testing.T) {
	mgr, _ := newTestManager(t, 10)

	entries, err := mgr.List(ListOptions{Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileManager_Rotation(t *testing.T) {
	mgr, _ := newTestManager(t, 3)

	for i := 1; i <= 5; i++ {
		require.NoError(t, mgr.Save(&Entry{Message: fmt.Sprintf("chore: step %d", i)}))
	}

	entries, err := mgr.List(ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"chore: step 3", "chore: step 4", "chore: step 5"}, messages(entries))
}

func TestFileManager_ListFilters(t *testing.T) {
	mgr, _ := newTestManager(t, 100)

	seed := []*Entry{
		{Message: "feat: one", Provider: "openai", Committed: true},
		{Message: "feat: two", Provider: "ollama"},
		{Message: "fix: three", Provider: "OpenAI", Candidates: []string{"fix: three", "fix: 3"}},
		{Message: "docs: four", Provider: "openai", Committed: true, Chunks: 2},
	}
	for _, e := range seed {
		require.NoError(t, mgr.Save(e))
	}

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{name: "all", want: []string{"feat: one", "feat: two", "fix: three", "docs: four"}},
		{name: "provider any case", opts: ListOptions{Provider: " openai "}, want: []string{"feat: one", "fix: three", "docs: four"}},
		{name: "committed only", opts: ListOptions{CommittedOnly: true}, want: []string{"feat: one", "docs: four"}},
		{name: "limit after filter", opts: ListOptions{Provider: "openai", Limit: 2}, want: []string{"fix: three", "docs: four"}},
		{name: "limit above size", opts: ListOptions{Limit: 50}, want: []string{"feat: one", "feat: two", "fix: three", "docs: four"}},
		{name: "no match", opts: ListOptions{Provider: "anthropic"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := mgr.List(tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, messages(entries))
		})
	}

	entries, err := mgr.List(ListOptions{})
	require.NoError(t, err)
	assert.Len(t, entries[2].Candidates, 2, "candidates round-trip")
	assert.Equal(t, 2, entries[3].Chunks, "chunk count round-trips")
}

func TestFileManager_Clear(t *testing.T) {
	mgr, path := newTestManager(t, 10)
	require.NoError(t, mgr.Save(&Entry{Message: "feat: soon gone"}))

	require.NoError(t, mgr.Clear())

	entries, err := mgr.List(ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, entries)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}

func TestFileManager_FilePermissions(t *testing.T) {
	if os.PathSeparator == '\\' {
		t.Skip("unix permissions only")
	}
	mgr, path := newTestManager(t, 10)
	require.NoError(t, mgr.Save(&Entry{Message: "feat: private"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".history-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "temp files are cleaned up")
}

func TestNewFileManager_DefaultMaxEntries(t *testing.T) {
	for _, n := range []int{0, -1} {
		assert.Equal(t, DefaultMaxEntries, NewFileManager("history.json", n).maxEntries)
	}
}

func TestFileManager_SaveRejectsEmpty(t *testing.T) {
	mgr, path := newTestManager(t, 10)

	assert.Error(t, mgr.Save(nil))
	assert.Error(t, mgr.Save(&Entry{Message: "  "}))
	assert.NoFileExists(t, path)
}

func TestFileManager_CorruptFile(t *testing.T) {
	mgr, path := newTestManager(t, 10)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, err := mgr.List(ListOptions{})
	assert.ErrorContains(t, err, "corrupt")

	assert.Error(t, mgr.Save(&Entry{Message: "feat: x"}), "a corrupt file is not overwritten")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "not json", string(data))
}
