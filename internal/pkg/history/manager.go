// Package history records the commit messages commitwise generated, which one
// was chosen and whether it was committed.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// DefaultMaxEntries is the default maximum number of history entries.
const DefaultMaxEntries = 1000

// Entry represents a single history entry.
type Entry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Message     string    `json:"message"`
	Candidates  []string  `json:"candidates,omitempty"`
	DiffSummary string    `json:"diff_summary"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	Chunks      int       `json:"chunks,omitempty"`
	Committed   bool      `json:"committed"`
}

// ListOptions filters the entries returned by List.
type ListOptions struct {
	// Limit keeps the most recent entries; 0 means all.
	Limit         int
	Provider      string
	CommittedOnly bool
}

// Manager defines the interface for history management.
type Manager interface {
	Save(entry *Entry) error
	List(opts ListOptions) ([]*Entry, error)
	Clear() error
}

// FileManager implements Manager using a JSON file for storage.
type FileManager struct {
	filePath   string
	maxEntries int
	mu         sync.Mutex
}

// NewFileManager creates a new FileManager with the specified file path and max entries.
func NewFileManager(filePath string, maxEntries int) *FileManager {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &FileManager{
		filePath:   filePath,
		maxEntries: maxEntries,
	}
}

// Save appends entry, filling in a UUID and timestamp when missing. The
// oldest entries are dropped beyond maxEntries. A history file that cannot
// be parsed is left untouched.
func (m *FileManager) Save(entry *Entry) error {
	switch {
	case entry == nil:
		return errors.New("history entry cannot be nil")
	case strings.TrimSpace(entry.Message) == "":
		return errors.New("history entry has no message")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.read()
	if err != nil {
		return err
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entries = append(entries, entry)
	if overflow := len(entries) - m.maxEntries; overflow > 0 {
		entries = entries[overflow:]
	}
	return m.write(entries)
}

// List returns matching entries, oldest first. Limit applies after the
// filters and keeps the newest entries.
func (m *FileManager) List(opts ListOptions) ([]*Entry, error) {
	m.mu.Lock()
	entries, err := m.read()
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	provider := strings.TrimSpace(opts.Provider)
	entries = lo.Filter(entries, func(e *Entry, _ int) bool {
		return e != nil &&
			(!opts.CommittedOnly || e.Committed) &&
			(provider == "" || strings.EqualFold(e.Provider, provider))
	})

	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[len(entries)-opts.Limit:]
	}
	return entries, nil
}

// Clear empties the history file.
func (m *FileManager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.write([]*Entry{})
}

// read loads the file; a missing file is an empty history.
func (m *FileManager) read() ([]*Entry, error) {
	data, err := os.ReadFile(m.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return []*Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history %s: %w", m.filePath, err)
	}

	var entries []*Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("history file %s is corrupt: %w", m.filePath, err)
	}
	return entries, nil
}

// write replaces the file through a temp file and rename, so an interrupted
// run never leaves half a history behind. Commit text is private: 0600.
func (m *FileManager) write(entries []*Entry) error {
	dir := filepath.Dir(m.filePath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.filePath); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}
