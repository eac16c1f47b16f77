// Package cache keeps generated candidates so an unchanged diff does not cost
// another round trip to the provider.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultMaxEntries is the default maximum number of cache entries.
	DefaultMaxEntries = 100
	// DefaultTTL is the default time-to-live for cache entries.
	DefaultTTL = 1 * time.Hour
)

// Entry is a cached value and its expiry.
type Entry[V any] struct {
	Key       string    `json:"key"`
	Value     V         `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (e *Entry[V]) expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Manager defines the interface for cache management.
type Manager[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V, ttl time.Duration)
	Delete(key string)
	Clear()
	Size() int
}

// LRUCache is an in-memory LRU cache with per-entry TTL.
type LRUCache[V any] struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front is most recently used
	maxEntries int
	defaultTTL time.Duration
	now        func() time.Time
}

// NewLRUCache creates a new LRU cache with the specified configuration.
func NewLRUCache[V any](maxEntries int, defaultTTL time.Duration) *LRUCache[V] {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &LRUCache[V]{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// WithClock replaces the time source; tests use it to expire entries.
func (c *LRUCache[V]) WithClock(now func() time.Time) *LRUCache[V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
	return c
}

// Get returns the value for key when present and not expired.
func (c *LRUCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.entries[key]
	if !ok {
		return zero, false
	}

	entry := el.Value.(*Entry[V])
	if entry.expired(c.now()) {
		c.removeElement(el)
		return zero, false
	}

	c.order.MoveToFront(el)
	return entry.Value, true
}

// Set stores a value. A ttl of 0 uses the default TTL.
func (c *LRUCache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.put(&Entry[V]{Key: key, Value: value, ExpiresAt: c.now().Add(ttl)})
}

// put inserts or replaces an entry as most recently used. Caller holds c.mu.
func (c *LRUCache[V]) put(entry *Entry[V]) {
	if el, ok := c.entries[entry.Key]; ok {
		el.Value = entry
		c.order.MoveToFront(el)
		return
	}

	for c.order.Len() >= c.maxEntries {
		c.removeElement(c.order.Back())
	}
	c.entries[entry.Key] = c.order.PushFront(entry)
}

// Delete removes a value from the cache.
func (c *LRUCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.removeElement(el)
	}
}

// Clear removes all entries from the cache.
func (c *LRUCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Size returns the number of entries in the cache, expired ones included.
func (c *LRUCache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// CleanExpired removes all expired entries and reports how many went.
func (c *LRUCache[V]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if el.Value.(*Entry[V]).expired(now) {
			c.removeElement(el)
			removed++
		}
		el = next
	}
	return removed
}

func (c *LRUCache[V]) removeElement(el *list.Element) {
	entry := c.order.Remove(el).(*Entry[V])
	delete(c.entries, entry.Key)
}

// Load reads entries written by Save. A missing file is not an error and
// expired entries are skipped.
func (c *LRUCache[V]) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read cache file: %w", err)
	}

	var entries []*Entry[V]
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to parse cache file: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	// The file lists entries from least to most recently used.
	for _, e := range entries {
		if e == nil || e.Key == "" || e.expired(now) {
			continue
		}
		c.put(e)
	}
	return nil
}

// Save writes the live entries to path with user-only permissions.
func (c *LRUCache[V]) Save(path string) error {
	c.mu.Lock()
	now := c.now()
	entries := make([]*Entry[V], 0, c.order.Len())
	for el := c.order.Back(); el != nil; el = el.Prev() {
		if e := el.Value.(*Entry[V]); !e.expired(now) {
			entries = append(entries, e)
		}
	}
	c.mu.Unlock()

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// Key hashes the parts that determine a generation result. Parts are
// separated so that ("ab", "c") and ("a", "bc") differ.
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(hash[:])
}
