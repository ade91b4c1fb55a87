package isbncache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"shelfsync/internal/fileutil"
	"shelfsync/internal/logging"
)

var keyFolder = cases.Fold()

// Cache provides thread-safe access to the persistent ISBN lookup cache.
//
// Values are either a resolved ISBN-13 or nil, where nil is an explicit
// negative entry: "looked up, confirmed not found". Presence of a key (even
// nil) means no further external lookup should be attempted; absence means
// "never attempted". Every mutation is flushed to disk immediately, so a
// crash loses at most the most recent lookup.
type Cache struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	entries map[string]*string
}

// NewCache creates a cache instance backed by the JSON file at path. If path
// is empty the cache is non-functional (all operations become no-ops). The
// cache file is created lazily on first store.
func NewCache(path string, logger *slog.Logger) *Cache {
	logger = logging.NewComponentLogger(logger, "isbncache")

	c := &Cache{
		path:    path,
		logger:  logger,
		entries: make(map[string]*string),
	}

	if path == "" {
		return c
	}

	// The cache is advisory: a corrupt file costs re-lookups, not
	// correctness, so it starts empty instead of failing.
	if err := c.load(); err != nil {
		logger.Warn("failed to load isbn cache",
			logging.String(logging.FieldEventType, "isbncache_load_failed"),
			logging.Error(err),
			logging.String(logging.FieldImpact, "previously resolved ISBNs will be looked up again"))
	}

	return c
}

// Key builds the normalized cache key for a title/author pair: both fields
// case-folded and trimmed, joined with a pipe.
func Key(title, author string) string {
	return keyFolder.String(strings.TrimSpace(title)) + "|" + keyFolder.String(strings.TrimSpace(author))
}

// Get returns the cached ISBN for the key. attempted reports whether the key
// has ever been stored, including as a negative entry; found reports whether
// a real ISBN is cached.
func (c *Cache) Get(key string) (isbn string, found bool, attempted bool) {
	if key == "" || c.path == "" {
		return "", false, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	value, ok := c.entries[key]
	if !ok {
		return "", false, false
	}
	if value == nil {
		return "", false, true
	}
	return *value, true, true
}

// StoreFound records a resolved ISBN for the key and persists to disk.
func (c *Cache) StoreFound(key, isbn string) error {
	isbn = strings.TrimSpace(isbn)
	if key == "" {
		return errors.New("cache key cannot be empty")
	}
	if isbn == "" {
		return errors.New("isbn cannot be empty; use StoreMiss for negative entries")
	}
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &isbn
	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}

	c.logger.Debug("cached isbn", logging.String("key", key), logging.String("isbn", isbn))
	return nil
}

// StoreMiss records that all lookup sources were exhausted for the key, so
// future lookups short-circuit without external calls.
func (c *Cache) StoreMiss(key string) error {
	if key == "" {
		return errors.New("cache key cannot be empty")
	}
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = nil
	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}

	c.logger.Debug("cached negative lookup", logging.String("key", key))
	return nil
}

// Remove deletes an entry so the next lookup goes back to the sources.
func (c *Cache) Remove(key string) error {
	if key == "" {
		return errors.New("cache key cannot be empty")
	}
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		return fmt.Errorf("key %q not found in cache", key)
	}
	delete(c.entries, key)

	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	return nil
}

// Clear removes all entries and persists the empty cache.
func (c *Cache) Clear() error {
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*string)
	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}

	c.logger.Debug("cleared isbn cache")
	return nil
}

// Stats summarizes cache contents for observability.
type Stats struct {
	Entries  int
	Resolved int
	Misses   int
}

// Summary returns entry counts split by positive and negative entries.
func (c *Cache) Summary() Stats {
	if c.path == "" {
		return Stats{}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Stats{Entries: len(c.entries)}
	for _, value := range c.entries {
		if value == nil {
			stats.Misses++
		} else {
			stats.Resolved++
		}
	}
	return stats
}

// Count returns the number of entries in the cache.
func (c *Cache) Count() int {
	if c.path == "" {
		return 0
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// load reads the cache from disk into memory.
func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil // fresh start
		}
		return fmt.Errorf("read cache file: %w", err)
	}

	if len(data) == 0 {
		return nil
	}

	var entries map[string]*string
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse cache file: %w", err)
	}

	c.entries = make(map[string]*string, len(entries))
	for key, value := range entries {
		if strings.TrimSpace(key) != "" {
			c.entries[key] = value
		}
	}

	c.logger.Debug("loaded isbn cache",
		logging.Int("entry_count", len(c.entries)),
		logging.String("path", c.path))
	return nil
}

// save writes the cache to disk atomically.
func (c *Cache) save() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	return fileutil.WriteFileAtomic(c.path, data, 0o644)
}
