// Package cache implements the durable local fallback store: a sqlite-backed
// key-value table shared by every context on the same host.
package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Well-known cache keys. List values are JSON arrays, most-recent-first.
const (
	KeyContactForms = "contact_forms"
	KeyWorks        = "works"
	KeySiteData     = "site_data"
	KeyAdminSession = "admin_session"

	keyLastID = "last_id"
)

// Cache is a string-keyed blob store on a single sqlite file. Values are
// whatever the caller serialized; the cache does not interpret them.
type Cache struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (creating if needed) the cache file at path.
func Open(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the value stored under key. The second result reports whether
// the key was present.
func (c *Cache) Get(key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var value []byte
	err := c.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	return value, true, nil
}

// Put stores value under key, replacing any previous value.
func (c *Cache) Put(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

// Delete removes key and reports whether a value was actually removed.
func (c *Cache) Delete(key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.db.Exec("DELETE FROM kv WHERE key = ?", key)
	if err != nil {
		return false, fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// NextID returns a locally-unique surrogate identifier. IDs are
// wall-clock-seeded and strictly increasing across calls, persisted so they
// survive restarts. The surrogate space is not disjoint from the remote
// store's identifier space.
func (c *Cache) NextID() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var last int64
	err := c.db.QueryRow("SELECT value FROM kv WHERE key = ?", keyLastID).Scan(&last)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to read id counter: %w", err)
	}

	id := time.Now().UnixMilli()
	if id <= last {
		id = last + 1
	}

	if _, err := c.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		keyLastID, id,
	); err != nil {
		return 0, fmt.Errorf("failed to persist id counter: %w", err)
	}
	return id, nil
}
