package eutils

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Cache stores PMID -> PMCID results. An empty PMCID records a confirmed
// "no PMC record" so it is not looked up again.
type Cache interface {
	Get(pmid string) (pmcid string, found bool, err error)
	Put(pmid, pmcid string) error
}

// MemoryCache is a process-lifetime cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]string)}
}

func (c *MemoryCache) Get(pmid string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[pmid]
	return v, ok, nil
}

func (c *MemoryCache) Put(pmid, pmcid string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[pmid] = pmcid
	return nil
}

// SQLiteCache persists lookups across processes.
type SQLiteCache struct {
	db *sql.DB
}

// OpenSQLiteCache opens or creates the cache database at path.
func OpenSQLiteCache(path string) (*SQLiteCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS pmcid_cache (
			pmid TEXT PRIMARY KEY,
			pmcid TEXT NOT NULL,
			fetched_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	return &SQLiteCache{db: db}, nil
}

// Close closes the cache database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

func (c *SQLiteCache) Get(pmid string) (string, bool, error) {
	var pmcid string
	err := c.db.QueryRow(`SELECT pmcid FROM pmcid_cache WHERE pmid = ?`, pmid).Scan(&pmcid)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading cache for %s: %w", pmid, err)
	}
	return pmcid, true, nil
}

func (c *SQLiteCache) Put(pmid, pmcid string) error {
	_, err := c.db.Exec(`
		INSERT OR REPLACE INTO pmcid_cache (pmid, pmcid, fetched_at)
		VALUES (?, ?, ?)
	`, pmid, pmcid, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("writing cache for %s: %w", pmid, err)
	}
	return nil
}
