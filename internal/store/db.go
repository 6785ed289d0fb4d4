// Package store provides the embedded relational store backing waystone:
// node and peer presence, the citation graph, the crawler's visited-URL
// cache, and search/history logs. It is backed by modernc.org/sqlite, a
// pure-Go SQLite driver, so the daemon never needs cgo.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup finds no matching row.
var ErrNotFound = errors.New("store: not found")

// Store wraps the embedded database connection.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database file under dir and
// applies the schema.
func Open(dir string) (*Store, error) {
	path := filepath.Join(dir, "waystone.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}
	// sqlite only tolerates a single writer; serialize at the
	// database/sql pool level rather than fight it with busy-timeout retries.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
