package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// CheckOrStamp reports whether url was visited within ttlSeconds of now.
// If not (or never visited), it stamps the URL as visited at now and
// returns false, so a concurrent crawl worker never double-enqueues the
// same URL inside one visited-cache window.
func (s *Store) CheckOrStamp(url string, now, ttlSeconds float64) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("store: check or stamp %q: %w", url, err)
	}
	defer tx.Rollback()

	var lastVisited float64
	err = tx.QueryRow(`SELECT last_visited_at FROM crawl_visited_urls WHERE url = ?`, url).Scan(&lastVisited)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.Exec(`
			INSERT INTO crawl_visited_urls (url, created_at, last_visited_at) VALUES (?, ?, ?)
		`, url, now, now); err != nil {
			return false, fmt.Errorf("store: stamp new visit %q: %w", url, err)
		}
		return false, tx.Commit()
	case err != nil:
		return false, fmt.Errorf("store: check or stamp %q: %w", url, err)
	}

	if now-lastVisited < ttlSeconds {
		return true, tx.Commit()
	}

	if _, err := tx.Exec(`UPDATE crawl_visited_urls SET last_visited_at = ? WHERE url = ?`, now, url); err != nil {
		return false, fmt.Errorf("store: restamp visit %q: %w", url, err)
	}
	return false, tx.Commit()
}
