package store

import "fmt"

// LogSearchQuery appends a row to the search query log, used to surface
// recently-searched terms back to operators.
func (s *Store) LogSearchQuery(queryText string, now float64) error {
	_, err := s.db.Exec(`
		INSERT INTO search_queries (query_text, created_at) VALUES (?, ?)
	`, queryText, now)
	if err != nil {
		return fmt.Errorf("store: log search query: %w", err)
	}
	return nil
}

// RecentSearchQueries returns the most recent limit query strings,
// most recent first.
func (s *Store) RecentSearchQueries(limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`
		SELECT query_text FROM search_queries ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent search queries: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("store: scan search query: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}
