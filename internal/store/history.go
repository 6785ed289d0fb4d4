package store

import "fmt"

// HistoryEntry mirrors a row of user_search_history: one search a remote
// user issued, kept so "/history" can page back through it.
type HistoryEntry struct {
	RemoteIdentity string
	Query          string
	Time           float64
	CreatedAt      float64
}

// SaveUserSearch appends query to remoteIdentity's search history.
func (s *Store) SaveUserSearch(remoteIdentity, query string, now float64) error {
	_, err := s.db.Exec(`
		INSERT INTO user_search_history (remote_identity, query, time, created_at)
		VALUES (?, ?, ?, ?)
	`, remoteIdentity, query, now, now)
	if err != nil {
		return fmt.Errorf("store: save user search for %q: %w", remoteIdentity, err)
	}
	return nil
}

// UserHistoryCount returns how many searches remoteIdentity has on record.
func (s *Store) UserHistoryCount(remoteIdentity string) (int, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM user_search_history WHERE remote_identity = ?
	`, remoteIdentity).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: user history count for %q: %w", remoteIdentity, err)
	}
	return n, nil
}

// UserHistoryPage returns a page of remoteIdentity's past searches,
// most recent first.
func (s *Store) UserHistoryPage(remoteIdentity string, page, pageSize int) ([]HistoryEntry, error) {
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 {
		pageSize = 10
	} else if pageSize > 200 {
		pageSize = 200
	}

	rows, err := s.db.Query(`
		SELECT remote_identity, query, time, created_at FROM user_search_history
		WHERE remote_identity = ?
		ORDER BY time DESC LIMIT ? OFFSET ?
	`, remoteIdentity, pageSize, page*pageSize)
	if err != nil {
		return nil, fmt.Errorf("store: user history page for %q: %w", remoteIdentity, err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.RemoteIdentity, &h.Query, &h.Time, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan history row: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
