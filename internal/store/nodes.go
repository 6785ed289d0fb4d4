package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// Node mirrors a row of the nodes table: a presence record for a node on
// the overlay, carrying its PageRank score and announce-rate posterior.
type Node struct {
	DST                   string
	Identity              string
	Name                  string
	Time                  float64
	CreatedAt             float64
	UpdatedAt             float64
	Rank                  float64
	Removed               bool
	AnnounceAlpha         sql.NullFloat64
	AnnounceBeta          sql.NullFloat64
	AnnounceWindowSeconds sql.NullFloat64
	AnnounceKEvents       sql.NullInt64
}

// UpsertNode creates or refreshes a node's presence row. It never marks a
// node removed.
func (s *Store) UpsertNode(dst, identity, name string, ts, now float64) error {
	_, err := s.db.Exec(`
		INSERT INTO nodes (dst, identity, name, time, created_at, updated_at, rank, removed)
		VALUES (?, ?, ?, ?, ?, ?, 0, 0)
		ON CONFLICT(dst) DO UPDATE SET
			identity = excluded.identity,
			name = excluded.name,
			time = excluded.time,
			updated_at = excluded.updated_at,
			removed = 0
	`, dst, identity, name, ts, now, now)
	if err != nil {
		return fmt.Errorf("store: upsert node %q: %w", dst, err)
	}
	return nil
}

// FindNodeByAddress returns the active node with the given address.
func (s *Store) FindNodeByAddress(addr string) (Node, error) {
	row := s.db.QueryRow(`
		SELECT dst, identity, name, time, created_at, updated_at, rank, removed,
		       announce_alpha, announce_beta, announce_window_seconds, announce_k_events
		FROM nodes WHERE dst = ? AND removed = 0
	`, addr)
	return scanNode(row)
}

// CountNodes returns the number of active nodes.
func (s *Store) CountNodes() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM nodes WHERE removed = 0`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count nodes: %w", err)
	}
	return n, nil
}

// NodesPage returns a page of active nodes ordered by rank then
// recency, optionally filtered by a case-insensitive substring match on
// name or address.
func (s *Store) NodesPage(page, pageSize int, query string) ([]Node, error) {
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 {
		pageSize = 100
	} else if pageSize > 1000 {
		pageSize = 1000
	}

	q := `SELECT dst, identity, name, time, created_at, updated_at, rank, removed,
	             announce_alpha, announce_beta, announce_window_seconds, announce_k_events
	      FROM nodes WHERE removed = 0`
	args := []any{}
	if query != "" {
		q += ` AND (name LIKE ? OR dst LIKE ?)`
		like := "%" + query + "%"
		args = append(args, like, like)
	}
	q += ` ORDER BY rank DESC, time DESC LIMIT ? OFFSET ?`
	args = append(args, pageSize, page*pageSize)

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: nodes page: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

// NodesForAddresses returns the active nodes matching the given addresses.
func (s *Store) NodesForAddresses(addrs []string) ([]Node, error) {
	if len(addrs) == 0 {
		return nil, nil
	}
	q, args := inClause(`SELECT dst, identity, name, time, created_at, updated_at, rank, removed,
	             announce_alpha, announce_beta, announce_window_seconds, announce_k_events
	      FROM nodes WHERE removed = 0 AND dst IN (%s)`, addrs)
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: nodes for addresses: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

// RecentNodesForCrawl returns the addresses of active nodes seen within
// withinSeconds of now, most recent first — the crawl seed set.
func (s *Store) RecentNodesForCrawl(now, withinSeconds float64) ([]string, error) {
	minTs := now - withinSeconds
	rows, err := s.db.Query(`
		SELECT dst FROM nodes WHERE time >= ? AND removed = 0 ORDER BY time DESC
	`, minTs)
	if err != nil {
		return nil, fmt.Errorf("store: recent nodes for crawl: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var dst string
		if err := rows.Scan(&dst); err != nil {
			return nil, fmt.Errorf("store: scan recent node: %w", err)
		}
		out = append(out, dst)
	}
	return out, rows.Err()
}

// MarkStaleNodesRemoved marks every active node whose last-seen time is
// older than threshold as removed, cascading removal onto their citation
// edges, and returns the removed addresses.
func (s *Store) MarkStaleNodesRemoved(threshold float64) ([]string, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("store: mark stale nodes: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT dst FROM nodes WHERE removed = 0 AND time < ?`, threshold)
	if err != nil {
		return nil, fmt.Errorf("store: mark stale nodes: %w", err)
	}
	var removed []string
	for rows.Next() {
		var dst string
		if err := rows.Scan(&dst); err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: scan stale node: %w", err)
		}
		removed = append(removed, dst)
	}
	rows.Close()

	if len(removed) == 0 {
		return nil, tx.Commit()
	}

	if _, err := tx.Exec(`UPDATE nodes SET removed = 1 WHERE dst IN (`+placeholders(len(removed))+`)`, toArgs(removed)...); err != nil {
		return nil, fmt.Errorf("store: removing stale nodes: %w", err)
	}

	q := `UPDATE citations SET removed = 1 WHERE src_address IN (` + placeholders(len(removed)) + `) OR target_address IN (` + placeholders(len(removed)) + `)`
	args := append(append([]any{}, toArgs(removed)...), toArgs(removed)...)
	if _, err := tx.Exec(q, args...); err != nil {
		return nil, fmt.Errorf("store: removing stale citations: %w", err)
	}

	return removed, tx.Commit()
}

// UpdateSurvivalParams persists the refit announce-rate posterior for dst.
func (s *Store) UpdateSurvivalParams(dst string, alpha, beta, windowSeconds float64, kEvents int) error {
	_, err := s.db.Exec(`
		UPDATE nodes SET announce_alpha = ?, announce_beta = ?, announce_window_seconds = ?, announce_k_events = ?
		WHERE dst = ?
	`, alpha, beta, windowSeconds, kEvents, dst)
	if err != nil {
		return fmt.Errorf("store: update survival params for %q: %w", dst, err)
	}
	return nil
}

// ActiveNodeAddresses returns every non-removed node address — the vertex
// set for PageRank.
func (s *Store) ActiveNodeAddresses() ([]string, error) {
	rows, err := s.db.Query(`SELECT dst FROM nodes WHERE removed = 0`)
	if err != nil {
		return nil, fmt.Errorf("store: active node addresses: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var dst string
		if err := rows.Scan(&dst); err != nil {
			return nil, fmt.Errorf("store: scan node address: %w", err)
		}
		out = append(out, dst)
	}
	return out, rows.Err()
}

// UpdateRanks persists PageRank scores in chunks to avoid a single
// oversized statement.
func (s *Store) UpdateRanks(ranks map[string]float64, chunkSize int) error {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: update ranks: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`UPDATE nodes SET rank = ? WHERE dst = ?`)
	if err != nil {
		return fmt.Errorf("store: update ranks: %w", err)
	}
	defer stmt.Close()

	i := 0
	for dst, rank := range ranks {
		if _, err := stmt.Exec(rank, dst); err != nil {
			return fmt.Errorf("store: update rank for %q: %w", dst, err)
		}
		i++
		if i%chunkSize == 0 {
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("store: committing rank chunk: %w", err)
			}
			tx, err = s.db.Begin()
			if err != nil {
				return fmt.Errorf("store: update ranks: %w", err)
			}
			stmt, err = tx.Prepare(`UPDATE nodes SET rank = ? WHERE dst = ?`)
			if err != nil {
				return fmt.Errorf("store: update ranks: %w", err)
			}
		}
	}
	return tx.Commit()
}

func scanNode(row *sql.Row) (Node, error) {
	var n Node
	var removed int
	err := row.Scan(&n.DST, &n.Identity, &n.Name, &n.Time, &n.CreatedAt, &n.UpdatedAt, &n.Rank, &removed,
		&n.AnnounceAlpha, &n.AnnounceBeta, &n.AnnounceWindowSeconds, &n.AnnounceKEvents)
	if errors.Is(err, sql.ErrNoRows) {
		return Node{}, ErrNotFound
	}
	if err != nil {
		return Node{}, fmt.Errorf("store: scan node: %w", err)
	}
	n.Removed = removed != 0
	return n, nil
}

func scanNodes(rows *sql.Rows) ([]Node, error) {
	var out []Node
	for rows.Next() {
		var n Node
		var removed int
		if err := rows.Scan(&n.DST, &n.Identity, &n.Name, &n.Time, &n.CreatedAt, &n.UpdatedAt, &n.Rank, &removed,
			&n.AnnounceAlpha, &n.AnnounceBeta, &n.AnnounceWindowSeconds, &n.AnnounceKEvents); err != nil {
			return nil, fmt.Errorf("store: scan node row: %w", err)
		}
		n.Removed = removed != 0
		out = append(out, n)
	}
	return out, rows.Err()
}

func inClause(tmpl string, values []string) (string, []any) {
	return fmt.Sprintf(tmpl, placeholders(len(values))), toArgs(values)
}

func placeholders(n int) string {
	ph := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		if i > 0 {
			ph = append(ph, ',')
		}
		ph = append(ph, '?')
	}
	return string(ph)
}

func toArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
