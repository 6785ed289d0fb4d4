package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// Peer mirrors a row of the peers table: a presence record for an LXMF
// delivery destination (a human user, as distinct from a content node).
type Peer struct {
	DST       string
	Identity  string
	Name      string
	Time      float64
	CreatedAt float64
	UpdatedAt float64
}

// UpsertPeer creates or refreshes a peer's presence row.
func (s *Store) UpsertPeer(dst, identity, name string, ts, now float64) error {
	_, err := s.db.Exec(`
		INSERT INTO peers (dst, identity, name, time, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(dst) DO UPDATE SET
			identity = excluded.identity,
			name = excluded.name,
			time = excluded.time,
			updated_at = excluded.updated_at
	`, dst, identity, name, ts, now, now)
	if err != nil {
		return fmt.Errorf("store: upsert peer %q: %w", dst, err)
	}
	return nil
}

// FindOwner returns the peer registered under the given identity.
func (s *Store) FindOwner(identity string) (Peer, error) {
	row := s.db.QueryRow(`
		SELECT dst, identity, name, time, created_at, updated_at
		FROM peers WHERE identity = ?
	`, identity)
	return scanPeer(row)
}

// CountPeers returns the number of known peers.
func (s *Store) CountPeers() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM peers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count peers: %w", err)
	}
	return n, nil
}

// PeersPage returns a page of peers ordered by recency, optionally
// filtered by a case-insensitive substring match on name or address.
func (s *Store) PeersPage(page, pageSize int, query string) ([]Peer, error) {
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 {
		pageSize = 100
	} else if pageSize > 1000 {
		pageSize = 1000
	}

	q := `SELECT dst, identity, name, time, created_at, updated_at FROM peers`
	args := []any{}
	if query != "" {
		q += ` WHERE name LIKE ? OR dst LIKE ?`
		like := "%" + query + "%"
		args = append(args, like, like)
	}
	q += ` ORDER BY time DESC LIMIT ? OFFSET ?`
	args = append(args, pageSize, page*pageSize)

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: peers page: %w", err)
	}
	defer rows.Close()

	var out []Peer
	for rows.Next() {
		var p Peer
		if err := rows.Scan(&p.DST, &p.Identity, &p.Name, &p.Time, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan peer row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPeer(row *sql.Row) (Peer, error) {
	var p Peer
	err := row.Scan(&p.DST, &p.Identity, &p.Name, &p.Time, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Peer{}, ErrNotFound
	}
	if err != nil {
		return Peer{}, fmt.Errorf("store: scan peer: %w", err)
	}
	return p, nil
}
