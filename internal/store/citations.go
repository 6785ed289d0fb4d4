package store

import (
	"fmt"

	"github.com/latebit/waystone/internal/pagerank"
)

// Citation mirrors a row of the citations table: a directed edge
// src_address -> target_address discovered by the crawler.
type Citation struct {
	SrcAddress    string
	TargetAddress string
	Removed       bool
	CreatedAt     float64
}

// CitationEdgesFor returns every non-removed src_address linking to
// target_address.
func (s *Store) CitationEdgesFor(targetAddress string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT src_address FROM citations WHERE target_address = ? AND removed = 0
	`, targetAddress)
	if err != nil {
		return nil, fmt.Errorf("store: citation edges for %q: %w", targetAddress, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, fmt.Errorf("store: scan citation edge: %w", err)
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

// CitationCount returns the number of non-removed edges pointing at
// targetAddress, served through the service's CitationCount API.
func (s *Store) CitationCount(targetAddress string) (int, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM citations WHERE target_address = ? AND removed = 0
	`, targetAddress).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: citation count for %q: %w", targetAddress, err)
	}
	return n, nil
}

// AllActiveCitations returns every non-removed edge in the citation graph,
// the adjacency list PageRank iterates over.
func (s *Store) AllActiveCitations() ([]Citation, error) {
	rows, err := s.db.Query(`
		SELECT src_address, target_address, removed, created_at FROM citations WHERE removed = 0
	`)
	if err != nil {
		return nil, fmt.Errorf("store: all active citations: %w", err)
	}
	defer rows.Close()

	var out []Citation
	for rows.Next() {
		var c Citation
		var removed int
		if err := rows.Scan(&c.SrcAddress, &c.TargetAddress, &removed, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan citation: %w", err)
		}
		c.Removed = removed != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// AllActiveEdges returns every non-removed citation edge as PageRank
// input.
func (s *Store) AllActiveEdges() ([]pagerank.Edge, error) {
	citations, err := s.AllActiveCitations()
	if err != nil {
		return nil, err
	}
	edges := make([]pagerank.Edge, len(citations))
	for i, c := range citations {
		edges[i] = pagerank.Edge{Src: c.SrcAddress, Dst: c.TargetAddress}
	}
	return edges, nil
}

// UpsertCitation (re)activates the src->target edge, creating it if absent.
func (s *Store) UpsertCitation(src, target string, now float64) error {
	_, err := s.db.Exec(`
		INSERT INTO citations (src_address, target_address, removed, created_at)
		VALUES (?, ?, 0, ?)
		ON CONFLICT(target_address, src_address) DO UPDATE SET removed = 0
	`, src, target, now)
	if err != nil {
		return fmt.Errorf("store: upsert citation %q->%q: %w", src, target, err)
	}
	return nil
}

// RemoveCitation soft-deletes the src->target edge if present.
func (s *Store) RemoveCitation(src, target string) error {
	_, err := s.db.Exec(`
		UPDATE citations SET removed = 1 WHERE src_address = ? AND target_address = ?
	`, src, target)
	if err != nil {
		return fmt.Errorf("store: remove citation %q->%q: %w", src, target, err)
	}
	return nil
}

// CitationsFromSrc returns every non-removed target_address that
// src_address currently cites, the basis for a diff against a freshly
// crawled link set.
func (s *Store) CitationsFromSrc(srcAddress string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT target_address FROM citations WHERE src_address = ? AND removed = 0
	`, srcAddress)
	if err != nil {
		return nil, fmt.Errorf("store: citations from %q: %w", srcAddress, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, fmt.Errorf("store: scan citation target: %w", err)
		}
		out = append(out, target)
	}
	return out, rows.Err()
}
