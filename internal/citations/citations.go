// Package citations maintains the citation graph: it diffs a page's
// freshly crawled outbound links against what's already recorded for that
// page's address and applies the minimal set of inserts/soft-deletes.
package citations

import (
	"fmt"

	"github.com/latebit/waystone/internal/markup"
	"github.com/latebit/waystone/internal/store"
)

// Store is the subset of *store.Store this package needs.
type Store interface {
	CitationsFromSrc(srcAddress string) ([]string, error)
	UpsertCitation(src, target string, now float64) error
	RemoveCitation(src, target string) error
}

var _ Store = (*store.Store)(nil)

// Clock returns the current Unix timestamp.
type Clock func() float64

// Graph applies crawled link sets to the citation store.
type Graph struct {
	store Store
	clock Clock
}

// New builds a citation Graph.
func New(s Store, clock Clock) *Graph {
	return &Graph{store: s, clock: clock}
}

// UpdateCitations recomputes src's outbound citation set from the page it
// was just crawled from, reactivating edges that reappeared, soft-deleting
// edges that disappeared, and inserting edges that are new. A link to src's
// own address, or to a malformed (non-32-hex) address, is ignored.
func (g *Graph) UpdateCitations(src string, linksTo []string) error {
	srcAddress := markup.AddressOf(src)

	wanted := make(map[string]struct{}, len(linksTo))
	for _, link := range linksTo {
		target := markup.AddressOf(link)
		if target == srcAddress || !markup.IsValidAddress(target) {
			continue
		}
		wanted[target] = struct{}{}
	}

	existing, err := g.store.CitationsFromSrc(srcAddress)
	if err != nil {
		return fmt.Errorf("citations: loading existing edges for %q: %w", srcAddress, err)
	}
	existingSet := make(map[string]struct{}, len(existing))
	for _, target := range existing {
		existingSet[target] = struct{}{}
	}

	now := g.clock()

	for target := range existingSet {
		if _, stillWanted := wanted[target]; !stillWanted {
			if err := g.store.RemoveCitation(srcAddress, target); err != nil {
				return fmt.Errorf("citations: removing %q->%q: %w", srcAddress, target, err)
			}
		}
	}

	for target := range wanted {
		if err := g.store.UpsertCitation(srcAddress, target, now); err != nil {
			return fmt.Errorf("citations: upserting %q->%q: %w", srcAddress, target, err)
		}
	}

	return nil
}
