package store

import "testing"

func TestNodeUpsertAndFind(t *testing.T) {
	s := openTestStore(t)

	if err := s.UpsertNode("addr1", "id1", "Node One", 100, 100); err != nil {
		t.Fatalf("UpsertNode: %v", err)
	}
	n, err := s.FindNodeByAddress("addr1")
	if err != nil {
		t.Fatalf("FindNodeByAddress: %v", err)
	}
	if n.Name != "Node One" || n.Removed {
		t.Errorf("unexpected node: %+v", n)
	}

	if err := s.UpsertNode("addr1", "id1", "Node One Renamed", 200, 200); err != nil {
		t.Fatalf("UpsertNode refresh: %v", err)
	}
	n, err = s.FindNodeByAddress("addr1")
	if err != nil {
		t.Fatalf("FindNodeByAddress after refresh: %v", err)
	}
	if n.Name != "Node One Renamed" || n.Time != 200 {
		t.Errorf("refresh not applied: %+v", n)
	}
}

func TestMarkStaleNodesRemovedCascadesCitations(t *testing.T) {
	s := openTestStore(t)

	mustUpsertNode(t, s, "a", 100)
	mustUpsertNode(t, s, "b", 100)
	if err := s.UpsertCitation("a", "b", 100); err != nil {
		t.Fatalf("UpsertCitation: %v", err)
	}

	removed, err := s.MarkStaleNodesRemoved(150)
	if err != nil {
		t.Fatalf("MarkStaleNodesRemoved: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("expected both nodes removed, got %v", removed)
	}

	if _, err := s.FindNodeByAddress("a"); err != ErrNotFound {
		t.Errorf("expected node a to be gone, got err=%v", err)
	}

	edges, err := s.CitationEdgesFor("b")
	if err != nil {
		t.Fatalf("CitationEdgesFor: %v", err)
	}
	if len(edges) != 0 {
		t.Errorf("expected citation to be cascaded away, got %v", edges)
	}
}

func TestCheckOrStamp(t *testing.T) {
	s := openTestStore(t)

	seen, err := s.CheckOrStamp("addr1:/page/a.mu", 1000, 3600)
	if err != nil {
		t.Fatalf("CheckOrStamp: %v", err)
	}
	if seen {
		t.Error("first visit should not be seen")
	}

	seen, err = s.CheckOrStamp("addr1:/page/a.mu", 1500, 3600)
	if err != nil {
		t.Fatalf("CheckOrStamp: %v", err)
	}
	if !seen {
		t.Error("visit within ttl should be seen")
	}

	seen, err = s.CheckOrStamp("addr1:/page/a.mu", 5000, 3600)
	if err != nil {
		t.Fatalf("CheckOrStamp: %v", err)
	}
	if seen {
		t.Error("visit past ttl should not be seen")
	}
}

func TestUserHistoryPageOrdering(t *testing.T) {
	s := openTestStore(t)

	for i, q := range []string{"first", "second", "third"} {
		if err := s.SaveUserSearch("user1", q, float64(100+i)); err != nil {
			t.Fatalf("SaveUserSearch: %v", err)
		}
	}

	page, err := s.UserHistoryPage("user1", 0, 2)
	if err != nil {
		t.Fatalf("UserHistoryPage: %v", err)
	}
	if len(page) != 2 || page[0].Query != "third" || page[1].Query != "second" {
		t.Errorf("unexpected page: %+v", page)
	}

	count, err := s.UserHistoryCount("user1")
	if err != nil {
		t.Fatalf("UserHistoryCount: %v", err)
	}
	if count != 3 {
		t.Errorf("UserHistoryCount = %d, want 3", count)
	}

	count, err = s.UserHistoryCount("nobody")
	if err != nil {
		t.Fatalf("UserHistoryCount: %v", err)
	}
	if count != 0 {
		t.Errorf("UserHistoryCount for unknown identity = %d, want 0", count)
	}
}

func mustUpsertNode(t *testing.T, s *Store, addr string, ts float64) {
	t.Helper()
	if err := s.UpsertNode(addr, addr+"-id", addr+"-name", ts, ts); err != nil {
		t.Fatalf("UpsertNode(%q): %v", addr, err)
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
