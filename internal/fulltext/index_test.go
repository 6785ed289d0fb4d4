package fulltext

import (
	"strings"
	"testing"
)

func TestIndexAndQuery(t *testing.T) {
	idx, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	docs := []Document{
		{URL: "addr1:/page/a.mu", Text: "waystone search engine overview", Owner: "addr1", Address: "addr1", NodeName: "Alpha Node"},
		{URL: "addr2:/page/b.mu", Text: "unrelated gardening notes", Owner: "addr2", Address: "addr2", NodeName: "Beta Node"},
	}
	if err := idx.IndexDocuments(docs); err != nil {
		t.Fatalf("IndexDocuments: %v", err)
	}
	if err := idx.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	count, err := idx.DocCount()
	if err != nil {
		t.Fatalf("DocCount: %v", err)
	}
	if count != 2 {
		t.Errorf("DocCount = %d, want 2", count)
	}

	hits, err := idx.Query("waystone", 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected at least one hit")
	}
	if hits[0].URL != "addr1:/page/a.mu" {
		t.Errorf("top hit = %+v", hits[0])
	}
}

func TestFlushCommitsBelowBatchSize(t *testing.T) {
	idx, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	if err := idx.IndexPage("addr1:/page/a.mu", "", "addr1", "Alpha", "small batch"); err != nil {
		t.Fatalf("IndexPage: %v", err)
	}

	count, err := idx.DocCount()
	if err != nil {
		t.Fatalf("DocCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected nothing committed before Flush, got %d", count)
	}

	if err := idx.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	count, err = idx.DocCount()
	if err != nil {
		t.Fatalf("DocCount: %v", err)
	}
	if count != 1 {
		t.Errorf("DocCount after Flush = %d, want 1", count)
	}
}

func TestDeleteByAddress(t *testing.T) {
	idx, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	docs := []Document{
		{URL: "addr1:/a.mu", Text: "one", Address: "addr1"},
		{URL: "addr1:/b.mu", Text: "two", Address: "addr1"},
		{URL: "addr2:/c.mu", Text: "three", Address: "addr2"},
	}
	if err := idx.IndexDocuments(docs); err != nil {
		t.Fatalf("IndexDocuments: %v", err)
	}
	if err := idx.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if err := idx.DeleteByAddress([]string{"addr1"}); err != nil {
		t.Fatalf("DeleteByAddress: %v", err)
	}

	count, err := idx.DocCount()
	if err != nil {
		t.Fatalf("DocCount: %v", err)
	}
	if count != 1 {
		t.Errorf("DocCount after delete = %d, want 1", count)
	}
}

func TestSnippetFindsQueryWindow(t *testing.T) {
	raw := "the quick brown fox jumps over the lazy dog in the meadow"
	snippet := Snippet(raw, "fox", 10)
	if !strings.Contains(snippet, "fox") {
		t.Errorf("snippet %q should contain the query term", snippet)
	}
}

func TestSnippetFallsBackWhenNotFound(t *testing.T) {
	raw := strings.Repeat("a", 300)
	snippet := Snippet(raw, "notpresent", 100)
	if snippet != raw[:200] {
		t.Errorf("expected first-200-char fallback, got len %d", len(snippet))
	}
}

func TestQueryCacheServesRepeatedQueries(t *testing.T) {
	c := newQueryCache(10, 60)
	c.put("hello", 20, []Hit{{URL: "a"}})

	hits, ok := c.get("hello", 20)
	if !ok || len(hits) != 1 {
		t.Fatalf("expected cache hit, got ok=%v hits=%v", ok, hits)
	}

	if _, ok := c.get("hello", 5); ok {
		t.Error("different maxResults should be a different cache key")
	}

	c.clear()
	if _, ok := c.get("hello", 20); ok {
		t.Error("expected cache to be empty after clear")
	}
}

func TestQueryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := newQueryCache(2, 60)
	c.put("a", 0, []Hit{{URL: "a"}})
	c.put("b", 0, []Hit{{URL: "b"}})

	// touch a so b becomes the least recently used entry
	if _, ok := c.get("a", 0); !ok {
		t.Fatal("expected a to be cached")
	}

	c.put("c", 0, []Hit{{URL: "c"}})

	if _, ok := c.get("b", 0); ok {
		t.Error("expected b to be evicted as least recently used")
	}
	if _, ok := c.get("a", 0); !ok {
		t.Error("expected a to survive eviction")
	}
	if _, ok := c.get("c", 0); !ok {
		t.Error("expected c to be cached")
	}
}
