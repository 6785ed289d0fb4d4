// Package fulltext implements the BM25-ish full-text index: page
// text, owner, node address, and node name are indexed with per-field
// analyzers/boosts, and queries are served through an LRU+TTL result cache.
package fulltext

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Document is a single indexed page. Raw duplicates Text verbatim but is
// stored unanalyzed, so snippet generation always has the original text
// to slice regardless of what the text analyzer did to the indexed copy.
type Document struct {
	URL      string
	Text     string
	Owner    string
	Address  string
	NodeName string
	Raw      string
}

// Hit is a single raw match returned by the index, before re-ranking.
type Hit struct {
	URL      string
	Text     string
	Owner    string
	Address  string
	NodeName string
	Raw      string
	Score    float64
}

// batchSize documents are buffered before a commit; every optimizeEvery
// commits the optimize counter in the sidecar metadata is reset. No
// separate optimize or segment-merge step is run on the bleve index.
const (
	batchSize     = 10
	optimizeEvery = 25
)

// metadata is the sidecar file tracking commit/optimize bookkeeping across
// process restarts.
type metadata struct {
	CommitsSinceOptimize int `toml:"commits_since_optimize"`
	TotalCommits         int `toml:"total_commits"`
}

// Index wraps a bleve index with batched writes and a query cache.
type Index struct {
	mu       sync.Mutex
	bi       bleve.Index
	metaPath string
	meta     metadata
	pending  []Document

	cache *queryCache
}

// Open opens (creating if necessary) the index under dir.
func Open(dir string) (*Index, error) {
	indexPath := filepath.Join(dir, "search_index")
	metaPath := filepath.Join(dir, "search_index.meta.toml")

	bi, err := bleve.Open(indexPath)
	if err != nil {
		bi, err = bleve.New(indexPath, buildMapping())
		if err != nil {
			return nil, fmt.Errorf("fulltext: creating index at %q: %w", indexPath, err)
		}
	}

	idx := &Index{bi: bi, metaPath: metaPath, cache: newQueryCache(200, defaultCacheTTLSeconds)}
	if data, err := os.ReadFile(metaPath); err == nil {
		if _, err := toml.Decode(string(data), &idx.meta); err != nil {
			return nil, fmt.Errorf("fulltext: decoding metadata %q: %w", metaPath, err)
		}
	}
	return idx, nil
}

// Close releases the underlying index.
func (idx *Index) Close() error {
	return idx.bi.Close()
}

// buildMapping defines the field schema: url is a stored keyword, text
// uses the default standard analyzer (no stemming), owner/address are
// unanalyzed keywords, and nodeName is also a keyword, matched whole with
// no n-gram partial matching. nodeName's extra boost is applied at query
// time in Query, since a name match is a stronger signal than a body-text
// match.
func buildMapping() *mapping.IndexMappingImpl {
	m := bleve.NewIndexMapping()

	doc := bleve.NewDocumentMapping()

	urlField := bleve.NewTextFieldMapping()
	urlField.Analyzer = keyword.Name
	doc.AddFieldMappingsAt("URL", urlField)

	textField := bleve.NewTextFieldMapping()
	doc.AddFieldMappingsAt("Text", textField)

	ownerField := bleve.NewTextFieldMapping()
	ownerField.Analyzer = keyword.Name
	doc.AddFieldMappingsAt("Owner", ownerField)

	addressField := bleve.NewTextFieldMapping()
	addressField.Analyzer = keyword.Name
	doc.AddFieldMappingsAt("Address", addressField)

	nodeNameField := bleve.NewTextFieldMapping()
	nodeNameField.Analyzer = keyword.Name
	doc.AddFieldMappingsAt("NodeName", nodeNameField)

	rawField := bleve.NewTextFieldMapping()
	rawField.Index = false
	rawField.Store = true
	doc.AddFieldMappingsAt("Raw", rawField)

	m.DefaultMapping = doc
	return m
}

// IndexPage queues a single page for writing. It satisfies
// crawl.PageIndexer.
func (idx *Index) IndexPage(url, owner, address, nodeName, text string) error {
	return idx.IndexDocuments([]Document{{URL: url, Text: text, Owner: owner, Address: address, NodeName: nodeName, Raw: text}})
}

// IndexDocuments queues docs for writing. The queue is committed once it
// reaches batchSize (every optimizeEvery batches only the optimize
// counter is reset); call Flush to force a commit of whatever remains
// queued.
func (idx *Index) IndexDocuments(docs []Document) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.pending = append(idx.pending, docs...)
	for len(idx.pending) >= batchSize {
		if err := idx.commitLocked(idx.pending[:batchSize], false); err != nil {
			return err
		}
		idx.pending = idx.pending[batchSize:]
	}
	return nil
}

// Flush commits whatever remains in the pending write queue immediately.
// forceOptimize resets the optimize counter regardless of the
// optimizeEvery cadence; no separate optimize step is run. The on-demand
// crawl passes true; the scheduler's crawl cycle flushes without it.
func (idx *Index) Flush(forceOptimize ...bool) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	optimize := len(forceOptimize) > 0 && forceOptimize[0]
	if len(idx.pending) == 0 {
		if optimize {
			return idx.optimizeLocked()
		}
		return nil
	}

	if err := idx.commitLocked(idx.pending, optimize); err != nil {
		return err
	}
	idx.pending = nil
	return nil
}

func (idx *Index) commitLocked(docs []Document, forceOptimize bool) error {
	batch := idx.bi.NewBatch()
	for _, doc := range docs {
		if doc.Raw == "" {
			doc.Raw = doc.Text
		}
		if err := batch.Index(doc.URL, doc); err != nil {
			return fmt.Errorf("fulltext: batching %q: %w", doc.URL, err)
		}
	}
	if err := idx.bi.Batch(batch); err != nil {
		return fmt.Errorf("fulltext: committing batch: %w", err)
	}

	idx.meta.TotalCommits++
	idx.meta.CommitsSinceOptimize++
	optimizeNow := forceOptimize || idx.meta.CommitsSinceOptimize >= optimizeEvery
	if optimizeNow {
		idx.meta.CommitsSinceOptimize = 0
	}

	idx.cache.clear()
	return idx.saveMeta()
}

// optimizeLocked records an optimize pass with nothing new to write —
// bleve compacts its own segments internally, so this only resets the
// bookkeeping counter.
func (idx *Index) optimizeLocked() error {
	idx.meta.CommitsSinceOptimize = 0
	return idx.saveMeta()
}

func (idx *Index) saveMeta() error {
	f, err := os.Create(idx.metaPath)
	if err != nil {
		return fmt.Errorf("fulltext: writing metadata: %w", err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(idx.meta)
}

// DocCount returns the number of indexed documents.
func (idx *Index) DocCount() (uint64, error) {
	n, err := idx.bi.DocCount()
	if err != nil {
		return 0, fmt.Errorf("fulltext: doc count: %w", err)
	}
	return n, nil
}

// maxCandidates bounds the otherwise-unlimited candidate list bleve
// returns per query; the re-ranker, not this bound, is what actually caps
// what a caller sees.
const maxCandidates = 5000

// Query performs a multi-field OR search across url/text/nodeName/owner/
// address and returns the full (bounded by maxCandidates) candidate list,
// unranked beyond bleve's own BM25F score — the caller's re-ranker dedupes,
// caps per address, and fuses the final ordering.
func (idx *Index) Query(q string, maxResults int) ([]Hit, error) {
	q = strings.TrimSpace(q)
	if maxResults <= 0 {
		maxResults = maxCandidates
	}

	if cached, ok := idx.cache.get(q, maxResults); ok {
		return cached, nil
	}

	dq := bleve.NewDisjunctionQuery(
		bleve.NewMatchQuery(q),
		weighted(bleve.NewMatchQuery(q), "Text", 1.0),
		weighted(bleve.NewMatchQuery(q), "NodeName", 2.0),
		weighted(bleve.NewMatchQuery(q), "Owner", 1.0),
		weighted(bleve.NewMatchQuery(q), "Address", 1.0),
	)

	req := bleve.NewSearchRequest(dq)
	req.Size = maxResults
	req.Fields = []string{"URL", "Text", "Owner", "Address", "NodeName", "Raw"}

	res, err := idx.bi.Search(req)
	if err != nil {
		return nil, fmt.Errorf("fulltext: query %q: %w", q, err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{
			URL:      fieldString(h.Fields, "URL"),
			Text:     fieldString(h.Fields, "Text"),
			Owner:    fieldString(h.Fields, "Owner"),
			Address:  fieldString(h.Fields, "Address"),
			NodeName: fieldString(h.Fields, "NodeName"),
			Raw:      fieldString(h.Fields, "Raw"),
			Score:    h.Score,
		})
	}

	idx.cache.put(q, maxResults, hits)
	return hits, nil
}

// DeleteByAddress removes every indexed document whose address is in the
// given set, called after stale-node removal so a dead node's pages stop
// showing up in search.
func (idx *Index) DeleteByAddress(addresses []string) error {
	if len(addresses) == 0 {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	terms := make([]query.Query, len(addresses))
	for i, a := range addresses {
		tq := bleve.NewTermQuery(a)
		tq.SetField("Address")
		terms[i] = tq
	}
	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(terms...))
	req.Fields = []string{"URL"}
	req.Size = maxCandidates

	res, err := idx.bi.Search(req)
	if err != nil {
		return fmt.Errorf("fulltext: searching docs by address: %w", err)
	}

	if len(res.Hits) == 0 {
		return nil
	}

	batch := idx.bi.NewBatch()
	for _, h := range res.Hits {
		batch.Delete(h.ID)
	}
	if err := idx.bi.Batch(batch); err != nil {
		return fmt.Errorf("fulltext: deleting docs by address: %w", err)
	}

	idx.cache.clear()
	return nil
}

// Snippet builds a short, query-relevant fragment of raw text: a window
// of fragmentSize characters centered on the first case-insensitive
// occurrence of q, or the first 200 characters of raw when q isn't found.
func Snippet(raw, q string, fragmentSize int) string {
	if fragmentSize <= 0 {
		fragmentSize = 100
	}

	idx := strings.Index(strings.ToLower(raw), strings.ToLower(strings.TrimSpace(q)))
	if idx < 0 {
		if len(raw) <= 200 {
			return raw
		}
		return raw[:200]
	}

	half := fragmentSize / 2
	start := max(0, idx-half)
	end := min(len(raw), idx+half)
	return raw[start:end]
}

func weighted(q *query.MatchQuery, field string, boost float64) *query.MatchQuery {
	q.SetField(field)
	q.SetBoost(boost)
	return q
}

func fieldString(fields map[string]any, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}
