// Package service assembles every collaborator (store, full-text index,
// crawler, citation graph, scheduler) into a single owned App, and exposes
// the page-request API consumed by the out-of-scope dispatch framework and
// by internal/mcp and internal/tui. Nothing in this package is a package-
// level global; every dependency is constructed once in New and threaded
// through by value.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/latebit/waystone/internal/announce"
	"github.com/latebit/waystone/internal/citations"
	"github.com/latebit/waystone/internal/config"
	"github.com/latebit/waystone/internal/crawl"
	"github.com/latebit/waystone/internal/fulltext"
	"github.com/latebit/waystone/internal/pagerank"
	"github.com/latebit/waystone/internal/rerank"
	"github.com/latebit/waystone/internal/scheduler"
	"github.com/latebit/waystone/internal/store"
	"github.com/latebit/waystone/internal/transport"
)

// SearchResult is one final, display-ready hit returned from Query.
type SearchResult struct {
	URL     string
	Text    string
	Owner   string
	Address string
	Name    string
	Score   float64
}

// NodeSummary is the subset of a node record surfaced to callers.
type NodeSummary struct {
	DST      string
	Identity string
	Name     string
	LastSeen float64
	Rank     float64
}

// PeerSummary is the subset of a peer record surfaced to callers.
type PeerSummary struct {
	DST      string
	Identity string
	Name     string
	LastSeen float64
}

// HistoryEntry is one past search a remote user issued.
type HistoryEntry struct {
	Query string
	Time  float64
}

// App owns every collaborator and implements the page-request API
// consumed by page handlers and the MCP/TUI frontends.
type App struct {
	cfg       *config.Config
	store     *store.Store
	index     *fulltext.Index
	graph     *citations.Graph
	announce  *announce.Handler
	transport transport.Transport
	scheduler *scheduler.Scheduler
	log       *slog.Logger
	selfDST   string
}

// Clock returns the current Unix timestamp, injected for tests.
type Clock func() float64

// New builds an App from its configuration, opening the store and index
// and wiring every collaborator. selfDST is this node's own address, used
// by the scheduler's periodic self-announce job.
func New(cfg *config.Config, t transport.Transport, selfDST string, clock Clock, log *slog.Logger) (*App, error) {
	st, err := store.Open(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("service: opening store: %w", err)
	}

	idx, err := fulltext.Open(cfg.StoragePath)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("service: opening full-text index: %w", err)
	}

	wallClock := func() float64 { return clock() }
	graph := citations.New(st, wallClock)
	announcer := announce.NewHandler(st, wallClock, log)

	a := &App{
		cfg:       cfg,
		store:     st,
		index:     idx,
		graph:     graph,
		announce:  announcer,
		transport: t,
		log:       log,
		selfDST:   selfDST,
	}

	a.scheduler = scheduler.New(scheduler.Options{
		CrawlWorkers:    cfg.CrawlerThreads,
		NodeRemoveAfter: cfg.NodeRemoveAfter,
		LogPath:         cfg.LogPath,
	}, st, idx, a, func() *crawl.Pool {
		return a.newCrawlPool(clock)
	}, func() time.Time { return time.Unix(int64(clock()), 0).UTC() }, log)

	return a, nil
}

// Close releases the store and index.
func (a *App) Close() error {
	if err := a.index.Close(); err != nil {
		a.log.Warn("closing full-text index", "error", err)
	}
	return a.store.Close()
}

// RunScheduler blocks running every periodic job until ctx is cancelled.
func (a *App) RunScheduler(ctx context.Context) {
	a.scheduler.Run(ctx)
}

// RunCrawlOnce runs a single crawl cycle synchronously, seeding from every
// non-removed node seen within windowSeconds of now. Used by the `crawl`
// CLI subcommand for an on-demand pass outside the scheduler's cadence.
func (a *App) RunCrawlOnce(ctx context.Context, now, windowSeconds float64) (int64, error) {
	dsts, err := a.store.RecentNodesForCrawl(now, windowSeconds)
	if err != nil {
		return 0, err
	}
	seeds := make([]string, len(dsts))
	for i, dst := range dsts {
		seeds[i] = dst + ":/page/index.mu"
	}

	clockFn := func() float64 { return now }
	pool := a.newCrawlPool(clockFn)
	crawled, err := pool.Run(ctx, seeds)
	if err != nil && ctx.Err() == nil {
		return crawled, err
	}
	return crawled, a.index.Flush(true)
}

func (a *App) newCrawlPool(clock Clock) *crawl.Pool {
	opts := crawl.Options{
		Workers:      a.cfg.CrawlerThreads,
		QueueMaxSize: a.cfg.QueueMaxSize,
		VisitedTTL:   a.cfg.VisitedCacheTTL,
	}
	return crawl.New(opts, a.transport, a.store, a.graph, a.index, crawl.Clock(clock), a.log)
}

// AnnounceSelf implements scheduler.Announcer by refreshing this node's own
// presence row. Broadcasting the announce itself is the overlay
// transport's responsibility, out of this package's scope.
func (a *App) AnnounceSelf() error {
	if a.selfDST == "" {
		return nil
	}
	now := float64(time.Now().Unix())
	return a.store.UpsertNode(a.selfDST, a.selfDST, a.cfg.AnnounceName, now, now)
}

// ReceivedAnnounce forwards an inbound overlay announcement to the
// announce handler.
func (a *App) ReceivedAnnounce(appName string, destinationHash, identityHash, appData []byte) {
	a.announce.ReceivedAnnounce(appName, destinationHash, identityHash, appData)
}

// RunPageRank recomputes and persists PageRank scores immediately. Used by
// the `pagerank` CLI subcommand; the scheduler's 6h cadence runs its own
// PageRank job.
func (a *App) RunPageRank() error {
	vertices, err := a.store.ActiveNodeAddresses()
	if err != nil {
		return err
	}
	edges, err := a.store.AllActiveEdges()
	if err != nil {
		return err
	}
	ranks, err := pagerank.Compute(edges, vertices, pagerank.Options{})
	if err != nil {
		return err
	}
	return a.store.UpdateRanks(ranks, 500)
}

// RefitSurvival re-derives and persists the announce-rate posterior for
// every node seen in the recent announce logs.
func (a *App) RefitSurvival() error {
	return a.scheduler.RefitSurvival(a.cfg.LogPath)
}

// GetIndexSize returns the number of documents in the full-text index.
func (a *App) GetIndexSize() (uint64, error) {
	return a.index.DocCount()
}

// Query runs a full-text search, re-ranks it, logs the query, and returns
// display-ready results.
func (a *App) Query(q string) ([]SearchResult, error) {
	hits, err := a.index.Query(q, 0)
	if err != nil {
		return nil, err
	}

	candidates := make([]rerank.Candidate, len(hits))
	for i, h := range hits {
		name := h.NodeName
		if name == "" {
			name = h.URL
		}
		candidates[i] = rerank.Candidate{
			URL:     h.URL,
			Text:    fulltext.Snippet(h.Raw, q, 100),
			Owner:   h.Owner,
			Address: h.Address,
			Name:    name,
			Score:   h.Score,
		}
	}

	now := float64(time.Now().Unix())
	ranked, err := rerank.Rerank(candidates, featureSource{a.store}, now, rerank.Options{})
	if err != nil {
		return nil, err
	}

	out := make([]SearchResult, len(ranked))
	for i, r := range ranked {
		out[i] = SearchResult{URL: r.URL, Text: r.Text, Owner: r.Owner, Address: r.Address, Name: r.Name, Score: r.Score}
	}

	if err := a.store.LogSearchQuery(q, now); err != nil {
		a.log.Warn("logging search query", "error", err)
	}
	return out, nil
}

// CountNodes returns the number of active nodes.
func (a *App) CountNodes() (int, error) { return a.store.CountNodes() }

// CountPeers returns the number of known peers.
func (a *App) CountPeers() (int, error) { return a.store.CountPeers() }

// GetNodesPage returns a page of active nodes, optionally filtered by q.
func (a *App) GetNodesPage(page, pageSize int, q string) ([]NodeSummary, error) {
	nodes, err := a.store.NodesPage(page, pageSize, q)
	if err != nil {
		return nil, err
	}
	return toNodeSummaries(nodes), nil
}

// GetPeersPage returns a page of known peers, optionally filtered by q.
func (a *App) GetPeersPage(page, pageSize int, q string) ([]PeerSummary, error) {
	peers, err := a.store.PeersPage(page, pageSize, q)
	if err != nil {
		return nil, err
	}
	out := make([]PeerSummary, len(peers))
	for i, p := range peers {
		out[i] = PeerSummary{DST: p.DST, Identity: p.Identity, Name: p.Name, LastSeen: p.Time}
	}
	return out, nil
}

// GetNodesForAddresses returns the active nodes matching the given
// addresses.
func (a *App) GetNodesForAddresses(addrs []string) ([]NodeSummary, error) {
	nodes, err := a.store.NodesForAddresses(addrs)
	if err != nil {
		return nil, err
	}
	return toNodeSummaries(nodes), nil
}

// FindNodeByAddress returns the active node with the given address.
func (a *App) FindNodeByAddress(addr string) (NodeSummary, error) {
	n, err := a.store.FindNodeByAddress(addr)
	if err != nil {
		return NodeSummary{}, err
	}
	return toNodeSummaries([]store.Node{n})[0], nil
}

// FindOwner returns the peer registered under the given identity.
func (a *App) FindOwner(identity string) (PeerSummary, error) {
	p, err := a.store.FindOwner(identity)
	if err != nil {
		return PeerSummary{}, err
	}
	return PeerSummary{DST: p.DST, Identity: p.Identity, Name: p.Name, LastSeen: p.Time}, nil
}

// CitationsOf returns the source addresses citing addr.
func (a *App) CitationsOf(addr string) ([]string, error) {
	return a.store.CitationEdgesFor(addr)
}

// CitationCount returns the number of sources citing addr.
func (a *App) CitationCount(addr string) (int, error) {
	return a.store.CitationCount(addr)
}

// AddSearchQuery appends q to the global search query log.
func (a *App) AddSearchQuery(q string) error {
	return a.store.LogSearchQuery(q, float64(time.Now().Unix()))
}

// RecentSearchQueries returns the most recent limit logged queries.
func (a *App) RecentSearchQueries(limit int) ([]string, error) {
	return a.store.RecentSearchQueries(limit)
}

// AddHistory appends a search to remoteIdentity's per-user history.
func (a *App) AddHistory(remoteIdentity, query string) error {
	return a.store.SaveUserSearch(remoteIdentity, query, float64(time.Now().Unix()))
}

// ListHistory returns a page of remoteIdentity's past searches.
func (a *App) ListHistory(remoteIdentity string, page, pageSize int) ([]HistoryEntry, error) {
	entries, err := a.store.UserHistoryPage(remoteIdentity, page, pageSize)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = HistoryEntry{Query: e.Query, Time: e.Time}
	}
	return out, nil
}

// CountHistory returns how many searches remoteIdentity has on record.
func (a *App) CountHistory(remoteIdentity string) (int, error) {
	return a.store.UserHistoryCount(remoteIdentity)
}

func toNodeSummaries(nodes []store.Node) []NodeSummary {
	out := make([]NodeSummary, len(nodes))
	for i, n := range nodes {
		out[i] = NodeSummary{DST: n.DST, Identity: n.Identity, Name: n.Name, LastSeen: n.Time, Rank: n.Rank}
	}
	return out
}

// featureSource adapts *store.Store to rerank.FeatureSource.
type featureSource struct {
	store *store.Store
}

func (f featureSource) NodeFeatures(addresses []string) (map[string]rerank.NodeFeatures, error) {
	nodes, err := f.store.NodesForAddresses(addresses)
	if err != nil {
		return nil, err
	}
	out := make(map[string]rerank.NodeFeatures, len(nodes))
	for _, n := range nodes {
		out[n.DST] = rerank.NodeFeatures{
			Rank:     n.Rank,
			LastSeen: n.Time,
			Alpha:    n.AnnounceAlpha.Float64,
			Beta:     n.AnnounceBeta.Float64,
			HasAlive: n.AnnounceAlpha.Valid && n.AnnounceBeta.Valid,
		}
	}
	return out, nil
}
