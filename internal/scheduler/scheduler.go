// Package scheduler implements the periodic job runner: it
// re-announces this node, launches crawl cycles, recomputes PageRank,
// removes stale nodes, refits the liveness model, and logs process RSS,
// each on its own cadence.
package scheduler

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/latebit/waystone/internal/crawl"
	"github.com/latebit/waystone/internal/fulltext"
	"github.com/latebit/waystone/internal/liveness"
	"github.com/latebit/waystone/internal/pagerank"
	"github.com/latebit/waystone/internal/store"
)

var (
	_ Store = (*store.Store)(nil)
	_ Index = (*fulltext.Index)(nil)
)

// Store is the subset of *store.Store the scheduler needs.
type Store interface {
	RecentNodesForCrawl(now, withinSeconds float64) ([]string, error)
	ActiveNodeAddresses() ([]string, error)
	AllActiveEdges() ([]pagerank.Edge, error)
	UpdateRanks(ranks map[string]float64, chunkSize int) error
	MarkStaleNodesRemoved(threshold float64) ([]string, error)
	UpdateSurvivalParams(dst string, alpha, beta, windowSeconds float64, kEvents int) error
}

// Index is the subset of *fulltext.Index the stale-node sweep needs.
type Index interface {
	DeleteByAddress(addresses []string) error
	Flush(forceOptimize ...bool) error
}

// Announcer re-broadcasts this node's own presence on the overlay.
type Announcer interface {
	AnnounceSelf() error
}

// Clock returns the current wall-clock time, injected for tests.
type Clock func() time.Time

// Options configures the scheduler's job cadences and parameters. Zero
// values apply the defaults below.
type Options struct {
	AnnounceEvery     time.Duration // default 10m
	CrawlEvery        time.Duration // default 1h
	PageRankEvery     time.Duration // default 6h
	StaleSweepEvery   time.Duration // default 24h
	SurvivalEvery     time.Duration // default 24h
	RSSLogEvery       time.Duration // default 5m
	NodeRemoveAfter   time.Duration // staleness threshold for node removal
	CrawlWindow       time.Duration // how far back a node must have been seen to seed a crawl
	CrawlWorkers      int
	CrawlQueueMaxSize int
	LookbackDays      int // survival refit lookback
	LogPath           string
}

func (o *Options) applyDefaults() {
	if o.AnnounceEvery <= 0 {
		o.AnnounceEvery = 10 * time.Minute
	}
	if o.CrawlEvery <= 0 {
		o.CrawlEvery = time.Hour
	}
	if o.PageRankEvery <= 0 {
		o.PageRankEvery = 6 * time.Hour
	}
	if o.StaleSweepEvery <= 0 {
		o.StaleSweepEvery = 24 * time.Hour
	}
	if o.SurvivalEvery <= 0 {
		o.SurvivalEvery = 24 * time.Hour
	}
	if o.RSSLogEvery <= 0 {
		o.RSSLogEvery = 5 * time.Minute
	}
	if o.NodeRemoveAfter <= 0 {
		o.NodeRemoveAfter = 30 * 24 * time.Hour
	}
	if o.CrawlWindow <= 0 {
		o.CrawlWindow = o.NodeRemoveAfter
	}
	if o.CrawlWorkers <= 0 {
		o.CrawlWorkers = 5
	}
	if o.LookbackDays <= 0 {
		o.LookbackDays = 30
	}
}

// Scheduler drives every periodic job from a single select loop; crawls
// are dispatched to a background goroutine. Run blocks until ctx is
// cancelled.
type Scheduler struct {
	opts      Options
	store     Store
	index     Index
	announcer Announcer
	newCrawl  func() *crawl.Pool
	clock     Clock
	log       *slog.Logger

	crawling atomic.Bool
}

// New builds a Scheduler. newCrawl must return a freshly constructed
// crawl.Pool for each cycle (a Pool serves exactly one crawl pass).
func New(opts Options, s Store, idx Index, announcer Announcer, newCrawl func() *crawl.Pool, clock Clock, log *slog.Logger) *Scheduler {
	opts.applyDefaults()
	return &Scheduler{opts: opts, store: s, index: idx, announcer: announcer, newCrawl: newCrawl, clock: clock, log: log}
}

// Run blocks, dispatching jobs on their configured cadences, until ctx is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	announceT := time.NewTicker(s.opts.AnnounceEvery)
	crawlT := time.NewTicker(s.opts.CrawlEvery)
	rankT := time.NewTicker(s.opts.PageRankEvery)
	staleT := time.NewTicker(s.opts.StaleSweepEvery)
	survivalT := time.NewTicker(s.opts.SurvivalEvery)
	rssT := time.NewTicker(s.opts.RSSLogEvery)
	defer announceT.Stop()
	defer crawlT.Stop()
	defer rankT.Stop()
	defer staleT.Stop()
	defer survivalT.Stop()
	defer rssT.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-announceT.C:
			s.runJob("announce-self", s.jobAnnounceSelf)
		case <-crawlT.C:
			go s.runJob("crawl", func() error { return s.jobCrawl(ctx) })
		case <-rankT.C:
			s.runJob("pagerank", s.jobPageRank)
		case <-staleT.C:
			s.runJob("stale-sweep", s.jobStaleSweep)
		case <-survivalT.C:
			s.runJob("survival-refit", func() error { return s.RefitSurvival(s.opts.LogPath) })
		case <-rssT.C:
			s.runJob("rss-log", s.jobLogRSS)
		}
	}
}

// runJob invokes fn, recovering a panic so one failing job never brings
// down the scheduler loop.
func (s *Scheduler) runJob(name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("scheduled job panicked", "job", name, "panic", r)
		}
	}()
	if err := fn(); err != nil {
		s.log.Warn("scheduled job failed", "job", name, "error", err)
	}
}

func (s *Scheduler) jobAnnounceSelf() error {
	return s.announcer.AnnounceSelf()
}

// jobCrawl is non-reentrant: if a previous crawl cycle is still running,
// this tick is skipped rather than queued.
func (s *Scheduler) jobCrawl(ctx context.Context) error {
	if !s.crawling.CompareAndSwap(false, true) {
		s.log.Debug("crawl already in progress, skipping this cycle")
		return nil
	}
	defer s.crawling.Store(false)

	now := float64(s.clock().Unix())
	dsts, err := s.store.RecentNodesForCrawl(now, s.opts.CrawlWindow.Seconds())
	if err != nil {
		return err
	}

	seeds := make([]string, len(dsts))
	for i, dst := range dsts {
		seeds[i] = dst + ":/page/index.mu"
	}

	pool := s.newCrawl()
	crawled, err := pool.Run(ctx, seeds)
	if err != nil && ctx.Err() == nil {
		return err
	}
	s.log.Info("crawl cycle complete", "seeds", len(seeds), "pages_crawled", crawled)

	return s.index.Flush()
}

func (s *Scheduler) jobPageRank() error {
	vertices, err := s.store.ActiveNodeAddresses()
	if err != nil {
		return err
	}
	edges, err := s.store.AllActiveEdges()
	if err != nil {
		return err
	}
	ranks, err := pagerank.Compute(edges, vertices, pagerank.Options{})
	if err != nil {
		return err
	}
	s.log.Info("pagerank computed", "vertices", len(vertices), "edges", len(edges))
	return s.store.UpdateRanks(ranks, 500)
}

func (s *Scheduler) jobStaleSweep() error {
	threshold := float64(s.clock().Add(-s.opts.NodeRemoveAfter).Unix())
	removed, err := s.store.MarkStaleNodesRemoved(threshold)
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		return nil
	}
	s.log.Info("removed stale nodes", "count", len(removed))
	return s.index.DeleteByAddress(removed)
}

func (s *Scheduler) jobLogRSS() error {
	rss, ok := processRSSBytes()
	if !ok {
		return nil
	}
	s.log.Info("process memory", "rss_bytes", rss)
	return nil
}

// RefitSurvival re-derives the announce-rate posterior for every node seen
// in the recent announce logs under logDir and persists it. It is exposed
// separately from Run so the `recalc-survival` CLI subcommand can invoke it
// on demand without waiting for the periodic cadence.
func (s *Scheduler) RefitSurvival(logDir string) error {
	posteriors, err := liveness.RefitAll(logDir, s.clock(), s.opts.LookbackDays)
	if err != nil {
		return err
	}
	for dst, p := range posteriors {
		if err := s.store.UpdateSurvivalParams(dst, p.Alpha, p.Beta, p.WindowSeconds, p.KEvents); err != nil {
			return err
		}
	}
	s.log.Info("survival model refit", "nodes", len(posteriors))
	return nil
}

// processRSSBytes reads this process's resident set size from
// /proc/self/statm on Linux. It returns (0, false) on any other platform
// or on read failure, so the RSS-logging job degrades to a no-op instead
// of failing.
func processRSSBytes() (uint64, bool) {
	if runtime.GOOS != "linux" {
		return 0, false
	}
	data, err := os.ReadFile("/proc/self/statm")
	if err != nil {
		return 0, false
	}
	fields := strings.Fields(string(data))
	if len(fields) < 2 {
		return 0, false
	}
	pages, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return pages * uint64(os.Getpagesize()), true
}
