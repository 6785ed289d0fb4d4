// Package crawl implements the worker-pool crawler: it walks the
// overlay's link graph starting from recently-seen node addresses,
// fetching pages, extracting links, and feeding the citation graph and
// full-text index.
package crawl

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/latebit/waystone/internal/markup"
	"github.com/latebit/waystone/internal/transport"
	"github.com/latebit/waystone/internal/wire"
)

// VisitedCache deduplicates URLs within a TTL window so the same URL is
// not enqueued twice during one visited-cache window.
type VisitedCache interface {
	CheckOrStamp(url string, now, ttlSeconds float64) (bool, error)
}

// CitationRecorder records a page's outbound links into the citation graph.
type CitationRecorder interface {
	UpdateCitations(src string, linksTo []string) error
}

// PageIndexer hands a successfully fetched and stripped page off to the
// full-text index.
type PageIndexer interface {
	IndexPage(url, ownerName, nodeAddress, nodeName, text string) error
}

// Options configures a crawl Pool.
type Options struct {
	Workers      int           // concurrent fetch goroutines
	QueueMaxSize int           // bounded queue capacity
	VisitedTTL   time.Duration // visited-cache window
}

func (o *Options) applyDefaults() {
	if o.Workers <= 0 {
		o.Workers = 5
	}
	if o.QueueMaxSize <= 0 {
		o.QueueMaxSize = 1000
	}
	if o.VisitedTTL <= 0 {
		o.VisitedTTL = time.Hour
	}
}

// Clock returns the current Unix timestamp, injected for tests.
type Clock func() float64

// Pool is a bounded worker-pool crawler. One Pool serves one crawl pass;
// create a fresh Pool for each scheduled cycle.
type Pool struct {
	opts      Options
	transport transport.Transport
	visited   VisitedCache
	citations CitationRecorder
	index     PageIndexer
	clock     Clock
	log       *slog.Logger

	mu      sync.Mutex // serializes the full-check/visited-check/push sequence
	queue   chan string
	counter atomic.Int64
}

// New builds a crawl Pool wired to its collaborators.
func New(opts Options, t transport.Transport, visited VisitedCache, citations CitationRecorder, index PageIndexer, clock Clock, log *slog.Logger) *Pool {
	opts.applyDefaults()
	return &Pool{
		opts:      opts,
		transport: t,
		visited:   visited,
		citations: citations,
		index:     index,
		clock:     clock,
		log:       log,
		queue:     make(chan string, opts.QueueMaxSize),
	}
}

// Run seeds the queue with startURLs and crawls until every in-flight and
// discovered URL has been processed, or ctx is cancelled. It does not retry
// failed fetches — a URL that fails this pass is left for the next
// scheduled crawl cycle to try again.
func (p *Pool) Run(ctx context.Context, startURLs []string) (crawled int64, err error) {
	var wg sync.WaitGroup

	for i := 0; i < p.opts.Workers; i++ {
		go p.worker(ctx, &wg)
	}

	for _, url := range startURLs {
		p.enqueueURL(url, &wg)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		close(p.queue)
	case <-ctx.Done():
		// workers observe ctx between queue polls and exit on their own;
		// the queue stays open since an in-flight worker may still push
	}

	return p.counter.Load(), ctx.Err()
}

// enqueueURL applies the enqueue policy under one mutex: a full queue
// drops the URL with a warning, then the visited cache atomically
// stamps-or-refuses it, and only a fresh URL is pushed. Checking the
// cache before the push keeps a page cited from many sources from
// filling the bounded queue with copies of itself.
func (p *Pool) enqueueURL(url string, wg *sync.WaitGroup) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.queue) == cap(p.queue) {
		p.log.Warn("crawl queue full, dropping url", "url", url)
		return false
	}

	seen, err := p.visited.CheckOrStamp(url, p.clock(), p.opts.VisitedTTL.Seconds())
	if err != nil {
		p.log.Warn("visited cache check failed", "url", url, "error", err)
		return false
	}
	if seen {
		return false
	}

	wg.Add(1)
	// cannot block: the capacity check above runs under the same mutex
	// as every push
	p.queue <- url
	return true
}

func (p *Pool) worker(ctx context.Context, wg *sync.WaitGroup) {
	// Jitter startup so a fleet of workers doesn't open connections in lockstep.
	time.Sleep(time.Duration(rand.Float64() * float64(3*time.Second)))

	for {
		select {
		case <-ctx.Done():
			return
		case url, ok := <-p.queue:
			if !ok {
				return
			}
			p.processURL(ctx, url, wg)
			wg.Done()
		case <-time.After(time.Second):
			if ctx.Err() != nil {
				return
			}
		}
	}
}

func (p *Pool) processURL(ctx context.Context, url string, wg *sync.WaitGroup) {
	if !strings.Contains(url, ".mu") {
		return
	}

	address := markup.AddressOf(url)
	path := strings.TrimPrefix(url[len(address):], ":")
	resp, err := p.transport.Request(ctx, address, wire.VerbFetch, path)
	if err != nil {
		p.log.Debug("fetch failed", "url", url, "error", err)
		return
	}
	if resp.Status != wire.StatusOK {
		return
	}

	p.counter.Add(1)

	internal, external := markup.ExtractLinks(address, resp.Body)
	allLinks := append(append([]string{}, internal...), external...)

	if p.citations != nil {
		if err := p.citations.UpdateCitations(url, allLinks); err != nil {
			p.log.Warn("updating citations", "url", url, "error", err)
		}
	}

	if p.index != nil {
		stripped := markup.Strip(resp.Body)
		if err := p.index.IndexPage(url, "", address, resp.Metadata["node-name"], stripped); err != nil {
			p.log.Warn("indexing page", "url", url, "error", err)
		}
	}

	for _, link := range allLinks {
		p.enqueueURL(link, wg)
	}
}
