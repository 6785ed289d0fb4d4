package crawl

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/latebit/waystone/internal/transport"
	"github.com/latebit/waystone/internal/wire"
)

type fakeVisited struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (f *fakeVisited) CheckOrStamp(url string, now, ttl float64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen[url] {
		return true, nil
	}
	f.seen[url] = true
	return false, nil
}

type fakeCitations struct {
	calls int
}

func (f *fakeCitations) UpdateCitations(src string, linksTo []string) error {
	f.calls++
	return nil
}

type fakeIndexer struct {
	pages []string
}

func (f *fakeIndexer) IndexPage(url, owner, addr, name, text string) error {
	f.pages = append(f.pages, url)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
}

func TestPoolCrawlsAndFollowsLinks(t *testing.T) {
	const addrA = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	const addrB = "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"

	tr := transport.NewMockTransport()
	tr.Register(addrA, wire.VerbFetch, "/page/index.mu", wire.Response{
		Status: wire.StatusOK,
		Body:   "`[`" + addrB + ":/page/b.mu]",
	})
	tr.Register(addrB, wire.VerbFetch, "/page/b.mu", wire.Response{
		Status: wire.StatusOK,
		Body:   "no links here",
	})

	visited := &fakeVisited{seen: make(map[string]bool)}
	cites := &fakeCitations{}
	idx := &fakeIndexer{}

	pool := New(Options{Workers: 2, QueueMaxSize: 10}, tr, visited, cites, idx, func() float64 { return 1 }, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	crawled, err := pool.Run(ctx, []string{addrA + ":/page/index.mu"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if crawled != 2 {
		t.Errorf("expected 2 pages crawled, got %d", crawled)
	}
	if len(idx.pages) != 2 {
		t.Errorf("expected 2 pages indexed, got %v", idx.pages)
	}
}

func TestEnqueueURLDeduplicatesBeforePush(t *testing.T) {
	visited := &fakeVisited{seen: make(map[string]bool)}
	pool := New(Options{Workers: 1, QueueMaxSize: 10}, transport.NewMockTransport(), visited, nil, nil, func() float64 { return 1 }, testLogger())

	var wg sync.WaitGroup
	if !pool.enqueueURL("a:/page/x.mu", &wg) {
		t.Fatal("first enqueue should be accepted")
	}
	if pool.enqueueURL("a:/page/x.mu", &wg) {
		t.Fatal("second enqueue of the same URL should be refused")
	}
	if len(pool.queue) != 1 {
		t.Errorf("queue length = %d, want 1", len(pool.queue))
	}
	wg.Done()
}

func TestEnqueueURLDropsWhenQueueFull(t *testing.T) {
	visited := &fakeVisited{seen: make(map[string]bool)}
	pool := New(Options{Workers: 1, QueueMaxSize: 1}, transport.NewMockTransport(), visited, nil, nil, func() float64 { return 1 }, testLogger())

	var wg sync.WaitGroup
	if !pool.enqueueURL("a:/page/x.mu", &wg) {
		t.Fatal("first enqueue should be accepted")
	}
	if pool.enqueueURL("a:/page/y.mu", &wg) {
		t.Fatal("enqueue into a full queue should be refused")
	}
	// the full-queue check runs before the visited cache, so a dropped
	// URL is not stamped and stays eligible for the next cycle
	if visited.seen["a:/page/y.mu"] {
		t.Error("dropped URL should not have been stamped visited")
	}
	wg.Done()
}
