// Package transport abstracts the overlay connection used to fetch pages
// from other nodes, so the crawler and citation resolver never depend on
// a concrete network stack.
package transport

import (
	"context"
	"fmt"

	"github.com/latebit/waystone/internal/wire"
)

// Transport fetches a single page from a node address. Implementations
// never retry internally — a failed fetch is left for the next crawl
// cycle to pick back up.
type Transport interface {
	// Request performs a single verb/path request against address and
	// returns the parsed response. It blocks until the response arrives,
	// the context is cancelled, or the implementation's own request
	// timeout elapses.
	Request(ctx context.Context, address, verb, path string) (wire.Response, error)
}

// ErrNoPath is returned when the destination address has not yet been
// discovered on the overlay (no announce has been seen for it).
var ErrNoPath = fmt.Errorf("transport: no path to destination")
