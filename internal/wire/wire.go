// Package wire implements the request/response framing used between the
// crawler and overlay nodes: a verb line followed by optional YAML
// frontmatter, then the page body.
package wire

const (
	// DefaultPort is the default overlay listening port for a waystone node.
	DefaultPort = 6309

	// ALPN is the application-layer protocol negotiation identifier
	// carried by the transport's TLS handshake.
	ALPN = "waystone"

	// VerbFetch retrieves a page by path.
	VerbFetch = "FETCH"
)

// Standard response statuses.
const (
	StatusOK          = "ok"
	StatusNotFound    = "not-found"
	StatusNotModified = "not-modified"
	StatusServerError = "server-error"
)
