package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/latebit/waystone/internal/wire"
)

// QUICTransport is the concrete Transport backed by quic-go, pooling one
// connection per destination address.
type QUICTransport struct {
	tlsConf        *tls.Config
	dialTimeout    time.Duration
	requestTimeout time.Duration
	resolver       AddressResolver

	mu    sync.Mutex
	conns map[string]*quic.Conn
}

// AddressResolver maps a node address to a dialable host:port, standing in
// for the overlay's own path-discovery step ahead of opening a QUIC
// connection.
type AddressResolver interface {
	Resolve(ctx context.Context, address string) (hostPort string, err error)
}

// NewQUICTransport builds a transport that dials peers via QUIC, resolving
// node addresses to network endpoints through resolver.
func NewQUICTransport(resolver AddressResolver) *QUICTransport {
	return &QUICTransport{
		tlsConf: &tls.Config{
			InsecureSkipVerify: true,
			NextProtos:         []string{wire.ALPN},
		},
		dialTimeout:    10 * time.Second,
		requestTimeout: 20 * time.Second,
		resolver:       resolver,
		conns:          make(map[string]*quic.Conn),
	}
}

// Close closes every pooled connection.
func (t *QUICTransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for addr, conn := range t.conns {
		conn.CloseWithError(0, "")
		delete(t.conns, addr)
	}
}

// Request implements Transport. It does not retry: a failed stream or a
// connection in a broken state is dropped from the pool and the error is
// returned to the caller, who is expected to try again on the next crawl
// cycle rather than block waiting here.
func (t *QUICTransport) Request(ctx context.Context, address, verb, path string) (wire.Response, error) {
	conn, err := t.getConn(ctx, address)
	if err != nil {
		return wire.Response{}, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, t.requestTimeout)
	defer cancel()

	stream, err := conn.OpenStreamSync(reqCtx)
	if err != nil {
		t.removeConn(address)
		return wire.Response{}, fmt.Errorf("transport: open stream to %q: %w", address, err)
	}
	defer stream.Close()

	req := wire.Request{Verb: verb, Path: path, Metadata: make(map[string]string)}
	if _, err := req.WriteTo(stream); err != nil {
		t.removeConn(address)
		return wire.Response{}, fmt.Errorf("transport: send request to %q: %w", address, err)
	}
	stream.Close()

	resp, err := wire.ParseResponse(stream)
	if err != nil {
		return wire.Response{}, fmt.Errorf("transport: read response from %q: %w", address, err)
	}
	return resp, nil
}

func (t *QUICTransport) getConn(ctx context.Context, address string) (*quic.Conn, error) {
	t.mu.Lock()
	conn, ok := t.conns[address]
	t.mu.Unlock()
	if ok {
		if conn.Context().Err() == nil {
			return conn, nil
		}
		t.removeConn(address)
	}

	hostPort, err := t.resolver.Resolve(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %q: %w", address, err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, t.dialTimeout)
	defer cancel()

	conn, err = quic.DialAddr(dialCtx, hostPort, t.tlsConf, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %q (%s): %w", address, hostPort, err)
	}

	t.mu.Lock()
	t.conns[address] = conn
	t.mu.Unlock()
	return conn, nil
}

func (t *QUICTransport) removeConn(address string) {
	t.mu.Lock()
	delete(t.conns, address)
	t.mu.Unlock()
}
