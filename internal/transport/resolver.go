package transport

import (
	"context"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// StaticResolver resolves node addresses to host:port endpoints from a
// TOML file, standing in for the real path-discovery step that the
// overlay's own link-establishment code performs (out of this module's
// scope). Operators bridging into the overlay through an external RNS
// daemon populate this file with the endpoints that daemon exposes.
type StaticResolver struct {
	peers map[string]string
}

// staticResolverFile is the on-disk shape of the peers file: a flat table
// of destination-hash address to dialable endpoint.
type staticResolverFile struct {
	Peers map[string]string `toml:"peers"`
}

// LoadStaticResolver reads a peers TOML file of the form:
//
//	[peers]
//	"3a7c...e91f" = "198.51.100.4:4242"
//
// A missing file yields an empty resolver rather than an error, since a
// freshly provisioned node has no known peers yet.
func LoadStaticResolver(path string) (*StaticResolver, error) {
	r := &StaticResolver{peers: make(map[string]string)}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("transport: reading peers file %q: %w", path, err)
	}

	var f staticResolverFile
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, fmt.Errorf("transport: decoding peers file %q: %w", path, err)
	}
	r.peers = f.Peers
	return r, nil
}

// Resolve implements AddressResolver.
func (r *StaticResolver) Resolve(_ context.Context, address string) (string, error) {
	hostPort, ok := r.peers[address]
	if !ok {
		return "", fmt.Errorf("%w: %q not in static peers file", ErrNoPath, address)
	}
	return hostPort, nil
}

// Set registers or overwrites a known address's endpoint at runtime, used
// when an announce carries enough information to dial a peer directly.
func (r *StaticResolver) Set(address, hostPort string) {
	r.peers[address] = hostPort
}
