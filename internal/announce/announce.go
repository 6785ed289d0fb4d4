// Package announce ingests overlay presence announcements: a node or
// peer broadcasting its destination hash, identity, and display name.
package announce

import (
	"encoding/hex"
	"log/slog"

	"github.com/latebit/waystone/internal/store"
)

// App-data framing markers used by nomadnetwork/lxmf clients: a short
// binary prefix before the UTF-8 display name, and a trailing terminator
// byte. Only app_data carrying exactly this framing is trusted as a clean
// name.
var (
	nameDataPrefix = []byte{0x92, 0xc4, 0x0e}
	nameDataSuffix = byte(0xc0)
)

// Store is the subset of *store.Store an announce handler needs.
type Store interface {
	UpsertNode(dst, identity, name string, ts, now float64) error
	UpsertPeer(dst, identity, name string, ts, now float64) error
}

var _ Store = (*store.Store)(nil)

// Clock returns the current Unix timestamp, injected so tests can control
// time.
type Clock func() float64

// Handler registers destination-hash announcements from the overlay into
// the store, classifying them by application name.
type Handler struct {
	store Store
	clock Clock
	log   *slog.Logger
}

// NewHandler builds an announce Handler.
func NewHandler(s Store, clock Clock, log *slog.Logger) *Handler {
	return &Handler{store: s, clock: clock, log: log}
}

// Node app names register a content-serving node; peer app names register
// a human user's LXMF delivery destination.
const (
	AppNomadNetworkNode = "nomadnetwork.node"
	AppLXMFDelivery     = "lxmf.delivery"
)

// ReceivedAnnounce handles one announcement. Empty appData is ignored —
// a bare announce with no name carries nothing useful to index. appName
// selects whether destinationHash is recorded as a node or a peer.
func (h *Handler) ReceivedAnnounce(appName string, destinationHash []byte, identityHash []byte, appData []byte) {
	if len(appData) == 0 {
		return
	}

	name := decodeAnnounceName(appData)
	dst := hex.EncodeToString(destinationHash)
	identity := hex.EncodeToString(identityHash)
	now := h.clock()

	var err error
	switch appName {
	case AppNomadNetworkNode:
		err = h.store.UpsertNode(dst, identity, name, now, now)
	case AppLXMFDelivery:
		err = h.store.UpsertPeer(dst, identity, name, now, now)
	default:
		return
	}
	if err != nil {
		h.log.Error("recording announce", "app", appName, "dst", dst, "error", err)
	}
}

// decodeAnnounceName extracts the display name from raw announce app_data.
// When the data carries the expected binary framing (a 3-byte prefix and a
// single trailing terminator byte) the name is the UTF-8 slice between
// them; otherwise it falls back to a lossy decode of the whole payload,
// matching the reference client's tolerant behavior toward announces from
// non-conforming software.
func decodeAnnounceName(appData []byte) string {
	if len(appData) > len(nameDataPrefix)+1 &&
		hasPrefix(appData, nameDataPrefix) &&
		appData[len(appData)-1] == nameDataSuffix {
		return string(appData[len(nameDataPrefix) : len(appData)-1])
	}
	return string(appData)
}

func hasPrefix(data, prefix []byte) bool {
	if len(data) < len(prefix) {
		return false
	}
	for i, b := range prefix {
		if data[i] != b {
			return false
		}
	}
	return true
}
