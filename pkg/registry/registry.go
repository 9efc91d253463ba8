package registry

import (
	"errors"
	"net"
	"sort"

	"github.com/chat-relay/pkg/protocol"
)

// NoPeers is the high-water-mark sentinel when the registry is empty.
const NoPeers = PeerID(-1)

// PeerID is a monotonically issued logical peer identity. It decouples peer
// identity from transport-level details, but keeps the contract the relay
// depends on: unique keys with a deterministic ascending iteration order.
type PeerID int64

// Peer is one connected client. The hub goroutine is the only writer of its
// fields after creation.
type Peer struct {
	ID       PeerID
	Nickname string
	Conn     net.Conn
}

var (
	// ErrDuplicatePeer means Add was called twice for one id. This is a
	// programming invariant, not a runtime condition: ids are issued
	// monotonically and never reused while live.
	ErrDuplicatePeer = errors.New("registry: peer id already registered")

	// ErrRegistryFull means the configured peer cap has been reached.
	ErrRegistryFull = errors.New("registry: maximum number of peers reached")
)

// Registry is the authoritative set of connected peers. It is not safe for
// concurrent use: the relay hub is its single owner, so no locking is needed.
// Tests inject a fresh Registry per case.
type Registry struct {
	peers         map[PeerID]*Peer
	maxPeers      int
	highWaterMark PeerID
}

// New creates an empty registry. maxPeers <= 0 means unlimited.
func New(maxPeers int) *Registry {
	return &Registry{
		peers:         make(map[PeerID]*Peer),
		maxPeers:      maxPeers,
		highWaterMark: NoPeers,
	}
}

// Count returns the number of live peers.
func (r *Registry) Count() int {
	return len(r.peers)
}

// HighWaterMark returns the greatest live peer id, or NoPeers when empty.
func (r *Registry) HighWaterMark() PeerID {
	return r.highWaterMark
}

// Full reports whether the registry has reached its peer cap.
func (r *Registry) Full() bool {
	return r.maxPeers > 0 && len(r.peers) >= r.maxPeers
}

// Add registers a new peer under id with its default nickname.
func (r *Registry) Add(id PeerID, conn net.Conn) (*Peer, error) {
	if r.Full() {
		return nil, ErrRegistryFull
	}
	if _, exists := r.peers[id]; exists {
		return nil, ErrDuplicatePeer
	}
	p := &Peer{
		ID:       id,
		Nickname: protocol.DefaultNickname(int64(id)),
		Conn:     conn,
	}
	r.peers[id] = p
	if id > r.highWaterMark {
		r.highWaterMark = id
	}
	return p, nil
}

// Get returns the live peer for id, if any.
func (r *Registry) Get(id PeerID) (*Peer, bool) {
	p, ok := r.peers[id]
	return p, ok
}

// Remove unregisters a peer. It is a no-op for unknown ids. When the peer
// holding the high-water mark leaves, the mark is recomputed from the
// remaining live ids rather than trusted incrementally.
func (r *Registry) Remove(id PeerID) {
	if _, ok := r.peers[id]; !ok {
		return
	}
	delete(r.peers, id)
	if id == r.highWaterMark {
		r.highWaterMark = NoPeers
		for live := range r.peers {
			if live > r.highWaterMark {
				r.highWaterMark = live
			}
		}
	}
}

// ForEachLive calls fn for every live peer in ascending id order. The id set
// is snapshotted at pass start: a peer removed mid-pass by the line being
// processed is skipped rather than visited on a freed entry, and peers added
// mid-pass are not visited.
func (r *Registry) ForEachLive(fn func(*Peer)) {
	ids := make([]PeerID, 0, len(r.peers))
	for id := range r.peers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if p, ok := r.peers[id]; ok {
			fn(p)
		}
	}
}

// ByNickname finds the first live peer with the given nickname, scanning in
// ascending id order. Nicknames are not unique; first match wins.
func (r *Registry) ByNickname(name string) (*Peer, bool) {
	var found *Peer
	r.ForEachLive(func(p *Peer) {
		if found == nil && p.Nickname == name {
			found = p
		}
	})
	return found, found != nil
}

// Nicknames returns the nicknames of all live peers in ascending id order.
func (r *Registry) Nicknames() []string {
	names := make([]string, 0, len(r.peers))
	r.ForEachLive(func(p *Peer) {
		names = append(names, p.Nickname)
	})
	return names
}
