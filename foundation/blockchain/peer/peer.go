// Package peer maintains the peer related information such as the set
// of configured peers and the status this node reports about itself.
package peer

import (
	"sort"
	"strings"
	"sync"
)

// Peer represents information about a Node in the network.
type Peer struct {
	Host string
}

// New constructs a new peer value. Any scheme prefix is removed since
// the transport decides the scheme.
func New(host string) Peer {
	host = strings.TrimPrefix(host, "ws://")
	host = strings.TrimPrefix(host, "http://")

	return Peer{
		Host: strings.TrimSuffix(host, "/"),
	}
}

// Match validates if the specified host matches this node.
func (p Peer) Match(host string) bool {
	return p.Host == host
}

// String implements the fmt.Stringer interface.
func (p Peer) String() string {
	return p.Host
}

// =============================================================================

// PeerStatus represents information about the status
// of any given peer.
type PeerStatus struct {
	LatestBlockHash string   `json:"latest_block_hash"`
	ChainLength     int      `json:"chain_length"`
	ChainValid      bool     `json:"chain_valid"`
	Pending         int      `json:"pending"`
	PendingHash     string   `json:"pending_hash"`
	KnownPeers      []Peer   `json:"known_peers"`
	Connected       []string `json:"connected"`
}

// =============================================================================

// PeerSet represents the data representation to maintain a set of known peers.
type PeerSet struct {
	mu  sync.RWMutex
	set map[Peer]struct{}
}

// NewPeerSet constructs a new info set to manage node peer information.
func NewPeerSet() *PeerSet {
	return &PeerSet{
		set: make(map[Peer]struct{}),
	}
}

// Add adds a new node to the set.
func (ps *PeerSet) Add(peer Peer) bool {
	if peer.Host == "" {
		return false
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()

	_, exists := ps.set[peer]
	if !exists {
		ps.set[peer] = struct{}{}
		return true
	}

	return false
}

// Remove removes a node from the set.
func (ps *PeerSet) Remove(peer Peer) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	delete(ps.set, peer)
}

// Copy returns a list of the known peers sorted by host, excluding
// the specified host.
func (ps *PeerSet) Copy(host string) []Peer {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	var peers []Peer
	for peer := range ps.set {
		if !peer.Match(host) {
			peers = append(peers, peer)
		}
	}

	sort.Slice(peers, func(i, j int) bool { return peers[i].Host < peers[j].Host })

	return peers
}
