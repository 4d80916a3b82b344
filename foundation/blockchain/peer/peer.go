// Package peer maintains the peer related information such as the set
// of known peers, the seed node and this node's own identity.
package peer

import (
	"net"
	"strconv"
	"sync"
)

// Peer represents information about a Node in the network.
type Peer struct {
	Address string `json:"address" validate:"required"`
	Port    int    `json:"port" validate:"gte=1,lte=65535"`
}

// New contructs a new info value.
func New(address string, port int) Peer {
	return Peer{
		Address: address,
		Port:    port,
	}
}

// Match validates if the specified peer is this peer.
func (p Peer) Match(other Peer) bool {
	return p == other
}

// Host returns the address:port form used to dial the peer.
func (p Peer) Host() string {
	return net.JoinHostPort(p.Address, strconv.Itoa(p.Port))
}

// IsZero reports whether the peer has not been populated.
func (p Peer) IsZero() bool {
	return p == Peer{}
}

// =============================================================================

// PeerSet represents the peer directory of a node. It always contains the
// seed peer and keeps the peers in the order they were learned.
type PeerSet struct {
	mu     sync.RWMutex
	set    []Peer
	seed   Peer
	self   Peer
	remote Peer
}

// NewPeerSet constructs a new info set seeded with the well known seed peer.
func NewPeerSet(seed Peer) *PeerSet {
	return &PeerSet{
		set:  []Peer{seed},
		seed: seed,
	}
}

// Add adds a new node to the set. It returns false if the peer is known.
func (ps *PeerSet) Add(peer Peer) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	return ps.add(peer)
}

// AddPeers performs an idempotent union of the peers into the set and
// returns the number of peers that were new.
func (ps *PeerSet) AddPeers(peers []Peer) int {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	var added int
	for _, peer := range peers {
		if ps.add(peer) {
			added++
		}
	}

	return added
}

// Copy returns a list of the known peers, excluding the specified peer.
func (ps *PeerSet) Copy(exclude Peer) []Peer {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	peers := make([]Peer, 0, len(ps.set))
	for _, peer := range ps.set {
		if !peer.Match(exclude) {
			peers = append(peers, peer)
		}
	}

	return peers
}

// Seed returns the well known bootstrap peer.
func (ps *PeerSet) Seed() Peer {
	return ps.seed
}

// Self returns this node's identity. It is the zero peer until the
// node's socket is bound.
func (ps *PeerSet) Self() Peer {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	return ps.self
}

// SetSelf records this node's identity once the socket is bound.
func (ps *PeerSet) SetSelf(self Peer) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ps.self = self
}

// Remote returns the seed reference this node was given on joining.
func (ps *PeerSet) Remote() Peer {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	return ps.remote
}

// SetRemote records the seed reference given to this node on joining.
func (ps *PeerSet) SetRemote(remote Peer) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ps.remote = remote
}

// add must be called with the lock held.
func (ps *PeerSet) add(peer Peer) bool {
	for _, p := range ps.set {
		if p.Match(peer) {
			return false
		}
	}

	ps.set = append(ps.set, peer)
	return true
}

// =============================================================================

// LocalIP returns the first non loopback IPv4 address of this host, or
// 127.0.0.1 when there is none.
func LocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}

	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}

		if ip := ipNet.IP.To4(); ip != nil && !ip.IsUnspecified() {
			return ip.String()
		}
	}

	return "127.0.0.1"
}
