package netcore

import "sync"

// peerTable is the Peer Table of spec §4.2: a hash map for O(1) lookup plus
// a compact slice for cheap tick iteration, both protected by one mutex (the
// teacher's PeerManager uses the same map-plus-RWMutex shape for its
// watchlist; we add the index slice because the Logic Tick Driver needs
// ordered, allocation-free iteration every 15ms, not just membership
// checks).
type peerTable struct {
	mu       sync.Mutex
	byAddr   map[RemoteAddr]*Peer
	ordered  []*Peer
	capacity int
}

func newPeerTable(capacity int) *peerTable {
	return &peerTable{
		byAddr:   make(map[RemoteAddr]*Peer, capacity),
		ordered:  make([]*Peer, 0, capacity),
		capacity: capacity,
	}
}

// tryInsert adds p if there is room and the address isn't already present.
// Returns false (no-op) when full or a duplicate (spec §4.2: connect
// returns null when full; inbound ConnectRequest is silently ignored).
func (t *peerTable) tryInsert(p *Peer) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.byAddr[p.Remote]; exists {
		return false
	}
	if len(t.ordered) >= t.capacity {
		return false
	}
	p.index = len(t.ordered)
	t.ordered = append(t.ordered, p)
	t.byAddr[p.Remote] = p
	return true
}

// get returns the peer at addr, or nil if absent.
func (t *peerTable) get(addr RemoteAddr) *Peer {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.byAddr[addr]
}

// contains reports whether addr is present.
func (t *peerTable) contains(addr RemoteAddr) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.byAddr[addr]
	return ok
}

// remove deletes the peer at addr using swap-with-last on the index slice
// to keep removal and iteration O(1)/O(n) respectively (spec §4.2).
// Reports whether a peer was removed.
func (t *peerTable) remove(addr RemoteAddr) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.removeLocked(addr)
}

func (t *peerTable) removeLocked(addr RemoteAddr) bool {
	p, ok := t.byAddr[addr]
	if !ok {
		return false
	}
	delete(t.byAddr, addr)
	last := len(t.ordered) - 1
	idx := p.index
	if idx != last {
		t.ordered[idx] = t.ordered[last]
		t.ordered[idx].index = idx
	}
	t.ordered[last] = nil
	t.ordered = t.ordered[:last]
	return true
}

// removeAndTransfer atomically moves the peer at addr out of this table and
// into dst, holding this table's lock across both steps (spec §4.3/§5: the
// Peer→Shutdown transfer must be atomic, not two separately-locked
// operations, or a concurrent inbound ConnectRequest could slip a second
// peer in for addr during the gap). Reports whether a peer was present.
func (t *peerTable) removeAndTransfer(addr RemoteAddr, dst *shutdownTable) (*Peer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.byAddr[addr]
	if !ok {
		return nil, false
	}
	t.removeLocked(addr)
	dst.insert(p)
	return p, true
}

// count returns the number of peers currently held.
func (t *peerTable) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ordered)
}

// clear empties the table, returning the peers it held (for a bulk
// disconnect pass, e.g. stop() or the ReceiveError policy of spec §7).
func (t *peerTable) clear() []*Peer {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.ordered
	t.ordered = make([]*Peer, 0, t.capacity)
	t.byAddr = make(map[RemoteAddr]*Peer, t.capacity)
	return out
}

// snapshot returns a copy of the current peer slice, safe for the caller to
// range over without holding the table lock (spec §6.1 getPeers).
func (t *peerTable) snapshot() []*Peer {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Peer, len(t.ordered))
	copy(out, t.ordered)
	return out
}

// snapshotInto fills dst (growing it if needed) with the current peers and
// returns the used prefix, avoiding an allocation on the caller's side for
// repeated polling (spec §6.1 getPeersNonAlloc).
func (t *peerTable) snapshotInto(dst []*Peer) []*Peer {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cap(dst) < len(t.ordered) {
		dst = make([]*Peer, len(t.ordered))
	}
	dst = dst[:len(t.ordered)]
	copy(dst, t.ordered)
	return dst
}
