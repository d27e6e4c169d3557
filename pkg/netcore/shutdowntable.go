package netcore

import "sync"

// shutdownTable holds peers mid graceful-disconnect (spec §4.3): the
// address→peer mapping a peer moves into when disconnectPeer transfers it
// out of the Peer Table. Separate mutex from peerTable by design (spec §5:
// "A code path that moves a peer between them acquires them in fixed order
// Peer→Shutdown to avoid deadlock").
type shutdownTable struct {
	mu    sync.Mutex
	byAddr map[RemoteAddr]*Peer
}

func newShutdownTable() *shutdownTable {
	return &shutdownTable{byAddr: make(map[RemoteAddr]*Peer)}
}

func (t *shutdownTable) insert(p *Peer) {
	t.mu.Lock()
	t.byAddr[p.Remote] = p
	t.mu.Unlock()
}

func (t *shutdownTable) remove(addr RemoteAddr) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.byAddr[addr]; !ok {
		return false
	}
	delete(t.byAddr, addr)
	return true
}

func (t *shutdownTable) contains(addr RemoteAddr) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.byAddr[addr]
	return ok
}

func (t *shutdownTable) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byAddr)
}

// forEach calls fn for every entry, used by the Logic Tick Driver to call
// update(delta) on each shutdown peer (spec §4.6). fn must not call back
// into the shutdownTable — the lock is held for the duration.
func (t *shutdownTable) forEach(fn func(p *Peer)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range t.byAddr {
		fn(p)
	}
}
