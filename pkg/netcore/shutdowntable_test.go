package netcore

import "testing"

func TestShutdownTableInsertRemoveContains(t *testing.T) {
	tbl := newShutdownTable()
	p := newPeer(addrN(1), 1, nil, StateShutdownRequested)

	if tbl.contains(p.Remote) {
		t.Fatal("empty table should not contain anything")
	}
	tbl.insert(p)
	if !tbl.contains(p.Remote) {
		t.Fatal("table should contain the inserted peer's address")
	}
	if tbl.count() != 1 {
		t.Fatalf("count = %d, want 1", tbl.count())
	}
	if !tbl.remove(p.Remote) {
		t.Fatal("remove should report true for a present address")
	}
	if tbl.remove(p.Remote) {
		t.Fatal("removing twice should report false the second time")
	}
	if tbl.count() != 0 {
		t.Fatalf("count = %d, want 0", tbl.count())
	}
}

func TestShutdownTableForEachVisitsEveryEntry(t *testing.T) {
	tbl := newShutdownTable()
	tbl.insert(newPeer(addrN(1), 1, nil, StateShutdownRequested))
	tbl.insert(newPeer(addrN(2), 2, nil, StateShutdownRequested))

	seen := make(map[RemoteAddr]bool)
	tbl.forEach(func(p *Peer) { seen[p.Remote] = true })

	if len(seen) != 2 {
		t.Fatalf("forEach visited %d entries, want 2", len(seen))
	}
	if !seen[addrN(1)] || !seen[addrN(2)] {
		t.Fatal("forEach missed an entry")
	}
}
