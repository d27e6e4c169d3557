package netcore

import "sync"

// fakeNetwork is an in-process switchboard so tests can run two or more
// fakeSocket instances against each other without touching a real UDP
// socket. Keyed by the RemoteAddr each fakeSocket was registered under.
type fakeNetwork struct {
	mu    sync.Mutex
	byAddr map[RemoteAddr]*fakeSocket
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{byAddr: make(map[RemoteAddr]*fakeSocket)}
}

// fakeSocket implements Socket entirely in memory. SendTo looks up the
// target under net.mu, releases the lock, then invokes the target's
// receive callback outside the lock — a callback that re-enters SendTo (as
// classify/engine code does) would otherwise deadlock against the same
// mutex.
type fakeSocket struct {
	net  *fakeNetwork
	addr RemoteAddr

	mu     sync.Mutex
	recvCb func(data []byte, from RemoteAddr, err error)
	closed bool
	sentTo []RemoteAddr

	broadcastPort int
}

// sentCountTo reports how many times SendTo was called with dst as the
// destination, so a test can assert a rejected operation had zero wire
// side effects.
func (s *fakeSocket) sentCountTo(dst RemoteAddr) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.sentTo {
		if a == dst {
			n++
		}
	}
	return n
}

func newFakeSocket(net *fakeNetwork, port int) *fakeSocket {
	return &fakeSocket{net: net, addr: RemoteAddr{ip: "127.0.0.1", port: port}}
}

func (s *fakeSocket) Bind(port int, reuseAddress bool) error {
	if port != 0 {
		s.addr.port = port
	}
	s.net.mu.Lock()
	s.net.byAddr[s.addr] = s
	s.net.mu.Unlock()
	return nil
}

func (s *fakeSocket) SetReceiveCallback(cb func(data []byte, from RemoteAddr, err error)) {
	s.mu.Lock()
	s.recvCb = cb
	s.mu.Unlock()
}

func (s *fakeSocket) SendTo(data []byte, addr RemoteAddr) error {
	cp := make([]byte, len(data))
	copy(cp, data)

	s.mu.Lock()
	s.sentTo = append(s.sentTo, addr)
	s.mu.Unlock()

	s.net.mu.Lock()
	target := s.net.byAddr[addr]
	s.net.mu.Unlock()
	if target == nil {
		return nil // no listener at that address: dropped, like a real unreachable UDP peer
	}

	target.mu.Lock()
	cb := target.recvCb
	closed := target.closed
	target.mu.Unlock()
	if cb != nil && !closed {
		cb(cp, s.addr, nil)
	}
	return nil
}

func (s *fakeSocket) Broadcast(data []byte, port int) error {
	s.net.mu.Lock()
	var targets []*fakeSocket
	for addr, sock := range s.net.byAddr {
		if addr.port == port && sock != s {
			targets = append(targets, sock)
		}
	}
	s.net.mu.Unlock()

	for _, target := range targets {
		cp := make([]byte, len(data))
		copy(cp, data)
		target.mu.Lock()
		cb := target.recvCb
		closed := target.closed
		target.mu.Unlock()
		if cb != nil && !closed {
			cb(cp, s.addr, nil)
		}
	}
	return nil
}

func (s *fakeSocket) LocalPort() int { return s.addr.port }

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.net.mu.Lock()
	delete(s.net.byAddr, s.addr)
	s.net.mu.Unlock()
	return nil
}
