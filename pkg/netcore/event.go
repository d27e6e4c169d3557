package netcore

import (
	"sync"

	"github.com/shurlinet/relnet/pkg/netcore/wire"
)

// EventKind tags an Event's payload (spec §3 Event).
type EventKind int

const (
	EventConnect EventKind = iota
	EventDisconnect
	EventReceive
	EventReceiveUnconnected
	EventError
	EventLatencyUpdate
	EventDiscoveryRequest
	EventDiscoveryResponse
	EventConnectionRequest
)

// DisconnectReason explains why a Disconnect event was raised (spec §4.5,
// §4.6, §7).
type DisconnectReason int

const (
	DisconnectUnknown DisconnectReason = iota
	DisconnectTimeout
	DisconnectConnectionFailed
	DisconnectRemoteConnectionClose
	DisconnectDisconnectPeerCalled
	DisconnectSocketSendError
)

func (r DisconnectReason) String() string {
	switch r {
	case DisconnectTimeout:
		return "Timeout"
	case DisconnectConnectionFailed:
		return "ConnectionFailed"
	case DisconnectRemoteConnectionClose:
		return "RemoteConnectionClose"
	case DisconnectDisconnectPeerCalled:
		return "DisconnectPeerCalled"
	case DisconnectSocketSendError:
		return "SocketSendError"
	default:
		return "Unknown"
	}
}

// UnconnectedKind distinguishes the three unconnected-message flavors that
// share the [prop][payload...] wire shape and the same host callback but
// mean different things to the host (spec §6.2
// onNetworkReceiveUnconnected(... kind)).
type UnconnectedKind int

const (
	UnconnectedBasic UnconnectedKind = iota
	UnconnectedDiscoveryRequest
	UnconnectedDiscoveryResponse
)

func (k UnconnectedKind) String() string {
	switch k {
	case UnconnectedDiscoveryRequest:
		return "DiscoveryRequest"
	case UnconnectedDiscoveryResponse:
		return "DiscoveryResponse"
	default:
		return "Basic"
	}
}

// Event is a tagged record drawn from the Event Pool (spec §3). Every field
// is reset by recycle(); only the fields relevant to Kind are populated by
// the producer.
type Event struct {
	Kind EventKind

	Peer   *Peer
	Remote RemoteAddr

	Reader wire.Reader

	Aux             int // latency ms, or socket error code
	Reason          DisconnectReason
	UnconnectedKind UnconnectedKind

	ConnRequest *ConnectionRequest
}

// reset clears every field so a recycled Event carries no stale references
// (spec invariant: "reader cleared and all references nulled").
func (e *Event) reset() {
	e.Kind = 0
	e.Peer = nil
	e.Remote = RemoteAddr{}
	e.Reader.Clear()
	e.Aux = 0
	e.Reason = 0
	e.UnconnectedKind = 0
	e.ConnRequest = nil
}

// eventPool is the LIFO reservoir described in spec §4.1: acquire() pops an
// Event if one is free, else allocates; recycle() resets and returns it.
// Unbounded by design — after warm-up it is the only allocator events pass
// through on the hot path.
type eventPool struct {
	mu   sync.Mutex
	free []*Event
}

func newEventPool() *eventPool {
	return &eventPool{}
}

func (p *eventPool) acquire(kind EventKind) *Event {
	p.mu.Lock()
	n := len(p.free)
	var e *Event
	if n == 0 {
		p.mu.Unlock()
		e = &Event{}
	} else {
		e = p.free[n-1]
		p.free = p.free[:n-1]
		p.mu.Unlock()
	}
	e.Kind = kind
	return e
}

func (p *eventPool) recycle(e *Event) {
	e.reset()
	p.mu.Lock()
	p.free = append(p.free, e)
	p.mu.Unlock()
}

// size returns the number of currently pooled (idle) events, exposed for
// the internal/metrics gauge and for tests asserting pool growth stays
// bounded to the peak number of concurrently in-flight events.
func (p *eventPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}
