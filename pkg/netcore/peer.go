package netcore

import (
	"sync/atomic"
	"time"

	"github.com/shurlinet/relnet/pkg/netcore/wire"
)

// ConnectionState is a peer's lifecycle stage (spec §3).
type ConnectionState int32

const (
	StateConnecting ConnectionState = iota
	StateConnected
	StateShutdownRequested
	StateDisconnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateShutdownRequested:
		return "ShutdownRequested"
	case StateDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// PeerEngine is the narrow interface the session manager invokes against
// the out-of-scope Peer Engine collaborator (spec §6.3). The manager never
// inspects sequence numbers, ack windows, fragmentation, or RTT directly;
// it only calls these six operations and reads the five exposed attributes.
type PeerEngine interface {
	Update(deltaMs int64)
	ProcessPacket(pk *Packet) error
	ProcessConnectAccept(pk *Packet) bool
	Send(data []byte, start, length int, opts SendOptions) error
	Shutdown(payload []byte) error
	Flush() error

	ConnectionState() ConnectionState
	MTU() int
	ConnectionID() int64
	TimeSinceLastPacket() time.Duration
	Endpoint() RemoteAddr
}

// SendOptions mirrors the delivery knobs a Peer Engine accepts (reliability
// channel, ordering, etc. are entirely its concern — the session manager
// just forwards the value it was given).
type SendOptions struct {
	Channel    byte
	Reliable   bool
	Sequenced  bool
}

// Peer is the manager-owned handle spec §3 describes: the session manager
// treats it as opaque except for the attributes and operations named
// there. The back-reference to the engine is the only heavyweight state;
// everything else is plain data guarded by the owning table's mutex.
type Peer struct {
	Remote       RemoteAddr
	ConnectionID int64
	Engine       PeerEngine

	state atomic.Int32

	// index is this peer's position in the owning table's compact slice,
	// maintained by that table under its own lock so removal can
	// swap-with-last in O(1) (spec §4.2).
	index int
}

func newPeer(remote RemoteAddr, connID int64, engine PeerEngine, state ConnectionState) *Peer {
	p := &Peer{Remote: remote, ConnectionID: connID, Engine: engine}
	p.state.Store(int32(state))
	return p
}

// State returns the peer's current ConnectionState.
func (p *Peer) State() ConnectionState { return ConnectionState(p.state.Load()) }

func (p *Peer) setState(s ConnectionState) { p.state.Store(int32(s)) }

// TimeSinceLastPacket delegates to the engine, which updates its own clock
// on every ProcessPacket call (spec §6.3 exposes this as an engine
// attribute; the manager never tracks packet timing itself).
func (p *Peer) TimeSinceLastPacket() time.Duration {
	if p.Engine == nil {
		return 0
	}
	return p.Engine.TimeSinceLastPacket()
}

// MTU returns the engine-reported path MTU, or 0 if no engine is attached
// (should not happen for a live peer).
func (p *Peer) MTU() int {
	if p.Engine == nil {
		return 0
	}
	return p.Engine.MTU()
}

// ConnectionRequest carries an inbound handshake decision to the host (spec
// §3, §4.5 "Inbound connect"). The host must call Accept or Reject exactly
// once; calling either a second time is a no-op, since the first call
// clears resolve.
type ConnectionRequest struct {
	ConnectionID int64
	RemoteAddr   RemoteAddr
	Reader       wire.Reader

	// CorrelationID is an internal tracing token (not on the wire) so
	// host-side logs/metrics can tie an Accept/Reject decision back to the
	// datagram that produced it, independent of the wire ConnectionId.
	CorrelationID string

	resolve func(accept bool, connID int64, engine PeerEngine)
}

// Accept tells the manager to create the peer and emit a Connect event.
func (r *ConnectionRequest) Accept(engine PeerEngine) {
	if r.resolve == nil {
		return
	}
	resolve := r.resolve
	r.resolve = nil
	resolve(true, r.ConnectionID, engine)
}

// Reject tells the manager the handshake was declined; the classifier does
// nothing further (spec §4.5: "Reject is silent to the classifier").
func (r *ConnectionRequest) Reject() {
	if r.resolve == nil {
		return
	}
	resolve := r.resolve
	r.resolve = nil
	resolve(false, 0, nil)
}
