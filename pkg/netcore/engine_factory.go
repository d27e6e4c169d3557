package netcore

import "time"

// EngineConfig carries the subset of configuration the Peer Engine consumes
// directly (spec §6.5: PingInterval, ReconnectDelay, MaxConnectAttempts,
// MergeEnabled are all "consumed by Peer Engine", not the session manager).
type EngineConfig struct {
	ProtocolID         int32
	PingInterval       time.Duration
	ReconnectDelay     time.Duration
	MaxConnectAttempts int
	DefaultMTU         int

	// MergeEnabled mirrors FeaturesConfig.MergeEnabled (spec §6.5): whether
	// small outbound sends may be coalesced into one datagram. Fragmentation
	// and merging are out-of-scope Peer Engine concerns (spec §1), so this
	// is carried through for an engine that implements them; the reference
	// engine in internal/peerengine accepts it but does no merging.
	MergeEnabled bool
}

// HandshakeRole tells the EngineFactory which side of the handshake it is
// constructing an engine for, since the ConnectAccept datagram is "handled
// by the Peer Engine... opaque here" (spec §6.4) — the engine, not the
// classifier, is responsible for actually sending it.
type HandshakeRole int

const (
	// RoleOutboundConnect: the engine must send the first ConnectRequest
	// datagram and drive its retransmission (spec §4.5).
	RoleOutboundConnect HandshakeRole = iota
	// RoleInboundAccept: the host just Accepted a ConnectionRequest; the
	// engine must send the ConnectAccept datagram once.
	RoleInboundAccept
)

// EngineFactory constructs the Peer Engine for a newly created peer. Passed
// to the manager at construction time so pkg/netcore never imports a
// concrete engine package directly (spec §1 places the Peer Engine out of
// scope as an external collaborator; the factory seam is what keeps this
// package importable without internal/peerengine).
//
// payload is the connect payload for RoleOutboundConnect and nil for
// RoleInboundAccept.
type EngineFactory func(remote RemoteAddr, connectionID int64, socket Socket, cfg EngineConfig, role HandshakeRole, payload []byte) PeerEngine
