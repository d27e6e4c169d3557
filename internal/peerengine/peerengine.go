// Package peerengine provides the one concrete Peer Engine the session
// manager ships with. spec.md places the Peer Engine's actual job — sequence
// numbers, ack windows, fragmentation/merging, channels, MTU discovery, RTT
// estimation — entirely out of scope (§1). Engine here is deliberately the
// simplest thing that satisfies the narrow interface of §6.3: ack-less
// retransmission of the handshake and disconnect packets, plus a ping
// keepalive timer. It exists so pkg/netcore is runnable and testable
// end-to-end; anything resembling real reliability (ordering, loss
// recovery, RTT) belongs in a different, out-of-scope implementation of the
// same interface.
package peerengine

import (
	"encoding/binary"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shurlinet/relnet/pkg/netcore"
)

// defaultMTU is used when the caller's EngineConfig leaves DefaultMTU unset.
const defaultMTU = 1200

// connectAcceptSize is the wire size of the opaque ConnectAccept packet this
// engine emits: [prop][connectionId i64 LE].
const connectAcceptSize = 1 + 8

// Engine is the reference PeerEngine implementation (spec §6.3).
type Engine struct {
	mu sync.Mutex

	remote   netcore.RemoteAddr
	connID   int64
	socket   netcore.Socket
	cfg      netcore.EngineConfig
	log      *slog.Logger
	mtu      int
	lastSeen atomic.Int64 // unix nanos

	state atomic.Int32 // netcore.ConnectionState

	// outbound handshake retransmission (spec §4.5 "the Peer Engine is
	// responsible for retransmitting the ConnectRequest up to
	// MaxConnectAttempts with ReconnectDelay interval")
	connectPacket  []byte
	attemptsLeft   int
	sinceLastSend  time.Duration

	// keepalive
	sincePing time.Duration

	// graceful shutdown retransmission (spec §4.3)
	shuttingDown     bool
	shutdownPacket   []byte
	sinceShutdownTx  time.Duration
}

// New constructs an Engine and matches netcore.EngineFactory. For
// RoleOutboundConnect it starts Connecting and immediately sends the first
// ConnectRequest. For RoleInboundAccept it starts Connected and immediately
// sends the ConnectAccept datagram once — spec §6.4 notes ConnectAccept is
// "handled by Peer Engine", so this engine, not the classifier, owns that
// send.
func New(remote netcore.RemoteAddr, connID int64, socket netcore.Socket, cfg netcore.EngineConfig, role netcore.HandshakeRole, payload []byte) netcore.PeerEngine {
	switch role {
	case netcore.RoleOutboundConnect:
		if payload == nil {
			payload = []byte{} // a ConnectRequest is still built and sent without a payload
		}
		e := newEngine(remote, connID, socket, cfg, payload)
		e.state.Store(int32(netcore.StateConnecting))
		e.attemptsLeft = cfg.MaxConnectAttempts
		e.sendConnectRequest()
		return e
	default: // RoleInboundAccept
		e := newEngine(remote, connID, socket, cfg, nil)
		e.state.Store(int32(netcore.StateConnected))
		e.sendConnectAccept()
		return e
	}
}

func newEngine(remote netcore.RemoteAddr, connID int64, socket netcore.Socket, cfg netcore.EngineConfig, connectPayload []byte) *Engine {
	mtu := cfg.DefaultMTU
	if mtu <= 0 {
		mtu = defaultMTU
	}
	e := &Engine{
		remote: remote,
		connID: connID,
		socket: socket,
		cfg:    cfg,
		log:    slog.Default(),
		mtu:    mtu,
	}
	e.lastSeen.Store(time.Now().UnixNano())
	if connectPayload != nil {
		pkt := make([]byte, 0, connectRequestHeaderSize+len(connectPayload))
		pkt = append(pkt, byte(netcore.PropConnectRequest))
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], uint32(cfg.ProtocolID))
		pkt = append(pkt, tmp[:]...)
		var tmp8 [8]byte
		binary.LittleEndian.PutUint64(tmp8[:], uint64(connID))
		pkt = append(pkt, tmp8[:]...)
		pkt = append(pkt, connectPayload...)
		e.connectPacket = pkt
	}
	return e
}

const connectRequestHeaderSize = 1 + 4 + 8

func (e *Engine) sendConnectAccept() {
	if e.socket == nil {
		return
	}
	if err := e.socket.SendTo(BuildConnectAccept(e.connID), e.remote); err != nil {
		e.log.Debug("peerengine: connect accept send failed", "remote", e.remote.String(), "err", err)
	}
}

func (e *Engine) sendConnectRequest() {
	if e.connectPacket == nil || e.socket == nil {
		return
	}
	if err := e.socket.SendTo(e.connectPacket, e.remote); err != nil {
		e.log.Debug("peerengine: connect request send failed", "remote", e.remote.String(), "err", err)
	}
}

// Update advances retransmit/keepalive timers (spec §4.6 "peer.update(delta)
// so the engine can retransmit, generate acks, and drive keepalives").
func (e *Engine) Update(deltaMs int64) {
	delta := time.Duration(deltaMs) * time.Millisecond

	e.mu.Lock()
	defer e.mu.Unlock()

	switch netcore.ConnectionState(e.state.Load()) {
	case netcore.StateConnecting:
		e.sinceLastSend += delta
		if e.sinceLastSend < e.cfg.ReconnectDelay {
			return
		}
		e.sinceLastSend = 0
		if e.attemptsLeft <= 0 {
			e.state.Store(int32(netcore.StateDisconnected))
			return
		}
		e.attemptsLeft--
		e.sendConnectRequest()

	case netcore.StateConnected:
		e.sincePing += delta
		if e.sincePing >= e.cfg.PingInterval {
			e.sincePing = 0
			e.sendPing()
		}

	case netcore.StateShutdownRequested, netcore.StateDisconnected:
		if e.shuttingDown {
			e.sinceShutdownTx += delta
			if e.sinceShutdownTx >= e.cfg.ReconnectDelay {
				e.sinceShutdownTx = 0
				e.retransmitShutdown()
			}
		}
	}
}

func (e *Engine) sendPing() {
	if e.socket == nil {
		return
	}
	_ = e.socket.SendTo([]byte{byte(netcore.PropPeerData), 0x01}, e.remote)
}

func (e *Engine) retransmitShutdown() {
	if e.shutdownPacket == nil || e.socket == nil {
		return
	}
	if err := e.socket.SendTo(e.shutdownPacket, e.remote); err != nil {
		e.log.Debug("peerengine: shutdown retransmit failed", "remote", e.remote.String(), "err", err)
	}
}

// ProcessPacket handles any datagram the classifier forwards to an already
// connected peer (spec §4.4 "(other) peer known -> Forward to Peer Engine").
// This reference engine has no ack/sequence machinery, so it only refreshes
// the liveness clock.
func (e *Engine) ProcessPacket(pk *netcore.Packet) error {
	e.lastSeen.Store(time.Now().UnixNano())
	return nil
}

// ProcessConnectAccept validates the opaque ConnectAccept payload this
// engine emits server-side: [prop][connectionId i64 LE]. Returns true when
// the embedded id matches this engine's connectionId, transitioning it to
// Connected (spec §4.4 "Forward to peer; on success emit Connect").
func (e *Engine) ProcessConnectAccept(pk *netcore.Packet) bool {
	id, err := pk.Reader.GetInt64LE()
	if err != nil || id != e.connID {
		return false
	}
	e.state.Store(int32(netcore.StateConnected))
	e.lastSeen.Store(time.Now().UnixNano())
	return true
}

// BuildConnectAccept renders the server-side accept packet for connID, sent
// by sendConnectAccept when New constructs an engine for RoleInboundAccept
// (after the host Accepts a ConnectionRequest).
func BuildConnectAccept(connID int64) []byte {
	pkt := make([]byte, 0, connectAcceptSize)
	pkt = append(pkt, byte(netcore.PropConnectAccept))
	var tmp8 [8]byte
	binary.LittleEndian.PutUint64(tmp8[:], uint64(connID))
	return append(pkt, tmp8[:]...)
}

// Send forwards directly to the socket. Reliability channels/sequencing are
// the out-of-scope concern SendOptions would otherwise configure, and
// datagram coalescing is what cfg.MergeEnabled would otherwise configure;
// this engine has neither, so both are accepted but unused.
func (e *Engine) Send(data []byte, start, length int, opts netcore.SendOptions) error {
	if e.socket == nil {
		return netcore.ErrNotRunning
	}
	return e.socket.SendTo(data[start:start+length], e.remote)
}

// Shutdown begins reliable retransmission of payload (spec §4.3): the
// manager has already built the full Disconnect packet including header and
// ConnectionId; this engine just keeps resending it until the Shutdown
// Table entry is removed (by an AlreadyDisconnected reply) or the manager
// stops calling Update.
func (e *Engine) Shutdown(payload []byte) error {
	e.mu.Lock()
	e.shuttingDown = true
	e.shutdownPacket = payload
	e.sinceShutdownTx = 0
	e.mu.Unlock()
	e.state.Store(int32(netcore.StateShutdownRequested))
	if e.socket == nil {
		return netcore.ErrNotRunning
	}
	return e.socket.SendTo(payload, e.remote)
}

// Flush is a no-op: this reference engine has no internal send queue to
// batch, unlike the fragmentation/merge-aware engine spec.md leaves
// unspecified.
func (e *Engine) Flush() error { return nil }

func (e *Engine) ConnectionState() netcore.ConnectionState {
	return netcore.ConnectionState(e.state.Load())
}

func (e *Engine) MTU() int { return e.mtu }

func (e *Engine) ConnectionID() int64 { return e.connID }

func (e *Engine) TimeSinceLastPacket() time.Duration {
	return time.Since(time.Unix(0, e.lastSeen.Load()))
}

func (e *Engine) Endpoint() netcore.RemoteAddr { return e.remote }
