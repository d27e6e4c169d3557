package netcore

import (
	"encoding/binary"
)

// buildDisconnectPacket renders [prop][connectionId i64 LE][payload...]
// (spec §6.4).
func buildDisconnectPacket(connID int64, payload []byte) []byte {
	pkt := make([]byte, 0, 1+8+len(payload))
	pkt = append(pkt, byte(PropDisconnect))
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(connID))
	pkt = append(pkt, tmp[:]...)
	pkt = append(pkt, payload...)
	return pkt
}

// Connect initiates an outbound connection (spec §4.5 "Outbound connect").
// Returns the existing peer without new events if addr is already present
// (idempotence, spec §5, §8). Returns (nil, ErrCapacityReached) when the
// Peer Table is full.
func (m *Manager) Connect(addr RemoteAddr, payload []byte) (*Peer, error) {
	if !m.running.Load() {
		return nil, ErrNotRunning
	}
	if p := m.peers.get(addr); p != nil {
		return p, nil
	}
	// Checked ahead of engine construction: a connect that cannot succeed
	// must have zero side effects (spec §7), and constructing the engine is
	// what actually sends the ConnectRequest datagram.
	if m.peers.count() >= m.cfg.Capacity {
		if m.metrics != nil {
			m.metrics.ConnectAttempts.WithLabelValues("capacity_reached").Inc()
		}
		return nil, ErrCapacityReached
	}

	connID := mintConnectionID()
	engine := m.engine(addr, connID, m.socket, m.engineConfig(), RoleOutboundConnect, payload)
	p := newPeer(addr, connID, engine, StateConnecting)

	if !m.peers.tryInsert(p) {
		if existing := m.peers.get(addr); existing != nil {
			return existing, nil // lost a race to a concurrent inbound accept
		}
		if m.metrics != nil {
			m.metrics.ConnectAttempts.WithLabelValues("capacity_reached").Inc()
		}
		return nil, ErrCapacityReached
	}
	if m.metrics != nil {
		m.metrics.ConnectAttempts.WithLabelValues("initiated").Inc()
	}
	return p, nil
}

// DisconnectPeer gracefully disconnects p (spec §4.5 "Disconnect
// (graceful)"). Returns ErrUnknownPeer if p is not (or no longer) in the
// Peer Table, and ErrPayloadTooLarge if len(payload)+8 >= p.MTU — in both
// cases nothing is sent and p's state is untouched.
func (m *Manager) DisconnectPeer(p *Peer, payload []byte, reason DisconnectReason) error {
	if m.peers.get(p.Remote) != p {
		return ErrUnknownPeer
	}
	if mtu := p.MTU(); mtu > 0 && len(payload)+8 >= mtu {
		return ErrPayloadTooLarge
	}

	pkt := buildDisconnectPacket(p.ConnectionID, payload)
	if err := p.Engine.Shutdown(pkt); err != nil {
		m.log.Warn("netcore: disconnect shutdown send failed", "remote", p.Remote.String(), "err", err)
	}

	m.peers.removeAndTransfer(p.Remote, m.shutdown)

	e := m.pool.acquire(EventDisconnect)
	e.Peer = p
	e.Reason = reason
	m.queue.enqueue(e)
	return nil
}

// DisconnectPeerForce sends one terminal Disconnect datagram, removes p from
// the Peer Table, and adds no Shutdown Table entry (spec §4.5 "Disconnect
// (forced)"). Returns ErrUnknownPeer if p is not (or no longer) in the Peer
// Table.
func (m *Manager) DisconnectPeerForce(p *Peer) error {
	if m.peers.get(p.Remote) != p {
		return ErrUnknownPeer
	}
	pkt := buildDisconnectPacket(p.ConnectionID, nil)
	err := m.socket.SendTo(pkt, p.Remote)
	m.peers.remove(p.Remote)
	return err
}

// handleSendError implements spec §7's send-error taxonomy: TransientSendError
// codes are ignored, OversizeDatagram is logged without disconnecting,
// anything else force-disconnects a known peer and raises an Error event
// (spec §4.5 "Socket send error handling").
func (m *Manager) handleSendError(p *Peer, err error) {
	code := socketErrorCode(err)
	if isIgnoredSendError(code) {
		return
	}
	if code == oversizeDatagramCode {
		m.log.Warn("netcore: oversize datagram send failed", "remote", p.Remote.String())
		if m.metrics != nil {
			m.metrics.SendErrorsTotal.WithLabelValues("OversizeDatagram").Inc()
		}
		return
	}

	if m.metrics != nil {
		m.metrics.SendErrorsTotal.WithLabelValues("FatalSendError").Inc()
	}
	_ = m.DisconnectPeerForce(p)

	e := m.pool.acquire(EventDisconnect)
	e.Peer = p
	e.Reason = DisconnectSocketSendError
	e.Aux = code
	m.queue.enqueue(e)

	errEvt := m.pool.acquire(EventError)
	errEvt.Remote = p.Remote
	errEvt.Aux = code
	m.queue.enqueue(errEvt)
}

const (
	noRouteCode          = 10065 // WSAEHOSTUNREACH-equivalent: ignored (spec §4.5, §7)
	oversizeDatagramCode = 10040 // WSAEMSGSIZE-equivalent: logged, no disconnect (spec §6.4, §7)
)

func isIgnoredSendError(code int) bool {
	return code == noRouteCode
}

// socketErrorCode maps a Go net error onto the Windows-socket-style integer
// code taxonomy spec §7 enumerates (10065 no-route, 10040 oversize). Go's
// net package does not expose that code space, so every non-nil error maps
// to -1 (the taxonomy's catch-all "any other non-zero", i.e.
// FatalSendError); this function never returns 10065 or 10040.
func socketErrorCode(err error) int {
	if err == nil {
		return 0
	}
	return -1
}
