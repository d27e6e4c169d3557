package netcore

import (
	"github.com/google/uuid"
	"github.com/shurlinet/relnet/pkg/netcore/wire"
)

// onReceive is the Socket's receive callback (spec §4.4, §9 "I/O
// thread(s)... invoke the receive callback with a reusable datagram
// buffer"). It is reentrant: multiple datagrams may be classified
// concurrently if the Socket implementation uses more than one I/O thread.
func (m *Manager) onReceive(data []byte, from RemoteAddr, err error) {
	if err != nil {
		m.handleReceiveError(err)
		return
	}
	if !m.ingress.admit(data, from) {
		if m.metrics != nil {
			m.metrics.IngressDropped.Inc()
		}
		return
	}
	m.classify(data, from)
}

// handleReceiveError implements spec §7's ReceiveError policy: a
// socket-reported receive error clears the entire Peer Table and raises an
// Error event. Spec §9 flags this as a known, surprising trade-off
// preserved from the source rather than softened; see DESIGN.md.
func (m *Manager) handleReceiveError(err error) {
	m.log.Warn("netcore: receive error, clearing peer table", "err", err)
	for _, p := range m.peers.clear() {
		e := m.pool.acquire(EventDisconnect)
		e.Peer = p
		e.Reason = DisconnectUnknown
		m.queue.enqueue(e)
	}
	e := m.pool.acquire(EventError)
	m.queue.enqueue(e)
}

// classify parses the one-byte property header and routes the datagram per
// spec §4.4's table. It holds the Peer Table lock only across lookup and
// any removal performed by the table's own methods.
func (m *Manager) classify(data []byte, from RemoteAddr) {
	if len(data) < 1 {
		return
	}
	pk := m.packets.acquire()
	defer m.packets.release(pk)
	pk.Property = Property(data[0])
	pk.Reader.Bind(data, 1)

	if m.metrics != nil {
		m.metrics.PacketsClassified.WithLabelValues(propertyName(pk.Property)).Inc()
	}

	switch pk.Property {
	case PropDiscoveryRequest:
		if m.cfg.Features.DiscoveryEnabled {
			m.emitUnconnected(EventDiscoveryRequest, UnconnectedDiscoveryRequest, from, pk.Reader.RemainingBytes())
		}

	case PropDiscoveryResponse:
		m.emitUnconnected(EventDiscoveryResponse, UnconnectedDiscoveryResponse, from, pk.Reader.RemainingBytes())

	case PropUnconnectedMessage:
		if m.cfg.Features.UnconnectedMessagesEnabled {
			m.emitUnconnected(EventReceiveUnconnected, UnconnectedBasic, from, pk.Reader.RemainingBytes())
		}

	case PropNatIntroduction, PropNatIntroductionRequest, PropNatPunchMessage:
		if m.cfg.Features.NatPunchEnabled {
			m.routeNAT(pk.Property, pk.Reader.RemainingBytes(), from)
		}

	case PropDisconnect:
		m.classifyDisconnect(pk, from)

	case PropAlreadyDisconnected:
		m.shutdown.remove(from)

	case PropConnectAccept:
		if p := m.peers.get(from); p != nil {
			if p.Engine.ProcessConnectAccept(pk) {
				p.setState(StateConnected)
				e := m.pool.acquire(EventConnect)
				e.Peer = p
				m.queue.enqueue(e)
			}
		}

	case PropConnectRequest:
		m.classifyConnectRequest(pk, from)

	default: // PropPeerData and any unrecognized property: forward to the engine
		if p := m.peers.get(from); p != nil {
			if err := p.Engine.ProcessPacket(pk); err == nil {
				e := m.pool.acquire(EventReceive)
				e.Peer = p
				cp := copyBytes(pk.Reader.RemainingBytes())
				e.Reader.Bind(cp, 0)
				m.queue.enqueue(e)
			}
		}
	}
}

func (m *Manager) classifyDisconnect(pk *Packet, from RemoteAddr) {
	p := m.peers.get(from)
	if p == nil {
		_ = m.socket.SendTo([]byte{byte(PropAlreadyDisconnected)}, from)
		return
	}
	connID, err := pk.Reader.GetInt64LE()
	if err != nil {
		return // MalformedDatagram: silently dropped
	}
	if connID != p.ConnectionID {
		return // stale disconnect, discarded per spec §4.4 scenario 4
	}
	m.peers.remove(from)
	e := m.pool.acquire(EventDisconnect)
	e.Peer = p
	e.Reason = DisconnectRemoteConnectionClose
	cp := copyBytes(pk.Reader.RemainingBytes())
	e.Reader.Bind(cp, 0)
	m.queue.enqueue(e)
}

func (m *Manager) classifyConnectRequest(pk *Packet, from RemoteAddr) {
	if m.peers.contains(from) {
		return // already a peer at this address: no second peer (spec §4.4)
	}
	if m.peers.count() >= m.cfg.Capacity {
		return // CapacityReached on inbound: silently ignored (spec §7, §9 open question)
	}
	if pk.Reader.Remaining() < connectRequestHeaderSize {
		return // MalformedDatagram
	}
	protocolID, err := pk.Reader.GetInt32LE()
	if err != nil {
		return
	}
	connID, err := pk.Reader.GetInt64LE()
	if err != nil {
		return
	}
	if protocolID != m.cfg.ProtocolID {
		return // ProtocolMismatch: silently dropped (spec §7)
	}

	payload := copyBytes(pk.Reader.RemainingBytes())
	var reader wire.Reader
	reader.Bind(payload, 0)

	req := &ConnectionRequest{
		ConnectionID:  connID,
		RemoteAddr:    from,
		Reader:        reader,
		CorrelationID: uuid.New().String(),
		resolve:       m.resolveConnectionRequest(from, connID),
	}

	e := m.pool.acquire(EventConnectionRequest)
	e.Remote = from
	e.ConnRequest = req
	m.queue.enqueue(e)
}

// resolveConnectionRequest builds the closure a ConnectionRequest invokes on
// Accept/Reject (spec §4.5 "Inbound connect"). It re-acquires the Peer
// Table and re-checks address absence, since a race may have added the
// peer between the event being raised and the host's decision.
func (m *Manager) resolveConnectionRequest(from RemoteAddr, connID int64) func(accept bool, connectionID int64, engine PeerEngine) {
	return func(accept bool, connectionID int64, engine PeerEngine) {
		if !accept {
			return // Reject is silent to the classifier (spec §4.5)
		}
		if engine == nil {
			engine = m.engine(from, connectionID, m.socket, m.engineConfig(), RoleInboundAccept, nil)
		}
		p := newPeer(from, connectionID, engine, StateConnected)
		if !m.peers.tryInsert(p) {
			return // race: address was taken concurrently
		}
		e := m.pool.acquire(EventConnect)
		e.Peer = p
		m.queue.enqueue(e)
	}
}

func (m *Manager) emitUnconnected(kind EventKind, uk UnconnectedKind, from RemoteAddr, payload []byte) {
	e := m.pool.acquire(kind)
	e.Remote = from
	e.UnconnectedKind = uk
	cp := copyBytes(payload)
	e.Reader.Bind(cp, 0)
	m.queue.enqueue(e)
}

func (m *Manager) routeNAT(prop Property, payload []byte, from RemoteAddr) {
	addr := from.String()
	switch prop {
	case PropNatIntroduction:
		m.nat.HandleIntroduction(payload, addr)
	case PropNatIntroductionRequest:
		m.nat.HandleIntroductionRequest(payload, addr)
	case PropNatPunchMessage:
		m.nat.HandlePunchMessage(payload, addr)
	}
}

func copyBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp
}

func propertyName(p Property) string {
	switch p {
	case PropConnectRequest:
		return "ConnectRequest"
	case PropConnectAccept:
		return "ConnectAccept"
	case PropDisconnect:
		return "Disconnect"
	case PropAlreadyDisconnected:
		return "AlreadyDisconnected"
	case PropDiscoveryRequest:
		return "DiscoveryRequest"
	case PropDiscoveryResponse:
		return "DiscoveryResponse"
	case PropUnconnectedMessage:
		return "UnconnectedMessage"
	case PropNatIntroduction:
		return "NatIntroduction"
	case PropNatIntroductionRequest:
		return "NatIntroductionRequest"
	case PropNatPunchMessage:
		return "NatPunchMessage"
	default:
		return "PeerData"
	}
}
