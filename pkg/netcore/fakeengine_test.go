package netcore

import (
	"encoding/binary"
	"sync/atomic"
	"time"
)

// testEngine is a minimal PeerEngine test double, self-contained in this
// package (rather than importing internal/peerengine, which would import
// netcore back and cycle the test binary). It speaks the same wire layout
// as the real reference engine so classifier.go's routing is exercised
// exactly as it would be in production.
type testEngine struct {
	remote RemoteAddr
	connID int64
	socket Socket
	cfg    EngineConfig

	lastSeen atomic.Int64
	state    atomic.Int32

	connectPacket []byte
	attemptsLeft  int
	sinceLastSend time.Duration

	shuttingDown    bool
	shutdownPacket  []byte
	sinceShutdownTx time.Duration
}

func newTestEngine(remote RemoteAddr, connID int64, socket Socket, cfg EngineConfig, role HandshakeRole, payload []byte) PeerEngine {
	e := &testEngine{remote: remote, connID: connID, socket: socket, cfg: cfg}
	e.lastSeen.Store(time.Now().UnixNano())
	switch role {
	case RoleOutboundConnect:
		pkt := make([]byte, 0, 1+4+8+len(payload))
		pkt = append(pkt, byte(PropConnectRequest))
		var tmp4 [4]byte
		binary.LittleEndian.PutUint32(tmp4[:], uint32(cfg.ProtocolID))
		pkt = append(pkt, tmp4[:]...)
		var tmp8 [8]byte
		binary.LittleEndian.PutUint64(tmp8[:], uint64(connID))
		pkt = append(pkt, tmp8[:]...)
		pkt = append(pkt, payload...)
		e.connectPacket = pkt
		e.attemptsLeft = cfg.MaxConnectAttempts
		e.state.Store(int32(StateConnecting))
		_ = socket.SendTo(pkt, remote)
	default:
		e.state.Store(int32(StateConnected))
		accept := make([]byte, 0, 1+8)
		accept = append(accept, byte(PropConnectAccept))
		var tmp8 [8]byte
		binary.LittleEndian.PutUint64(tmp8[:], uint64(connID))
		accept = append(accept, tmp8[:]...)
		_ = socket.SendTo(accept, remote)
	}
	return e
}

func (e *testEngine) Update(deltaMs int64) {
	delta := time.Duration(deltaMs) * time.Millisecond
	switch ConnectionState(e.state.Load()) {
	case StateConnecting:
		e.sinceLastSend += delta
		if e.sinceLastSend < e.cfg.ReconnectDelay {
			return
		}
		e.sinceLastSend = 0
		if e.attemptsLeft <= 0 {
			e.state.Store(int32(StateDisconnected))
			return
		}
		e.attemptsLeft--
		_ = e.socket.SendTo(e.connectPacket, e.remote)
	case StateShutdownRequested, StateDisconnected:
		if e.shuttingDown {
			e.sinceShutdownTx += delta
			if e.sinceShutdownTx >= e.cfg.ReconnectDelay {
				e.sinceShutdownTx = 0
				_ = e.socket.SendTo(e.shutdownPacket, e.remote)
			}
		}
	}
}

func (e *testEngine) ProcessPacket(pk *Packet) error {
	e.lastSeen.Store(time.Now().UnixNano())
	return nil
}

func (e *testEngine) ProcessConnectAccept(pk *Packet) bool {
	id, err := pk.Reader.GetInt64LE()
	if err != nil || id != e.connID {
		return false
	}
	e.state.Store(int32(StateConnected))
	e.lastSeen.Store(time.Now().UnixNano())
	return true
}

func (e *testEngine) Send(data []byte, start, length int, opts SendOptions) error {
	return e.socket.SendTo(data[start:start+length], e.remote)
}

func (e *testEngine) Shutdown(payload []byte) error {
	e.shuttingDown = true
	e.shutdownPacket = payload
	e.sinceShutdownTx = 0
	e.state.Store(int32(StateShutdownRequested))
	return e.socket.SendTo(payload, e.remote)
}

func (e *testEngine) Flush() error { return nil }

func (e *testEngine) ConnectionState() ConnectionState { return ConnectionState(e.state.Load()) }

func (e *testEngine) MTU() int {
	if e.cfg.DefaultMTU > 0 {
		return e.cfg.DefaultMTU
	}
	return 1200
}

func (e *testEngine) ConnectionID() int64 { return e.connID }

func (e *testEngine) TimeSinceLastPacket() time.Duration {
	return time.Since(time.Unix(0, e.lastSeen.Load()))
}

func (e *testEngine) Endpoint() RemoteAddr { return e.remote }
