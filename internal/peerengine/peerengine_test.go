package peerengine

import (
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/shurlinet/relnet/pkg/netcore"
	"github.com/shurlinet/relnet/pkg/netcore/wire"
)

// recordingSocket captures every SendTo call; it never actually transmits
// anywhere, matching the behavior an Engine needs from netcore.Socket.
type recordingSocket struct {
	mu   sync.Mutex
	sent [][]byte
}

func (s *recordingSocket) Bind(port int, reuseAddress bool) error  { return nil }
func (s *recordingSocket) SetReceiveCallback(func([]byte, netcore.RemoteAddr, error)) {}
func (s *recordingSocket) Broadcast(data []byte, port int) error   { return nil }
func (s *recordingSocket) LocalPort() int                          { return 0 }
func (s *recordingSocket) Close() error                             { return nil }

func (s *recordingSocket) SendTo(data []byte, addr netcore.RemoteAddr) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	s.mu.Lock()
	s.sent = append(s.sent, cp)
	s.mu.Unlock()
	return nil
}

func (s *recordingSocket) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *recordingSocket) last() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return nil
	}
	return s.sent[len(s.sent)-1]
}

func testCfg() netcore.EngineConfig {
	return netcore.EngineConfig{
		ProtocolID:         1,
		PingInterval:       time.Second,
		ReconnectDelay:     10 * time.Millisecond,
		MaxConnectAttempts: 3,
		DefaultMTU:         1200,
	}
}

func TestOutboundConnectSendsConnectRequestImmediately(t *testing.T) {
	sock := &recordingSocket{}
	remote := netcore.RemoteAddr{}
	eng := New(remote, 42, sock, testCfg(), netcore.RoleOutboundConnect, []byte("hi"))

	if sock.count() != 1 {
		t.Fatalf("sent %d packets on construction, want 1", sock.count())
	}
	pkt := sock.last()
	if len(pkt) < 1 || netcore.Property(pkt[0]) != netcore.PropConnectRequest {
		t.Fatalf("property = %v, want ConnectRequest", pkt)
	}
	connID := int64(binary.LittleEndian.Uint64(pkt[5:13]))
	if connID != 42 {
		t.Fatalf("connectionId = %d, want 42", connID)
	}
	if string(pkt[13:]) != "hi" {
		t.Fatalf("payload = %q, want %q", pkt[13:], "hi")
	}
	if eng.ConnectionState() != netcore.StateConnecting {
		t.Fatalf("state = %v, want Connecting", eng.ConnectionState())
	}
}

func TestInboundAcceptSendsConnectAcceptImmediately(t *testing.T) {
	sock := &recordingSocket{}
	eng := New(netcore.RemoteAddr{}, 7, sock, testCfg(), netcore.RoleInboundAccept, nil)

	if sock.count() != 1 {
		t.Fatalf("sent %d packets on construction, want 1", sock.count())
	}
	want := BuildConnectAccept(7)
	if string(sock.last()) != string(want) {
		t.Fatalf("accept packet = %v, want %v", sock.last(), want)
	}
	if eng.ConnectionState() != netcore.StateConnected {
		t.Fatalf("state = %v, want Connected", eng.ConnectionState())
	}
}

func TestOutboundRetransmitsUntilAttemptsExhausted(t *testing.T) {
	sock := &recordingSocket{}
	cfg := testCfg()
	cfg.MaxConnectAttempts = 2
	eng := New(netcore.RemoteAddr{}, 1, sock, cfg, netcore.RoleOutboundConnect, nil)

	// Initial send plus up to MaxConnectAttempts retransmits.
	for i := 0; i < cfg.MaxConnectAttempts; i++ {
		eng.Update(cfg.ReconnectDelay.Milliseconds())
	}
	if sock.count() != 1+cfg.MaxConnectAttempts {
		t.Fatalf("sent %d packets, want %d", sock.count(), 1+cfg.MaxConnectAttempts)
	}
	if eng.ConnectionState() != netcore.StateConnecting {
		t.Fatalf("state = %v, want still Connecting with attempts just exhausted", eng.ConnectionState())
	}

	// One more tick past ReconnectDelay with attemptsLeft at 0 transitions
	// to Disconnected without sending again.
	eng.Update(cfg.ReconnectDelay.Milliseconds())
	if eng.ConnectionState() != netcore.StateDisconnected {
		t.Fatalf("state = %v, want Disconnected once attempts are exhausted", eng.ConnectionState())
	}
	if sock.count() != 1+cfg.MaxConnectAttempts {
		t.Fatalf("sent %d packets after exhaustion, want no further sends (%d)", sock.count(), 1+cfg.MaxConnectAttempts)
	}
}

func TestProcessConnectAcceptMatchingID(t *testing.T) {
	sock := &recordingSocket{}
	eng := New(netcore.RemoteAddr{}, 99, sock, testCfg(), netcore.RoleOutboundConnect, nil)

	pk := &netcore.Packet{Reader: bindInt64LE(99)}

	if !eng.ProcessConnectAccept(pk) {
		t.Fatal("expected ProcessConnectAccept to accept a matching connection id")
	}
	if eng.ConnectionState() != netcore.StateConnected {
		t.Fatalf("state = %v, want Connected", eng.ConnectionState())
	}
}

func TestProcessConnectAcceptMismatchedID(t *testing.T) {
	sock := &recordingSocket{}
	eng := New(netcore.RemoteAddr{}, 99, sock, testCfg(), netcore.RoleOutboundConnect, nil)

	pk := &netcore.Packet{Reader: bindInt64LE(1)} // wrong id

	if eng.ProcessConnectAccept(pk) {
		t.Fatal("expected ProcessConnectAccept to reject a mismatched connection id")
	}
	if eng.ConnectionState() != netcore.StateConnecting {
		t.Fatalf("state = %v, want still Connecting after a rejected accept", eng.ConnectionState())
	}
}

func TestPingSentOnceKeepaliveIntervalElapses(t *testing.T) {
	sock := &recordingSocket{}
	cfg := testCfg()
	cfg.PingInterval = 50 * time.Millisecond
	eng := New(netcore.RemoteAddr{}, 1, sock, cfg, netcore.RoleInboundAccept, nil)

	baseline := sock.count() // the ConnectAccept send
	eng.Update(30)
	if sock.count() != baseline {
		t.Fatal("ping should not fire before PingInterval elapses")
	}
	eng.Update(30)
	if sock.count() != baseline+1 {
		t.Fatalf("sent %d packets, want %d (one ping)", sock.count(), baseline+1)
	}
	last := sock.last()
	if netcore.Property(last[0]) != netcore.PropPeerData {
		t.Fatalf("ping property = %d, want PeerData", last[0])
	}
}

func TestShutdownRetransmitsUntilUpdateStops(t *testing.T) {
	sock := &recordingSocket{}
	cfg := testCfg()
	eng := New(netcore.RemoteAddr{}, 5, sock, cfg, netcore.RoleInboundAccept, nil)

	payload := []byte{byte(netcore.PropDisconnect), 1, 2, 3}
	if err := eng.Shutdown(payload); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	baseline := sock.count()
	if string(sock.last()) != string(payload) {
		t.Fatal("Shutdown should send the disconnect payload immediately")
	}

	eng.Update(cfg.ReconnectDelay.Milliseconds())
	if sock.count() != baseline+1 {
		t.Fatalf("sent %d packets, want one retransmit after ReconnectDelay", sock.count())
	}
	if string(sock.last()) != string(payload) {
		t.Fatal("retransmit should resend the same disconnect payload")
	}
}

// bindInt64LE builds a wire.Reader positioned at the start of an 8-byte
// little-endian encoding of v, matching the ConnectAccept payload shape.
func bindInt64LE(v int64) wire.Reader {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	var r wire.Reader
	r.Bind(tmp[:], 0)
	return r
}
