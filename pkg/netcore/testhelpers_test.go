package netcore

import (
	"time"

	"github.com/shurlinet/relnet/internal/config"
)

// recordingListener captures every callback on buffered channels so tests
// can assert on them without racing the manager's own goroutines.
type recordingListener struct {
	connected    chan *Peer
	disconnected chan disconnectRecord
	received     chan receiveRecord
	unconnected  chan unconnectedRecord
	errors       chan int
	connRequests chan *ConnectionRequest
}

type disconnectRecord struct {
	peer   *Peer
	reason DisconnectReason
}

type receiveRecord struct {
	peer    *Peer
	payload []byte
}

type unconnectedRecord struct {
	addr RemoteAddr
	kind UnconnectedKind
}

func newRecordingListener() *recordingListener {
	return &recordingListener{
		connected:    make(chan *Peer, 16),
		disconnected: make(chan disconnectRecord, 16),
		received:     make(chan receiveRecord, 16),
		unconnected:  make(chan unconnectedRecord, 16),
		errors:       make(chan int, 16),
		connRequests: make(chan *ConnectionRequest, 16),
	}
}

func (l *recordingListener) OnPeerConnected(p *Peer) { l.connected <- p }

func (l *recordingListener) OnPeerDisconnected(p *Peer, reason DisconnectReason) {
	l.disconnected <- disconnectRecord{peer: p, reason: reason}
}

func (l *recordingListener) OnNetworkReceive(p *Peer, r *Event) {
	payload := append([]byte(nil), r.Reader.RemainingBytes()...)
	l.received <- receiveRecord{peer: p, payload: payload}
}

func (l *recordingListener) OnNetworkReceiveUnconnected(addr RemoteAddr, r *Event, kind UnconnectedKind) {
	l.unconnected <- unconnectedRecord{addr: addr, kind: kind}
}

func (l *recordingListener) OnNetworkError(addr RemoteAddr, errorCode int) { l.errors <- errorCode }

func (l *recordingListener) OnNetworkLatencyUpdate(p *Peer, latencyMs int) {}

func (l *recordingListener) OnConnectionRequest(req *ConnectionRequest) { l.connRequests <- req }

// autoAcceptListener always accepts inbound connection requests with the
// manager's own EngineFactory (Accept(nil)), otherwise recording like
// recordingListener.
type autoAcceptListener struct {
	*recordingListener
}

func (l *autoAcceptListener) OnConnectionRequest(req *ConnectionRequest) {
	l.recordingListener.OnConnectionRequest(req)
	req.Accept(nil)
}

func testConfig(capacity int) *config.Config {
	cfg := config.Default()
	cfg.Capacity = capacity
	cfg.Timing.UpdateTime = 10 * time.Millisecond
	cfg.Timing.PingInterval = 2 * time.Second
	cfg.Timing.DisconnectTimeout = 3 * time.Second
	cfg.Timing.ReconnectDelay = 20 * time.Millisecond
	cfg.Timing.MaxConnectAttempts = 5
	cfg.Features.UnconnectedMessagesEnabled = true
	cfg.Features.DiscoveryEnabled = true
	// Tests assert on recordingListener's channels directly rather than
	// driving their own PollEvents loop, so events must dispatch inline.
	cfg.Features.UnsyncedEvents = true
	return cfg
}

func recvWithTimeout[T any](ch chan T, d time.Duration) (T, bool) {
	select {
	case v := <-ch:
		return v, true
	case <-time.After(d):
		var zero T
		return zero, false
	}
}
