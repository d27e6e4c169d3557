// Package netcore implements the session manager core: the component that
// owns the Peer Table, demultiplexes every inbound datagram into the
// correct per-peer state machine or an out-of-band flow, coordinates the
// I/O, logic, and host threads, and pools ephemeral objects to keep the hot
// path allocation-free.
package netcore

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/shurlinet/relnet/internal/config"
	"github.com/shurlinet/relnet/internal/metrics"
	"github.com/shurlinet/relnet/internal/natstub"
)

// Manager is the Session Manager of spec §2/§4.8/§6.1. One Manager owns
// exactly one Socket, one logic thread, and the Peer/Shutdown Tables bound
// to it (spec §9 "Global/process state": per-manager, not process-global).
type Manager struct {
	cfg     *config.Config
	socket  Socket
	engine  EngineFactory
	listener Listener
	log     *slog.Logger
	metrics *metrics.Metrics
	nat     natstub.Module

	peers    *peerTable
	shutdown *shutdownTable
	pool     *eventPool
	queue    *eventQueue
	packets  *packetPool
	ingress  *ingressSimulator

	discoveryLimiter *rate.Limiter

	running atomic.Bool
	group   *errgroup.Group
	cancel  context.CancelFunc
}

// Option customizes a Manager at construction time.
type Option func(*Manager)

// WithMetrics attaches a metrics.Metrics instance. If omitted, metrics calls
// are skipped (nil-checked at each call site).
func WithMetrics(m *metrics.Metrics) Option { return func(mgr *Manager) { mgr.metrics = m } }

// WithNATModule overrides the default logging NAT Module stub.
func WithNATModule(n natstub.Module) Option { return func(mgr *Manager) { mgr.nat = n } }

// WithLogger overrides the default slog.Default() logger.
func WithLogger(l *slog.Logger) Option { return func(mgr *Manager) { mgr.log = l } }

// NewManager constructs a Manager bound to socket, using factory to build
// each peer's Peer Engine, and dispatching events to listener. cfg supplies
// every option in spec §6.5.
func NewManager(cfg *config.Config, socket Socket, factory EngineFactory, listener Listener, opts ...Option) *Manager {
	m := &Manager{
		cfg:      cfg,
		socket:   socket,
		engine:   factory,
		listener: listener,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.nat == nil {
		m.nat = natstub.NewLoggingModule(m.log)
	}

	m.pool = newEventPool()
	m.queue = newEventQueue(m.pool, cfg.Features.UnsyncedEvents, dispatcherFunc(m.processEvent))
	m.peers = newPeerTable(cfg.Capacity)
	m.shutdown = newShutdownTable()
	m.packets = newPacketPool()
	m.ingress = newIngressSimulator(&cfg.Simulate)

	// One discovery broadcast per 200ms, bursting up to 5: discovery is a
	// LAN-wide send, not per-peer, so it gets its own limiter rather than
	// one derived from Capacity.
	m.discoveryLimiter = rate.NewLimiter(rate.Every(200*time.Millisecond), 5)

	return m
}

// dispatcherFunc adapts a plain function to the Dispatcher interface.
type dispatcherFunc func(e *Event)

func (f dispatcherFunc) ProcessEvent(e *Event) { f(e) }

// engineConfig derives the EngineConfig the Peer Engine factory consumes
// from the manager's loaded configuration.
func (m *Manager) engineConfig() EngineConfig {
	return EngineConfig{
		ProtocolID:         m.cfg.ProtocolID,
		PingInterval:       m.cfg.Timing.PingInterval,
		ReconnectDelay:     m.cfg.Timing.ReconnectDelay,
		MaxConnectAttempts: m.cfg.Timing.MaxConnectAttempts,
		DefaultMTU:         1200,
		MergeEnabled:       m.cfg.Features.MergeEnabled,
	}
}

// Start binds the socket and starts the logic thread (spec §6.1, §9
// "Threading/Cancellation"). Idempotent failure if already running.
func (m *Manager) Start(port int) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	if err := m.socket.Bind(port, m.cfg.Socket.ReuseAddress); err != nil {
		m.running.Store(false)
		return fmt.Errorf("netcore: bind: %w", err)
	}
	m.socket.SetReceiveCallback(m.onReceive)

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	group, gctx := errgroup.WithContext(ctx)
	m.group = group
	group.Go(func() error {
		m.tickLoop(gctx)
		return nil
	})

	m.log.Info("netcore: manager started", "port", m.socket.LocalPort())
	return nil
}

// Stop sends best-effort terminal disconnects, stops the logic thread, and
// closes the socket (spec §4.8, §9 "stop() is blocking"). The logic thread
// is joined with an errgroup.Group rather than a raw WaitGroup, matching
// how the teacher coordinates its own background goroutines.
func (m *Manager) Stop() error {
	if !m.running.CompareAndSwap(true, false) {
		return nil
	}

	for _, p := range m.peers.clear() {
		pkt := buildDisconnectPacket(p.ConnectionID, nil)
		_ = m.socket.SendTo(pkt, p.Remote)
	}

	m.cancel()
	_ = m.group.Wait()

	err := m.socket.Close()
	m.log.Info("netcore: manager stopped")
	if err != nil {
		return fmt.Errorf("netcore: close: %w", err)
	}
	return nil
}

// IsRunning reports whether Start has succeeded and Stop has not yet
// completed (spec §9 "the manager observes IsRunning = false").
func (m *Manager) IsRunning() bool { return m.running.Load() }

// PollEvents drains and dispatches queued events on the calling goroutine
// (spec §6.1). No-op under UnsyncedEvents, since enqueue already dispatched
// inline.
func (m *Manager) PollEvents() int { return m.queue.poll() }

func (m *Manager) processEvent(e *Event) {
	if m.listener == nil {
		return
	}
	switch e.Kind {
	case EventConnect:
		m.listener.OnPeerConnected(e.Peer)
	case EventDisconnect:
		m.listener.OnPeerDisconnected(e.Peer, e.Reason)
	case EventReceive:
		m.listener.OnNetworkReceive(e.Peer, e)
	case EventReceiveUnconnected, EventDiscoveryRequest, EventDiscoveryResponse:
		m.listener.OnNetworkReceiveUnconnected(e.Remote, e, e.UnconnectedKind)
	case EventError:
		m.listener.OnNetworkError(e.Remote, e.Aux)
	case EventLatencyUpdate:
		m.listener.OnNetworkLatencyUpdate(e.Peer, e.Aux)
	case EventConnectionRequest:
		m.listener.OnConnectionRequest(e.ConnRequest)
	}
}

// GetPeers returns a snapshot of every peer currently in the Peer Table
// (spec §6.1).
func (m *Manager) GetPeers() []*Peer { return m.peers.snapshot() }

// GetPeersNonAlloc fills dst with the current peer snapshot, reusing its
// backing array when large enough (spec §6.1 getPeersNonAlloc).
func (m *Manager) GetPeersNonAlloc(dst []*Peer) []*Peer { return m.peers.snapshotInto(dst) }

// PeersCount returns the number of peers currently in the Peer Table.
func (m *Manager) PeersCount() int { return m.peers.count() }

// Flush forces every peer's send queue to the wire (spec §4.8).
func (m *Manager) Flush() error {
	var firstErr error
	for _, p := range m.peers.snapshot() {
		if err := p.Engine.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SendToAll broadcasts payload to every connected peer except exclude
// (spec §4.8, §6.1).
func (m *Manager) SendToAll(payload []byte, opts SendOptions, exclude *Peer) error {
	var firstErr error
	for _, p := range m.peers.snapshot() {
		if p == exclude {
			continue
		}
		if err := p.Engine.Send(payload, 0, len(payload), opts); err != nil {
			m.handleSendError(p, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// SendUnconnectedMessage sends payload to addr without requiring a peer
// connection; the receiver's UnconnectedMessagesEnabled gates acceptance,
// not this call (spec §6.1).
func (m *Manager) SendUnconnectedMessage(payload []byte, addr RemoteAddr) error {
	if !m.running.Load() {
		return ErrNotRunning
	}
	pkt := make([]byte, 0, 1+len(payload))
	pkt = append(pkt, byte(PropUnconnectedMessage))
	pkt = append(pkt, payload...)
	return m.socket.SendTo(pkt, addr)
}

// SendDiscoveryRequest broadcasts a discovery packet on the LAN (spec
// §6.1), rate-limited so a misbehaving host can't flood the local segment
// with broadcast traffic.
func (m *Manager) SendDiscoveryRequest(payload []byte, port int) error {
	if !m.running.Load() {
		return ErrNotRunning
	}
	if !m.discoveryLimiter.Allow() {
		return ErrDiscoveryRateLimited
	}
	pkt := make([]byte, 0, 1+len(payload))
	pkt = append(pkt, byte(PropDiscoveryRequest))
	pkt = append(pkt, payload...)
	return m.socket.Broadcast(pkt, port)
}

// SendDiscoveryResponse unicasts a discovery reply (spec §6.1).
func (m *Manager) SendDiscoveryResponse(payload []byte, addr RemoteAddr) error {
	if !m.running.Load() {
		return ErrNotRunning
	}
	pkt := make([]byte, 0, 1+len(payload))
	pkt = append(pkt, byte(PropDiscoveryResponse))
	pkt = append(pkt, payload...)
	return m.socket.SendTo(pkt, addr)
}

func mintConnectionID() int64 {
	id := rand.Int64()
	if id == 0 {
		id = 1
	}
	return id
}
