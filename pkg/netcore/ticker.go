package netcore

import (
	"context"
	"time"
)

// tickLoop is the Logic Tick Driver of spec §4.6: a dedicated periodic
// goroutine sleeping UpdateTime between iterations. It runs as the one
// errgroup.Group member Start spawns, and returns when ctx is canceled by
// Stop.
func (m *Manager) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Timing.UpdateTime)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			delta := now.Sub(last)
			last = now
			m.tick(delta)
		}
	}
}

func (m *Manager) tick(delta time.Duration) {
	deltaMs := delta.Milliseconds()

	for _, due := range m.ingress.releaseDue(time.Now()) {
		if m.metrics != nil {
			m.metrics.IngressDelayed.Inc()
		}
		m.classify(due.data, due.from)
	}

	var toRemove []*Peer
	for _, p := range m.peers.snapshot() {
		switch p.State() {
		case StateConnected:
			if p.TimeSinceLastPacket() > m.cfg.Timing.DisconnectTimeout {
				e := m.pool.acquire(EventDisconnect)
				e.Peer = p
				e.Reason = DisconnectTimeout
				m.queue.enqueue(e)
				toRemove = append(toRemove, p)
				continue
			}
			p.Engine.Update(deltaMs)

		case StateDisconnected:
			e := m.pool.acquire(EventDisconnect)
			e.Peer = p
			e.Reason = DisconnectConnectionFailed
			m.queue.enqueue(e)
			toRemove = append(toRemove, p)

		default: // Connecting: let the engine retry/expire
			p.Engine.Update(deltaMs)
		}
	}
	for _, p := range toRemove {
		m.peers.remove(p.Remote)
	}

	if m.metrics != nil {
		m.metrics.PeersConnected.WithLabelValues("default").Set(float64(m.peers.count()))
		m.metrics.ShutdownPeers.Set(float64(m.shutdown.count()))
		m.metrics.EventsPooled.Set(float64(m.pool.size()))
		m.metrics.EventsInFlight.Set(float64(m.queue.depth()))
	}

	m.shutdown.forEach(func(p *Peer) {
		p.Engine.Update(deltaMs)
	})
}
