package netcore

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shurlinet/relnet/internal/config"
)

// ingressSimulator is the Ingress Simulator of spec §4.7: a debug-only
// delay/drop pipeline sitting between the Socket's receive callback and the
// Packet Classifier.
type ingressSimulator struct {
	cfg *config.SimulateConfig

	mu      sync.Mutex
	holding []delayedDatagram
}

// latencyReleaseThreshold is the "small threshold" below which a delayed
// datagram is processed immediately rather than entering the holding list
// (spec §4.7).
const latencyReleaseThreshold = 5 * time.Millisecond

type delayedDatagram struct {
	data     []byte
	from     RemoteAddr
	deadline time.Time
}

func newIngressSimulator(cfg *config.SimulateConfig) *ingressSimulator {
	return &ingressSimulator{cfg: cfg}
}

// admit decides whether a freshly received datagram should be processed
// now. It returns true for "process now", or false when the packet loss
// draw dropped it. When simulated latency defers processing, admit copies
// data (the socket's receive buffer is reused, spec §4.7) into the holding
// list and returns false too — the Logic Tick Driver's releaseDue will hand
// the copy back later.
func (s *ingressSimulator) admit(data []byte, from RemoteAddr) bool {
	if s.cfg.PacketLoss && s.cfg.PacketLossChance > 0 {
		if rand.IntN(100) < s.cfg.PacketLossChance {
			return false
		}
	}
	if !s.cfg.Latency {
		return true
	}

	span := s.cfg.MaxLatency - s.cfg.MinLatency
	delay := s.cfg.MinLatency
	if span > 0 {
		delay += time.Duration(rand.Int64N(int64(span) + 1))
	}
	if delay <= latencyReleaseThreshold {
		return true
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	s.mu.Lock()
	s.holding = append(s.holding, delayedDatagram{data: cp, from: from, deadline: time.Now().Add(delay)})
	s.mu.Unlock()
	return false
}

// releaseDue pops every held datagram whose deadline has passed, called by
// the Logic Tick Driver each tick (spec §4.7).
func (s *ingressSimulator) releaseDue(now time.Time) []delayedDatagram {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.holding) == 0 {
		return nil
	}
	var due []delayedDatagram
	remaining := s.holding[:0]
	for _, d := range s.holding {
		if now.After(d.deadline) || now.Equal(d.deadline) {
			due = append(due, d)
		} else {
			remaining = append(remaining, d)
		}
	}
	s.holding = remaining
	return due
}
