package netcore

import (
	"sync"

	"github.com/shurlinet/relnet/pkg/netcore/wire"
)

// Property is the one-byte packet-kind discriminator that begins every
// datagram (spec §6.4, Glossary). It is a tagged-union-over-a-byte, matched
// in the classifier rather than dispatched through any interface hierarchy
// (spec §9 "Packet kind").
type Property byte

const (
	PropConnectRequest      Property = iota // [prop][protocolId i32 LE][connectionId i64 LE][payload...]
	PropConnectAccept                       // opaque to the manager, handled by the Peer Engine
	PropDisconnect                          // [prop][connectionId i64 LE][payload...]
	PropAlreadyDisconnected                 // [prop] only
	PropDiscoveryRequest                    // [prop][payload...]
	PropDiscoveryResponse                   // [prop][payload...]
	PropUnconnectedMessage                  // [prop][payload...]
	PropNatIntroduction
	PropNatIntroductionRequest
	PropNatPunchMessage
	PropPeerData // any other property: forwarded to the Peer Engine verbatim
)

// connectRequestHeaderSize is the number of post-header bytes
// (protocolId + connectionId) a ConnectRequest must contain (spec §6.4,
// §9 open question: the size check counts only bytes after the property
// byte).
const connectRequestHeaderSize = 4 + 8 // int32 + int64

// Packet is a pooled wrapper around one inbound datagram. The classifier
// obtains one per datagram (spec §4.4) rather than allocating, then binds a
// wire.Reader to the shared receive buffer for payload-bearing events.
type Packet struct {
	Property Property
	Reader   wire.Reader
}

// packetPool is a LIFO reservoir for Packet, mirroring the Event Pool's
// design (spec §4.1) to keep packet classification allocation-free after
// warm-up.
type packetPool struct {
	mu   sync.Mutex
	free []*Packet
}

func newPacketPool() *packetPool {
	return &packetPool{}
}

func (p *packetPool) acquire() *Packet {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.free)
	if n == 0 {
		return &Packet{}
	}
	pk := p.free[n-1]
	p.free = p.free[:n-1]
	return pk
}

func (p *packetPool) release(pk *Packet) {
	pk.Reader.Clear()
	p.mu.Lock()
	p.free = append(p.free, pk)
	p.mu.Unlock()
}
