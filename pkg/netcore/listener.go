package netcore

// Listener is the host capability set of spec §6.2, modeled as an
// interface rather than a class hierarchy (spec §9 "Polymorphic listener").
// A host that only cares about a subset of callbacks can embed
// NopListener and override the ones it needs.
type Listener interface {
	OnPeerConnected(p *Peer)
	OnPeerDisconnected(p *Peer, reason DisconnectReason)
	OnNetworkReceive(p *Peer, r *Event)
	OnNetworkReceiveUnconnected(addr RemoteAddr, r *Event, kind UnconnectedKind)
	OnNetworkError(addr RemoteAddr, errorCode int)
	OnNetworkLatencyUpdate(p *Peer, latencyMs int)
	OnConnectionRequest(req *ConnectionRequest)
}

// NopListener implements Listener with no-op methods, letting a host embed
// it and override only the callbacks it cares about.
type NopListener struct{}

func (NopListener) OnPeerConnected(*Peer)                                    {}
func (NopListener) OnPeerDisconnected(*Peer, DisconnectReason)                {}
func (NopListener) OnNetworkReceive(*Peer, *Event)                            {}
func (NopListener) OnNetworkReceiveUnconnected(RemoteAddr, *Event, UnconnectedKind) {}
func (NopListener) OnNetworkError(RemoteAddr, int)                            {}
func (NopListener) OnNetworkLatencyUpdate(*Peer, int)                         {}
func (NopListener) OnConnectionRequest(*ConnectionRequest)                    {}
