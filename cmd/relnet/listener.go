package main

import (
	"log/slog"

	"github.com/shurlinet/relnet/pkg/netcore"
)

// loggingListener logs every callback: at Info level, except network errors
// (Warn) and latency updates (Debug). It is the default
// Listener for both "serve" and "connect" since neither command has an
// application layer of its own to hand events to.
type loggingListener struct {
	netcore.NopListener
	log *slog.Logger
}

func (l *loggingListener) OnPeerConnected(p *netcore.Peer) {
	l.log.Info("peer connected", "remote", p.Remote.String(), "connection_id", p.ConnectionID)
}

func (l *loggingListener) OnPeerDisconnected(p *netcore.Peer, reason netcore.DisconnectReason) {
	l.log.Info("peer disconnected", "remote", p.Remote.String(), "reason", reason.String())
}

func (l *loggingListener) OnNetworkReceive(p *netcore.Peer, r *netcore.Event) {
	payload := r.Reader.RemainingBytes()
	l.log.Info("received data", "remote", p.Remote.String(), "bytes", len(payload))
}

func (l *loggingListener) OnNetworkReceiveUnconnected(addr netcore.RemoteAddr, r *netcore.Event, kind netcore.UnconnectedKind) {
	l.log.Info("received unconnected message", "remote", addr.String(), "kind", kind.String())
}

func (l *loggingListener) OnNetworkError(addr netcore.RemoteAddr, errorCode int) {
	l.log.Warn("network error", "remote", addr.String(), "code", errorCode)
}

func (l *loggingListener) OnNetworkLatencyUpdate(p *netcore.Peer, latencyMs int) {
	l.log.Debug("latency update", "remote", p.Remote.String(), "latency_ms", latencyMs)
}

func (l *loggingListener) OnConnectionRequest(req *netcore.ConnectionRequest) {
	l.log.Info("connection request", "remote", req.RemoteAddr.String(), "correlation_id", req.CorrelationID)
	req.Accept(nil)
}
