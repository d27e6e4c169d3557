package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/shurlinet/relnet/internal/config"
	"github.com/shurlinet/relnet/pkg/netcore"
)

func runConnect(args []string) {
	args = reorderArgs(args, nil)
	if err := doConnect(args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
	}
}

func doConnect(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("connect", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configFlag := fs.String("config", "", "path to config file")
	payloadFlag := fs.String("payload", "", "text payload to carry in the ConnectRequest")
	waitFlag := fs.Duration("wait", 5*time.Second, "how long to wait for the handshake before giving up")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: relnet connect <host:port>")
	}
	target, err := netcore.ParseRemoteAddr(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid target address: %w", err)
	}

	cfg := config.Default()
	if cfgFile, err := config.FindConfigFile(*configFlag); err == nil {
		if cfg, err = config.Load(cfgFile); err != nil {
			return fmt.Errorf("config error: %w", err)
		}
	}
	// connect has exactly one listener and never calls PollEvents, so
	// queued dispatch would leave connectListener's callbacks dead.
	cfg.Features.UnsyncedEvents = true

	log := slog.Default()
	socket := netcore.NewUDPSocket(log)

	connected := make(chan *netcore.Peer, 1)
	done := make(chan struct{})
	listener := &connectListener{base: loggingListener{log: log}, connected: connected, done: done}

	mgr := netcore.NewManager(cfg, socket, peerEngineFactory, listener)
	if err := mgr.Start(0); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer mgr.Stop()

	if _, err := mgr.Connect(target, []byte(*payloadFlag)); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	select {
	case p := <-connected:
		fmt.Fprintf(stdout, "connected to %s (connection id %d)\n", p.Remote.String(), p.ConnectionID)
	case <-time.After(*waitFlag):
		return fmt.Errorf("timed out waiting for handshake with %s", target.String())
	}

	if *payloadFlag != "" {
		fmt.Fprintf(stdout, "sent payload: %q\n", *payloadFlag)
	}

	select {
	case <-done:
	case <-time.After(*waitFlag):
	}
	return nil
}

// connectListener wraps loggingListener, additionally signaling connected
// once the single outbound peer reaches Connected so runConnect can stop
// blocking.
type connectListener struct {
	base      loggingListener
	connected chan *netcore.Peer
	done      chan struct{}
}

func (l *connectListener) OnPeerConnected(p *netcore.Peer) {
	l.base.OnPeerConnected(p)
	select {
	case l.connected <- p:
	default:
	}
}

func (l *connectListener) OnPeerDisconnected(p *netcore.Peer, reason netcore.DisconnectReason) {
	l.base.OnPeerDisconnected(p, reason)
	close(l.done)
}

func (l *connectListener) OnNetworkReceive(p *netcore.Peer, r *netcore.Event) {
	l.base.OnNetworkReceive(p, r)
}

func (l *connectListener) OnNetworkReceiveUnconnected(addr netcore.RemoteAddr, r *netcore.Event, kind netcore.UnconnectedKind) {
	l.base.OnNetworkReceiveUnconnected(addr, r, kind)
}

func (l *connectListener) OnNetworkError(addr netcore.RemoteAddr, errorCode int) {
	l.base.OnNetworkError(addr, errorCode)
}

func (l *connectListener) OnNetworkLatencyUpdate(p *netcore.Peer, latencyMs int) {
	l.base.OnNetworkLatencyUpdate(p, latencyMs)
}

func (l *connectListener) OnConnectionRequest(req *netcore.ConnectionRequest) {
	l.base.OnConnectionRequest(req)
}
