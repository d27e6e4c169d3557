package netcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"syscall"
)

// Socket is the raw datagram socket collaborator spec §1 places out of
// scope for the session manager: "bind, send-to, broadcast, async receive
// callback." The manager only ever calls this interface; UDPSocket below is
// the one concrete adapter this module ships so the manager is runnable.
type Socket interface {
	Bind(port int, reuseAddress bool) error
	SendTo(data []byte, addr RemoteAddr) error
	Broadcast(data []byte, port int) error
	SetReceiveCallback(cb func(data []byte, from RemoteAddr, err error))
	LocalPort() int
	Close() error
}

// UDPSocket is a *net.UDPConn-backed Socket, in the style of the teacher's
// network.go (one long-lived OS resource, a context-free Close, options
// threaded through at construction rather than mutated later).
type UDPSocket struct {
	conn     *net.UDPConn
	port     int
	recvCb   func(data []byte, from RemoteAddr, err error)
	log      *slog.Logger
	stopRecv chan struct{}
}

// NewUDPSocket creates an unbound UDPSocket. Call Bind before use.
func NewUDPSocket(log *slog.Logger) *UDPSocket {
	if log == nil {
		log = slog.Default()
	}
	return &UDPSocket{log: log, stopRecv: make(chan struct{})}
}

func (s *UDPSocket) Bind(port int, reuseAddress bool) error {
	lc := net.ListenConfig{}
	if reuseAddress {
		lc.Control = controlReuseAddr
	}
	pc, err := lc.ListenPacket(context.Background(), "udp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}
	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return fmt.Errorf("netcore: expected *net.UDPConn, got %T", pc)
	}
	s.conn = conn
	if la, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		s.port = la.Port
	}
	go s.receiveLoop()
	return nil
}

// controlReuseAddr sets SO_REUSEADDR on the raw socket before bind, so a
// restarted host can rebind its configured port while a prior socket is
// still draining in TIME_WAIT (spec §6.5 Socket.ReuseAddress).
func controlReuseAddr(network, address string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}

func (s *UDPSocket) receiveLoop() {
	buf := make([]byte, 65536)
	for {
		n, from, err := s.conn.ReadFromUDP(buf)
		select {
		case <-s.stopRecv:
			return
		default:
		}
		if s.recvCb == nil {
			continue
		}
		if err != nil {
			s.recvCb(nil, RemoteAddr{}, err)
			if isFatalSocketErr(err) {
				return
			}
			continue
		}
		s.recvCb(buf[:n], NewRemoteAddr(from), nil)
	}
}

func isFatalSocketErr(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return !ne.Timeout()
	}
	return true
}

func (s *UDPSocket) SetReceiveCallback(cb func(data []byte, from RemoteAddr, err error)) {
	s.recvCb = cb
}

func (s *UDPSocket) SendTo(data []byte, addr RemoteAddr) error {
	_, err := s.conn.WriteToUDP(data, addr.UDPAddr())
	return err
}

func (s *UDPSocket) Broadcast(data []byte, port int) error {
	_, err := s.conn.WriteToUDP(data, &net.UDPAddr{IP: net.IPv4bcast, Port: port})
	return err
}

func (s *UDPSocket) LocalPort() int { return s.port }

func (s *UDPSocket) Close() error {
	close(s.stopRecv)
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
