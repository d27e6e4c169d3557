package netcore

import (
	"net"
	"strconv"
)

// RemoteAddr is the opaque, hashable, equality-comparable remote address
// identifier spec §3 calls for. It wraps the IP+port pair in a form usable
// as a map key, which *net.UDPAddr is not (pointer identity, not value
// equality).
type RemoteAddr struct {
	ip   string
	port int
	zone string
}

// NewRemoteAddr builds a RemoteAddr from a *net.UDPAddr.
func NewRemoteAddr(a *net.UDPAddr) RemoteAddr {
	if a == nil {
		return RemoteAddr{}
	}
	return RemoteAddr{ip: a.IP.String(), port: a.Port, zone: a.Zone}
}

// ParseRemoteAddr resolves a "host:port" string into a RemoteAddr, for
// hosts that take a peer address from configuration or the command line.
func ParseRemoteAddr(hostport string) (RemoteAddr, error) {
	addr, err := net.ResolveUDPAddr("udp", hostport)
	if err != nil {
		return RemoteAddr{}, err
	}
	return NewRemoteAddr(addr), nil
}

// UDPAddr reconstructs a *net.UDPAddr for socket send calls.
func (r RemoteAddr) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(r.ip), Port: r.port, Zone: r.zone}
}

// String renders "ip:port" for logging.
func (r RemoteAddr) String() string {
	return net.JoinHostPort(r.ip, strconv.Itoa(r.port))
}

// IsZero reports whether this is the unset RemoteAddr value.
func (r RemoteAddr) IsZero() bool { return r.ip == "" && r.port == 0 }
