package netcore

import "errors"

var (
	// ErrNotRunning is returned by operations that require a bound socket
	// and running logic thread (spec §7 NotRunning).
	ErrNotRunning = errors.New("netcore: manager is not running")

	// ErrAlreadyRunning is returned by Start when called on a manager that
	// is already running (spec §6.1: "Idempotent failure if already running").
	ErrAlreadyRunning = errors.New("netcore: manager is already running")

	// ErrCapacityReached is returned by Connect when the Peer Table is full
	// (spec §7 CapacityReached).
	ErrCapacityReached = errors.New("netcore: peer table at capacity")

	// ErrPayloadTooLarge is returned when a disconnect payload would not
	// fit under the peer's MTU (spec §4.5).
	ErrPayloadTooLarge = errors.New("netcore: disconnect payload exceeds mtu budget")

	// ErrUnknownPeer is returned when an operation names a peer handle the
	// manager no longer owns.
	ErrUnknownPeer = errors.New("netcore: unknown peer")

	// ErrDiscoveryRateLimited is returned by SendDiscoveryRequest when the
	// caller exceeds the manager's broadcast rate limit.
	ErrDiscoveryRateLimited = errors.New("netcore: discovery broadcast rate limited")
)
