// Package config holds the YAML-driven configuration for a relnet session
// manager instance: every option enumerated in spec §6.5, plus the peer
// table capacity and wire protocol id that the spec's examples assume but
// leaves to the embedding application to set.
package config

import (
	"fmt"
	"time"
)

// CurrentConfigVersion is the latest configuration schema version.
// Bump this when adding fields that require migration.
const CurrentConfigVersion = 1

// Config is the full configuration for a Manager.
type Config struct {
	Version int `yaml:"version,omitempty"`

	// Socket holds bind-time options consumed when the manager's Socket
	// collaborator is constructed.
	Socket SocketConfig `yaml:"socket"`

	// ProtocolID is the compile-time wire constant embedded in every
	// ConnectRequest (§6.4). Peers with a mismatched id are silently
	// rejected.
	ProtocolID int32 `yaml:"protocol_id"`

	// Capacity bounds the Peer Table (§4.2). connect() returns nil and
	// inbound ConnectRequest is ignored once reached.
	Capacity int `yaml:"capacity"`

	Features  FeaturesConfig  `yaml:"features,omitempty"`
	Timing    TimingConfig    `yaml:"timing,omitempty"`
	Simulate  SimulateConfig  `yaml:"simulate,omitempty"`
	Telemetry TelemetryConfig `yaml:"telemetry,omitempty"`
}

// SocketConfig controls the bind options of the raw datagram socket
// collaborator (§1: Socket is out of scope, but the manager still needs to
// tell it how to bind).
type SocketConfig struct {
	Port         int  `yaml:"port"`
	ReuseAddress bool `yaml:"reuse_address,omitempty"`
	Broadcast    bool `yaml:"broadcast,omitempty"`
}

// FeaturesConfig toggles optional packet classes (§6.5).
type FeaturesConfig struct {
	UnconnectedMessagesEnabled bool `yaml:"unconnected_messages_enabled,omitempty"`
	DiscoveryEnabled           bool `yaml:"discovery_enabled,omitempty"`
	NatPunchEnabled            bool `yaml:"nat_punch_enabled,omitempty"`
	MergeEnabled               bool `yaml:"merge_enabled,omitempty"`
	UnsyncedEvents             bool `yaml:"unsynced_events,omitempty"`
}

// TimingConfig holds the durations from §6.5, each parsed from a Go
// duration string ("15ms", "5s", ...).
type TimingConfig struct {
	UpdateTime        time.Duration `yaml:"update_time,omitempty"`
	PingInterval       time.Duration `yaml:"ping_interval,omitempty"`
	DisconnectTimeout  time.Duration `yaml:"disconnect_timeout,omitempty"`
	ReconnectDelay     time.Duration `yaml:"reconnect_delay,omitempty"`
	MaxConnectAttempts int           `yaml:"max_connect_attempts,omitempty"`
}

// SimulateConfig holds the debug-only Ingress Simulator controls (§4.7).
type SimulateConfig struct {
	PacketLoss       bool          `yaml:"packet_loss,omitempty"`
	PacketLossChance int           `yaml:"packet_loss_chance,omitempty"` // percent, 0-100
	Latency          bool          `yaml:"latency,omitempty"`
	MinLatency       time.Duration `yaml:"min_latency,omitempty"`
	MaxLatency       time.Duration `yaml:"max_latency,omitempty"`
}

// TelemetryConfig controls the Prometheus metrics endpoint. Disabled by
// default, matching the teacher's opt-in telemetry convention.
type TelemetryConfig struct {
	MetricsEnabled bool `yaml:"metrics_enabled,omitempty"`
}

// Default returns the configuration defaults named in spec §6.5.
func Default() *Config {
	return &Config{
		Version:    CurrentConfigVersion,
		ProtocolID: 1,
		Capacity:   64,
		Timing: TimingConfig{
			UpdateTime:         15 * time.Millisecond,
			PingInterval:       1000 * time.Millisecond,
			DisconnectTimeout:  5000 * time.Millisecond,
			ReconnectDelay:     500 * time.Millisecond,
			MaxConnectAttempts: 10,
		},
	}
}

// ApplyDefaults fills zero-valued timing fields and a zero protocol_id with
// spec defaults. Loader callers run this after YAML unmarshaling so a config
// file only needs to mention the fields it overrides. Capacity is not
// defaulted: a zero capacity is left for Validate to reject.
func (c *Config) ApplyDefaults() {
	d := Default()
	if c.ProtocolID == 0 {
		c.ProtocolID = d.ProtocolID
	}
	if c.Timing.UpdateTime == 0 {
		c.Timing.UpdateTime = d.Timing.UpdateTime
	}
	if c.Timing.PingInterval == 0 {
		c.Timing.PingInterval = d.Timing.PingInterval
	}
	if c.Timing.DisconnectTimeout == 0 {
		c.Timing.DisconnectTimeout = d.Timing.DisconnectTimeout
	}
	if c.Timing.ReconnectDelay == 0 {
		c.Timing.ReconnectDelay = d.Timing.ReconnectDelay
	}
	if c.Timing.MaxConnectAttempts == 0 {
		c.Timing.MaxConnectAttempts = d.Timing.MaxConnectAttempts
	}
}

// Validate checks the configuration for obviously unusable values before a
// Manager is constructed from it.
func (c *Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive, got %d", c.Capacity)
	}
	if c.Socket.Port < 0 || c.Socket.Port > 65535 {
		return fmt.Errorf("socket.port out of range: %d", c.Socket.Port)
	}
	if c.Simulate.PacketLoss && (c.Simulate.PacketLossChance < 0 || c.Simulate.PacketLossChance > 100) {
		return fmt.Errorf("simulate.packet_loss_chance must be 0-100, got %d", c.Simulate.PacketLossChance)
	}
	if c.Simulate.Latency && c.Simulate.MinLatency > c.Simulate.MaxLatency {
		return fmt.Errorf("simulate.min_latency (%s) exceeds max_latency (%s)", c.Simulate.MinLatency, c.Simulate.MaxLatency)
	}
	if c.Timing.MaxConnectAttempts <= 0 {
		return fmt.Errorf("timing.max_connect_attempts must be positive, got %d", c.Timing.MaxConnectAttempts)
	}
	return nil
}
