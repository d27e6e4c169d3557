// Package natstub provides the passive NAT Module consumer spec.md places
// out of scope (§1): "a passive consumer of packets routed by classification."
// The session manager only ever hands it bytes it has already classified as
// NAT traffic; natstub does not attempt hole punching itself.
package natstub

import "log/slog"

// Module is the narrow interface the Packet Classifier hands NAT packets
// to (spec §4.4). A real NAT traversal implementation is out of scope;
// this package supplies the passive hand-off point plus a logging default
// so a complete module has something to wire NatPunchEnabled to.
type Module interface {
	HandleIntroduction(payload []byte, from string)
	HandleIntroductionRequest(payload []byte, from string)
	HandlePunchMessage(payload []byte, from string)
}

// LoggingModule is the default Module: it records that a NAT packet
// arrived and does nothing else, matching the teacher's pattern of never
// leaving a configured-but-unimplemented feature silently swallowing
// traffic without a trace (compare pkg/p2pnet's reachability probes, which
// always slog.Debug before returning).
type LoggingModule struct {
	Log *slog.Logger
}

func NewLoggingModule(log *slog.Logger) *LoggingModule {
	if log == nil {
		log = slog.Default()
	}
	return &LoggingModule{Log: log}
}

func (m *LoggingModule) HandleIntroduction(payload []byte, from string) {
	m.Log.Debug("natstub: introduction received", "from", from, "bytes", len(payload))
}

func (m *LoggingModule) HandleIntroductionRequest(payload []byte, from string) {
	m.Log.Debug("natstub: introduction request received", "from", from, "bytes", len(payload))
}

func (m *LoggingModule) HandlePunchMessage(payload []byte, from string) {
	m.Log.Debug("natstub: punch message received", "from", from, "bytes", len(payload))
}
