package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNew(t *testing.T) {
	m := New("0.1.0", "go1.26.2")
	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.Registry == nil {
		t.Fatal("Registry is nil")
	}
}

func TestIsolation(t *testing.T) {
	m1 := New("0.1.0", "go1.26.2")
	m2 := New("0.2.0", "go1.26.2")

	m1.PacketsClassified.WithLabelValues("ConnectRequest").Inc()

	families, err := m2.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, f := range families {
		if f.GetName() == "relnet_packets_classified_total" {
			for _, metric := range f.GetMetric() {
				if metric.GetCounter().GetValue() != 0 {
					t.Error("m2 registry saw m1 counter value; registries are not isolated")
				}
			}
		}
	}
}

func TestCounters(t *testing.T) {
	m := New("test", "go1.26.2")

	m.PacketsClassified.WithLabelValues("ConnectRequest").Inc()
	m.PacketsClassified.WithLabelValues("Disconnect").Add(2)
	m.SendErrorsTotal.WithLabelValues("FatalSendError").Inc()
	m.PeersConnected.WithLabelValues("default").Set(3)

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	seen := map[string]bool{}
	for _, f := range families {
		seen[f.GetName()] = true
	}
	for _, name := range []string{
		"relnet_packets_classified_total",
		"relnet_send_errors_total",
		"relnet_peers_connected",
		"relnet_build_info",
	} {
		if !seen[name] {
			t.Errorf("missing metric family %q", name)
		}
	}
}

func TestBuildInfo(t *testing.T) {
	m := New("1.2.3", "go1.26.2")

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, f := range families {
		if f.GetName() != "relnet_build_info" {
			continue
		}
		for _, metric := range f.GetMetric() {
			if metric.GetGauge().GetValue() != 1 {
				t.Errorf("build info gauge = %v, want 1", metric.GetGauge().GetValue())
			}
		}
	}
}

func TestRegistryDoesNotUseGlobal(t *testing.T) {
	m := New("test", "go1.26.2")
	if m.Registry == prometheus.DefaultRegisterer {
		t.Fatal("metrics registered on default global registry")
	}
}
