package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterAttachesAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New()
	if err := m.Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}

	m.GossipIngested.WithLabelValues().Inc()
	m.GossipDropped.WithLabelValues(DropReasonVerifyOrigin).Inc()
	m.QuorumReached.Inc()
	m.ExtrinsicsSubmitted.WithLabelValues(SubmitOutcomeSuccess).Inc()
	m.ImportAdmitted.Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatalf("expected at least one metric family after incrementing counters")
	}

	var sawDropped bool
	for _, f := range families {
		if f.GetName() == "vstreams_gossip_dropped_total" {
			sawDropped = true
			if got := f.GetMetric()[0].GetCounter().GetValue(); got != 1 {
				t.Fatalf("expected dropped counter 1, got %v", got)
			}
		}
	}
	if !sawDropped {
		t.Fatalf("expected to find vstreams_gossip_dropped_total in gathered families")
	}
}

func TestRegisterRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New()
	if err := m.Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := m.Register(reg); err == nil {
		t.Fatalf("expected double registration to fail")
	}
}
