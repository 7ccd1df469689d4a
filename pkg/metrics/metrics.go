// Copyright 2025 Certen Protocol
//
// Package metrics wires github.com/prometheus/client_golang into the
// witnessing pipeline: gossip ingestion outcomes, quorum events,
// extrinsic submissions, and import-guard decisions.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every Prometheus collector the Core registers.
type Metrics struct {
	GossipIngested  *prometheus.CounterVec
	GossipDropped   *prometheus.CounterVec
	QuorumReached   prometheus.Counter
	ExtrinsicsSubmitted *prometheus.CounterVec
	ImportAdmitted  prometheus.Counter
	ImportRejected  prometheus.Counter
}

// dropReason labels why a gossip message was dropped.
const (
	DropReasonVerifyOrigin = "verify_origin"
	DropReasonStoreError   = "store_error"
)

// submitOutcome labels a pool submission's outcome: success, or one of
// the three failure classes (already imported, stale, other error).
const (
	SubmitOutcomeSuccess         = "success"
	SubmitOutcomeAlreadyImported = "already_imported"
	SubmitOutcomeStale           = "stale"
	SubmitOutcomeError           = "error"
)

// New creates the Metrics set without registering it. Call Register to
// attach it to a registry (production code uses prometheus.DefaultRegisterer;
// tests use a private registry to avoid cross-test collisions).
func New() *Metrics {
	return &Metrics{
		GossipIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vstreams",
			Subsystem: "gossip",
			Name:      "ingested_total",
			Help:      "WitnessedEvent messages successfully ingested into the Proof Store.",
		}, nil),
		GossipDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vstreams",
			Subsystem: "gossip",
			Name:      "dropped_total",
			Help:      "WitnessedEvent messages dropped, labeled by reason.",
		}, []string{"reason"}),
		QuorumReached: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vstreams",
			Subsystem: "gossip",
			Name:      "quorum_reached_total",
			Help:      "Events that reached signature quorum.",
		}),
		ExtrinsicsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vstreams",
			Subsystem: "gossip",
			Name:      "extrinsics_submitted_total",
			Help:      "Witness extrinsic submissions to the local transaction pool, labeled by outcome.",
		}, []string{"outcome"}),
		ImportAdmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vstreams",
			Subsystem: "importguard",
			Name:      "admitted_total",
			Help:      "Blocks admitted by the Block-Import Guard.",
		}),
		ImportRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vstreams",
			Subsystem: "importguard",
			Name:      "rejected_total",
			Help:      "Blocks rejected by the Block-Import Guard for insufficient witness quorum.",
		}),
	}
}

// Register attaches every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.GossipIngested, m.GossipDropped, m.QuorumReached,
		m.ExtrinsicsSubmitted, m.ImportAdmitted, m.ImportRejected,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
