// Copyright 2025 Certen Protocol
//
// Package gossip implements the Gossip Handler: the central state
// machine that ingests WitnessedEvent messages (local or remote),
// deduplicates, accumulates them into the Proof Store, and submits
// finalized-quorum extrinsics (spec §4.4).
package gossip

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vstreams/core/pkg/authorities"
	"github.com/vstreams/core/pkg/chain"
	"github.com/vstreams/core/pkg/metrics"
	"github.com/vstreams/core/pkg/proofstore"
	"github.com/vstreams/core/pkg/streamtypes"
)

// Handler is the Gossip Handler. It never propagates errors to a
// caller expecting forward progress — Ingest's error return exists for
// testability and for the transport loop to log; dropping one message
// is always safe (spec §7).
type Handler struct {
	view    *authorities.View
	store   proofstore.Store
	runtime chain.Runtime
	pool    chain.TxPool
	mode    chain.ProofMode
	metrics *metrics.Metrics

	// seenMu/seen back the periodic pruning sweep (prune.go); they are
	// not involved in per-message ingestion correctness.
	seenMu sync.Mutex
	seen   map[streamtypes.EventId]struct{}
}

// Option configures a Handler at construction time.
type Option func(*Handler)

// WithProofMode overrides the default off-chain-proofs mode.
func WithProofMode(mode chain.ProofMode) Option {
	return func(h *Handler) { h.mode = mode }
}

// WithMetrics attaches a Metrics set; nil (the default) disables
// instrumentation entirely.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// New constructs a Gossip Handler.
func New(view *authorities.View, store proofstore.Store, runtime chain.Runtime, pool chain.TxPool, opts ...Option) *Handler {
	h := &Handler{view: view, store: store, runtime: runtime, pool: pool, mode: chain.ProofModeOffChain}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Ingest processes one incoming WitnessedEvent per the five/six-step
// protocol. A non-nil error means the message was dropped (verify
// failure) or a genuine submission failure occurred; callers log and
// continue rather than propagate further.
func (h *Handler) Ingest(ctx context.Context, we streamtypes.WitnessedEvent) error {
	// 1. Authority snapshot at the latest finalized block.
	list, err := h.view.LatestAuthorities(ctx)
	if err != nil {
		return fmt.Errorf("gossip: authority snapshot: %w", err)
	}

	// 2. Verify origin.
	if err := h.view.VerifyOrigin(we, list); err != nil {
		h.countDropped(metrics.DropReasonVerifyOrigin)
		return fmt.Errorf("gossip: verify origin: %w", err)
	}

	// 3. Insert (idempotent; duplicates absorbed silently).
	if err := h.store.AddEventProof(ctx, we); err != nil {
		h.countDropped(metrics.DropReasonStoreError)
		return fmt.Errorf("gossip: add event proof: %w", err)
	}
	h.trackEventID(we.EventId)
	if h.metrics != nil {
		h.metrics.GossipIngested.WithLabelValues().Inc()
	}

	validators := list.KeySet()

	// 4. Prune signatures from validators no longer in the active set.
	if err := h.store.PurgeEventStaleSignatures(ctx, we.EventId, validators); err != nil {
		return fmt.Errorf("gossip: purge stale signatures: %w", err)
	}

	// 5. Quorum check.
	count, err := h.store.GetEventProofCount(ctx, we.EventId, validators)
	if err != nil {
		return fmt.Errorf("gossip: count event proofs: %w", err)
	}
	target := h.view.Target(list)
	if count < target {
		return nil
	}
	if h.metrics != nil {
		h.metrics.QuorumReached.Inc()
	}

	ext, err := h.buildExtrinsic(ctx, we.EventId, validators)
	if err != nil {
		return fmt.Errorf("gossip: build extrinsic: %w", err)
	}

	// 6. Submit locally; AlreadyImported/Stale are absorbed as success.
	if err := h.pool.SubmitLocal(ctx, ext); err != nil {
		if !chain.ClassifySubmitError(err) {
			h.countSubmitted(metrics.SubmitOutcomeError)
			return fmt.Errorf("gossip: submit extrinsic: %w", err)
		}
		if errors.Is(err, chain.ErrStale) {
			h.countSubmitted(metrics.SubmitOutcomeStale)
		} else {
			h.countSubmitted(metrics.SubmitOutcomeAlreadyImported)
		}
		return nil
	}
	h.countSubmitted(metrics.SubmitOutcomeSuccess)
	return nil
}

func (h *Handler) countDropped(reason string) {
	if h.metrics != nil {
		h.metrics.GossipDropped.WithLabelValues(reason).Inc()
	}
}

func (h *Handler) countSubmitted(outcome string) {
	if h.metrics != nil {
		h.metrics.ExtrinsicsSubmitted.WithLabelValues(outcome).Inc()
	}
}

func (h *Handler) buildExtrinsic(ctx context.Context, eventID streamtypes.EventId, validators map[streamtypes.PublicKeyKey]struct{}) (chain.Extrinsic, error) {
	switch h.mode {
	case chain.ProofModeOnChain:
		proofs, err := h.store.GetEventProofs(ctx, eventID, validators)
		if err != nil {
			return nil, fmt.Errorf("fetch proof map: %w", err)
		}
		return h.runtime.CreateUnsignedExtrinsic(ctx, eventID, chain.ProofMap(proofs))
	default:
		return h.runtime.CreateUnsignedExtrinsic(ctx, eventID, nil)
	}
}
