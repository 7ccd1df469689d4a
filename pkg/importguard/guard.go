// Copyright 2025 Certen Protocol
//
// Package importguard implements the Block-Import Guard: it wraps the
// block-import pipeline so blocks containing witnessing extrinsics
// whose quorum has not been locally observed are not admitted (spec
// §4.5). Grounded in the teacher's pkg/consensus health-monitor shape:
// an injected external capability (there, a CometBFT status fetcher;
// here, a sync oracle and a wrapped importer), sentinel errors, and a
// small decide-and-log control method.
package importguard

import (
	"context"
	"errors"
	"fmt"

	"github.com/vstreams/core/pkg/authorities"
	"github.com/vstreams/core/pkg/chain"
	"github.com/vstreams/core/pkg/metrics"
	"github.com/vstreams/core/pkg/proofstore"
	"github.com/vstreams/core/pkg/streamtypes"
)

// ErrRejected is returned by Guard.ImportBlock when the block is
// rejected for insufficient witness quorum. Callers propagate this as
// a ClientImport-style error per spec §4.5 step 4; the substrate import
// machinery is expected to retry.
var ErrRejected = errors.New("importguard: block rejected: insufficiently witnessed events")

// Block is the minimal view of an incoming block the guard needs.
// Body is nil for a header-only import (no extrinsics to inspect).
type Block struct {
	Hash       authorities.BlockHash
	ParentHash authorities.BlockHash
	Body       [][]byte
}

// SyncOracle reports whether the node is currently in major-syncing
// mode. While syncing, the guard bypasses inspection entirely: a
// syncing node has not yet observed the gossip that would populate its
// Proof Store, and applying the guard during catch-up would deadlock
// progress.
type SyncOracle interface {
	IsMajorSyncing(ctx context.Context) (bool, error)
}

// Importer is the wrapped block-import pipeline the guard forwards to
// once a block is admitted.
type Importer interface {
	Import(ctx context.Context, b Block) error
}

// Guard implements the five-step import_block protocol.
type Guard struct {
	view     *authorities.View
	store    proofstore.Store
	runtime  chain.Runtime
	sync     SyncOracle
	importer Importer
	metrics  *metrics.Metrics
}

// New constructs a Block-Import Guard.
func New(view *authorities.View, store proofstore.Store, runtime chain.Runtime, sync SyncOracle, importer Importer) *Guard {
	return &Guard{view: view, store: store, runtime: runtime, sync: sync, importer: importer}
}

// WithMetrics attaches a Metrics set to an already-constructed Guard;
// nil (the default) disables instrumentation entirely.
func (g *Guard) WithMetrics(m *metrics.Metrics) *Guard {
	g.metrics = m
	return g
}

// ImportBlock runs the five-step import_block protocol for b.
func (g *Guard) ImportBlock(ctx context.Context, b Block) error {
	// 1. Sync bypass.
	syncing, err := g.sync.IsMajorSyncing(ctx)
	if err != nil {
		return fmt.Errorf("importguard: sync oracle: %w", err)
	}
	if syncing {
		return g.importer.Import(ctx, b)
	}

	// 2. Extract event IDs, if the block carries a body.
	var eventIDs []streamtypes.EventId
	if b.Body != nil {
		eventIDs, err = g.runtime.GetExtrinsicIDs(ctx, b.ParentHash, b.Body)
		if err != nil {
			return fmt.Errorf("importguard: get extrinsic ids: %w", err)
		}
	}

	// 3. Verify against the authorities in force at the parent hash,
	// not the block itself.
	list, err := g.view.AuthoritiesAt(ctx, b.ParentHash)
	if err != nil {
		return fmt.Errorf("importguard: authorities at parent: %w", err)
	}
	validators := list.KeySet()
	target := g.view.Target(list)

	var unwitnessed []streamtypes.EventId
	for _, id := range eventIDs {
		count, err := g.store.GetEventProofCount(ctx, id, validators)
		if err != nil {
			return fmt.Errorf("importguard: count event proofs: %w", err)
		}
		if count < target {
			unwitnessed = append(unwitnessed, id)
		}
	}

	// 4. Decide.
	if len(unwitnessed) == 0 {
		if g.metrics != nil {
			g.metrics.ImportAdmitted.Inc()
		}
		return g.importer.Import(ctx, b)
	}
	if g.metrics != nil {
		g.metrics.ImportRejected.Inc()
	}
	return fmt.Errorf("%w: %d of %d witnessing extrinsics lack quorum in block %s",
		ErrRejected, len(unwitnessed), len(eventIDs), b.Hash.Hex())
}
