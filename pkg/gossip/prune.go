// Copyright 2025 Certen Protocol
//
// prune.go implements the pruning part of the periodic re-gossip/pruning
// sweep described by the original implementation's
// node/src/streams/services/events/mod.rs and consensus/src/gossip/mod.rs
// (stored signatures are not re-published): distinct from the per-message prune
// in Handler.Ingest, this periodically re-derives the latest authority
// set and drops stored signature bundles for events whose authorities
// are now entirely gone, bounding the Proof Store's memory growth for
// events that never reach quorum.

package gossip

import (
	"context"
	"time"

	"github.com/vstreams/core/pkg/streamtypes"
)

// trackEventID records eventID as one this Handler has ingested a
// signature for, so the periodic sweep knows what to re-check. This is
// purely a local bookkeeping aid — it does not affect ingestion
// correctness, only sweep coverage.
func (h *Handler) trackEventID(eventID streamtypes.EventId) {
	h.seenMu.Lock()
	defer h.seenMu.Unlock()
	if h.seen == nil {
		h.seen = make(map[streamtypes.EventId]struct{})
	}
	h.seen[eventID] = struct{}{}
}

func (h *Handler) trackedEventIDs() []streamtypes.EventId {
	h.seenMu.Lock()
	defer h.seenMu.Unlock()
	out := make([]streamtypes.EventId, 0, len(h.seen))
	for id := range h.seen {
		out = append(out, id)
	}
	return out
}

func (h *Handler) untrackEventID(eventID streamtypes.EventId) {
	h.seenMu.Lock()
	defer h.seenMu.Unlock()
	delete(h.seen, eventID)
}

// RunPeriodicPrune runs the sweep every interval until ctx is
// canceled. It is meant to be launched in its own goroutine by the
// node's glue code.
func (h *Handler) RunPeriodicPrune(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sweepOnce(ctx)
		}
	}
}

func (h *Handler) sweepOnce(ctx context.Context) {
	list, err := h.view.LatestAuthorities(ctx)
	if err != nil {
		return // transient runtime error; try again next tick
	}
	validators := list.KeySet()

	for _, eventID := range h.trackedEventIDs() {
		if err := h.store.PurgeEventStaleSignatures(ctx, eventID, validators); err != nil {
			continue
		}
		count, err := h.store.GetEventProofCount(ctx, eventID, validators)
		if err != nil {
			continue
		}
		if count == 0 {
			h.untrackEventID(eventID)
		}
	}
}
