// Copyright 2025 Certen Protocol
//
// loopback.go implements witness.Publisher: the Witnesser publishes
// through this type, which both broadcasts on the wire transport and
// feeds the Gossip Handler's own ingestion path directly, so a locally
// witnessed event is indistinguishable from one received over gossip
// (spec §4.3 — "relies on the local gossip loopback... to unify
// paths").

package gossip

import (
	"context"
	"fmt"

	"github.com/vstreams/core/pkg/streamtypes"
)

// Broadcaster is the subset of Transport the LoopbackPublisher needs,
// named as an interface so tests can substitute a no-op.
type Broadcaster interface {
	Publish(ctx context.Context, we streamtypes.WitnessedEvent) error
}

// LoopbackPublisher implements witness.Publisher over a Handler and a
// Broadcaster.
type LoopbackPublisher struct {
	handler     *Handler
	broadcaster Broadcaster
}

// NewLoopbackPublisher constructs a LoopbackPublisher.
func NewLoopbackPublisher(handler *Handler, broadcaster Broadcaster) *LoopbackPublisher {
	return &LoopbackPublisher{handler: handler, broadcaster: broadcaster}
}

// Publish broadcasts we on the wire transport and ingests it locally.
// Ingestion runs even if the broadcast fails, since the local validator
// should still count its own signature; the broadcast error is still
// returned so the caller (the Witnesser's gRPC/HTTP boundary) can
// report a publish failure to its client.
func (p *LoopbackPublisher) Publish(ctx context.Context, we streamtypes.WitnessedEvent) error {
	ingestErr := p.handler.Ingest(ctx, we)

	broadcastErr := p.broadcaster.Publish(ctx, we)

	if ingestErr != nil {
		return fmt.Errorf("gossip: local loopback ingestion: %w", ingestErr)
	}
	return broadcastErr
}
