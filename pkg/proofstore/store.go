// Copyright 2025 Certen Protocol
//
// Package proofstore implements the Proof Store component: durable,
// concurrent storage of validator signatures per event, with
// quorum-aware queries and validator-set-aware pruning (spec §4.1).
//
// The Store interface is a capability set — add, get-all, count,
// purge-stale — so callers (the Gossip Handler, the Block-Import Guard,
// the Witnesser's local loopback) never see backend-specific types.
// Four backends implement it: in-memory, embedded-KV (cometbft-db),
// offchain-storage (same KV, plus a signer index), and Postgres.
package proofstore

import (
	"context"

	"github.com/vstreams/core/pkg/streamtypes"
)

// Store is the Proof Store's capability set. All methods are safe for
// concurrent use from multiple goroutines.
type Store interface {
	// AddEventProof inserts we.Signature under (we.EventId, we.PubKey),
	// only if no signature is already stored for that pair. Returns nil
	// both when the signature was newly inserted and when an identical
	// (event, key) pair already existed — idempotence is the point: gossip
	// routinely re-delivers messages. Fails only on storage errors.
	AddEventProof(ctx context.Context, we streamtypes.WitnessedEvent) error

	// GetEventProofs returns the stored signatures for eventID whose
	// signer is in validators. Keys not in validators are excluded from
	// the result, not deleted.
	GetEventProofs(ctx context.Context, eventID streamtypes.EventId, validators map[streamtypes.PublicKeyKey]struct{}) (map[streamtypes.PublicKeyKey]streamtypes.Signature, error)

	// GetEventProofCount returns the cardinality of GetEventProofs,
	// implemented without materializing the full map where the backend
	// allows it.
	GetEventProofCount(ctx context.Context, eventID streamtypes.EventId, validators map[streamtypes.PublicKeyKey]struct{}) (int, error)

	// PurgeEventStaleSignatures deletes every stored signature for
	// eventID whose signer is not in validators. Idempotent.
	PurgeEventStaleSignatures(ctx context.Context, eventID streamtypes.EventId, validators map[streamtypes.PublicKeyKey]struct{}) error
}
