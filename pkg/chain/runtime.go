// Copyright 2025 Certen Protocol
//
// Package chain names the blockchain runtime's API surface as the Core
// consumes it (spec §1, §6). The runtime itself — block production,
// finality, the on-chain "validated streams" module — is an external
// collaborator out of scope for this repository; only the interfaces
// below live here. Tests define their own fakes.
package chain

import (
	"context"

	"github.com/vstreams/core/pkg/authorities"
	"github.com/vstreams/core/pkg/streamtypes"
)

// ProofMap is the on-chain-proofs mode's key→signature representation,
// passed opaquely to CreateUnsignedExtrinsic.
type ProofMap map[streamtypes.PublicKeyKey]streamtypes.Signature

// Extrinsic is an opaque blob produced by the runtime; the Core never
// inspects its contents, only submits it to the TxPool.
type Extrinsic []byte

// Runtime is the chain runtime API surface the Core consumes.
type Runtime interface {
	// Authorities returns the authority set in force at blockHash.
	Authorities(ctx context.Context, blockHash authorities.BlockHash) ([]streamtypes.PublicKey, error)

	// FinalizedTip returns the current finalized block hash.
	FinalizedTip(ctx context.Context) (authorities.BlockHash, error)

	// GetExtrinsicIDs projects a block body to the witnessing event IDs
	// it references. Non-witnessing extrinsics contribute no IDs. body
	// is opaque raw extrinsic bytes, one entry per extrinsic.
	GetExtrinsicIDs(ctx context.Context, parentHash authorities.BlockHash, body [][]byte) ([]streamtypes.EventId, error)

	// CreateUnsignedExtrinsic builds the chain-level extrinsic for
	// eventID. proofs is nil in off-chain-proofs mode; non-nil in
	// on-chain-proofs mode.
	CreateUnsignedExtrinsic(ctx context.Context, eventID streamtypes.EventId, proofs ProofMap) (Extrinsic, error)
}
