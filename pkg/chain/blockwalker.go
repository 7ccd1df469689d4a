// Copyright 2025 Certen Protocol

package chain

import (
	"context"

	"github.com/vstreams/core/pkg/authorities"
)

// BlockWalker enumerates finalized blocks sequentially. It is the
// capability pkg/rpcserver's ValidatedEvents poll needs in place of the
// runtime's own finality-notification stream (spec §6) — both are
// external-runtime collaborators out of scope for this repository;
// only the interface lives here.
type BlockWalker interface {
	// NextFinalized returns the finalized block whose parent is after,
	// and its raw extrinsic body, or ok=false if after is already the
	// finalized tip. A zero BlockHash means "genesis's parent": callers
	// asking for the block after the zero hash get the first finalized
	// block.
	NextFinalized(ctx context.Context, after authorities.BlockHash) (hash authorities.BlockHash, body [][]byte, ok bool, err error)
}
