// Copyright 2025 Certen Protocol

package chain

import (
	"context"
	"errors"
)

// ErrAlreadyImported is returned by TxPool.SubmitLocal when another local
// path has already submitted the same extrinsic. The Gossip Handler
// treats this as success (spec §4.4 step 6).
var ErrAlreadyImported = errors.New("chain: extrinsic already imported")

// ErrStale is returned when the runtime reports the event is already
// recorded on-chain. Also treated as success.
var ErrStale = errors.New("chain: extrinsic stale")

// TxPool is the local-submission capability the Gossip Handler uses
// once a quorum is reached. The Core never uses the broadcast path:
// witness extrinsics are produced independently by each validator and
// MUST NOT be gossiped by the ordinary transaction-pool network.
type TxPool interface {
	// SubmitLocal submits ext via the pool's local-only path. Returns
	// ErrAlreadyImported or ErrStale for the two expected benign
	// outcomes; any other non-nil error is a genuine submission
	// failure and must propagate.
	SubmitLocal(ctx context.Context, ext Extrinsic) error
}

// ClassifySubmitError reports whether err from SubmitLocal represents
// one of the two benign, already-succeeded outcomes.
func ClassifySubmitError(err error) (benign bool) {
	return errors.Is(err, ErrAlreadyImported) || errors.Is(err, ErrStale)
}
