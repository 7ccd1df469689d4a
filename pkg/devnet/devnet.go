// Copyright 2025 Certen Protocol
//
// Package devnet is a single-process stand-in for the out-of-scope
// blockchain runtime (spec §1): block production, finality, and the
// "validated streams" runtime module that records event IDs. It exists
// so cmd/vstreamsd can run end-to-end without an embedding chain
// client, the way the teacher's accumulate/ethereum lite-client
// adapters stand in for a full node from the validator's point of view
// — except here there is no real chain to dial, so this package
// produces one. Production deployments wire node.Deps to the real
// runtime instead; this package has no role there.
package devnet

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vstreams/core/pkg/authorities"
	"github.com/vstreams/core/pkg/chain"
	"github.com/vstreams/core/pkg/importguard"
	"github.com/vstreams/core/pkg/streamtypes"
)

var (
	_ chain.Runtime         = (*Runtime)(nil)
	_ chain.TxPool          = (*Runtime)(nil)
	_ chain.BlockWalker     = (*Runtime)(nil)
	_ importguard.SyncOracle = (*Runtime)(nil)
	_ importguard.Importer   = (*Runtime)(nil)
)

// block is one produced, immediately-finalized devnet block.
type block struct {
	hash       authorities.BlockHash
	parentHash authorities.BlockHash
	body       [][]byte
}

// Runtime is an in-memory chain standing in for chain.Runtime,
// chain.TxPool, chain.BlockWalker and importguard.SyncOracle. It
// produces a block every tick from whatever witness extrinsics were
// submitted since the last tick, with a fixed, single-epoch authority
// set (devnet never models validator churn).
type Runtime struct {
	mu         sync.Mutex
	authorities []streamtypes.PublicKey
	chain       []block
	pending     [][]byte
	submitted   map[string]struct{}
	height      uint64
}

// New creates a devnet Runtime genesis block and seeds the fixed
// authority set every Authorities call returns.
func New(authoritySet []streamtypes.PublicKey) *Runtime {
	genesis := block{hash: blockHashForHeight(0)}
	return &Runtime{
		authorities: authoritySet,
		chain:       []block{genesis},
		submitted:   make(map[string]struct{}),
	}
}

// blockHashForHeight derives a deterministic, distinct hash per height
// so the devnet chain needs no randomness (forbidden in this harness
// anyway) to produce a non-degenerate block hash sequence.
func blockHashForHeight(height uint64) authorities.BlockHash {
	var h common.Hash
	binary.BigEndian.PutUint64(h[24:], height)
	return h
}

// Authorities implements chain.Runtime. Devnet has one fixed authority
// set for the process lifetime; blockHash is accepted but ignored.
func (r *Runtime) Authorities(_ context.Context, _ authorities.BlockHash) ([]streamtypes.PublicKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]streamtypes.PublicKey, len(r.authorities))
	copy(out, r.authorities)
	return out, nil
}

// FinalizedTip implements chain.Runtime. Devnet finalizes a block the
// instant it is produced, so "finalized" and "current" coincide.
func (r *Runtime) FinalizedTip(_ context.Context) (authorities.BlockHash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chain[len(r.chain)-1].hash, nil
}

// GetExtrinsicIDs implements chain.Runtime, reversing the trivial
// encoding CreateUnsignedExtrinsic applies.
func (r *Runtime) GetExtrinsicIDs(_ context.Context, _ authorities.BlockHash, body [][]byte) ([]streamtypes.EventId, error) {
	ids := make([]streamtypes.EventId, 0, len(body))
	for _, ext := range body {
		id, ok := decodeExtrinsic(ext)
		if !ok {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// CreateUnsignedExtrinsic implements chain.Runtime with a one-byte mode
// tag (0 = off-chain, 1 = on-chain proofs attached) followed by the
// 32-byte event id. Devnet never inspects the proof map's contents; it
// only needs to round-trip through GetExtrinsicIDs.
func (r *Runtime) CreateUnsignedExtrinsic(_ context.Context, eventID streamtypes.EventId, proofs chain.ProofMap) (chain.Extrinsic, error) {
	tag := byte(0)
	if proofs != nil {
		tag = 1
	}
	ext := make(chain.Extrinsic, 0, 1+len(eventID))
	ext = append(ext, tag)
	ext = append(ext, eventID.Bytes()...)
	return ext, nil
}

func decodeExtrinsic(ext []byte) (streamtypes.EventId, bool) {
	if len(ext) != 1+len(streamtypes.EventId{}) {
		return streamtypes.EventId{}, false
	}
	var id streamtypes.EventId
	copy(id[:], ext[1:])
	return id, true
}

// SubmitLocal implements chain.TxPool, queuing ext for the next
// produced block. Resubmitting an extrinsic already accepted, whether
// still pending or already included in a block, reports
// chain.ErrAlreadyImported, matching spec §4.4 step 6's benign
// absorption path.
func (r *Runtime) SubmitLocal(_ context.Context, ext chain.Extrinsic) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := string(ext)
	if _, seen := r.submitted[key]; seen {
		return chain.ErrAlreadyImported
	}
	r.submitted[key] = struct{}{}
	r.pending = append(r.pending, ext)
	return nil
}

// IsMajorSyncing implements importguard.SyncOracle. A single-node
// devnet is never behind a peer it could sync from.
func (r *Runtime) IsMajorSyncing(_ context.Context) (bool, error) {
	return false, nil
}

// NextFinalized implements chain.BlockWalker by walking the in-memory
// chain forward from after's child.
func (r *Runtime) NextFinalized(_ context.Context, after authorities.BlockHash) (authorities.BlockHash, [][]byte, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, b := range r.chain {
		if b.hash == after {
			if i+1 >= len(r.chain) {
				return after, nil, false, nil
			}
			next := r.chain[i+1]
			return next.hash, next.body, true, nil
		}
	}
	return after, nil, false, errors.New("devnet: unknown block hash")
}

// ProduceTick builds and finalizes one block out of whatever
// extrinsics are pending, passing the candidate through guard first
// when guard is non-nil (off-chain-proofs mode). A guard rejection
// leaves the pending extrinsics queued for the next tick rather than
// discarding them, mirroring the real import pipeline's retry-on-defer
// behavior (spec §4.5 step 4).
func (r *Runtime) ProduceTick(ctx context.Context, guard *importguard.Guard) error {
	r.mu.Lock()
	if len(r.pending) == 0 {
		r.mu.Unlock()
		return nil
	}
	parent := r.chain[len(r.chain)-1]
	body := make([][]byte, len(r.pending))
	copy(body, r.pending)
	candidate := block{
		hash:       blockHashForHeight(r.height + 1),
		parentHash: parent.hash,
		body:       body,
	}
	r.mu.Unlock()

	importBlock := importguard.Block{
		Hash:       candidate.hash,
		ParentHash: candidate.parentHash,
		Body:       candidate.body,
	}

	if guard != nil {
		if err := guard.ImportBlock(ctx, importBlock); err != nil {
			if errors.Is(err, importguard.ErrRejected) {
				return nil
			}
			return fmt.Errorf("devnet: import guard: %w", err)
		}
		return nil
	}
	return r.Import(ctx, importBlock)
}

// Import implements importguard.Importer: finalizing a block means
// appending it to the devnet chain and clearing the extrinsics it
// consumed from the pending queue. Guard calls this itself once a
// candidate clears quorum inspection; ProduceTick calls it directly
// when no guard is configured (on-chain-proofs mode, spec §9).
func (r *Runtime) Import(_ context.Context, b importguard.Block) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.height++
	r.chain = append(r.chain, block{hash: b.Hash, parentHash: b.ParentHash, body: b.Body})
	// The candidate body is a snapshot of the queue's head, so drop
	// exactly that many entries and keep anything submitted since.
	consumed := len(b.Body)
	if consumed > len(r.pending) {
		consumed = len(r.pending)
	}
	r.pending = r.pending[consumed:]
	return nil
}

// Run ticks ProduceTick every interval until ctx is canceled, logging
// production errors through errFn rather than failing the process —
// devnet block production is best-effort scaffolding, not a component
// under spec.
func (r *Runtime) Run(ctx context.Context, interval time.Duration, guard *importguard.Guard, errFn func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.ProduceTick(ctx, guard); err != nil && errFn != nil {
				errFn(err)
			}
		}
	}
}
