// Copyright 2025 Certen Protocol
//
// view.go implements the Authority View component: deriving the
// validator set for a block, computing the quorum target, and verifying
// the origin of witness messages (spec §4.2).

package authorities

import (
	"context"
	"fmt"

	"github.com/vstreams/core/pkg/streamerrors"
	"github.com/vstreams/core/pkg/streamtypes"
)

// Runtime is the subset of the chain's runtime API the Authority View
// consumes. It is named only as a boundary per spec §1/§6; the Core
// does not implement a concrete chain client.
type Runtime interface {
	// Authorities returns the authority set in force at blockHash.
	Authorities(ctx context.Context, blockHash BlockHash) ([]streamtypes.PublicKey, error)

	// FinalizedTip returns the hash of the current finalized block.
	FinalizedTip(ctx context.Context) (BlockHash, error)
}

// View derives authority lists for block hashes, consulting a
// process-scoped cache before calling into the chain runtime, and
// verifies the origin of witness messages against those lists.
type View struct {
	runtime Runtime
	cache   *Cache
}

// NewView constructs an Authority View over the given runtime and
// cache. If cache is nil, a default-capacity cache is created.
func NewView(runtime Runtime, cache *Cache) (*View, error) {
	if runtime == nil {
		return nil, fmt.Errorf("authorities: runtime must not be nil")
	}
	if cache == nil {
		var err error
		cache, err = NewCache(DefaultCacheCapacity)
		if err != nil {
			return nil, fmt.Errorf("authorities: create cache: %w", err)
		}
	}
	return &View{runtime: runtime, cache: cache}, nil
}

// AuthoritiesAt returns the AuthoritiesList for blockHash, consulting the
// cache first and falling back to the runtime on a miss. Concurrent
// misses on the same key may both call the runtime and both insert; this
// is harmless duplicated work, not a correctness issue (spec §5).
func (v *View) AuthoritiesAt(ctx context.Context, blockHash BlockHash) (AuthoritiesList, error) {
	if list, ok := v.cache.Get(blockHash); ok {
		return list, nil
	}

	keys, err := v.runtime.Authorities(ctx, blockHash)
	if err != nil {
		return AuthoritiesList{}, fmt.Errorf("authorities: query runtime at %s: %w", blockHash.Hex(), err)
	}

	list := newAuthoritiesList(blockHash, keys)
	v.cache.Put(list)
	return list, nil
}

// LatestAuthorities is equivalent to AuthoritiesAt(finalized tip).
func (v *View) LatestAuthorities(ctx context.Context) (AuthoritiesList, error) {
	tip, err := v.runtime.FinalizedTip(ctx)
	if err != nil {
		return AuthoritiesList{}, fmt.Errorf("authorities: finalized tip: %w", err)
	}
	return v.AuthoritiesAt(ctx, tip)
}

// Target returns the quorum target for the given authority list.
func (v *View) Target(list AuthoritiesList) int {
	return Target(list.Len())
}

// VerifyOrigin checks that we.PubKey is an authority in list and that
// we.Signature validly signs we.EventId under we.PubKey. On any failure
// it returns one of streamerrors.ErrUnknownAuthority,
// ErrMalformedKey, ErrMalformedSignature, or ErrBadSignature.
func VerifyOrigin(we streamtypes.WitnessedEvent, list AuthoritiesList) error {
	if !list.Contains(we.PubKey) {
		return streamerrors.ErrUnknownAuthority
	}
	return verifySignature(we.PubKey, we.EventId[:], we.Signature)
}

// VerifyOrigin is the method form, for callers holding a *View; origin
// verification itself needs no runtime access, so it is also exposed as
// the package-level function above for use without a View.
func (v *View) VerifyOrigin(we streamtypes.WitnessedEvent, list AuthoritiesList) error {
	return VerifyOrigin(we, list)
}
