// Copyright 2025 Certen Protocol
//
// Package authorities derives, caches, and reasons about the validator
// set ("authorities") in force at a given block, per spec §4.2.

package authorities

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/vstreams/core/pkg/streamtypes"
)

// BlockHash identifies a block in the chain the Core witnesses events
// for. Reused from go-ethereum's Hash type for the same reason EventId
// is: hex formatting and JSON marshaling come for free.
type BlockHash = common.Hash

// AuthoritiesList is an ordered, duplicate-free sequence of validator
// public keys in force at a particular block hash.
type AuthoritiesList struct {
	BlockHash BlockHash
	Keys      []streamtypes.PublicKey
}

// Len returns the number of authorities in the list.
func (a AuthoritiesList) Len() int {
	return len(a.Keys)
}

// Contains reports whether the given public key is an authority in this
// list.
func (a AuthoritiesList) Contains(key streamtypes.PublicKey) bool {
	for _, k := range a.Keys {
		if k.Equal(key) {
			return true
		}
	}
	return false
}

// KeySet returns the authority list as a set keyed by PublicKeyKey, for
// O(1) membership tests in hot paths (proof store filtering).
func (a AuthoritiesList) KeySet() map[streamtypes.PublicKeyKey]struct{} {
	set := make(map[streamtypes.PublicKeyKey]struct{}, len(a.Keys))
	for _, k := range a.Keys {
		set[k.Key()] = struct{}{}
	}
	return set
}

// newAuthoritiesList builds an AuthoritiesList, deduplicating keys (the
// runtime API is expected not to produce duplicates, but the Core does
// not trust that blindly).
func newAuthoritiesList(blockHash BlockHash, keys []streamtypes.PublicKey) AuthoritiesList {
	seen := make(map[streamtypes.PublicKeyKey]struct{}, len(keys))
	out := make([]streamtypes.PublicKey, 0, len(keys))
	for _, k := range keys {
		kk := k.Key()
		if _, dup := seen[kk]; dup {
			continue
		}
		seen[kk] = struct{}{}
		out = append(out, k)
	}
	return AuthoritiesList{BlockHash: blockHash, Keys: out}
}

// Target returns the minimum number of distinct signatures required to
// consider an event validated under a validator set of size n:
//
//	target(n) = floor(2n/3) + 1
//
// This is the smallest threshold that cannot simultaneously be met by
// two conflicting events when fewer than n/3 validators are Byzantine.
func Target(n int) int {
	if n < 0 {
		n = 0
	}
	return (2*n)/3 + 1
}
