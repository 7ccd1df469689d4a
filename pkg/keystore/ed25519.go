// Copyright 2025 Certen Protocol
//
// ed25519.go is the sole concrete Keystore, grounded on the teacher's
// pkg/attestation/strategy/ed25519_strategy.go — trimmed to sign-only:
// no aggregation, no domain-separated message hashing (the Witnesser
// signs the raw 32-byte event id directly, since the signature must
// verify against the same event id bytes other validators check and
// the spec defines no domain-separation step).

package keystore

import (
	"context"
	"fmt"
	"sync"

	cometed25519 "github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/vstreams/core/pkg/streamerrors"
	"github.com/vstreams/core/pkg/streamtypes"
)

// Ed25519Keystore holds a fixed set of Ed25519 keypairs in memory.
type Ed25519Keystore struct {
	mu   sync.RWMutex
	keys map[streamtypes.PublicKeyKey]cometed25519.PrivKey
}

// NewEd25519Keystore builds a Keystore from the given private keys.
func NewEd25519Keystore(privKeys ...cometed25519.PrivKey) *Ed25519Keystore {
	ks := &Ed25519Keystore{keys: make(map[streamtypes.PublicKeyKey]cometed25519.PrivKey, len(privKeys))}
	for _, priv := range privKeys {
		pub := streamtypes.PublicKey{Tag: streamtypes.CryptoTypeEd25519, Bytes: priv.PubKey().Bytes()}
		ks.keys[pub.Key()] = priv
	}
	return ks
}

// GenerateEd25519Keystore creates a Keystore holding n freshly generated
// keypairs, for tests and single-node development setups.
func GenerateEd25519Keystore(n int) *Ed25519Keystore {
	privKeys := make([]cometed25519.PrivKey, n)
	for i := range privKeys {
		privKeys[i] = cometed25519.GenPrivKey()
	}
	return NewEd25519Keystore(privKeys...)
}

// SupportedKeys implements Keystore.SupportedKeys.
func (ks *Ed25519Keystore) SupportedKeys(ctx context.Context) ([]streamtypes.PublicKey, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	out := make([]streamtypes.PublicKey, 0, len(ks.keys))
	for key := range ks.keys {
		out = append(out, key.PublicKey())
	}
	return out, nil
}

// Sign implements Keystore.Sign.
func (ks *Ed25519Keystore) Sign(ctx context.Context, key streamtypes.PublicKey, msg []byte) (streamtypes.Signature, error) {
	ks.mu.RLock()
	priv, ok := ks.keys[key.Key()]
	ks.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: key %s not held by this keystore", streamerrors.ErrUnknownAuthority, key.Hex())
	}

	sig, err := priv.Sign(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", streamerrors.ErrSigningFailure, err)
	}
	return streamtypes.Signature(sig), nil
}
