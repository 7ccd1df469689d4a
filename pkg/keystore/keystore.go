// Copyright 2025 Certen Protocol
//
// Package keystore holds the local validator's signing keys. It is the
// Witnesser's only path to producing a signature (spec §5): the
// Witnesser never touches private key material directly, it asks the
// Keystore which of its keys are in the current authority set and has
// the Keystore sign on its behalf.
package keystore

import (
	"context"

	"github.com/vstreams/core/pkg/streamtypes"
)

// Keystore is the local signer's capability set.
type Keystore interface {
	// SupportedKeys returns every public key this Keystore holds a
	// private key for, in no particular order.
	SupportedKeys(ctx context.Context) ([]streamtypes.PublicKey, error)

	// Sign produces a signature over msg under key. Returns
	// streamerrors.ErrUnknownAuthority if key is not held by this
	// Keystore, streamerrors.ErrSigningFailure on any other failure.
	Sign(ctx context.Context, key streamtypes.PublicKey, msg []byte) (streamtypes.Signature, error)
}
