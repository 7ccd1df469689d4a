// Copyright 2025 Certen Protocol
//
// crypto.go dispatches signature verification by crypto type. The Core
// implements only Ed25519 (see streamtypes.CryptoTypeEd25519); adding a
// scheme means adding a case here and in pkg/keystore.

package authorities

import (
	cometed25519 "github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/vstreams/core/pkg/streamerrors"
	"github.com/vstreams/core/pkg/streamtypes"
)

// verifySignature checks that sig is a valid signature over msg under
// key, per key's declared crypto type. It returns ErrMalformedKey or
// ErrMalformedSignature if the byte lengths don't match the scheme, and
// ErrBadSignature if the cryptographic check fails.
func verifySignature(key streamtypes.PublicKey, msg []byte, sig streamtypes.Signature) error {
	switch key.Tag {
	case streamtypes.CryptoTypeEd25519:
		if len(key.Bytes) != cometed25519.PubKeySize {
			return streamerrors.ErrMalformedKey
		}
		if len(sig) != 64 {
			return streamerrors.ErrMalformedSignature
		}
		pub := cometed25519.PubKey(append([]byte(nil), key.Bytes...))
		if !pub.VerifySignature(msg, sig) {
			return streamerrors.ErrBadSignature
		}
		return nil
	default:
		return streamerrors.ErrMalformedKey
	}
}
