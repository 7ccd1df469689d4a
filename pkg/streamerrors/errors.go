// Copyright 2025 Certen Protocol
//
// Package streamerrors provides the sentinel errors shared across the
// witnessing subsystem, per spec §7's error-kind taxonomy. Callers use
// errors.Is / errors.As against these sentinels rather than type
// switches; component-specific detail is added with fmt.Errorf's %w.

package streamerrors

import "errors"

var (
	// ErrLockFail indicates a storage backend's internal lock could not
	// be acquired or was found poisoned.
	ErrLockFail = errors.New("lock failure")

	// ErrUnknownAuthority indicates a WitnessedEvent's public key is not
	// present in the authority list it was checked against.
	ErrUnknownAuthority = errors.New("signer is not a known authority")

	// ErrMalformedKey indicates a public key's bytes could not be
	// interpreted under its declared crypto type.
	ErrMalformedKey = errors.New("malformed public key bytes")

	// ErrMalformedSignature indicates a signature's bytes could not be
	// interpreted under its key's crypto type.
	ErrMalformedSignature = errors.New("malformed signature bytes")

	// ErrBadSignature indicates a structurally valid signature failed
	// cryptographic verification.
	ErrBadSignature = errors.New("signature verification failed")

	// ErrSerialization indicates a gossip message or stored value could
	// not be encoded or decoded.
	ErrSerialization = errors.New("serialization failure")

	// ErrSigningFailure indicates the keystore failed to produce a
	// signature for a key it claims to hold.
	ErrSigningFailure = errors.New("signing failure")

	// ErrDatabase indicates a storage backend I/O error.
	ErrDatabase = errors.New("database error")

	// ErrNotAValidator indicates the local node holds no keys that
	// appear in the current authority list.
	ErrNotAValidator = errors.New("not a validator")

	// ErrNotFound indicates a requested entity (event, proof, bundle)
	// does not exist in the queried store.
	ErrNotFound = errors.New("not found")

	// ErrUnwitnessed indicates a block contains witnessing extrinsics
	// that do not yet have a full quorum in the proof store.
	ErrUnwitnessed = errors.New("block contains unwitnessed events")
)
