// Copyright 2025 Certen Protocol
//
// Package streamtypes holds the leaf data types shared by every witnessing
// component: the event identifier, validator public keys and signatures,
// and the WitnessedEvent gossip message.

package streamtypes

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// EventId identifies an off-chain event by its 32-byte hash.
type EventId = common.Hash

// ZeroEventId is the all-zero event id, used by tests and as a sentinel.
var ZeroEventId = EventId{}

// CryptoType tags the scheme a PublicKey/Signature pair is interpreted
// under. The Core implements only Ed25519, substituting for the
// "sr25519-like" scheme described by the spec (see DESIGN.md).
type CryptoType uint16

const (
	// CryptoTypeEd25519 is the only crypto type the Core signs/verifies.
	CryptoTypeEd25519 CryptoType = 1
)

func (t CryptoType) String() string {
	switch t {
	case CryptoTypeEd25519:
		return "ed25519"
	default:
		return fmt.Sprintf("unknown(%d)", uint16(t))
	}
}

// PublicKey is a validator's signing key: a crypto-type tag plus the raw
// key bytes. Equality and hashing are defined on the (tag, bytes) pair.
type PublicKey struct {
	Tag   CryptoType
	Bytes []byte
}

// Key returns a comparable, hashable representation suitable for use as a
// Go map key (PublicKey itself contains a slice and is not comparable).
func (k PublicKey) Key() PublicKeyKey {
	var pk PublicKeyKey
	pk.Tag = k.Tag
	copy(pk.Bytes[:], k.Bytes)
	pk.Len = len(k.Bytes)
	return pk
}

// Hex returns the hex-encoded key bytes, for logging.
func (k PublicKey) Hex() string {
	return hex.EncodeToString(k.Bytes)
}

func (k PublicKey) String() string {
	return fmt.Sprintf("%s:%s", k.Tag, k.Hex())
}

// Equal reports whether two public keys have the same tag and bytes.
func (k PublicKey) Equal(other PublicKey) bool {
	if k.Tag != other.Tag || len(k.Bytes) != len(other.Bytes) {
		return false
	}
	for i := range k.Bytes {
		if k.Bytes[i] != other.Bytes[i] {
			return false
		}
	}
	return true
}

// maxKeyBytes bounds the fixed-size array backing PublicKeyKey. Ed25519
// public keys are 32 bytes; this leaves headroom for larger future
// schemes without changing the map-key shape.
const maxKeyBytes = 64

// PublicKeyKey is a fixed-size, comparable stand-in for PublicKey, used
// as a map key by the proof store and authority view.
type PublicKeyKey struct {
	Tag  CryptoType
	Len  int
	Bytes [maxKeyBytes]byte
}

// PublicKey reconstructs a PublicKey from a PublicKeyKey.
func (k PublicKeyKey) PublicKey() PublicKey {
	b := make([]byte, k.Len)
	copy(b, k.Bytes[:k.Len])
	return PublicKey{Tag: k.Tag, Bytes: b}
}

// Signature is a variable-length byte string, interpreted under the
// crypto type of the accompanying key.
type Signature []byte

// Hex returns the hex-encoded signature, for logging.
func (s Signature) Hex() string {
	return hex.EncodeToString(s)
}

// WitnessedEvent represents one validator's attestation of one event:
// the signed event id, the signer's public key, and the signature.
type WitnessedEvent struct {
	EventId   EventId   `json:"event_id"`
	PubKey    PublicKey `json:"pub_key"`
	Signature Signature `json:"signature"`
}

func (we WitnessedEvent) String() string {
	return fmt.Sprintf("WitnessedEvent{event=%s, key=%s}", we.EventId.Hex(), we.PubKey)
}
