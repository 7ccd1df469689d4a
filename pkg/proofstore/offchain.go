// Copyright 2025 Certen Protocol
//
// offchain.go is the "offchain storage" Proof Store variant: the same
// composite-key scheme as KVStore, plus an event_id -> [pub_key...]
// index maintained by a compare-and-swap retry loop, so signers can be
// enumerated without a prefix scan (spec §4.1).

package proofstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/vstreams/core/pkg/streamerrors"
	"github.com/vstreams/core/pkg/streamtypes"
)

// maxCASRetries bounds the compare-and-swap retry loop against a
// runaway spin if the index is under sustained contention.
const maxCASRetries = 32

// OffchainStore is the offchain-storage Proof Store backend: the embedded
// composite-key scheme, plus a signer index for enumeration.
type OffchainStore struct {
	db dbm.DB
}

// NewOffchainStore wraps an already-opened CometBFT DB.
func NewOffchainStore(db dbm.DB) *OffchainStore {
	return &OffchainStore{db: db}
}

func indexKey(eventID streamtypes.EventId) []byte {
	out := make([]byte, 0, 4+32)
	out = append(out, []byte("idx/")...)
	out = append(out, eventID[:]...)
	return out
}

// encodeIndex serializes a set of signer keys as a sequence of
// (tag uint16 LE, len uint32 LE, bytes) entries.
func encodeIndex(keys []streamtypes.PublicKeyKey) []byte {
	buf := bytes.NewBuffer(nil)
	for _, k := range keys {
		pk := k.PublicKey()
		var hdr [6]byte
		binary.LittleEndian.PutUint16(hdr[0:2], uint16(pk.Tag))
		binary.LittleEndian.PutUint32(hdr[2:6], uint32(len(pk.Bytes)))
		buf.Write(hdr[:])
		buf.Write(pk.Bytes)
	}
	return buf.Bytes()
}

func decodeIndex(data []byte) ([]streamtypes.PublicKeyKey, error) {
	var out []streamtypes.PublicKeyKey
	for len(data) > 0 {
		if len(data) < 6 {
			return nil, fmt.Errorf("%w: truncated index entry", streamerrors.ErrSerialization)
		}
		tag := streamtypes.CryptoType(binary.LittleEndian.Uint16(data[0:2]))
		length := binary.LittleEndian.Uint32(data[2:6])
		data = data[6:]
		if int(length) > len(data) {
			return nil, fmt.Errorf("%w: index entry length overruns buffer", streamerrors.ErrSerialization)
		}
		pk := streamtypes.PublicKey{Tag: tag, Bytes: data[:length]}
		out = append(out, pk.Key())
		data = data[length:]
	}
	return out, nil
}

// addToIndex inserts key into the event's signer index via a
// read-modify-write loop that aborts and retries if the stored bytes
// changed between read and write (optimistic concurrency; a losing
// retry simply re-reads the now-current index and tries again).
func (s *OffchainStore) addToIndex(eventID streamtypes.EventId, key streamtypes.PublicKeyKey) error {
	idxKey := indexKey(eventID)

	for attempt := 0; attempt < maxCASRetries; attempt++ {
		before, err := s.db.Get(idxKey)
		if err != nil {
			return fmt.Errorf("%w: index get: %v", streamerrors.ErrDatabase, err)
		}

		keys, err := decodeIndex(before)
		if err != nil {
			return err
		}
		for _, existing := range keys {
			if existing == key {
				return nil // already indexed
			}
		}
		keys = append(keys, key)
		after := encodeIndex(keys)

		// Re-read immediately before writing to detect a concurrent
		// writer; if the stored value moved on, retry against the new
		// state rather than clobbering it.
		current, err := s.db.Get(idxKey)
		if err != nil {
			return fmt.Errorf("%w: index recheck: %v", streamerrors.ErrDatabase, err)
		}
		if !bytes.Equal(before, current) {
			continue
		}

		if err := s.db.SetSync(idxKey, after); err != nil {
			return fmt.Errorf("%w: index set: %v", streamerrors.ErrDatabase, err)
		}
		return nil
	}
	return fmt.Errorf("%w: index update did not converge after %d attempts", streamerrors.ErrDatabase, maxCASRetries)
}

func (s *OffchainStore) removeFromIndex(eventID streamtypes.EventId, stale map[streamtypes.PublicKeyKey]struct{}) error {
	idxKey := indexKey(eventID)

	for attempt := 0; attempt < maxCASRetries; attempt++ {
		before, err := s.db.Get(idxKey)
		if err != nil {
			return fmt.Errorf("%w: index get: %v", streamerrors.ErrDatabase, err)
		}
		keys, err := decodeIndex(before)
		if err != nil {
			return err
		}

		kept := keys[:0:0]
		for _, k := range keys {
			if _, drop := stale[k]; !drop {
				kept = append(kept, k)
			}
		}
		after := encodeIndex(kept)

		current, err := s.db.Get(idxKey)
		if err != nil {
			return fmt.Errorf("%w: index recheck: %v", streamerrors.ErrDatabase, err)
		}
		if !bytes.Equal(before, current) {
			continue
		}

		if len(kept) == 0 {
			if err := s.db.DeleteSync(idxKey); err != nil {
				return fmt.Errorf("%w: index delete: %v", streamerrors.ErrDatabase, err)
			}
			return nil
		}
		if err := s.db.SetSync(idxKey, after); err != nil {
			return fmt.Errorf("%w: index set: %v", streamerrors.ErrDatabase, err)
		}
		return nil
	}
	return fmt.Errorf("%w: index update did not converge after %d attempts", streamerrors.ErrDatabase, maxCASRetries)
}

// AddEventProof implements Store.AddEventProof.
func (s *OffchainStore) AddEventProof(ctx context.Context, we streamtypes.WitnessedEvent) error {
	key := compositeKey(we.EventId, we.PubKey.Key())

	existing, err := s.db.Get(key)
	if err != nil {
		return fmt.Errorf("%w: get: %v", streamerrors.ErrDatabase, err)
	}
	if existing != nil {
		return nil
	}

	if err := s.db.SetSync(key, []byte(we.Signature)); err != nil {
		return fmt.Errorf("%w: set: %v", streamerrors.ErrDatabase, err)
	}
	return s.addToIndex(we.EventId, we.PubKey.Key())
}

// signers returns the full signer index for an event, via the index
// entry rather than a prefix scan.
func (s *OffchainStore) signers(eventID streamtypes.EventId) ([]streamtypes.PublicKeyKey, error) {
	raw, err := s.db.Get(indexKey(eventID))
	if err != nil {
		return nil, fmt.Errorf("%w: index get: %v", streamerrors.ErrDatabase, err)
	}
	return decodeIndex(raw)
}

// GetEventProofs implements Store.GetEventProofs using the signer index.
func (s *OffchainStore) GetEventProofs(ctx context.Context, eventID streamtypes.EventId, validators map[streamtypes.PublicKeyKey]struct{}) (map[streamtypes.PublicKeyKey]streamtypes.Signature, error) {
	keys, err := s.signers(eventID)
	if err != nil {
		return nil, err
	}

	out := make(map[streamtypes.PublicKeyKey]streamtypes.Signature)
	for _, key := range keys {
		if _, ok := validators[key]; !ok {
			continue
		}
		sig, err := s.db.Get(compositeKey(eventID, key))
		if err != nil {
			return nil, fmt.Errorf("%w: get: %v", streamerrors.ErrDatabase, err)
		}
		if sig != nil {
			out[key] = append(streamtypes.Signature(nil), sig...)
		}
	}
	return out, nil
}

// GetEventProofCount implements Store.GetEventProofCount using the
// signer index's length rather than a prefix scan.
func (s *OffchainStore) GetEventProofCount(ctx context.Context, eventID streamtypes.EventId, validators map[streamtypes.PublicKeyKey]struct{}) (int, error) {
	keys, err := s.signers(eventID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, key := range keys {
		if _, ok := validators[key]; ok {
			count++
		}
	}
	return count, nil
}

// PurgeEventStaleSignatures implements Store.PurgeEventStaleSignatures.
func (s *OffchainStore) PurgeEventStaleSignatures(ctx context.Context, eventID streamtypes.EventId, validators map[streamtypes.PublicKeyKey]struct{}) error {
	keys, err := s.signers(eventID)
	if err != nil {
		return err
	}

	stale := make(map[streamtypes.PublicKeyKey]struct{})
	for _, key := range keys {
		if _, ok := validators[key]; !ok {
			stale[key] = struct{}{}
		}
	}
	if len(stale) == 0 {
		return nil
	}

	for key := range stale {
		if err := s.db.DeleteSync(compositeKey(eventID, key)); err != nil {
			return fmt.Errorf("%w: delete: %v", streamerrors.ErrDatabase, err)
		}
	}
	return s.removeFromIndex(eventID, stale)
}
