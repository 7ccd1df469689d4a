// Copyright 2025 Certen Protocol
//
// kvdb.go is the embedded-KV Proof Store backend, wrapping a CometBFT
// dbm.DB the same way the teacher's pkg/kvdb.KVAdapter wraps one for
// ledger storage, generalized here to the event_id‖pub_key composite-key
// scheme spec §4.1 describes.

package proofstore

import (
	"context"
	"encoding/binary"
	"fmt"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/vstreams/core/pkg/streamerrors"
	"github.com/vstreams/core/pkg/streamtypes"
)

// KVStore is the embedded-KV Proof Store backend. Keys are composite:
// event_id_bytes (32) ‖ serialized(pub_key); prefix iteration over the
// event_id_bytes yields all signers for that event.
type KVStore struct {
	db dbm.DB
}

// NewKVStore wraps an already-opened CometBFT DB as a Proof Store. The
// caller owns the DB's lifecycle (open/close).
func NewKVStore(db dbm.DB) *KVStore {
	return &KVStore{db: db}
}

// compositeKey builds the event_id ‖ serialized(pub_key) storage key.
func compositeKey(eventID streamtypes.EventId, key streamtypes.PublicKeyKey) []byte {
	pk := key.PublicKey()
	out := make([]byte, 0, 32+2+4+len(pk.Bytes))
	out = append(out, eventID[:]...)
	out = binary.LittleEndian.AppendUint16(out, uint16(pk.Tag))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(pk.Bytes)))
	out = append(out, pk.Bytes...)
	return out
}

// decodeSuffix parses the pub_key portion of a composite key (everything
// after the first 32 bytes) back into a PublicKeyKey.
func decodeSuffix(suffix []byte) (streamtypes.PublicKeyKey, error) {
	if len(suffix) < 6 {
		return streamtypes.PublicKeyKey{}, fmt.Errorf("%w: composite key suffix too short", streamerrors.ErrSerialization)
	}
	tag := streamtypes.CryptoType(binary.LittleEndian.Uint16(suffix[0:2]))
	length := binary.LittleEndian.Uint32(suffix[2:6])
	if int(length) != len(suffix[6:]) {
		return streamtypes.PublicKeyKey{}, fmt.Errorf("%w: composite key length mismatch", streamerrors.ErrSerialization)
	}
	pk := streamtypes.PublicKey{Tag: tag, Bytes: suffix[6:]}
	return pk.Key(), nil
}

// prefixRange computes the [start, end) range for a prefix iteration
// over keys beginning with prefix.
func prefixRange(prefix []byte) (start, end []byte) {
	start = append([]byte(nil), prefix...)
	end = append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] != 0xFF {
			end[i]++
			return start, end[:i+1]
		}
		end = end[:i]
	}
	return start, nil // prefix was all 0xFF: unbounded end
}

// AddEventProof implements Store.AddEventProof.
func (s *KVStore) AddEventProof(ctx context.Context, we streamtypes.WitnessedEvent) error {
	key := compositeKey(we.EventId, we.PubKey.Key())

	existing, err := s.db.Get(key)
	if err != nil {
		return fmt.Errorf("%w: get: %v", streamerrors.ErrDatabase, err)
	}
	if existing != nil {
		return nil // idempotent: first signature wins
	}

	if err := s.db.SetSync(key, []byte(we.Signature)); err != nil {
		return fmt.Errorf("%w: set: %v", streamerrors.ErrDatabase, err)
	}
	return nil
}

// GetEventProofs implements Store.GetEventProofs via prefix iteration
// over the event's composite keys.
func (s *KVStore) GetEventProofs(ctx context.Context, eventID streamtypes.EventId, validators map[streamtypes.PublicKeyKey]struct{}) (map[streamtypes.PublicKeyKey]streamtypes.Signature, error) {
	start, end := prefixRange(eventID[:])
	it, err := s.db.Iterator(start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: iterator: %v", streamerrors.ErrDatabase, err)
	}
	defer it.Close()

	out := make(map[streamtypes.PublicKeyKey]streamtypes.Signature)
	for ; it.Valid(); it.Next() {
		suffix := it.Key()[32:]
		key, err := decodeSuffix(suffix)
		if err != nil {
			return nil, err
		}
		if _, ok := validators[key]; !ok {
			continue
		}
		out[key] = append(streamtypes.Signature(nil), it.Value()...)
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("%w: iteration: %v", streamerrors.ErrDatabase, err)
	}
	return out, nil
}

// GetEventProofCount implements Store.GetEventProofCount via multi-get
// existence checks against the candidate validators, avoiding a full
// prefix scan (spec §4.1's optimization guidance).
func (s *KVStore) GetEventProofCount(ctx context.Context, eventID streamtypes.EventId, validators map[streamtypes.PublicKeyKey]struct{}) (int, error) {
	count := 0
	for key := range validators {
		ck := compositeKey(eventID, key)
		has, err := s.db.Has(ck)
		if err != nil {
			return 0, fmt.Errorf("%w: has: %v", streamerrors.ErrDatabase, err)
		}
		if has {
			count++
		}
	}
	return count, nil
}

// PurgeEventStaleSignatures implements Store.PurgeEventStaleSignatures.
func (s *KVStore) PurgeEventStaleSignatures(ctx context.Context, eventID streamtypes.EventId, validators map[streamtypes.PublicKeyKey]struct{}) error {
	start, end := prefixRange(eventID[:])
	it, err := s.db.Iterator(start, end)
	if err != nil {
		return fmt.Errorf("%w: iterator: %v", streamerrors.ErrDatabase, err)
	}

	var stale [][]byte
	for ; it.Valid(); it.Next() {
		suffix := it.Key()[32:]
		key, err := decodeSuffix(suffix)
		if err != nil {
			it.Close()
			return err
		}
		if _, ok := validators[key]; !ok {
			stale = append(stale, append([]byte(nil), it.Key()...))
		}
	}
	iterErr := it.Error()
	it.Close()
	if iterErr != nil {
		return fmt.Errorf("%w: iteration: %v", streamerrors.ErrDatabase, iterErr)
	}

	for _, k := range stale {
		if err := s.db.DeleteSync(k); err != nil {
			return fmt.Errorf("%w: delete: %v", streamerrors.ErrDatabase, err)
		}
	}
	return nil
}
