// Copyright 2025 Certen Protocol
//
// memory.go is the in-memory Proof Store backend: a single mutex-guarded
// map, per spec §4.1's in-memory guidance. All proofs are lost on
// restart, which is tolerable — gossip re-supplies them (spec §6).

package proofstore

import (
	"context"
	"sync"

	"github.com/vstreams/core/pkg/streamtypes"
)

// MemoryStore is the in-memory Proof Store backend.
type MemoryStore struct {
	mu      sync.Mutex
	signers map[streamtypes.EventId]map[streamtypes.PublicKeyKey]streamtypes.Signature
}

// NewMemoryStore creates an empty in-memory Proof Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		signers: make(map[streamtypes.EventId]map[streamtypes.PublicKeyKey]streamtypes.Signature),
	}
}

// AddEventProof implements Store.AddEventProof.
func (m *MemoryStore) AddEventProof(ctx context.Context, we streamtypes.WitnessedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.signers[we.EventId]
	if !ok {
		bucket = make(map[streamtypes.PublicKeyKey]streamtypes.Signature)
		m.signers[we.EventId] = bucket
	}

	key := we.PubKey.Key()
	if _, exists := bucket[key]; exists {
		return nil // idempotent: first signature wins
	}
	bucket[key] = append(streamtypes.Signature(nil), we.Signature...)
	return nil
}

// GetEventProofs implements Store.GetEventProofs.
func (m *MemoryStore) GetEventProofs(ctx context.Context, eventID streamtypes.EventId, validators map[streamtypes.PublicKeyKey]struct{}) (map[streamtypes.PublicKeyKey]streamtypes.Signature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[streamtypes.PublicKeyKey]streamtypes.Signature)
	for key, sig := range m.signers[eventID] {
		if _, ok := validators[key]; ok {
			out[key] = sig
		}
	}
	return out, nil
}

// GetEventProofCount implements Store.GetEventProofCount.
func (m *MemoryStore) GetEventProofCount(ctx context.Context, eventID streamtypes.EventId, validators map[streamtypes.PublicKeyKey]struct{}) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for key := range m.signers[eventID] {
		if _, ok := validators[key]; ok {
			count++
		}
	}
	return count, nil
}

// PurgeEventStaleSignatures implements Store.PurgeEventStaleSignatures.
func (m *MemoryStore) PurgeEventStaleSignatures(ctx context.Context, eventID streamtypes.EventId, validators map[streamtypes.PublicKeyKey]struct{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.signers[eventID]
	if !ok {
		return nil
	}
	for key := range bucket {
		if _, ok := validators[key]; !ok {
			delete(bucket, key)
		}
	}
	if len(bucket) == 0 {
		delete(m.signers, eventID)
	}
	return nil
}
