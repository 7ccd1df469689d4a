package proofstore

import (
	"context"
	"testing"

	cometed25519 "github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/vstreams/core/pkg/streamtypes"
)

func testKey(t *testing.T, seed byte) streamtypes.PublicKey {
	t.Helper()
	priv := cometed25519.GenPrivKeyFromSecret([]byte{seed})
	return streamtypes.PublicKey{Tag: streamtypes.CryptoTypeEd25519, Bytes: priv.PubKey().Bytes()}
}

func testEvent(t *testing.T, seed byte, key streamtypes.PublicKey, sig []byte) streamtypes.WitnessedEvent {
	t.Helper()
	var id streamtypes.EventId
	id[0] = seed
	return streamtypes.WitnessedEvent{EventId: id, PubKey: key, Signature: sig}
}

func TestMemoryStoreAddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	key := testKey(t, 1)
	we := testEvent(t, 1, key, []byte("sig-a"))

	if err := s.AddEventProof(ctx, we); err != nil {
		t.Fatalf("first add: %v", err)
	}
	we2 := testEvent(t, 1, key, []byte("sig-b"))
	if err := s.AddEventProof(ctx, we2); err != nil {
		t.Fatalf("second add: %v", err)
	}

	validators := map[streamtypes.PublicKeyKey]struct{}{key.Key(): {}}
	proofs, err := s.GetEventProofs(ctx, we.EventId, validators)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := string(proofs[key.Key()]); got != "sig-a" {
		t.Fatalf("expected first signature to win, got %q", got)
	}
}

func TestMemoryStoreGetFiltersByValidators(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	k1, k2 := testKey(t, 1), testKey(t, 2)
	we1 := testEvent(t, 5, k1, []byte("sig-1"))
	we2 := testEvent(t, 5, k2, []byte("sig-2"))

	if err := s.AddEventProof(ctx, we1); err != nil {
		t.Fatal(err)
	}
	if err := s.AddEventProof(ctx, we2); err != nil {
		t.Fatal(err)
	}

	validators := map[streamtypes.PublicKeyKey]struct{}{k1.Key(): {}}
	proofs, err := s.GetEventProofs(ctx, we1.EventId, validators)
	if err != nil {
		t.Fatal(err)
	}
	if len(proofs) != 1 {
		t.Fatalf("expected 1 filtered proof, got %d", len(proofs))
	}
	if _, ok := proofs[k2.Key()]; ok {
		t.Fatalf("k2 should have been filtered out")
	}

	count, err := s.GetEventProofCount(ctx, we1.EventId, validators)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}
}

func TestMemoryStorePurgeStaleSignatures(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	k1, k2 := testKey(t, 1), testKey(t, 2)
	we1 := testEvent(t, 9, k1, []byte("sig-1"))
	we2 := testEvent(t, 9, k2, []byte("sig-2"))

	if err := s.AddEventProof(ctx, we1); err != nil {
		t.Fatal(err)
	}
	if err := s.AddEventProof(ctx, we2); err != nil {
		t.Fatal(err)
	}

	stillValid := map[streamtypes.PublicKeyKey]struct{}{k1.Key(): {}}
	if err := s.PurgeEventStaleSignatures(ctx, we1.EventId, stillValid); err != nil {
		t.Fatal(err)
	}

	all := map[streamtypes.PublicKeyKey]struct{}{k1.Key(): {}, k2.Key(): {}}
	proofs, err := s.GetEventProofs(ctx, we1.EventId, all)
	if err != nil {
		t.Fatal(err)
	}
	if len(proofs) != 1 {
		t.Fatalf("expected 1 proof remaining after purge, got %d", len(proofs))
	}
	if _, ok := proofs[k1.Key()]; !ok {
		t.Fatalf("k1 should have survived the purge")
	}
}

func TestMemoryStorePurgeEmptiesBucket(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	k1 := testKey(t, 1)
	we1 := testEvent(t, 3, k1, []byte("sig-1"))
	if err := s.AddEventProof(ctx, we1); err != nil {
		t.Fatal(err)
	}

	if err := s.PurgeEventStaleSignatures(ctx, we1.EventId, map[streamtypes.PublicKeyKey]struct{}{}); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.signers[we1.EventId]; ok {
		t.Fatalf("expected empty bucket to be removed entirely")
	}
}
