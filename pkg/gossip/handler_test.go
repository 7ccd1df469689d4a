package gossip

import (
	"context"
	"errors"
	"testing"

	cometed25519 "github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/vstreams/core/pkg/authorities"
	"github.com/vstreams/core/pkg/chain"
	"github.com/vstreams/core/pkg/proofstore"
	"github.com/vstreams/core/pkg/streamtypes"
)

type fakeRuntime struct {
	keys []streamtypes.PublicKey
	tip  authorities.BlockHash
}

func (r *fakeRuntime) Authorities(ctx context.Context, blockHash authorities.BlockHash) ([]streamtypes.PublicKey, error) {
	return r.keys, nil
}

func (r *fakeRuntime) FinalizedTip(ctx context.Context) (authorities.BlockHash, error) {
	return r.tip, nil
}

func (r *fakeRuntime) GetExtrinsicIDs(ctx context.Context, parentHash authorities.BlockHash, body [][]byte) ([]streamtypes.EventId, error) {
	return nil, nil
}

func (r *fakeRuntime) CreateUnsignedExtrinsic(ctx context.Context, eventID streamtypes.EventId, proofs chain.ProofMap) (chain.Extrinsic, error) {
	return chain.Extrinsic(append([]byte("ext:"), eventID[:]...)), nil
}

type fakePool struct {
	submitted []chain.Extrinsic
	err       error
}

func (p *fakePool) SubmitLocal(ctx context.Context, ext chain.Extrinsic) error {
	if p.err != nil {
		return p.err
	}
	p.submitted = append(p.submitted, ext)
	return nil
}

func signedEvent(t *testing.T, priv cometed25519.PrivKey, seed byte) streamtypes.WitnessedEvent {
	t.Helper()
	var id streamtypes.EventId
	id[0] = seed
	sig, err := priv.Sign(id[:])
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	pub := streamtypes.PublicKey{Tag: streamtypes.CryptoTypeEd25519, Bytes: priv.PubKey().Bytes()}
	return streamtypes.WitnessedEvent{EventId: id, PubKey: pub, Signature: sig}
}

func newTestHandler(t *testing.T, keys []streamtypes.PublicKey, pool chain.TxPool, opts ...Option) *Handler {
	t.Helper()
	rt := &fakeRuntime{keys: keys, tip: authorities.BlockHash{0x01}}
	view, err := authorities.NewView(rt, nil)
	if err != nil {
		t.Fatalf("new view: %v", err)
	}
	store := proofstore.NewMemoryStore()
	return New(view, store, rt, pool, opts...)
}

func TestHandlerSingleValidatorReachesQuorum(t *testing.T) {
	priv := cometed25519.GenPrivKey()
	pub := streamtypes.PublicKey{Tag: streamtypes.CryptoTypeEd25519, Bytes: priv.PubKey().Bytes()}
	pool := &fakePool{}
	h := newTestHandler(t, []streamtypes.PublicKey{pub}, pool)

	we := signedEvent(t, priv, 0x01)
	if err := h.Ingest(context.Background(), we); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(pool.submitted) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(pool.submitted))
	}

	// Re-ingesting must not produce a second submission.
	if err := h.Ingest(context.Background(), we); err != nil {
		t.Fatalf("re-ingest: %v", err)
	}
	if len(pool.submitted) != 1 {
		t.Fatalf("expected re-ingest to add no submission, got %d total", len(pool.submitted))
	}
}

func TestHandlerBelowQuorumDoesNotSubmit(t *testing.T) {
	privA := cometed25519.GenPrivKey()
	privB := cometed25519.GenPrivKey()
	pubA := streamtypes.PublicKey{Tag: streamtypes.CryptoTypeEd25519, Bytes: privA.PubKey().Bytes()}
	pubB := streamtypes.PublicKey{Tag: streamtypes.CryptoTypeEd25519, Bytes: privB.PubKey().Bytes()}
	pool := &fakePool{}
	// 2 authorities -> target = floor(4/3)+1 = 2
	h := newTestHandler(t, []streamtypes.PublicKey{pubA, pubB}, pool)

	we := signedEvent(t, privA, 0x02)
	if err := h.Ingest(context.Background(), we); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(pool.submitted) != 0 {
		t.Fatalf("expected no submission below quorum, got %d", len(pool.submitted))
	}
}

func TestHandlerDropsBadSignature(t *testing.T) {
	priv := cometed25519.GenPrivKey()
	pub := streamtypes.PublicKey{Tag: streamtypes.CryptoTypeEd25519, Bytes: priv.PubKey().Bytes()}
	pool := &fakePool{}
	h := newTestHandler(t, []streamtypes.PublicKey{pub}, pool)

	we := signedEvent(t, priv, 0x03)
	we.Signature[0] ^= 0xFF // corrupt
	if err := h.Ingest(context.Background(), we); err == nil {
		t.Fatalf("expected verify-origin failure for corrupted signature")
	}
	if len(pool.submitted) != 0 {
		t.Fatalf("expected no submission for dropped message")
	}
}

func TestHandlerUnknownAuthorityDropped(t *testing.T) {
	knownPriv := cometed25519.GenPrivKey()
	knownPub := streamtypes.PublicKey{Tag: streamtypes.CryptoTypeEd25519, Bytes: knownPriv.PubKey().Bytes()}
	strangerPriv := cometed25519.GenPrivKey()

	pool := &fakePool{}
	h := newTestHandler(t, []streamtypes.PublicKey{knownPub}, pool)

	we := signedEvent(t, strangerPriv, 0x04)
	if err := h.Ingest(context.Background(), we); err == nil {
		t.Fatalf("expected unknown-authority rejection")
	}
}

func TestHandlerAlreadyImportedIsAbsorbed(t *testing.T) {
	priv := cometed25519.GenPrivKey()
	pub := streamtypes.PublicKey{Tag: streamtypes.CryptoTypeEd25519, Bytes: priv.PubKey().Bytes()}
	pool := &fakePool{err: chain.ErrAlreadyImported}
	h := newTestHandler(t, []streamtypes.PublicKey{pub}, pool)

	we := signedEvent(t, priv, 0x05)
	if err := h.Ingest(context.Background(), we); err != nil {
		t.Fatalf("expected AlreadyImported to be absorbed as success, got %v", err)
	}
}

func TestHandlerGenericPoolErrorPropagates(t *testing.T) {
	priv := cometed25519.GenPrivKey()
	pub := streamtypes.PublicKey{Tag: streamtypes.CryptoTypeEd25519, Bytes: priv.PubKey().Bytes()}
	pool := &fakePool{err: errors.New("pool rejected: bad nonce")}
	h := newTestHandler(t, []streamtypes.PublicKey{pub}, pool)

	we := signedEvent(t, priv, 0x06)
	if err := h.Ingest(context.Background(), we); err == nil {
		t.Fatalf("expected generic pool error to propagate")
	}
}

func TestHandlerOnChainProofModeFetchesProofMap(t *testing.T) {
	priv := cometed25519.GenPrivKey()
	pub := streamtypes.PublicKey{Tag: streamtypes.CryptoTypeEd25519, Bytes: priv.PubKey().Bytes()}
	pool := &fakePool{}
	h := newTestHandler(t, []streamtypes.PublicKey{pub}, pool, WithProofMode(chain.ProofModeOnChain))

	we := signedEvent(t, priv, 0x07)
	if err := h.Ingest(context.Background(), we); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(pool.submitted) != 1 {
		t.Fatalf("expected 1 submission in on-chain-proofs mode, got %d", len(pool.submitted))
	}
}
