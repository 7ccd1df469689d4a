package witness

import (
	"context"
	"errors"
	"testing"

	cometed25519 "github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/vstreams/core/pkg/authorities"
	"github.com/vstreams/core/pkg/keystore"
	"github.com/vstreams/core/pkg/streamerrors"
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

type fakePublisher struct {
	published []streamtypes.WitnessedEvent
	err       error
}

func (p *fakePublisher) Publish(ctx context.Context, we streamtypes.WitnessedEvent) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, we)
	return nil
}

func newWitnesser(t *testing.T, authorityKeys []streamtypes.PublicKey, ks keystore.Keystore, pub Publisher) *Witnesser {
	t.Helper()
	rt := &fakeRuntime{keys: authorityKeys, tip: authorities.BlockHash{0x01}}
	view, err := authorities.NewView(rt, nil)
	if err != nil {
		t.Fatalf("new view: %v", err)
	}
	return New(view, ks, pub)
}

func TestWitnesserHappyPath(t *testing.T) {
	priv := cometed25519.GenPrivKey()
	pub := streamtypes.PublicKey{Tag: streamtypes.CryptoTypeEd25519, Bytes: priv.PubKey().Bytes()}
	ks := keystore.NewEd25519Keystore(priv)
	publisher := &fakePublisher{}

	w := newWitnesser(t, []streamtypes.PublicKey{pub}, ks, publisher)

	var eventID streamtypes.EventId
	eventID[0] = 0x42
	if err := w.WitnessEvent(context.Background(), eventID); err != nil {
		t.Fatalf("witness event: %v", err)
	}

	if len(publisher.published) != 1 {
		t.Fatalf("expected exactly one published message, got %d", len(publisher.published))
	}
	we := publisher.published[0]
	if we.EventId != eventID {
		t.Fatalf("published wrong event id")
	}
	if !priv.PubKey().VerifySignature(eventID[:], we.Signature) {
		t.Fatalf("published signature does not verify")
	}
}

func TestWitnesserNotAValidator(t *testing.T) {
	ks := keystore.GenerateEd25519Keystore(1)
	otherAuthority := streamtypes.PublicKey{Tag: streamtypes.CryptoTypeEd25519, Bytes: cometed25519.GenPrivKey().PubKey().Bytes()}
	publisher := &fakePublisher{}

	w := newWitnesser(t, []streamtypes.PublicKey{otherAuthority}, ks, publisher)

	var eventID streamtypes.EventId
	err := w.WitnessEvent(context.Background(), eventID)
	if !errors.Is(err, streamerrors.ErrNotAValidator) {
		t.Fatalf("expected ErrNotAValidator, got %v", err)
	}
	if len(publisher.published) != 0 {
		t.Fatalf("expected no publish when not a validator")
	}
}

type failingKeystore struct {
	keys []streamtypes.PublicKey
}

func (k *failingKeystore) SupportedKeys(ctx context.Context) ([]streamtypes.PublicKey, error) {
	return k.keys, nil
}

func (k *failingKeystore) Sign(ctx context.Context, key streamtypes.PublicKey, msg []byte) (streamtypes.Signature, error) {
	return nil, errors.New("hsm unavailable")
}

func TestWitnesserSigningFailurePropagates(t *testing.T) {
	pub := streamtypes.PublicKey{Tag: streamtypes.CryptoTypeEd25519, Bytes: cometed25519.GenPrivKey().PubKey().Bytes()}
	ks := &failingKeystore{keys: []streamtypes.PublicKey{pub}}
	publisher := &fakePublisher{}

	w := newWitnesser(t, []streamtypes.PublicKey{pub}, ks, publisher)

	var eventID streamtypes.EventId
	err := w.WitnessEvent(context.Background(), eventID)
	if !errors.Is(err, streamerrors.ErrSigningFailure) {
		t.Fatalf("expected ErrSigningFailure, got %v", err)
	}
	if len(publisher.published) != 0 {
		t.Fatalf("expected no publish on signing failure")
	}
}
