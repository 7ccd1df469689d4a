package gossip

import (
	"context"
	"testing"

	cometed25519 "github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/vstreams/core/pkg/authorities"
	"github.com/vstreams/core/pkg/streamtypes"
)

func TestSweepOnceDropsTrackingForGoneAuthorities(t *testing.T) {
	priv := cometed25519.GenPrivKey()
	pub := streamtypes.PublicKey{Tag: streamtypes.CryptoTypeEd25519, Bytes: priv.PubKey().Bytes()}
	pool := &fakePool{}

	we := signedEvent(t, priv, 0x10)
	// Add a proof without reaching quorum by using two authorities, then
	// remove one.
	privB := cometed25519.GenPrivKey()
	pubB := streamtypes.PublicKey{Tag: streamtypes.CryptoTypeEd25519, Bytes: privB.PubKey().Bytes()}
	h2 := newTestHandler(t, []streamtypes.PublicKey{pub, pubB}, pool)
	if err := h2.Ingest(context.Background(), we); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(h2.trackedEventIDs()) != 1 {
		t.Fatalf("expected event to be tracked after ingest")
	}

	// Simulate the authority set shrinking to exclude pub entirely. The
	// view caches authority lists per block hash, so the rotation takes
	// effect at a new finalized tip whose list omits pub; then sweep.
	rt := h2.runtime.(*fakeRuntime)
	rt.keys = []streamtypes.PublicKey{pubB}
	rt.tip = authorities.BlockHash{0x02}

	h2.sweepOnce(context.Background())

	if len(h2.trackedEventIDs()) != 0 {
		t.Fatalf("expected tracking to be dropped once the event's signer has no remaining proof")
	}
}

func TestSweepOnceKeepsTrackingUnderQuorum(t *testing.T) {
	privA := cometed25519.GenPrivKey()
	privB := cometed25519.GenPrivKey()
	pubA := streamtypes.PublicKey{Tag: streamtypes.CryptoTypeEd25519, Bytes: privA.PubKey().Bytes()}
	pubB := streamtypes.PublicKey{Tag: streamtypes.CryptoTypeEd25519, Bytes: privB.PubKey().Bytes()}
	pool := &fakePool{}
	h := newTestHandler(t, []streamtypes.PublicKey{pubA, pubB}, pool)

	we := signedEvent(t, privA, 0x11)
	if err := h.Ingest(context.Background(), we); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	h.sweepOnce(context.Background())

	if len(h.trackedEventIDs()) != 1 {
		t.Fatalf("expected event still tracked while its signer remains an authority")
	}
}
