// Copyright 2025 Certen Protocol
//
// Package witness implements the Witnesser: on a local witness request
// for an event_id, produce a signed WitnessedEvent and broadcast it
// (spec §4.3).
package witness

import (
	"context"
	"fmt"

	"github.com/vstreams/core/pkg/authorities"
	"github.com/vstreams/core/pkg/keystore"
	"github.com/vstreams/core/pkg/streamerrors"
	"github.com/vstreams/core/pkg/streamtypes"
)

// Publisher is the gossip-publish capability the Witnesser broadcasts
// through. The Witnesser never adds the message to the Proof Store
// directly — it relies on the Publisher's local loopback (the Gossip
// Handler ingests every published message as if received) to unify
// ingestion paths.
type Publisher interface {
	Publish(ctx context.Context, we streamtypes.WitnessedEvent) error
}

// Witnesser implements the five-step local-witness protocol.
type Witnesser struct {
	view      *authorities.View
	keystore  keystore.Keystore
	publisher Publisher
}

// New constructs a Witnesser.
func New(view *authorities.View, ks keystore.Keystore, publisher Publisher) *Witnesser {
	return &Witnesser{view: view, keystore: ks, publisher: publisher}
}

// WitnessEvent runs the Witnesser's five-step protocol for eventID.
func (w *Witnesser) WitnessEvent(ctx context.Context, eventID streamtypes.EventId) error {
	// 1. Fetch latest_authorities().
	list, err := w.view.LatestAuthorities(ctx)
	if err != nil {
		return fmt.Errorf("fetch latest authorities: %w", err)
	}

	// 2. Ask the keystore for supported keys.
	held, err := w.keystore.SupportedKeys(ctx)
	if err != nil {
		return fmt.Errorf("list supported keys: %w", err)
	}
	var supported []streamtypes.PublicKey
	for _, key := range held {
		if list.Contains(key) {
			supported = append(supported, key)
		}
	}

	// 3. NotAValidator if empty.
	if len(supported) == 0 {
		return streamerrors.ErrNotAValidator
	}

	// 4. Sign event_id with the first supported key.
	signKey := supported[0]
	sig, err := w.keystore.Sign(ctx, signKey, eventID[:])
	if err != nil {
		return fmt.Errorf("%w: %v", streamerrors.ErrSigningFailure, err)
	}
	if len(sig) == 0 {
		return streamerrors.ErrSigningFailure
	}

	// 5. Construct and publish.
	we := streamtypes.WitnessedEvent{EventId: eventID, PubKey: signKey, Signature: sig}
	if err := w.publisher.Publish(ctx, we); err != nil {
		return fmt.Errorf("publish witnessed event: %w", err)
	}
	return nil
}
