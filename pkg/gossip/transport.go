// Copyright 2025 Certen Protocol
//
// transport.go is the Gossip Handler's wire transport: a single
// libp2p-pubsub topic named "WitnessedEvent" (spec §6), matching the
// project's origin as a libp2p-gossip substrate add-on. The inbox is a
// bounded channel (reference capacity 64, spec §5 Backpressure) fed by
// the subscription's receive loop; when the handler falls behind, the
// transport's own queue disciplines drop messages. A dropped message is
// not re-requested, and this package does not re-publish stored
// signatures; a signature is seen again only if its signer publishes it
// again.

package gossip

import (
	"context"
	"fmt"
	"log"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/vstreams/core/pkg/streamtypes"
)

// TopicName is the libp2p-pubsub topic carrying WitnessedEvent messages.
const TopicName = "WitnessedEvent"

// InboxCapacity is the reference bounded-channel capacity for the
// gossip inbox (spec §5).
const InboxCapacity = 64

// Transport publishes and subscribes to the WitnessedEvent topic.
type Transport struct {
	topic *pubsub.Topic
	sub   *pubsub.Subscription
	inbox chan streamtypes.WitnessedEvent
}

// NewTransport joins the WitnessedEvent topic on ps and subscribes to
// it. The caller is responsible for having already set up the
// underlying libp2p host and pubsub router.
func NewTransport(ps *pubsub.PubSub) (*Transport, error) {
	topic, err := ps.Join(TopicName)
	if err != nil {
		return nil, fmt.Errorf("gossip: join topic %q: %w", TopicName, err)
	}
	sub, err := topic.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("gossip: subscribe topic %q: %w", TopicName, err)
	}
	t := &Transport{topic: topic, sub: sub, inbox: make(chan streamtypes.WitnessedEvent, InboxCapacity)}
	return t, nil
}

// Publish encodes we and broadcasts it on the topic.
func (t *Transport) Publish(ctx context.Context, we streamtypes.WitnessedEvent) error {
	data := streamtypes.EncodeWitnessedEvent(we)
	if err := t.topic.Publish(ctx, data); err != nil {
		return fmt.Errorf("gossip: publish: %w", err)
	}
	return nil
}

// Inbox returns the channel remote messages are delivered on. Run
// must be running for it to receive anything.
func (t *Transport) Inbox() <-chan streamtypes.WitnessedEvent {
	return t.inbox
}

// Run drives the subscription's receive loop until ctx is canceled,
// decoding each message and delivering it to the inbox. A full inbox
// drops the message rather than blocking the receive loop — this is
// the transport-level backpressure spec §5 calls for.
func (t *Transport) Run(ctx context.Context) {
	for {
		msg, err := t.sub.Next(ctx)
		if err != nil {
			return // ctx canceled or subscription closed
		}
		we, err := streamtypes.DecodeWitnessedEvent(msg.Data)
		if err != nil {
			// malformed payload: logged here and dropped before Ingest.
			log.Printf("gossip: dropping malformed %s payload: %v", TopicName, err)
			continue
		}
		select {
		case t.inbox <- we:
		default:
			// inbox full: drop, per spec §5 Backpressure.
		}
	}
}

// Close tears down the subscription and leaves the topic.
func (t *Transport) Close() {
	t.sub.Cancel()
	_ = t.topic.Close()
}
