package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafka "github.com/segmentio/kafka-go"

	"github.com/wardshare/wardshare/pkg/models"
)

// EventsTopic is where the core publishes notification events for the
// chat transport to consume.
const EventsTopic = "listing-events"

// OutboxEvent is the wire schema on the listing-events topic. The
// transport turns these into user-facing messages; the core only
// supplies the structured facts.
type OutboxEvent struct {
	Kind         string          `json:"kind"`
	ListingID    string          `json:"listing_id"`
	ClaimID      string          `json:"claim_id,omitempty"`
	Listing      *models.Listing `json:"listing,omitempty"`
	Claim        *models.Claim   `json:"claim,omitempty"`
	ProposedTime string          `json:"proposed_time,omitempty"`
	Accepted     *bool           `json:"accepted,omitempty"`
	At           time.Time       `json:"at"`
}

// Outbox publishes notification events to Kafka. Messages are keyed
// by listing id so all events for a listing land on one partition and
// the transport observes them in commit order.
//
// PublishOrUpdateListingPost returns an empty ref: the transport
// assigns the post handle asynchronously and reports it back through
// ListingRegistry.AttachExternalRef.
type Outbox struct {
	writer *kafka.Writer
}

// NewOutbox creates an Outbox writing to the given brokers.
func NewOutbox(brokers []string) *Outbox {
	return &Outbox{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        EventsTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// Close flushes and releases the Kafka writer.
func (o *Outbox) Close() error {
	return o.writer.Close()
}

func (o *Outbox) publish(ctx context.Context, ev OutboxEvent) error {
	ev.At = time.Now().UTC()
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", ev.Kind, err)
	}
	err = o.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.ListingID),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("publishing %s event: %w", ev.Kind, err)
	}
	return nil
}

func (o *Outbox) NotifyOwnerNewClaim(ctx context.Context, l *models.Listing, c *models.Claim) error {
	return o.publish(ctx, OutboxEvent{
		Kind: "owner_new_claim", ListingID: l.ID, ClaimID: c.ID, Listing: l, Claim: c,
	})
}

func (o *Outbox) NotifyClaimantDecision(ctx context.Context, l *models.Listing, c *models.Claim) error {
	return o.publish(ctx, OutboxEvent{
		Kind: "claimant_decision", ListingID: l.ID, ClaimID: c.ID, Listing: l, Claim: c,
	})
}

func (o *Outbox) NotifyClaimantRescheduleProposed(ctx context.Context, l *models.Listing, c *models.Claim, proposed string) error {
	return o.publish(ctx, OutboxEvent{
		Kind: "claimant_reschedule_proposed", ListingID: l.ID, ClaimID: c.ID,
		Listing: l, Claim: c, ProposedTime: proposed,
	})
}

func (o *Outbox) NotifyOwnerRescheduleResponse(ctx context.Context, l *models.Listing, c *models.Claim, accepted bool) error {
	return o.publish(ctx, OutboxEvent{
		Kind: "owner_reschedule_response", ListingID: l.ID, ClaimID: c.ID,
		Listing: l, Claim: c, Accepted: &accepted,
	})
}

func (o *Outbox) NotifyOwnerClaimCancelled(ctx context.Context, l *models.Listing, c *models.Claim) error {
	return o.publish(ctx, OutboxEvent{
		Kind: "owner_claim_cancelled", ListingID: l.ID, ClaimID: c.ID, Listing: l, Claim: c,
	})
}

func (o *Outbox) PublishOrUpdateListingPost(ctx context.Context, l *models.Listing) (string, error) {
	err := o.publish(ctx, OutboxEvent{
		Kind: "publish_listing_post", ListingID: l.ID, Listing: l,
	})
	return "", err
}
