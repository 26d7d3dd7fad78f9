// Package events defines the domain events emitted by the transaction processors.
// Events are written in the same transaction as the document and relayed later.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sigfarma/internal/core/id"
)

// Event types
const (
	SaleCreated       = "sale.created"
	ReturnCreated     = "sale_return.created"
	AdjustmentCreated = "adjustment.created"
	ReceivingDrafted  = "receiving.drafted"
	ReceivingApproved = "receiving.approved"
)

// Event is a fact about a committed document.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// Publisher stores events inside the caller's transaction.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Discard is a Publisher that drops events.
type Discard struct{}

// Publish implements Publisher.
func (Discard) Publish(context.Context, Event) error { return nil }

// Message is a stored event as handed to relays and brokers.
type Message struct {
	ID            id.ID     `db:"id" json:"id"`
	AggregateType string    `db:"aggregate_type" json:"aggregateType"`
	AggregateID   id.ID     `db:"aggregate_id" json:"aggregateId"`
	EventType     string    `db:"event_type" json:"eventType"`
	Payload       []byte    `db:"payload" json:"payload"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// Handler delivers a stored message downstream, e.g. to Kafka.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// NewMessage encodes an event for storage.
func NewMessage(e Event) (*Message, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}
	return &Message{
		ID:            id.New(),
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		EventType:     e.EventType,
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
	}, nil
}
