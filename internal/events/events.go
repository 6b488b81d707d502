// Package events defines the catalog change notifications sent to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	ProductCreated       = "product.created"
	ProductUpdated       = "product.updated"
	ProductDuplicated    = "product.duplicated"
	ProductDeleted       = "product.deleted"
	ProductStatusChanged = "product.status_changed"
	UnitReplaced         = "unit.replaced"
	UnitDeleted          = "unit.deleted"
)

// Event is a catalog change that already committed.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	SubjectID  uint      `json:"subject_id"`
	Slug       string    `json:"slug,omitempty"`
	SourceID   uint      `json:"source_id,omitempty"`
	IsActive   *bool     `json:"is_active,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New returns an event of the given type about subjectID.
func New(eventType string, subjectID uint) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		SubjectID:  subjectID,
		OccurredAt: time.Now().UTC(),
	}
}

// Decode parses an event from a message body.
func Decode(body []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	if e.Type == "" {
		return Event{}, fmt.Errorf("event %q has no type", e.ID)
	}
	return e, nil
}

// Sender is the transport an event is handed to.
type Sender interface {
	Publish(messageType string, body []byte) error
}

// Publisher serializes events and hands them to a Sender.
type Publisher struct {
	sender Sender
}

func NewPublisher(sender Sender) *Publisher {
	return &Publisher{sender: sender}
}

// Publish sends e. The context is accepted for symmetry with other
// collaborators; the AMQP client has no per-call cancellation.
func (p *Publisher) Publish(_ context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", e.Type, err)
	}
	return p.sender.Publish(e.Type, body)
}
