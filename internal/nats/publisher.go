package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

type Action string

const (
	ActionCreated             Action = "created"
	ActionUpdated             Action = "updated"
	ActionDeleted             Action = "deleted"
	ActionRelationshipUpdated Action = "relationship_updated"
)

// Event describes one committed write to a resource.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	ResourceID string         `json:"resource_id"`
	Action     Action         `json:"action"`
	OccurredAt time.Time      `json:"occurred_at"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

func NewEvent(resourceType, resourceID string, action Action, attrs map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       resourceType,
		ResourceID: resourceID,
		Action:     action,
		OccurredAt: time.Now().UTC(),
		Attributes: attrs,
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// JetStreamPublisher publishes events to <prefix>.<type>.<action>.
type JetStreamPublisher struct {
	js     nats.JetStreamContext
	prefix string
}

func NewJetStreamPublisher(js nats.JetStreamContext, prefix string) *JetStreamPublisher {
	return &JetStreamPublisher{js: js, prefix: prefix}
}

func (p *JetStreamPublisher) Subject(ev Event) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, ev.Type, ev.Action)
}

func (p *JetStreamPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	msg := nats.NewMsg(p.Subject(ev))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, ev.ID)

	if _, err := p.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish %s: %w", msg.Subject, err)
	}
	return nil
}

// NoopPublisher drops every event. Used when NATS is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error {
	return nil
}
