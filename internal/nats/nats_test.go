package nats

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubject(t *testing.T) {
	p := NewJetStreamPublisher(nil, "spellbreak")

	ev := NewEvent("user", "4", ActionCreated, nil)
	assert.Equal(t, "spellbreak.user.created", p.Subject(ev))

	ev = NewEvent("tourn", "1", ActionRelationshipUpdated, nil)
	assert.Equal(t, "spellbreak.tourn.relationship_updated", p.Subject(ev))
}

func TestNewEvent(t *testing.T) {
	ev := NewEvent("record", "9", ActionUpdated, map[string]any{"kills": 5})

	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.OccurredAt.IsZero())

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "record", decoded["type"])
	assert.Equal(t, "9", decoded["resource_id"])
	assert.Equal(t, "updated", decoded["action"])
	assert.Equal(t, map[string]any{"kills": float64(5)}, decoded["attributes"])
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), NewEvent("user", "1", ActionDeleted, nil)))
}
