package nats

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "events.mode.changed", Subject("mode.changed"))
}

func TestDecode(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	raw, err := json.Marshal(envelope{Type: "dialogue.turn", Data: map[string]interface{}{"session_id": "s1"}, OccurredAt: at})
	require.NoError(t, err)

	evt, err := decode("events.dialogue.turn", raw)
	require.NoError(t, err)
	assert.Equal(t, "dialogue.turn", evt.EventType())
	assert.Equal(t, "s1", evt.Payload()["session_id"])
	assert.True(t, at.Equal(evt.Timestamp()))
}

func TestDecode_FallsBackToSubject(t *testing.T) {
	evt, err := decode("events.x", []byte(`{"data":{}}`))
	require.NoError(t, err)
	assert.Equal(t, "events.x", evt.EventType())
	assert.False(t, evt.Timestamp().IsZero())

	_, err = decode("events.x", []byte("not json"))
	assert.Error(t, err)
}
