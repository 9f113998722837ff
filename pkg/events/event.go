package events

import "time"

// Event is anything the dialogue core announces on the bus, such as
// "dialogue.turn", "mode.changed" or "interview.completed".
type Event interface {
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

// BaseEvent is the concrete event used by publishers and rebuilt by
// subscribers from the wire envelope.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string { return e.Type }
func (e BaseEvent) Timestamp() time.Time { return e.OccurredAt }
func (e BaseEvent) Payload() map[string]interface{} {
	if e.Data == nil {
		return map[string]interface{}{}
	}
	return e.Data
}

// SessionID reads the session_id field most dialogue events carry.
func SessionID(e Event) string {
	id, _ := e.Payload()["session_id"].(string)
	return id
}
