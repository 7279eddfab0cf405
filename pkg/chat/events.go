package chat

import "time"

type EventType string

const (
	EventMessageAppended EventType = "message_appended"
	EventBusyChanged     EventType = "busy_changed"
	EventDraftChanged    EventType = "draft_changed"
	EventClosed          EventType = "closed"
)

// Event notifies observers that a session changed. It carries no message
// content; observers read a fresh Snapshot.
type Event struct {
	SessionID string    `json:"session_id"`
	Seq       uint64    `json:"seq"`
	Type      EventType `json:"type"`
	LogLen    int       `json:"log_len"`
	Busy      bool      `json:"busy"`
	Time      time.Time `json:"time"`
}

// Sink receives session events. Publish is called outside the session lock
// and must not block on the session's owner.
type Sink interface {
	Publish(ev Event) error
}

type SinkFunc func(ev Event) error

func (f SinkFunc) Publish(ev Event) error { return f(ev) }
