package logging

import "time"

// #region event-type
// EventType enumerates session_events rows.
type EventType string

const (
	EventStarted    EventType = "started"
	EventFeedback   EventType = "feedback"   // accepted coaching transition
	EventCompleted  EventType = "completed"
	EventAborted    EventType = "aborted"
	EventSaveFailed EventType = "save_failed"
)

// #endregion event-type

// #region event-entry
// EventEntry is a single row in the session_events table.
type EventEntry struct {
	SessionID string
	UserID    string
	Mode      string
	EventType EventType
	Modality  string
	FromState string
	ToState   string
	Tick      int // ticks remaining; -1 when not tick-bound
	RecordID  string
	Reason    string
	CreatedAt time.Time
}
// #endregion event-entry
