package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region log-event
// LogEvent writes a session event to the session_events table.
func LogEvent(db *sql.DB, entry EventEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var tick interface{}
	if entry.Tick >= 0 {
		tick = entry.Tick
	}

	_, err := db.Exec(
		`INSERT INTO session_events (session_id, user_id, mode, event_type, modality, from_state, to_state, tick, record_id, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID,
		nullIfEmpty(entry.UserID),
		entry.Mode,
		string(entry.EventType),
		nullIfEmpty(entry.Modality),
		nullIfEmpty(entry.FromState),
		nullIfEmpty(entry.ToState),
		tick,
		nullIfEmpty(entry.RecordID),
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log event: %w", err)
	}
	return nil
}
// #endregion log-event

// #region list-events
// ListEvents returns a session's events in insertion order.
func ListEvents(db *sql.DB, sessionID string) ([]EventEntry, error) {
	rows, err := db.Query(
		`SELECT session_id, user_id, mode, event_type, modality, from_state, to_state, tick, record_id, reason, created_at
		 FROM session_events WHERE session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var entries []EventEntry
	for rows.Next() {
		var e EventEntry
		var userID, modality, from, to, recordID, reason sql.NullString
		var tick sql.NullInt64
		var eventType, createdStr string
		if err := rows.Scan(&e.SessionID, &userID, &e.Mode, &eventType, &modality, &from, &to, &tick, &recordID, &reason, &createdStr); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.EventType = EventType(eventType)
		e.UserID = userID.String
		e.Modality = modality.String
		e.FromState = from.String
		e.ToState = to.String
		e.RecordID = recordID.String
		e.Reason = reason.String
		e.Tick = -1
		if tick.Valid {
			e.Tick = int(tick.Int64)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
// #endregion list-events

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
