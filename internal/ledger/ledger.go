// Package ledger provides an append-only history of light changes made by gestures.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event in the ledger
type EventType string

const (
	EventHueShifted    EventType = "hue_shifted"
	EventToggled       EventType = "toggled"
	EventTargetMissing EventType = "target_missing"
	EventLightError    EventType = "light_error"
)

// Entry represents a single event in the ledger
type Entry struct {
	ID        int64
	EventID   string
	SessionID string
	EventType EventType
	Timestamp time.Time
	Target    string
	Payload   map[string]any
}

// Ledger provides append-only event logging for one process session
type Ledger struct {
	db        *sql.DB
	sessionID string
	now       func() time.Time
}

// New creates a new Ledger using the provided database connection.
// Every entry written through it shares a fresh session ID.
func New(db *sql.DB) *Ledger {
	return &Ledger{
		db:        db,
		sessionID: uuid.NewString(),
		now:       time.Now,
	}
}

// SessionID returns the ID stamped on entries from this process
func (l *Ledger) SessionID() string {
	return l.sessionID
}

// Append adds a new event to the ledger and returns its event ID
func (l *Ledger) Append(eventType EventType, target string, payload map[string]any) (string, error) {
	var payloadJSON []byte
	var err error

	if payload != nil {
		payloadJSON, err = json.Marshal(payload)
		if err != nil {
			return "", fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	eventID := uuid.NewString()
	now := l.now().UTC().Unix()

	_, err = l.db.Exec(`
		INSERT INTO light_history (event_id, session_id, event_type, timestamp, target, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`, eventID, l.sessionID, string(eventType), now, target, string(payloadJSON))
	if err != nil {
		return "", err
	}

	return eventID, nil
}

// GetByType returns entries filtered by event type, newest first
func (l *Ledger) GetByType(eventType EventType, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_id, session_id, event_type, timestamp, target, payload
		FROM light_history
		WHERE event_type = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, string(eventType), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// GetByTimeRange returns entries within a time range, newest first
func (l *Ledger) GetByTimeRange(start, end time.Time, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_id, session_id, event_type, timestamp, target, payload
		FROM light_history
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, start.Unix(), end.Unix(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// DeleteOlderThan removes entries older than the specified duration (retention policy)
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := l.now().Add(-retention).Unix()
	result, err := l.db.Exec(`
		DELETE FROM light_history WHERE timestamp < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (l *Ledger) scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var payloadStr, target sql.NullString
		var timestamp int64

		err := rows.Scan(
			&entry.ID, &entry.EventID, &entry.SessionID, &entry.EventType, &timestamp, &target, &payloadStr,
		)
		if err != nil {
			return nil, err
		}

		entry.Timestamp = time.Unix(timestamp, 0).UTC()
		if target.Valid {
			entry.Target = target.String
		}

		if payloadStr.Valid && payloadStr.String != "" {
			entry.Payload = make(map[string]any)
			if err := json.Unmarshal([]byte(payloadStr.String), &entry.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
