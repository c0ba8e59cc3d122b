package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fileshare/internal/models"

	"github.com/google/uuid"
)

const (
	EventFileUploaded         = "file_uploaded"
	EventFileDeleted          = "file_deleted"
	EventFileRestored         = "file_restored"
	EventFileUnlinkFailed     = "file_unlink_failed"
	EventFileSharedWithYou    = "file_shared_with_you"
	EventShareUpdated         = "share_updated_for_you"
	EventShareRevokedForYou   = "share_revoked_for_you"
	EventFileTransferredToYou = "file_transferred_to_you"
	EventFileTransferredAway  = "file_transferred_away"
	EventTrashPurged          = "trash_purged"
)

// Publisher pushes an encoded event to a user's live connections.
type Publisher interface {
	PublishEvent(userID int64, message []byte)
}

type eventMessage struct {
	ID        string      `json:"id"`
	EventType string      `json:"event_type"`
	EventTime time.Time   `json:"event_time"`
	Payload   interface{} `json:"payload"`
}

func EncodeEvent(eventType string, payload interface{}) ([]byte, error) {
	msg := eventMessage{
		ID:        uuid.NewString(),
		EventType: eventType,
		EventTime: time.Now().UTC(),
		Payload:   payload,
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return b, nil
}

// LogEvent journals the event and returns its encoded form so the caller can
// publish it once the surrounding transaction has committed.
func (q *Queries) LogEvent(ctx context.Context, userID int64, eventType string, payload interface{}) ([]byte, error) {
	eventBytes, err := EncodeEvent(eventType, payload)
	if err != nil {
		return nil, err
	}

	query := `INSERT INTO event_journal (user_id, event_type, payload) VALUES ($1, $2, $3)`
	if _, err := q.db.Exec(ctx, query, userID, eventType, eventBytes); err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return eventBytes, nil
}

func (q *Queries) GetEventsSince(ctx context.Context, userID int64, sinceID int64) ([]models.Event, error) {
	query := `
		SELECT id, event_type, event_time, payload
		FROM event_journal
		WHERE user_id = $1 AND id > $2
		ORDER BY id ASC
		LIMIT 100
	`
	rows, err := q.db.Query(ctx, query, userID, sinceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var event models.Event
		err := rows.Scan(
			&event.ID,
			&event.EventType,
			&event.EventTime,
			&event.Payload,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

type pendingEvent struct {
	userID  int64
	message []byte
}

// Outbox collects events journaled inside a transaction for delivery after
// commit. The zero value is ready to use.
type Outbox struct {
	events []pendingEvent
}

// Log journals the event through q and queues it for Flush.
func (o *Outbox) Log(ctx context.Context, q *Queries, userID int64, eventType string, payload interface{}) error {
	msg, err := q.LogEvent(ctx, userID, eventType, payload)
	if err != nil {
		return err
	}
	o.events = append(o.events, pendingEvent{userID: userID, message: msg})
	return nil
}

func (o *Outbox) Reset() { o.events = o.events[:0] }

func (o *Outbox) Flush(p Publisher) {
	if p != nil {
		for _, e := range o.events {
			p.PublishEvent(e.userID, e.message)
		}
	}
	o.Reset()
}
