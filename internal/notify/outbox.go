package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alexanderramin/stageflow/internal/db"
	"github.com/google/uuid"
)

// Outbox stores notifications in the notifications table until a delivery
// worker marks them delivered.
type Outbox struct {
	db db.DBTX
}

func NewOutbox(conn db.DBTX) *Outbox {
	return &Outbox{db: conn}
}

func (o *Outbox) Publish(ctx context.Context, n Notification) error {
	if n.Recipient == "" {
		return nil
	}
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return fmt.Errorf("encoding notification payload: %w", err)
	}
	_, err = o.db.ExecContext(ctx,
		`INSERT INTO notifications (id, kind, recipient, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.Kind, n.Recipient, string(payload), n.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

// Pending returns undelivered notifications for recipient, oldest first.
func (o *Outbox) Pending(ctx context.Context, recipient string) ([]Notification, error) {
	rows, err := o.db.QueryContext(ctx,
		`SELECT id, kind, recipient, payload, created_at, delivered_at FROM notifications
		WHERE recipient = ? AND delivered_at IS NULL ORDER BY created_at, id`, recipient)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		var payload, createdAt string
		var delivered sql.NullString
		if err := rows.Scan(&n.ID, &n.Kind, &n.Recipient, &payload, &createdAt, &delivered); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &n.Payload); err != nil {
			return nil, fmt.Errorf("decoding notification payload: %w", err)
		}
		if n.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkDelivered stamps a notification as delivered.
func (o *Outbox) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	res, err := o.db.ExecContext(ctx,
		`UPDATE notifications SET delivered_at = ? WHERE id = ? AND delivered_at IS NULL`,
		at.UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("marking notification delivered: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("notification %s not found or already delivered", id)
	}
	return nil
}
