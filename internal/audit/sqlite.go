package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alexanderramin/stageflow/internal/db"
)

type sqliteSink struct {
	db db.DBTX
}

// NewSQLiteSink appends entries to the audit_events table.
func NewSQLiteSink(conn db.DBTX) Sink {
	return &sqliteSink{db: conn}
}

func (s *sqliteSink) Log(ctx context.Context, e Entry) error {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	var data any
	if len(e.Data) > 0 {
		raw, err := json.Marshal(e.Data)
		if err != nil {
			return fmt.Errorf("encoding audit data: %w", err)
		}
		data = string(raw)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_events (at, action, message, level, user_id, project_id, data) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		at.UTC().Format(time.RFC3339Nano), e.Action, e.Message, e.Level.String(), nullIfEmpty(e.UserID), nullIfEmpty(e.ProjectID), data)
	if err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}
	return nil
}

// Record is a stored audit event.
type Record struct {
	ID        int64
	At        time.Time
	Action    string
	Message   string
	Level     string
	UserID    string
	ProjectID string
	Data      map[string]any
}

// ListRecent returns the newest audit events first.
func ListRecent(ctx context.Context, conn db.DBTX, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := conn.QueryContext(ctx,
		`SELECT id, at, action, message, level, user_id, project_id, data FROM audit_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing audit events: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var at string
		var userID, projectID, data sql.NullString
		if err := rows.Scan(&r.ID, &at, &r.Action, &r.Message, &r.Level, &userID, &projectID, &data); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}
		if r.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parsing audit timestamp: %w", err)
		}
		r.UserID = userID.String
		r.ProjectID = projectID.String
		if data.Valid {
			if err := json.Unmarshal([]byte(data.String), &r.Data); err != nil {
				return nil, fmt.Errorf("decoding audit data: %w", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
