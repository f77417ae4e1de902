// Package audit provides the lifecycle_events journal: a persistent record
// of lifecycle transitions and notable events for post-hoc inspection.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is a single journal entry. FromState and ToState are empty for
// events that are not transitions (watchdog checks, provisioning attempts).
type Event struct {
	ID        string         `json:"id"`
	Event     string         `json:"event"`
	FromState string         `json:"from_state,omitempty"`
	ToState   string         `json:"to_state,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Repository defines the interface for journal operations.
type Repository interface {
	Record(ctx context.Context, event *Event) error
	Recent(ctx context.Context, limit int) ([]Event, error)
}

// defaultRecentLimit caps Recent queries with a non-positive limit.
const defaultRecentLimit = 50

// SQLiteRepository stores the journal in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a journal repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// EnsureSchema creates the journal table if it does not exist. Called once
// at startup; the schema is small enough not to warrant migrations.
func (r *SQLiteRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS lifecycle_events (
			id         TEXT PRIMARY KEY,
			event      TEXT NOT NULL,
			from_state TEXT NOT NULL DEFAULT '',
			to_state   TEXT NOT NULL DEFAULT '',
			details    TEXT,
			created_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_lifecycle_events_created_at
			ON lifecycle_events(created_at);
	`)
	if err != nil {
		return fmt.Errorf("ensuring journal schema: %w", err)
	}
	return nil
}

// Record inserts a journal entry. The ID and CreatedAt are generated if
// empty.
func (r *SQLiteRepository) Record(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = "evt-" + uuid.NewString()[:8]
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	var detailsJSON *string
	if event.Details != nil {
		b, err := json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("marshalling event details: %w", err)
		}
		s := string(b)
		detailsJSON = &s
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO lifecycle_events (id, event, from_state, to_state, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID, event.Event, event.FromState, event.ToState, detailsJSON, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting journal entry: %w", err)
	}
	return nil
}

// Recent returns the newest entries, newest first.
func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event, from_state, to_state, details, created_at
		FROM lifecycle_events
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var events []Event
	for rows.Next() {
		var (
			ev          Event
			detailsJSON sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.Event, &ev.FromState, &ev.ToState, &detailsJSON, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}
		if detailsJSON.Valid && detailsJSON.String != "" {
			if err := json.Unmarshal([]byte(detailsJSON.String), &ev.Details); err != nil {
				return nil, fmt.Errorf("unmarshalling event details: %w", err)
			}
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal entries: %w", err)
	}
	return events, nil
}
