// Package logbook records the hub's chronological event trail: config
// entry lifecycle transitions and user-initiated entity writes, queryable
// through the API for a "what happened" timeline.
package logbook

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event types recorded in the logbook.
const (
	EventEntryLoaded   = "entry_loaded"
	EventEntryUnloaded = "entry_unloaded"
	EventEntryAdded    = "entry_added"
	EventEntryRemoved  = "entry_removed"
	EventNeedsReauth   = "needs_reauth"
	EventReauthOK      = "reauth_ok"
	EventEntityWrite   = "entity_write"
)

// Event is one logbook row.
type Event struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	EntryID  string         `json:"entry_id,omitempty"`
	EntityID string         `json:"entity_id,omitempty"`
	Details  map[string]any `json:"details,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Filter controls which events List returns.
type Filter struct {
	Type     string // optional: one event type
	EntryID  string // optional: events for one config entry
	EntityID string // optional: events for one entity
	Limit    int    // default 50, max 200
	Offset   int    // pagination offset
}

// ListResult is a page of events with the unpaginated total.
type ListResult struct {
	Events []Event `json:"events"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// Repository defines logbook persistence.
type Repository interface {
	Record(ctx context.Context, ev *Event) error
	List(ctx context.Context, filter Filter) (*ListResult, error)

	// Prune deletes events recorded before the cutoff, returning the
	// number removed.
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed logbook.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record inserts one event. The ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Record(ctx context.Context, ev *Event) error {
	if ev.ID == "" {
		ev.ID = "evt-" + uuid.NewString()[:8]
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	var detailsJSON any
	if ev.Details != nil {
		b, err := json.Marshal(ev.Details)
		if err != nil {
			return fmt.Errorf("encoding event details: %w", err)
		}
		detailsJSON = string(b)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO logbook (id, type, entry_id, entity_id, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Type,
		nullableString(ev.EntryID), nullableString(ev.EntityID),
		detailsJSON, ev.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting logbook event: %w", err)
	}
	return nil
}

// List returns events matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	if filter.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.EntryID != "" {
		conditions = append(conditions, "entry_id = ?")
		args = append(args, filter.EntryID)
	}
	if filter.EntityID != "" {
		conditions = append(conditions, "entity_id = ?")
		args = append(args, filter.EntityID)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	// WHERE is assembled from fixed parameterised conditions only.
	var total int
	countQuery := "SELECT COUNT(*) FROM logbook " + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting logbook events: %w", err)
	}

	query := "SELECT id, type, entry_id, entity_id, details, created_at FROM logbook " +
		where + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying logbook: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var ev Event
		var entryID, entityID, details sql.NullString
		var createdAt string
		if err := rows.Scan(&ev.ID, &ev.Type, &entryID, &entityID,
			&details, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning logbook event: %w", err)
		}

		ev.EntryID = entryID.String
		ev.EntityID = entityID.String
		if details.Valid && details.String != "" {
			var m map[string]any
			if json.Unmarshal([]byte(details.String), &m) == nil {
				ev.Details = m
			}
		}
		if ev.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing event timestamp %q: %w", createdAt, err)
		}

		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating logbook: %w", err)
	}

	return &ListResult{
		Events: events,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// Prune deletes events recorded before the cutoff.
func (r *SQLiteRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM logbook WHERE created_at < ?`,
		before.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning logbook: %w", err)
	}
	return result.RowsAffected()
}

// nullableString maps "" to NULL for optional TEXT columns.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
