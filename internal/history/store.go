package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hearth-home/hearth-core/internal/entity"
)

// Record is one persisted state change.
type Record struct {
	EntityID   string
	EntryID    string
	State      entity.Value
	Available  bool
	RecordedAt time.Time
}

// Store persists recent state changes to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over an open SQLite connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Insert appends one state change row.
func (s *Store) Insert(ctx context.Context, r Record) error {
	var stateJSON sql.NullString
	if !r.State.IsNone() {
		b, err := json.Marshal(r.State)
		if err != nil {
			return fmt.Errorf("encoding state: %w", err)
		}
		stateJSON = sql.NullString{String: string(b), Valid: true}
	}

	query := `
		INSERT INTO entity_state_history (entity_id, entry_id, state, available, recorded_at)
		VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		r.EntityID, r.EntryID, stateJSON, boolToInt(r.Available),
		r.RecordedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting history row: %w", err)
	}
	return nil
}

// Recent returns an entity's newest rows, most recent first.
func (s *Store) Recent(ctx context.Context, entityID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT entity_id, entry_id, state, available, recorded_at
		FROM entity_state_history
		WHERE entity_id = ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r         Record
			stateJSON sql.NullString
			available int
			recorded  string
		)
		if err := rows.Scan(&r.EntityID, &r.EntryID, &stateJSON, &available, &recorded); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		if stateJSON.Valid {
			if err := json.Unmarshal([]byte(stateJSON.String), &r.State); err != nil {
				return nil, fmt.Errorf("decoding state: %w", err)
			}
		}
		r.Available = available != 0
		r.RecordedAt, err = time.Parse(time.RFC3339, recorded)
		if err != nil {
			return nil, fmt.Errorf("parsing recorded_at: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Prune removes rows recorded before the cutoff and reports how many went.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM entity_state_history WHERE recorded_at < ?`,
		before.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}
	return res.RowsAffected()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
