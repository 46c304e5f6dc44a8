package entry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for config entry persistence.
// This abstraction allows for different implementations (SQLite, mock)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves an entry by its unique identifier.
	// Returns ErrEntryNotFound if the entry does not exist.
	GetByID(ctx context.Context, id string) (*ConfigEntry, error)

	// List retrieves all entries ordered by title.
	List(ctx context.Context) ([]ConfigEntry, error)

	// ListByDomain retrieves all entries for one integration domain.
	ListByDomain(ctx context.Context, domain string) ([]ConfigEntry, error)

	// Create inserts a new entry.
	// Returns ErrEntryExists if an entry with the same ID already exists.
	Create(ctx context.Context, e *ConfigEntry) error

	// Update modifies an existing entry's title, data, and options.
	// Returns ErrEntryNotFound if the entry does not exist.
	Update(ctx context.Context, e *ConfigEntry) error

	// UpdateState updates only the lifecycle state.
	// This is called on every setup/unload transition.
	UpdateState(ctx context.Context, id string, state State) error

	// Delete removes an entry by ID.
	// Returns ErrEntryNotFound if the entry does not exist.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const entryColumns = "id, domain, title, data, options, state, created_at, updated_at"

// GetByID retrieves an entry by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*ConfigEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM config_entries
		WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("querying entry by id: %w", err)
	}
	return e, nil
}

// List retrieves all entries ordered by title.
func (r *SQLiteRepository) List(ctx context.Context) ([]ConfigEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM config_entries
		ORDER BY title`

	return r.queryEntries(ctx, query)
}

// ListByDomain retrieves all entries for one integration domain.
func (r *SQLiteRepository) ListByDomain(ctx context.Context, domain string) ([]ConfigEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM config_entries
		WHERE domain = ?
		ORDER BY title`

	return r.queryEntries(ctx, query, domain)
}

// Create inserts a new entry.
func (r *SQLiteRepository) Create(ctx context.Context, e *ConfigEntry) error {
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	if e.State == "" {
		e.State = StateNotLoaded
	}

	dataJSON, optionsJSON, err := marshalEntryJSON(e)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO config_entries (` + entryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		e.ID, e.Domain, e.Title, dataJSON, optionsJSON, string(e.State),
		e.CreatedAt.Format(time.RFC3339), e.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrEntryExists
		}
		return fmt.Errorf("inserting entry: %w", err)
	}
	return nil
}

// Update modifies an existing entry's title, data, and options.
func (r *SQLiteRepository) Update(ctx context.Context, e *ConfigEntry) error {
	e.UpdatedAt = time.Now().UTC()

	dataJSON, optionsJSON, err := marshalEntryJSON(e)
	if err != nil {
		return err
	}

	query := `
		UPDATE config_entries
		SET title = ?, data = ?, options = ?, state = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		e.Title, dataJSON, optionsJSON, string(e.State),
		e.UpdatedAt.Format(time.RFC3339), e.ID,
	)
	if err != nil {
		return fmt.Errorf("updating entry: %w", err)
	}
	return requireRow(result)
}

// UpdateState updates only the lifecycle state.
func (r *SQLiteRepository) UpdateState(ctx context.Context, id string, state State) error {
	query := `
		UPDATE config_entries
		SET state = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		string(state), time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("updating entry state: %w", err)
	}
	return requireRow(result)
}

// Delete removes an entry by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM config_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}
	return requireRow(result)
}

// queryEntries runs a multi-row query and scans the results.
func (r *SQLiteRepository) queryEntries(ctx context.Context, query string, args ...any) ([]ConfigEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only iterator cleanup

	var entries []ConfigEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}
	return entries, nil
}

// scanner abstracts sql.Row and sql.Rows for scanEntry.
type scanner interface {
	Scan(dest ...any) error
}

// scanEntry reads one row into a ConfigEntry, decoding JSON columns.
func scanEntry(s scanner) (*ConfigEntry, error) {
	var (
		e                    ConfigEntry
		dataJSON             string
		optionsJSON          sql.NullString
		state                string
		createdAt, updatedAt string
	)

	if err := s.Scan(&e.ID, &e.Domain, &e.Title, &dataJSON, &optionsJSON,
		&state, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(dataJSON), &e.Data); err != nil {
		return nil, fmt.Errorf("decoding entry data: %w", err)
	}
	if optionsJSON.Valid && optionsJSON.String != "" {
		if err := json.Unmarshal([]byte(optionsJSON.String), &e.Options); err != nil {
			return nil, fmt.Errorf("decoding entry options: %w", err)
		}
	}

	e.State = State(state)

	var err error
	if e.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if e.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &e, nil
}

// marshalEntryJSON encodes the JSON columns for persistence.
func marshalEntryJSON(e *ConfigEntry) (data, options string, err error) {
	d, err := json.Marshal(e.Data)
	if err != nil {
		return "", "", fmt.Errorf("encoding entry data: %w", err)
	}
	if e.Options == nil {
		return string(d), "", nil
	}
	o, err := json.Marshal(e.Options)
	if err != nil {
		return "", "", fmt.Errorf("encoding entry options: %w", err)
	}
	return string(d), string(o), nil
}

// requireRow converts a zero-row update into ErrEntryNotFound.
func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrEntryNotFound
	}
	return nil
}
