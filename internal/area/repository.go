package area

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for area persistence operations.
type Repository interface {
	Create(ctx context.Context, a *Area) error
	List(ctx context.Context) ([]Area, error)
	Get(ctx context.Context, id string) (*Area, error)
	Update(ctx context.Context, a *Area) error
	Delete(ctx context.Context, id string) error

	// Assign places a config entry in an area, replacing any previous
	// assignment. An empty areaID clears the assignment.
	Assign(ctx context.Context, entryID, areaID string) error

	// AreaOf returns the area ID a config entry is assigned to, with ok
	// reporting whether an assignment exists.
	AreaOf(ctx context.Context, entryID string) (string, bool, error)

	// Members returns the config entry IDs assigned to an area.
	Members(ctx context.Context, areaID string) ([]string, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed area repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const areaColumns = "id, name, slug, sort_order, created_at, updated_at"

// Create inserts a new area. The ID is generated when empty.
func (r *SQLiteRepository) Create(ctx context.Context, a *Area) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = GenerateID()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	query := `
		INSERT INTO areas (` + areaColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Name, a.Slug, a.SortOrder,
		a.CreatedAt.Format(time.RFC3339), a.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrSlugExists, a.Slug)
		}
		return fmt.Errorf("inserting area: %w", err)
	}
	return nil
}

// List returns all areas ordered for display.
func (r *SQLiteRepository) List(ctx context.Context) ([]Area, error) {
	query := `
		SELECT ` + areaColumns + `
		FROM areas
		ORDER BY sort_order, name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying areas: %w", err)
	}
	defer rows.Close()

	var areas []Area
	for rows.Next() {
		a, err := scanArea(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning area: %w", err)
		}
		areas = append(areas, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating areas: %w", err)
	}
	return areas, nil
}

// Get returns one area by ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Area, error) {
	query := `
		SELECT ` + areaColumns + `
		FROM areas
		WHERE id = ?`

	a, err := scanArea(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAreaNotFound
		}
		return nil, fmt.Errorf("querying area: %w", err)
	}
	return a, nil
}

// Update modifies an area's name, slug, and sort order.
func (r *SQLiteRepository) Update(ctx context.Context, a *Area) error {
	if err := a.Validate(); err != nil {
		return err
	}
	a.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE areas
		SET name = ?, slug = ?, sort_order = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		a.Name, a.Slug, a.SortOrder, a.UpdatedAt.Format(time.RFC3339), a.ID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrSlugExists, a.Slug)
		}
		return fmt.Errorf("updating area: %w", err)
	}
	return requireArea(result)
}

// Delete removes an area and its assignments.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM area_members WHERE area_id = ?`, id); err != nil {
		return fmt.Errorf("clearing area members: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM areas WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting area: %w", err)
	}
	return requireArea(result)
}

// Assign places a config entry in an area.
func (r *SQLiteRepository) Assign(ctx context.Context, entryID, areaID string) error {
	if areaID == "" {
		_, err := r.db.ExecContext(ctx,
			`DELETE FROM area_members WHERE entry_id = ?`, entryID)
		if err != nil {
			return fmt.Errorf("clearing entry assignment: %w", err)
		}
		return nil
	}

	if _, err := r.Get(ctx, areaID); err != nil {
		return err
	}

	query := `
		INSERT INTO area_members (entry_id, area_id)
		VALUES (?, ?)
		ON CONFLICT(entry_id) DO UPDATE SET area_id = excluded.area_id`

	if _, err := r.db.ExecContext(ctx, query, entryID, areaID); err != nil {
		return fmt.Errorf("assigning entry to area: %w", err)
	}
	return nil
}

// AreaOf returns a config entry's area assignment.
func (r *SQLiteRepository) AreaOf(ctx context.Context, entryID string) (string, bool, error) {
	var areaID string
	err := r.db.QueryRowContext(ctx,
		`SELECT area_id FROM area_members WHERE entry_id = ?`, entryID,
	).Scan(&areaID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying entry assignment: %w", err)
	}
	return areaID, true, nil
}

// Members returns the config entry IDs assigned to an area.
func (r *SQLiteRepository) Members(ctx context.Context, areaID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT entry_id FROM area_members WHERE area_id = ? ORDER BY entry_id`, areaID)
	if err != nil {
		return nil, fmt.Errorf("querying area members: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning area member: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating area members: %w", err)
	}
	return ids, nil
}

// scanner abstracts sql.Row and sql.Rows for scanArea.
type scanner interface {
	Scan(dest ...any) error
}

func scanArea(s scanner) (*Area, error) {
	var (
		a                    Area
		createdAt, updatedAt string
	)
	if err := s.Scan(&a.ID, &a.Name, &a.Slug, &a.SortOrder,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if a.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if a.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &a, nil
}

// requireArea converts a zero-row update into ErrAreaNotFound.
func requireArea(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrAreaNotFound
	}
	return nil
}
