package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
)

// ExportRepository keeps the history of feed exports.
type ExportRepository struct {
	db *sql.DB
}

func NewExportRepository(db *sql.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// Create assigns an id and timestamp to e and inserts it.
func (r *ExportRepository) Create(e *models.Export) error {
	if e.Path == "" || e.Format == "" {
		return fmt.Errorf("%w: export path and format are required", shared.ErrInvalidInput)
	}
	e.ID = shared.GenerateID()
	e.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO exports (id, source_kind, source_id, format, path, post_count, pages, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, e.ID, e.SourceKind, e.SourceID, e.Format, e.Path, e.PostCount, e.Pages, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert export: %w", err)
	}
	return nil
}

func (r *ExportRepository) Get(id string) (*models.Export, error) {
	query := `
		SELECT id, source_kind, source_id, format, path, post_count, pages, created_at
		FROM exports WHERE id = ?
	`
	var e models.Export
	err := r.db.QueryRow(query, id).Scan(&e.ID, &e.SourceKind, &e.SourceID, &e.Format, &e.Path, &e.PostCount, &e.Pages, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("export not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query export: %w", err)
	}
	return &e, nil
}

// List returns the most recent exports first. limit <= 0 returns all.
func (r *ExportRepository) List(limit int) ([]*models.Export, error) {
	query := `
		SELECT id, source_kind, source_id, format, path, post_count, pages, created_at
		FROM exports ORDER BY created_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query exports: %w", err)
	}
	defer rows.Close()

	var exports []*models.Export
	for rows.Next() {
		var e models.Export
		if err := rows.Scan(&e.ID, &e.SourceKind, &e.SourceID, &e.Format, &e.Path, &e.PostCount, &e.Pages, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}
		exports = append(exports, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exports: %w", err)
	}
	return exports, nil
}
