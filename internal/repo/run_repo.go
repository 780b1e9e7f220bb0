package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/shaiso/ampliflow/internal/domain"
)

// RunRepo — репозиторий для работы с runs.
type RunRepo struct {
	db *sql.DB
}

// NewRunRepo создаёт новый RunRepo.
func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{db: db}
}

// Create создаёт новый run.
func (r *RunRepo) Create(ctx context.Context, run *domain.Run) error {
	excludedJSON, err := json.Marshal(run.Excluded)
	if err != nil {
		return fmt.Errorf("marshal excluded: %w", err)
	}

	query := `
		INSERT INTO runs (id, output_dir, status, samples, excluded, started_at, finished_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		run.ID.String(),
		run.OutputDir,
		string(run.Status),
		run.Samples,
		string(excludedJSON),
		run.StartedAt,
		run.FinishedAt,
		nullString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Update обновляет статус и итог запуска.
func (r *RunRepo) Update(ctx context.Context, run *domain.Run) error {
	excludedJSON, err := json.Marshal(run.Excluded)
	if err != nil {
		return fmt.Errorf("marshal excluded: %w", err)
	}

	query := `
		UPDATE runs
		SET status = ?, excluded = ?, finished_at = ?, error = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		string(run.Status),
		string(excludedJSON),
		run.FinishedAt,
		nullString(run.Error),
		run.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID возвращает run по ID.
func (r *RunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	query := `
		SELECT id, output_dir, status, samples, excluded, started_at, finished_at, error
		FROM runs
		WHERE id = ?
	`
	return scanRun(r.db.QueryRowContext(ctx, query, id.String()))
}

// List возвращает запуски, начиная с самых свежих.
func (r *RunRepo) List(ctx context.Context, limit int) ([]domain.Run, error) {
	query := `
		SELECT id, output_dir, status, samples, excluded, started_at, finished_at, error
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// --- Helpers ---

// rowScanner покрывает sql.Row и sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun сканирует одну строку в Run.
func scanRun(row rowScanner) (*domain.Run, error) {
	var run domain.Run
	var id string
	var status string
	var excludedJSON string
	var runError sql.NullString

	err := row.Scan(
		&id,
		&run.OutputDir,
		&status,
		&run.Samples,
		&excludedJSON,
		&run.StartedAt,
		&run.FinishedAt,
		&runError,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	run.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse run id: %w", err)
	}
	run.Status = domain.RunStatus(status)
	if err := json.Unmarshal([]byte(excludedJSON), &run.Excluded); err != nil {
		return nil, fmt.Errorf("unmarshal excluded: %w", err)
	}
	if runError.Valid {
		run.Error = runError.String
	}
	return &run, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
