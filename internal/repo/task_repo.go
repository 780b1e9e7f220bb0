package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/ampliflow/internal/domain"
)

// TaskRecord — задача из истории запусков.
type TaskRecord struct {
	RunID    uuid.UUID
	Stage    string
	SampleID string
	Status   domain.TaskStatus
	Outputs  []string
	Duration time.Duration
	Cached   bool
	Error    string
}

// TaskRepo — репозиторий для работы с tasks.
type TaskRepo struct {
	db *sql.DB
}

// NewTaskRepo создаёт новый TaskRepo.
func NewTaskRepo(db *sql.DB) *TaskRepo {
	return &TaskRepo{db: db}
}

// Create фиксирует завершённую задачу.
func (r *TaskRepo) Create(ctx context.Context, runID uuid.UUID, res *domain.TaskResult) error {
	outputsJSON, err := json.Marshal(res.OutputPaths)
	if err != nil {
		return fmt.Errorf("marshal outputs: %w", err)
	}

	query := `
		INSERT INTO tasks (run_id, stage, sample_id, status, outputs, duration_ms, cached, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		runID.String(),
		res.Stage,
		res.SampleID,
		string(res.Status),
		string(outputsJSON),
		res.Duration.Milliseconds(),
		res.Cached,
		nullString(res.ErrText()),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// ListByRun возвращает задачи запуска в порядке записи.
func (r *TaskRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]TaskRecord, error) {
	query := `
		SELECT run_id, stage, sample_id, status, outputs, duration_ms, cached, error
		FROM tasks
		WHERE run_id = ?
		ORDER BY rowid ASC
	`
	rows, err := r.db.QueryContext(ctx, query, runID.String())
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []TaskRecord
	for rows.Next() {
		var t TaskRecord
		var id, status, outputsJSON string
		var durationMS int64
		var taskError sql.NullString

		err := rows.Scan(&id, &t.Stage, &t.SampleID, &status, &outputsJSON, &durationMS, &t.Cached, &taskError)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		if t.RunID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse task run id: %w", err)
		}
		t.Status = domain.TaskStatus(status)
		if err := json.Unmarshal([]byte(outputsJSON), &t.Outputs); err != nil {
			return nil, fmt.Errorf("unmarshal outputs: %w", err)
		}
		t.Duration = time.Duration(durationMS) * time.Millisecond
		if taskError.Valid {
			t.Error = taskError.String
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
