package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/shaiso/ampliflow/internal/domain"
)

// History связывает репозитории запусков и задач в хранилище истории
// для движка. Запись идёт по ходу выполнения, поэтому прерванный запуск
// оставляет в истории частичный след с актуальным статусом.
type History struct {
	ctx   context.Context
	runs  *RunRepo
	tasks *TaskRepo
}

// NewHistory создаёт History поверх открытой базы.
func NewHistory(ctx context.Context, db *sql.DB) *History {
	return &History{
		ctx:   ctx,
		runs:  NewRunRepo(db),
		tasks: NewTaskRepo(db),
	}
}

// RunStarted фиксирует начало запуска.
func (h *History) RunStarted(run *domain.Run) error {
	return h.runs.Create(h.ctx, run)
}

// TaskFinished фиксирует завершённую задачу.
func (h *History) TaskFinished(runID uuid.UUID, res *domain.TaskResult) error {
	return h.tasks.Create(h.ctx, runID, res)
}

// RunFinished фиксирует итог запуска.
func (h *History) RunFinished(run *domain.Run) error {
	return h.runs.Update(h.ctx, run)
}
