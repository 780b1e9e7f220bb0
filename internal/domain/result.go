package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskResult — результат одной задачи (stage × sample).
//
// Живёт в пределах одного запуска движка: создаётся invoker'ом,
// агрегируется в отчёт и журнал запуска.
type TaskResult struct {
	// Stage — имя этапа.
	Stage string

	// SampleID — идентификатор образца; пуст для глобальных этапов.
	SampleID string

	// Status — финальный статус задачи.
	Status TaskStatus

	// OutputPaths — выходные файлы задачи. При SUCCEEDED все существуют
	// и непусты.
	OutputPaths []string

	// Duration — продолжительность выполнения.
	Duration time.Duration

	// Cached — true, если задача не выполнялась, потому что её выходы
	// уже существовали (resume-режим).
	Cached bool

	// Err — причина неудачи при FAILED.
	Err error
}

// Failed возвращает true, если задача завершилась неудачей.
func (r *TaskResult) Failed() bool {
	return r.Status == TaskStatusFailed
}

// ErrText возвращает текст ошибки для журнала и истории запусков.
func (r *TaskResult) ErrText() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// ExcludedSample — образец, исключённый из итоговой таблицы,
// с этапом и причиной выбытия.
type ExcludedSample struct {
	SampleID string
	Stage    string
	Reason   string
}

// Run — один запуск пайплайна для истории запусков.
type Run struct {
	// ID — уникальный идентификатор запуска.
	ID uuid.UUID

	// OutputDir — корень выходного каталога.
	OutputDir string

	// Status — итоговый статус запуска.
	Status RunStatus

	// Samples — количество образцов в метаданных.
	Samples int

	// Excluded — образцы, исключённые из итоговой таблицы.
	Excluded []ExcludedSample

	// StartedAt — время начала выполнения.
	StartedAt time.Time

	// FinishedAt — время завершения. Nil, если запуск ещё идёт.
	FinishedAt *time.Time

	// Error — текст фатальной ошибки при ABORTED.
	Error string
}

// Duration возвращает продолжительность запуска.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
