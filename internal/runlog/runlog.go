package runlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/ampliflow/internal/domain"
)

// stderrExcerptLimit — длина выдержки stderr в записи вызова.
// Полный вывод инструмента пишется отдельной записью и не обрезается.
const stderrExcerptLimit = 1024

// lockedWriter сериализует записи в общий журнал.
type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

// Write реализует io.Writer.
func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

// RunLog — журнал одного запуска пайплайна.
type RunLog struct {
	mu     sync.Mutex
	closer io.Closer
	logger *slog.Logger
}

// New создаёт журнал поверх произвольного writer (используется тестами).
func New(w io.Writer) *RunLog {
	l := &RunLog{}
	lw := &lockedWriter{mu: &l.mu, w: w}
	l.logger = slog.New(slog.NewJSONHandler(lw, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	return l
}

// Open открывает журнал на дозапись по указанному пути.
func Open(path string) (*RunLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run log %s: %w", path, err)
	}
	l := New(f)
	l.closer = f
	return l, nil
}

// Logger возвращает slog.Logger, пишущий в журнал.
func (l *RunLog) Logger() *slog.Logger {
	return l.logger
}

// Close закрывает файл журнала.
func (l *RunLog) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// RunStarted фиксирует начало запуска.
func (l *RunLog) RunStarted(runID uuid.UUID, samples, threads int) {
	l.logger.Info("run started",
		"run_id", runID.String(),
		"samples", samples,
		"threads", threads,
	)
}

// RunFinished фиксирует завершение запуска с итоговым статусом
// и перечнем исключённых образцов.
func (l *RunLog) RunFinished(runID uuid.UUID, status domain.RunStatus, excluded []domain.ExcludedSample, dur time.Duration) {
	ids := make([]string, 0, len(excluded))
	for _, e := range excluded {
		ids = append(ids, fmt.Sprintf("%s (failed at %s: %s)", e.SampleID, e.Stage, e.Reason))
	}
	l.logger.Info("run finished",
		"run_id", runID.String(),
		"status", status.String(),
		"excluded_samples", ids,
		"duration", dur.String(),
	)
}

// StageStarted фиксирует начало этапа.
func (l *RunLog) StageStarted(stage string, scope domain.StageScope) {
	l.logger.Info("stage started", "stage", stage, "scope", string(scope))
}

// StageFinished фиксирует завершение этапа.
func (l *RunLog) StageFinished(stage string, failed int, dur time.Duration) {
	l.logger.Info("stage finished",
		"stage", stage,
		"failed_tasks", failed,
		"duration", dur.String(),
	)
}

// TaskStarted фиксирует начало задачи.
func (l *RunLog) TaskStarted(stage, sampleID string) {
	l.logger.Info("task started", "stage", stage, "sample", sampleID)
}

// TaskFinished фиксирует финальный статус задачи.
func (l *RunLog) TaskFinished(res *domain.TaskResult) {
	attrs := []any{
		"stage", res.Stage,
		"sample", res.SampleID,
		"status", res.Status.String(),
		"duration", res.Duration.String(),
	}
	if res.Cached {
		attrs = append(attrs, "cached", true)
	}
	if res.Err != nil {
		attrs = append(attrs, "error", res.Err.Error())
		l.logger.Error("task finished", attrs...)
		return
	}
	l.logger.Info("task finished", attrs...)
}

// Invocation фиксирует один вызов внешнего инструмента.
func (l *RunLog) Invocation(stage, sampleID, cmdline string, exitCode int, dur time.Duration, stderr string) {
	l.logger.Info("tool invocation",
		"stage", stage,
		"sample", sampleID,
		"command", cmdline,
		"exit_code", exitCode,
		"duration", dur.String(),
		"stderr_excerpt", Truncate(stderr, stderrExcerptLimit),
	)
}

// ToolOutput дописывает полный stdout/stderr инструмента с тегом
// этапа/образца. Вывод никогда не отбрасывается: диагностика упавшего
// инструмента должна быть восстановима из журнала.
func (l *RunLog) ToolOutput(stage, sampleID, stream string, data []byte) {
	if len(data) == 0 {
		return
	}
	l.logger.Debug("tool output",
		"stage", stage,
		"sample", sampleID,
		"stream", stream,
		"output", string(data),
	)
}

// Truncate обрезает строку до limit символов, помечая обрез.
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "...(truncated)"
}
