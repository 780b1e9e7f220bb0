package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/ampliflow/internal/config"
	"github.com/shaiso/ampliflow/internal/domain"
	"github.com/shaiso/ampliflow/internal/layout"
	"github.com/shaiso/ampliflow/internal/runlog"
	"github.com/shaiso/ampliflow/internal/telemetry"
	"github.com/shaiso/ampliflow/internal/tools"
)

// Invoker выполняет план задачи. Продакшен-реализация — tools.Invoker;
// тесты подставляют заглушку.
type Invoker interface {
	Run(ctx context.Context, stage, sampleID string, plan domain.Invocation) domain.TaskResult
}

// History — хранилище истории запусков.
type History interface {
	RunStarted(run *domain.Run) error
	TaskFinished(runID uuid.UUID, res *domain.TaskResult) error
	RunFinished(run *domain.Run) error
}

// Config — зависимости и параметры движка.
type Config struct {
	// Stages — этапы в порядке объявления (он же топологический).
	Stages []domain.Stage

	// Samples — образцы из каталога метаданных.
	Samples []domain.SampleRecord

	// Pipeline — конфигурация запуска.
	Pipeline *config.PipelineConfig

	// Layout — раскладка артефактов.
	Layout *layout.ArtifactLayout

	// Invoker — исполнитель планов задач.
	Invoker Invoker

	// Log — журнал запуска. Опционален.
	Log *runlog.RunLog

	// Metrics — метрики запуска. Опциональны.
	Metrics *telemetry.Metrics

	// History — история запусков. Опциональна.
	History History

	// Logger — консольный логгер.
	Logger *slog.Logger

	// Resume — пропускать задачи, чьи ожидаемые выходы уже непусты.
	Resume bool
}

// Report — итог одного запуска.
type Report struct {
	// RunID — идентификатор запуска.
	RunID uuid.UUID

	// Status — итоговый статус.
	Status domain.RunStatus

	// Excluded — образцы, исключённые из итоговой таблицы,
	// каждый ровно один раз — на этапе первого сбоя.
	Excluded []domain.ExcludedSample

	// Results — результаты всех задач в порядке завершения этапов.
	Results []domain.TaskResult

	// Duration — продолжительность запуска.
	Duration time.Duration
}

// Engine управляет выполнением пайплайна: пул воркеров для per-sample
// этапов, барьеры перед глобальными, fail-soft учёт выбывших образцов.
type Engine struct {
	cfg Config

	// failedAt — образец → запись о выбытии на этапе первого сбоя.
	failedAt map[string]domain.ExcludedSample

	// order — порядок выбытия для детерминированного отчёта.
	order []string
}

// New создаёт движок, проверяя корректность таблицы этапов.
func New(cfg Config) (*Engine, error) {
	if err := ValidateStages(cfg.Stages); err != nil {
		return nil, err
	}
	if cfg.Invoker == nil {
		return nil, fmt.Errorf("engine: invoker is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		cfg:      cfg,
		failedAt: make(map[string]domain.ExcludedSample, len(cfg.Samples)),
	}, nil
}

// Run выполняет все этапы по порядку. Сбой per-sample задачи выводит
// образец из дальнейшей обработки; сбой глобального этапа фатален.
// Если перед глобальным этапом не осталось ни одного образца, запуск
// прерывается с PipelineAbortedError.
//
// Отмена контекста проверяется на границах задач: уже запущенный
// внешний процесс дорабатывает до конца.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	started := time.Now()
	report := &Report{RunID: uuid.New(), Status: domain.RunStatusRunning}

	run := &domain.Run{
		ID:        report.RunID,
		OutputDir: e.outputDir(),
		Status:    domain.RunStatusRunning,
		Samples:   len(e.cfg.Samples),
		StartedAt: started,
	}
	if e.cfg.History != nil {
		if err := e.cfg.History.RunStarted(run); err != nil {
			return nil, fmt.Errorf("record run start: %w", err)
		}
	}
	if e.cfg.Log != nil {
		e.cfg.Log.RunStarted(report.RunID, len(e.cfg.Samples), e.threads())
	}

	var fatal error
	for i := range e.cfg.Stages {
		st := &e.cfg.Stages[i]
		if err := ctx.Err(); err != nil {
			fatal = err
			break
		}

		stageStart := time.Now()
		if e.cfg.Log != nil {
			e.cfg.Log.StageStarted(st.Name, st.Scope)
		}
		e.cfg.Logger.Info("stage started", "stage", st.Name, "scope", string(st.Scope))

		var results []domain.TaskResult
		var err error
		if st.Scope == domain.ScopePerSample {
			results = e.runPerSample(ctx, st)
		} else {
			results, err = e.runGlobal(ctx, st)
		}

		failed := 0
		for i := range results {
			res := &results[i]
			if res.Failed() {
				failed++
			}
			e.observeTask(report.RunID, res)
		}
		report.Results = append(report.Results, results...)

		dur := time.Since(stageStart)
		if e.cfg.Metrics != nil {
			e.cfg.Metrics.StageDuration.WithLabelValues(st.Name).Observe(dur.Seconds())
		}
		if e.cfg.Log != nil {
			e.cfg.Log.StageFinished(st.Name, failed, dur)
		}
		e.cfg.Logger.Info("stage finished", "stage", st.Name, "failed", failed, "duration", dur.String())

		if err != nil {
			fatal = err
			break
		}
	}

	report.Duration = time.Since(started)
	report.Excluded = e.excluded()

	switch {
	case fatal != nil:
		report.Status = domain.RunStatusAborted
	case len(report.Excluded) > 0:
		report.Status = domain.RunStatusPartialSuccess
	default:
		report.Status = domain.RunStatusSucceeded
	}

	finished := time.Now()
	run.Status = report.Status
	run.Excluded = report.Excluded
	run.FinishedAt = &finished
	if fatal != nil {
		run.Error = fatal.Error()
	}
	if e.cfg.History != nil {
		if err := e.cfg.History.RunFinished(run); err != nil {
			e.cfg.Logger.Error("record run finish", "error", err)
		}
	}
	if e.cfg.Log != nil {
		e.cfg.Log.RunFinished(report.RunID, report.Status, report.Excluded, report.Duration)
	}

	return report, fatal
}

// runPerSample выполняет задачи этапа для всех живых образцов в пуле
// воркеров шириной Threads. Выбывшие образцы получают запись SKIPPED.
func (e *Engine) runPerSample(ctx context.Context, st *domain.Stage) []domain.TaskResult {
	results := make([]domain.TaskResult, len(e.cfg.Samples))

	sem := make(chan struct{}, e.threads())
	var wg sync.WaitGroup
	for i := range e.cfg.Samples {
		s := &e.cfg.Samples[i]
		if _, dead := e.failedAt[s.SampleID]; dead {
			results[i] = domain.TaskResult{
				Stage:    st.Name,
				SampleID: s.SampleID,
				Status:   domain.TaskStatusSkipped,
			}
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, s *domain.SampleRecord) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = e.runTask(ctx, st, s)
		}(i, s)
	}
	wg.Wait()

	// Учёт выбытия после барьера, в порядке объявления образцов.
	for i := range results {
		res := &results[i]
		if res.Failed() {
			e.exclude(res.SampleID, st.Name, res.ErrText())
		}
	}
	return results
}

// runGlobal выполняет глобальный этап: барьер живости, Prepare по
// выжившим, затем одна задача. Сбой глобального этапа фатален.
func (e *Engine) runGlobal(ctx context.Context, st *domain.Stage) ([]domain.TaskResult, error) {
	survivors := e.survivors()
	if len(survivors) == 0 {
		err := &PipelineAbortedError{Stage: st.Name, Excluded: e.excluded()}
		return []domain.TaskResult{{
			Stage:  st.Name,
			Status: domain.TaskStatusFailed,
			Err:    err,
		}}, err
	}

	if st.Prepare != nil {
		if err := st.Prepare(survivors); err != nil {
			err = fmt.Errorf("stage %s: prepare: %w", st.Name, err)
			return []domain.TaskResult{{
				Stage:  st.Name,
				Status: domain.TaskStatusFailed,
				Err:    err,
			}}, err
		}
	}

	res := e.runTask(ctx, st, nil)
	if res.Failed() {
		return []domain.TaskResult{res}, fmt.Errorf("stage %s: %w", st.Name, res.Err)
	}
	return []domain.TaskResult{res}, nil
}

// runTask выполняет одну задачу: resume-проверка кэша, затем внешний
// план через Invoker либо нативное действие.
func (e *Engine) runTask(ctx context.Context, st *domain.Stage, s *domain.SampleRecord) domain.TaskResult {
	sampleID := ""
	if s != nil {
		sampleID = s.SampleID
	}

	var plan domain.Invocation
	if st.Build != nil {
		var err error
		plan, err = st.Build(s)
		if err != nil {
			return domain.TaskResult{
				Stage:    st.Name,
				SampleID: sampleID,
				Status:   domain.TaskStatusFailed,
				Err:      fmt.Errorf("build invocation: %w", err),
			}
		}
	}

	if e.cfg.Resume && cachedOutputsOK(plan.ExpectedOutputs) {
		return domain.TaskResult{
			Stage:       st.Name,
			SampleID:    sampleID,
			Status:      domain.TaskStatusSucceeded,
			OutputPaths: plan.ExpectedOutputs,
			Cached:      true,
		}
	}

	if e.cfg.Log != nil {
		e.cfg.Log.TaskStarted(st.Name, sampleID)
	}

	if st.Native != nil {
		started := time.Now()
		res := domain.TaskResult{
			Stage:       st.Name,
			SampleID:    sampleID,
			Status:      domain.TaskStatusSucceeded,
			OutputPaths: plan.ExpectedOutputs,
		}
		if err := st.Native(ctx); err != nil {
			res.Status = domain.TaskStatusFailed
			res.Err = err
		}
		// Нативные этапы проходят то же постусловие, что и внешние.
		if res.Err == nil {
			for _, p := range plan.ExpectedOutputs {
				if !layout.NonEmpty(p) {
					res.Status = domain.TaskStatusFailed
					res.Err = &tools.EmptyOutputError{Stage: st.Name, SampleID: sampleID, Path: p}
					break
				}
			}
		}
		res.Duration = time.Since(started)
		return res
	}

	return e.cfg.Invoker.Run(ctx, st.Name, sampleID, plan)
}

// observeTask фиксирует финал задачи в журнале, метриках и истории.
func (e *Engine) observeTask(runID uuid.UUID, res *domain.TaskResult) {
	if e.cfg.Log != nil {
		e.cfg.Log.TaskFinished(res)
	}
	if e.cfg.Metrics != nil {
		e.cfg.Metrics.TasksTotal.WithLabelValues(res.Stage, res.Status.String()).Inc()
	}
	if e.cfg.History != nil {
		if err := e.cfg.History.TaskFinished(runID, res); err != nil {
			e.cfg.Logger.Error("record task", "stage", res.Stage, "sample", res.SampleID, "error", err)
		}
	}
	if res.Failed() {
		e.cfg.Logger.Warn("task failed", "stage", res.Stage, "sample", res.SampleID, "error", res.ErrText())
	}
}

// exclude регистрирует выбытие образца. Повторные сбои того же образца
// не меняют запись: образец числится выбывшим ровно один раз.
func (e *Engine) exclude(sampleID, stage, reason string) {
	if _, ok := e.failedAt[sampleID]; ok {
		return
	}
	e.failedAt[sampleID] = domain.ExcludedSample{
		SampleID: sampleID,
		Stage:    stage,
		Reason:   reason,
	}
	e.order = append(e.order, sampleID)
}

// excluded возвращает выбывшие образцы в порядке выбытия.
func (e *Engine) excluded() []domain.ExcludedSample {
	out := make([]domain.ExcludedSample, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.failedAt[id])
	}
	return out
}

// survivors возвращает образцы, не выбывшие к текущему моменту,
// в порядке каталога метаданных.
func (e *Engine) survivors() []domain.SampleRecord {
	out := make([]domain.SampleRecord, 0, len(e.cfg.Samples))
	for _, s := range e.cfg.Samples {
		if _, dead := e.failedAt[s.SampleID]; !dead {
			out = append(out, s)
		}
	}
	return out
}

func (e *Engine) threads() int {
	if e.cfg.Pipeline == nil || e.cfg.Pipeline.Threads < 1 {
		return 1
	}
	return e.cfg.Pipeline.Threads
}

func (e *Engine) outputDir() string {
	if e.cfg.Layout == nil {
		return ""
	}
	return e.cfg.Layout.Root()
}

// cachedOutputsOK сообщает, существуют ли и непусты все ожидаемые
// выходы плана. Пустой список выходов кэшем не считается.
func cachedOutputsOK(paths []string) bool {
	if len(paths) == 0 {
		return false
	}
	for _, p := range paths {
		if !layout.NonEmpty(p) {
			return false
		}
	}
	return true
}
