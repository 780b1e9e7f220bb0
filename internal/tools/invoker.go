package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/shaiso/ampliflow/internal/domain"
	"github.com/shaiso/ampliflow/internal/layout"
	"github.com/shaiso/ampliflow/internal/runlog"
	"github.com/shaiso/ampliflow/internal/telemetry"
)

// Invoker синхронно выполняет план задачи: команды по порядку,
// журналирование каждого вызова, проверка постусловия.
type Invoker struct {
	log     *runlog.RunLog
	metrics *telemetry.Metrics
}

// NewInvoker создаёт Invoker. metrics может быть nil.
func NewInvoker(log *runlog.RunLog, metrics *telemetry.Metrics) *Invoker {
	return &Invoker{log: log, metrics: metrics}
}

// Run выполняет план и возвращает результат задачи.
//
// Семантика:
//   - код выхода != 0 → FAILED с ExternalToolError (код, выдержка stderr)
//   - код 0, но ожидаемый выход отсутствует/пуст → FAILED с EmptyOutputError
//   - иначе SUCCEEDED; временные файлы плана удаляются
//
// Выполняющийся процесс не убивается по отмене контекста: прерванный
// на середине инструмент оставляет частичный/битый выходной файл.
// Отмена проверяется только между командами.
func (inv *Invoker) Run(ctx context.Context, stage, sampleID string, plan domain.Invocation) domain.TaskResult {
	start := time.Now()
	res := domain.TaskResult{
		Stage:       stage,
		SampleID:    sampleID,
		OutputPaths: plan.ExpectedOutputs,
	}

	// Хвост прежней неудачной попытки удаляется до первого запуска:
	// команды с StdoutFile дописывают, и уцелевший временный файл
	// удвоил бы их вывод при повторе задачи.
	for _, tmp := range plan.Cleanup {
		_ = os.Remove(tmp)
	}

	for _, cmd := range plan.Commands {
		if err := ctx.Err(); err != nil {
			res.Status = domain.TaskStatusFailed
			res.Err = fmt.Errorf("%s: not started: %w", cmd.Program, err)
			res.Duration = time.Since(start)
			return res
		}

		if err := inv.execute(stage, sampleID, cmd); err != nil {
			res.Status = domain.TaskStatusFailed
			res.Err = err
			res.Duration = time.Since(start)
			return res
		}
	}

	for _, path := range plan.ExpectedOutputs {
		if !layout.NonEmpty(path) {
			res.Status = domain.TaskStatusFailed
			res.Err = &EmptyOutputError{Stage: stage, SampleID: sampleID, Path: path}
			res.Duration = time.Since(start)
			return res
		}
	}

	for _, tmp := range plan.Cleanup {
		_ = os.Remove(tmp)
	}

	res.Status = domain.TaskStatusSucceeded
	res.Duration = time.Since(start)
	return res
}

// execute запускает одну команду и журналирует её вывод.
func (inv *Invoker) execute(stage, sampleID string, cmd domain.Command) error {
	c := exec.Command(cmd.Program, cmd.Args...)

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	// Команды вида seqkit пишут результат в stdout
	var outFile *os.File
	if cmd.StdoutFile != "" {
		f, err := os.OpenFile(cmd.StdoutFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open stdout file %s: %w", cmd.StdoutFile, err)
		}
		outFile = f
		c.Stdout = f
	}

	if inv.metrics != nil {
		inv.metrics.RunningProcesses.Inc()
	}
	start := time.Now()
	err := c.Run()
	dur := time.Since(start)
	if inv.metrics != nil {
		inv.metrics.RunningProcesses.Dec()
	}
	if outFile != nil {
		outFile.Close()
	}

	exitCode := 0
	outcome := "success"
	if err != nil {
		exitCode = -1
		if ee, ok := err.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		}
		outcome = "failure"
	}

	inv.log.Invocation(stage, sampleID, cmd.Line(), exitCode, dur, stderr.String())
	inv.log.ToolOutput(stage, sampleID, "stdout", stdout.Bytes())
	inv.log.ToolOutput(stage, sampleID, "stderr", stderr.Bytes())
	if inv.metrics != nil {
		inv.metrics.InvocationsTotal.WithLabelValues(cmd.Program, outcome).Inc()
	}

	if err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			// Процесс не стартовал (нет бинаря, нет прав)
			return fmt.Errorf("start %s: %w", cmd.Program, err)
		}
		return &ExternalToolError{
			Stage:    stage,
			SampleID: sampleID,
			Program:  cmd.Program,
			ExitCode: exitCode,
			Stderr:   runlog.Truncate(stderr.String(), 512),
		}
	}
	return nil
}
