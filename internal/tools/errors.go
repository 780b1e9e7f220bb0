package tools

import (
	"errors"
	"fmt"
)

// Ошибки выполнения внешних инструментов.
var (
	// ErrToolNotFound — инструмент не найден ни в PATH, ни в --tool-dir.
	ErrToolNotFound = errors.New("external tool not found")

	// ErrNonZeroExit — инструмент завершился с ненулевым кодом.
	ErrNonZeroExit = errors.New("external tool exited with non-zero status")

	// ErrEmptyOutput — инструмент завершился успешно, но ожидаемый
	// выходной файл отсутствует или пуст.
	ErrEmptyOutput = errors.New("expected output is missing or empty")
)

// ExternalToolError — ненулевой код выхода внешнего инструмента.
//
// Для per-sample этапов ошибка ограничена образцом, для глобальных —
// фатальна для запуска; эту политику применяет движок, не invoker.
type ExternalToolError struct {
	// Stage — имя этапа.
	Stage string

	// SampleID — образец; пуст для глобальных этапов.
	SampleID string

	// Program — запущенная программа.
	Program string

	// ExitCode — код выхода процесса.
	ExitCode int

	// Stderr — выдержка из stderr для диагностики.
	Stderr string
}

// Error реализует интерфейс error.
func (e *ExternalToolError) Error() string {
	who := e.Stage
	if e.SampleID != "" {
		who = e.Stage + "/" + e.SampleID
	}
	return fmt.Sprintf("%s: %s exited with code %d: %s", who, e.Program, e.ExitCode, e.Stderr)
}

// Unwrap возвращает ErrNonZeroExit.
func (e *ExternalToolError) Unwrap() error {
	return ErrNonZeroExit
}

// EmptyOutputError — нулевой код выхода без пригодного результата.
type EmptyOutputError struct {
	// Stage — имя этапа.
	Stage string

	// SampleID — образец; пуст для глобальных этапов.
	SampleID string

	// Path — отсутствующий или пустой выходной файл.
	Path string
}

// Error реализует интерфейс error.
func (e *EmptyOutputError) Error() string {
	who := e.Stage
	if e.SampleID != "" {
		who = e.Stage + "/" + e.SampleID
	}
	return fmt.Sprintf("%s: output %s is missing or empty", who, e.Path)
}

// Unwrap возвращает ErrEmptyOutput.
func (e *EmptyOutputError) Unwrap() error {
	return ErrEmptyOutput
}
