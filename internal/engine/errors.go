package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shaiso/ampliflow/internal/domain"
)

// Ошибки валидации набора этапов.
var (
	// ErrNoStages — пайплайн не содержит этапов.
	ErrNoStages = errors.New("pipeline has no stages")

	// ErrEmptyStageName — этап без имени.
	ErrEmptyStageName = errors.New("stage has empty name")

	// ErrDuplicateStageName — несколько этапов с одинаковым именем.
	ErrDuplicateStageName = errors.New("duplicate stage name")

	// ErrUnknownDependency — этап зависит от несуществующего этапа.
	ErrUnknownDependency = errors.New("stage depends on unknown stage")

	// ErrDependencyOrder — этап объявлен раньше своей зависимости.
	ErrDependencyOrder = errors.New("stage declared before its dependency")

	// ErrNoAction — этап не определяет ни команд, ни нативного действия.
	ErrNoAction = errors.New("stage has no action")
)

// ErrAborted — запуск прерван без пригодного результата.
var ErrAborted = errors.New("pipeline aborted")

// PipelineAbortedError — барьер достигнут без единого выжившего образца.
type PipelineAbortedError struct {
	// Stage — глобальный этап, который не удалось начать.
	Stage string

	// Excluded — все выбывшие образцы с этапами отказа.
	Excluded []domain.ExcludedSample
}

// Error реализует интерфейс error.
func (e *PipelineAbortedError) Error() string {
	ids := make([]string, 0, len(e.Excluded))
	for _, s := range e.Excluded {
		ids = append(ids, s.SampleID)
	}
	return fmt.Sprintf("stage %s: no surviving samples (failed: %s)",
		e.Stage, strings.Join(ids, ", "))
}

// Unwrap возвращает ErrAborted.
func (e *PipelineAbortedError) Unwrap() error {
	return ErrAborted
}
