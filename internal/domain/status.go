package domain

// TaskStatus — статус выполнения одной задачи (stage × sample).
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED
//	PENDING → SKIPPED (предыдущий этап этого образца уже упал)
type TaskStatus string

const (
	// TaskStatusPending — задача создана, но ещё не начала выполняться.
	TaskStatusPending TaskStatus = "PENDING"

	// TaskStatusRunning — задача выполняется.
	TaskStatusRunning TaskStatus = "RUNNING"

	// TaskStatusSucceeded — задача завершилась успешно, выходные файлы на месте.
	TaskStatusSucceeded TaskStatus = "SUCCEEDED"

	// TaskStatusFailed — внешний инструмент вернул ошибку или не создал выход.
	TaskStatusFailed TaskStatus = "FAILED"

	// TaskStatusSkipped — задача не запускалась: образец уже выбыл
	// на более раннем этапе.
	TaskStatusSkipped TaskStatus = "SKIPPED"
)

// String возвращает строковое представление TaskStatus.
func (s TaskStatus) String() string {
	return string(s)
}

// IsTerminal возвращает true, если статус финальный.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusSucceeded, TaskStatusFailed, TaskStatusSkipped:
		return true
	default:
		return false
	}
}

// RunStatus — итоговый статус одного запуска пайплайна.
//
// Жизненный цикл:
//
//	RUNNING → SUCCEEDED        (все образцы дошли до конца)
//	        ↘ PARTIAL_SUCCESS  (часть образцов выбыла, таблица построена по остальным)
//	        ↘ ABORTED          (ни одного живого образца на барьере, либо фатальная ошибка)
type RunStatus string

const (
	// RunStatusRunning — пайплайн выполняется.
	RunStatusRunning RunStatus = "RUNNING"

	// RunStatusSucceeded — все образцы прошли все этапы.
	RunStatusSucceeded RunStatus = "SUCCEEDED"

	// RunStatusPartialSuccess — итоговая таблица построена только по части образцов.
	// Исключённые образцы перечислены явно: таблицу по подмножеству нельзя
	// молча выдать за таблицу по всем образцам.
	RunStatusPartialSuccess RunStatus = "PARTIAL_SUCCESS"

	// RunStatusAborted — запуск прерван, пригодного результата нет.
	RunStatusAborted RunStatus = "ABORTED"
)

// String возвращает строковое представление RunStatus.
func (s RunStatus) String() string {
	return string(s)
}

// IsTerminal возвращает true, если статус финальный.
func (s RunStatus) IsTerminal() bool {
	return s != RunStatusRunning
}

// ParseRunStatus парсит строку в RunStatus.
func ParseRunStatus(s string) RunStatus {
	switch s {
	case "SUCCEEDED":
		return RunStatusSucceeded
	case "PARTIAL_SUCCESS":
		return RunStatusPartialSuccess
	case "ABORTED":
		return RunStatusAborted
	default:
		return RunStatusRunning
	}
}

// ParseTaskStatus парсит строку в TaskStatus.
func ParseTaskStatus(s string) TaskStatus {
	switch s {
	case "RUNNING":
		return TaskStatusRunning
	case "SUCCEEDED":
		return TaskStatusSucceeded
	case "FAILED":
		return TaskStatusFailed
	case "SKIPPED":
		return TaskStatusSkipped
	default:
		return TaskStatusPending
	}
}
