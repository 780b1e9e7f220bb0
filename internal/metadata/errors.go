package metadata

import (
	"errors"
	"fmt"
)

// Ошибки загрузки метаданных. Любая из них фатальна:
// пайплайн не стартует с неполной таблицей образцов.
var (
	// ErrColumnCount — строка содержит не шесть колонок.
	ErrColumnCount = errors.New("metadata row does not have six columns")

	// ErrDuplicateSampleID — sample_id встречается более одного раза.
	ErrDuplicateSampleID = errors.New("duplicate sample_id")

	// ErrMissingFile — указанный FASTQ файл не найден во входном каталоге.
	ErrMissingFile = errors.New("referenced sequence file not found")

	// ErrEmptyField — обязательная колонка пуста.
	ErrEmptyField = errors.New("empty metadata field")

	// ErrNoSamples — таблица не содержит ни одной строки.
	ErrNoSamples = errors.New("metadata table has no rows")
)

// Error — ошибка метаданных с номером строки.
type Error struct {
	// Line — номер строки в файле (с 1). 0, если ошибка не привязана к строке.
	Line int

	// Message — описание ошибки.
	Message string

	// Err — базовая ошибка.
	Err error
}

// Error реализует интерфейс error.
func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("metadata line %d: %s", e.Line, e.Message)
	}
	return "metadata: " + e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *Error) Unwrap() error {
	return e.Err
}

// newError создаёт новую ошибку метаданных.
func newError(line int, message string, err error) *Error {
	return &Error{Line: line, Message: message, Err: err}
}
