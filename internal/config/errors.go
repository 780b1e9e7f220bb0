package config

import (
	"errors"
	"fmt"
)

// Ошибки сбора конфигурации. Фатальны до начала выполнения этапов.
var (
	// ErrInvalidChoice — ответ не входит в список допустимых вариантов.
	ErrInvalidChoice = errors.New("answer is not one of the allowed choices")

	// ErrInvalidValue — значение не прошло валидацию (не число, вне диапазона).
	ErrInvalidValue = errors.New("invalid answer value")

	// ErrMissingDatabase — выбранный метод требует путь к базе данных,
	// а путь не указан или файл не существует.
	ErrMissingDatabase = errors.New("reference database path is missing")

	// ErrMissingAnswer — в файле ответов нет ответа на заданный вопрос.
	ErrMissingAnswer = errors.New("no answer for question")

	// ErrAborted — пользователь прервал интерактивный ввод.
	ErrAborted = errors.New("configuration aborted by user")
)

// Error — ошибка конфигурации с ключом вопроса и полученным ответом.
type Error struct {
	// Question — ключ вопроса ("length_policy", "chimera_db", ...).
	Question string

	// Answer — полученный ответ.
	Answer string

	// Message — описание ошибки.
	Message string

	// Err — базовая ошибка.
	Err error
}

// Error реализует интерфейс error.
func (e *Error) Error() string {
	if e.Answer != "" {
		return fmt.Sprintf("config %s: %s (got %q)", e.Question, e.Message, e.Answer)
	}
	return fmt.Sprintf("config %s: %s", e.Question, e.Message)
}

// Unwrap возвращает базовую ошибку.
func (e *Error) Unwrap() error {
	return e.Err
}

// newError создаёт новую ошибку конфигурации.
func newError(question, answer, message string, err error) *Error {
	return &Error{Question: question, Answer: answer, Message: message, Err: err}
}
