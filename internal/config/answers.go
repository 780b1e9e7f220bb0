package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AnswerSource — источник ответов на вопросы конфигурации.
//
// Единый контракт для терминала, файла ответов и тестов: логика сбора
// конфигурации не знает, откуда берутся ответы.
type AnswerSource interface {
	// AskChoice задаёт вопрос с фиксированным списком вариантов
	// и возвращает индекс выбранного варианта.
	AskChoice(key, prompt string, options []string) (int, error)

	// AskValue задаёт вопрос со свободным значением; validate
	// возвращает ошибку для недопустимого ответа.
	AskValue(key, prompt string, validate func(string) error) (string, error)
}

// TerminalSource читает ответы из терминала, повторяя вопрос
// до допустимого ответа. Ввод "exit" прерывает настройку.
type TerminalSource struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewTerminalSource создаёт TerminalSource поверх reader/writer
// (обычно os.Stdin и os.Stderr).
func NewTerminalSource(in io.Reader, out io.Writer) *TerminalSource {
	if out == nil {
		out = os.Stderr
	}
	return &TerminalSource{in: bufio.NewScanner(in), out: out}
}

// AskChoice реализует AnswerSource.
func (s *TerminalSource) AskChoice(key, prompt string, options []string) (int, error) {
	for {
		fmt.Fprintf(s.out, "%s\n", prompt)
		for i, opt := range options {
			fmt.Fprintf(s.out, "  %d. %s\n", i+1, opt)
		}
		fmt.Fprint(s.out, "> ")

		answer, err := s.read()
		if err != nil {
			return 0, err
		}

		// Принимаем и номер варианта, и его имя
		for i, opt := range options {
			if answer == fmt.Sprint(i+1) || strings.EqualFold(answer, opt) {
				return i, nil
			}
		}
		fmt.Fprintf(s.out, "invalid choice %q, try again\n", answer)
	}
}

// AskValue реализует AnswerSource.
func (s *TerminalSource) AskValue(key, prompt string, validate func(string) error) (string, error) {
	for {
		fmt.Fprintf(s.out, "%s\n> ", prompt)

		answer, err := s.read()
		if err != nil {
			return "", err
		}
		if validate == nil {
			return answer, nil
		}
		if err := validate(answer); err != nil {
			fmt.Fprintf(s.out, "%v, try again\n", err)
			continue
		}
		return answer, nil
	}
}

// read читает одну строку ввода; "exit" прерывает настройку.
func (s *TerminalSource) read() (string, error) {
	if !s.in.Scan() {
		return "", newError("input", "", "input closed", ErrAborted)
	}
	answer := strings.TrimSpace(s.in.Text())
	if strings.EqualFold(answer, "exit") {
		return "", newError("input", answer, "user aborted", ErrAborted)
	}
	return answer, nil
}

// ScriptedSource отвечает на вопросы по ключам из YAML файла ответов.
//
// Пример файла:
//
//	length_policy: range
//	min_length: 200
//	max_length: 400
//	cluster_strategy: otu
//	chimera_method: denovo
//	taxonomy: "no"
//
// Недопустимый или отсутствующий ответ — сразу ошибка конфигурации,
// без повторных запросов.
type ScriptedSource struct {
	answers map[string]string
}

// NewScriptedSource создаёт источник из готовой карты ответов
// (используется тестами).
func NewScriptedSource(answers map[string]string) *ScriptedSource {
	return &ScriptedSource{answers: answers}
}

// LoadAnswers читает YAML файл ответов.
func LoadAnswers(path string) (*ScriptedSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newError("answers", path, fmt.Sprintf("read answers file: %v", err), err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, newError("answers", path, fmt.Sprintf("parse answers file: %v", err), err)
	}

	answers := make(map[string]string, len(raw))
	for k, v := range raw {
		answers[k] = strings.TrimSpace(fmt.Sprint(v))
	}
	return &ScriptedSource{answers: answers}, nil
}

// AskChoice реализует AnswerSource.
func (s *ScriptedSource) AskChoice(key, prompt string, options []string) (int, error) {
	answer, ok := s.answers[key]
	if !ok {
		return 0, newError(key, "", "answer not provided", ErrMissingAnswer)
	}
	for i, opt := range options {
		if answer == fmt.Sprint(i+1) || strings.EqualFold(answer, opt) {
			return i, nil
		}
	}
	return 0, newError(key, answer,
		fmt.Sprintf("must be one of %s", strings.Join(options, ", ")), ErrInvalidChoice)
}

// AskValue реализует AnswerSource.
func (s *ScriptedSource) AskValue(key, prompt string, validate func(string) error) (string, error) {
	answer, ok := s.answers[key]
	if !ok {
		return "", newError(key, "", "answer not provided", ErrMissingAnswer)
	}
	if validate != nil {
		// Ошибка валидатора сохраняется как базовая: errors.Is видит
		// и ErrInvalidValue, и ErrMissingDatabase.
		if err := validate(answer); err != nil {
			return "", newError(key, answer, err.Error(), err)
		}
	}
	return answer, nil
}
