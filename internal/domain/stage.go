package domain

import (
	"context"
	"strings"
)

// StageScope — область действия этапа.
type StageScope string

const (
	// ScopePerSample — этап выполняется отдельно для каждого образца
	// и разворачивается в пул воркеров.
	ScopePerSample StageScope = "PER_SAMPLE"

	// ScopeGlobal — этап выполняется один раз для всего запуска,
	// строго после барьера по всем задачам этапа-зависимости.
	ScopeGlobal StageScope = "GLOBAL"
)

// Command — внешняя команда как чистые данные: программа и аргументы,
// отделённые от факта выполнения. Построение команды тестируется
// независимо от запуска процессов.
type Command struct {
	// Program — путь к исполняемому файлу.
	Program string

	// Args — аргументы команды.
	Args []string

	// StdoutFile — если не пуст, stdout процесса дописывается в этот файл
	// (seqkit пишет отобранные последовательности в stdout).
	StdoutFile string
}

// Line возвращает командную строку для логирования.
func (c Command) Line() string {
	parts := append([]string{c.Program}, c.Args...)
	line := strings.Join(parts, " ")
	if c.StdoutFile != "" {
		line += " >> " + c.StdoutFile
	}
	return line
}

// Invocation — план одного запуска инструмента(ов) для задачи:
// команды в порядке выполнения, ожидаемые выходные файлы
// и временные файлы, удаляемые после успеха.
type Invocation struct {
	// Commands — команды, выполняемые последовательно.
	Commands []Command

	// ExpectedOutputs — файлы, которые обязаны существовать и быть
	// непустыми после успешного завершения (постусловие invoker'а
	// и предусловие resume-режима).
	ExpectedOutputs []string

	// Cleanup — временные файлы, удаляемые после успешного выполнения.
	Cleanup []string
}

// Stage — один этап пайплайна.
//
// Этапы образуют DAG (для этого пайплайна — цепочку с опциональными
// ветками после построения таблицы). Per-sample этапы строят Invocation
// для конкретного образца, глобальные — один Invocation на запуск.
type Stage struct {
	// Name — имя этапа ("demultiplex", "cluster", ...).
	Name string

	// Scope — per-sample или глобальный.
	Scope StageScope

	// DependsOn — имена этапов, которые должны завершиться раньше.
	DependsOn []string

	// Build строит план выполнения. Для per-sample этапов sample != nil,
	// для глобальных sample == nil. Nil для чисто нативных этапов.
	Build func(sample *SampleRecord) (Invocation, error)

	// Prepare — опциональный шаг агрегации перед глобальным этапом:
	// чистая функция от списка выживших образцов (например, конкатенация
	// их дереплицированных последовательностей).
	Prepare func(survivors []SampleRecord) error

	// Native — опциональное нативное действие вместо внешнего инструмента
	// (фильтрация таблицы по низкой численности делается в процессе,
	// как и в исходной реализации).
	Native func(ctx context.Context) error
}
