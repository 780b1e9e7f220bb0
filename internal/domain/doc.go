// Package domain содержит основные типы данных пайплайна:
// SampleRecord, Stage, Command, TaskResult и статусы.
//
// Пакет не зависит от других пакетов проекта — все компоненты
// (metadata, engine, tools, repo) строятся поверх этих типов.
package domain
