// Package config собирает конфигурацию запуска пайплайна.
//
// Все выборы (политика длины, стратегия кластеризации, метод детекции
// химер, таксономия, опциональные ветки) запрашиваются один раз через
// интерфейс AnswerSource и фиксируются в неизменяемом PipelineConfig.
//
// Источники ответов:
//   - TerminalSource — интерактивные подсказки в терминале
//   - ScriptedSource — YAML файл ответов для неинтерактивных запусков и тестов
package config
