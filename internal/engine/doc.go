// Package engine — движок оркестрации пайплайна.
//
// Движок выполняет статическую цепочку этапов (с опциональными ветками
// после построения таблицы): per-sample этапы разворачиваются в задачи
// по образцам и выполняются ограниченным пулом воркеров, глобальные
// этапы выполняются строго последовательно на горутине движка после
// синхронизационного барьера.
//
// Политика отказов: отказ образца "мягкий" — его дальнейшие per-sample
// задачи пропускаются, соседние образцы продолжаются; на барьере перед
// глобальным этапом требуется хотя бы один выживший образец, иначе
// запуск прерывается. Частичное выживание даёт статус PARTIAL_SUCCESS
// с явным перечнем исключённых образцов.
//
// Включает:
//   - graph.go  — валидация набора этапов и порядка зависимостей
//   - stages.go — таблица этапов пайплайна и построение команд
//   - engine.go — fan-out/fan-in исполнение
package engine
