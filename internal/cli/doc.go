// Package cli реализует командный интерфейс ampliflow.
//
// # Обзор
//
// CLI — единственная точка входа в пайплайн. В отличие от клиентских
// утилит, команды работают локально: run собирает все зависимости
// (каталог метаданных, конфигурацию, движок, историю) и выполняет
// пайплайн в текущем процессе.
//
// # Команды
//
//   - run: полный запуск пайплайна от метаданных до итоговых таблиц
//   - runs list: прошлые запуски из базы истории выходного каталога
//   - runs show: задачи одного запуска
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения — в stderr.
package cli
