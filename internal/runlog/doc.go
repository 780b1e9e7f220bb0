// Package runlog ведёт журнал запуска пайплайна.
//
// Журнал — единственный разделяемый ресурс, в который конкурентно пишут
// задачи пула воркеров: append-only поток структурированных записей
// (JSON, log/slog) в файле у корня выходного каталога. Записи одного
// образца сохраняют порядок; порядок между образцами не гарантируется.
//
// Журнал — единственный источник правды при разборе упавшего запуска:
// каждый переход этапа/задачи и каждый вызов внешнего инструмента
// (командная строка, код выхода, продолжительность, stderr) попадают сюда.
package runlog
