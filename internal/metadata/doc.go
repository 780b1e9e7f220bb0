// Package metadata загружает и валидирует таблицу run/sample.
//
// Формат файла: TSV без заголовка, ровно шесть колонок в фиксированном
// порядке: run_id, sample_id, forward_primer, reverse_primer,
// forward_file, reverse_file. Пути к файлам разрешаются относительно
// входного каталога.
package metadata
