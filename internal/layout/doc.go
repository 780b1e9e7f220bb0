// Package layout вычисляет детерминированные пути артефактов.
//
// Под корнем выходного каталога создаётся по подкаталогу на этап,
// нумерованному в порядке пайплайна (1-demultiplex ... 8-taxonomy).
// Per-sample файлы именуются по sample_id с суффиксом этапа, глобальные
// артефакты имеют фиксированные имена. Конкурентные per-sample задачи
// никогда не пишут в один и тот же путь.
package layout
