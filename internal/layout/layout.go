package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Имена подкаталогов этапов в порядке пайплайна.
const (
	DirDemultiplex = "1-demultiplex"
	DirMerge       = "2-merge"
	DirQuality     = "3-quality"
	DirDereplicate = "4-dereplicate"
	DirCluster     = "5-cluster"
	DirChimera     = "6-chimera"
	DirOTU         = "7-otu"
	DirTaxonomy    = "8-taxonomy"
)

// Имена файлов в корне выходного каталога.
const (
	RunLogName  = "ampliflow.log"
	HistoryName = "ampliflow.db"
	MetricsName = "metrics.prom"
)

// ArtifactLayout вычисляет пути артефактов под корнем выходного каталога.
//
// Путь — чистая функция от (этап, образец, роль, корень); подкаталог этапа
// создаётся при первом обращении, повторное создание — no-op.
type ArtifactLayout struct {
	root string

	mu      sync.Mutex
	created map[string]struct{}
}

// New создаёт ArtifactLayout с корнем root. Сам корень создаётся сразу.
func New(root string) (*ArtifactLayout, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create output root %s: %w", root, err)
	}
	return &ArtifactLayout{
		root:    root,
		created: make(map[string]struct{}),
	}, nil
}

// Root возвращает корень выходного каталога.
func (l *ArtifactLayout) Root() string {
	return l.root
}

// path возвращает путь файла в подкаталоге этапа, создавая подкаталог
// при первом обращении.
func (l *ArtifactLayout) path(dir, name string) string {
	full := filepath.Join(l.root, dir)

	l.mu.Lock()
	if _, ok := l.created[dir]; !ok {
		// Ошибка mkdir проявится при первой записи в каталог;
		// здесь достаточно идемпотентности.
		_ = os.MkdirAll(full, 0o755)
		l.created[dir] = struct{}{}
	}
	l.mu.Unlock()

	return filepath.Join(full, name)
}

// Per-sample артефакты.

// DemuxForward — прямой FASTQ после демультиплексации.
func (l *ArtifactLayout) DemuxForward(sampleID string) string {
	return l.path(DirDemultiplex, sampleID+".R1.fastq")
}

// DemuxReverse — обратный FASTQ после демультиплексации.
func (l *ArtifactLayout) DemuxReverse(sampleID string) string {
	return l.path(DirDemultiplex, sampleID+".R2.fastq")
}

// Merged — объединённый FASTQ пары.
func (l *ArtifactLayout) Merged(sampleID string) string {
	return l.path(DirMerge, sampleID+".merged.fastq")
}

// Filtered — FASTA после фильтрации качества.
func (l *ArtifactLayout) Filtered(sampleID string) string {
	return l.path(DirQuality, sampleID+".filtered.fasta")
}

// LengthTemp — временный FASTQ при отборе фиксированных длин.
func (l *ArtifactLayout) LengthTemp(sampleID string) string {
	return l.path(DirQuality, sampleID+".temp.fastq")
}

// Dereplicated — дереплицированный FASTA образца.
func (l *ArtifactLayout) Dereplicated(sampleID string) string {
	return l.path(DirDereplicate, sampleID+".derep.fasta")
}

// Глобальные артефакты.

// Combined — конкатенация дереплицированных последовательностей
// всех выживших образцов.
func (l *ArtifactLayout) Combined() string {
	return l.path(DirDereplicate, "combined-sequences.fasta")
}

// Representatives — представительные последовательности кластеров.
func (l *ArtifactLayout) Representatives() string {
	return l.path(DirCluster, "cluster-representatives.fasta")
}

// ChimeraFiltered — представительные последовательности без химер.
func (l *ArtifactLayout) ChimeraFiltered() string {
	return l.path(DirChimera, "chimera-filtered-representatives.fasta")
}

// AbundanceTable — итоговая таблица численности.
func (l *ArtifactLayout) AbundanceTable() string {
	return l.path(DirOTU, "abundance-table.tsv")
}

// TaxonomyTable — таблица SINTAX классификации.
func (l *ArtifactLayout) TaxonomyTable() string {
	return l.path(DirTaxonomy, "taxonomy-table.tsv")
}

// Артефакты опциональных веток (живут рядом с таблицей численности).

// Relabeled — представительные последовательности с префиксом OTU_.
func (l *ArtifactLayout) Relabeled() string {
	return l.path(DirOTU, "relabeled-representatives.fasta")
}

// ReclusteredRepresentatives — центроиды повторной кластеризации.
func (l *ArtifactLayout) ReclusteredRepresentatives() string {
	return l.path(DirOTU, "cluster-representatives.reclustered.fasta")
}

// ReclusteredTable — таблица численности после повторной кластеризации.
func (l *ArtifactLayout) ReclusteredTable() string {
	return l.path(DirOTU, "abundance-table.reclustered.tsv")
}

// RarefactionTable — таблица данных кривой разрежения.
func (l *ArtifactLayout) RarefactionTable() string {
	return l.path(DirOTU, "rarefaction-table.tsv")
}

// FilteredTable — таблица после фильтрации низкой численности.
func (l *ArtifactLayout) FilteredTable() string {
	return l.path(DirOTU, "abundance-table.filtered.tsv")
}

// FilteredRepresentatives — последовательности, сохранившие сигнал
// после фильтрации.
func (l *ArtifactLayout) FilteredRepresentatives() string {
	return l.path(DirOTU, "filtered-representatives.fasta")
}

// ExcludedList — идентификаторы представителей, обнулённых фильтром.
func (l *ArtifactLayout) ExcludedList() string {
	return l.path(DirOTU, "excluded-representatives.txt")
}

// Файлы в корне выходного каталога.

// RunLogPath — путь журнала запуска.
func (l *ArtifactLayout) RunLogPath() string {
	return filepath.Join(l.root, RunLogName)
}

// HistoryPath — путь базы истории запусков.
func (l *ArtifactLayout) HistoryPath() string {
	return filepath.Join(l.root, HistoryName)
}

// MetricsPath — путь текстового файла метрик.
func (l *ArtifactLayout) MetricsPath() string {
	return filepath.Join(l.root, MetricsName)
}

// Exists возвращает true, если путь существует.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// NonEmpty возвращает true, если путь существует и файл непуст.
//
// Используется и постусловием invoker'а, и предусловием resume-режима.
func NonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}
