package config

// LengthPolicyKind — вид политики длины ампликона на этапе качества.
type LengthPolicyKind string

const (
	// LengthRange — длина в диапазоне [Min, Max].
	LengthRange LengthPolicyKind = "range"

	// LengthFixed — одно или несколько точных значений длины.
	LengthFixed LengthPolicyKind = "fixed"
)

// LengthPolicy — политика длины целевых последовательностей.
type LengthPolicy struct {
	Kind LengthPolicyKind

	// Min, Max — границы диапазона при Kind == LengthRange.
	Min, Max int

	// Values — точные значения длины при Kind == LengthFixed.
	Values []int
}

// ClusterStrategy — стратегия кластеризации.
type ClusterStrategy string

const (
	// ClusterOTU — кластеризация по порогу сходства (OTU, UPARSE-стиль).
	ClusterOTU ClusterStrategy = "otu"

	// ClusterASV — денойзинг до точных вариантов (ASV, UNOISE3).
	ClusterASV ClusterStrategy = "asv"
)

// ChimeraMethod — метод детекции химер.
type ChimeraMethod string

const (
	// ChimeraDeNovo — de novo детекция по самим данным.
	ChimeraDeNovo ChimeraMethod = "denovo"

	// ChimeraReference — детекция по референсной базе (требует Database).
	ChimeraReference ChimeraMethod = "reference"
)

// AbundanceFilter — параметры фильтрации низкой численности.
type AbundanceFilter struct {
	Enabled bool

	// MinCount — минимальное абсолютное значение счётчика; меньшие
	// обнуляются.
	MinCount int

	// MinFreq — минимальная доля счётчика от суммы колонки образца.
	MinFreq float64
}

// PipelineConfig — все параметры одного запуска пайплайна.
//
// Собирается один раз через Collect и дальше не изменяется;
// каждый этап только читает её.
type PipelineConfig struct {
	// Length — политика длины ампликона.
	Length LengthPolicy

	// Cluster — стратегия кластеризации (OTU или ASV).
	Cluster ClusterStrategy

	// Chimera — метод детекции химер.
	Chimera ChimeraMethod

	// ChimeraDB — путь к референсной базе при Chimera == ChimeraReference.
	ChimeraDB string

	// Taxonomy — выполнять ли SINTAX классификацию.
	Taxonomy bool

	// TaxonomyDB — путь к базе для классификации при Taxonomy.
	TaxonomyDB string

	// SecondCluster — выполнять ли повторную кластеризацию
	// переименованных представительных последовательностей.
	SecondCluster bool

	// SecondClusterID — порог сходства повторной кластеризации (0..1].
	SecondClusterID float64

	// Rarefaction — строить ли кривую разрежения.
	Rarefaction bool

	// Abundance — фильтрация низкой численности.
	Abundance AbundanceFilter

	// Threads — размер пула воркеров и бюджет потоков инструментов.
	Threads int
}
