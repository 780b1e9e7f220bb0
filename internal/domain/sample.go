package domain

// SampleRecord — одна строка таблицы метаданных: пара run/sample
// с праймерами и исходными парными FASTQ файлами.
//
// SampleID уникален во всей таблице (включая разные runs), потому что
// все промежуточные артефакты именуются только по SampleID.
// Запись создаётся при загрузке метаданных и дальше не изменяется.
type SampleRecord struct {
	// RunID — идентификатор секвенирующего запуска.
	RunID string

	// SampleID — уникальный идентификатор образца.
	SampleID string

	// ForwardPrimer — прямой праймер/баркод (5'-якорь для демультиплексации).
	ForwardPrimer string

	// ReversePrimer — обратный праймер/баркод.
	ReversePrimer string

	// ForwardFile — абсолютный путь к прямому FASTQ файлу.
	ForwardFile string

	// ReverseFile — абсолютный путь к обратному FASTQ файлу.
	ReverseFile string
}
