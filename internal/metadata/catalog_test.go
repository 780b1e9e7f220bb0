package metadata

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeFixture создаёт входной каталог с FASTQ файлами и файл метаданных.
func writeFixture(t *testing.T, rows []string, fastqFiles []string) (metaPath, inputDir string) {
	t.Helper()

	inputDir = t.TempDir()
	for _, name := range fastqFiles {
		if err := os.WriteFile(filepath.Join(inputDir, name), []byte("@r1\nACGT\n+\nIIII\n"), 0o644); err != nil {
			t.Fatalf("write fastq: %v", err)
		}
	}

	metaPath = filepath.Join(t.TempDir(), "metadata.tsv")
	if err := os.WriteFile(metaPath, []byte(strings.Join(rows, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write metadata: %v", err)
	}
	return metaPath, inputDir
}

func TestLoad_Valid(t *testing.T) {
	meta, inputDir := writeFixture(t,
		[]string{
			"run1\tSampleA\tACGTACGT\tTGCATGCA\ta_R1.fastq\ta_R2.fastq",
			"run1\tSampleB\tACGTACGT\tTGCATGCA\tb_R1.fastq\tb_R2.fastq",
		},
		[]string{"a_R1.fastq", "a_R2.fastq", "b_R1.fastq", "b_R2.fastq"},
	)

	samples, err := Load(meta, inputDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}

	// Порядок строк файла сохраняется
	if samples[0].SampleID != "SampleA" || samples[1].SampleID != "SampleB" {
		t.Errorf("unexpected order: %s, %s", samples[0].SampleID, samples[1].SampleID)
	}

	// Пути разрешаются относительно входного каталога
	if samples[0].ForwardFile != filepath.Join(inputDir, "a_R1.fastq") {
		t.Errorf("unexpected forward file: %s", samples[0].ForwardFile)
	}
	if samples[0].RunID != "run1" || samples[0].ForwardPrimer != "ACGTACGT" {
		t.Errorf("unexpected record fields: %+v", samples[0])
	}
}

func TestLoad_WrongColumnCount(t *testing.T) {
	// Пять колонок вместо шести
	meta, inputDir := writeFixture(t,
		[]string{"run1\tSampleA\tACGT\tTGCA\ta_R1.fastq"},
		[]string{"a_R1.fastq"},
	)

	_, err := Load(meta, inputDir)
	if !errors.Is(err, ErrColumnCount) {
		t.Fatalf("expected ErrColumnCount, got %v", err)
	}

	var merr *Error
	if !errors.As(err, &merr) {
		t.Fatalf("expected *metadata.Error, got %T", err)
	}
	if merr.Line != 1 {
		t.Errorf("expected line 1, got %d", merr.Line)
	}
}

func TestLoad_DuplicateSampleID(t *testing.T) {
	// Дубликат sample_id в разных runs — тоже ошибка:
	// артефакты именуются только по sample_id.
	meta, inputDir := writeFixture(t,
		[]string{
			"run1\tSampleA\tACGT\tTGCA\ta_R1.fastq\ta_R2.fastq",
			"run2\tSampleA\tACGT\tTGCA\tb_R1.fastq\tb_R2.fastq",
		},
		[]string{"a_R1.fastq", "a_R2.fastq", "b_R1.fastq", "b_R2.fastq"},
	)

	_, err := Load(meta, inputDir)
	if !errors.Is(err, ErrDuplicateSampleID) {
		t.Fatalf("expected ErrDuplicateSampleID, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	meta, inputDir := writeFixture(t,
		[]string{"run1\tSampleA\tACGT\tTGCA\ta_R1.fastq\tmissing_R2.fastq"},
		[]string{"a_R1.fastq"},
	)

	_, err := Load(meta, inputDir)
	if !errors.Is(err, ErrMissingFile) {
		t.Fatalf("expected ErrMissingFile, got %v", err)
	}
}

func TestLoad_EmptyTable(t *testing.T) {
	meta := filepath.Join(t.TempDir(), "metadata.tsv")
	if err := os.WriteFile(meta, nil, 0o644); err != nil {
		t.Fatalf("write metadata: %v", err)
	}

	_, err := Load(meta, t.TempDir())
	if !errors.Is(err, ErrNoSamples) {
		t.Fatalf("expected ErrNoSamples, got %v", err)
	}
}
