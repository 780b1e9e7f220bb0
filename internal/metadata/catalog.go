package metadata

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shaiso/ampliflow/internal/domain"
)

// columnCount — число колонок таблицы метаданных.
const columnCount = 6

// Load читает таблицу метаданных и возвращает записи образцов
// в порядке строк файла.
//
// Проверки:
//   - ровно шесть непустых колонок в каждой строке
//   - sample_id уникален по всей таблице (включая разные runs)
//   - forward_file и reverse_file существуют в inputDir
//
// Побочных эффектов нет, кроме чтения файла и stat-проверок.
func Load(path, inputDir string) ([]domain.SampleRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newError(0, fmt.Sprintf("open %s: %v", path, err), err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	// Число колонок проверяем сами, чтобы дать номер строки в ошибке.
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, newError(0, fmt.Sprintf("parse %s: %v", path, err), err)
	}
	if len(rows) == 0 {
		return nil, newError(0, "no sample rows", ErrNoSamples)
	}

	seen := make(map[string]int, len(rows))
	samples := make([]domain.SampleRecord, 0, len(rows))

	for i, row := range rows {
		line := i + 1

		if len(row) != columnCount {
			return nil, newError(line,
				fmt.Sprintf("expected %d columns, got %d", columnCount, len(row)),
				ErrColumnCount)
		}
		for col, v := range row {
			if v == "" {
				return nil, newError(line,
					fmt.Sprintf("column %d is empty", col+1), ErrEmptyField)
			}
		}

		rec := domain.SampleRecord{
			RunID:         row[0],
			SampleID:      row[1],
			ForwardPrimer: row[2],
			ReversePrimer: row[3],
			ForwardFile:   filepath.Join(inputDir, row[4]),
			ReverseFile:   filepath.Join(inputDir, row[5]),
		}

		if prev, ok := seen[rec.SampleID]; ok {
			return nil, newError(line,
				fmt.Sprintf("sample_id %q already used at line %d", rec.SampleID, prev),
				ErrDuplicateSampleID)
		}
		seen[rec.SampleID] = line

		for _, p := range []string{rec.ForwardFile, rec.ReverseFile} {
			if err := probeFile(p); err != nil {
				return nil, newError(line,
					fmt.Sprintf("sample %s: %v", rec.SampleID, err),
					ErrMissingFile)
			}
		}

		samples = append(samples, rec)
	}

	return samples, nil
}

// probeFile проверяет, что путь существует и является обычным файлом.
func probeFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s does not exist", path)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
