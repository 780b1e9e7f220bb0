package engine

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// filterLowAbundance читает таблицу численности, обнуляет счётчики ниже
// порогов и записывает отфильтрованную таблицу вместе с разбиением
// представительных последовательностей на оставленные и исключённые.
//
// Счётчик обнуляется, если он меньше minCount либо его доля от суммы
// колонки образца меньше minFreq. Строки, ставшие нулевыми во всех
// образцах, из таблицы удаляются, а их представители попадают в список
// исключённых.
func filterLowAbundance(tablePath, repsPath, outTable, outReps, outExcluded string, minCount int, minFreq float64) error {
	header, rows, err := readAbundanceTable(tablePath)
	if err != nil {
		return err
	}

	// Суммы по колонкам образцов считаются до обнуления.
	totals := make([]float64, len(header)-1)
	for _, r := range rows {
		for i, c := range r.counts {
			totals[i] += float64(c)
		}
	}

	kept := make(map[string]bool, len(rows))
	var filtered []tableRow
	for _, r := range rows {
		nonZero := false
		for i, c := range r.counts {
			if c == 0 {
				continue
			}
			if c < minCount || (totals[i] > 0 && float64(c)/totals[i] < minFreq) {
				r.counts[i] = 0
				continue
			}
			nonZero = true
		}
		if nonZero {
			kept[r.id] = true
			filtered = append(filtered, r)
		}
	}

	if err := writeAbundanceTable(outTable, header, filtered); err != nil {
		return err
	}
	return splitRepresentatives(repsPath, outReps, outExcluded, kept)
}

// tableRow — одна строка таблицы численности.
type tableRow struct {
	id     string
	counts []int
}

// readAbundanceTable читает TSV-таблицу численности: заголовок с именами
// образцов, далее строки id + счётчики.
func readAbundanceTable(path string) (header []string, rows []tableRow, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("parse %s: empty table", path)
	}

	header = records[0]
	for n, rec := range records[1:] {
		if len(rec) != len(header) {
			return nil, nil, fmt.Errorf("parse %s: row %d: %d fields, want %d", path, n+2, len(rec), len(header))
		}
		row := tableRow{id: rec[0], counts: make([]int, len(rec)-1)}
		for i, field := range rec[1:] {
			c, err := strconv.Atoi(field)
			if err != nil {
				return nil, nil, fmt.Errorf("parse %s: row %d: count %q: %w", path, n+2, field, err)
			}
			row.counts[i] = c
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

// writeAbundanceTable записывает TSV-таблицу в формате исходной.
func writeAbundanceTable(path string, header []string, rows []tableRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, r := range rows {
		fields := make([]string, 0, len(r.counts)+1)
		fields = append(fields, r.id)
		for _, c := range r.counts {
			fields = append(fields, strconv.Itoa(c))
		}
		fmt.Fprintln(w, strings.Join(fields, "\t"))
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// splitRepresentatives раскладывает FASTA представителей на оставленные
// после фильтрации и исключённые. Идентификатор записи сопоставляется
// с таблицей по части заголовка до ';' (аннотация size отбрасывается).
func splitRepresentatives(repsPath, outKept, outExcluded string, kept map[string]bool) error {
	in, err := os.Open(repsPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", repsPath, err)
	}
	defer in.Close()

	keptF, err := os.Create(outKept)
	if err != nil {
		return fmt.Errorf("create %s: %w", outKept, err)
	}
	defer keptF.Close()

	exclF, err := os.Create(outExcluded)
	if err != nil {
		return fmt.Errorf("create %s: %w", outExcluded, err)
	}
	defer exclF.Close()

	keptW := bufio.NewWriter(keptF)
	exclW := bufio.NewWriter(exclF)

	var cur *bufio.Writer
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, ">") {
			id, _, _ := strings.Cut(strings.TrimPrefix(line, ">"), ";")
			if kept[id] {
				cur = keptW
			} else {
				cur = exclW
			}
		}
		if cur != nil {
			fmt.Fprintln(cur, line)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", repsPath, err)
	}
	if err := keptW.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", outKept, err)
	}
	if err := exclW.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", outExcluded, err)
	}
	return nil
}
