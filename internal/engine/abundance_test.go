package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFilterLowAbundance(t *testing.T) {
	dir := t.TempDir()
	table := filepath.Join(dir, "table.tsv")
	reps := filepath.Join(dir, "reps.fasta")
	outTable := filepath.Join(dir, "filtered-table.tsv")
	outReps := filepath.Join(dir, "kept.fasta")
	outExcl := filepath.Join(dir, "excluded.fasta")

	// Суммы колонок: s1=1000, s2=100.
	writeFile(t, table, strings.Join([]string{
		"#OTU ID\ts1\ts2",
		"OTU_1\t990\t95",
		"OTU_2\t9\t0",  // 9/1000 ниже minFreq
		"OTU_3\t1\t5",  // s1 ниже minCount, s2 проходит
		"OTU_4\t0\t0",  // нулевая строка
		"",
	}, "\n"))
	writeFile(t, reps, strings.Join([]string{
		">OTU_1;size=1085", "ACGT",
		">OTU_2;size=9", "AAAA",
		">OTU_3;size=6", "CCCC",
		">OTU_4;size=0", "GGGG",
		"",
	}, "\n"))

	// minFreq 0.02: 95/100 проходит, 5/100 проходит, 9/1000 нет.
	if err := filterLowAbundance(table, reps, outTable, outReps, outExcl, 5, 0.02); err != nil {
		t.Fatalf("filterLowAbundance() error = %v", err)
	}

	got, err := os.ReadFile(outTable)
	if err != nil {
		t.Fatal(err)
	}
	want := "#OTU ID\ts1\ts2\nOTU_1\t990\t95\nOTU_3\t0\t5\n"
	if string(got) != want {
		t.Errorf("filtered table:\n%s\nwant:\n%s", got, want)
	}

	kept, err := os.ReadFile(outReps)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(kept), ">OTU_1;size=1085") || !strings.Contains(string(kept), ">OTU_3") {
		t.Errorf("kept representatives missing entries:\n%s", kept)
	}
	if strings.Contains(string(kept), "OTU_2") {
		t.Errorf("kept representatives contain filtered id:\n%s", kept)
	}

	excl, err := os.ReadFile(outExcl)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"OTU_2", "OTU_4"} {
		if !strings.Contains(string(excl), id) {
			t.Errorf("excluded list misses %s:\n%s", id, excl)
		}
	}
}

func TestFilterLowAbundanceBadTable(t *testing.T) {
	dir := t.TempDir()
	table := filepath.Join(dir, "table.tsv")
	writeFile(t, table, "#OTU ID\ts1\nOTU_1\tnot-a-number\n")

	err := filterLowAbundance(table, filepath.Join(dir, "missing.fasta"),
		filepath.Join(dir, "o1"), filepath.Join(dir, "o2"), filepath.Join(dir, "o3"), 1, 0)
	if err == nil {
		t.Fatal("filterLowAbundance() succeeded on malformed table")
	}
}
