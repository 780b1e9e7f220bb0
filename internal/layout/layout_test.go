package layout

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLayout_DeterministicAndIdempotent(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out")
	l, err := New(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Повторный вызов с теми же аргументами даёт идентичный путь
	// и не падает на повторном создании каталога
	p1 := l.Merged("SampleA")
	p2 := l.Merged("SampleA")
	if p1 != p2 {
		t.Errorf("paths differ: %s vs %s", p1, p2)
	}
	if p1 != filepath.Join(root, DirMerge, "SampleA.merged.fastq") {
		t.Errorf("unexpected path: %s", p1)
	}

	if info, err := os.Stat(filepath.Join(root, DirMerge)); err != nil || !info.IsDir() {
		t.Errorf("stage directory not created: %v", err)
	}
}

func TestLayout_StageDirectoriesAreLazy(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out")
	l, err := New(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Каталог таксономии не создаётся, пока путь не запрошен
	if Exists(filepath.Join(root, DirTaxonomy)) {
		t.Fatal("taxonomy directory created prematurely")
	}

	l.TaxonomyTable()
	if !Exists(filepath.Join(root, DirTaxonomy)) {
		t.Error("taxonomy directory not created on first access")
	}
}

func TestLayout_GlobalNames(t *testing.T) {
	l, err := New(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := map[string]string{
		l.Combined():        filepath.Join(DirDereplicate, "combined-sequences.fasta"),
		l.Representatives(): filepath.Join(DirCluster, "cluster-representatives.fasta"),
		l.ChimeraFiltered(): filepath.Join(DirChimera, "chimera-filtered-representatives.fasta"),
		l.AbundanceTable():  filepath.Join(DirOTU, "abundance-table.tsv"),
		l.TaxonomyTable():   filepath.Join(DirTaxonomy, "taxonomy-table.tsv"),
	}
	for got, wantSuffix := range cases {
		if got != filepath.Join(l.Root(), wantSuffix) {
			t.Errorf("expected %s under root, got %s", wantSuffix, got)
		}
	}
}

func TestNonEmpty(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	full := filepath.Join(dir, "full")
	if err := os.WriteFile(full, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if NonEmpty(empty) {
		t.Error("empty file reported non-empty")
	}
	if !NonEmpty(full) {
		t.Error("non-empty file reported empty")
	}
	if NonEmpty(filepath.Join(dir, "missing")) {
		t.Error("missing file reported non-empty")
	}
	if !Exists(full) || Exists(filepath.Join(dir, "missing")) {
		t.Error("Exists probe wrong")
	}
}
