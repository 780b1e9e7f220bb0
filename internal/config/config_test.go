package config

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// baseAnswers — минимальный валидный набор ответов.
func baseAnswers() map[string]string {
	return map[string]string{
		"length_policy":    "range",
		"min_length":       "200",
		"max_length":       "400",
		"cluster_strategy": "otu",
		"chimera_method":   "denovo",
		"taxonomy":         "no",
		"second_cluster":   "no",
		"rarefaction":      "no",
		"abundance_filter": "no",
	}
}

func TestCollect_RangePolicy(t *testing.T) {
	cfg, err := Collect(NewScriptedSource(baseAnswers()), 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Length.Kind != LengthRange || cfg.Length.Min != 200 || cfg.Length.Max != 400 {
		t.Errorf("unexpected length policy: %+v", cfg.Length)
	}
	if cfg.Cluster != ClusterOTU {
		t.Errorf("expected OTU strategy, got %s", cfg.Cluster)
	}
	if cfg.Chimera != ChimeraDeNovo {
		t.Errorf("expected de novo chimera method, got %s", cfg.Chimera)
	}
	if cfg.Taxonomy || cfg.SecondCluster || cfg.Rarefaction || cfg.Abundance.Enabled {
		t.Errorf("optional branches should be off: %+v", cfg)
	}
	if cfg.Threads != 4 {
		t.Errorf("expected 4 threads, got %d", cfg.Threads)
	}
}

func TestCollect_FixedLengths(t *testing.T) {
	answers := baseAnswers()
	answers["length_policy"] = "fixed"
	answers["lengths"] = "313 410"
	delete(answers, "min_length")
	delete(answers, "max_length")

	cfg, err := Collect(NewScriptedSource(answers), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Length.Kind != LengthFixed {
		t.Fatalf("expected fixed policy, got %s", cfg.Length.Kind)
	}
	if len(cfg.Length.Values) != 2 || cfg.Length.Values[0] != 313 || cfg.Length.Values[1] != 410 {
		t.Errorf("unexpected length values: %v", cfg.Length.Values)
	}
}

func TestCollect_AllBranchesOn(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ref.fasta")
	if err := os.WriteFile(db, []byte(">ref\nACGT\n"), 0o644); err != nil {
		t.Fatalf("write db: %v", err)
	}

	answers := baseAnswers()
	answers["cluster_strategy"] = "asv"
	answers["chimera_method"] = "reference"
	answers["chimera_db"] = db
	answers["taxonomy"] = "yes"
	answers["taxonomy_db"] = db
	answers["second_cluster"] = "yes"
	answers["second_cluster_id"] = "0.95"
	answers["rarefaction"] = "yes"
	answers["abundance_filter"] = "yes"
	answers["min_count"] = "50"
	answers["min_freq"] = "0.001"

	cfg, err := Collect(NewScriptedSource(answers), 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Cluster != ClusterASV {
		t.Errorf("expected ASV strategy, got %s", cfg.Cluster)
	}
	if cfg.Chimera != ChimeraReference || cfg.ChimeraDB != db {
		t.Errorf("unexpected chimera config: %s %s", cfg.Chimera, cfg.ChimeraDB)
	}
	if !cfg.Taxonomy || cfg.TaxonomyDB != db {
		t.Errorf("unexpected taxonomy config: %v %s", cfg.Taxonomy, cfg.TaxonomyDB)
	}
	if !cfg.SecondCluster || cfg.SecondClusterID != 0.95 {
		t.Errorf("unexpected second cluster config: %v %v", cfg.SecondCluster, cfg.SecondClusterID)
	}
	if !cfg.Rarefaction {
		t.Error("rarefaction should be on")
	}
	if !cfg.Abundance.Enabled || cfg.Abundance.MinCount != 50 || cfg.Abundance.MinFreq != 0.001 {
		t.Errorf("unexpected abundance filter: %+v", cfg.Abundance)
	}
}

func TestCollect_OutOfRangeChoice(t *testing.T) {
	answers := baseAnswers()
	answers["cluster_strategy"] = "3"

	_, err := Collect(NewScriptedSource(answers), 4)
	if !errors.Is(err, ErrInvalidChoice) {
		t.Fatalf("expected ErrInvalidChoice, got %v", err)
	}
}

func TestCollect_NonNumericLength(t *testing.T) {
	answers := baseAnswers()
	answers["min_length"] = "abc"

	_, err := Collect(NewScriptedSource(answers), 4)
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
}

func TestCollect_MaxBelowMin(t *testing.T) {
	answers := baseAnswers()
	answers["min_length"] = "400"
	answers["max_length"] = "200"

	_, err := Collect(NewScriptedSource(answers), 4)
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
}

// Референсная детекция химер выбрана, но путь к базе не указан —
// ошибка конфигурации до запуска какого-либо процесса.
func TestCollect_ReferenceChimeraWithoutDatabase(t *testing.T) {
	answers := baseAnswers()
	answers["chimera_method"] = "reference"

	_, err := Collect(NewScriptedSource(answers), 4)
	if !errors.Is(err, ErrMissingAnswer) {
		t.Fatalf("expected ErrMissingAnswer, got %v", err)
	}

	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *config.Error, got %T", err)
	}
	if cerr.Question != "chimera_db" {
		t.Errorf("expected chimera_db question, got %s", cerr.Question)
	}
}

func TestCollect_NonexistentDatabase(t *testing.T) {
	answers := baseAnswers()
	answers["chimera_method"] = "reference"
	answers["chimera_db"] = "/nonexistent/ref.fasta"

	_, err := Collect(NewScriptedSource(answers), 4)
	if !errors.Is(err, ErrMissingDatabase) {
		t.Fatalf("expected ErrMissingDatabase, got %v", err)
	}
}

func TestCollect_InvalidThreads(t *testing.T) {
	_, err := Collect(NewScriptedSource(baseAnswers()), 0)
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
}

func TestLoadAnswers_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.yaml")
	data := `length_policy: range
min_length: 200
max_length: 400
cluster_strategy: asv
chimera_method: denovo
taxonomy: "no"
second_cluster: "no"
rarefaction: "yes"
abundance_filter: "no"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write answers: %v", err)
	}

	src, err := LoadAnswers(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := Collect(src, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Cluster != ClusterASV || !cfg.Rarefaction {
		t.Errorf("unexpected config from YAML answers: %+v", cfg)
	}
}

func TestTerminalSource_RetriesUntilValid(t *testing.T) {
	// Первый ответ невалиден, второй принимается
	in := strings.NewReader("5\n2\n")
	src := NewTerminalSource(in, io.Discard)

	i, err := src.AskChoice("cluster_strategy", "Clustering strategy:", []string{"otu", "asv"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if i != 1 {
		t.Errorf("expected choice index 1, got %d", i)
	}
}

func TestTerminalSource_ExitAborts(t *testing.T) {
	in := strings.NewReader("exit\n")
	src := NewTerminalSource(in, io.Discard)

	_, err := src.AskChoice("length_policy", "Amplicon length policy:", []string{"range", "fixed"})
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
}
