package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Collect задаёт все вопросы конфигурации в фиксированном порядке
// и возвращает неизменяемый PipelineConfig.
//
// Исходная реализация спрашивала пользователя по ходу пайплайна;
// здесь все ответы собираются до запуска первого этапа, чтобы
// многочасовой запуск не застревал на ожидании ввода.
func Collect(src AnswerSource, threads int) (*PipelineConfig, error) {
	if threads <= 0 {
		return nil, newError("threads", fmt.Sprint(threads),
			"thread count must be a positive integer", ErrInvalidValue)
	}

	cfg := &PipelineConfig{Threads: threads}

	if err := collectLengthPolicy(src, cfg); err != nil {
		return nil, err
	}

	strategy, err := src.AskChoice("cluster_strategy",
		"Clustering strategy:", []string{"otu", "asv"})
	if err != nil {
		return nil, err
	}
	cfg.Cluster = []ClusterStrategy{ClusterOTU, ClusterASV}[strategy]

	if err := collectChimera(src, cfg); err != nil {
		return nil, err
	}
	if err := collectTaxonomy(src, cfg); err != nil {
		return nil, err
	}
	if err := collectSecondCluster(src, cfg); err != nil {
		return nil, err
	}

	rarefy, err := askYesNo(src, "rarefaction", "Compute a rarefaction curve?")
	if err != nil {
		return nil, err
	}
	cfg.Rarefaction = rarefy

	if err := collectAbundanceFilter(src, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// collectLengthPolicy спрашивает политику длины ампликона.
func collectLengthPolicy(src AnswerSource, cfg *PipelineConfig) error {
	kind, err := src.AskChoice("length_policy",
		"Amplicon length policy:", []string{"range", "fixed"})
	if err != nil {
		return err
	}

	if kind == 0 {
		cfg.Length.Kind = LengthRange

		minStr, err := src.AskValue("min_length",
			"Minimum read length:", validatePositiveInt)
		if err != nil {
			return err
		}
		cfg.Length.Min, _ = strconv.Atoi(minStr)

		maxStr, err := src.AskValue("max_length",
			"Maximum read length:", validatePositiveInt)
		if err != nil {
			return err
		}
		cfg.Length.Max, _ = strconv.Atoi(maxStr)

		if cfg.Length.Max < cfg.Length.Min {
			return newError("max_length", maxStr,
				fmt.Sprintf("must be >= minimum length %d", cfg.Length.Min),
				ErrInvalidValue)
		}
		return nil
	}

	cfg.Length.Kind = LengthFixed
	valuesStr, err := src.AskValue("lengths",
		"Target length value(s), space separated:", validateLengthList)
	if err != nil {
		return err
	}
	for _, tok := range strings.Fields(valuesStr) {
		v, _ := strconv.Atoi(tok)
		cfg.Length.Values = append(cfg.Length.Values, v)
	}
	return nil
}

// collectChimera спрашивает метод детекции химер.
func collectChimera(src AnswerSource, cfg *PipelineConfig) error {
	method, err := src.AskChoice("chimera_method",
		"Chimera detection method:", []string{"denovo", "reference"})
	if err != nil {
		return err
	}

	if method == 0 {
		cfg.Chimera = ChimeraDeNovo
		return nil
	}

	cfg.Chimera = ChimeraReference
	db, err := src.AskValue("chimera_db",
		"Reference database path for chimera detection:", validateDatabase)
	if err != nil {
		return err
	}
	cfg.ChimeraDB = db
	return nil
}

// collectTaxonomy спрашивает про SINTAX классификацию.
func collectTaxonomy(src AnswerSource, cfg *PipelineConfig) error {
	enabled, err := askYesNo(src, "taxonomy", "Run SINTAX taxonomy classification?")
	if err != nil {
		return err
	}
	cfg.Taxonomy = enabled
	if !enabled {
		return nil
	}

	db, err := src.AskValue("taxonomy_db",
		"Reference database path for taxonomy:", validateDatabase)
	if err != nil {
		return err
	}
	cfg.TaxonomyDB = db
	return nil
}

// collectSecondCluster спрашивает про повторную кластеризацию.
func collectSecondCluster(src AnswerSource, cfg *PipelineConfig) error {
	enabled, err := askYesNo(src, "second_cluster",
		"Re-cluster relabeled representatives?")
	if err != nil {
		return err
	}
	cfg.SecondCluster = enabled
	if !enabled {
		return nil
	}

	idStr, err := src.AskValue("second_cluster_id",
		"Similarity threshold for re-clustering (0..1, e.g. 0.97):", validateIdentity)
	if err != nil {
		return err
	}
	cfg.SecondClusterID, _ = strconv.ParseFloat(idStr, 64)
	return nil
}

// collectAbundanceFilter спрашивает пороги фильтрации численности.
func collectAbundanceFilter(src AnswerSource, cfg *PipelineConfig) error {
	enabled, err := askYesNo(src, "abundance_filter",
		"Filter low-abundance counts from the table?")
	if err != nil {
		return err
	}
	cfg.Abundance.Enabled = enabled
	if !enabled {
		return nil
	}

	countStr, err := src.AskValue("min_count",
		"Minimum count threshold (e.g. 50):", validatePositiveInt)
	if err != nil {
		return err
	}
	cfg.Abundance.MinCount, _ = strconv.Atoi(countStr)

	freqStr, err := src.AskValue("min_freq",
		"Minimum frequency threshold (e.g. 0.001):", validateFrequency)
	if err != nil {
		return err
	}
	cfg.Abundance.MinFreq, _ = strconv.ParseFloat(freqStr, 64)
	return nil
}

// askYesNo задаёт бинарный вопрос.
func askYesNo(src AnswerSource, key, prompt string) (bool, error) {
	i, err := src.AskChoice(key, prompt, []string{"yes", "no"})
	if err != nil {
		return false, err
	}
	return i == 0, nil
}

// Валидаторы значений.

func validatePositiveInt(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return fmt.Errorf("%w: must be a positive integer", ErrInvalidValue)
	}
	return nil
}

func validateLengthList(s string) error {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return fmt.Errorf("%w: at least one length required", ErrInvalidValue)
	}
	for _, tok := range fields {
		if v, err := strconv.Atoi(tok); err != nil || v <= 0 {
			return fmt.Errorf("%w: %q is not a positive integer", ErrInvalidValue, tok)
		}
	}
	return nil
}

func validateIdentity(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || v > 1 {
		return fmt.Errorf("%w: must be a number in (0, 1]", ErrInvalidValue)
	}
	return nil
}

func validateFrequency(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || v >= 1 {
		return fmt.Errorf("%w: must be a number in [0, 1)", ErrInvalidValue)
	}
	return nil
}

func validateDatabase(s string) error {
	if s == "" {
		return ErrMissingDatabase
	}
	info, err := os.Stat(s)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s does not exist", ErrMissingDatabase, s)
	}
	return nil
}
