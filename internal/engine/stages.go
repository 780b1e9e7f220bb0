package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/shaiso/ampliflow/internal/config"
	"github.com/shaiso/ampliflow/internal/domain"
	"github.com/shaiso/ampliflow/internal/layout"
	"github.com/shaiso/ampliflow/internal/tools"
)

// Имена этапов.
const (
	StageDemultiplex     = "demultiplex"
	StageMerge           = "merge"
	StageQuality         = "quality"
	StageDereplicate     = "dereplicate"
	StageCluster         = "cluster"
	StageChimera         = "chimera"
	StageTable           = "table"
	StageRelabel         = "relabel"
	StageSecondCluster   = "second-cluster"
	StageRarefaction     = "rarefaction"
	StageAbundanceFilter = "abundance-filter"
	StageTaxonomy        = "taxonomy"
)

// Пороги, унаследованные от исходного протокола обработки.
const (
	clusterIdentity = "0.97"
	maxErrorRate    = "0.1"
	sintaxCutoff    = "0.8"
)

// stageBuilder держит общий контекст построения этапов.
type stageBuilder struct {
	cfg *config.PipelineConfig
	lay *layout.ArtifactLayout

	cutadapt string
	vsearch  string
	seqkit   string
	rarefy   string
}

// BuildStages строит таблицу этапов пайплайна для данной конфигурации.
//
// Базовая цепочка фиксирована; ветки после таблицы численности
// (повторная кластеризация, кривая разрежения, фильтрация численности,
// таксономия) добавляются по флагам конфигурации.
//
// Бюджет потоков: per-sample команды получают 1 поток (параллелизм
// обеспечивает пул воркеров), глобальные — полный Threads.
func BuildStages(cfg *config.PipelineConfig, lay *layout.ArtifactLayout, tc *tools.Toolchain) ([]domain.Stage, error) {
	b := &stageBuilder{cfg: cfg, lay: lay}

	var err error
	if b.cutadapt, err = tc.Lookup(tools.Cutadapt); err != nil {
		return nil, err
	}
	if b.vsearch, err = tc.Lookup(tools.Vsearch); err != nil {
		return nil, err
	}
	if b.seqkit, err = tc.Lookup(tools.Seqkit); err != nil {
		return nil, err
	}
	if cfg.Rarefaction {
		if b.rarefy, err = tc.Lookup(tools.RarefyScript); err != nil {
			return nil, err
		}
	}

	stages := []domain.Stage{
		b.demultiplex(),
		b.merge(),
		b.quality(),
		b.dereplicate(),
		b.cluster(),
		b.chimera(),
		b.table(),
	}

	if cfg.SecondCluster {
		stages = append(stages, b.relabel(), b.secondCluster())
	}
	if cfg.Rarefaction {
		stages = append(stages, b.rarefaction())
	}
	if cfg.Abundance.Enabled {
		stages = append(stages, b.abundanceFilter())
	}
	if cfg.Taxonomy {
		stages = append(stages, b.taxonomy())
	}

	return stages, nil
}

// threadsArg возвращает бюджет потоков команды по области действия этапа.
func (b *stageBuilder) threadsArg(scope domain.StageScope) string {
	if scope == domain.ScopePerSample {
		return "1"
	}
	return strconv.Itoa(b.cfg.Threads)
}

// demultiplex — этап 1: разрезание сырых парных FASTQ по праймерам.
func (b *stageBuilder) demultiplex() domain.Stage {
	return domain.Stage{
		Name:  StageDemultiplex,
		Scope: domain.ScopePerSample,
		Build: func(s *domain.SampleRecord) (domain.Invocation, error) {
			fwd := b.lay.DemuxForward(s.SampleID)
			rev := b.lay.DemuxReverse(s.SampleID)
			return domain.Invocation{
				Commands: []domain.Command{{
					Program: b.cutadapt,
					Args: []string{
						"-g", "^" + s.ForwardPrimer,
						"-G", "^" + s.ReversePrimer,
						"-o", fwd,
						"-p", rev,
						"-j", b.threadsArg(domain.ScopePerSample),
						"--discard-untrimmed",
						"-e", maxErrorRate,
						s.ForwardFile, s.ReverseFile,
					},
				}},
				ExpectedOutputs: []string{fwd, rev},
			}, nil
		},
	}
}

// merge — этап 2: слияние прямого и обратного чтения.
func (b *stageBuilder) merge() domain.Stage {
	return domain.Stage{
		Name:      StageMerge,
		Scope:     domain.ScopePerSample,
		DependsOn: []string{StageDemultiplex},
		Build: func(s *domain.SampleRecord) (domain.Invocation, error) {
			merged := b.lay.Merged(s.SampleID)
			return domain.Invocation{
				Commands: []domain.Command{{
					Program: b.vsearch,
					Args: []string{
						"--fastq_mergepairs", b.lay.DemuxForward(s.SampleID),
						"--reverse", b.lay.DemuxReverse(s.SampleID),
						"--threads", b.threadsArg(domain.ScopePerSample),
						"--fastqout", merged,
						"--fastq_eeout",
					},
				}},
				ExpectedOutputs: []string{merged},
			}, nil
		},
	}
}

// quality — этап 3: фильтрация качества с политикой длины.
func (b *stageBuilder) quality() domain.Stage {
	return domain.Stage{
		Name:      StageQuality,
		Scope:     domain.ScopePerSample,
		DependsOn: []string{StageMerge},
		Build: func(s *domain.SampleRecord) (domain.Invocation, error) {
			merged := b.lay.Merged(s.SampleID)
			filtered := b.lay.Filtered(s.SampleID)
			threads := b.threadsArg(domain.ScopePerSample)

			filterArgs := []string{
				"--fastaout", filtered,
				"--fastq_maxee", "1.0",
				"--fastq_maxee_rate", "0.01",
				"--fastq_maxns", "0",
				"--fasta_width", "0",
				"--threads", threads,
			}

			if b.cfg.Length.Kind == config.LengthRange {
				args := append([]string{
					"--fastx_filter", merged,
					"--fastq_minlen", strconv.Itoa(b.cfg.Length.Min),
					"--fastq_maxlen", strconv.Itoa(b.cfg.Length.Max),
				}, filterArgs...)
				return domain.Invocation{
					Commands:        []domain.Command{{Program: b.vsearch, Args: args}},
					ExpectedOutputs: []string{filtered},
				}, nil
			}

			// Фиксированные длины: seqkit отбирает каждую длину в общий
			// временный FASTQ, затем одна фильтрация качества.
			tmp := b.lay.LengthTemp(s.SampleID)
			var cmds []domain.Command
			for _, length := range b.cfg.Length.Values {
				l := strconv.Itoa(length)
				cmds = append(cmds, domain.Command{
					Program:    b.seqkit,
					Args:       []string{"seq", "-j", threads, "-m", l, "-M", l, merged},
					StdoutFile: tmp,
				})
			}
			cmds = append(cmds, domain.Command{
				Program: b.vsearch,
				Args:    append([]string{"--fastx_filter", tmp}, filterArgs...),
			})
			return domain.Invocation{
				Commands:        cmds,
				ExpectedOutputs: []string{filtered},
				Cleanup:         []string{tmp},
			}, nil
		},
	}
}

// dereplicate — этап 4: схлопывание идентичных последовательностей
// с аннотацией численности и префиксом sample_id.
func (b *stageBuilder) dereplicate() domain.Stage {
	return domain.Stage{
		Name:      StageDereplicate,
		Scope:     domain.ScopePerSample,
		DependsOn: []string{StageQuality},
		Build: func(s *domain.SampleRecord) (domain.Invocation, error) {
			derep := b.lay.Dereplicated(s.SampleID)
			return domain.Invocation{
				Commands: []domain.Command{{
					Program: b.vsearch,
					Args: []string{
						"--derep_fulllength", b.lay.Filtered(s.SampleID),
						"--strand", "plus",
						"--output", derep,
						"--sizeout",
						"--relabel", s.SampleID + ".",
						"--fasta_width", "0",
						"--threads", b.threadsArg(domain.ScopePerSample),
					},
				}},
				ExpectedOutputs: []string{derep},
			}, nil
		},
	}
}

// cluster — этап 5: кросс-образцовая кластеризация.
//
// Prepare конкатенирует дереплицированные последовательности выживших
// образцов — агрегация по успешным результатам, объявленный пре-шаг
// глобального этапа.
func (b *stageBuilder) cluster() domain.Stage {
	return domain.Stage{
		Name:      StageCluster,
		Scope:     domain.ScopeGlobal,
		DependsOn: []string{StageDereplicate},
		Prepare: func(survivors []domain.SampleRecord) error {
			paths := make([]string, 0, len(survivors))
			for _, s := range survivors {
				paths = append(paths, b.lay.Dereplicated(s.SampleID))
			}
			return concatFiles(b.lay.Combined(), paths)
		},
		Build: func(*domain.SampleRecord) (domain.Invocation, error) {
			combined := b.lay.Combined()
			reps := b.lay.Representatives()
			threads := b.threadsArg(domain.ScopeGlobal)

			var args []string
			if b.cfg.Cluster == config.ClusterOTU {
				args = []string{
					"--cluster_smallmem", combined,
					"--id", clusterIdentity,
					"--usersort",
					"--centroids", reps,
					"--strand", "plus",
					"--sizein", "--sizeout",
					"--fasta_width", "0",
					"--threads", threads,
				}
			} else {
				args = []string{
					"--unoise3", combined,
					"--centroids", reps,
					"--usersort",
					"--sizein", "--sizeout",
					"--fasta_width", "0",
					"--threads", threads,
				}
			}
			return domain.Invocation{
				Commands:        []domain.Command{{Program: b.vsearch, Args: args}},
				ExpectedOutputs: []string{combined, reps},
			}, nil
		},
	}
}

// chimera — этап 6: удаление химерных представителей.
func (b *stageBuilder) chimera() domain.Stage {
	return domain.Stage{
		Name:      StageChimera,
		Scope:     domain.ScopeGlobal,
		DependsOn: []string{StageCluster},
		Build: func(*domain.SampleRecord) (domain.Invocation, error) {
			reps := b.lay.Representatives()
			filtered := b.lay.ChimeraFiltered()
			threads := b.threadsArg(domain.ScopeGlobal)

			var args []string
			if b.cfg.Chimera == config.ChimeraDeNovo {
				args = []string{
					"--uchime_denovo", reps,
					"--nonchimeras", filtered,
					"--sizein", "--sizeout",
					"--usersort",
					"--fasta_width", "0",
					"--threads", threads,
				}
			} else {
				args = []string{
					"--uchime_ref", reps,
					"--db", b.cfg.ChimeraDB,
					"--usersort",
					"--nonchimeras", filtered,
					"--sizein", "--sizeout",
					"--fasta_width", "0",
					"--threads", threads,
				}
			}
			return domain.Invocation{
				Commands:        []domain.Command{{Program: b.vsearch, Args: args}},
				ExpectedOutputs: []string{filtered},
			}, nil
		},
	}
}

// table — этап 7: таблица численности по нехимерным представителям.
func (b *stageBuilder) table() domain.Stage {
	return domain.Stage{
		Name:      StageTable,
		Scope:     domain.ScopeGlobal,
		DependsOn: []string{StageChimera},
		Build: func(*domain.SampleRecord) (domain.Invocation, error) {
			table := b.lay.AbundanceTable()
			return domain.Invocation{
				Commands: []domain.Command{{
					Program: b.vsearch,
					Args: []string{
						"--usearch_global", b.lay.Combined(),
						"--db", b.lay.ChimeraFiltered(),
						"--usersort",
						"--id", clusterIdentity,
						"--otutabout", table,
						"--strand", "plus",
						"--sizein",
						"--threads", b.threadsArg(domain.ScopeGlobal),
					},
				}},
				ExpectedOutputs: []string{table},
			}, nil
		},
	}
}

// relabel — переименование нехимерных представителей с префиксом OTU_
// перед повторной кластеризацией.
func (b *stageBuilder) relabel() domain.Stage {
	return domain.Stage{
		Name:      StageRelabel,
		Scope:     domain.ScopeGlobal,
		DependsOn: []string{StageTable},
		Build: func(*domain.SampleRecord) (domain.Invocation, error) {
			relabeled := b.lay.Relabeled()
			return domain.Invocation{
				Commands: []domain.Command{{
					Program: b.vsearch,
					Args: []string{
						"--fastx_filter", b.lay.ChimeraFiltered(),
						"--sizein", "--sizeout",
						"--fasta_width", "0",
						"--relabel", "OTU_",
						"--threads", b.threadsArg(domain.ScopeGlobal),
						"--fastaout", relabeled,
					},
				}},
				ExpectedOutputs: []string{relabeled},
			}, nil
		},
	}
}

// secondCluster — повторная кластеризация переименованных представителей
// с порогом из конфигурации и перестроением таблицы.
func (b *stageBuilder) secondCluster() domain.Stage {
	return domain.Stage{
		Name:      StageSecondCluster,
		Scope:     domain.ScopeGlobal,
		DependsOn: []string{StageRelabel},
		Build: func(*domain.SampleRecord) (domain.Invocation, error) {
			identity := strconv.FormatFloat(b.cfg.SecondClusterID, 'g', -1, 64)
			reps := b.lay.ReclusteredRepresentatives()
			table := b.lay.ReclusteredTable()
			threads := b.threadsArg(domain.ScopeGlobal)

			return domain.Invocation{
				Commands: []domain.Command{
					{
						Program: b.vsearch,
						Args: []string{
							"--cluster_size", b.lay.Relabeled(),
							"--id", identity,
							"--strand", "plus",
							"--threads", threads,
							"--sizein", "--sizeout",
							"--fasta_width", "0",
							"--centroids", reps,
						},
					},
					{
						Program: b.vsearch,
						Args: []string{
							"--usearch_global", b.lay.Combined(),
							"--db", reps,
							"--id", identity,
							"--strand", "plus",
							"--threads", threads,
							"--sizein", "--sizeout",
							"--fasta_width", "0",
							"--qmask", "none",
							"--dbmask", "none",
							"--otutabout", table,
						},
					},
				},
				ExpectedOutputs: []string{reps, table},
			}, nil
		},
	}
}

// rarefaction — кривая разрежения; расчёт и отрисовка делегированы
// внешнему R-скрипту. Повторная кластеризация переписывает таблицу,
// поэтому кривая считается по её версии.
func (b *stageBuilder) rarefaction() domain.Stage {
	table := b.lay.AbundanceTable
	deps := []string{StageTable}
	if b.cfg.SecondCluster {
		table = b.lay.ReclusteredTable
		deps = []string{StageSecondCluster}
	}

	return domain.Stage{
		Name:      StageRarefaction,
		Scope:     domain.ScopeGlobal,
		DependsOn: deps,
		Build: func(*domain.SampleRecord) (domain.Invocation, error) {
			out := b.lay.RarefactionTable()
			return domain.Invocation{
				Commands: []domain.Command{{
					Program: b.rarefy,
					Args:    []string{table(), out},
				}},
				ExpectedOutputs: []string{out},
			}, nil
		},
	}
}

// abundanceFilter — нативная фильтрация низкой численности.
//
// Выполняется в процессе, как и в исходной реализации: у этапа нет
// контракта внешнего инструмента.
func (b *stageBuilder) abundanceFilter() domain.Stage {
	// При повторной кластеризации фильтруется её таблица и представители
	table := b.lay.AbundanceTable
	reps := b.lay.ChimeraFiltered
	deps := []string{StageTable}
	if b.cfg.SecondCluster {
		table = b.lay.ReclusteredTable
		reps = b.lay.ReclusteredRepresentatives
		deps = []string{StageSecondCluster}
	}

	st := domain.Stage{
		Name:      StageAbundanceFilter,
		Scope:     domain.ScopeGlobal,
		DependsOn: deps,
		Build: func(*domain.SampleRecord) (domain.Invocation, error) {
			return domain.Invocation{
				ExpectedOutputs: []string{b.lay.FilteredTable()},
			}, nil
		},
	}
	st.Native = func(ctx context.Context) error {
		return filterLowAbundance(
			table(), reps(),
			b.lay.FilteredTable(),
			b.lay.FilteredRepresentatives(),
			b.lay.ExcludedList(),
			b.cfg.Abundance.MinCount,
			b.cfg.Abundance.MinFreq,
		)
	}
	return st
}

// taxonomy — этап 8: SINTAX классификация нехимерных представителей.
func (b *stageBuilder) taxonomy() domain.Stage {
	return domain.Stage{
		Name:      StageTaxonomy,
		Scope:     domain.ScopeGlobal,
		DependsOn: []string{StageTable},
		Build: func(*domain.SampleRecord) (domain.Invocation, error) {
			out := b.lay.TaxonomyTable()
			return domain.Invocation{
				Commands: []domain.Command{{
					Program: b.vsearch,
					Args: []string{
						"--sintax", b.lay.ChimeraFiltered(),
						"--db", b.cfg.TaxonomyDB,
						"--sintax_cutoff", sintaxCutoff,
						"--usersort",
						"--strand", "both",
						"--tabbedout", out,
						"--threads", b.threadsArg(domain.ScopeGlobal),
					},
				}},
				ExpectedOutputs: []string{out},
			}, nil
		},
	}
}

// concatFiles последовательно дописывает файлы paths в dst.
func concatFiles(dst string, paths []string) error {
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	for _, p := range paths {
		in, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("open %s: %w", p, err)
		}
		if _, err := io.Copy(out, in); err != nil {
			in.Close()
			return fmt.Errorf("append %s: %w", p, err)
		}
		in.Close()
	}
	return nil
}
