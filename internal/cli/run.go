package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/ampliflow/internal/config"
	"github.com/shaiso/ampliflow/internal/domain"
	"github.com/shaiso/ampliflow/internal/engine"
	"github.com/shaiso/ampliflow/internal/layout"
	"github.com/shaiso/ampliflow/internal/metadata"
	"github.com/shaiso/ampliflow/internal/repo"
	"github.com/shaiso/ampliflow/internal/runlog"
	"github.com/shaiso/ampliflow/internal/telemetry"
	"github.com/shaiso/ampliflow/internal/tools"
)

// runOptions — флаги команды run.
type runOptions struct {
	inputDir     string
	metadataFile string
	outputDir    string
	threads      int
	answersFile  string
	toolDir      string
	resume       bool
}

// NewRunCmd создаёт команду запуска пайплайна.
func NewRunCmd(outputFn func() *Output) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the amplicon pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts, outputFn())
		},
	}

	cmd.Flags().StringVarP(&opts.inputDir, "input_dir", "i", "", "Directory with raw paired FASTQ files (required)")
	cmd.Flags().StringVarP(&opts.metadataFile, "metadata_file", "m", "", "Tab-separated metadata file (required)")
	cmd.Flags().StringVarP(&opts.outputDir, "output_dir", "o", "", "Output directory (required)")
	cmd.Flags().IntVarP(&opts.threads, "threads", "t", 1, "Worker pool size and tool thread budget")
	cmd.Flags().StringVar(&opts.answersFile, "answers", "", "YAML file with pre-recorded answers (non-interactive mode)")
	cmd.Flags().StringVar(&opts.toolDir, "tool-dir", "", "Directory searched for external tools before PATH")
	cmd.Flags().BoolVar(&opts.resume, "resume", false, "Skip tasks whose expected outputs already exist")

	cmd.MarkFlagRequired("input_dir")
	cmd.MarkFlagRequired("metadata_file")
	cmd.MarkFlagRequired("output_dir")

	return cmd
}

// runPipeline — composition root: собирает все зависимости запуска
// и выполняет пайплайн в текущем процессе.
func runPipeline(cmd *cobra.Command, opts *runOptions, out *Output) error {
	logger := telemetry.SetupLogger()

	// Ошибки входа обнаруживаются до запуска внешних инструментов.
	samples, err := metadata.Load(opts.metadataFile, opts.inputDir)
	if err != nil {
		return fmt.Errorf("load metadata: %w", err)
	}

	var src config.AnswerSource
	if opts.answersFile != "" {
		src, err = config.LoadAnswers(opts.answersFile)
		if err != nil {
			return fmt.Errorf("load answers: %w", err)
		}
	} else {
		src = config.NewTerminalSource(os.Stdin, os.Stderr)
	}

	cfg, err := config.Collect(src, opts.threads)
	if err != nil {
		return fmt.Errorf("collect configuration: %w", err)
	}

	lay, err := layout.New(opts.outputDir)
	if err != nil {
		return err
	}

	rlog, err := runlog.Open(lay.RunLogPath())
	if err != nil {
		return err
	}
	defer rlog.Close()

	// Отмена по Ctrl-C: запущенные инструменты дорабатывают,
	// новые задачи не стартуют.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repo.Open(ctx, lay.HistoryPath())
	if err != nil {
		return err
	}
	defer db.Close()

	tc := tools.NewToolchain(opts.toolDir)
	stages, err := engine.BuildStages(cfg, lay, tc)
	if err != nil {
		return err
	}

	metrics := telemetry.NewMetrics()

	eng, err := engine.New(engine.Config{
		Stages:   stages,
		Samples:  samples,
		Pipeline: cfg,
		Layout:   lay,
		Invoker:  tools.NewInvoker(rlog, metrics),
		Log:      rlog,
		Metrics:  metrics,
		History:  repo.NewHistory(ctx, db),
		Logger:   logger,
		Resume:   opts.resume,
	})
	if err != nil {
		return err
	}

	report, runErr := eng.Run(ctx)

	// Метрики выгружаются и для прерванного запуска.
	if err := metrics.WriteTextfile(lay.MetricsPath()); err != nil {
		logger.Error("write metrics", "error", err)
	}

	if report != nil {
		printSummary(out, samples, report)
	}
	if runErr != nil {
		return fmt.Errorf("run %s: %w", report.RunID, runErr)
	}
	out.Success(fmt.Sprintf("Run %s finished: %s", report.RunID, report.Status))
	return nil
}

// printSummary выводит итоговую сводку по образцам.
func printSummary(out *Output, samples []domain.SampleRecord, report *engine.Report) {
	excludedAt := make(map[string]domain.ExcludedSample, len(report.Excluded))
	for _, e := range report.Excluded {
		excludedAt[e.SampleID] = e
	}

	headers := []string{"SAMPLE", "STATUS", "FAILED_AT", "REASON"}
	rows := make([][]string, 0, len(samples))
	for _, s := range samples {
		if e, ok := excludedAt[s.SampleID]; ok {
			rows = append(rows, []string{s.SampleID, "excluded", e.Stage, e.Reason})
			continue
		}
		rows = append(rows, []string{s.SampleID, "ok", "", ""})
	}

	out.Print(headers, rows, report)
	out.Success(fmt.Sprintf("%d samples, %d excluded, status %s, took %s",
		len(samples), len(report.Excluded), report.Status, report.Duration.Round(time.Second)))
}
