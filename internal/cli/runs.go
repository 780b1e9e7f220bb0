package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/ampliflow/internal/domain"
	"github.com/shaiso/ampliflow/internal/layout"
	"github.com/shaiso/ampliflow/internal/repo"
)

// NewRunsCmd создаёт группу команд для просмотра истории запусков.
func NewRunsCmd(outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect past runs",
	}

	cmd.AddCommand(
		newRunsListCmd(outputFn),
		newRunsShowCmd(outputFn),
	)

	return cmd
}

func newRunsListCmd(outputFn func() *Output) *cobra.Command {
	var outputDir string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List past runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			db, err := repo.Open(cmd.Context(), historyPath(outputDir))
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := repo.NewRunRepo(db).List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			headers := []string{"ID", "STATUS", "SAMPLES", "EXCLUDED", "STARTED", "DURATION"}
			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{
					r.ID.String(),
					string(r.Status),
					fmt.Sprintf("%d", r.Samples),
					fmt.Sprintf("%d", len(r.Excluded)),
					r.StartedAt.Format(time.RFC3339),
					formatDuration(&r),
				}
			}

			out.Print(headers, rows, runs)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output_dir", "o", "", "Output directory of the runs (required)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of results")
	cmd.MarkFlagRequired("output_dir")

	return cmd
}

func newRunsShowCmd(outputFn func() *Output) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show tasks of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			runID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run id %q: %w", args[0], err)
			}

			db, err := repo.Open(cmd.Context(), historyPath(outputDir))
			if err != nil {
				return err
			}
			defer db.Close()

			run, err := repo.NewRunRepo(db).GetByID(cmd.Context(), runID)
			if err != nil {
				return err
			}
			tasks, err := repo.NewTaskRepo(db).ListByRun(cmd.Context(), runID)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run %s: %s, %d samples, %d excluded",
				run.ID, run.Status, run.Samples, len(run.Excluded)))

			headers := []string{"STAGE", "SAMPLE", "STATUS", "DURATION", "CACHED", "ERROR"}
			rows := make([][]string, len(tasks))
			for i, t := range tasks {
				cached := ""
				if t.Cached {
					cached = "yes"
				}
				rows[i] = []string{
					t.Stage,
					t.SampleID,
					string(t.Status),
					t.Duration.String(),
					cached,
					t.Error,
				}
			}

			out.Print(headers, rows, tasks)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output_dir", "o", "", "Output directory of the run (required)")
	cmd.MarkFlagRequired("output_dir")

	return cmd
}

// historyPath возвращает путь базы истории в выходном каталоге.
func historyPath(outputDir string) string {
	return filepath.Join(outputDir, layout.HistoryName)
}

// formatDuration форматирует продолжительность завершённого запуска.
func formatDuration(r *domain.Run) string {
	if r.FinishedAt == nil {
		return "-"
	}
	return r.Duration().Round(time.Second).String()
}
