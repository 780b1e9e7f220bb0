// ampliflow — оркестратор пайплайна обработки ампликонных
// последовательностей: от сырых парных FASTQ до таблицы численности
// и таксономии.
//
// Использование:
//
//	ampliflow [--json] <command> [flags]
//
// Команды:
//
//	run   Запуск пайплайна
//	runs  Просмотр истории запусков
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/ampliflow/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "ampliflow",
		Short:         "ampliflow — amplicon sequencing pipeline",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewRunCmd(outputFn),
		cli.NewRunsCmd(outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
