// Patrol CLI — инструмент командной строки для работы с конвейером
// напрямую через embedded-хранилище.
//
// Использование:
//
//	patrol [--db PATH] [--json] <command> [flags]
//
// Команды:
//
//	validate  Проверка прокси-кандидатов
//	assign    Привязка credentials к прокси
//	run       Полный прогон батча
//	status    Сводка таблицы tasks
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Patrol/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var dbPath string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "patrol",
		Short:         "Patrol CLI — login/check batch tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the sqlite store (default: $PATROL_DB or patrol.db)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	dbFn := func() string { return dbPath }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewValidateCmd(dbFn, outputFn),
		cli.NewAssignCmd(dbFn, outputFn),
		cli.NewRunBatchCmd(dbFn, outputFn),
		cli.NewStatusCmd(dbFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
