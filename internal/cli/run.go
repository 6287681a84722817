package cli

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Patrol/internal/runner"
)

// NewRunBatchCmd создаёт команду полного прогона батча.
//
// Конвейер собирается через runner.Build — тем же путём, что и
// patrol-runner; флаги лишь заполняют runner.Options.
func NewRunBatchCmd(dbFn func() string, outputFn func() *Output) *cobra.Command {
	var opts runner.Options
	var staggerSec int
	var timeoutSec int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one full batch run",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := outputFn()

			opts.DBPath = dbFn()
			opts.StaggerDelay = time.Duration(staggerSec) * time.Second
			opts.ProbeTimeout = time.Duration(timeoutSec) * time.Second

			pipeline, err := runner.Build(ctx, opts, slog.Default())
			if err != nil {
				return err
			}
			defer pipeline.Close()

			summary, err := pipeline.Runner.Run(ctx, pipeline.Proxies, pipeline.Secrets)
			if err != nil {
				return err
			}

			out.Print(
				[]string{"RUN_ID", "PROBED", "PAIRS", "UNITS", "FAILED_UNITS"},
				[][]string{{
					summary.RunID,
					strconv.Itoa(summary.ProxiesProbed),
					strconv.Itoa(summary.Pairs),
					strconv.Itoa(summary.Units),
					strconv.Itoa(summary.FailedUnits),
				}},
				summary,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.ProxiesFile, "proxies", "proxies.txt", "File with candidate proxies")
	cmd.Flags().StringVar(&opts.CredentialsFile, "credentials", "credentials.txt", "File with credential secrets")
	cmd.Flags().StringVar(&opts.ServicesFile, "services", "services.json", "Service driver configuration")
	cmd.Flags().StringVar(&opts.ProbeTarget, "target", "https://www.google.com", "Probe target URL")
	cmd.Flags().IntVar(&opts.ProbeChunkSize, "chunk-size", 10, "Proxies per validation worker")
	cmd.Flags().IntVar(&timeoutSec, "timeout", 10, "Probe timeout in seconds")
	cmd.Flags().IntVar(&staggerSec, "stagger", 45, "Delay between unit starts in seconds")
	cmd.Flags().IntVar(&opts.MaxLoginRetries, "max-login-retries", 2, "Login attempt budget per pair")
	cmd.Flags().StringVar(&opts.ProfileRoot, "profile-root", "profiles", "Root directory for isolated browser profiles")
	cmd.Flags().StringVar(&opts.FailuresPath, "failures", "failures.json", "Failure records artifact")
	cmd.Flags().StringVar(&opts.FlaggedPath, "flagged", "flagged_proxies.json", "Report file for proxies with failed probes")
	cmd.Flags().BoolVar(&opts.Headless, "headless", true, "Run browsers headless")
	cmd.Flags().StringSliceVar(&opts.ExtensionDirs, "extension", nil, "Browser extension directory (repeatable)")
	cmd.Flags().BoolVar(&opts.RemoveProfileOnCrash, "remove-profile-on-crash", false, "Delete profile dir after a fatal attempt error")

	return cmd
}
