package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Patrol/internal/prober"
	"github.com/shaiso/Patrol/internal/repo"
	"github.com/shaiso/Patrol/internal/runner"
)

// NewValidateCmd создаёт команду проверки прокси.
func NewValidateCmd(dbFn func() string, outputFn func() *Output) *cobra.Command {
	var proxiesFile string
	var targetURL string
	var serviceTag string
	var chunkSize int
	var timeoutSec int
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Probe candidate proxies against the target",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := outputFn()

			proxies, err := runner.ReadLines(proxiesFile)
			if err != nil {
				return err
			}

			pool := prober.New(prober.Config{
				TargetURL:  targetURL,
				ServiceTag: serviceTag,
				ChunkSize:  chunkSize,
				Timeout:    time.Duration(timeoutSec) * time.Second,
			})

			results, err := pool.Validate(ctx, proxies)
			if err != nil {
				return err
			}

			if !dryRun {
				db, err := repo.Open(ctx, dbFn())
				if err != nil {
					return err
				}
				defer db.Close()

				if err := repo.NewProbeRepo(db).Replace(ctx, results); err != nil {
					return err
				}
			}

			headers := []string{"PROXY", "SUCCESS", "FAIL"}
			rows := make([][]string, len(results))
			for i, r := range results {
				rows[i] = []string{
					r.Proxy,
					strings.Join(r.Success, ","),
					strings.Join(r.Fail, ","),
				}
			}
			out.Print(headers, rows, results)
			return nil
		},
	}

	cmd.Flags().StringVar(&proxiesFile, "proxies", "proxies.txt", "File with candidate proxies, one per line")
	cmd.Flags().StringVar(&targetURL, "target", "https://www.google.com", "Probe target URL")
	cmd.Flags().StringVar(&serviceTag, "tag", "target-service", "Service tag recorded in probe results")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 10, "Proxies per validation worker")
	cmd.Flags().IntVar(&timeoutSec, "timeout", 10, "Probe timeout in seconds")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Do not persist probe results")

	return cmd
}
