package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/Patrol/internal/assign"
	"github.com/shaiso/Patrol/internal/repo"
	"github.com/shaiso/Patrol/internal/runner"
)

// NewAssignCmd создаёт команду назначения прокси credentials.
func NewAssignCmd(dbFn func() string, outputFn func() *Output) *cobra.Command {
	var credentialsFile string
	var maxPerCredential int
	var flaggedPath string

	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Bind credentials to validated proxies",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := outputFn()

			secrets, err := runner.ReadLines(credentialsFile)
			if err != nil {
				return err
			}

			db, err := repo.Open(ctx, dbFn())
			if err != nil {
				return err
			}
			defer db.Close()

			probed, err := repo.NewProbeRepo(db).List(ctx)
			if err != nil {
				return err
			}

			assigner := assign.New(assign.Config{
				CredRepo:         repo.NewCredentialRepo(db),
				MaxPerCredential: maxPerCredential,
				FlaggedPath:      flaggedPath,
			})

			results := assigner.Assign(ctx, secrets, probed)

			headers := []string{"CREDENTIAL", "PROXIES"}
			rows := make([][]string, len(results))
			for i, r := range results {
				rows[i] = []string{r.SecretValue, strings.Join(r.Proxies, ",")}
			}
			out.Print(headers, rows, results)
			return nil
		},
	}

	cmd.Flags().StringVar(&credentialsFile, "credentials", "credentials.txt", "File with credential secrets, one per line")
	cmd.Flags().IntVar(&maxPerCredential, "max-per-credential", 1, "Upper bound of proxies per credential")
	cmd.Flags().StringVar(&flaggedPath, "flagged", "flagged_proxies.json", "Report file for proxies with failed probes")

	return cmd
}
