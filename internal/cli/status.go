package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shaiso/Patrol/internal/domain"
	"github.com/shaiso/Patrol/internal/repo"
)

// NewStatusCmd создаёт команду просмотра состояния tasks.
func NewStatusCmd(dbFn func() string, outputFn func() *Output) *cobra.Command {
	var service string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show task table summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := outputFn()

			db, err := repo.Open(ctx, dbFn())
			if err != nil {
				return err
			}
			defer db.Close()

			taskRepo := repo.NewTaskRepo(db)

			if service != "" {
				tasks, err := taskRepo.ListByService(ctx, service)
				if err != nil {
					return err
				}

				headers := []string{"ID", "CREDENTIAL_ID", "PROXY", "STATE", "RETRIES", "POINT", "UPDATED"}
				rows := make([][]string, len(tasks))
				for i, t := range tasks {
					rows[i] = []string{
						strconv.FormatInt(t.ID, 10),
						strconv.FormatInt(t.CredentialID, 10),
						t.Proxy,
						string(t.State),
						strconv.Itoa(t.RetryCount),
						strconv.Itoa(t.Point),
						t.LastUpdated.Format("2006-01-02 15:04:05"),
					}
				}
				out.Print(headers, rows, tasks)
				return nil
			}

			counts, err := taskRepo.CountByState(ctx)
			if err != nil {
				return err
			}

			headers := []string{"STATE", "COUNT"}
			states := []domain.TaskState{
				domain.TaskStatePending,
				domain.TaskStateSuccess,
				domain.TaskStateFailed,
			}
			rows := make([][]string, 0, len(states))
			for _, st := range states {
				rows = append(rows, []string{string(st), strconv.Itoa(counts[st])})
			}
			out.Print(headers, rows, counts)
			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "List individual tasks for a service")

	return cmd
}
