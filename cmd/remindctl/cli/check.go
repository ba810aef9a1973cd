package cli

import (
	"context"
	"fmt"

	"github.com/benvon/email-reminders/internal/app"
	"github.com/spf13/cobra"
)

func newCheckCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run one due-check pass",
		Long:  "Fire notifications for every reminder that is due now, then exit. Useful from cron when the server is not running.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				fired, err := a.DueChecker.CheckDue(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d reminders due\n", fired)
				return nil
			})
		},
	}
}
