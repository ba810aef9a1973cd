package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/benvon/email-reminders/internal/app"
	"github.com/benvon/email-reminders/internal/commands"
	"github.com/benvon/email-reminders/internal/models"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	overdueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)

	statusStyles = map[models.Status]lipgloss.Style{
		models.StatusPending:   lipgloss.NewStyle().Foreground(lipgloss.Color("75")),
		models.StatusSnoozed:   lipgloss.NewStyle().Foreground(lipgloss.Color("183")),
		models.StatusNotified:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		models.StatusCompleted: lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
		models.StatusDismissed: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
)

func newListCmd(r *runner) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reminders",
		Long:  "List reminders ordered by due date. --filter narrows to active, pending, completed or dismissed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				resp, err := run(ctx, a, commands.Request{Action: commands.ActionGetReminders, Filter: filter})
				if err != nil {
					return err
				}
				renderReminders(cmd.OutOrStdout(), resp.Reminders, r.env.Now())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "all", "active, pending, completed, dismissed or all")
	return cmd
}

func renderReminders(w io.Writer, reminders []*models.Reminder, now time.Time) {
	if len(reminders) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No reminders found"))
		return
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-10s  %-16s  %-32s  %s", "STATUS", "DUE", "SUBJECT", "ID")))
	for _, rem := range reminders {
		status := fmt.Sprintf("%-10s", rem.Status)
		if style, ok := statusStyles[rem.Status]; ok {
			status = style.Render(status)
		}

		due := fmt.Sprintf("%-16s", rem.DueDate.Local().Format("2006-01-02 15:04"))
		if rem.Status.IsActive() && !rem.DueDate.After(now) {
			due = overdueStyle.Render(due)
		}

		fmt.Fprintf(w, "%s  %s  %-32s  %s\n", status, due, truncate(rem.Subject, 32), dimStyle.Render(rem.ID))
		if rem.Notes != "" {
			fmt.Fprintf(w, "            %s\n", dimStyle.Render(strings.ReplaceAll(rem.Notes, "\n", " ")))
		}
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
