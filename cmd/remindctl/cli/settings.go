package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/benvon/email-reminders/internal/app"
	"github.com/benvon/email-reminders/internal/commands"
	"github.com/spf13/cobra"
)

func newSettingsCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change preferences",
	}
	cmd.AddCommand(newSettingsGetCmd(r), newSettingsSetCmd(r))
	return cmd
}

func newSettingsGetCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the saved preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				resp, err := run(ctx, a, commands.Request{Action: commands.ActionGetSettings})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s minutes\n", headerStyle.Render("Check interval:"), resp.Settings.CheckInterval)
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", headerStyle.Render("Default time:  "), resp.Settings.DefaultTime)
				return nil
			})
		},
	}
}

func newSettingsSetCmd(r *runner) *cobra.Command {
	var (
		interval    int
		defaultTime string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change preferences",
		Long:  "Change the due-check interval and the default reminder time. Unset flags keep their saved value.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("interval") && !cmd.Flags().Changed("default-time") {
				return fmt.Errorf("nothing to change: pass --interval or --default-time")
			}

			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				current, err := run(ctx, a, commands.Request{Action: commands.ActionGetSettings})
				if err != nil {
					return err
				}
				s := *current.Settings
				if cmd.Flags().Changed("interval") {
					s.CheckInterval = strconv.Itoa(interval)
				}
				if cmd.Flags().Changed("default-time") {
					s.DefaultTime = defaultTime
				}

				data, err := json.Marshal(s)
				if err != nil {
					return err
				}
				if _, err := run(ctx, a, commands.Request{Action: commands.ActionSaveSettings, Data: data}); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Settings saved")
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&interval, "interval", 0, "Due-check interval in minutes")
	cmd.Flags().StringVar(&defaultTime, "default-time", "", "Default reminder time as HH:MM")
	return cmd
}
