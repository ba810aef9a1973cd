package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/benvon/email-reminders/internal/app"
	"github.com/benvon/email-reminders/internal/commands"
	"github.com/benvon/email-reminders/internal/export"
	"github.com/spf13/cobra"
)

func newExportCmd(r *runner) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every reminder to a backup file",
		Long:  "Export all reminders as json, yaml or ics. Without --output the backup is written to stdout.",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				resp, err := run(ctx, a, commands.Request{Action: commands.ActionExportReminders})
				if err != nil {
					return err
				}

				var w io.Writer = cmd.OutOrStdout()
				if output != "" {
					file, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("failed to create %s: %w", output, err)
					}
					defer file.Close()
					w = file
				}

				if err := export.Encode(w, resp.Export, f); err != nil {
					return fmt.Errorf("failed to write export: %w", err)
				}
				if output != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d reminders to %s\n", len(resp.Export.Reminders), output)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "json, yaml or ics")
	cmd.Flags().StringVarP(&output, "output", "o", "", "File to write instead of stdout")
	return cmd
}

func newImportCmd(r *runner) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Merge a backup file into the store",
		Long:  "Import reminders from a json or yaml backup. Reminders whose id already exists are skipped. Use - to read stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if format == "" && path != "-" {
				format = filepath.Ext(path)
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			var in io.Reader = cmd.InOrStdin()
			if path != "-" {
				file, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", path, err)
				}
				defer file.Close()
				in = file
			}

			backup, err := export.Decode(in, f)
			if err != nil {
				return fmt.Errorf("%s: %w", commands.MsgInvalidImport, err)
			}
			data, err := json.Marshal(backup)
			if err != nil {
				return fmt.Errorf("failed to encode backup: %w", err)
			}

			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				resp, err := run(ctx, a, commands.Request{Action: commands.ActionImportReminders, Data: data})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d reminders, skipped %d\n", *resp.Imported, *resp.Skipped)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "json or yaml, defaults to the file extension")
	return cmd
}

func newClearCmd(r *runner) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete completed and dismissed reminders",
		Long:  "Delete archived reminders. With --all every reminder is deleted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			action := commands.ActionClearCompleted
			if all {
				action = commands.ActionClearAll
			}
			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				resp, err := run(ctx, a, commands.Request{Action: action})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d reminders\n", *resp.Cleared)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Delete every reminder, not only archived ones")
	return cmd
}
