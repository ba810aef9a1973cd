// Package cli implements the remindctl operator commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/benvon/email-reminders/internal/app"
	"github.com/benvon/email-reminders/internal/commands"
	"github.com/benvon/email-reminders/internal/config"
	"github.com/benvon/email-reminders/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Env is what commands need from the outside world
type Env struct {
	// Open builds the application. The returned func releases it.
	Open func(ctx context.Context, debug bool) (*app.App, func(), error)
	Out  io.Writer
	In   io.Reader
	Now  func() time.Time
}

// DefaultEnv opens the store configured in the environment
func DefaultEnv() Env {
	return Env{
		Open: openFromConfig,
		Out:  os.Stdout,
		In:   os.Stdin,
		Now:  time.Now,
	}
}

func openFromConfig(ctx context.Context, debug bool) (*app.App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := zap.NewNop()
	if debug {
		if log, err = logger.NewDevelopmentLogger(true); err != nil {
			return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return a, func() {
		if err := a.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close store: %v\n", err)
		}
		_ = logger.Sync(log)
	}, nil
}

type runner struct {
	env   Env
	debug bool
}

// withApp opens the application for the duration of fn
func (r *runner) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, release, err := r.env.Open(ctx, r.debug)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx, a)
}

// run executes a command and turns a failed response into an error
func run(ctx context.Context, a *app.App, req commands.Request) (commands.Response, error) {
	resp := a.Dispatcher.Handle(ctx, req)
	if !resp.Success {
		return resp, fmt.Errorf("%s: %s", req.Action, resp.Error)
	}
	return resp, nil
}

// NewRootCmd builds the remindctl command tree
func NewRootCmd(env Env) *cobra.Command {
	r := &runner{env: env}

	root := &cobra.Command{
		Use:           "remindctl",
		Short:         "Operator tool for email reminders",
		Long:          "List, back up, restore and maintain email reminders directly against the configured store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&r.debug, "debug", false, "Log to stderr while running")
	root.SetOut(env.Out)
	root.SetIn(env.In)

	root.AddCommand(
		newListCmd(r),
		newExportCmd(r),
		newImportCmd(r),
		newClearCmd(r),
		newSettingsCmd(r),
		newCheckCmd(r),
	)
	return root
}
