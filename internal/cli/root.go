// Package cli is the svcwatch command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"svcwatch/internal/app"
)

type options struct {
	cfgPath string
	out     io.Writer
}

// Execute runs the root command against os.Args.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return NewRootCmd(os.Stdout).ExecuteContext(ctx)
}

// NewRootCmd builds the command tree writing results to out.
func NewRootCmd(out io.Writer) *cobra.Command {
	opts := &options{out: out}
	root := &cobra.Command{
		Use:           "svcwatch",
		Short:         "Observe and control systemd services",
		Long:          `svcwatch reports unit status and resource usage, runs lifecycle actions and keeps a registry of monitored services.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.cfgPath, "config", "", "config file path (default $SVCWATCH_CONFIG or ./svcwatch.yaml)")

	root.AddCommand(
		newServeCmd(opts),
		newStatusCmd(opts),
		newUnitsCmd(opts),
		newOverviewCmd(opts),
		newLogsCmd(opts),
		newActionCmd(opts),
		newRegistryCmd(opts),
		newSettingsCmd(opts),
		newInitDBCmd(opts),
		newSnapshotCmd(opts),
	)
	return root
}

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := app.NewApp(ctx, opts.cfgPath)
			if err != nil {
				return err
			}
			if err := a.Start(ctx); err != nil {
				return err
			}
			<-a.Done()

			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := a.Stop(stopCtx); err != nil {
				return fmt.Errorf("stop: %w", err)
			}
			return nil
		},
	}
}

// withCore boots config and logging, opens the core for one command and
// releases it afterwards.
func withCore(cmd *cobra.Command, opts *options, fn func(ctx context.Context, core *app.Core) error) error {
	env, err := app.Boot(opts.cfgPath)
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	core, err := app.NewCore(ctx, env.Config, env.Log)
	if err != nil {
		return err
	}
	defer core.Close()
	return fn(ctx, core)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
