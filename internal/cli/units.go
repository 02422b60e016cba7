package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"svcwatch/internal/app"
	"svcwatch/internal/units"
)

func newStatusCmd(opts *options) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "status <unit>",
		Short: "Show the normalized status of a unit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, opts, func(ctx context.Context, core *app.Core) error {
				src := core.Status.Source()
				if source != "" {
					src = units.ParseResourceSource(source)
				}
				return printJSON(opts.out, core.Status.StatusFrom(ctx, args[0], src))
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "resource source: manager_counters or process_table")
	return cmd
}

func newUnitsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "units",
		Short: "List service units known to the manager",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, opts, func(ctx context.Context, core *app.Core) error {
				list, err := core.Catalog.ListUnits(ctx)
				if err != nil {
					return err
				}
				return printJSON(opts.out, list)
			})
		},
	}
}

func newOverviewCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Status and process-table usage for every service unit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, opts, func(ctx context.Context, core *app.Core) error {
				list, err := core.Catalog.Overview(ctx)
				if err != nil {
					return err
				}
				return printJSON(opts.out, list)
			})
		},
	}
}

func newLogsCmd(opts *options) *cobra.Command {
	var lines int
	cmd := &cobra.Command{
		Use:   "logs <unit>",
		Short: "Print the last journal lines of a unit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, opts, func(ctx context.Context, core *app.Core) error {
				out, err := core.Catalog.Logs(ctx, args[0], lines)
				if err != nil {
					return err
				}
				for _, l := range out {
					fmt.Fprintln(opts.out, l)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 0, "number of lines (0 = configured default)")
	return cmd
}

func newActionCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "action <unit> <start|stop|restart|reload|enable|disable>",
		Short:     "Run a lifecycle action against a unit",
		Args:      cobra.ExactArgs(2),
		ValidArgs: actionNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, opts, func(ctx context.Context, core *app.Core) error {
				res, err := core.Actions.Execute(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if err := printJSON(opts.out, res); err != nil {
					return err
				}
				if !res.Success {
					return fmt.Errorf("%s %s failed", args[1], args[0])
				}
				return nil
			})
		},
	}
}

func actionNames() []string {
	out := make([]string, 0, len(units.Actions))
	for _, a := range units.Actions {
		out = append(out, string(a))
	}
	return out
}
