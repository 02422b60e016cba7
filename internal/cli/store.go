package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"svcwatch/internal/app"
	"svcwatch/internal/snapshot"
	"svcwatch/internal/storage"
	logx "svcwatch/pkg/logx"
)

func newRegistryCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Manage monitored services",
	}

	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List monitored services by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, opts, func(ctx context.Context, core *app.Core) error {
				var (
					rows []storage.MonitoredService
					err  error
				)
				if all {
					rows, err = core.Store.ListMonitoredAll(ctx)
				} else {
					rows, err = core.Store.ListMonitored(ctx)
				}
				if err != nil {
					return err
				}
				return printJSON(opts.out, rows)
			})
		},
	}
	list.Flags().BoolVar(&all, "insertion-order", false, "order by registration instead of name")

	var noNotify, strict bool
	add := &cobra.Command{
		Use:   "add <unit>",
		Short: "Register a unit for monitoring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, opts, func(ctx context.Context, core *app.Core) error {
				if strict {
					id, err := core.Store.AddMonitored(ctx, args[0], !noNotify)
					if err != nil {
						return err
					}
					return printJSON(opts.out, map[string]any{"id": id, "service_name": args[0]})
				}
				created, err := core.Store.AddMonitoredIfAbsent(ctx, args[0], !noNotify)
				if err != nil {
					return err
				}
				return printJSON(opts.out, map[string]any{"created": created, "service_name": args[0]})
			})
		},
	}
	add.Flags().BoolVar(&noNotify, "no-notify", false, "do not notify when the unit fails")
	add.Flags().BoolVar(&strict, "strict", false, "fail if the unit is already registered")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one monitored service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			return withCore(cmd, opts, func(ctx context.Context, core *app.Core) error {
				m, err := core.Store.GetMonitored(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(opts.out, m)
			})
		},
	}

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a monitored service (unknown ids are ignored)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			return withCore(cmd, opts, func(ctx context.Context, core *app.Core) error {
				return core.Store.RemoveMonitored(ctx, id)
			})
		},
	}

	cmd.AddCommand(list, add, get, rm)
	return cmd
}

func newSettingsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the monitor settings",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Print the monitor settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, opts, func(ctx context.Context, core *app.Core) error {
				st, ok, err := core.Store.GetSettings(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("settings not initialized; run init-db")
				}
				return printJSON(opts.out, st)
			})
		},
	}

	var (
		autoRestart, alerts, whatsapp, email bool
		whatsappNumber, primary, secondary   string
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Update only the given settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var u storage.SettingsUpdate
			f := cmd.Flags()
			if f.Changed("auto-restart") {
				u.AutoRestart = &autoRestart
			}
			if f.Changed("alerts") {
				u.AlertsEnabled = &alerts
			}
			if f.Changed("whatsapp") {
				u.WhatsAppEnabled = &whatsapp
			}
			if f.Changed("email") {
				u.EmailEnabled = &email
			}
			if f.Changed("whatsapp-number") {
				var c storage.ChannelConfig
				if err := json.Unmarshal([]byte(whatsappNumber), &c); err != nil {
					return fmt.Errorf("--whatsapp-number must be a JSON object: %w", err)
				}
				u.WhatsAppNumber = &c
			}
			if f.Changed("primary-email") {
				u.PrimaryEmail = &primary
			}
			if f.Changed("secondary-email") {
				u.SecondaryEmail = &secondary
			}
			return withCore(cmd, opts, func(ctx context.Context, core *app.Core) error {
				if err := core.Store.UpsertSettings(ctx, u); err != nil {
					return err
				}
				st, _, err := core.Store.GetSettings(ctx)
				if err != nil {
					return err
				}
				return printJSON(opts.out, st)
			})
		},
	}
	sf := set.Flags()
	sf.BoolVar(&autoRestart, "auto-restart", false, "restart failed monitored units")
	sf.BoolVar(&alerts, "alerts", true, "enable alerts")
	sf.BoolVar(&whatsapp, "whatsapp", false, "enable the WhatsApp channel")
	sf.BoolVar(&email, "email", false, "enable the email channel")
	sf.StringVar(&whatsappNumber, "whatsapp-number", "", `WhatsApp channel config as JSON, e.g. '{"phone":"+1000"}'`)
	sf.StringVar(&primary, "primary-email", "", "primary alert address")
	sf.StringVar(&secondary, "secondary-email", "", "secondary alert address")

	cmd.AddCommand(get, set)
	return cmd
}

func newInitDBCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the database schema and the settings row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, opts, func(ctx context.Context, core *app.Core) error {
				if err := core.Store.Ping(ctx); err != nil {
					return err
				}
				fmt.Fprintln(opts.out, "database ready")
				return nil
			})
		},
	}
}

func newSnapshotCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Record the current state of every monitored service once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, opts, func(ctx context.Context, core *app.Core) error {
				res, err := snapshot.Once(ctx, core.Store, core.Status, logx.Nop())
				if err != nil {
					return err
				}
				return printJSON(opts.out, res)
			})
		},
	}
}
