package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/warp/qrelease/api"
	"github.com/warp/qrelease/factory"
	"github.com/warp/qrelease/release"
	"github.com/warp/qrelease/store/sqlite"
)

func newCalendarsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "calendars",
		Aliases: []string{"calendar", "cal"},
		Short:   "Manage stored release calendars",
	}

	cmd.AddCommand(newCalendarsListCommand(ctx))
	cmd.AddCommand(newCalendarsAddCommand(ctx))
	cmd.AddCommand(newCalendarsShowCommand(ctx))
	cmd.AddCommand(newCalendarsDeleteCommand(ctx))
	cmd.AddCommand(newCalendarsSeedCommand(ctx))
	return cmd
}

func newCalendarsListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored calendars",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *sqlite.Store) error {
				cals, err := store.ListCalendars(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					out := make([]factory.CalendarJSON, len(cals))
					for i, cal := range cals {
						out[i] = factory.ToJSON(cal)
					}
					return writeJSON(cmd, out)
				}
				if len(cals) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No calendars stored; run `qrelease calendars seed` to add the presets")
					return nil
				}

				headers := []string{"ID", "Name", "Width", "Align", "Prev", "Next", "Version", "Updated"}
				aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft}
				rows := make([][]string, 0, len(cals))
				for _, cal := range cals {
					rows = append(rows, []string{
						cal.ID,
						cal.Name,
						strconv.Itoa(cal.Width),
						string(cal.Alignment),
						strconv.Itoa(cal.Previous),
						strconv.Itoa(cal.Next),
						strconv.Itoa(cal.Version),
						humanize.Time(cal.UpdatedAt),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newCalendarsAddCommand(ctx *commandContext) *cobra.Command {
	var req factory.CalendarJSON
	var previous, next int

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create or update a calendar",
		Example: `  qrelease calendars add "Mobile train" --every monthly --previous 3 --next 3
  qrelease calendars add Platform --id platform --width 3 --align legacy`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Name = args[0]
			if cmd.Flags().Changed("previous") {
				req.Previous = &previous
			}
			if cmd.Flags().Changed("next") {
				req.Next = &next
			}

			cal, err := factory.NewCalendarFactory().FromJSON(req)
			if err != nil {
				return err
			}

			return ctx.withStore(func(store *sqlite.Store) error {
				if err := store.SaveCalendar(cmd.Context(), cal); err != nil {
					return err
				}
				saved, err := store.GetCalendar(cmd.Context(), cal.ID)
				if err != nil {
					return err
				}
				if logger, err := ctx.ensureLogger(cmd); err == nil {
					logger.Info("calendar saved", "id", saved.ID, "version", saved.Version)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved calendar %s (width %d, %s alignment, version %d)\n",
					saved.ID, saved.Width, saved.Alignment, saved.Version)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.ID, "id", "", "Calendar ID (default: derived from the name)")
	cmd.Flags().IntVarP(&req.Width, "width", "w", 0, "Months per release period")
	cmd.Flags().StringVar(&req.Cadence, "every", "", "Named cadence instead of --width")
	cmd.Flags().StringVar(&req.Alignment, "align", "", "Bucketing rule: calendar or legacy")
	cmd.Flags().IntVarP(&previous, "previous", "p", factory.DefaultPrevious, "Periods shown before the current one")
	cmd.Flags().IntVarP(&next, "next", "n", factory.DefaultNext, "Periods shown after the current one")
	return cmd
}

func newCalendarsShowCommand(ctx *commandContext) *cobra.Command {
	opts := &windowOptions{}

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored calendar's release window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			win, clock, name, err := storedCalendarWindow(cmd, ctx, opts, args[0], "")
			if err != nil {
				return err
			}
			now := clock.Now()
			if opts.asJSON {
				return writeJSON(cmd, api.NewWindowDTO(win, release.DateOf(now), now))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s, every %d month(s), %s alignment)\n", name, args[0], win.Width, win.Alignment)
			fmt.Fprintln(out, renderWindow(win, now, shouldColorize(out)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.date, "date", "d", "", "Anchor date (YYYY-MM-DD, YYYY.MM or YYMM); defaults to today")
	cmd.Flags().StringVarP(&opts.release, "release", "r", "", "Anchor release label (YYYY.MM)")
	opts.bindWindowFlags(cmd)
	opts.bindJSONFlag(cmd)
	return cmd
}

func newCalendarsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a stored calendar",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *sqlite.Store) error {
				if err := store.DeleteCalendar(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted calendar %s\n", args[0])
				return nil
			})
		},
	}
}

func newCalendarsSeedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Store the preset calendars (quarterly, monthly, bimonthly, semiannual)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *sqlite.Store) error {
				defaults := factory.DefaultCalendars()
				for _, cal := range defaults {
					if err := store.SaveCalendar(cmd.Context(), cal); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stored %d preset calendars\n", len(defaults))
				return nil
			})
		},
	}
}
