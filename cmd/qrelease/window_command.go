package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/warp/qrelease/api"
	"github.com/warp/qrelease/export"
	"github.com/warp/qrelease/release"
	"github.com/warp/qrelease/store/sqlite"
)

// windowOptions collects the flags shared by window, period and ics.
type windowOptions struct {
	date     string
	release  string
	width    int
	every    string
	monthly  bool
	align    string
	previous int
	next     int
	asJSON   bool
}

func (o *windowOptions) bindPeriodFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.date, "date", "d", "", "Anchor date (YYYY-MM-DD, YYYY.MM or YYMM); defaults to today")
	cmd.Flags().StringVarP(&o.release, "release", "r", "", "Anchor release label (YYYY.MM)")
	cmd.Flags().IntVarP(&o.width, "width", "w", 0, "Months per release period")
	cmd.Flags().StringVar(&o.every, "every", "", "Named cadence: monthly, bimonthly, quarterly, triannual, semiannual, annual")
	cmd.Flags().BoolVarP(&o.monthly, "monthly", "m", false, "Shorthand for --width 1")
	cmd.Flags().StringVar(&o.align, "align", "", "Bucketing rule: calendar or legacy")
}

func (o *windowOptions) bindWindowFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&o.previous, "previous", "p", 0, "Periods to list before the current one")
	cmd.Flags().IntVarP(&o.next, "next", "n", 0, "Periods to list after the current one")
}

func (o *windowOptions) bindJSONFlag(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.asJSON, "json", false, "Emit JSON instead of a table")
}

// resolvedWindow is everything a command needs after flags and config merge.
type resolvedWindow struct {
	calc     *release.Calculator
	clock    release.Clock
	anchor   release.Date
	previous int
	next     int
}

func (o *windowOptions) resolve(cmd *cobra.Command, ctx *commandContext) (resolvedWindow, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return resolvedWindow{}, err
	}
	clock, err := ctx.clock()
	if err != nil {
		return resolvedWindow{}, err
	}

	width, err := o.resolveWidth(cmd, cfg.Calendar.Width)
	if err != nil {
		return resolvedWindow{}, err
	}

	align := cfg.AlignmentValue()
	if o.align != "" {
		if align, err = release.ParseAlignment(o.align); err != nil {
			return resolvedWindow{}, err
		}
	}

	calc, err := release.NewCalculator(width, release.WithAlignment(align), release.WithClock(clock))
	if err != nil {
		return resolvedWindow{}, err
	}

	anchor, err := o.resolveAnchor(calc)
	if err != nil {
		return resolvedWindow{}, err
	}

	rw := resolvedWindow{
		calc:     calc,
		clock:    clock,
		anchor:   anchor,
		previous: cfg.Calendar.Previous,
		next:     cfg.Calendar.Next,
	}
	if flag := cmd.Flags().Lookup("previous"); flag != nil && flag.Changed {
		rw.previous = o.previous
	}
	if flag := cmd.Flags().Lookup("next"); flag != nil && flag.Changed {
		rw.next = o.next
	}
	return rw, nil
}

func (o *windowOptions) resolveWidth(cmd *cobra.Command, def int) (int, error) {
	var sources []string
	width := def

	if cmd.Flags().Changed("width") {
		width = o.width
		sources = append(sources, "--width")
	}
	if o.every != "" {
		named, ok := release.WidthForName(o.every)
		if !ok {
			return 0, fmt.Errorf("%w: unknown cadence %q", release.ErrInvalidPeriodWidth, o.every)
		}
		width = named
		sources = append(sources, "--every")
	}
	if o.monthly {
		width = 1
		sources = append(sources, "--monthly")
	}
	if len(sources) > 1 {
		return 0, fmt.Errorf("%s are mutually exclusive", strings.Join(sources, ", "))
	}
	if width < 1 {
		return 0, &release.PeriodWidthError{Width: width}
	}
	return width, nil
}

func (o *windowOptions) resolveAnchor(calc *release.Calculator) (release.Date, error) {
	date := strings.TrimSpace(o.date)
	rel := strings.TrimSpace(o.release)
	switch {
	case date != "" && rel != "":
		return release.Date{}, errors.New("--date and --release are mutually exclusive")
	case rel != "":
		return release.ParseRelease(rel)
	case date != "":
		return release.ParseAnchor(date)
	default:
		return calc.Today(), nil
	}
}

// =============================================================================
// WINDOW
// =============================================================================

func newWindowCommand(ctx *commandContext) *cobra.Command {
	opts := &windowOptions{}

	cmd := &cobra.Command{
		Use:   "window",
		Short: "Show the current release period and its neighbours",
		Example: `  qrelease window
  qrelease window --date 2009-08-12 --every bimonthly --align legacy
  qrelease window --width 6 --previous 8 --next 8 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rw, err := opts.resolve(cmd, ctx)
			if err != nil {
				return err
			}
			win, err := rw.calc.Window(rw.anchor, rw.previous, rw.next)
			if err != nil {
				return err
			}
			if logger, err := ctx.ensureLogger(cmd); err == nil {
				logger.Debug("window computed",
					"anchor", rw.anchor.String(),
					"width", win.Width,
					"alignment", win.Alignment,
					"current", win.Current.Release,
				)
			}

			now := rw.clock.Now()
			if opts.asJSON {
				return writeJSON(cmd, api.NewWindowDTO(win, release.DateOf(now), now))
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderWindow(win, now, shouldColorize(cmd.OutOrStdout())))
			return nil
		},
	}

	opts.bindPeriodFlags(cmd)
	opts.bindWindowFlags(cmd)
	opts.bindJSONFlag(cmd)
	return cmd
}

// windowRowOffsets orders rows the way the release table has always read:
// current first, then older periods nearest-first, then upcoming ones.
func windowRowOffsets(w release.Window) []int {
	offsets := []int{0}
	for i := 1; i <= len(w.Previous); i++ {
		offsets = append(offsets, -i)
	}
	for i := 1; i <= len(w.Next); i++ {
		offsets = append(offsets, i)
	}
	return offsets
}

func renderWindow(w release.Window, now time.Time, colorize bool) string {
	headers := []string{"Item", "Release", "Abbr", "Folder", "Year", "Month", "Starts"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft}

	offsets := windowRowOffsets(w)
	rows := make([][]string, 0, len(offsets))
	for _, off := range offsets {
		p, _ := w.At(off)
		row := periodRow(p, off, now)
		if off == 0 && colorize {
			for i := range row {
				row[i] = text.Bold.Sprint(row[i])
			}
		}
		rows = append(rows, row)
	}
	return renderTable(headers, rows, aligns)
}

func periodRow(p release.Period, offset int, now time.Time) []string {
	return []string{
		release.OffsetLabel(offset),
		p.Release,
		p.Abbreviation,
		p.Folder,
		strconv.Itoa(p.Year),
		p.MonthString(),
		humanize.RelTime(p.Start.Time, now, "ago", "from now"),
	}
}

// =============================================================================
// PERIOD
// =============================================================================

func newPeriodCommand(ctx *commandContext) *cobra.Command {
	opts := &windowOptions{}
	var field string

	cmd := &cobra.Command{
		Use:   "period [offset]",
		Short: "Show a single release period relative to the anchor",
		Long: `Show a single release period. The offset is a signed number of periods
from the anchor's period, or one of current, previous, next.
Negative numbers must follow "--", e.g. "qrelease period -- -2".`,
		Example: `  qrelease period next --field release
  qrelease period --date 2024-08-12 -- -2`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			offset := 0
			if len(args) == 1 {
				var err error
				if offset, err = parseOffset(args[0]); err != nil {
					return err
				}
			}

			rw, err := opts.resolve(cmd, ctx)
			if err != nil {
				return err
			}
			p := rw.calc.PeriodAt(rw.anchor, offset)
			now := rw.clock.Now()

			out := cmd.OutOrStdout()
			switch {
			case opts.asJSON:
				return writeJSON(cmd, api.NewPeriodDTO(p, offset, release.DateOf(now), now))
			case field != "":
				value, err := periodField(p, field)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, value)
				return nil
			default:
				headers := []string{"Item", "Release", "Abbr", "Folder", "Year", "Month", "Starts"}
				aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft}
				fmt.Fprintln(out, renderTable(headers, [][]string{periodRow(p, offset, now)}, aligns))
				return nil
			}
		},
	}

	opts.bindPeriodFlags(cmd)
	opts.bindJSONFlag(cmd)
	cmd.Flags().StringVarP(&field, "field", "f", "", "Print one value: release, abbr, folder, year, month, start, end")
	return cmd
}

func parseOffset(raw string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "current", "now":
		return 0, nil
	case "previous", "prev":
		return -1, nil
	case "next":
		return 1, nil
	}
	n, err := strconv.Atoi(strings.TrimPrefix(raw, "+"))
	if err != nil {
		return 0, fmt.Errorf("invalid offset %q: want a signed integer or current/previous/next", raw)
	}
	return n, nil
}

func periodField(p release.Period, field string) (string, error) {
	switch strings.ToLower(field) {
	case "release":
		return p.Release, nil
	case "abbr", "abbreviation":
		return p.Abbreviation, nil
	case "folder":
		return p.Folder, nil
	case "year":
		return strconv.Itoa(p.Year), nil
	case "month":
		return p.MonthString(), nil
	case "start":
		return p.Start.String(), nil
	case "end":
		return p.End.String(), nil
	default:
		return "", fmt.Errorf("unknown field %q", field)
	}
}

// =============================================================================
// ICS
// =============================================================================

func newICSCommand(ctx *commandContext) *cobra.Command {
	opts := &windowOptions{}
	var calendarID string
	var name string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "ics",
		Short: "Export the release window as an iCalendar feed",
		Example: `  qrelease ics --every quarterly --previous 4 --next 4 -o releases.ics
  qrelease ics --calendar quarterly`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				win   release.Window
				clock release.Clock
				err   error
			)
			if calendarID != "" {
				win, clock, name, err = storedCalendarWindow(cmd, ctx, opts, calendarID, name)
			} else {
				var rw resolvedWindow
				if rw, err = opts.resolve(cmd, ctx); err == nil {
					clock = rw.clock
					win, err = rw.calc.Window(rw.anchor, rw.previous, rw.next)
				}
				if name == "" {
					name = "Releases"
				}
			}
			if err != nil {
				return err
			}

			feed := export.ICS(win, name, clock.Now())
			if outputPath == "" || outputPath == "-" {
				_, err := io.WriteString(cmd.OutOrStdout(), feed)
				return err
			}
			if err := os.WriteFile(outputPath, []byte(feed), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outputPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d events to %s\n", win.Len(), outputPath)
			return nil
		},
	}

	opts.bindPeriodFlags(cmd)
	opts.bindWindowFlags(cmd)
	cmd.Flags().StringVar(&calendarID, "calendar", "", "Use a stored calendar's width, alignment and window")
	cmd.Flags().StringVar(&name, "name", "", "Calendar name written to the feed")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

// storedCalendarWindow loads a calendar from the store and computes its
// window around --date; --previous/--next still override its sizes.
func storedCalendarWindow(cmd *cobra.Command, ctx *commandContext, opts *windowOptions, id, name string) (release.Window, release.Clock, string, error) {
	clock, err := ctx.clock()
	if err != nil {
		return release.Window{}, nil, "", err
	}

	var cal release.Calendar
	if err := ctx.withStore(func(store *sqlite.Store) error {
		var err error
		cal, err = store.GetCalendar(cmd.Context(), id)
		return err
	}); err != nil {
		return release.Window{}, nil, "", err
	}

	calc, err := cal.Calculator(clock)
	if err != nil {
		return release.Window{}, nil, "", err
	}
	anchor, err := opts.resolveAnchor(calc)
	if err != nil {
		return release.Window{}, nil, "", err
	}
	previous, next := cal.Previous, cal.Next
	if cmd.Flags().Changed("previous") {
		previous = opts.previous
	}
	if cmd.Flags().Changed("next") {
		next = opts.next
	}
	win, err := calc.Window(anchor, previous, next)
	if err != nil {
		return release.Window{}, nil, "", err
	}
	if name == "" {
		name = cal.Name
	}
	return win, clock, name, nil
}
