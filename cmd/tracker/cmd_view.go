package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/justsurfingit/Placement-Tracker/internal/models"
	"github.com/justsurfingit/Placement-Tracker/internal/services"
	"github.com/spf13/cobra"
)

// viewFlags are the search, filter and sort flags shared by list and export.
type viewFlags struct {
	search       string
	statuses     []string
	locations    []string
	ctcMin       float64
	ctcMax       float64
	deadlineFrom string
	deadlineTo   string
	hasDeadline  bool
	hasTest      bool
	hasInterview bool
	sort         string
	desc         bool
}

func (f *viewFlags) bind(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.search, "search", "s", "", "Search company, role, location and status")
	fl.StringSliceVar(&f.statuses, "status", nil, "Only these statuses (repeatable)")
	fl.StringSliceVar(&f.locations, "location", nil, "Only these locations (repeatable)")
	fl.Float64Var(&f.ctcMin, "ctc-min", 0, "Minimum CTC in LPA")
	fl.Float64Var(&f.ctcMax, "ctc-max", 0, "Maximum CTC in LPA")
	fl.StringVar(&f.deadlineFrom, "deadline-from", "", "Registration deadline on or after (YYYY-MM-DD)")
	fl.StringVar(&f.deadlineTo, "deadline-to", "", "Registration deadline on or before (YYYY-MM-DD)")
	fl.BoolVar(&f.hasDeadline, "has-deadline", false, "Only placements with (or, =false, without) a deadline")
	fl.BoolVar(&f.hasTest, "has-test", false, "Only placements with (or, =false, without) a test round")
	fl.BoolVar(&f.hasInterview, "has-interview", false, "Only placements with (or, =false, without) an interview")
	fl.StringVar(&f.sort, "sort", "created_at", "Sort by company_name, status, ctc, created_at or registration_deadline")
	fl.BoolVar(&f.desc, "desc", false, "Sort descending (created_at is always newest first unless --sort is given)")
}

var narrowingFlags = []string{
	"search", "status", "location", "ctc-min", "ctc-max",
	"deadline-from", "deadline-to", "has-deadline", "has-test", "has-interview",
}

// narrowed reports whether any search or filter flag was given.
func (f *viewFlags) narrowed(cmd *cobra.Command) bool {
	for _, name := range narrowingFlags {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func (f *viewFlags) query(cmd *cobra.Command) (services.ViewQuery, error) {
	q := services.ViewQuery{Search: f.search, Sort: services.DefaultSort}
	fl := cmd.Flags()

	for _, raw := range f.statuses {
		st, ok := models.ParseStatus(raw)
		if !ok {
			return q, fmt.Errorf("unknown status %q", raw)
		}
		q.Filters.Statuses = append(q.Filters.Statuses, st)
	}
	q.Filters.Locations = f.locations
	if fl.Changed("ctc-min") {
		v := f.ctcMin
		q.Filters.CTCMin = &v
	}
	if fl.Changed("ctc-max") {
		v := f.ctcMax
		q.Filters.CTCMax = &v
	}
	var err error
	if f.deadlineFrom != "" {
		if q.Filters.DeadlineFrom, err = models.ParseDate(f.deadlineFrom); err != nil {
			return q, err
		}
	}
	if f.deadlineTo != "" {
		if q.Filters.DeadlineTo, err = models.ParseDate(f.deadlineTo); err != nil {
			return q, err
		}
	}
	if fl.Changed("has-deadline") {
		q.Filters.HasDeadline = &f.hasDeadline
	}
	if fl.Changed("has-test") {
		q.Filters.HasTest = &f.hasTest
	}
	if fl.Changed("has-interview") {
		q.Filters.HasInterview = &f.hasInterview
	}
	if fl.Changed("sort") {
		field, ok := services.ParseSortField(f.sort)
		if !ok {
			return q, fmt.Errorf("unknown sort field %q", f.sort)
		}
		q.Sort = services.SortSpec{Field: field, Desc: f.desc}
	} else if fl.Changed("desc") {
		q.Sort.Desc = f.desc
	}
	return q, nil
}

func newListCmd(app func() *cliApp) *cobra.Command {
	var flags viewFlags
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List placements",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := flags.query(cmd)
			if err != nil {
				return err
			}
			records := app().ws.View(q)
			renderPlacements(cmd.OutOrStdout(), records)
			fmt.Fprintln(cmd.OutOrStdout(), muted(fmt.Sprintf("%d of %d placements", len(records), len(app().ws.Records()))))
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func newBoardCmd(app func() *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Show placements grouped by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, g := range services.GroupByStatus(app().ws.Records()) {
				fmt.Fprintf(out, "%s (%d)\n", heading(string(g.Status)), len(g.Placements))
				for _, p := range g.Placements {
					line := "  - " + p.CompanyName
					if p.Role != "" {
						line += ", " + p.Role
					}
					if p.CTC != nil {
						line += " (" + ctcLabel(p.CTC) + ")"
					}
					fmt.Fprintln(out, line)
				}
			}
			return nil
		},
	}
}

func newUpcomingCmd(app func() *cliApp) *cobra.Command {
	var days, limit int
	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "Show tests and interviews coming up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if !cmd.Flags().Changed("days") {
				days = a.cfg.UpcomingHorizonDays
			}
			if days < 0 {
				return fmt.Errorf("--days must not be negative")
			}
			events := services.UpcomingEvents(a.ws.Records(), days, a.today())
			renderEvents(cmd.OutOrStdout(), services.TopEvents(events, limit))
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", services.DefaultHorizonDays, "Look-ahead window in days")
	cmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many events (0 = all)")
	return cmd
}

func newStatsCmd(app func() *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show application statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			renderStats(cmd.OutOrStdout(), services.ComputeStats(a.ws.Records(), a.today()))
			return nil
		},
	}
}

func newExportCmd(app func() *cliApp) *cobra.Command {
	var flags viewFlags
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export placements to CSV",
		Long: `Export placements to a CSV file in --dir.

Without search or filter flags every placement is exported (placements_complete_DATE.csv).
Otherwise only the matching ones are (placements_filtered_DATE.csv).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			q, err := flags.query(cmd)
			if err != nil {
				return err
			}
			filtered := flags.narrowed(cmd)
			records := a.ws.Records()
			if filtered {
				records = services.ApplyView(records, q)
			} else {
				services.SortPlacements(records, q.Sort)
			}

			path := filepath.Join(dir, services.ExportFilename(filtered, a.today()))
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			opts := services.ExportOptions{DateLayout: a.cfg.ExportDateLayout, Location: a.location()}
			if err := services.WriteCSV(f, services.ToTable(records, opts)); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d placements to %s\n", good("Exported"), len(records), path)
			return nil
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to write the file to")
	return cmd
}
