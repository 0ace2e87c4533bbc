package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/justsurfingit/Placement-Tracker/internal/models"
	"github.com/justsurfingit/Placement-Tracker/internal/services"
	"github.com/olekukonko/tablewriter"
)

var (
	heading = color.New(color.FgCyan, color.Bold).SprintFunc()
	warn    = color.New(color.FgYellow).SprintFunc()
	good    = color.New(color.FgGreen).SprintFunc()
	bad     = color.New(color.FgRed).SprintFunc()
	muted   = color.New(color.FgHiBlack).SprintFunc()
)

func statusLabel(s models.Status) string {
	switch s {
	case models.StatusSelected:
		return good(string(s))
	case models.StatusRejected, models.StatusNotEligible:
		return bad(string(s))
	case models.StatusWithdrawn:
		return muted(string(s))
	case models.StatusInProgress:
		return warn(string(s))
	default:
		return string(s)
	}
}

func ctcLabel(ctc *float64) string {
	if ctc == nil {
		return "-"
	}
	return strconv.FormatFloat(*ctc, 'f', -1, 64) + " LPA"
}

func dateLabel(d models.Date) string {
	if d.IsZero() {
		return "-"
	}
	return d.String()
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func renderPlacements(w io.Writer, records []models.Placement) {
	if len(records) == 0 {
		fmt.Fprintln(w, muted("No placements."))
		return
	}
	table := newTable(w, "ID", "Company", "Role", "CTC", "Status", "Eligible", "Deadline", "Progress")
	for _, p := range records {
		company := p.CompanyName
		if p.HasEligibilityConflict() {
			company += " " + bad("(!)")
		}
		table.Append([]string{
			shortID(p.ID),
			company,
			p.Role,
			ctcLabel(p.CTC),
			statusLabel(p.Status),
			p.Eligible.Label(),
			dateLabel(p.RegistrationDeadline),
			fmt.Sprintf("%d%% %s", services.ProgressPercentage(p), services.ProgressStageOf(p)),
		})
	}
	table.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func renderEvents(w io.Writer, events []services.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, muted("Nothing scheduled."))
		return
	}
	table := newTable(w, "When", "Company", "Round", "Date", "Time")
	for _, e := range events {
		when := fmt.Sprintf("in %d days", e.DaysRemaining)
		switch e.DaysRemaining {
		case 0:
			when = bad("today")
		case 1:
			when = warn("tomorrow")
		}
		round := fmt.Sprintf("%s %d", e.Kind, e.Slot)
		if e.Description != "" {
			round += ": " + e.Description
		}
		table.Append([]string{when, e.Company, round, e.Date.String(), e.Time})
	}
	table.Render()
}

func renderStats(w io.Writer, s services.Stats) {
	fmt.Fprintln(w, heading("Overview"))
	avg := "-"
	if s.AverageCTC != nil {
		avg = strconv.FormatFloat(*s.AverageCTC, 'f', 2, 64) + " LPA"
	}
	resp := "-"
	if s.AvgResponseDays != nil {
		resp = fmt.Sprintf("%d days", *s.AvgResponseDays)
	}
	overview := newTable(w, "Metric", "Value")
	overview.AppendBulk([][]string{
		{"Total", strconv.Itoa(s.Total)},
		{"Average CTC", avg},
		{"Eligible companies", strconv.Itoa(s.EligibleCompanies)},
		{"Eligible / Not / Not sure", fmt.Sprintf("%d / %d / %d", s.Eligibility.Eligible, s.Eligibility.NotEligible, s.Eligibility.NotSure)},
		{"Average response", resp},
	})
	overview.Render()

	fmt.Fprintln(w, heading("By status"))
	byStatus := newTable(w, "Status", "Count", "Share")
	for _, sc := range s.ByStatus {
		byStatus.Append([]string{statusLabel(sc.Status), strconv.Itoa(sc.Count), fmt.Sprintf("%d%%", sc.Percentage)})
	}
	byStatus.Render()

	fmt.Fprintln(w, heading("Progress"))
	progress := newTable(w, "Metric", "Count", "Share")
	for _, m := range s.Progress {
		progress.Append([]string{m.Name, fmt.Sprintf("%d/%d", m.Count, m.Total), fmt.Sprintf("%d%%", m.Percentage)})
	}
	for _, t := range []services.RoundTally{s.Tests, s.Interviews} {
		progress.Append([]string{fmt.Sprintf("%s rounds completed", t.Kind), fmt.Sprintf("%d/%d", t.Completed, t.Scheduled), "-"})
	}
	progress.Render()
}

func renderCandidate(w io.Writer, c models.Candidate) {
	table := newTable(w, "Field", "Value")
	add := func(name, value string) {
		if value != "" {
			table.Append([]string{name, value})
		}
	}
	add("Company", c.CompanyName)
	add("Role", c.Role)
	if c.CTC != nil {
		add("CTC", ctcLabel(c.CTC))
	}
	add("Location", c.Location)
	add("Eligibility", c.EligibilityCriteria)
	if !c.RegistrationDeadline.IsZero() {
		add("Deadline", c.RegistrationDeadline.String()+" "+c.RegistrationDeadlineTime)
	}
	add("Link", c.RegistrationLink)
	if c.Eligible != models.EligibilityUnknown {
		add("Eligible", c.Eligible.Label())
	}
	add("Status", string(c.Status))
	for i, s := range c.Tests {
		if s.IsSet() {
			add(fmt.Sprintf("Test %d", i+1), slotLabel(s))
		}
	}
	for i, s := range c.Interviews {
		if s.IsSet() {
			add(fmt.Sprintf("Interview %d", i+1), slotLabel(s))
		}
	}
	table.Render()
}

func slotLabel(s models.RoundSlot) string {
	out := s.Description
	if !s.Date.IsZero() {
		out += " on " + s.Date.String()
	}
	if s.Time != "" {
		out += " at " + s.Time
	}
	if s.Result != "" && s.Result != models.ResultPending {
		out += " (" + string(s.Result) + ")"
	}
	return out
}
