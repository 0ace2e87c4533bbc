package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/justsurfingit/Placement-Tracker/internal/models"
)

const DefaultExportDateLayout = "1/2/2006"

type ExportOptions struct {
	DateLayout string
	Location   *time.Location
}

// Table is a header plus rows of already formatted cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// ExportColumns is the fixed column order of every export.
var ExportColumns = buildExportColumns()

func buildExportColumns() []string {
	cols := []string{
		"Company Name",
		"Role",
		"Status",
		"CTC (LPA)",
		"Location",
		"Registration Deadline",
		"Eligibility",
	}
	for i := 1; i <= models.MaxTestRounds; i++ {
		cols = append(cols, fmt.Sprintf("Test %d", i), fmt.Sprintf("Test %d Date", i), fmt.Sprintf("Test %d Result", i))
	}
	for i := 1; i <= models.MaxInterviewRounds; i++ {
		cols = append(cols, fmt.Sprintf("Interview %d", i), fmt.Sprintf("Interview %d Date", i), fmt.Sprintf("Interview %d Result", i))
	}
	return append(cols, "Created At")
}

func ToTable(records []models.Placement, opts ExportOptions) Table {
	if opts.DateLayout == "" {
		opts.DateLayout = DefaultExportDateLayout
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	header := make([]string, len(ExportColumns))
	copy(header, ExportColumns)
	t := Table{Header: header, Rows: make([][]string, 0, len(records))}

	for _, p := range records {
		row := make([]string, 0, len(ExportColumns))
		row = append(row,
			p.CompanyName,
			p.Role,
			string(p.Status),
			formatCTC(p.CTC),
			p.Location,
			p.RegistrationDeadline.Format(opts.DateLayout, opts.Location),
			p.Eligible.Label(),
		)
		for _, slot := range p.Tests {
			row = append(row, slot.Description, slot.Date.Format(opts.DateLayout, opts.Location), string(slot.Result))
		}
		for _, slot := range p.Interviews {
			row = append(row, slot.Description, slot.Date.Format(opts.DateLayout, opts.Location), string(slot.Result))
		}
		created := ""
		if !p.CreatedAt.IsZero() {
			created = p.CreatedAt.In(opts.Location).Format(opts.DateLayout)
		}
		t.Rows = append(t.Rows, append(row, created))
	}
	return t
}

func formatCTC(ctc *float64) string {
	if ctc == nil {
		return ""
	}
	return strconv.FormatFloat(*ctc, 'f', -1, 64)
}

// WriteCSV writes t with RFC 4180 quoting and "\n" line endings.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

// ExportFilename names a download, e.g. placements_filtered_2025-06-01.csv.
func ExportFilename(filtered bool, now time.Time) string {
	scope := "complete"
	if filtered {
		scope = "filtered"
	}
	return fmt.Sprintf("placements_%s_%s.csv", scope, now.Format(models.DateLayout))
}
