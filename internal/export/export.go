// Package export renders call pattern reports as downloadable files. Bucket
// cells use the "count/denominator, pp.pp%" form.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ONSdigital/blaise-export-reporting-tool/internal/types"
)

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrUnknownFormat is returned by ParseFormat for anything but csv or xlsx
var ErrUnknownFormat = errors.New("unsupported export format")

const sheetName = "Call Pattern"

// ParseFormat parses a format query value. Empty means csv.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownFormat, s)
	}
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Meta identifies the report being exported
type Meta struct {
	Interviewer string
	StartDate   string
	EndDate     string
}

// Filename returns the attachment name for a report export
func (m Meta) Filename(f Format) string {
	return fmt.Sprintf("call-pattern-%s-%s-%s.%s", m.Interviewer, m.StartDate, m.EndDate, f)
}

// Header lists the export columns in order
var Header = []string{
	"interviewer",
	"start_date",
	"end_date",
	"hours_worked",
	"call_time",
	"hours_on_calls_percentage",
	"average_calls_per_hour",
	"total_valid_cases",
	"discounted_invalid_cases",
	"invalid_fields",
	"completed_successfully",
	"webnudge",
	"appointments_for_contacts",
	"refusals",
	"no_contacts",
	"no_contacts_answer_service",
	"no_contacts_busy",
	"no_contacts_disconnect",
	"no_contacts_no_answer",
	"no_contacts_other",
}

// Row formats a report as one export row aligned with Header. A nil report
// has no row.
func Row(meta Meta, r *types.CallPatternReport) []string {
	if r == nil {
		return nil
	}
	return []string{
		meta.Interviewer,
		meta.StartDate,
		meta.EndDate,
		r.HoursWorked.String(),
		r.CallTime.String(),
		formatPercent(r.HoursOnCallsPercentage),
		strconv.FormatFloat(r.AverageCallsPerHour, 'f', 2, 64),
		strconv.Itoa(r.TotalValidCases),
		r.DiscountedInvalidCases.String(),
		strings.Join(r.InvalidFields, ", "),
		r.CompletedSuccessfully.String(),
		r.WebNudge.String(),
		r.AppointmentsForContacts.String(),
		r.Refusals.String(),
		r.NoContacts.Bucket.String(),
		r.NoContacts.AnswerService.String(),
		r.NoContacts.Busy.String(),
		r.NoContacts.Disconnect.String(),
		r.NoContacts.NoAnswer.String(),
		r.NoContacts.Other.String(),
	}
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + "%"
}

// Write renders the report in the given format
func Write(w io.Writer, f Format, meta Meta, r *types.CallPatternReport) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, meta, r)
	case FormatXLSX:
		return WriteXLSX(w, meta, r)
	default:
		return fmt.Errorf("%w %q", ErrUnknownFormat, f)
	}
}

// WriteCSV writes the header and, when there is a report, its row
func WriteCSV(w io.Writer, meta Meta, r *types.CallPatternReport) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return err
	}
	if row := Row(meta, r); row != nil {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX writes a single sheet workbook with a bold header row
func WriteXLSX(w io.Writer, meta Meta, r *types.CallPatternReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	lastCol, err := excelize.CoordinatesToCellName(len(Header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", lastCol, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	if row := Row(meta, r); row != nil {
		if err := f.SetSheetRow(sheetName, "A2", &row); err != nil {
			return fmt.Errorf("failed to write report row: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
