// Package csvutil writes the CSV artifacts the API serves: the rejected-rows
// report, the full data export, and the exception exports. Every cell passes
// through a formula-injection guard before it is written.
package csvutil

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"fabtrack/internal/fields"
)

// formulaPrefixes are the cell prefixes spreadsheet applications treat as
// formulas. Cells starting with one are prefixed with a single quote.
var formulaPrefixes = []byte{'=', '+', '-', '@', '\t', '\r'}

// SanitizeCell neutralizes spreadsheet formula injection in one cell.
func SanitizeCell(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return value
	}
	for _, p := range formulaPrefixes {
		if trimmed[0] == p {
			return "'" + value
		}
	}
	return value
}

// WriteRecords writes a header row plus data rows, sanitizing every cell.
func WriteRecords(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		sanitized := make([]string, len(row))
		for i, cell := range row {
			sanitized[i] = SanitizeCell(cell)
		}
		if err := cw.Write(sanitized); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// RejectedRow is one input row that failed mandatory-field validation,
// annotated with its 1-based position in the uploaded file.
type RejectedRow struct {
	RowNumber int
	Values    map[string]string
	Errors    []string
}

// RejectsHeader is the fixed header of the rejected-rows report.
var RejectsHeader = []string{
	"Row Number",
	fields.Primary(fields.PartMark),
	fields.Primary(fields.AssemblyMark),
	fields.Primary(fields.Material),
	fields.Primary(fields.Thickness),
	"Errors",
}

// WriteRejectsReport writes the rejected-rows report to path, replacing
// any report left by a previous upload.
func WriteRejectsReport(path string, rows []RejectedRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			strconv.Itoa(r.RowNumber),
			r.Values[fields.Primary(fields.PartMark)],
			r.Values[fields.Primary(fields.AssemblyMark)],
			r.Values[fields.Primary(fields.Material)],
			r.Values[fields.Primary(fields.Thickness)],
			strings.Join(r.Errors, "; "),
		})
	}

	return WriteRecords(f, RejectsHeader, records)
}
