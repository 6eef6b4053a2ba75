package csvutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeCell(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "PART001", "PART001"},
		{"empty", "", ""},
		{"formula_equals", "=SUM(A1:A3)", "'=SUM(A1:A3)"},
		{"formula_plus", "+1", "'+1"},
		{"formula_minus", "-5mm", "'-5mm"},
		{"formula_at", "@cmd", "'@cmd"},
		{"leading_space_then_formula", "  =1", "'  =1"},
		{"whitespace_only", "   ", "   "},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeCell(tc.in); got != tc.want {
				t.Errorf("SanitizeCell(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestWriteRejectsReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "error.csv")

	rows := []RejectedRow{
		{
			RowNumber: 2,
			Values: map[string]string{
				"Part Mark": "PART002",
				"Material":  "Steel",
				"Thickness": "5mm",
			},
			Errors: []string{"AssemblyMark is required"},
		},
	}

	if err := WriteRejectsReport(path, rows); err != nil {
		t.Fatalf("WriteRejectsReport failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if lines[0] != "Row Number,Part Mark,Assembly Mark,Material,Thickness,Errors" {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "2,PART002,") {
		t.Errorf("unexpected data row: %s", lines[1])
	}
	if !strings.Contains(lines[1], "AssemblyMark is required") {
		t.Errorf("expected error message in row: %s", lines[1])
	}
}

func TestWriteRejectsReport_OverwritesPriorReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "error.csv")

	first := []RejectedRow{
		{RowNumber: 1, Values: map[string]string{}, Errors: []string{"PartMark is required"}},
		{RowNumber: 2, Values: map[string]string{}, Errors: []string{"Material is required"}},
	}
	if err := WriteRejectsReport(path, first); err != nil {
		t.Fatalf("first write failed: %v", err)
	}

	second := []RejectedRow{
		{RowNumber: 7, Values: map[string]string{}, Errors: []string{"Thickness is required"}},
	}
	if err := WriteRejectsReport(path, second); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "PartMark is required") {
		t.Error("prior report content should have been replaced")
	}
	if !strings.Contains(content, "Thickness is required") {
		t.Error("new report content missing")
	}
	if got := len(strings.Split(strings.TrimSpace(content), "\n")); got != 2 {
		t.Errorf("expected header + 1 row after overwrite, got %d lines", got)
	}
}
