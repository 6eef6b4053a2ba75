package services

import (
	"strings"
	"testing"

	"fabtrack/internal/fields"
	"fabtrack/internal/models"
	"fabtrack/internal/testutil"

	"gorm.io/gorm"
)

func recordUpdate(t *testing.T, db *gorm.DB, rowID uint, diff string) {
	t.Helper()
	NewAuditService(db).Record(nil, models.ActionUpdate, &rowID, diff)
}

func TestOriginalValues(t *testing.T) {
	t.Run("reconstructs_changed_fields", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExceptionService(db)

		part := testutil.CreateTestPart(t, db)
		recordUpdate(t, db, part.ID, `material: "S355" → "S235", length: "1200.5" → "1300", quantity: "2" → "4"`)

		vals := svc.OriginalValues(part.ID)
		if got := vals[fields.Material]; got != "S355" {
			t.Errorf("expected material S355, got %v", got)
		}
		if got := vals[fields.Length]; got != 1200.5 {
			t.Errorf("expected length 1200.5, got %v", got)
		}
		if got := vals[fields.Quantity]; got != 2 {
			t.Errorf("expected quantity 2, got %v", got)
		}
		if _, ok := vals[fields.PartMark]; ok {
			t.Error("untouched field should be absent")
		}
	})

	t.Run("uses_latest_update_entry", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExceptionService(db)

		part := testutil.CreateTestPart(t, db)
		recordUpdate(t, db, part.ID, `notes: "" → "first"`)
		recordUpdate(t, db, part.ID, `notes: "first" → "second"`)

		vals := svc.OriginalValues(part.ID)
		if got := vals[fields.Notes]; got != "first" {
			t.Errorf("expected the later entry's old value, got %v", got)
		}
	})

	t.Run("roundtrips_a_generated_diff", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExceptionService(db)

		oldVals := baseVals()
		newVals := baseVals()
		newVals[fields.Material] = "S460"
		newVals[fields.Quantity] = 7

		part := testutil.CreateTestPart(t, db)
		recordUpdate(t, db, part.ID, DiffString(oldVals, newVals))

		vals := svc.OriginalValues(part.ID)
		if got := vals[fields.Material]; got != "S355" {
			t.Errorf("expected S355, got %v", got)
		}
		if got := vals[fields.Quantity]; got != 2 {
			t.Errorf("expected 2, got %v", got)
		}
	})

	t.Run("unparsable_numeric_original_becomes_zero", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExceptionService(db)

		part := testutil.CreateTestPart(t, db)
		recordUpdate(t, db, part.ID, `weight: "n/a" → "12.5"`)

		vals := svc.OriginalValues(part.ID)
		if got := vals[fields.Weight]; got != 0.0 {
			t.Errorf("expected 0, got %v", got)
		}
	})

	t.Run("value_containing_separator_confuses_parsing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExceptionService(db)

		part := testutil.CreateTestPart(t, db)
		// The diff grammar does not escape values; the ", " inside the
		// note splits the fragment and reconstruction skips it.
		recordUpdate(t, db, part.ID, `notes: "a, b" → "c"`)

		vals := svc.OriginalValues(part.ID)
		if _, ok := vals[fields.Notes]; ok {
			t.Errorf("expected the broken fragment to be skipped, got %v", vals[fields.Notes])
		}
	})

	t.Run("never_edited_row_yields_empty_map", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExceptionService(db)

		part := testutil.CreateTestPart(t, db)
		if vals := svc.OriginalValues(part.ID); len(vals) != 0 {
			t.Errorf("expected empty map, got %v", vals)
		}
	})
}

func TestInvalidAndEditedRows(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewExceptionService(db)

	good := testutil.CreateTestPart(t, db)
	bad := testutil.CreateTestPart(t, db)
	svc.UpdateValidationStatus(bad.ID, false, "MISSING_MATERIAL", "Material is required")

	invalid, err := svc.InvalidRows()
	testutil.AssertNoError(t, err)
	if len(invalid) != 1 || invalid[0].ID != bad.ID {
		t.Errorf("expected only the invalid row, got %v", invalid)
	}
	if invalid[0].ErrorCodes == nil || *invalid[0].ErrorCodes != "MISSING_MATERIAL" {
		t.Errorf("expected error codes stamped, got %v", invalid[0].ErrorCodes)
	}
	if invalid[0].LastValidatedAt == nil {
		t.Error("expected last_validated_at stamped")
	}

	// Mark the good part as edited via the part service.
	partSvc := NewPartService(db, NewAuditService(db))
	upd := partUpdateFrom(good)
	upd.Notes = "touched"
	_, err = partSvc.Update(good.ID, upd, nil)
	testutil.AssertNoError(t, err)

	edited, err := svc.EditedRows()
	testutil.AssertNoError(t, err)
	if len(edited) != 1 || edited[0].ID != good.ID {
		t.Errorf("expected only the edited row, got %v", edited)
	}
}

func TestUpdateValidationStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewExceptionService(db)

	part := testutil.CreateTestPart(t, db)
	svc.UpdateValidationStatus(part.ID, false, "E1", "broken")
	svc.UpdateValidationStatus(part.ID, true, "", "")

	var got models.Part
	if err := db.First(&got, part.ID).Error; err != nil {
		t.Fatalf("failed to read part: %v", err)
	}
	if !got.IsValid {
		t.Error("expected row valid again")
	}
	if got.ErrorCodes != nil || got.ErrorMessages != nil {
		t.Error("expected error columns cleared on success")
	}
}

func TestExceptionExports(t *testing.T) {
	t.Run("invalid_rows_csv", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExceptionService(db)

		part := testutil.CreateTestPart(t, db)
		db.Model(part).Updates(map[string]any{"source_filename": "batch7.csv", "line_no": 12})
		svc.UpdateValidationStatus(part.ID, false, "E1", "broken")

		name, content, err := svc.InvalidRowsCSV()
		testutil.AssertNoError(t, err)

		if !strings.HasPrefix(name, "invalid_rows_") || !strings.HasSuffix(name, ".csv") {
			t.Errorf("unexpected filename %q", name)
		}
		text := string(content)
		header := strings.SplitN(text, "\n", 2)[0]
		for _, col := range []string{
			"ID", "Source File", "Line", "Uploaded At",
			"Last Validated At", "Is Valid", "Error Codes", "Error Messages",
		} {
			if !strings.Contains(header, col) {
				t.Errorf("expected tracking column %q in header %q", col, header)
			}
		}
		if !strings.Contains(text, part.PartMark) {
			t.Errorf("expected part mark in export, got %q", text)
		}
		if !strings.Contains(text, "batch7.csv") || !strings.Contains(text, ",12,") {
			t.Errorf("expected provenance columns in export, got %q", text)
		}
		if !strings.Contains(text, ",false,") || !strings.Contains(text, "E1") || !strings.Contains(text, "broken") {
			t.Errorf("expected validation tracking in export, got %q", text)
		}
	})

	t.Run("edited_rows_csv_includes_originals", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExceptionService(db)
		partSvc := NewPartService(db, NewAuditService(db))

		part := testutil.CreateTestPart(t, db)
		upd := partUpdateFrom(part)
		upd.Material = "S235"
		_, err := partSvc.Update(part.ID, upd, nil)
		testutil.AssertNoError(t, err)

		name, content, err := svc.EditedRowsCSV()
		testutil.AssertNoError(t, err)

		if !strings.HasPrefix(name, "edited_rows_") {
			t.Errorf("unexpected filename %q", name)
		}
		text := string(content)
		header := strings.SplitN(text, "\n", 2)[0]
		if !strings.Contains(header, "Source File") || !strings.Contains(header, "Is Valid") {
			t.Errorf("expected tracking columns in header %q", header)
		}
		if !strings.Contains(text, "Material Original") {
			t.Errorf("expected original-value column, got %q", text)
		}
		if !strings.Contains(text, "S355") {
			t.Errorf("expected pre-edit material in export, got %q", text)
		}
		if !strings.Contains(text, "S235") {
			t.Errorf("expected current material in export, got %q", text)
		}
	})

	t.Run("formula_cells_are_sanitized", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExceptionService(db)

		part := testutil.CreateTestPart(t, db)
		db.Model(&models.Part{}).Where("id = ?", part.ID).Update("notes", "=SUM(A1:A9)")
		svc.UpdateValidationStatus(part.ID, false, "E1", "broken")

		_, content, err := svc.InvalidRowsCSV()
		testutil.AssertNoError(t, err)

		if !strings.Contains(string(content), "'=SUM(A1:A9)") {
			t.Errorf("expected sanitized formula cell, got %q", string(content))
		}
	})
}
