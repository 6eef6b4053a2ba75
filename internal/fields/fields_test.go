package fields

import (
	"reflect"
	"testing"
)

func validRow() map[string]string {
	return map[string]string{
		"Part Mark":     "PART001",
		"Assembly Mark": "ASSY001",
		"Material":      "Steel",
		"Thickness":     "5mm",
	}
}

func TestHeaderNames(t *testing.T) {
	t.Run("aliases_in_preference_order", func(t *testing.T) {
		got := HeaderNames(PartMark)
		want := []string{"Part Mark", "PartMark", "Part_Mark"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("single_spelling", func(t *testing.T) {
		if got := HeaderNames(Material); len(got) != 1 || got[0] != "Material" {
			t.Errorf("expected [Material], got %v", got)
		}
	})

	t.Run("unknown_key_panics", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic for unknown field key")
			}
		}()
		HeaderNames(Key("serial_no"))
	})
}

func TestPrimary(t *testing.T) {
	if got := Primary(AssemblyMark); got != "Assembly Mark" {
		t.Errorf("expected 'Assembly Mark', got %q", got)
	}
}

func TestValue(t *testing.T) {
	row := validRow()

	t.Run("reads_primary_spelling", func(t *testing.T) {
		v, ok := Value(row, PartMark)
		if !ok || v != "PART001" {
			t.Errorf("expected PART001, got %q (present=%v)", v, ok)
		}
	})

	t.Run("alternate_spelling_is_not_read", func(t *testing.T) {
		alt := map[string]string{"PartMark": "PART001"}
		if _, ok := Value(alt, PartMark); ok {
			t.Error("expected alternate spelling to be invisible to Value")
		}
	})
}

func TestValidateRow(t *testing.T) {
	t.Run("all_required_present", func(t *testing.T) {
		res := ValidateRow(validRow(), 1)
		if !res.Valid {
			t.Fatalf("expected valid row, got errors %v", res.Errors)
		}
		if len(res.Errors) != 0 {
			t.Errorf("expected no errors, got %v", res.Errors)
		}
	})

	t.Run("optional_fields_never_checked", func(t *testing.T) {
		row := validRow()
		row["Quantity"] = ""
		row["Notes"] = "   "
		if res := ValidateRow(row, 1); !res.Valid {
			t.Errorf("optional fields must not fail validation, got %v", res.Errors)
		}
	})

	t.Run("missing_column", func(t *testing.T) {
		row := validRow()
		delete(row, "Assembly Mark")
		res := ValidateRow(row, 2)
		if res.Valid {
			t.Fatal("expected invalid row")
		}
		if len(res.Errors) != 1 || res.Errors[0] != "AssemblyMark is required" {
			t.Errorf("expected [AssemblyMark is required], got %v", res.Errors)
		}
	})

	t.Run("whitespace_only_value", func(t *testing.T) {
		row := validRow()
		row["Material"] = "   "
		res := ValidateRow(row, 3)
		if res.Valid {
			t.Fatal("expected invalid row")
		}
		if res.Errors[0] != "Material is required" {
			t.Errorf("expected 'Material is required', got %q", res.Errors[0])
		}
	})

	t.Run("errors_in_fixed_field_order", func(t *testing.T) {
		res := ValidateRow(map[string]string{}, 4)
		want := []string{
			"PartMark is required",
			"AssemblyMark is required",
			"Material is required",
			"Thickness is required",
		}
		if !reflect.DeepEqual(res.Errors, want) {
			t.Errorf("expected %v, got %v", want, res.Errors)
		}
	})
}
