package fields

import "strings"

// requiredMessages holds the fixed error message per mandatory field.
var requiredMessages = map[Key]string{
	PartMark:     "PartMark is required",
	AssemblyMark: "AssemblyMark is required",
	Material:     "Material is required",
	Thickness:    "Thickness is required",
}

// RowValidation is the outcome of checking one raw row.
type RowValidation struct {
	Valid  bool
	Errors []string
}

// ValidateRow applies the mandatory-field rules to one header-keyed raw
// row. A required field fails when its primary column is absent or its
// value trims to empty. Errors are emitted in the fixed Required order so
// output is deterministic regardless of map iteration. The check is pure:
// it never touches non-required fields and cannot fail.
func ValidateRow(row map[string]string, rowNum int) RowValidation {
	var errs []string

	for _, k := range Required {
		v, ok := Value(row, k)
		if !ok || strings.TrimSpace(v) == "" {
			errs = append(errs, requiredMessages[k])
		}
	}

	return RowValidation{
		Valid:  len(errs) == 0,
		Errors: errs,
	}
}
