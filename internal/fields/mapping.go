// Package fields defines the canonical part fields, the header spellings
// accepted for each in uploaded files, and the mandatory-field row check.
package fields

// Key is a canonical field key as stored in the parts table.
type Key string

const (
	PartMark     Key = "part_mark"
	AssemblyMark Key = "assembly_mark"
	Material     Key = "material"
	Thickness    Key = "thickness"
	Quantity     Key = "quantity"
	Length       Key = "length"
	Width        Key = "width"
	Height       Key = "height"
	Weight       Key = "weight"
	Notes        Key = "notes"
)

// Canonical lists every field key in its fixed order. The same order is
// used for diffing and for export columns.
var Canonical = []Key{
	PartMark, AssemblyMark, Material, Thickness,
	Quantity, Length, Width, Height, Weight, Notes,
}

// Required lists the mandatory fields in the order their validation
// errors are reported.
var Required = []Key{PartMark, AssemblyMark, Material, Thickness}

// NumericKeys lists the fields whose values are numbers.
var NumericKeys = []Key{Quantity, Length, Width, Height, Weight}

// headerNames maps each key to the accepted source-column spellings,
// most preferred first. Values are always read via the first spelling.
var headerNames = map[Key][]string{
	PartMark:     {"Part Mark", "PartMark", "Part_Mark"},
	AssemblyMark: {"Assembly Mark", "AssemblyMark", "Assembly_Mark"},
	Material:     {"Material"},
	Thickness:    {"Thickness"},
	Quantity:     {"Quantity"},
	Length:       {"Length"},
	Width:        {"Width"},
	Height:       {"Height"},
	Weight:       {"Weight"},
	Notes:        {"Notes"},
}

// HeaderNames returns the accepted header spellings for a field in
// descending preference order. Unknown keys are a programming error.
func HeaderNames(k Key) []string {
	names, ok := headerNames[k]
	if !ok {
		panic("fields: unknown field key " + string(k))
	}
	return names
}

// Primary returns the preferred header spelling for a field.
func Primary(k Key) string {
	return HeaderNames(k)[0]
}

// Value reads a field from a header-keyed row using its primary
// spelling. The second return reports whether the column was present.
func Value(row map[string]string, k Key) (string, bool) {
	v, ok := row[Primary(k)]
	return v, ok
}

// IsNumeric reports whether the field holds a numeric value.
func IsNumeric(k Key) bool {
	for _, n := range NumericKeys {
		if n == k {
			return true
		}
	}
	return false
}
