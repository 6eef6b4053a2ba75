package models

import "time"

// Part is one ingested (and possibly later curated) part/assembly row.
//
// The four mark/material/thickness fields are mandatory: a row with
// IsValid=true never has any of them empty. Validation re-checks only
// touch the tracking columns, never the business fields.
type Part struct {
	Base
	PartMark     string `gorm:"not null;index" json:"part_mark"`
	AssemblyMark string `gorm:"not null;index" json:"assembly_mark"`
	Material     string `gorm:"not null" json:"material"`
	Thickness    string `gorm:"not null" json:"thickness"`

	Quantity int      `gorm:"default:1" json:"quantity"`
	Length   *float64 `json:"length"`
	Width    *float64 `json:"width"`
	Height   *float64 `json:"height"`
	Weight   *float64 `json:"weight"`
	Notes    string   `json:"notes"`

	// Validation tracking
	IsValid         bool       `gorm:"default:true" json:"is_valid"`
	ErrorCodes      *string    `json:"error_codes"`
	ErrorMessages   *string    `json:"error_messages"`
	LastValidatedAt *time.Time `json:"last_validated_at"`

	// Edit tracking. FieldsChanged is a pipe-delimited list of field keys.
	EditedBy      string     `json:"edited_by"`
	EditedAt      *time.Time `json:"edited_at"`
	FieldsChanged string     `json:"fields_changed"`

	// Ingestion provenance
	SourceFilename string `json:"source_filename"`
	LineNo         int    `json:"line_no"`
}
