package services

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"fabtrack/internal/csvutil"
	apperrors "fabtrack/internal/errors"
	"fabtrack/internal/fields"
	"fabtrack/internal/logger"
	"fabtrack/internal/models"
)

// diffFragmentRe matches one fragment of the textual diff grammar:
//
//	field: "old" → "new"
//
// Because diff values are written unescaped, a value containing `", "`
// splits into bogus fragments; those fail the match and are skipped.
var diffFragmentRe = regexp.MustCompile(`^(\w+):\s*"([^"]*)"\s*→\s*"[^"]*"$`)

// exceptionService surfaces rows needing attention (invalid or manually
// edited) and reconstructs pre-edit values from the audit trail.
type exceptionService struct {
	db *gorm.DB
}

// NewExceptionService creates a new ExceptionServicer.
func NewExceptionService(db *gorm.DB) ExceptionServicer {
	return &exceptionService{db: db}
}

// OriginalValues reconstructs the pre-edit values of a row from its most
// recent UPDATE audit entry. Only fields named in that entry's diff are
// present in the result. Rows never edited, or whose diff cannot be
// parsed, yield an empty map; reconstruction is best-effort by design of
// the textual grammar.
func (s *exceptionService) OriginalValues(rowID uint) map[fields.Key]any {
	vals := make(map[fields.Key]any)

	var entry models.AuditLog
	err := s.db.Where("row_id = ? AND action = ?", rowID, models.ActionUpdate).
		Order("timestamp DESC, id DESC").
		First(&entry).Error
	if err != nil {
		return vals
	}
	if entry.Diff == "" || entry.Diff == NoChanges {
		return vals
	}

	for _, fragment := range strings.Split(entry.Diff, ", ") {
		m := diffFragmentRe.FindStringSubmatch(fragment)
		if m == nil {
			continue
		}
		key := fields.Key(m[1])
		if !knownKey(key) {
			continue
		}
		raw := m[2]
		switch {
		case key == fields.Quantity:
			n, _ := strconv.Atoi(strings.TrimSpace(raw))
			vals[key] = n
		case fields.IsNumeric(key):
			f, _ := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			vals[key] = f
		default:
			vals[key] = raw
		}
	}
	return vals
}

// InvalidRows returns the rows whose last validation failed.
func (s *exceptionService) InvalidRows() ([]models.Part, error) {
	var parts []models.Part
	if err := s.db.Where("is_valid = ?", false).
		Order("id ASC").
		Find(&parts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return parts, nil
}

// EditedRows returns the rows changed by hand after ingestion.
func (s *exceptionService) EditedRows() ([]models.Part, error) {
	var parts []models.Part
	if err := s.db.Where("edited_at IS NOT NULL").
		Order("edited_at DESC").
		Find(&parts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return parts, nil
}

// InvalidRowsCSV exports the invalid rows with their error details.
func (s *exceptionService) InvalidRowsCSV() (string, []byte, error) {
	parts, err := s.InvalidRows()
	if err != nil {
		return "", nil, err
	}

	header := exportHeader()
	rows := make([][]string, 0, len(parts))
	for i := range parts {
		rows = append(rows, exportRow(&parts[i]))
	}

	content, err := renderCSV(header, rows)
	if err != nil {
		return "", nil, err
	}
	return exportFilename("invalid_rows"), content, nil
}

// EditedRowsCSV exports the manually edited rows. Each canonical field
// gets a companion "<Field> Original" column holding the pre-edit value
// reconstructed from the audit trail, blank when the field was untouched.
func (s *exceptionService) EditedRowsCSV() (string, []byte, error) {
	parts, err := s.EditedRows()
	if err != nil {
		return "", nil, err
	}

	header := exportHeader()
	for _, k := range fields.Canonical {
		header = append(header, fields.Primary(k)+" Original")
	}
	header = append(header, "Edited By", "Edited At", "Fields Changed")

	rows := make([][]string, 0, len(parts))
	for i := range parts {
		p := &parts[i]
		originals := s.OriginalValues(p.ID)

		row := exportRow(p)
		for _, k := range fields.Canonical {
			if v, ok := originals[k]; ok {
				row = append(row, displayValue(v))
			} else {
				row = append(row, "")
			}
		}
		row = append(row, p.EditedBy, formatTime(p.EditedAt), p.FieldsChanged)
		rows = append(rows, row)
	}

	content, err := renderCSV(header, rows)
	if err != nil {
		return "", nil, err
	}
	return exportFilename("edited_rows"), content, nil
}

// UpdateValidationStatus stamps the outcome of a re-validation onto the
// row's tracking columns. Failures are logged and swallowed: a tracking
// update must never fail the operation that triggered it.
func (s *exceptionService) UpdateValidationStatus(rowID uint, valid bool, errorCodes, errorMessages string) {
	now := time.Now()
	updates := map[string]any{
		"is_valid":          valid,
		"last_validated_at": now,
	}
	if valid {
		updates["error_codes"] = nil
		updates["error_messages"] = nil
	} else {
		updates["error_codes"] = errorCodes
		updates["error_messages"] = errorMessages
	}

	if err := s.db.Model(&models.Part{}).
		Where("id = ?", rowID).
		Updates(updates).Error; err != nil {
		logger.Get().Errorw("failed to update validation status",
			"error", err,
			"row_id", rowID,
		)
	}
}

func knownKey(k fields.Key) bool {
	for _, c := range fields.Canonical {
		if c == k {
			return true
		}
	}
	return false
}

// exportHeader is the id and tracking columns followed by the canonical
// business fields in order.
func exportHeader() []string {
	header := []string{
		"ID", "Source File", "Line", "Uploaded At",
		"Last Validated At", "Is Valid", "Error Codes", "Error Messages",
	}
	for _, k := range fields.Canonical {
		header = append(header, fields.Primary(k))
	}
	return header
}

func exportRow(p *models.Part) []string {
	vals := PartFieldValues(p)
	row := []string{
		strconv.FormatUint(uint64(p.ID), 10),
		p.SourceFilename,
		strconv.Itoa(p.LineNo),
		p.CreatedAt.Format(time.RFC3339),
		formatTime(p.LastValidatedAt),
		strconv.FormatBool(p.IsValid),
		derefString(p.ErrorCodes),
		derefString(p.ErrorMessages),
	}
	for _, k := range fields.Canonical {
		row = append(row, displayValue(vals[k]))
	}
	return row
}

func renderCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	if err := csvutil.WriteRecords(&buf, header, rows); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return buf.Bytes(), nil
}

func exportFilename(prefix string) string {
	return prefix + "_" + time.Now().Format("20060102_150405") + ".csv"
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
