package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gorm.io/gorm"

	apperrors "fabtrack/internal/errors"
	"fabtrack/internal/fields"
	"fabtrack/internal/logger"
	"fabtrack/internal/models"
	"fabtrack/internal/pagination"
)

// floatTolerance is the comparison tolerance for numeric field values.
// Two numbers closer than this are treated as unchanged.
const floatTolerance = 0.0001

// NoChanges is the diff text recorded when an update touched nothing.
const NoChanges = "No changes"

// auditService handles audit log recording and listing.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Record appends one audit entry. Errors are logged but never propagate:
// a failed audit write must not disturb the mutation it describes.
func (s *auditService) Record(userID *uint, action models.AuditAction, rowID *uint, diff string) {
	entry := &models.AuditLog{
		UserID: userID,
		Action: action,
		RowID:  rowID,
		Diff:   diff,
	}

	if err := s.db.Create(entry).Error; err != nil {
		logger.Get().Errorw("failed to create audit log entry",
			"error", err,
			"action", action,
			"row_id", rowID,
		)
	}
}

// RecordBulk appends the fixed-form entry for a bulk delete or clear-all.
func (s *auditService) RecordBulk(userID *uint, action models.AuditAction, rowIDs []uint) {
	var diff string
	switch action {
	case models.ActionBulkDelete:
		ids := make([]string, len(rowIDs))
		for i, id := range rowIDs {
			ids[i] = strconv.FormatUint(uint64(id), 10)
		}
		diff = fmt.Sprintf("Deleted %d records: [%s]", len(rowIDs), strings.Join(ids, ", "))
	case models.ActionClearAll:
		diff = "Cleared all records from database"
	default:
		logger.Get().Errorw("RecordBulk called with non-bulk action", "action", action)
		return
	}

	s.Record(userID, action, nil, diff)
}

// List returns paginated audit entries, newest first. Non-admin actors
// only see entries they produced themselves; admins see everything.
func (s *auditService) List(page pagination.PageRequest, filter AuditFilter, actor *Actor) (*pagination.PageResponse[AuditEntry], error) {
	page.Defaults()

	query := s.db.Model(&models.AuditLog{})
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.RowID != nil {
		query = query.Where("row_id = ?", *filter.RowID)
	}
	if actor == nil {
		query = query.Where("user_id IS NULL")
	} else if !actor.IsAdmin() {
		query = query.Where("user_id = ?", actor.ID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var logs []models.AuditLog
	if err := query.Preload("User").
		Order("timestamp DESC, id DESC").
		Scopes(pagination.Paginate(page)).
		Find(&logs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	entries := make([]AuditEntry, len(logs))
	for i, l := range logs {
		entries[i] = AuditEntry{AuditLog: l}
		if l.User != nil {
			entries[i].UserName = strings.TrimSpace(l.User.FirstName + " " + l.User.LastName)
			entries[i].UserEmail = l.User.Email
		}
	}

	resp := pagination.NewPageResponse(entries, page.Page, page.Limit, total)
	return &resp, nil
}

// DiffString builds the textual change description for an update over the
// canonical part fields. For every field whose normalized old value differs
// from its normalized new value it appends a fragment
//
//	field: "oldRaw" → "newRaw"
//
// with the raw display values, joined by ", ". When nothing changed it
// returns NoChanges. Values inside the quotes are NOT escaped; a value
// containing `", "` or a quote will confuse later reconstruction. That is
// a known limitation of the textual grammar, kept for compatibility with
// existing audit rows.
func DiffString(oldVals, newVals map[fields.Key]any) string {
	changes := changedFields(oldVals, newVals)
	if len(changes) == 0 {
		return NoChanges
	}

	fragments := make([]string, len(changes))
	for i, ch := range changes {
		fragments[i] = string(ch.Key) + `: "` + ch.OldRaw + `" → "` + ch.NewRaw + `"`
	}
	return strings.Join(fragments, ", ")
}

// ChangedKeys returns the canonical keys whose values differ between old
// and new, in the fixed canonical field order.
func ChangedKeys(oldVals, newVals map[fields.Key]any) []fields.Key {
	changes := changedFields(oldVals, newVals)
	keys := make([]fields.Key, len(changes))
	for i, ch := range changes {
		keys[i] = ch.Key
	}
	return keys
}

type fieldChange struct {
	Key    fields.Key
	OldRaw string
	NewRaw string
}

func changedFields(oldVals, newVals map[fields.Key]any) []fieldChange {
	var changes []fieldChange
	for _, key := range fields.Canonical {
		oldV := oldVals[key]
		newV := newVals[key]
		if !valuesEqual(oldV, newV) {
			changes = append(changes, fieldChange{
				Key:    key,
				OldRaw: displayValue(oldV),
				NewRaw: displayValue(newV),
			})
		}
	}
	return changes
}

// normalized is a value prepared for comparison: canonical null, a finite
// number, or a trimmed string.
type normalized struct {
	isNull bool
	isNum  bool
	num    float64
	str    string
}

func normalizeValue(v any) normalized {
	if v == nil {
		return normalized{isNull: true}
	}
	s := strings.TrimSpace(displayValue(v))
	if f, ok := leadingFloat(s); ok {
		return normalized{isNum: true, num: f}
	}
	return normalized{str: s}
}

// leadingFloat parses the longest numeric prefix of s, so loosely
// formatted measurements like "5.0mm" and "5mm" compare as the same
// number. A value with no numeric prefix stays a string.
func leadingFloat(s string) (float64, bool) {
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f, true
	}

	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	seenDot := false
	for i < len(s) {
		c := s[i]
		if c >= '0' && c <= '9' {
			digits++
			i++
			continue
		}
		if c == '.' && !seenDot {
			seenDot = true
			i++
			continue
		}
		break
	}
	if digits == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func valuesEqual(a, b any) bool {
	na, nb := normalizeValue(a), normalizeValue(b)
	switch {
	case na.isNull || nb.isNull:
		return na.isNull && nb.isNull
	case na.isNum && nb.isNum:
		return math.Abs(na.num-nb.num) <= floatTolerance
	case na.isNum != nb.isNum:
		return false
	default:
		return na.str == nb.str
	}
}

// DisplayFieldValue renders a field value the way it appears inside diff
// quotes and in CSV exports: nil as empty, floats without a fixed precision.
func DisplayFieldValue(v any) string {
	return displayValue(v)
}

func displayValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case *float64:
		if t == nil {
			return ""
		}
		return strconv.FormatFloat(*t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
