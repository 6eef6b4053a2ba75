package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "fabtrack/internal/errors"
	"fabtrack/internal/fields"
	"fabtrack/internal/models"
	"fabtrack/internal/pagination"
)

// partService handles part-record reads and curated edits.
type partService struct {
	db    *gorm.DB
	audit AuditServicer
}

// NewPartService creates a new PartServicer.
func NewPartService(db *gorm.DB, audit AuditServicer) PartServicer {
	return &partService{db: db, audit: audit}
}

// List returns a page of parts, newest first. A non-empty search matches
// part mark, assembly mark, and material case-insensitively.
func (s *partService) List(search string, page pagination.PageRequest) (*pagination.PageResponse[models.Part], error) {
	page.Defaults()

	query := s.db.Model(&models.Part{})
	if search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(part_mark) LIKE ? OR LOWER(assembly_mark) LIKE ? OR LOWER(material) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var parts []models.Part
	if err := query.Order("created_at DESC").
		Scopes(pagination.Paginate(page)).
		Find(&parts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resp := pagination.NewPageResponse(parts, page.Page, page.Limit, total)
	return &resp, nil
}

func (s *partService) Get(id uint) (*models.Part, error) {
	var part models.Part
	if err := s.db.First(&part, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPartNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &part, nil
}

// All returns every part ordered by id, for exports and bulk labels.
func (s *partService) All() ([]models.Part, error) {
	var parts []models.Part
	if err := s.db.Order("id ASC").Find(&parts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return parts, nil
}

// Update replaces the part's business fields, stamps the edit tracking
// columns, and records an UPDATE audit entry describing the change.
// An update that changes nothing still succeeds but writes no entry.
func (s *partService) Update(id uint, vals PartUpdate, actor *Actor) (*models.Part, error) {
	part, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	oldVals := PartFieldValues(part)
	newVals := updateFieldValues(vals)
	diff := DiffString(oldVals, newVals)

	part.PartMark = vals.PartMark
	part.AssemblyMark = vals.AssemblyMark
	part.Material = vals.Material
	part.Thickness = vals.Thickness
	part.Quantity = vals.Quantity
	part.Length = vals.Length
	part.Width = vals.Width
	part.Height = vals.Height
	part.Weight = vals.Weight
	part.Notes = vals.Notes

	if diff != NoChanges {
		changed := ChangedKeys(oldVals, newVals)
		names := make([]string, len(changed))
		for i, k := range changed {
			names[i] = string(k)
		}
		now := time.Now()
		part.EditedAt = &now
		part.FieldsChanged = strings.Join(names, "|")
		if actor != nil {
			part.EditedBy = actor.Email
		}
	}

	if err := s.db.Save(part).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if diff != NoChanges {
		s.audit.Record(actorID(actor), models.ActionUpdate, &part.ID, diff)
	}
	return part, nil
}

// Delete removes the given parts and records one BULK_DELETE entry (or a
// single DELETE entry when exactly one id was given).
func (s *partService) Delete(ids []uint, actor *Actor) (int64, error) {
	if len(ids) == 0 {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "no ids given")
	}

	res := s.db.Delete(&models.Part{}, ids)
	if res.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, apperrors.ErrPartNotFound
	}

	if len(ids) == 1 {
		s.audit.Record(actorID(actor), models.ActionDelete, &ids[0], "Deleted record")
	} else {
		s.audit.RecordBulk(actorID(actor), models.ActionBulkDelete, ids)
	}
	return res.RowsAffected, nil
}

// ClearAll deletes every part and records a CLEAR_ALL entry.
func (s *partService) ClearAll(actor *Actor) error {
	if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.Part{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	s.audit.RecordBulk(actorID(actor), models.ActionClearAll, nil)
	return nil
}

// PartFieldValues maps a stored part onto its canonical field values, the
// shape the diff and reconstruction code work in.
func PartFieldValues(p *models.Part) map[fields.Key]any {
	return map[fields.Key]any{
		fields.PartMark:     p.PartMark,
		fields.AssemblyMark: p.AssemblyMark,
		fields.Material:     p.Material,
		fields.Thickness:    p.Thickness,
		fields.Quantity:     p.Quantity,
		fields.Length:       p.Length,
		fields.Width:        p.Width,
		fields.Height:       p.Height,
		fields.Weight:       p.Weight,
		fields.Notes:        p.Notes,
	}
}

func updateFieldValues(u PartUpdate) map[fields.Key]any {
	return map[fields.Key]any{
		fields.PartMark:     u.PartMark,
		fields.AssemblyMark: u.AssemblyMark,
		fields.Material:     u.Material,
		fields.Thickness:    u.Thickness,
		fields.Quantity:     u.Quantity,
		fields.Length:       u.Length,
		fields.Width:        u.Width,
		fields.Height:       u.Height,
		fields.Weight:       u.Weight,
		fields.Notes:        u.Notes,
	}
}

func actorID(a *Actor) *uint {
	if a == nil {
		return nil
	}
	id := a.ID
	return &id
}
