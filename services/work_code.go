package services

import (
	"errors"
	"strings"

	"parktime/models"

	"gorm.io/gorm"
)

// WorkCodeService manages the work code catalog. Creating codes is an
// admin operation; managers may edit descriptions and toggle active.
// Code and Category freeze once any entry references the work code so
// historical entries never change meaning.
type WorkCodeService struct {
	db *gorm.DB
}

func NewWorkCodeService(db *gorm.DB) *WorkCodeService {
	return &WorkCodeService{db: db}
}

type WorkCodePayload struct {
	Code        string
	Description string
	Category    models.CodeCategory
	SortOrder   int
	Active      bool
}

func (s *WorkCodeService) Create(actor *models.User, p WorkCodePayload) (*models.WorkCode, error) {
	if !actor.Role.Can(models.ActionWorkCodeManage) {
		return nil, &AuthorizationError{Action: models.ActionWorkCodeManage}
	}
	if err := validateWorkCodePayload(&p); err != nil {
		return nil, err
	}

	var code *models.WorkCode
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if result := tx.Model(&models.WorkCode{}).Where("code = ?", p.Code).Count(&count); result.Error != nil {
			return result.Error
		}
		if count > 0 {
			return &ValidationError{Field: "code", Reason: "already exists"}
		}

		code = &models.WorkCode{
			Code:        p.Code,
			Description: p.Description,
			Category:    p.Category,
			SortOrder:   p.SortOrder,
			Active:      p.Active,
		}
		if result := tx.Create(code); result.Error != nil {
			return result.Error
		}

		audit := NewAuditor(actor)
		return audit.Record(tx, models.AuditCreate, models.EntityWorkCode, code.ID, nil, SnapshotWorkCode(code))
	})
	if err != nil {
		return nil, wrapPersistence("create work code", err)
	}
	return code, nil
}

func (s *WorkCodeService) Update(actor *models.User, codeID uint, p WorkCodePayload) (*models.WorkCode, error) {
	if !actor.Role.Can(models.ActionWorkCodeEdit) {
		return nil, &AuthorizationError{Action: models.ActionWorkCodeEdit}
	}
	if err := validateWorkCodePayload(&p); err != nil {
		return nil, err
	}

	var code *models.WorkCode
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.WorkCode
		if result := tx.First(&existing, codeID); result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "work code", ID: codeID}
			}
			return result.Error
		}

		// Managers edit descriptions and toggle active; identity and
		// catalog ordering stay with admins.
		renamed := existing.Code != p.Code || existing.Category != p.Category
		if (renamed || existing.SortOrder != p.SortOrder) && !actor.Role.Can(models.ActionWorkCodeManage) {
			return &AuthorizationError{Action: models.ActionWorkCodeManage}
		}
		if renamed {
			// Identity fields freeze once any entry references the code.
			var refs int64
			if result := tx.Model(&models.TimeEntry{}).Where("work_code_id = ?", codeID).Count(&refs); result.Error != nil {
				return result.Error
			}
			if refs > 0 {
				return &ValidationError{Field: "code", Reason: "code and category are frozen once entries reference this work code"}
			}
			var count int64
			if result := tx.Model(&models.WorkCode{}).Where("code = ? AND id <> ?", p.Code, codeID).Count(&count); result.Error != nil {
				return result.Error
			}
			if count > 0 {
				return &ValidationError{Field: "code", Reason: "already exists"}
			}
		}

		oldState := SnapshotWorkCode(&existing)

		existing.Code = p.Code
		existing.Description = p.Description
		existing.Category = p.Category
		existing.SortOrder = p.SortOrder
		existing.Active = p.Active

		if result := tx.Save(&existing); result.Error != nil {
			return result.Error
		}

		audit := NewAuditor(actor)
		if err := audit.Record(tx, models.AuditUpdate, models.EntityWorkCode, existing.ID, oldState, SnapshotWorkCode(&existing)); err != nil {
			return err
		}
		code = &existing
		return nil
	})
	if err != nil {
		return nil, wrapPersistence("update work code", err)
	}
	return code, nil
}

// List returns the catalog ordered for dropdowns.
func (s *WorkCodeService) List(includeInactive bool) ([]models.WorkCode, error) {
	query := s.db.Order("sort_order asc, code asc")
	if !includeInactive {
		query = query.Where("active = ?", true)
	}

	var codes []models.WorkCode
	if result := query.Find(&codes); result.Error != nil {
		return nil, &PersistenceError{Op: "list work codes", Err: result.Error}
	}
	return codes, nil
}

func validateWorkCodePayload(p *WorkCodePayload) error {
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
	p.Description = strings.TrimSpace(p.Description)

	if p.Code == "" {
		return &ValidationError{Field: "code", Reason: "is required"}
	}
	if len(p.Code) > 20 {
		return &ValidationError{Field: "code", Reason: "must be 20 characters or fewer"}
	}
	if p.Description == "" {
		return &ValidationError{Field: "description", Reason: "is required"}
	}
	if !p.Category.Valid() {
		return &ValidationError{Field: "category", Reason: "unknown category"}
	}
	return nil
}
