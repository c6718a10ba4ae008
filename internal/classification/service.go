// Package classification derives the Article 9 special-category flag for data
// categories and owns the DataCategory lifecycle. The flag is recomputed on
// every change to the linked-nature set unless a manual override with a
// written justification is in force.
package classification

import (
	"context"
	"encoding/json"
	"time"

	"ropa-backend/internal/models"
	"ropa-backend/internal/pkg/apperrors"
	"ropa-backend/internal/pkg/validation"
	"ropa-backend/internal/refdata"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service encapsulates data-category operations.
type Service struct {
	DB      *gorm.DB
	RefData *refdata.Store
}

// ComputeIsSpecialCategory is the core decision: any linked SPECIAL nature
// makes the category special; a stored override wins over the computed value
// but must carry a justification. Pure — no I/O.
func ComputeIsSpecialCategory(natures []models.DataNature, override *models.SpecialOverride) (bool, error) {
	anySpecial := false
	for _, n := range natures {
		if n.Classification == models.NatureSpecial {
			anySpecial = true
			break
		}
	}
	if override == nil {
		return anySpecial, nil
	}
	if !validation.IsValidJustification(override.Justification) {
		return false, apperrors.Validation("justification", "override requires a justification")
	}
	return override.Value, nil
}

// OverrideInput is the caller's request to force the special flag.
type OverrideInput struct {
	Value         bool   `json:"value"`
	Justification string `json:"justification"`
	Actor         string `json:"actor"`
}

// CreateCategoryInput carries the fields for a new data category.
type CreateCategoryInput struct {
	Name          string         `json:"name"`
	Description   *string        `json:"description"`
	Sensitivity   models.Sensitivity `json:"sensitivity"`
	ExampleFields []string       `json:"example_fields"`
	NatureIDs     []uuid.UUID    `json:"nature_ids"`
	Override      *OverrideInput `json:"override"`
}

// CategoryDetail is a category together with its resolved nature links.
type CategoryDetail struct {
	models.DataCategory
	Natures []models.DataNature `json:"natures"`
}

// CreateCategory creates the category and its initial nature links in one
// transaction. Zero natures and no override yields is_special_category=false.
func (s *Service) CreateCategory(ctx context.Context, orgID uuid.UUID, in CreateCategoryInput) (*CategoryDetail, error) {
	if !validation.IsValidName(in.Name) {
		return nil, apperrors.Validation("name", "name is required")
	}
	if in.Sensitivity == "" {
		in.Sensitivity = models.SensitivityInternal
	}
	if !models.ValidSensitivity(in.Sensitivity) {
		return nil, apperrors.Validation("sensitivity", "unknown sensitivity tier")
	}

	natures, err := s.RefData.NaturesByIDs(ctx, in.NatureIDs)
	if err != nil {
		return nil, err
	}

	override, err := buildOverride(in.Override)
	if err != nil {
		return nil, err
	}
	special, err := ComputeIsSpecialCategory(natures, override)
	if err != nil {
		return nil, err
	}

	cat := &models.DataCategory{
		OrganizationID:    orgID,
		Name:              in.Name,
		Description:       in.Description,
		Sensitivity:       in.Sensitivity,
		IsSpecialCategory: special,
		ExampleFields:     marshalExamples(in.ExampleFields),
		IsActive:          true,
	}
	cat.SetOverride(override)

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(cat).Error; err != nil {
			return err
		}
		for _, natureID := range in.NatureIDs {
			link := &models.DataCategoryNature{DataCategoryID: cat.CategoryID, DataNatureID: natureID}
			if err := tx.Create(link).Error; err != nil {
				return apperrors.Translate(err, "nature link")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &CategoryDetail{DataCategory: *cat, Natures: natures}, nil
}

// UpdateCategory applies a partial update. Allowed keys: name, description,
// sensitivity, example_fields, nature_ids. Replacing nature_ids recomputes the
// special flag unless an override is in force.
func (s *Service) UpdateCategory(ctx context.Context, orgID, categoryID uuid.UUID, fields map[string]interface{}) (*CategoryDetail, error) {
	if len(fields) == 0 {
		return nil, apperrors.Validation("", "no update fields provided")
	}

	var cat models.DataCategory
	if err := s.DB.WithContext(ctx).
		Where("category_id = ? AND org_id = ?", categoryID, orgID).
		First(&cat).Error; err != nil {
		return nil, apperrors.Translate(err, "data category")
	}

	updates := map[string]interface{}{}
	var natureIDs []uuid.UUID
	replaceNatures := false

	for key, value := range fields {
		switch key {
		case "name":
			name, _ := value.(string)
			if !validation.IsValidName(name) {
				return nil, apperrors.Validation("name", "name is required")
			}
			updates["name"] = name
		case "description":
			if value == nil {
				updates["description"] = nil
			} else if str, ok := value.(string); ok {
				updates["description"] = str
			}
		case "sensitivity":
			str, _ := value.(string)
			if !models.ValidSensitivity(models.Sensitivity(str)) {
				return nil, apperrors.Validation("sensitivity", "unknown sensitivity tier")
			}
			updates["sensitivity"] = str
		case "example_fields":
			b, err := json.Marshal(value)
			if err != nil {
				return nil, apperrors.Validation("example_fields", "must be a list of field names")
			}
			updates["example_fields"] = datatypes.JSON(b)
		case "nature_ids":
			ids, err := parseUUIDList(value)
			if err != nil {
				return nil, apperrors.Validation("nature_ids", "must be a list of nature ids")
			}
			natureIDs = ids
			replaceNatures = true
		default:
			return nil, apperrors.Validation(key, "field is not updatable")
		}
	}

	if replaceNatures {
		// Validate before touching anything.
		if _, err := s.RefData.NaturesByIDs(ctx, natureIDs); err != nil {
			return nil, err
		}
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&cat).Updates(updates).Error; err != nil {
				return err
			}
		}
		if replaceNatures {
			if err := tx.Where("data_category_id = ?", cat.CategoryID).
				Delete(&models.DataCategoryNature{}).Error; err != nil {
				return err
			}
			for _, natureID := range natureIDs {
				link := &models.DataCategoryNature{DataCategoryID: cat.CategoryID, DataNatureID: natureID}
				if err := tx.Create(link).Error; err != nil {
					return apperrors.Translate(err, "nature link")
				}
			}
			if err := s.recomputeTx(ctx, tx, &cat); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetCategory(ctx, orgID, categoryID)
}

// LinkNature adds one category↔nature link; duplicate pairs conflict. The
// special flag is recomputed afterwards unless overridden.
func (s *Service) LinkNature(ctx context.Context, orgID, categoryID, natureID uuid.UUID) (*CategoryDetail, error) {
	var cat models.DataCategory
	if err := s.DB.WithContext(ctx).
		Where("category_id = ? AND org_id = ?", categoryID, orgID).
		First(&cat).Error; err != nil {
		return nil, apperrors.Translate(err, "data category")
	}
	if _, err := s.RefData.NatureByID(ctx, natureID); err != nil {
		return nil, err
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		link := &models.DataCategoryNature{DataCategoryID: categoryID, DataNatureID: natureID}
		if err := tx.Create(link).Error; err != nil {
			return apperrors.Translate(err, "nature link")
		}
		return s.recomputeTx(ctx, tx, &cat)
	})
	if err != nil {
		return nil, err
	}
	return s.GetCategory(ctx, orgID, categoryID)
}

// UnlinkNature removes one link and recomputes unless overridden.
func (s *Service) UnlinkNature(ctx context.Context, orgID, categoryID, natureID uuid.UUID) (*CategoryDetail, error) {
	var cat models.DataCategory
	if err := s.DB.WithContext(ctx).
		Where("category_id = ? AND org_id = ?", categoryID, orgID).
		First(&cat).Error; err != nil {
		return nil, apperrors.Translate(err, "data category")
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("data_category_id = ? AND data_nature_id = ?", categoryID, natureID).
			Delete(&models.DataCategoryNature{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("nature link")
		}
		return s.recomputeTx(ctx, tx, &cat)
	})
	if err != nil {
		return nil, err
	}
	return s.GetCategory(ctx, orgID, categoryID)
}

// SetOverride stores a manual correction of the special flag. The
// justification is mandatory audit evidence; when the override clears a
// computed true it is also logged, but it still takes effect.
func (s *Service) SetOverride(ctx context.Context, orgID, categoryID uuid.UUID, in OverrideInput) (*CategoryDetail, error) {
	if !validation.IsValidJustification(in.Justification) {
		return nil, apperrors.Validation("justification", "override requires a justification")
	}

	var cat models.DataCategory
	if err := s.DB.WithContext(ctx).
		Where("category_id = ? AND org_id = ?", categoryID, orgID).
		First(&cat).Error; err != nil {
		return nil, apperrors.Translate(err, "data category")
	}

	computed, err := s.computedFlag(ctx, s.DB.WithContext(ctx), categoryID)
	if err != nil {
		return nil, err
	}
	if computed && !in.Value {
		log.Warn().
			Str("org_id", orgID.String()).
			Str("category_id", categoryID.String()).
			Str("actor", in.Actor).
			Str("justification", in.Justification).
			Msg("special-category flag overridden to false against computed value")
	}

	override := &models.SpecialOverride{
		Overridden:    true,
		Value:         in.Value,
		Justification: in.Justification,
		OverriddenAt:  time.Now().UTC(),
		OverriddenBy:  in.Actor,
	}
	cat.SetOverride(override)
	cat.IsSpecialCategory = in.Value
	if err := s.DB.WithContext(ctx).Model(&cat).Updates(map[string]interface{}{
		"override_metadata":   cat.OverrideMetadata,
		"is_special_category": in.Value,
	}).Error; err != nil {
		return nil, err
	}
	return s.GetCategory(ctx, orgID, categoryID)
}

// ClearOverride removes the override and recomputes from current links.
func (s *Service) ClearOverride(ctx context.Context, orgID, categoryID uuid.UUID) (*CategoryDetail, error) {
	var cat models.DataCategory
	if err := s.DB.WithContext(ctx).
		Where("category_id = ? AND org_id = ?", categoryID, orgID).
		First(&cat).Error; err != nil {
		return nil, apperrors.Translate(err, "data category")
	}

	computed, err := s.computedFlag(ctx, s.DB.WithContext(ctx), categoryID)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(&cat).Updates(map[string]interface{}{
		"override_metadata":   nil,
		"is_special_category": computed,
	}).Error; err != nil {
		return nil, err
	}
	return s.GetCategory(ctx, orgID, categoryID)
}

// GetCategory returns the category with its linked natures resolved.
func (s *Service) GetCategory(ctx context.Context, orgID, categoryID uuid.UUID) (*CategoryDetail, error) {
	var cat models.DataCategory
	if err := s.DB.WithContext(ctx).
		Where("category_id = ? AND org_id = ?", categoryID, orgID).
		First(&cat).Error; err != nil {
		return nil, apperrors.Translate(err, "data category")
	}
	natures, err := s.linkedNatures(ctx, s.DB.WithContext(ctx), categoryID)
	if err != nil {
		return nil, err
	}
	return &CategoryDetail{DataCategory: cat, Natures: natures}, nil
}

// ListCategories returns the org's categories, creation order.
func (s *Service) ListCategories(ctx context.Context, orgID uuid.UUID, activeOnly bool) ([]models.DataCategory, error) {
	q := s.DB.WithContext(ctx).Where("org_id = ?", orgID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var cats []models.DataCategory
	if err := q.Order("created_at ASC").Find(&cats).Error; err != nil {
		return nil, err
	}
	return cats, nil
}

// DeactivateCategory soft-deletes; calling it on an inactive category is a
// no-op success so retries stay cheap.
func (s *Service) DeactivateCategory(ctx context.Context, orgID, categoryID uuid.UUID) (*models.DataCategory, error) {
	var cat models.DataCategory
	if err := s.DB.WithContext(ctx).
		Where("category_id = ? AND org_id = ?", categoryID, orgID).
		First(&cat).Error; err != nil {
		return nil, apperrors.Translate(err, "data category")
	}
	if !cat.IsActive {
		return &cat, nil
	}
	if err := s.DB.WithContext(ctx).Model(&cat).Update("is_active", false).Error; err != nil {
		return nil, err
	}
	return &cat, nil
}

// recomputeTx refreshes the stored flag inside tx, honoring an override.
func (s *Service) recomputeTx(ctx context.Context, tx *gorm.DB, cat *models.DataCategory) error {
	natures, err := s.linkedNatures(ctx, tx, cat.CategoryID)
	if err != nil {
		return err
	}
	special, err := ComputeIsSpecialCategory(natures, cat.Override())
	if err != nil {
		return err
	}
	return tx.Model(cat).Update("is_special_category", special).Error
}

// computedFlag is the override-free derivation from current links.
func (s *Service) computedFlag(ctx context.Context, tx *gorm.DB, categoryID uuid.UUID) (bool, error) {
	natures, err := s.linkedNatures(ctx, tx, categoryID)
	if err != nil {
		return false, err
	}
	return ComputeIsSpecialCategory(natures, nil)
}

func (s *Service) linkedNatures(ctx context.Context, tx *gorm.DB, categoryID uuid.UUID) ([]models.DataNature, error) {
	var links []models.DataCategoryNature
	if err := tx.Where("data_category_id = ?", categoryID).Find(&links).Error; err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(links))
	for i, l := range links {
		ids[i] = l.DataNatureID
	}
	return s.RefData.NaturesByIDs(ctx, ids)
}

func marshalExamples(fields []string) datatypes.JSON {
	if fields == nil {
		fields = []string{}
	}
	b, _ := json.Marshal(fields)
	return datatypes.JSON(b)
}

func buildOverride(in *OverrideInput) (*models.SpecialOverride, error) {
	if in == nil {
		return nil, nil
	}
	if !validation.IsValidJustification(in.Justification) {
		return nil, apperrors.Validation("justification", "override requires a justification")
	}
	return &models.SpecialOverride{
		Overridden:    true,
		Value:         in.Value,
		Justification: in.Justification,
		OverriddenAt:  time.Now().UTC(),
		OverriddenBy:  in.Actor,
	}, nil
}

func parseUUIDList(value interface{}) ([]uuid.UUID, error) {
	raw, ok := value.([]interface{})
	if !ok {
		return nil, apperrors.Validation("", "expected a list")
	}
	out := make([]uuid.UUID, 0, len(raw))
	for _, item := range raw {
		str, ok := item.(string)
		if !ok {
			return nil, apperrors.Validation("", "expected string ids")
		}
		id, err := uuid.Parse(str)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
