// Package assets owns the digital-asset records (systems that host or process
// personal data). Flat — assets have no hierarchy; their compliance facts live
// in the attached locations.
package assets

import (
	"context"

	"ropa-backend/internal/locations"
	"ropa-backend/internal/models"
	"ropa-backend/internal/pkg/apperrors"
	"ropa-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service encapsulates digital-asset operations.
type Service struct {
	DB        *gorm.DB
	Locations *locations.Service
}

// CreateAssetInput carries the fields for a new asset, optionally with initial
// locations created in the same transaction.
type CreateAssetInput struct {
	Name        string                          `json:"name"`
	Description *string                         `json:"description"`
	AssetType   *string                         `json:"asset_type"`
	Locations   []locations.CreateLocationInput `json:"locations"`
}

// AssetDetail is an asset plus its active locations.
type AssetDetail struct {
	models.DigitalAsset
	Locations []locations.Location `json:"locations"`
}

// Create inserts the asset and any initial locations atomically.
func (s *Service) Create(ctx context.Context, orgID uuid.UUID, in CreateAssetInput) (*AssetDetail, error) {
	if !validation.IsValidName(in.Name) {
		return nil, apperrors.Validation("name", "name is required")
	}
	asset := &models.DigitalAsset{
		OrganizationID: orgID,
		Name:           in.Name,
		Description:    in.Description,
		AssetType:      in.AssetType,
		IsActive:       true,
	}
	var locs []locations.Location
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(asset).Error; err != nil {
			return err
		}
		created, err := s.Locations.CreateManyTx(ctx, tx, orgID,
			locations.Owner{Kind: locations.OwnerAsset, ID: asset.AssetID}, in.Locations)
		if err != nil {
			return err
		}
		locs = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &AssetDetail{DigitalAsset: *asset, Locations: locs}, nil
}

// Update applies a partial update. Allowed keys: name, description, asset_type.
func (s *Service) Update(ctx context.Context, orgID, assetID uuid.UUID, fields map[string]interface{}) (*models.DigitalAsset, error) {
	if len(fields) == 0 {
		return nil, apperrors.Validation("", "no update fields provided")
	}
	var asset models.DigitalAsset
	if err := s.DB.WithContext(ctx).
		Where("asset_id = ? AND org_id = ?", assetID, orgID).
		First(&asset).Error; err != nil {
		return nil, apperrors.Translate(err, "digital asset")
	}

	updates := map[string]interface{}{}
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
		case "asset_type":
			if value == nil {
				updates["asset_type"] = nil
			} else if str, ok := value.(string); ok {
				updates["asset_type"] = str
			}
		default:
			return nil, apperrors.Validation(key, "field is not updatable")
		}
	}

	if err := s.DB.WithContext(ctx).Model(&asset).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

// Get returns one asset with its active locations.
func (s *Service) Get(ctx context.Context, orgID, assetID uuid.UUID) (*AssetDetail, error) {
	var asset models.DigitalAsset
	if err := s.DB.WithContext(ctx).
		Where("asset_id = ? AND org_id = ?", assetID, orgID).
		First(&asset).Error; err != nil {
		return nil, apperrors.Translate(err, "digital asset")
	}
	locs, err := s.Locations.ListActiveForOwner(ctx, orgID,
		locations.Owner{Kind: locations.OwnerAsset, ID: assetID})
	if err != nil {
		return nil, err
	}
	return &AssetDetail{DigitalAsset: asset, Locations: locs}, nil
}

// List returns the org's assets in creation order.
func (s *Service) List(ctx context.Context, orgID uuid.UUID, activeOnly bool) ([]models.DigitalAsset, error) {
	q := s.DB.WithContext(ctx).Where("org_id = ?", orgID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var out []models.DigitalAsset
	if err := q.Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Deactivate soft-deletes an asset. Idempotent. Rejected while the asset is
// still linked to a processing activity.
func (s *Service) Deactivate(ctx context.Context, orgID, assetID uuid.UUID) (*models.DigitalAsset, error) {
	var asset models.DigitalAsset
	if err := s.DB.WithContext(ctx).
		Where("asset_id = ? AND org_id = ?", assetID, orgID).
		First(&asset).Error; err != nil {
		return nil, apperrors.Translate(err, "digital asset")
	}
	if !asset.IsActive {
		return &asset, nil
	}
	var linked int64
	if err := s.DB.WithContext(ctx).Model(&models.ActivityAsset{}).
		Where("asset_id = ?", assetID).Count(&linked).Error; err != nil {
		return nil, err
	}
	if linked > 0 {
		return nil, &apperrors.ConflictError{Message: "digital asset is linked to a processing activity; unlink it first"}
	}
	if err := s.DB.WithContext(ctx).Model(&asset).Update("is_active", false).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}
