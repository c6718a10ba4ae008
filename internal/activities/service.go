// Package activities owns the processing-activity records and their junction
// links to recipients and digital assets. Links are first-class rows, unique
// per pair; unlinking removes the junction only.
package activities

import (
	"context"

	"ropa-backend/internal/models"
	"ropa-backend/internal/pkg/apperrors"
	"ropa-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service encapsulates processing-activity operations.
type Service struct {
	DB *gorm.DB
}

// CreateActivityInput carries the fields for a new activity.
type CreateActivityInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// ActivityDetail is an activity plus its linked recipients and assets.
type ActivityDetail struct {
	models.ProcessingActivity
	Recipients []models.Recipient    `json:"recipients"`
	Assets     []models.DigitalAsset `json:"assets"`
}

// Create inserts a new activity.
func (s *Service) Create(ctx context.Context, orgID uuid.UUID, in CreateActivityInput) (*models.ProcessingActivity, error) {
	if !validation.IsValidName(in.Name) {
		return nil, apperrors.Validation("name", "name is required")
	}
	act := &models.ProcessingActivity{
		OrganizationID: orgID,
		Name:           in.Name,
		Description:    in.Description,
		IsActive:       true,
	}
	if err := s.DB.WithContext(ctx).Create(act).Error; err != nil {
		return nil, err
	}
	return act, nil
}

// Update applies a partial update. Allowed keys: name, description.
func (s *Service) Update(ctx context.Context, orgID, activityID uuid.UUID, fields map[string]interface{}) (*models.ProcessingActivity, error) {
	if len(fields) == 0 {
		return nil, apperrors.Validation("", "no update fields provided")
	}
	var act models.ProcessingActivity
	if err := s.DB.WithContext(ctx).
		Where("activity_id = ? AND org_id = ?", activityID, orgID).
		First(&act).Error; err != nil {
		return nil, apperrors.Translate(err, "processing activity")
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
		default:
			return nil, apperrors.Validation(key, "field is not updatable")
		}
	}

	if err := s.DB.WithContext(ctx).Model(&act).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &act, nil
}

// Get returns the activity with its linked recipients and assets resolved.
func (s *Service) Get(ctx context.Context, orgID, activityID uuid.UUID) (*ActivityDetail, error) {
	var act models.ProcessingActivity
	if err := s.DB.WithContext(ctx).
		Where("activity_id = ? AND org_id = ?", activityID, orgID).
		First(&act).Error; err != nil {
		return nil, apperrors.Translate(err, "processing activity")
	}

	recipients, err := s.LinkedRecipients(ctx, orgID, activityID)
	if err != nil {
		return nil, err
	}
	assets, err := s.LinkedAssets(ctx, orgID, activityID)
	if err != nil {
		return nil, err
	}
	return &ActivityDetail{ProcessingActivity: act, Recipients: recipients, Assets: assets}, nil
}

// List returns the org's activities in creation order.
func (s *Service) List(ctx context.Context, orgID uuid.UUID, activeOnly bool) ([]models.ProcessingActivity, error) {
	q := s.DB.WithContext(ctx).Where("org_id = ?", orgID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var out []models.ProcessingActivity
	if err := q.Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Deactivate soft-deletes an activity; its junction links stay for history.
func (s *Service) Deactivate(ctx context.Context, orgID, activityID uuid.UUID) (*models.ProcessingActivity, error) {
	var act models.ProcessingActivity
	if err := s.DB.WithContext(ctx).
		Where("activity_id = ? AND org_id = ?", activityID, orgID).
		First(&act).Error; err != nil {
		return nil, apperrors.Translate(err, "processing activity")
	}
	if !act.IsActive {
		return &act, nil
	}
	if err := s.DB.WithContext(ctx).Model(&act).Update("is_active", false).Error; err != nil {
		return nil, err
	}
	return &act, nil
}

// LinkRecipient attaches a recipient; both sides must belong to the org, and
// a duplicate pair conflicts.
func (s *Service) LinkRecipient(ctx context.Context, orgID, activityID, recipientID uuid.UUID) error {
	if err := s.verifyActivity(ctx, orgID, activityID); err != nil {
		return err
	}
	var rec models.Recipient
	if err := s.DB.WithContext(ctx).
		Where("recipient_id = ? AND org_id = ?", recipientID, orgID).
		First(&rec).Error; err != nil {
		return apperrors.Translate(err, "recipient")
	}
	link := &models.ActivityRecipient{ActivityID: activityID, RecipientID: recipientID}
	return apperrors.Translate(s.DB.WithContext(ctx).Create(link).Error, "recipient link")
}

// UnlinkRecipient removes the junction row only.
func (s *Service) UnlinkRecipient(ctx context.Context, orgID, activityID, recipientID uuid.UUID) error {
	if err := s.verifyActivity(ctx, orgID, activityID); err != nil {
		return err
	}
	res := s.DB.WithContext(ctx).
		Where("activity_id = ? AND recipient_id = ?", activityID, recipientID).
		Delete(&models.ActivityRecipient{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("recipient link")
	}
	return nil
}

// LinkAsset attaches a digital asset; duplicate pairs conflict.
func (s *Service) LinkAsset(ctx context.Context, orgID, activityID, assetID uuid.UUID) error {
	if err := s.verifyActivity(ctx, orgID, activityID); err != nil {
		return err
	}
	var asset models.DigitalAsset
	if err := s.DB.WithContext(ctx).
		Where("asset_id = ? AND org_id = ?", assetID, orgID).
		First(&asset).Error; err != nil {
		return apperrors.Translate(err, "digital asset")
	}
	link := &models.ActivityAsset{ActivityID: activityID, AssetID: assetID}
	return apperrors.Translate(s.DB.WithContext(ctx).Create(link).Error, "asset link")
}

// UnlinkAsset removes the junction row only.
func (s *Service) UnlinkAsset(ctx context.Context, orgID, activityID, assetID uuid.UUID) error {
	if err := s.verifyActivity(ctx, orgID, activityID); err != nil {
		return err
	}
	res := s.DB.WithContext(ctx).
		Where("activity_id = ? AND asset_id = ?", activityID, assetID).
		Delete(&models.ActivityAsset{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("asset link")
	}
	return nil
}

// LinkedRecipients resolves the activity's recipient links, creation order.
func (s *Service) LinkedRecipients(ctx context.Context, orgID, activityID uuid.UUID) ([]models.Recipient, error) {
	var links []models.ActivityRecipient
	if err := s.DB.WithContext(ctx).
		Where("activity_id = ?", activityID).
		Order("created_at ASC").
		Find(&links).Error; err != nil {
		return nil, err
	}
	out := make([]models.Recipient, 0, len(links))
	for _, l := range links {
		var rec models.Recipient
		err := s.DB.WithContext(ctx).
			Where("recipient_id = ? AND org_id = ?", l.RecipientID, orgID).
			First(&rec).Error
		if err == gorm.ErrRecordNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// LinkedAssets resolves the activity's asset links, creation order.
func (s *Service) LinkedAssets(ctx context.Context, orgID, activityID uuid.UUID) ([]models.DigitalAsset, error) {
	var links []models.ActivityAsset
	if err := s.DB.WithContext(ctx).
		Where("activity_id = ?", activityID).
		Order("created_at ASC").
		Find(&links).Error; err != nil {
		return nil, err
	}
	out := make([]models.DigitalAsset, 0, len(links))
	for _, l := range links {
		var asset models.DigitalAsset
		err := s.DB.WithContext(ctx).
			Where("asset_id = ? AND org_id = ?", l.AssetID, orgID).
			First(&asset).Error
		if err == gorm.ErrRecordNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, asset)
	}
	return out, nil
}

func (s *Service) verifyActivity(ctx context.Context, orgID, activityID uuid.UUID) error {
	var act models.ProcessingActivity
	return apperrors.Translate(
		s.DB.WithContext(ctx).
			Where("activity_id = ? AND org_id = ?", activityID, orgID).
			First(&act).Error,
		"processing activity")
}
