package org

import (
	"context"
	"strings"

	"ropa-backend/internal/models"
	"ropa-backend/internal/pkg/apperrors"
	"ropa-backend/internal/pkg/validation"
	"ropa-backend/internal/refdata"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service encapsulates organization operations. The headquarters country set
// here is the reference jurisdiction the transfer engine reads; it is only
// consumed by this core, never derived.
type Service struct {
	DB      *gorm.DB
	RefData *refdata.Store
}

// CreateOrgInput carries the fields for a new organization.
type CreateOrgInput struct {
	Name                  string     `json:"name"`
	HeadquartersCountryID *uuid.UUID `json:"headquarters_country_id"`
}

// Create inserts an organization; a headquarters country, when given, must
// resolve in the country register.
func (s *Service) Create(ctx context.Context, in CreateOrgInput) (*models.Organization, error) {
	if !validation.IsValidName(in.Name) {
		return nil, apperrors.Validation("name", "name is required")
	}
	if in.HeadquartersCountryID != nil {
		if _, err := s.RefData.CountryByID(ctx, *in.HeadquartersCountryID); err != nil {
			return nil, apperrors.Validation("headquarters_country_id", "unknown country")
		}
	}
	org := &models.Organization{
		Name:                  strings.TrimSpace(in.Name),
		HeadquartersCountryID: in.HeadquartersCountryID,
	}
	if err := s.DB.WithContext(ctx).Create(org).Error; err != nil {
		return nil, err
	}
	return org, nil
}

// Get returns one organization.
func (s *Service) Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	if err := s.DB.WithContext(ctx).
		Where("org_id = ?", orgID).
		First(&org).Error; err != nil {
		return nil, apperrors.Translate(err, "organization")
	}
	return &org, nil
}

// Update applies a partial update. Allowed keys: name,
// headquarters_country_id (null clears it — transfer analysis will then
// refuse to run until it is set again).
func (s *Service) Update(ctx context.Context, orgID uuid.UUID, fields map[string]interface{}) (*models.Organization, error) {
	if len(fields) == 0 {
		return nil, apperrors.Validation("", "no update fields provided")
	}
	var org models.Organization
	if err := s.DB.WithContext(ctx).
		Where("org_id = ?", orgID).
		First(&org).Error; err != nil {
		return nil, apperrors.Translate(err, "organization")
	}

	updates := map[string]interface{}{}
	for key, value := range fields {
		switch key {
		case "name":
			name, _ := value.(string)
			if !validation.IsValidName(name) {
				return nil, apperrors.Validation("name", "name is required")
			}
			updates["name"] = strings.TrimSpace(name)
		case "headquarters_country_id":
			if value == nil {
				updates["headquarters_country_id"] = nil
				continue
			}
			str, ok := value.(string)
			if !ok {
				return nil, apperrors.Validation("headquarters_country_id", "must be a country id or null")
			}
			countryID, err := uuid.Parse(str)
			if err != nil {
				return nil, apperrors.Validation("headquarters_country_id", "must be a country id or null")
			}
			if _, err := s.RefData.CountryByID(ctx, countryID); err != nil {
				return nil, apperrors.Validation("headquarters_country_id", "unknown country")
			}
			updates["headquarters_country_id"] = countryID
		default:
			return nil, apperrors.Validation(key, "field is not updatable")
		}
	}

	if err := s.DB.WithContext(ctx).Model(&org).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &org, nil
}
