// Package locations is the registry of processing-location facts. Locations
// are append-only history: a country change never mutates a row in place, it
// deactivates the old row and inserts a new one (Move) so the audit trail
// keeps what was true as of what date.
package locations

import (
	"context"
	"encoding/json"
	"sort"
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

// OwnerKind selects the location variant.
type OwnerKind string

const (
	OwnerRecipient OwnerKind = "recipient"
	OwnerAsset     OwnerKind = "asset"
)

// Owner identifies which recipient or digital asset a location belongs to.
type Owner struct {
	Kind OwnerKind `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

// Location is the owner-neutral view handed to callers and reports.
type Location struct {
	LocationID     uuid.UUID `json:"location_id"`
	OrganizationID uuid.UUID `json:"org_id"`
	Owner          Owner     `json:"owner"`
	models.LocationAttributes
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Service encapsulates location operations for both owner variants.
type Service struct {
	DB      *gorm.DB
	RefData *refdata.Store
}

// CreateLocationInput carries the fields for a new location.
type CreateLocationInput struct {
	Service             string              `json:"service"`
	CountryID           uuid.UUID           `json:"country_id"`
	LocationRole        models.LocationRole `json:"location_role"`
	PurposeID           *uuid.UUID          `json:"purpose_id"`
	PurposeText         *string             `json:"purpose_text"`
	TransferMechanismID *uuid.UUID          `json:"transfer_mechanism_id"`
	Metadata            json.RawMessage     `json:"metadata"`
}

func (in CreateLocationInput) attributes() models.LocationAttributes {
	return models.LocationAttributes{
		Service:             in.Service,
		CountryID:           in.CountryID,
		LocationRole:        in.LocationRole,
		PurposeID:           in.PurposeID,
		PurposeText:         in.PurposeText,
		TransferMechanismID: in.TransferMechanismID,
		IsActive:            true,
		Metadata:            datatypes.JSON(in.Metadata),
	}
}

// Create validates the owner (must exist in the caller's org — a cross-tenant
// owner id reads as not found) and inserts an active location. The org id is
// inherited from the owner, never taken from the input.
func (s *Service) Create(ctx context.Context, orgID uuid.UUID, owner Owner, in CreateLocationInput) (*Location, error) {
	if err := s.verifyOwner(ctx, s.DB.WithContext(ctx), orgID, owner); err != nil {
		return nil, err
	}
	attrs := in.attributes()
	if err := s.validateAttributes(ctx, owner.Kind, &attrs); err != nil {
		return nil, err
	}
	loc, err := s.insert(ctx, s.DB.WithContext(ctx), orgID, owner, attrs)
	if err != nil {
		return nil, err
	}
	return loc, nil
}

// CreateManyTx inserts locations for a freshly created owner inside the
// owner's own transaction; any invalid location aborts the whole creation so
// no owner is left behind without valid compliance data.
func (s *Service) CreateManyTx(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, owner Owner, inputs []CreateLocationInput) ([]Location, error) {
	out := make([]Location, 0, len(inputs))
	for _, in := range inputs {
		attrs := in.attributes()
		if err := s.validateAttributes(ctx, owner.Kind, &attrs); err != nil {
			return nil, err
		}
		loc, err := s.insert(ctx, tx, orgID, owner, attrs)
		if err != nil {
			return nil, err
		}
		out = append(out, *loc)
	}
	return out, nil
}

// Get returns one location scoped to org and owner.
func (s *Service) Get(ctx context.Context, orgID uuid.UUID, owner Owner, locationID uuid.UUID) (*Location, error) {
	return s.fetch(ctx, s.DB.WithContext(ctx), orgID, owner, locationID)
}

// Update applies a partial field update. Explicit JSON null clears the
// nullable fields (purpose_id, purpose_text, transfer_mechanism_id, metadata);
// absent keys are untouched. Owner and org are immutable, and the country
// cannot be updated in place — that is what Move is for.
func (s *Service) Update(ctx context.Context, orgID uuid.UUID, owner Owner, locationID uuid.UUID, fields map[string]interface{}) (*Location, error) {
	if len(fields) == 0 {
		return nil, apperrors.Validation("", "no update fields provided")
	}
	loc, err := s.fetch(ctx, s.DB.WithContext(ctx), orgID, owner, locationID)
	if err != nil {
		return nil, err
	}
	attrs := loc.LocationAttributes
	if err := applyFields(&attrs, fields, false); err != nil {
		return nil, err
	}
	if err := s.validateAttributes(ctx, owner.Kind, &attrs); err != nil {
		return nil, err
	}
	if err := s.saveAttributes(ctx, s.DB.WithContext(ctx), orgID, owner, locationID, attrs); err != nil {
		return nil, err
	}
	return s.fetch(ctx, s.DB.WithContext(ctx), orgID, owner, locationID)
}

// Deactivate marks a location inactive. Idempotent: a second call is a no-op
// success, never an error that surprises a retrying client. Rows are never
// deleted.
func (s *Service) Deactivate(ctx context.Context, orgID uuid.UUID, owner Owner, locationID uuid.UUID) (*Location, error) {
	loc, err := s.fetch(ctx, s.DB.WithContext(ctx), orgID, owner, locationID)
	if err != nil {
		return nil, err
	}
	if !loc.IsActive {
		return loc, nil
	}
	if err := s.setActive(ctx, s.DB.WithContext(ctx), owner, locationID, false); err != nil {
		return nil, err
	}
	loc.IsActive = false
	return loc, nil
}

// Move atomically deactivates the source location and creates a new active
// one under the same owner with the merged field set. Either both writes
// commit or neither does; the old and new rows never coexist active.
func (s *Service) Move(ctx context.Context, orgID uuid.UUID, owner Owner, locationID uuid.UUID, fields map[string]interface{}) (*Location, error) {
	source, err := s.fetch(ctx, s.DB.WithContext(ctx), orgID, owner, locationID)
	if err != nil {
		return nil, err
	}
	if !source.IsActive {
		return nil, &apperrors.ConflictError{Message: "cannot move an inactive location"}
	}

	merged := source.LocationAttributes
	if err := applyFields(&merged, fields, true); err != nil {
		return nil, err
	}
	merged.IsActive = true
	if err := s.validateAttributes(ctx, owner.Kind, &merged); err != nil {
		return nil, err
	}

	var created *Location
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.setActive(ctx, tx, owner, locationID, false); err != nil {
			return err
		}
		loc, err := s.insert(ctx, tx, orgID, owner, merged)
		if err != nil {
			return err
		}
		created = loc
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("org_id", orgID.String()).
		Str("from_location", locationID.String()).
		Str("to_location", created.LocationID.String()).
		Msg("location moved")
	return created, nil
}

// ListActiveForOwner returns the owner's active locations in creation order,
// excluding deactivated history.
func (s *Service) ListActiveForOwner(ctx context.Context, orgID uuid.UUID, owner Owner) ([]Location, error) {
	return s.list(ctx, orgID, owner, true)
}

// ListAllForOwner includes inactive history, for audit views.
func (s *Service) ListAllForOwner(ctx context.Context, orgID uuid.UUID, owner Owner) ([]Location, error) {
	return s.list(ctx, orgID, owner, false)
}

// ListByCountry answers geographic queries across every owner in the org,
// merging recipient-side and asset-side locations.
func (s *Service) ListByCountry(ctx context.Context, orgID, countryID uuid.UUID, activeOnly bool) ([]Location, error) {
	q := s.DB.WithContext(ctx).Where("org_id = ? AND country_id = ?", orgID, countryID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var recLocs []models.RecipientLocation
	if err := q.Session(&gorm.Session{}).Find(&recLocs).Error; err != nil {
		return nil, err
	}
	var assetLocs []models.AssetLocation
	if err := q.Session(&gorm.Session{}).Find(&assetLocs).Error; err != nil {
		return nil, err
	}

	out := make([]Location, 0, len(recLocs)+len(assetLocs))
	for i := range recLocs {
		out = append(out, fromRecipientLocation(&recLocs[i]))
	}
	for i := range assetLocs {
		out = append(out, fromAssetLocation(&assetLocs[i]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// VerifyOwnerTx exposes the owner check for services that create owners and
// locations in one transaction.
func (s *Service) VerifyOwnerTx(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, owner Owner) error {
	return s.verifyOwner(ctx, tx, orgID, owner)
}

func (s *Service) list(ctx context.Context, orgID uuid.UUID, owner Owner, activeOnly bool) ([]Location, error) {
	switch owner.Kind {
	case OwnerRecipient:
		q := s.DB.WithContext(ctx).Where("org_id = ? AND recipient_id = ?", orgID, owner.ID)
		if activeOnly {
			q = q.Where("is_active = ?", true)
		}
		var locs []models.RecipientLocation
		if err := q.Order("created_at ASC").Find(&locs).Error; err != nil {
			return nil, err
		}
		out := make([]Location, len(locs))
		for i := range locs {
			out[i] = fromRecipientLocation(&locs[i])
		}
		return out, nil
	case OwnerAsset:
		q := s.DB.WithContext(ctx).Where("org_id = ? AND asset_id = ?", orgID, owner.ID)
		if activeOnly {
			q = q.Where("is_active = ?", true)
		}
		var locs []models.AssetLocation
		if err := q.Order("created_at ASC").Find(&locs).Error; err != nil {
			return nil, err
		}
		out := make([]Location, len(locs))
		for i := range locs {
			out[i] = fromAssetLocation(&locs[i])
		}
		return out, nil
	}
	return nil, apperrors.Validation("owner", "unknown owner kind")
}

func (s *Service) verifyOwner(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, owner Owner) error {
	switch owner.Kind {
	case OwnerRecipient:
		var rec models.Recipient
		return apperrors.Translate(
			tx.Where("recipient_id = ? AND org_id = ?", owner.ID, orgID).First(&rec).Error,
			"recipient")
	case OwnerAsset:
		var asset models.DigitalAsset
		return apperrors.Translate(
			tx.Where("asset_id = ? AND org_id = ?", owner.ID, orgID).First(&asset).Error,
			"digital asset")
	}
	return apperrors.Validation("owner", "unknown owner kind")
}

func (s *Service) fetch(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, owner Owner, locationID uuid.UUID) (*Location, error) {
	switch owner.Kind {
	case OwnerRecipient:
		var loc models.RecipientLocation
		err := tx.Where("location_id = ? AND org_id = ? AND recipient_id = ?", locationID, orgID, owner.ID).
			First(&loc).Error
		if err != nil {
			return nil, apperrors.Translate(err, "location")
		}
		v := fromRecipientLocation(&loc)
		return &v, nil
	case OwnerAsset:
		var loc models.AssetLocation
		err := tx.Where("location_id = ? AND org_id = ? AND asset_id = ?", locationID, orgID, owner.ID).
			First(&loc).Error
		if err != nil {
			return nil, apperrors.Translate(err, "location")
		}
		v := fromAssetLocation(&loc)
		return &v, nil
	}
	return nil, apperrors.Validation("owner", "unknown owner kind")
}

func (s *Service) insert(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, owner Owner, attrs models.LocationAttributes) (*Location, error) {
	switch owner.Kind {
	case OwnerRecipient:
		rec := &models.RecipientLocation{
			OrganizationID:     orgID,
			RecipientID:        owner.ID,
			LocationAttributes: attrs,
		}
		if err := tx.Create(rec).Error; err != nil {
			return nil, err
		}
		v := fromRecipientLocation(rec)
		return &v, nil
	case OwnerAsset:
		rec := &models.AssetLocation{
			OrganizationID:     orgID,
			AssetID:            owner.ID,
			LocationAttributes: attrs,
		}
		if err := tx.Create(rec).Error; err != nil {
			return nil, err
		}
		v := fromAssetLocation(rec)
		return &v, nil
	}
	return nil, apperrors.Validation("owner", "unknown owner kind")
}

func (s *Service) saveAttributes(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, owner Owner, locationID uuid.UUID, attrs models.LocationAttributes) error {
	updates := map[string]interface{}{
		"service":               attrs.Service,
		"location_role":         attrs.LocationRole,
		"purpose_id":            attrs.PurposeID,
		"purpose_text":          attrs.PurposeText,
		"transfer_mechanism_id": attrs.TransferMechanismID,
		"metadata":              attrs.Metadata,
	}
	switch owner.Kind {
	case OwnerRecipient:
		return tx.Model(&models.RecipientLocation{}).
			Where("location_id = ? AND org_id = ? AND recipient_id = ?", locationID, orgID, owner.ID).
			Updates(updates).Error
	case OwnerAsset:
		return tx.Model(&models.AssetLocation{}).
			Where("location_id = ? AND org_id = ? AND asset_id = ?", locationID, orgID, owner.ID).
			Updates(updates).Error
	}
	return apperrors.Validation("owner", "unknown owner kind")
}

func (s *Service) setActive(ctx context.Context, tx *gorm.DB, owner Owner, locationID uuid.UUID, active bool) error {
	switch owner.Kind {
	case OwnerRecipient:
		return tx.Model(&models.RecipientLocation{}).
			Where("location_id = ?", locationID).
			Update("is_active", active).Error
	case OwnerAsset:
		return tx.Model(&models.AssetLocation{}).
			Where("location_id = ?", locationID).
			Update("is_active", active).Error
	}
	return apperrors.Validation("owner", "unknown owner kind")
}

// validateAttributes enforces the hard rules (service text bounds, known role,
// resolvable country/mechanism) and the soft purpose policy for assets: an
// asset location with no purpose at all is accepted but logged.
func (s *Service) validateAttributes(ctx context.Context, kind OwnerKind, attrs *models.LocationAttributes) error {
	if !validation.IsValidServiceText(attrs.Service) {
		return apperrors.Validation("service", "service description must be 2-255 characters")
	}
	if !models.ValidLocationRole(attrs.LocationRole) {
		return apperrors.Validation("location_role", "must be HOSTING, PROCESSING or BOTH")
	}
	if _, err := s.RefData.CountryByID(ctx, attrs.CountryID); err != nil {
		return apperrors.Validation("country_id", "unknown country")
	}
	if attrs.TransferMechanismID != nil {
		if _, err := s.RefData.MechanismByID(ctx, *attrs.TransferMechanismID); err != nil {
			return apperrors.Validation("transfer_mechanism_id", "unknown transfer mechanism")
		}
	}
	if kind == OwnerAsset && attrs.PurposeID == nil &&
		(attrs.PurposeText == nil || *attrs.PurposeText == "") {
		log.Warn().Str("service", attrs.Service).Msg("asset location created without a purpose")
	}
	return nil
}

// applyFields merges a partial-update map onto attrs. Presence of a key with a
// null value clears that field; allowCountry is true only for Move.
func applyFields(attrs *models.LocationAttributes, fields map[string]interface{}, allowCountry bool) error {
	for key, value := range fields {
		switch key {
		case "service":
			str, ok := value.(string)
			if !ok {
				return apperrors.Validation("service", "must be a string")
			}
			attrs.Service = str
		case "location_role":
			str, ok := value.(string)
			if !ok {
				return apperrors.Validation("location_role", "must be a string")
			}
			attrs.LocationRole = models.LocationRole(str)
		case "country_id":
			if !allowCountry {
				return apperrors.Validation("country_id", "country changes go through move")
			}
			id, err := parseUUIDValue(value)
			if err != nil || id == nil {
				return apperrors.Validation("country_id", "must be a country id")
			}
			attrs.CountryID = *id
		case "purpose_id":
			id, err := parseUUIDValue(value)
			if err != nil {
				return apperrors.Validation("purpose_id", "must be a purpose id or null")
			}
			attrs.PurposeID = id
		case "purpose_text":
			if value == nil {
				attrs.PurposeText = nil
			} else if str, ok := value.(string); ok {
				attrs.PurposeText = &str
			} else {
				return apperrors.Validation("purpose_text", "must be a string or null")
			}
		case "transfer_mechanism_id":
			id, err := parseUUIDValue(value)
			if err != nil {
				return apperrors.Validation("transfer_mechanism_id", "must be a mechanism id or null")
			}
			attrs.TransferMechanismID = id
		case "metadata":
			if value == nil {
				attrs.Metadata = nil
			} else {
				b, err := json.Marshal(value)
				if err != nil {
					return apperrors.Validation("metadata", "must be a JSON object or null")
				}
				attrs.Metadata = datatypes.JSON(b)
			}
		default:
			return apperrors.Validation(key, "field is not updatable")
		}
	}
	return nil
}

func parseUUIDValue(value interface{}) (*uuid.UUID, error) {
	if value == nil {
		return nil, nil
	}
	str, ok := value.(string)
	if !ok {
		return nil, apperrors.Validation("", "expected an id string")
	}
	id, err := uuid.Parse(str)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func fromRecipientLocation(m *models.RecipientLocation) Location {
	return Location{
		LocationID:         m.LocationID,
		OrganizationID:     m.OrganizationID,
		Owner:              Owner{Kind: OwnerRecipient, ID: m.RecipientID},
		LocationAttributes: m.LocationAttributes,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func fromAssetLocation(m *models.AssetLocation) Location {
	return Location{
		LocationID:         m.LocationID,
		OrganizationID:     m.OrganizationID,
		Owner:              Owner{Kind: OwnerAsset, ID: m.AssetID},
		LocationAttributes: m.LocationAttributes,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}
