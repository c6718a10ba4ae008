package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LocationRole is what the owner does with data in that country.
type LocationRole string

const (
	RoleHosting    LocationRole = "HOSTING"
	RoleProcessing LocationRole = "PROCESSING"
	RoleBoth       LocationRole = "BOTH"
)

// ValidLocationRole reports whether r is a known role.
func ValidLocationRole(r LocationRole) bool {
	switch r {
	case RoleHosting, RoleProcessing, RoleBoth:
		return true
	}
	return false
}

// LocationAttributes are the fields shared by the recipient and asset location
// variants. Inactive rows are superseded history and are never deleted; a
// country change goes through move (deactivate old + insert new) so the record
// of what was true as of what date survives.
type LocationAttributes struct {
	Service             string         `gorm:"column:service;size:255;not null" json:"service"`
	CountryID           uuid.UUID      `gorm:"column:country_id;type:uuid;not null;index" json:"country_id"`
	LocationRole        LocationRole   `gorm:"column:location_role;type:varchar(20);not null" json:"location_role"`
	PurposeID           *uuid.UUID     `gorm:"column:purpose_id;type:uuid" json:"purpose_id"`
	PurposeText         *string        `gorm:"column:purpose_text" json:"purpose_text"`
	TransferMechanismID *uuid.UUID     `gorm:"column:transfer_mechanism_id;type:uuid" json:"transfer_mechanism_id"`
	IsActive            bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	Metadata            datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
}

// RecipientLocation is a processing-location fact owned by a Recipient.
type RecipientLocation struct {
	LocationID         uuid.UUID `gorm:"column:location_id;type:uuid;primaryKey" json:"location_id"`
	OrganizationID     uuid.UUID `gorm:"column:org_id;type:uuid;not null;index" json:"org_id"`
	RecipientID        uuid.UUID `gorm:"column:recipient_id;type:uuid;not null;index" json:"recipient_id"`
	LocationAttributes `gorm:"embedded"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (RecipientLocation) TableName() string {
	return "RecipientLocations"
}

func (l *RecipientLocation) BeforeCreate(tx *gorm.DB) error {
	if l.LocationID == uuid.Nil {
		l.LocationID = uuid.New()
	}
	return nil
}

// AssetLocation is a processing-location fact owned by a DigitalAsset.
// Isomorphic to RecipientLocation; kept as its own table so the cascade from
// asset deletion stays at the storage layer.
type AssetLocation struct {
	LocationID         uuid.UUID `gorm:"column:location_id;type:uuid;primaryKey" json:"location_id"`
	OrganizationID     uuid.UUID `gorm:"column:org_id;type:uuid;not null;index" json:"org_id"`
	AssetID            uuid.UUID `gorm:"column:asset_id;type:uuid;not null;index" json:"asset_id"`
	LocationAttributes `gorm:"embedded"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (AssetLocation) TableName() string {
	return "AssetLocations"
}

func (l *AssetLocation) BeforeCreate(tx *gorm.DB) error {
	if l.LocationID == uuid.Nil {
		l.LocationID = uuid.New()
	}
	return nil
}
