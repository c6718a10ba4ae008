package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DigitalAsset is an org-owned system that hosts or processes personal data
// (SaaS tool, database, internal application). Locations attached to it record
// where it actually keeps the data.
type DigitalAsset struct {
	AssetID        uuid.UUID      `gorm:"column:asset_id;type:uuid;primaryKey" json:"asset_id"`
	OrganizationID uuid.UUID      `gorm:"column:org_id;type:uuid;not null;index" json:"org_id"`
	Name           string         `gorm:"column:name;size:255;not null" json:"name"`
	Description    *string        `gorm:"column:description" json:"description"`
	AssetType      *string        `gorm:"column:asset_type;size:50" json:"asset_type"`
	IsActive       bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (DigitalAsset) TableName() string {
	return "DigitalAssets"
}

func (a *DigitalAsset) BeforeCreate(tx *gorm.DB) error {
	if a.AssetID == uuid.Nil {
		a.AssetID = uuid.New()
	}
	return nil
}
