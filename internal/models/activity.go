package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProcessingActivity is one entry of the org's record of processing activities.
// Recipients and digital assets are attached through junction rows; unlinking
// removes the junction only, never the linked entity.
type ProcessingActivity struct {
	ActivityID     uuid.UUID      `gorm:"column:activity_id;type:uuid;primaryKey" json:"activity_id"`
	OrganizationID uuid.UUID      `gorm:"column:org_id;type:uuid;not null;index" json:"org_id"`
	Name           string         `gorm:"column:name;size:255;not null" json:"name"`
	Description    *string        `gorm:"column:description" json:"description"`
	IsActive       bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ProcessingActivity) TableName() string {
	return "ProcessingActivities"
}

func (a *ProcessingActivity) BeforeCreate(tx *gorm.DB) error {
	if a.ActivityID == uuid.Nil {
		a.ActivityID = uuid.New()
	}
	return nil
}

// ActivityRecipient links an activity to a recipient; unique per pair.
type ActivityRecipient struct {
	LinkID      uuid.UUID `gorm:"column:link_id;type:uuid;primaryKey" json:"link_id"`
	ActivityID  uuid.UUID `gorm:"column:activity_id;type:uuid;not null;uniqueIndex:idx_activity_recipient" json:"activity_id"`
	RecipientID uuid.UUID `gorm:"column:recipient_id;type:uuid;not null;uniqueIndex:idx_activity_recipient" json:"recipient_id"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (ActivityRecipient) TableName() string {
	return "ActivityRecipients"
}

func (l *ActivityRecipient) BeforeCreate(tx *gorm.DB) error {
	if l.LinkID == uuid.Nil {
		l.LinkID = uuid.New()
	}
	return nil
}

// ActivityAsset links an activity to a digital asset; unique per pair.
type ActivityAsset struct {
	LinkID     uuid.UUID `gorm:"column:link_id;type:uuid;primaryKey" json:"link_id"`
	ActivityID uuid.UUID `gorm:"column:activity_id;type:uuid;not null;uniqueIndex:idx_activity_asset" json:"activity_id"`
	AssetID    uuid.UUID `gorm:"column:asset_id;type:uuid;not null;uniqueIndex:idx_activity_asset" json:"asset_id"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (ActivityAsset) TableName() string {
	return "ActivityAssets"
}

func (l *ActivityAsset) BeforeCreate(tx *gorm.DB) error {
	if l.LinkID == uuid.Nil {
		l.LinkID = uuid.New()
	}
	return nil
}
