package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Organization is the tenant root. Every org-scoped table hangs off OrgID.
// HeadquartersCountryID is the reference jurisdiction for transfer detection;
// it is nullable because setup is a separate step, and transfer analysis
// refuses to run until it is filled in.
type Organization struct {
	OrgID                  uuid.UUID      `gorm:"column:org_id;type:uuid;primaryKey" json:"org_id"`
	Name                   string         `gorm:"column:name;size:255;not null" json:"name"`
	HeadquartersCountryID  *uuid.UUID     `gorm:"column:headquarters_country_id;type:uuid" json:"headquarters_country_id"`
	CreatedAt              time.Time      `json:"createdAt"`
	UpdatedAt              time.Time      `json:"updatedAt"`
	DeletedAt              gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Organization) TableName() string {
	return "Organizations"
}

func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.OrgID == uuid.Nil {
		o.OrgID = uuid.New()
	}
	return nil
}
