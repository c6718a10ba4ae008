package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Sensitivity is the org-assigned handling tier, ordered PUBLIC < INTERNAL <
// CONFIDENTIAL < RESTRICTED. Independent of the Article 9 special flag.
type Sensitivity string

const (
	SensitivityPublic       Sensitivity = "PUBLIC"
	SensitivityInternal     Sensitivity = "INTERNAL"
	SensitivityConfidential Sensitivity = "CONFIDENTIAL"
	SensitivityRestricted   Sensitivity = "RESTRICTED"
)

// ValidSensitivity reports whether s is one of the four tiers.
func ValidSensitivity(s Sensitivity) bool {
	switch s {
	case SensitivityPublic, SensitivityInternal, SensitivityConfidential, SensitivityRestricted:
		return true
	}
	return false
}

// SpecialOverride is a manual correction of the derived special-category flag.
// Stored in the override_metadata jsonb column; a nil decoded value means the
// flag is computed from linked natures.
type SpecialOverride struct {
	Overridden    bool      `json:"overridden"`
	Value         bool      `json:"value"`
	Justification string    `json:"justification"`
	OverriddenAt  time.Time `json:"overridden_at"`
	OverriddenBy  string    `json:"overridden_by"`
}

// DataCategory is an org-owned classification bucket for personal data.
// IsSpecialCategory is derived from the linked DataNature rows (any SPECIAL
// nature makes the whole category special) unless an override is stored.
type DataCategory struct {
	CategoryID        uuid.UUID      `gorm:"column:category_id;type:uuid;primaryKey" json:"category_id"`
	OrganizationID    uuid.UUID      `gorm:"column:org_id;type:uuid;not null;index" json:"org_id"`
	Name              string         `gorm:"column:name;size:150;not null" json:"name"`
	Description       *string        `gorm:"column:description" json:"description"`
	Sensitivity       Sensitivity    `gorm:"column:sensitivity;type:varchar(20);not null;default:'INTERNAL'" json:"sensitivity"`
	IsSpecialCategory bool           `gorm:"column:is_special_category;not null;default:false" json:"is_special_category"`
	ExampleFields     datatypes.JSON `gorm:"column:example_fields;type:jsonb" json:"example_fields"`
	OverrideMetadata  datatypes.JSON `gorm:"column:override_metadata;type:jsonb" json:"override_metadata"`
	IsActive          bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (DataCategory) TableName() string {
	return "DataCategories"
}

func (dc *DataCategory) BeforeCreate(tx *gorm.DB) error {
	if dc.CategoryID == uuid.Nil {
		dc.CategoryID = uuid.New()
	}
	return nil
}

// Override decodes the stored override, or nil when the flag is computed.
func (dc *DataCategory) Override() *SpecialOverride {
	if len(dc.OverrideMetadata) == 0 {
		return nil
	}
	var o SpecialOverride
	if err := json.Unmarshal(dc.OverrideMetadata, &o); err != nil || !o.Overridden {
		return nil
	}
	return &o
}

// SetOverride encodes o into the override_metadata column; nil clears it.
func (dc *DataCategory) SetOverride(o *SpecialOverride) {
	if o == nil {
		dc.OverrideMetadata = nil
		return
	}
	b, _ := json.Marshal(o)
	dc.OverrideMetadata = datatypes.JSON(b)
}

// DataCategoryNature is the category↔nature junction. First-class row with its
// own id so link metadata can be added later without restructuring; the
// composite unique index enforces one link per pair.
type DataCategoryNature struct {
	LinkID         uuid.UUID `gorm:"column:link_id;type:uuid;primaryKey" json:"link_id"`
	DataCategoryID uuid.UUID `gorm:"column:data_category_id;type:uuid;not null;uniqueIndex:idx_category_nature" json:"data_category_id"`
	DataNatureID   uuid.UUID `gorm:"column:data_nature_id;type:uuid;not null;uniqueIndex:idx_category_nature" json:"data_nature_id"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (DataCategoryNature) TableName() string {
	return "DataCategoryNatures"
}

func (l *DataCategoryNature) BeforeCreate(tx *gorm.DB) error {
	if l.LinkID == uuid.Nil {
		l.LinkID = uuid.New()
	}
	return nil
}
