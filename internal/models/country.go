package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JurisdictionTag labels a country's legal-framework membership. A country can
// carry several tags (e.g. Germany is both EU and EEA).
type JurisdictionTag string

const (
	TagEU           JurisdictionTag = "EU"
	TagEEA          JurisdictionTag = "EEA"
	TagEFTA         JurisdictionTag = "EFTA"
	TagThirdCountry JurisdictionTag = "THIRD_COUNTRY"
	TagAdequate     JurisdictionTag = "ADEQUATE"
)

// Country is global reference data, not org-scoped. Seeded at startup and
// never written by request handlers; rows are never deleted while referenced.
type Country struct {
	CountryID        uuid.UUID      `gorm:"column:country_id;type:uuid;primaryKey" json:"country_id"`
	Name             string         `gorm:"column:name;size:100;not null" json:"name"`
	IsoCode2         string         `gorm:"column:iso_code2;size:2;uniqueIndex;not null" json:"iso_code2"`
	IsoCode3         *string        `gorm:"column:iso_code3;size:3" json:"iso_code3"`
	JurisdictionTags datatypes.JSON `gorm:"column:jurisdiction_tags;type:jsonb;not null" json:"jurisdiction_tags"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

func (Country) TableName() string {
	return "Countries"
}

func (c *Country) BeforeCreate(tx *gorm.DB) error {
	if c.CountryID == uuid.Nil {
		c.CountryID = uuid.New()
	}
	return nil
}

// Tags decodes the jsonb tag array. A row with malformed tags decodes as empty,
// which downstream logic treats as "no shared jurisdiction with anything".
func (c *Country) Tags() []JurisdictionTag {
	var tags []JurisdictionTag
	if len(c.JurisdictionTags) > 0 {
		_ = json.Unmarshal(c.JurisdictionTags, &tags)
	}
	return tags
}

// TagsJSON builds the jsonb column value from a tag list (used by seeding).
func TagsJSON(tags ...JurisdictionTag) datatypes.JSON {
	b, _ := json.Marshal(tags)
	return datatypes.JSON(b)
}
