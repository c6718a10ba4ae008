package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NatureClassification marks a data nature as Article 9/10 special or not.
type NatureClassification string

const (
	NatureSpecial    NatureClassification = "SPECIAL"
	NatureNonSpecial NatureClassification = "NON_SPECIAL"
)

// DataNature is one atomic kind of personal data ("Health Data", "Name", ...).
// Global reference data, read-only from this service.
type DataNature struct {
	NatureID       uuid.UUID            `gorm:"column:nature_id;type:uuid;primaryKey" json:"nature_id"`
	Name           string               `gorm:"column:name;size:100;uniqueIndex;not null" json:"name"`
	Classification NatureClassification `gorm:"column:classification;type:varchar(20);not null" json:"classification"`
	GdprArticleRef string               `gorm:"column:gdpr_article_ref;size:50" json:"gdpr_article_ref"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

func (DataNature) TableName() string {
	return "DataNatures"
}

func (n *DataNature) BeforeCreate(tx *gorm.DB) error {
	if n.NatureID == uuid.Nil {
		n.NatureID = uuid.New()
	}
	return nil
}
