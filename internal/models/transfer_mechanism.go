package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MechanismCategory is the Chapter V family a safeguard belongs to.
type MechanismCategory string

const (
	MechanismAdequacy   MechanismCategory = "ADEQUACY"
	MechanismSafeguard  MechanismCategory = "SAFEGUARD"
	MechanismDerogation MechanismCategory = "DEROGATION"
	MechanismNone       MechanismCategory = "NONE"
)

// TransferMechanism is a legal safeguard permitting a third-country transfer
// (SCCs, BCRs, adequacy decisions, Article 49 derogations). Global catalog;
// this service only reads it.
type TransferMechanism struct {
	MechanismID           uuid.UUID         `gorm:"column:mechanism_id;type:uuid;primaryKey" json:"mechanism_id"`
	Name                  string            `gorm:"column:name;size:150;uniqueIndex;not null" json:"name"`
	Category              MechanismCategory `gorm:"column:category;type:varchar(20);not null" json:"category"`
	RequiresDocumentation bool              `gorm:"column:requires_documentation;not null;default:false" json:"requires_documentation"`
	Description           *string           `gorm:"column:description" json:"description"`
	CreatedAt             time.Time         `json:"createdAt"`
	UpdatedAt             time.Time         `json:"updatedAt"`
}

func (TransferMechanism) TableName() string {
	return "TransferMechanisms"
}

func (m *TransferMechanism) BeforeCreate(tx *gorm.DB) error {
	if m.MechanismID == uuid.Nil {
		m.MechanismID = uuid.New()
	}
	return nil
}

// Mitigates reports whether the mechanism actually provides a safeguard.
// Category NONE exists so a "no mechanism, reviewed and accepted" state can be
// recorded without counting as protection.
func (m *TransferMechanism) Mitigates() bool {
	return m.Category != MechanismNone
}
