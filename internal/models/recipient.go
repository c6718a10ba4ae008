package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecipientType is the GDPR role of the party receiving data.
type RecipientType string

const (
	RecipientProcessor       RecipientType = "PROCESSOR"
	RecipientSubProcessor    RecipientType = "SUB_PROCESSOR"
	RecipientJointController RecipientType = "JOINT_CONTROLLER"
	RecipientController      RecipientType = "CONTROLLER"
	RecipientThirdParty      RecipientType = "THIRD_PARTY"
)

// ValidRecipientType reports whether t is a known recipient role.
func ValidRecipientType(t RecipientType) bool {
	switch t {
	case RecipientProcessor, RecipientSubProcessor, RecipientJointController,
		RecipientController, RecipientThirdParty:
		return true
	}
	return false
}

// Recipient is an org-owned party that receives or processes personal data.
// ParentRecipientID links sub-processors to their engaging processor, forming
// a forest per organization. Acyclicity is enforced on write (ancestor walk),
// never at traversal time.
type Recipient struct {
	RecipientID       uuid.UUID      `gorm:"column:recipient_id;type:uuid;primaryKey" json:"recipient_id"`
	OrganizationID    uuid.UUID      `gorm:"column:org_id;type:uuid;not null;index" json:"org_id"`
	Name              string         `gorm:"column:name;size:255;not null" json:"name"`
	Type              RecipientType  `gorm:"column:type;type:varchar(20);not null" json:"type"`
	ParentRecipientID *uuid.UUID     `gorm:"column:parent_recipient_id;type:uuid;index" json:"parent_recipient_id"`
	IsActive          bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Recipient) TableName() string {
	return "Recipients"
}

func (r *Recipient) BeforeCreate(tx *gorm.DB) error {
	if r.RecipientID == uuid.Nil {
		r.RecipientID = uuid.New()
	}
	return nil
}
