package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActivityCreated       = "created"
	ActivityStatusChanged = "status_changed"
	ActivityNote          = "note"
	ActivityConverted     = "converted"
)

// An Activity is an append-only record on a lead's timeline. Creation
// activities are written in the same transaction as the lead itself.
type Activity struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	LeadID      uuid.UUID `gorm:"type:uuid;index;not null" json:"lead_id"`
	Type        string    `gorm:"not null" json:"type"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (Activity) TableName() string {
	return "activities"
}
