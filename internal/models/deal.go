package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Deal struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	ClientID      uuid.UUID  `gorm:"type:uuid;index;not null" json:"client_id"`
	LeadID        *uuid.UUID `gorm:"type:uuid;index" json:"lead_id,omitempty"`
	Title         string     `gorm:"not null" json:"title"`
	ValueCents    int64      `gorm:"default:0" json:"value_cents"`
	Stage         string     `gorm:"default:'prospect';index" json:"stage"`
	ExpectedClose *time.Time `json:"expected_close,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (d *Deal) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

func (Deal) TableName() string {
	return "deals"
}
