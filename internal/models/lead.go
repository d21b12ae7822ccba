package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	OriginWebsite = "website"
	OriginManual  = "manual"
)

type Lead struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	FullName    string    `gorm:"not null" json:"full_name"`
	Email       string    `gorm:"index" json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	ServiceType string    `json:"service_type,omitempty"`
	Message     string    `json:"message,omitempty"`
	FormID      string    `json:"form_id,omitempty"`
	Origin      string    `gorm:"default:'website';index" json:"origin"`
	Status      string    `gorm:"default:'new';index" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

func (Lead) TableName() string {
	return "leads"
}
