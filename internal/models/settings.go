package models

import (
	"encoding/json"
	"time"
)

// PipelineSettings is the single-row settings document that drives lead
// status and deal stage validation. The value sets are stored as JSON
// arrays so the admin console can reorder and rename them freely.
type PipelineSettings struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	LeadStatuses string    `gorm:"type:text;not null" json:"-"`
	DealStages   string    `gorm:"type:text;not null" json:"-"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (PipelineSettings) TableName() string {
	return "pipeline_settings"
}

// Defaults applied when no settings row has been written yet.
var (
	DefaultLeadStatuses = []string{"new", "contacted", "quoted", "won", "lost"}
	DefaultDealStages   = []string{"prospect", "estimate_sent", "negotiation", "closed_won", "closed_lost"}
)

func (p *PipelineSettings) Statuses() []string {
	return decodeStringList(p.LeadStatuses, DefaultLeadStatuses)
}

func (p *PipelineSettings) Stages() []string {
	return decodeStringList(p.DealStages, DefaultDealStages)
}

func (p *PipelineSettings) SetStatuses(statuses []string) error {
	encoded, err := json.Marshal(statuses)
	if err != nil {
		return err
	}
	p.LeadStatuses = string(encoded)
	return nil
}

func (p *PipelineSettings) SetStages(stages []string) error {
	encoded, err := json.Marshal(stages)
	if err != nil {
		return err
	}
	p.DealStages = string(encoded)
	return nil
}

func decodeStringList(raw string, fallback []string) []string {
	if raw == "" {
		return fallback
	}

	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil || len(values) == 0 {
		return fallback
	}

	return values
}
