package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/crafted-exteriors/crm-api/internal/models"
	"github.com/crafted-exteriors/crm-api/internal/repository"
	"github.com/crafted-exteriors/crm-api/internal/storage"
)

const (
	settingsCacheKey = "settings:pipeline"
	settingsCacheTTL = time.Minute
)

// PipelineConfig is the decoded settings document handed to callers.
type PipelineConfig struct {
	LeadStatuses []string `json:"lead_statuses"`
	DealStages   []string `json:"deal_stages"`
}

// SettingsStore is the persistence slice the settings service needs;
// repository.SettingsRepository satisfies it.
type SettingsStore interface {
	Get(ctx context.Context) (*models.PipelineSettings, error)
	Save(ctx context.Context, settings *models.PipelineSettings) error
}

var _ SettingsStore = (*repository.SettingsRepository)(nil)

// SettingsService owns the pipeline settings document and the status/stage
// validation rules driven by it. Reads go through a short-lived Redis cache;
// updates invalidate it.
type SettingsService struct {
	repository SettingsStore
	redis      *storage.RedisClient
}

func NewSettingsService(repo SettingsStore, redis *storage.RedisClient) *SettingsService {
	return &SettingsService{
		repository: repo,
		redis:      redis,
	}
}

// Get returns the current pipeline config, falling back to defaults when no
// settings row exists yet. A cache or store failure degrades to defaults
// rather than blocking CRM writes.
func (s *SettingsService) Get(ctx context.Context) PipelineConfig {
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, settingsCacheKey)
		if err == nil && cached != "" {
			var cfg PipelineConfig
			if err := json.Unmarshal([]byte(cached), &cfg); err == nil {
				return cfg
			}
		}
	}

	settings, err := s.repository.Get(ctx)
	if err != nil || settings == nil {
		return PipelineConfig{
			LeadStatuses: models.DefaultLeadStatuses,
			DealStages:   models.DefaultDealStages,
		}
	}

	cfg := PipelineConfig{
		LeadStatuses: settings.Statuses(),
		DealStages:   settings.Stages(),
	}

	if s.redis != nil {
		if encoded, err := json.Marshal(cfg); err == nil {
			s.redis.Set(ctx, settingsCacheKey, encoded, settingsCacheTTL)
		}
	}

	return cfg
}

// Update validates and persists a new pipeline config, then drops the cache.
func (s *SettingsService) Update(ctx context.Context, cfg PipelineConfig) error {
	if err := validateValueSet("lead statuses", cfg.LeadStatuses); err != nil {
		return err
	}
	if err := validateValueSet("deal stages", cfg.DealStages); err != nil {
		return err
	}

	settings, err := s.repository.Get(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if settings == nil {
		settings = &models.PipelineSettings{}
	}

	if err := settings.SetStatuses(cfg.LeadStatuses); err != nil {
		return err
	}
	if err := settings.SetStages(cfg.DealStages); err != nil {
		return err
	}

	if err := s.repository.Save(ctx, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	if s.redis != nil {
		s.redis.Del(ctx, settingsCacheKey)
	}

	return nil
}

// ValidateLeadStatus enforces the status machine against the current config.
// The NEW status must belong to the configured set. A record already holding
// a legacy (since removed) status keeps working: reads succeed and it may
// transition FROM the legacy value to any configured one.
func (s *SettingsService) ValidateLeadStatus(ctx context.Context, next string) error {
	cfg := s.Get(ctx)
	if containsValue(cfg.LeadStatuses, next) {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, next)
}

// ValidateDealStage is the deal-side counterpart of ValidateLeadStatus.
func (s *SettingsService) ValidateDealStage(ctx context.Context, next string) error {
	cfg := s.Get(ctx)
	if containsValue(cfg.DealStages, next) {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidStage, next)
}

// WonStatus picks the status used when a lead converts to a client: "won"
// when configured, otherwise the last configured status.
func (s *SettingsService) WonStatus(ctx context.Context) string {
	cfg := s.Get(ctx)
	if containsValue(cfg.LeadStatuses, "won") {
		return "won"
	}
	return cfg.LeadStatuses[len(cfg.LeadStatuses)-1]
}

// DefaultLeadStatus returns the entry status for new leads.
func (s *SettingsService) DefaultLeadStatus(ctx context.Context) string {
	cfg := s.Get(ctx)
	if containsValue(cfg.LeadStatuses, "new") {
		return "new"
	}
	return cfg.LeadStatuses[0]
}

func validateValueSet(name string, values []string) error {
	if len(values) == 0 {
		return NewValidationError(name + " must not be empty")
	}

	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if v == "" {
			return NewValidationError(name + " must not contain empty values")
		}
		if seen[v] {
			return NewValidationError(name + " must not contain duplicates: " + v)
		}
		seen[v] = true
	}

	return nil
}

func containsValue(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
