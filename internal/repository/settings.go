package repository

import (
	"context"

	"github.com/crafted-exteriors/crm-api/internal/models"
	"github.com/crafted-exteriors/crm-api/internal/storage"
	"gorm.io/gorm"
)

// settingsRowID pins the singleton settings document.
const settingsRowID = 1

type SettingsRepository struct {
	db *storage.Postgres
}

func NewSettingsRepository(db *storage.Postgres) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) Get(ctx context.Context) (*models.PipelineSettings, error) {
	var settings models.PipelineSettings
	err := r.db.DB.WithContext(ctx).
		Where("id = ?", settingsRowID).
		First(&settings).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &settings, err
}

func (r *SettingsRepository) Save(ctx context.Context, settings *models.PipelineSettings) error {
	settings.ID = settingsRowID
	return r.db.DB.WithContext(ctx).Save(settings).Error
}
