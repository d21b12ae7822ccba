package repository

import (
	"context"

	"github.com/crafted-exteriors/crm-api/internal/models"
	"github.com/crafted-exteriors/crm-api/internal/storage"
)

type ActivityRepository struct {
	db *storage.Postgres
}

func NewActivityRepository(db *storage.Postgres) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	return r.db.DB.WithContext(ctx).Create(activity).Error
}

func (r *ActivityRepository) ListByLead(ctx context.Context, leadID string) ([]models.Activity, error) {
	var activities []models.Activity
	err := r.db.DB.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("created_at DESC").
		Find(&activities).Error

	return activities, err
}

func (r *ActivityRepository) CountByLead(ctx context.Context, leadID string) (int64, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.Activity{}).
		Where("lead_id = ?", leadID).
		Count(&count).Error

	return count, err
}
