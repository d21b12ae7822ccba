package repository

import (
	"context"

	"github.com/crafted-exteriors/crm-api/internal/models"
	"github.com/crafted-exteriors/crm-api/internal/storage"
	"gorm.io/gorm"
)

type DealRepository struct {
	db *storage.Postgres
}

func NewDealRepository(db *storage.Postgres) *DealRepository {
	return &DealRepository{db: db}
}

func (r *DealRepository) Create(ctx context.Context, deal *models.Deal) error {
	return r.db.DB.WithContext(ctx).Create(deal).Error
}

func (r *DealRepository) FindByID(ctx context.Context, id string) (*models.Deal, error) {
	var deal models.Deal
	err := r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		First(&deal).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &deal, err
}

type DealFilter struct {
	ClientID string
	Stage    string
	Limit    int
	Offset   int
}

func (r *DealRepository) List(ctx context.Context, filter DealFilter) ([]models.Deal, error) {
	query := r.db.DB.WithContext(ctx).Order("created_at DESC")

	if filter.ClientID != "" {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if filter.Stage != "" {
		query = query.Where("stage = ?", filter.Stage)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var deals []models.Deal
	err := query.Find(&deals).Error
	return deals, err
}

func (r *DealRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	return r.db.DB.WithContext(ctx).
		Model(&models.Deal{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *DealRepository) Delete(ctx context.Context, id string) error {
	return r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Deal{}).Error
}

// SumValueByStage aggregates pipeline value for the dashboard.
func (r *DealRepository) SumValueByStage(ctx context.Context, stage string) (int64, error) {
	var total int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.Deal{}).
		Where("stage = ?", stage).
		Select("COALESCE(SUM(value_cents), 0)").
		Scan(&total).Error

	return total, err
}
