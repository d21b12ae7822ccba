package repository

import (
	"context"

	"github.com/crafted-exteriors/crm-api/internal/models"
	"github.com/crafted-exteriors/crm-api/internal/storage"
	"gorm.io/gorm"
)

type LeadRepository struct {
	db *storage.Postgres
}

func NewLeadRepository(db *storage.Postgres) *LeadRepository {
	return &LeadRepository{db: db}
}

// CreateWithActivity commits a lead and its creation activity in one
// transaction. A lead is never observable without that first activity.
func (r *LeadRepository) CreateWithActivity(ctx context.Context, lead *models.Lead, activity *models.Activity) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Create(lead).Error; err != nil {
			return err
		}

		activity.LeadID = lead.ID
		return tx.WithContext(ctx).Create(activity).Error
	})
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*models.Lead, error) {
	var lead models.Lead
	err := r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		First(&lead).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &lead, err
}

type LeadFilter struct {
	Status string
	Origin string
	Limit  int
	Offset int
}

func (r *LeadRepository) List(ctx context.Context, filter LeadFilter) ([]models.Lead, error) {
	query := r.db.DB.WithContext(ctx).Order("created_at DESC")

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Origin != "" {
		query = query.Where("origin = ?", filter.Origin)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var leads []models.Lead
	err := query.Find(&leads).Error
	return leads, err
}

// UpdateWithActivity applies field updates and appends an activity record in
// one transaction. Pass a nil activity for updates that don't touch status.
func (r *LeadRepository) UpdateWithActivity(ctx context.Context, id string, updates map[string]interface{}, activity *models.Activity) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).
			Model(&models.Lead{}).
			Where("id = ?", id).
			Updates(updates).Error; err != nil {
			return err
		}

		if activity == nil {
			return nil
		}
		return tx.WithContext(ctx).Create(activity).Error
	})
}

// Delete removes a lead and cascades to its activity records.
func (r *LeadRepository) Delete(ctx context.Context, id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).
			Where("lead_id = ?", id).
			Delete(&models.Activity{}).Error; err != nil {
			return err
		}

		return tx.WithContext(ctx).
			Where("id = ?", id).
			Delete(&models.Lead{}).Error
	})
}

func (r *LeadRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.Lead{}).
		Where("status = ?", status).
		Count(&count).Error

	return count, err
}
