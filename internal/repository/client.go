package repository

import (
	"context"

	"github.com/crafted-exteriors/crm-api/internal/models"
	"github.com/crafted-exteriors/crm-api/internal/storage"
	"gorm.io/gorm"
)

type ClientRepository struct {
	db *storage.Postgres
}

func NewClientRepository(db *storage.Postgres) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) Create(ctx context.Context, client *models.Client) error {
	return r.db.DB.WithContext(ctx).Create(client).Error
}

func (r *ClientRepository) FindByID(ctx context.Context, id string) (*models.Client, error) {
	var client models.Client
	err := r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		First(&client).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &client, err
}

func (r *ClientRepository) List(ctx context.Context, limit, offset int) ([]models.Client, error) {
	query := r.db.DB.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var clients []models.Client
	err := query.Find(&clients).Error
	return clients, err
}

func (r *ClientRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	return r.db.DB.WithContext(ctx).
		Model(&models.Client{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *ClientRepository) Delete(ctx context.Context, id string) error {
	return r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Client{}).Error
}

// ConvertLead creates a client from a lead, marks the lead with the given
// status, and appends a conversion activity in one transaction.
func (r *ClientRepository) ConvertLead(ctx context.Context, lead *models.Lead, client *models.Client, wonStatus string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Create(client).Error; err != nil {
			return err
		}

		if err := tx.WithContext(ctx).
			Model(&models.Lead{}).
			Where("id = ?", lead.ID).
			Update("status", wonStatus).Error; err != nil {
			return err
		}

		activity := &models.Activity{
			LeadID:      lead.ID,
			Type:        models.ActivityConverted,
			Description: "Converted to client " + client.Name,
		}
		return tx.WithContext(ctx).Create(activity).Error
	})
}
