package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/crafted-exteriors/crm-api/internal/models"
	"github.com/crafted-exteriors/crm-api/internal/repository"
)

type ClientService struct {
	repository *repository.ClientRepository
	leads      *repository.LeadRepository
	settings   *SettingsService
}

func NewClientService(repo *repository.ClientRepository, leads *repository.LeadRepository, settings *SettingsService) *ClientService {
	return &ClientService{
		repository: repo,
		leads:      leads,
		settings:   settings,
	}
}

type ClientInput struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

func (s *ClientService) Create(ctx context.Context, input ClientInput) (*models.Client, error) {
	client := &models.Client{
		Name:    strings.TrimSpace(input.Name),
		Email:   strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:   strings.TrimSpace(input.Phone),
		Address: input.Address,
		Notes:   input.Notes,
	}

	if err := s.repository.Create(ctx, client); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return client, nil
}

func (s *ClientService) Get(ctx context.Context, id string) (*models.Client, error) {
	return s.repository.FindByID(ctx, id)
}

func (s *ClientService) List(ctx context.Context, limit, offset int) ([]models.Client, error) {
	return s.repository.List(ctx, limit, offset)
}

func (s *ClientService) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	client, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if client == nil {
		return ErrNotFound
	}

	return s.repository.Update(ctx, id, updates)
}

func (s *ClientService) Delete(ctx context.Context, id string) error {
	client, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if client == nil {
		return ErrNotFound
	}

	return s.repository.Delete(ctx, id)
}

// ConvertLead turns a lead into a client, marking the lead won and recording
// a conversion activity - all in one transaction.
func (s *ClientService) ConvertLead(ctx context.Context, leadID string) (*models.Client, error) {
	lead, err := s.leads.FindByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, ErrNotFound
	}

	client := &models.Client{
		Name:   lead.FullName,
		Email:  lead.Email,
		Phone:  lead.Phone,
		LeadID: &lead.ID,
	}

	wonStatus := s.settings.WonStatus(ctx)
	if err := s.repository.ConvertLead(ctx, lead, client, wonStatus); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return client, nil
}
