package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/crafted-exteriors/crm-api/internal/models"
	"github.com/crafted-exteriors/crm-api/internal/repository"
	"github.com/google/uuid"
)

type DealService struct {
	repository *repository.DealRepository
	clients    *repository.ClientRepository
	settings   *SettingsService
}

func NewDealService(repo *repository.DealRepository, clients *repository.ClientRepository, settings *SettingsService) *DealService {
	return &DealService{
		repository: repo,
		clients:    clients,
		settings:   settings,
	}
}

type DealInput struct {
	ClientID      string     `json:"client_id" binding:"required"`
	Title         string     `json:"title" binding:"required"`
	ValueCents    int64      `json:"value_cents"`
	Stage         string     `json:"stage"`
	ExpectedClose *time.Time `json:"expected_close"`
}

func (s *DealService) Create(ctx context.Context, input DealInput) (*models.Deal, error) {
	clientID, err := uuid.Parse(input.ClientID)
	if err != nil {
		return nil, NewValidationError("client_id is not a valid id")
	}

	client, err := s.clients.FindByID(ctx, input.ClientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrNotFound
	}

	stage := input.Stage
	if stage == "" {
		cfg := s.settings.Get(ctx)
		stage = cfg.DealStages[0]
	} else if err := s.settings.ValidateDealStage(ctx, stage); err != nil {
		return nil, err
	}

	if input.ValueCents < 0 {
		return nil, NewValidationError("value_cents must not be negative")
	}

	deal := &models.Deal{
		ClientID:      clientID,
		Title:         strings.TrimSpace(input.Title),
		ValueCents:    input.ValueCents,
		Stage:         stage,
		ExpectedClose: input.ExpectedClose,
	}

	if err := s.repository.Create(ctx, deal); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return deal, nil
}

func (s *DealService) Get(ctx context.Context, id string) (*models.Deal, error) {
	return s.repository.FindByID(ctx, id)
}

func (s *DealService) List(ctx context.Context, filter repository.DealFilter) ([]models.Deal, error) {
	return s.repository.List(ctx, filter)
}

type UpdateDealInput struct {
	Title         *string    `json:"title"`
	ValueCents    *int64     `json:"value_cents"`
	Stage         *string    `json:"stage"`
	ExpectedClose *time.Time `json:"expected_close"`
}

func (s *DealService) Update(ctx context.Context, id string, input UpdateDealInput) (*models.Deal, error) {
	deal, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if deal == nil {
		return nil, ErrNotFound
	}

	updates := make(map[string]interface{})
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.ValueCents != nil {
		if *input.ValueCents < 0 {
			return nil, NewValidationError("value_cents must not be negative")
		}
		updates["value_cents"] = *input.ValueCents
	}
	if input.Stage != nil && *input.Stage != deal.Stage {
		if err := s.settings.ValidateDealStage(ctx, *input.Stage); err != nil {
			return nil, err
		}
		updates["stage"] = *input.Stage
	}
	if input.ExpectedClose != nil {
		updates["expected_close"] = *input.ExpectedClose
	}

	if len(updates) == 0 {
		return deal, nil
	}

	if err := s.repository.Update(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return s.repository.FindByID(ctx, id)
}

func (s *DealService) Delete(ctx context.Context, id string) error {
	deal, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if deal == nil {
		return ErrNotFound
	}

	return s.repository.Delete(ctx, id)
}

// PipelineValue sums deal value per configured stage for the dashboard.
func (s *DealService) PipelineValue(ctx context.Context) (map[string]int64, error) {
	cfg := s.settings.Get(ctx)

	totals := make(map[string]int64, len(cfg.DealStages))
	for _, stage := range cfg.DealStages {
		total, err := s.repository.SumValueByStage(ctx, stage)
		if err != nil {
			return nil, err
		}
		totals[stage] = total
	}

	return totals, nil
}
