package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/crafted-exteriors/crm-api/internal/models"
	"github.com/crafted-exteriors/crm-api/internal/repository"
	"github.com/google/uuid"
)

// LeadService backs the admin lead endpoints. Status changes are validated
// against the pipeline settings document and always leave an activity record
// behind, in the same transaction as the change itself.
type LeadService struct {
	repository *repository.LeadRepository
	activities *repository.ActivityRepository
	settings   *SettingsService
}

func NewLeadService(repo *repository.LeadRepository, activities *repository.ActivityRepository, settings *SettingsService) *LeadService {
	return &LeadService{
		repository: repo,
		activities: activities,
		settings:   settings,
	}
}

type CreateLeadInput struct {
	FullName    string `json:"full_name" binding:"required"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	ServiceType string `json:"service_type"`
	Message     string `json:"message"`
	Status      string `json:"status"`
	CreatedBy   string `json:"-"`
}

// Create adds a manually entered lead plus its creation activity atomically.
func (s *LeadService) Create(ctx context.Context, input CreateLeadInput) (*models.Lead, error) {
	status := input.Status
	if status == "" {
		status = s.settings.DefaultLeadStatus(ctx)
	} else if err := s.settings.ValidateLeadStatus(ctx, status); err != nil {
		return nil, err
	}

	lead := &models.Lead{
		FullName:    strings.TrimSpace(input.FullName),
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:       strings.TrimSpace(input.Phone),
		ServiceType: input.ServiceType,
		Message:     input.Message,
		Origin:      models.OriginManual,
		Status:      status,
	}

	activity := &models.Activity{
		Type:        models.ActivityCreated,
		Description: "Lead entered manually",
		CreatedBy:   input.CreatedBy,
	}

	if err := s.repository.CreateWithActivity(ctx, lead, activity); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return lead, nil
}

func (s *LeadService) Get(ctx context.Context, id string) (*models.Lead, error) {
	return s.repository.FindByID(ctx, id)
}

func (s *LeadService) List(ctx context.Context, filter repository.LeadFilter) ([]models.Lead, error) {
	return s.repository.List(ctx, filter)
}

type UpdateLeadInput struct {
	FullName    *string `json:"full_name"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	ServiceType *string `json:"service_type"`
	Status      *string `json:"status"`
	UpdatedBy   string  `json:"-"`
}

// Update applies partial changes. A status change is validated against the
// configured set (legacy current values are tolerated, see SettingsService)
// and records a status_changed activity in the same transaction.
func (s *LeadService) Update(ctx context.Context, id string, input UpdateLeadInput) (*models.Lead, error) {
	lead, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, ErrNotFound
	}

	updates := make(map[string]interface{})
	if input.FullName != nil {
		updates["full_name"] = *input.FullName
	}
	if input.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*input.Email))
	}
	if input.Phone != nil {
		updates["phone"] = *input.Phone
	}
	if input.ServiceType != nil {
		updates["service_type"] = *input.ServiceType
	}

	var activity *models.Activity
	if input.Status != nil && *input.Status != lead.Status {
		if err := s.settings.ValidateLeadStatus(ctx, *input.Status); err != nil {
			return nil, err
		}
		updates["status"] = *input.Status
		activity = &models.Activity{
			LeadID:      lead.ID,
			Type:        models.ActivityStatusChanged,
			Description: fmt.Sprintf("Status changed from %s to %s", lead.Status, *input.Status),
			CreatedBy:   input.UpdatedBy,
		}
	}

	if len(updates) == 0 {
		return lead, nil
	}

	if err := s.repository.UpdateWithActivity(ctx, id, updates, activity); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return s.repository.FindByID(ctx, id)
}

// AddNote appends a note activity to a lead's timeline.
func (s *LeadService) AddNote(ctx context.Context, id, note, author string) (*models.Activity, error) {
	lead, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, ErrNotFound
	}

	if strings.TrimSpace(note) == "" {
		return nil, NewValidationError("note must not be empty")
	}

	activity := &models.Activity{
		LeadID:      lead.ID,
		Type:        models.ActivityNote,
		Description: note,
		CreatedBy:   author,
	}

	if err := s.activities.Create(ctx, activity); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return activity, nil
}

func (s *LeadService) Activities(ctx context.Context, id string) ([]models.Activity, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, NewValidationError("invalid lead id")
	}
	return s.activities.ListByLead(ctx, id)
}

// Delete removes a lead; its activities go with it in the same transaction.
func (s *LeadService) Delete(ctx context.Context, id string) error {
	lead, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if lead == nil {
		return ErrNotFound
	}

	return s.repository.Delete(ctx, id)
}
