package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/crafted-exteriors/crm-api/internal/models"
)

// IntakeRequest is the public lead submission payload. The turnstile token is
// consumed by the handler before validation; everything else lands here.
type IntakeRequest struct {
	FullName       string `json:"fullName"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	ServiceType    string `json:"serviceType"`
	Message        string `json:"message"`
	FormID         string `json:"formId"`
	TurnstileToken string `json:"turnstileToken"`
}

// LeadWriter is the slice of the lead repository the intake path needs.
type LeadWriter interface {
	CreateWithActivity(ctx context.Context, lead *models.Lead, activity *models.Activity) error
}

// IntakeService validates public submissions and persists the lead together
// with its creation activity as one atomic unit.
type IntakeService struct {
	store    LeadWriter
	settings *SettingsService
}

func NewIntakeService(store LeadWriter, settings *SettingsService) *IntakeService {
	return &IntakeService{
		store:    store,
		settings: settings,
	}
}

// Validate applies the public form schema. Messages are written for end
// users; nothing internal leaks through them.
func (s *IntakeService) Validate(req *IntakeRequest) *ValidationError {
	var details []string

	name := strings.TrimSpace(req.FullName)
	if name == "" {
		details = append(details, "fullName is required")
	} else if len(name) > 200 {
		details = append(details, "fullName must be 200 characters or fewer")
	}

	email := strings.TrimSpace(req.Email)
	phone := strings.TrimSpace(req.Phone)
	if email == "" && phone == "" {
		details = append(details, "either email or phone is required")
	}

	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			details = append(details, "email is not a valid address")
		}
	}

	if phone != "" && digitCount(phone) < 7 {
		details = append(details, "phone must contain at least 7 digits")
	}

	if len(req.ServiceType) > 100 {
		details = append(details, "serviceType must be 100 characters or fewer")
	}
	if len(req.Message) > 5000 {
		details = append(details, "message must be 5000 characters or fewer")
	}

	if len(details) > 0 {
		return &ValidationError{Details: details}
	}

	return nil
}

// Accept persists a validated submission. The lead and its creation activity
// commit together or not at all.
func (s *IntakeService) Accept(ctx context.Context, req *IntakeRequest) error {
	lead := &models.Lead{
		FullName:    strings.TrimSpace(req.FullName),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:       strings.TrimSpace(req.Phone),
		ServiceType: strings.TrimSpace(req.ServiceType),
		Message:     strings.TrimSpace(req.Message),
		FormID:      strings.TrimSpace(req.FormID),
		Origin:      models.OriginWebsite,
		Status:      s.settings.DefaultLeadStatus(ctx),
	}

	activity := &models.Activity{
		Type:        models.ActivityCreated,
		Description: "Lead submitted via website form",
	}

	if err := s.store.CreateWithActivity(ctx, lead, activity); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return nil
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
