package service

import (
	"context"
	"errors"
	"testing"

	"github.com/crafted-exteriors/crm-api/internal/models"
)

func settingsWith(statuses, stages []string) *SettingsService {
	doc := &models.PipelineSettings{}
	doc.SetStatuses(statuses)
	doc.SetStages(stages)
	return NewSettingsService(&fakeSettingsStore{settings: doc}, nil)
}

func TestGet_DefaultsWhenNoDocument(t *testing.T) {
	s := NewSettingsService(&fakeSettingsStore{}, nil)

	cfg := s.Get(context.Background())
	if len(cfg.LeadStatuses) == 0 || cfg.LeadStatuses[0] != "new" {
		t.Errorf("expected default statuses, got %v", cfg.LeadStatuses)
	}
	if len(cfg.DealStages) == 0 || cfg.DealStages[0] != "prospect" {
		t.Errorf("expected default stages, got %v", cfg.DealStages)
	}
}

func TestGet_DefaultsOnStoreError(t *testing.T) {
	s := NewSettingsService(&fakeSettingsStore{err: errors.New("db down")}, nil)

	cfg := s.Get(context.Background())
	if len(cfg.LeadStatuses) == 0 {
		t.Error("expected defaults despite store error")
	}
}

func TestValidateLeadStatus_AgainstConfiguredSet(t *testing.T) {
	s := settingsWith([]string{"incoming", "estimating", "booked"}, []string{"open"})
	ctx := context.Background()

	if err := s.ValidateLeadStatus(ctx, "estimating"); err != nil {
		t.Errorf("expected configured status to pass: %v", err)
	}

	err := s.ValidateLeadStatus(ctx, "won")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus for removed value, got %v", err)
	}
}

func TestValidateDealStage_AgainstConfiguredSet(t *testing.T) {
	s := settingsWith([]string{"new"}, []string{"open", "closed"})
	ctx := context.Background()

	if err := s.ValidateDealStage(ctx, "closed"); err != nil {
		t.Errorf("expected configured stage to pass: %v", err)
	}
	if err := s.ValidateDealStage(ctx, "negotiation"); !errors.Is(err, ErrInvalidStage) {
		t.Errorf("expected ErrInvalidStage, got %v", err)
	}
}

func TestUpdate_RejectsEmptyAndDuplicateSets(t *testing.T) {
	s := NewSettingsService(&fakeSettingsStore{}, nil)
	ctx := context.Background()

	err := s.Update(ctx, PipelineConfig{LeadStatuses: nil, DealStages: []string{"open"}})
	if _, ok := AsValidation(err); !ok {
		t.Errorf("expected validation error for empty statuses, got %v", err)
	}

	err = s.Update(ctx, PipelineConfig{
		LeadStatuses: []string{"new", "new"},
		DealStages:   []string{"open"},
	})
	if _, ok := AsValidation(err); !ok {
		t.Errorf("expected validation error for duplicates, got %v", err)
	}
}

func TestUpdate_PersistsDocument(t *testing.T) {
	store := &fakeSettingsStore{}
	s := NewSettingsService(store, nil)

	err := s.Update(context.Background(), PipelineConfig{
		LeadStatuses: []string{"incoming", "booked"},
		DealStages:   []string{"open", "closed"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.saved == nil {
		t.Fatal("expected settings saved")
	}
	statuses := store.saved.Statuses()
	if len(statuses) != 2 || statuses[0] != "incoming" {
		t.Errorf("unexpected saved statuses: %v", statuses)
	}
}

func TestWonStatus_FallsBackToLastConfigured(t *testing.T) {
	ctx := context.Background()

	s := settingsWith([]string{"new", "won", "lost"}, []string{"open"})
	if got := s.WonStatus(ctx); got != "won" {
		t.Errorf("expected won, got %q", got)
	}

	s = settingsWith([]string{"incoming", "complete"}, []string{"open"})
	if got := s.WonStatus(ctx); got != "complete" {
		t.Errorf("expected complete, got %q", got)
	}
}

func TestDefaultLeadStatus(t *testing.T) {
	ctx := context.Background()

	s := settingsWith([]string{"incoming", "booked"}, []string{"open"})
	if got := s.DefaultLeadStatus(ctx); got != "incoming" {
		t.Errorf("expected incoming, got %q", got)
	}

	s = newTestSettings()
	if got := s.DefaultLeadStatus(ctx); got != "new" {
		t.Errorf("expected new, got %q", got)
	}
}
