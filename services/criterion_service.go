package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/titlescore/titlescore/models"
	"github.com/titlescore/titlescore/repositories"
)

type CriterionService interface {
	Create(ctx context.Context, callerID string, input CreateCriterionInput) (*models.Criterion, error)
	Get(ctx context.Context, callerID, criterionID string) (*models.Criterion, error)
	List(ctx context.Context, callerID, contestID string) ([]*models.Criterion, error)
	Update(ctx context.Context, callerID, criterionID string, input UpdateCriterionInput) (*models.Criterion, error)
	Delete(ctx context.Context, callerID, criterionID string) error
}

type CreateCriterionInput struct {
	ContestID   string     `json:"contest_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Weight      int        `json:"weight"`
	DueAt       *time.Time `json:"due_at,omitempty"`
}

type UpdateCriterionInput struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	Weight      *int       `json:"weight,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
}

type criterionService struct {
	criterionRepo repositories.CriterionRepository
	authorizer    Authorizer
}

func NewCriterionService(criterionRepo repositories.CriterionRepository, authorizer Authorizer) CriterionService {
	return &criterionService{criterionRepo: criterionRepo, authorizer: authorizer}
}

func (s *criterionService) Create(ctx context.Context, callerID string, input CreateCriterionInput) (*models.Criterion, error) {
	if err := s.authorizer.Authorize(ctx, callerID, input.ContestID, PermissionManage); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: criterion name is required", ErrValidationFailed)
	}
	// Вес задает верхнюю границу оценки, ноль сделал бы критерий бессмысленным.
	if input.Weight <= 0 {
		return nil, ErrCriterionInvalidWeight
	}

	criterion := &models.Criterion{
		ID:          uuid.NewString(),
		ContestID:   input.ContestID,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Weight:      input.Weight,
		DueAt:       input.DueAt,
	}
	if err := s.criterionRepo.Create(ctx, criterion); err != nil {
		if errors.Is(err, repositories.ErrCriterionContestInvalid) {
			return nil, ErrContestNotFound
		}
		return nil, fmt.Errorf("failed to create criterion: %w", err)
	}
	return criterion, nil
}

func (s *criterionService) Get(ctx context.Context, callerID, criterionID string) (*models.Criterion, error) {
	criterion, err := s.load(ctx, criterionID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.Authorize(ctx, callerID, criterion.ContestID, PermissionView); err != nil {
		return nil, err
	}
	return criterion, nil
}

func (s *criterionService) List(ctx context.Context, callerID, contestID string) ([]*models.Criterion, error) {
	if err := s.authorizer.Authorize(ctx, callerID, contestID, PermissionView); err != nil {
		return nil, err
	}
	criteria, err := s.criterionRepo.ListByContestID(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list criteria: %w", err)
	}
	return criteria, nil
}

func (s *criterionService) Update(ctx context.Context, callerID, criterionID string, input UpdateCriterionInput) (*models.Criterion, error) {
	criterion, err := s.load(ctx, criterionID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.Authorize(ctx, callerID, criterion.ContestID, PermissionManage); err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, fmt.Errorf("%w: criterion name is required", ErrValidationFailed)
		}
		criterion.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		criterion.Description = *input.Description
	}
	if input.Weight != nil {
		if *input.Weight <= 0 {
			return nil, ErrCriterionInvalidWeight
		}
		criterion.Weight = *input.Weight
	}
	if input.DueAt != nil {
		criterion.DueAt = input.DueAt
	}

	if err := s.criterionRepo.Update(ctx, criterion); err != nil {
		if errors.Is(err, repositories.ErrCriterionNotFound) {
			return nil, ErrCriterionNotFound
		}
		return nil, fmt.Errorf("failed to update criterion: %w", err)
	}
	return criterion, nil
}

func (s *criterionService) Delete(ctx context.Context, callerID, criterionID string) error {
	criterion, err := s.load(ctx, criterionID)
	if err != nil {
		return err
	}
	if err := s.authorizer.Authorize(ctx, callerID, criterion.ContestID, PermissionManage); err != nil {
		return err
	}
	if err := s.criterionRepo.Delete(ctx, criterionID); err != nil {
		if errors.Is(err, repositories.ErrCriterionNotFound) {
			return ErrCriterionNotFound
		}
		return fmt.Errorf("failed to delete criterion: %w", err)
	}
	return nil
}

func (s *criterionService) load(ctx context.Context, criterionID string) (*models.Criterion, error) {
	criterion, err := s.criterionRepo.GetByID(ctx, criterionID)
	if err != nil {
		if errors.Is(err, repositories.ErrCriterionNotFound) {
			return nil, ErrCriterionNotFound
		}
		return nil, fmt.Errorf("failed to get criterion %s: %w", criterionID, err)
	}
	return criterion, nil
}
