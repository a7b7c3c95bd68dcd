package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/titlescore/titlescore/models"
	"github.com/titlescore/titlescore/repositories"
)

type ContestantService interface {
	Create(ctx context.Context, callerID string, input CreateContestantInput) (*models.Contestant, error)
	Get(ctx context.Context, callerID, contestantID string) (*models.Contestant, error)
	List(ctx context.Context, callerID, contestID string) ([]*models.Contestant, error)
	Update(ctx context.Context, callerID, contestantID string, input UpdateContestantInput) (*models.Contestant, error)
	Delete(ctx context.Context, callerID, contestantID string) error
}

type CreateContestantInput struct {
	ContestID string `json:"contest_id"`
	Name      string `json:"name"`
	StageName string `json:"stage_name,omitempty"`
}

type UpdateContestantInput struct {
	Name      *string `json:"name,omitempty"`
	StageName *string `json:"stage_name,omitempty"`
}

type contestantService struct {
	contestantRepo repositories.ContestantRepository
	authorizer     Authorizer
}

func NewContestantService(contestantRepo repositories.ContestantRepository, authorizer Authorizer) ContestantService {
	return &contestantService{contestantRepo: contestantRepo, authorizer: authorizer}
}

func (s *contestantService) Create(ctx context.Context, callerID string, input CreateContestantInput) (*models.Contestant, error) {
	if err := s.authorizer.Authorize(ctx, callerID, input.ContestID, PermissionManage); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: contestant name is required", ErrValidationFailed)
	}

	contestant := &models.Contestant{
		ID:        uuid.NewString(),
		ContestID: input.ContestID,
		Name:      strings.TrimSpace(input.Name),
		StageName: strings.TrimSpace(input.StageName),
	}
	if err := s.contestantRepo.Create(ctx, contestant); err != nil {
		if errors.Is(err, repositories.ErrContestantContestInvalid) {
			return nil, ErrContestNotFound
		}
		return nil, fmt.Errorf("failed to create contestant: %w", err)
	}
	return contestant, nil
}

func (s *contestantService) Get(ctx context.Context, callerID, contestantID string) (*models.Contestant, error) {
	contestant, err := s.load(ctx, contestantID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.Authorize(ctx, callerID, contestant.ContestID, PermissionView); err != nil {
		return nil, err
	}
	return contestant, nil
}

func (s *contestantService) List(ctx context.Context, callerID, contestID string) ([]*models.Contestant, error) {
	if err := s.authorizer.Authorize(ctx, callerID, contestID, PermissionView); err != nil {
		return nil, err
	}
	contestants, err := s.contestantRepo.ListByContestID(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contestants: %w", err)
	}
	return contestants, nil
}

func (s *contestantService) Update(ctx context.Context, callerID, contestantID string, input UpdateContestantInput) (*models.Contestant, error) {
	contestant, err := s.load(ctx, contestantID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.Authorize(ctx, callerID, contestant.ContestID, PermissionManage); err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, fmt.Errorf("%w: contestant name is required", ErrValidationFailed)
		}
		contestant.Name = strings.TrimSpace(*input.Name)
	}
	if input.StageName != nil {
		contestant.StageName = strings.TrimSpace(*input.StageName)
	}

	if err := s.contestantRepo.Update(ctx, contestant); err != nil {
		if errors.Is(err, repositories.ErrContestantNotFound) {
			return nil, ErrContestantNotFound
		}
		return nil, fmt.Errorf("failed to update contestant: %w", err)
	}
	return contestant, nil
}

func (s *contestantService) Delete(ctx context.Context, callerID, contestantID string) error {
	contestant, err := s.load(ctx, contestantID)
	if err != nil {
		return err
	}
	if err := s.authorizer.Authorize(ctx, callerID, contestant.ContestID, PermissionManage); err != nil {
		return err
	}
	if err := s.contestantRepo.Delete(ctx, contestantID); err != nil {
		if errors.Is(err, repositories.ErrContestantNotFound) {
			return ErrContestantNotFound
		}
		return fmt.Errorf("failed to delete contestant: %w", err)
	}
	return nil
}

func (s *contestantService) load(ctx context.Context, contestantID string) (*models.Contestant, error) {
	contestant, err := s.contestantRepo.GetByID(ctx, contestantID)
	if err != nil {
		if errors.Is(err, repositories.ErrContestantNotFound) {
			return nil, ErrContestantNotFound
		}
		return nil, fmt.Errorf("failed to get contestant %s: %w", contestantID, err)
	}
	return contestant, nil
}
