package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/titlescore/titlescore/authz"
	"github.com/titlescore/titlescore/models"
	"github.com/titlescore/titlescore/repositories"
)

type ContestService interface {
	Create(ctx context.Context, creatorID string, input CreateContestInput) (*models.Contest, error)
	Get(ctx context.Context, callerID, contestID string) (*models.Contest, error)

	// List возвращает конкурсы, на которых у вызывающего есть любая роль.
	List(ctx context.Context, callerID string) ([]*models.Contest, error)

	Update(ctx context.Context, callerID, contestID string, input UpdateContestInput) (*models.Contest, error)
	Delete(ctx context.Context, callerID, contestID string) error
}

type CreateContestInput struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Timezone    string    `json:"timezone"`
}

type UpdateContestInput struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Timezone    string    `json:"timezone"`
}

type contestService struct {
	contestRepo repositories.ContestRepository
	authzClient authz.Client
	authorizer  Authorizer
	logger      *slog.Logger
}

func NewContestService(
	contestRepo repositories.ContestRepository,
	authzClient authz.Client,
	authorizer Authorizer,
	logger *slog.Logger,
) ContestService {
	return &contestService{
		contestRepo: contestRepo,
		authzClient: authzClient,
		authorizer:  authorizer,
		logger:      logger,
	}
}

func (s *contestService) Create(ctx context.Context, creatorID string, input CreateContestInput) (*models.Contest, error) {
	if input.Name == "" {
		return nil, ErrContestNameRequired
	}
	if !input.StartsAt.Before(input.EndsAt) {
		return nil, ErrContestInvalidDateRange
	}

	timezone := input.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	contest := &models.Contest{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Description: input.Description,
		CreatorID:   creatorID,
		StartsAt:    input.StartsAt,
		EndsAt:      input.EndsAt,
		Timezone:    timezone,
	}

	if err := s.contestRepo.Create(ctx, contest); err != nil {
		return nil, fmt.Errorf("failed to create contest: %w", err)
	}

	// Создатель становится owner-ом. Две независимые системы хранения:
	// если запись relation-а не удалась, компенсируем удалением конкурса,
	// чтобы не оставить конкурс, которым никто не может управлять.
	token, err := authz.AddContestMembers(ctx, s.authzClient, contest.ID, []authz.MemberRelation{
		{UserID: creatorID, Relation: string(models.RoleOwner)},
	})
	if err != nil {
		if delErr := s.contestRepo.Delete(ctx, contest.ID); delErr != nil {
			s.logger.Error("failed to roll back contest after relation write failure",
				slog.String("contest_id", contest.ID), slog.Any("error", delErr))
		}
		return nil, fmt.Errorf("%w: failed to add contest permissions: %w", ErrInternal, err)
	}

	if err := s.contestRepo.UpdateZedToken(ctx, contest.ID, token); err != nil {
		// Токен консистентности советующий; его потеря не ломает корректность.
		s.logger.Error("failed to persist consistency token",
			slog.String("contest_id", contest.ID), slog.Any("error", err))
	} else {
		contest.Zed = &token
	}

	return contest, nil
}

func (s *contestService) Get(ctx context.Context, callerID, contestID string) (*models.Contest, error) {
	if err := s.authorizer.Authorize(ctx, callerID, contestID, PermissionView); err != nil {
		return nil, err
	}

	contest, err := s.contestRepo.GetByID(ctx, contestID)
	if err != nil {
		if errors.Is(err, repositories.ErrContestNotFound) {
			return nil, ErrContestNotFound
		}
		return nil, fmt.Errorf("failed to get contest %s: %w", contestID, err)
	}
	return contest, nil
}

func (s *contestService) List(ctx context.Context, callerID string) ([]*models.Contest, error) {
	contestIDs, err := authz.GetContestIDsByUser(ctx, s.authzClient, callerID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list contest relations: %w", ErrInternal, err)
	}
	if len(contestIDs) == 0 {
		return []*models.Contest{}, nil
	}

	contests, err := s.contestRepo.ListByIDs(ctx, contestIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list contests: %w", err)
	}
	return contests, nil
}

func (s *contestService) Update(ctx context.Context, callerID, contestID string, input UpdateContestInput) (*models.Contest, error) {
	if err := s.authorizer.Authorize(ctx, callerID, contestID, PermissionManage); err != nil {
		return nil, err
	}

	if input.Name == "" {
		return nil, ErrContestNameRequired
	}
	if !input.StartsAt.Before(input.EndsAt) {
		return nil, ErrContestInvalidDateRange
	}

	contest, err := s.contestRepo.GetByID(ctx, contestID)
	if err != nil {
		if errors.Is(err, repositories.ErrContestNotFound) {
			return nil, ErrContestNotFound
		}
		return nil, fmt.Errorf("failed to get contest %s: %w", contestID, err)
	}

	contest.Name = input.Name
	contest.Description = input.Description
	contest.StartsAt = input.StartsAt
	contest.EndsAt = input.EndsAt
	if input.Timezone != "" {
		contest.Timezone = input.Timezone
	}

	if err := s.contestRepo.Update(ctx, contest); err != nil {
		if errors.Is(err, repositories.ErrContestNotFound) {
			return nil, ErrContestNotFound
		}
		return nil, fmt.Errorf("failed to update contest %s: %w", contestID, err)
	}
	return contest, nil
}

func (s *contestService) Delete(ctx context.Context, callerID, contestID string) error {
	// Удаление — только для админов (owner-ов).
	if err := s.authorizer.Authorize(ctx, callerID, contestID, PermissionAdmin); err != nil {
		return err
	}

	if err := s.contestRepo.Delete(ctx, contestID); err != nil {
		if errors.Is(err, repositories.ErrContestNotFound) {
			return ErrContestNotFound
		}
		return fmt.Errorf("failed to delete contest %s: %w", contestID, err)
	}
	return nil
}
