package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/titlescore/titlescore/models"
	"github.com/titlescore/titlescore/repositories"
)

type ScoreService interface {
	// Upsert сохраняет черновик оценки. Конкурс определяется по критерию,
	// а не доверяется из запроса.
	Upsert(ctx context.Context, callerID string, input UpsertScoreInput) (*models.Score, error)

	Get(ctx context.Context, callerID string, key repositories.ScoreKey) (*models.Score, error)

	// Submit фиксирует оценку. После фиксации изменения запрещены,
	// пока оценку не удалит организатор.
	Submit(ctx context.Context, callerID string, key repositories.ScoreKey) error

	// Delete удаляет оценку (только manage). Возвращает false, если строки
	// уже не было.
	Delete(ctx context.Context, callerID string, key repositories.ScoreKey) (bool, error)
}

type UpsertScoreInput struct {
	ContestantID string  `json:"contestant_id"`
	CriteriaID   string  `json:"criteria_id"`
	Value        *int    `json:"value,omitempty"`
	Comment      *string `json:"comment,omitempty"`
}

type scoreService struct {
	scoreRepo     repositories.ScoreRepository
	criterionRepo repositories.CriterionRepository
	authorizer    Authorizer
	publisher     StandingsPublisher
	logger        *slog.Logger
}

func NewScoreService(
	scoreRepo repositories.ScoreRepository,
	criterionRepo repositories.CriterionRepository,
	authorizer Authorizer,
	publisher StandingsPublisher,
	logger *slog.Logger,
) ScoreService {
	return &scoreService{
		scoreRepo:     scoreRepo,
		criterionRepo: criterionRepo,
		authorizer:    authorizer,
		publisher:     publisher,
		logger:        logger,
	}
}

func (s *scoreService) Upsert(ctx context.Context, callerID string, input UpsertScoreInput) (*models.Score, error) {
	criterion, err := s.resolveCriterion(ctx, input.CriteriaID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.Authorize(ctx, callerID, criterion.ContestID, PermissionScore); err != nil {
		return nil, err
	}

	if input.Value != nil && (*input.Value < 0 || *input.Value > criterion.Weight) {
		return nil, fmt.Errorf("%w: score must be between 0 and %d", ErrScoreOutOfRange, criterion.Weight)
	}

	key := repositories.ScoreKey{JudgeID: callerID, ContestantID: input.ContestantID, CriteriaID: input.CriteriaID}
	existing, err := s.scoreRepo.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load score: %w", err)
	}
	if existing.SubmittedAt != nil {
		// Зафиксированная оценка меняется только через удаление организатором.
		if manageErr := s.authorizer.Authorize(ctx, callerID, criterion.ContestID, PermissionManage); manageErr != nil {
			return nil, ErrScoreAlreadySubmitted
		}
	}

	stored, err := s.scoreRepo.Upsert(ctx, &models.Score{
		JudgeID:      callerID,
		ContestantID: input.ContestantID,
		CriteriaID:   input.CriteriaID,
		ContestID:    criterion.ContestID,
		Value:        input.Value,
		Comment:      input.Comment,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrScoreInvalidRef) {
			return nil, ErrContestantNotFound
		}
		return nil, fmt.Errorf("failed to store score: %w", err)
	}

	s.publish(ctx, criterion.ContestID)
	return stored, nil
}

func (s *scoreService) Get(ctx context.Context, callerID string, key repositories.ScoreKey) (*models.Score, error) {
	criterion, err := s.resolveCriterion(ctx, key.CriteriaID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.Authorize(ctx, callerID, criterion.ContestID, PermissionView); err != nil {
		return nil, err
	}
	score, err := s.scoreRepo.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load score: %w", err)
	}
	return score, nil
}

func (s *scoreService) Submit(ctx context.Context, callerID string, key repositories.ScoreKey) error {
	// Судья фиксирует только собственные оценки.
	if key.JudgeID != callerID {
		return ErrForbidden
	}
	criterion, err := s.resolveCriterion(ctx, key.CriteriaID)
	if err != nil {
		return err
	}
	if err := s.authorizer.Authorize(ctx, callerID, criterion.ContestID, PermissionScore); err != nil {
		return err
	}

	if err := s.scoreRepo.MarkSubmitted(ctx, key, time.Now()); err != nil {
		if errors.Is(err, repositories.ErrScoreNotSubmittable) {
			return ErrScoreNotYetScored
		}
		return fmt.Errorf("failed to submit score: %w", err)
	}

	s.publish(ctx, criterion.ContestID)
	return nil
}

func (s *scoreService) Delete(ctx context.Context, callerID string, key repositories.ScoreKey) (bool, error) {
	criterion, err := s.resolveCriterion(ctx, key.CriteriaID)
	if err != nil {
		return false, err
	}
	if err := s.authorizer.Authorize(ctx, callerID, criterion.ContestID, PermissionManage); err != nil {
		return false, err
	}

	deleted, err := s.scoreRepo.Delete(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to delete score: %w", err)
	}
	if deleted {
		s.publish(ctx, criterion.ContestID)
	}
	return deleted, nil
}

func (s *scoreService) resolveCriterion(ctx context.Context, criteriaID string) (*models.Criterion, error) {
	criterion, err := s.criterionRepo.GetByID(ctx, criteriaID)
	if err != nil {
		if errors.Is(err, repositories.ErrCriterionNotFound) {
			return nil, ErrCriterionNotFound
		}
		return nil, fmt.Errorf("failed to load criterion %s: %w", criteriaID, err)
	}
	return criterion, nil
}

// publish лучшим образом обновляет live-табло; сбой не ломает запись оценки.
func (s *scoreService) publish(ctx context.Context, contestID string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, contestID); err != nil {
		s.logger.Warn("failed to publish standings update",
			slog.String("contest_id", contestID), slog.Any("error", err))
	}
}
