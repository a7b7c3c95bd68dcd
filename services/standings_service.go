package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/titlescore/titlescore/authz"
	"github.com/titlescore/titlescore/live"
	"github.com/titlescore/titlescore/models"
	"github.com/titlescore/titlescore/repositories"
	"github.com/titlescore/titlescore/scoring"
)

// StandingsPublisher рассылает обновленное табло подписчикам конкурса.
type StandingsPublisher interface {
	Publish(ctx context.Context, contestID string) error
}

type StandingsService interface {
	// Summary подводит итоги конкурса: отброс крайних оценок при кворуме,
	// средние по критериям, сумма и рейтинг.
	Summary(ctx context.Context, callerID, contestID string) (*scoring.Summary, error)

	StandingsPublisher

	// summarize — подведение итогов без авторизации, для композиции внутри
	// уже охраняемых операций.
	summarize(ctx context.Context, contestID string) (*scoring.Summary, error)
}

type standingsService struct {
	scoreRepo      repositories.ScoreRepository
	criterionRepo  repositories.CriterionRepository
	contestantRepo repositories.ContestantRepository
	authzClient    authz.Client
	authorizer     Authorizer
	engine         *scoring.Engine
	hub            *live.Hub
	logger         *slog.Logger
}

func NewStandingsService(
	scoreRepo repositories.ScoreRepository,
	criterionRepo repositories.CriterionRepository,
	contestantRepo repositories.ContestantRepository,
	authzClient authz.Client,
	authorizer Authorizer,
	engine *scoring.Engine,
	hub *live.Hub,
	logger *slog.Logger,
) StandingsService {
	return &standingsService{
		scoreRepo:      scoreRepo,
		criterionRepo:  criterionRepo,
		contestantRepo: contestantRepo,
		authzClient:    authzClient,
		authorizer:     authorizer,
		engine:         engine,
		hub:            hub,
		logger:         logger,
	}
}

func (s *standingsService) Summary(ctx context.Context, callerID, contestID string) (*scoring.Summary, error) {
	if err := s.authorizer.Authorize(ctx, callerID, contestID, PermissionView); err != nil {
		return nil, err
	}
	return s.summarize(ctx, contestID)
}

// Publish пересчитывает табло и рассылает его в комнату конкурса.
// Авторизация не нужна: подписка на комнату уже проверена при подключении.
func (s *standingsService) Publish(ctx context.Context, contestID string) error {
	summary, err := s.summarize(ctx, contestID)
	if err != nil {
		return err
	}

	s.hub.BroadcastToRoom(contestID, live.Message{
		Type:      "STANDINGS_UPDATED",
		ContestID: contestID,
		Payload:   summary,
	})
	return nil
}

func (s *standingsService) summarize(ctx context.Context, contestID string) (*scoring.Summary, error) {
	var (
		scores      []*models.Score
		criteria    []*models.Criterion
		contestants []*models.Contestant
		judges      []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		scores, err = s.scoreRepo.ListByContestID(gctx, contestID)
		return err
	})
	g.Go(func() error {
		var err error
		criteria, err = s.criterionRepo.ListByContestID(gctx, contestID)
		return err
	})
	g.Go(func() error {
		var err error
		contestants, err = s.contestantRepo.ListByContestID(gctx, contestID)
		return err
	})
	g.Go(func() error {
		stream, err := authz.GetContestMembers(gctx, s.authzClient, contestID, string(models.RoleJudge))
		if err != nil {
			return err
		}
		relations, err := stream.Collect()
		if err != nil {
			return err
		}
		judges = make([]string, 0, len(relations))
		for _, rel := range relations {
			judges = append(judges, rel.SubjectID)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: failed to gather standings inputs: %w", ErrInternal, err)
	}

	return s.engine.Finalize(scoring.FinalizeParams{
		Contestants: contestants,
		Criteria:    criteria,
		Scores:      scores,
		Judges:      judges,
	}), nil
}
