package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titlescore/titlescore/live"
	"github.com/titlescore/titlescore/models"
	"github.com/titlescore/titlescore/scoring"
)

func newStandingsServiceFixture(t *testing.T) (StandingsService, *fakeAuthzClient, *fakeScoreRepo) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	authzClient := newFakeAuthzClient()
	contestRepo := newFakeContestRepo()
	scoreRepo := newFakeScoreRepo()
	criterionRepo := newFakeCriterionRepo()
	contestantRepo := newFakeContestantRepo()

	seedContest(t, contestRepo, "contest-1")
	authzClient.grant("contest-1", "owner-1", "owner")
	require.NoError(t, criterionRepo.Create(context.Background(), &models.Criterion{
		ID: "cr1", ContestID: "contest-1", Name: "Talent", Weight: 10,
	}))
	require.NoError(t, contestantRepo.Create(context.Background(), &models.Contestant{
		ID: "c1", ContestID: "contest-1", Name: "Alice",
	}))
	require.NoError(t, contestantRepo.Create(context.Background(), &models.Contestant{
		ID: "c2", ContestID: "contest-1", Name: "Bob",
	}))

	authorizer := NewAuthorizer(authzClient, contestRepo)
	service := NewStandingsService(
		scoreRepo, criterionRepo, contestantRepo,
		authzClient, authorizer, scoring.NewEngine(5), live.NewHub(), logger,
	)
	return service, authzClient, scoreRepo
}

func seedScore(t *testing.T, repo *fakeScoreRepo, judgeID, contestantID string, value int) {
	t.Helper()
	_, err := repo.Upsert(context.Background(), &models.Score{
		JudgeID:      judgeID,
		ContestantID: contestantID,
		CriteriaID:   "cr1",
		ContestID:    "contest-1",
		Value:        intPtr(value),
	})
	require.NoError(t, err)
}

func TestStandingsService_Summary(t *testing.T) {
	service, authzClient, scoreRepo := newStandingsServiceFixture(t)

	for i, judge := range []string{"j1", "j2", "j3", "j4", "j5"} {
		authzClient.grant("contest-1", judge, "judge")
		seedScore(t, scoreRepo, judge, "c1", 2*(i+1)) // 2,4,6,8,10
		seedScore(t, scoreRepo, judge, "c2", 3)
	}

	summary, err := service.Summary(context.Background(), "owner-1", "contest-1")
	require.NoError(t, err)

	assert.True(t, summary.HasQuorum)
	assert.Len(t, summary.Judges, 5)
	require.Len(t, summary.Contestants, 2)

	// У Alice отброшены 2 и 10: (4+6+8)/3 = 6. У Bob все оценки по 3.
	assert.Equal(t, "Alice", summary.Contestants[0].Name)
	assert.InDelta(t, 6.0, summary.Contestants[0].Total, 0.0001)
	assert.Equal(t, "Bob", summary.Contestants[1].Name)
	assert.InDelta(t, 3.0, summary.Contestants[1].Total, 0.0001)
}

func TestStandingsService_Summary_RequiresView(t *testing.T) {
	service, _, _ := newStandingsServiceFixture(t)

	_, err := service.Summary(context.Background(), "stranger", "contest-1")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestStandingsService_Summary_JudgeRosterOnly(t *testing.T) {
	service, authzClient, _ := newStandingsServiceFixture(t)
	authzClient.grant("contest-1", "organizer-1", "organizer")
	authzClient.grant("contest-1", "j1", "judge")

	summary, err := service.Summary(context.Background(), "owner-1", "contest-1")
	require.NoError(t, err)

	// В состав судей попадает только relation judge.
	assert.Equal(t, []string{"j1"}, summary.Judges)
	assert.False(t, summary.HasQuorum)
}

func TestStandingsService_Publish(t *testing.T) {
	service, authzClient, scoreRepo := newStandingsServiceFixture(t)
	authzClient.grant("contest-1", "j1", "judge")
	seedScore(t, scoreRepo, "j1", "c1", 9)

	// Рассылка без подписчиков не ошибка.
	assert.NoError(t, service.Publish(context.Background(), "contest-1"))
}
