package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titlescore/titlescore/models"
)

// Сквозной сценарий: создание конкурса, приглашение судьи, оценивание,
// удаление судьи и потеря доступа.
func TestContestLifecycle(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	authzClient := newFakeAuthzClient()
	contestRepo := newFakeContestRepo()
	memberRepo := newFakeMemberRepo()
	criterionRepo := newFakeCriterionRepo()
	scoreRepo := newFakeScoreRepo()
	idProvider := newFakeIdentityProvider()
	mailer := &fakeMailer{}
	tokenRepo := newFakeTokenRepo()
	publisher := &fakePublisher{}

	authorizer := NewAuthorizer(authzClient, contestRepo)
	authService := NewAuthService(tokenRepo, idProvider, "jwt-secret", logger)
	contestService := NewContestService(contestRepo, authzClient, authorizer, logger)
	memberService := NewMemberService(memberRepo, contestRepo, authzClient, authorizer, idProvider, authService, mailer, "https://contest.example", logger)
	criterionService := NewCriterionService(criterionRepo, authorizer)
	scoreService := NewScoreService(scoreRepo, criterionRepo, authorizer, publisher, logger)

	// Владелец создает конкурс и критерий.
	contest, err := contestService.Create(ctx, "owner-1", validCreateContestInput())
	require.NoError(t, err)

	criterion, err := criterionService.Create(ctx, "owner-1", CreateCriterionInput{
		ContestID: contest.ID,
		Name:      "Talent",
		Weight:    10,
	})
	require.NoError(t, err)

	// Приглашенный судья получает relation и ссылку входа.
	require.NoError(t, memberService.Invite(ctx, "owner-1", InviteMemberInput{
		ContestID: contest.ID,
		Email:     "judge@example.com",
		Role:      models.RoleJudge,
	}))
	judge, err := idProvider.LookupByEmail(ctx, "judge@example.com")
	require.NoError(t, err)

	// Судья оценивает, но управлять конкурсом не может.
	_, err = scoreService.Upsert(ctx, judge.ID, UpsertScoreInput{
		ContestantID: "c1",
		CriteriaID:   criterion.ID,
		Value:        intPtr(8),
	})
	require.NoError(t, err)

	_, err = contestService.Update(ctx, judge.ID, contest.ID, UpdateContestInput{
		Name:     "Hijacked",
		StartsAt: contest.StartsAt,
		EndsAt:   contest.EndsAt,
	})
	assert.ErrorIs(t, err, ErrForbidden)

	// После удаления судья теряет и право оценивать.
	require.NoError(t, memberService.Remove(ctx, "owner-1", contest.ID, judge.ID))

	_, err = scoreService.Upsert(ctx, judge.ID, UpsertScoreInput{
		ContestantID: "c1",
		CriteriaID:   criterion.ID,
		Value:        intPtr(9),
	})
	assert.ErrorIs(t, err, ErrForbidden)
}
