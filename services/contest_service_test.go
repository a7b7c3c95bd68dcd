package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titlescore/titlescore/repositories"
)

func newContestServiceFixture(t *testing.T) (ContestService, *fakeAuthzClient, *fakeContestRepo) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	authzClient := newFakeAuthzClient()
	contestRepo := newFakeContestRepo()
	authorizer := NewAuthorizer(authzClient, contestRepo)
	return NewContestService(contestRepo, authzClient, authorizer, logger), authzClient, contestRepo
}

func validCreateContestInput() CreateContestInput {
	return CreateContestInput{
		Name:     "Spring Pageant",
		StartsAt: time.Now().Add(24 * time.Hour),
		EndsAt:   time.Now().Add(48 * time.Hour),
		Timezone: "Europe/Amsterdam",
	}
}

func TestContestService_Create(t *testing.T) {
	service, authzClient, contestRepo := newContestServiceFixture(t)

	contest, err := service.Create(context.Background(), "creator-1", validCreateContestInput())
	require.NoError(t, err)
	require.NotEmpty(t, contest.ID)
	assert.Equal(t, "creator-1", contest.CreatorID)

	// Создатель сразу становится owner-ом, токен записи сохранен.
	assert.Equal(t, "owner", authzClient.relationOf(contest.ID, "creator-1"))
	assert.NotEmpty(t, contestRepo.zedToken(contest.ID))

	// И create, и чтение проходят через охранника.
	got, err := service.Get(context.Background(), "creator-1", contest.ID)
	require.NoError(t, err)
	assert.Equal(t, "Spring Pageant", got.Name)
}

func TestContestService_Create_Validation(t *testing.T) {
	service, _, _ := newContestServiceFixture(t)

	input := validCreateContestInput()
	input.Name = ""
	_, err := service.Create(context.Background(), "creator-1", input)
	assert.ErrorIs(t, err, ErrContestNameRequired)

	input = validCreateContestInput()
	input.EndsAt = input.StartsAt.Add(-time.Hour)
	_, err = service.Create(context.Background(), "creator-1", input)
	assert.ErrorIs(t, err, ErrContestInvalidDateRange)
}

func TestContestService_Create_CompensatesFailedOwnerGrant(t *testing.T) {
	service, authzClient, contestRepo := newContestServiceFixture(t)
	authzClient.failNextWrites = 1

	_, err := service.Create(context.Background(), "creator-1", validCreateContestInput())
	require.Error(t, err)

	// Строка конкурса не должна пережить неудавшуюся запись owner-relation-а.
	assert.Empty(t, contestRepo.contests)
}

func TestContestService_Get_RequiresView(t *testing.T) {
	service, _, _ := newContestServiceFixture(t)

	contest, err := service.Create(context.Background(), "creator-1", validCreateContestInput())
	require.NoError(t, err)

	_, err = service.Get(context.Background(), "stranger", contest.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = service.Get(context.Background(), "creator-1", "missing")
	assert.ErrorIs(t, err, ErrContestNotFound)
}

func TestContestService_List(t *testing.T) {
	service, authzClient, _ := newContestServiceFixture(t)

	first, err := service.Create(context.Background(), "creator-1", validCreateContestInput())
	require.NoError(t, err)

	input := validCreateContestInput()
	input.Name = "Autumn Pageant"
	_, err = service.Create(context.Background(), "someone-else", input)
	require.NoError(t, err)

	authzClient.grant(first.ID, "judge-1", "judge")

	// Каждый видит только конкурсы со своим relation-ом.
	contests, err := service.List(context.Background(), "judge-1")
	require.NoError(t, err)
	require.Len(t, contests, 1)
	assert.Equal(t, first.ID, contests[0].ID)

	contests, err = service.List(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, contests)
}

func TestContestService_Update_RequiresManage(t *testing.T) {
	service, authzClient, _ := newContestServiceFixture(t)

	contest, err := service.Create(context.Background(), "creator-1", validCreateContestInput())
	require.NoError(t, err)
	authzClient.grant(contest.ID, "judge-1", "judge")

	input := UpdateContestInput{
		Name:     "Renamed",
		StartsAt: contest.StartsAt,
		EndsAt:   contest.EndsAt,
		Timezone: contest.Timezone,
	}
	_, err = service.Update(context.Background(), "judge-1", contest.ID, input)
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := service.Update(context.Background(), "creator-1", contest.ID, input)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
}

func TestContestService_Delete_RequiresAdmin(t *testing.T) {
	service, authzClient, contestRepo := newContestServiceFixture(t)

	contest, err := service.Create(context.Background(), "creator-1", validCreateContestInput())
	require.NoError(t, err)
	authzClient.grant(contest.ID, "organizer-1", "organizer")

	// manage недостаточно: удаление требует admin.
	err = service.Delete(context.Background(), "organizer-1", contest.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, service.Delete(context.Background(), "creator-1", contest.ID))
	_, err = contestRepo.GetByID(context.Background(), contest.ID)
	assert.ErrorIs(t, err, repositories.ErrContestNotFound)
}
