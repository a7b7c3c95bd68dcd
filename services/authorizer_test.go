package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titlescore/titlescore/authz"
	"github.com/titlescore/titlescore/models"
)

func seedContest(t *testing.T, repo *fakeContestRepo, id string) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &models.Contest{ID: id, Name: "Test contest"}))
}

func TestAuthorizer_Granted(t *testing.T) {
	client := newFakeAuthzClient()
	contestRepo := newFakeContestRepo()
	seedContest(t, contestRepo, "contest-1")
	client.grant("contest-1", "user-1", "owner")

	authorizer := NewAuthorizer(client, contestRepo)
	assert.NoError(t, authorizer.Authorize(context.Background(), "user-1", "contest-1", PermissionManage))
}

func TestAuthorizer_Denied(t *testing.T) {
	client := newFakeAuthzClient()
	contestRepo := newFakeContestRepo()
	seedContest(t, contestRepo, "contest-1")
	client.grant("contest-1", "user-1", "judge")

	authorizer := NewAuthorizer(client, contestRepo)
	err := authorizer.Authorize(context.Background(), "user-1", "contest-1", PermissionManage)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAuthorizer_UnspecifiedPermissionshipIsDenied(t *testing.T) {
	client := newFakeAuthzClient()
	client.unspecified = true
	contestRepo := newFakeContestRepo()
	seedContest(t, contestRepo, "contest-1")

	authorizer := NewAuthorizer(client, contestRepo)
	err := authorizer.Authorize(context.Background(), "user-1", "contest-1", PermissionView)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAuthorizer_StoreErrorPassesThroughTyped(t *testing.T) {
	client := newFakeAuthzClient()
	client.checkErr = &authz.AuthzError{Code: "8", Message: "quota exceeded"}
	contestRepo := newFakeContestRepo()
	seedContest(t, contestRepo, "contest-1")

	authorizer := NewAuthorizer(client, contestRepo)
	err := authorizer.Authorize(context.Background(), "user-1", "contest-1", PermissionView)

	// Ошибка store остается типизированной и не сворачивается во внутреннюю.
	ae, ok := authz.AsAuthzError(err)
	require.True(t, ok)
	assert.Equal(t, "8", ae.Code)
	assert.NotErrorIs(t, err, ErrInternal)
}

func TestAuthorizer_UnknownContestShortCircuits(t *testing.T) {
	client := newFakeAuthzClient()
	contestRepo := newFakeContestRepo()

	authorizer := NewAuthorizer(client, contestRepo)
	err := authorizer.Authorize(context.Background(), "user-1", "missing", PermissionView)
	assert.ErrorIs(t, err, ErrContestNotFound)

	// До relationship store дело дойти не должно.
	assert.Zero(t, client.checks)
}
