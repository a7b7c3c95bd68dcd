package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthServiceFixture(t *testing.T) (AuthService, *fakeTokenRepo, *fakeIdentityProvider) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokenRepo := newFakeTokenRepo()
	idProvider := newFakeIdentityProvider()
	idProvider.add("user-1", "judge@example.com", "Dana")
	return NewAuthService(tokenRepo, idProvider, "jwt-secret", logger), tokenRepo, idProvider
}

func TestAuthService_TokenRoundtrip(t *testing.T) {
	service, _, _ := newAuthServiceFixture(t)

	raw, err := service.CreateSignInToken(context.Background(), "user-1", "contest-1")
	require.NoError(t, err)
	require.True(t, strings.Contains(raw, "."))

	session, err := service.VerifySignInToken(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, "judge@example.com", session.Email)
	assert.Equal(t, "contest-1", session.ContestID)
	assert.True(t, session.ExpiresAt.After(time.Now()))

	// Сессионный JWT подписан нашим секретом и несет user_id/email.
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(session.Token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte("jwt-secret"), nil
	})
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, "user-1", claims["user_id"])
	assert.Equal(t, "judge@example.com", claims["email"])
}

func TestAuthService_TokenIsSingleUse(t *testing.T) {
	service, _, _ := newAuthServiceFixture(t)

	raw, err := service.CreateSignInToken(context.Background(), "user-1", "contest-1")
	require.NoError(t, err)

	_, err = service.VerifySignInToken(context.Background(), raw)
	require.NoError(t, err)

	_, err = service.VerifySignInToken(context.Background(), raw)
	assert.ErrorIs(t, err, ErrSignInTokenInvalid)
}

func TestAuthService_WrongSecretRejected(t *testing.T) {
	service, _, _ := newAuthServiceFixture(t)

	raw, err := service.CreateSignInToken(context.Background(), "user-1", "contest-1")
	require.NoError(t, err)

	id, _, _ := strings.Cut(raw, ".")
	_, err = service.VerifySignInToken(context.Background(), id+".wrong-secret")
	assert.ErrorIs(t, err, ErrSignInTokenInvalid)

	// Токен сожжен даже после неудачной попытки: одноразовость строгая.
	_, err = service.VerifySignInToken(context.Background(), raw)
	assert.ErrorIs(t, err, ErrSignInTokenInvalid)
}

func TestAuthService_ExpiredToken(t *testing.T) {
	service, tokenRepo, _ := newAuthServiceFixture(t)

	raw, err := service.CreateSignInToken(context.Background(), "user-1", "contest-1")
	require.NoError(t, err)

	id, _, _ := strings.Cut(raw, ".")
	stored, err := tokenRepo.GetByID(context.Background(), id)
	require.NoError(t, err)
	stored.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, tokenRepo.Create(context.Background(), stored))

	_, err = service.VerifySignInToken(context.Background(), raw)
	assert.ErrorIs(t, err, ErrSignInTokenExpired)
}

func TestAuthService_IdentityFailureKeepsCause(t *testing.T) {
	service, _, idProvider := newAuthServiceFixture(t)

	raw, err := service.CreateSignInToken(context.Background(), "user-1", "contest-1")
	require.NoError(t, err)

	cause := errors.New("identity api down")
	idProvider.batchErr = cause

	_, err = service.VerifySignInToken(context.Background(), raw)
	// Внутренняя ошибка несет исходную причину для диагностики.
	assert.ErrorIs(t, err, ErrInternal)
	assert.ErrorIs(t, err, cause)
}

func TestAuthService_MalformedToken(t *testing.T) {
	service, _, _ := newAuthServiceFixture(t)

	for _, raw := range []string{"", "no-dot", ".", "id.", ".secret"} {
		_, err := service.VerifySignInToken(context.Background(), raw)
		assert.ErrorIs(t, err, ErrSignInTokenInvalid, "token %q", raw)
	}
}
