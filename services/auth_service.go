package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/titlescore/titlescore/identity"
	"github.com/titlescore/titlescore/repositories"
)

const (
	signInTokenTTL = 3 * time.Hour
	sessionTTL     = 24 * time.Hour
)

type AuthService interface {
	// CreateSignInToken выдает одноразовый токен вида "id.secret".
	// В базе хранится только bcrypt-хэш секрета.
	CreateSignInToken(ctx context.Context, userID, contestID string) (string, error)

	// VerifySignInToken обменивает одноразовый токен на сессионный JWT.
	// Токен сжигается независимо от дальнейших шагов.
	VerifySignInToken(ctx context.Context, rawToken string) (*Session, error)

	// CleanupExpiredTokens удаляет просроченные токены, возвращает число удаленных.
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ContestID string    `json:"contest_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

type authService struct {
	tokenRepo  repositories.SignInTokenRepository
	idProvider identity.Provider
	jwtSecret  string
	logger     *slog.Logger
}

func NewAuthService(tokenRepo repositories.SignInTokenRepository, idProvider identity.Provider, jwtSecret string, logger *slog.Logger) AuthService {
	return &authService{
		tokenRepo:  tokenRepo,
		idProvider: idProvider,
		jwtSecret:  jwtSecret,
		logger:     logger,
	}
}

func (s *authService) CreateSignInToken(ctx context.Context, userID, contestID string) (string, error) {
	secretBytes := make([]byte, 24)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", fmt.Errorf("failed to generate token secret: %w", err)
	}
	secret := hex.EncodeToString(secretBytes)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token secret: %w", err)
	}

	token := &repositories.SignInToken{
		ID:         uuid.NewString(),
		UserID:     userID,
		ContestID:  contestID,
		SecretHash: string(hash),
		ExpiresAt:  time.Now().Add(signInTokenTTL),
	}
	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return "", fmt.Errorf("failed to store sign-in token: %w", err)
	}

	return token.ID + "." + secret, nil
}

func (s *authService) VerifySignInToken(ctx context.Context, rawToken string) (*Session, error) {
	id, secret, found := strings.Cut(rawToken, ".")
	if !found || id == "" || secret == "" {
		return nil, ErrSignInTokenInvalid
	}

	stored, err := s.tokenRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrSignInTokenNotFound) {
			return nil, ErrSignInTokenInvalid
		}
		return nil, fmt.Errorf("failed to load sign-in token: %w", err)
	}

	// Сжигаем сразу: токен одноразовый даже при неверном секрете.
	if err := s.tokenRepo.Delete(ctx, id); err != nil && !errors.Is(err, repositories.ErrSignInTokenNotFound) {
		s.logger.Warn("failed to burn sign-in token", slog.String("token_id", id), slog.Any("error", err))
	}

	if time.Now().After(stored.ExpiresAt) {
		return nil, ErrSignInTokenExpired
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.SecretHash), []byte(secret)) != nil {
		return nil, ErrSignInTokenInvalid
	}

	users, err := s.idProvider.GetBatch(ctx, []string{stored.UserID})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve user %s: %w", ErrInternal, stored.UserID, err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("%w: user %s not found at identity provider", ErrInternal, stored.UserID)
	}

	expiresAt := time.Now().Add(sessionTTL)
	claims := jwt.MapClaims{
		"user_id": stored.UserID,
		"email":   users[0].Email,
		"exp":     expiresAt.Unix(),
		"iat":     time.Now().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &Session{
		Token:     signed,
		UserID:    stored.UserID,
		Email:     users[0].Email,
		ContestID: stored.ContestID,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *authService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokenRepo.DeleteExpired(ctx)
}
