package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrSignInTokenNotFound = errors.New("sign-in token not found")

// SignInToken — одноразовый токен входа по ссылке из письма-приглашения.
// Хранится только bcrypt-хэш секретной части; поиск идет по публичному id.
type SignInToken struct {
	ID         string
	UserID     string
	ContestID  string
	SecretHash string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

type SignInTokenRepository interface {
	Create(ctx context.Context, token *SignInToken) error
	GetByID(ctx context.Context, id string) (*SignInToken, error)

	// Delete удаляет использованный токен.
	Delete(ctx context.Context, id string) error

	// DeleteExpired удаляет все просроченные токены.
	// Возвращает количество удаленных строк.
	DeleteExpired(ctx context.Context) (int64, error)
}

type postgresSignInTokenRepository struct {
	db *sql.DB
}

func NewPostgresSignInTokenRepository(db *sql.DB) SignInTokenRepository {
	return &postgresSignInTokenRepository{db: db}
}

func (r *postgresSignInTokenRepository) Create(ctx context.Context, token *SignInToken) error {
	query := `
		INSERT INTO signin_tokens (id, user_id, contest_id, secret_hash, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	return r.db.QueryRowContext(ctx, query,
		token.ID,
		token.UserID,
		token.ContestID,
		token.SecretHash,
		token.ExpiresAt,
	).Scan(&token.CreatedAt)
}

func (r *postgresSignInTokenRepository) GetByID(ctx context.Context, id string) (*SignInToken, error) {
	query := `
		SELECT id, user_id, contest_id, secret_hash, expires_at, created_at
		FROM signin_tokens
		WHERE id = $1`

	token := &SignInToken{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&token.ID,
		&token.UserID,
		&token.ContestID,
		&token.SecretHash,
		&token.ExpiresAt,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSignInTokenNotFound
		}
		return nil, err
	}
	return token, nil
}

func (r *postgresSignInTokenRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM signin_tokens WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrSignInTokenNotFound)
}

func (r *postgresSignInTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM signin_tokens WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
