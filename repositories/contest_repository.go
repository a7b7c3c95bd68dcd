package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/titlescore/titlescore/models"
)

var (
	ErrContestNotFound = errors.New("contest not found")
	ErrContestConflict = errors.New("contest already exists")
)

// ContestRepository определяет интерфейс для работы с конкурсами.
type ContestRepository interface {
	// Create создает конкурс. Заполняет CreatedAt/UpdatedAt из БД.
	Create(ctx context.Context, contest *models.Contest) error

	// GetByID возвращает конкурс по id.
	GetByID(ctx context.Context, id string) (*models.Contest, error)

	// Exists проверяет существование конкурса без загрузки строки.
	Exists(ctx context.Context, id string) (bool, error)

	// ListByIDs возвращает конкурсы по списку id (порядок не гарантирован).
	ListByIDs(ctx context.Context, ids []string) ([]*models.Contest, error)

	// Update обновляет изменяемые поля конкурса.
	Update(ctx context.Context, contest *models.Contest) error

	// UpdateZedToken сохраняет токен консистентности последней записи
	// relationship store, затронувшей конкурс.
	UpdateZedToken(ctx context.Context, id string, token string) error

	// Delete удаляет конкурс.
	Delete(ctx context.Context, id string) error
}

type postgresContestRepository struct {
	db *sql.DB
}

func NewPostgresContestRepository(db *sql.DB) ContestRepository {
	return &postgresContestRepository{db: db}
}

func (r *postgresContestRepository) Create(ctx context.Context, contest *models.Contest) error {
	query := `
		INSERT INTO contests (id, name, description, creator_id, starts_at, ends_at, timezone)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		contest.ID,
		contest.Name,
		contest.Description,
		contest.CreatorID,
		contest.StartsAt,
		contest.EndsAt,
		contest.Timezone,
	).Scan(&contest.CreatedAt, &contest.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrContestConflict
		}
		return err
	}
	return nil
}

func (r *postgresContestRepository) GetByID(ctx context.Context, id string) (*models.Contest, error) {
	query := `
		SELECT id, name, description, creator_id, starts_at, ends_at, timezone, zed, created_at, updated_at
		FROM contests
		WHERE id = $1`

	contest := &models.Contest{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&contest.ID,
		&contest.Name,
		&contest.Description,
		&contest.CreatorID,
		&contest.StartsAt,
		&contest.EndsAt,
		&contest.Timezone,
		&contest.Zed,
		&contest.CreatedAt,
		&contest.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContestNotFound
		}
		return nil, err
	}
	return contest, nil
}

func (r *postgresContestRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM contests WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *postgresContestRepository) ListByIDs(ctx context.Context, ids []string) ([]*models.Contest, error) {
	if len(ids) == 0 {
		return []*models.Contest{}, nil
	}

	query := `
		SELECT id, name, description, creator_id, starts_at, ends_at, timezone, zed, created_at, updated_at
		FROM contests
		WHERE id = ANY($1)
		ORDER BY starts_at DESC`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contests := make([]*models.Contest, 0, len(ids))
	for rows.Next() {
		var contest models.Contest
		if scanErr := rows.Scan(
			&contest.ID,
			&contest.Name,
			&contest.Description,
			&contest.CreatorID,
			&contest.StartsAt,
			&contest.EndsAt,
			&contest.Timezone,
			&contest.Zed,
			&contest.CreatedAt,
			&contest.UpdatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		contests = append(contests, &contest)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return contests, nil
}

func (r *postgresContestRepository) Update(ctx context.Context, contest *models.Contest) error {
	query := `
		UPDATE contests
		SET name = $2, description = $3, starts_at = $4, ends_at = $5, timezone = $6, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		contest.ID,
		contest.Name,
		contest.Description,
		contest.StartsAt,
		contest.EndsAt,
		contest.Timezone,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrContestNotFound)
}

func (r *postgresContestRepository) UpdateZedToken(ctx context.Context, id string, token string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE contests SET zed = $2, updated_at = NOW() WHERE id = $1`, id, token)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrContestNotFound)
}

func (r *postgresContestRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM contests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrContestNotFound)
}
