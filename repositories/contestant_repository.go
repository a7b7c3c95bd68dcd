package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/titlescore/titlescore/models"
)

var (
	ErrContestantNotFound       = errors.New("contestant not found")
	ErrContestantContestInvalid = errors.New("contestant references unknown contest")
)

type ContestantRepository interface {
	Create(ctx context.Context, contestant *models.Contestant) error
	GetByID(ctx context.Context, id string) (*models.Contestant, error)
	ListByContestID(ctx context.Context, contestID string) ([]*models.Contestant, error)
	Update(ctx context.Context, contestant *models.Contestant) error
	Delete(ctx context.Context, id string) error
}

type postgresContestantRepository struct {
	db *sql.DB
}

func NewPostgresContestantRepository(db *sql.DB) ContestantRepository {
	return &postgresContestantRepository{db: db}
}

func (r *postgresContestantRepository) Create(ctx context.Context, contestant *models.Contestant) error {
	query := `
		INSERT INTO contestants (id, contest_id, name, stage_name)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		contestant.ID,
		contestant.ContestID,
		contestant.Name,
		contestant.StageName,
	).Scan(&contestant.CreatedAt, &contestant.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrContestantContestInvalid
		}
		return err
	}
	return nil
}

func (r *postgresContestantRepository) GetByID(ctx context.Context, id string) (*models.Contestant, error) {
	query := `
		SELECT id, contest_id, name, stage_name, created_at, updated_at
		FROM contestants
		WHERE id = $1`

	contestant := &models.Contestant{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&contestant.ID,
		&contestant.ContestID,
		&contestant.Name,
		&contestant.StageName,
		&contestant.CreatedAt,
		&contestant.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContestantNotFound
		}
		return nil, err
	}
	return contestant, nil
}

func (r *postgresContestantRepository) ListByContestID(ctx context.Context, contestID string) ([]*models.Contestant, error) {
	query := `
		SELECT id, contest_id, name, stage_name, created_at, updated_at
		FROM contestants
		WHERE contest_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contestants := make([]*models.Contestant, 0)
	for rows.Next() {
		var contestant models.Contestant
		if scanErr := rows.Scan(
			&contestant.ID,
			&contestant.ContestID,
			&contestant.Name,
			&contestant.StageName,
			&contestant.CreatedAt,
			&contestant.UpdatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		contestants = append(contestants, &contestant)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return contestants, nil
}

func (r *postgresContestantRepository) Update(ctx context.Context, contestant *models.Contestant) error {
	query := `
		UPDATE contestants
		SET name = $2, stage_name = $3, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, contestant.ID, contestant.Name, contestant.StageName)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrContestantNotFound)
}

func (r *postgresContestantRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM contestants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrContestantNotFound)
}
