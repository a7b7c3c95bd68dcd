package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/titlescore/titlescore/models"
)

var (
	ErrCriterionNotFound       = errors.New("criterion not found")
	ErrCriterionContestInvalid = errors.New("criterion references unknown contest")
)

type CriterionRepository interface {
	Create(ctx context.Context, criterion *models.Criterion) error
	GetByID(ctx context.Context, id string) (*models.Criterion, error)
	ListByContestID(ctx context.Context, contestID string) ([]*models.Criterion, error)
	Update(ctx context.Context, criterion *models.Criterion) error
	Delete(ctx context.Context, id string) error
}

type postgresCriterionRepository struct {
	db *sql.DB
}

func NewPostgresCriterionRepository(db *sql.DB) CriterionRepository {
	return &postgresCriterionRepository{db: db}
}

func (r *postgresCriterionRepository) Create(ctx context.Context, criterion *models.Criterion) error {
	query := `
		INSERT INTO criteria (id, contest_id, name, description, weight, due_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		criterion.ID,
		criterion.ContestID,
		criterion.Name,
		criterion.Description,
		criterion.Weight,
		criterion.DueAt,
	).Scan(&criterion.CreatedAt, &criterion.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrCriterionContestInvalid
		}
		return err
	}
	return nil
}

func (r *postgresCriterionRepository) GetByID(ctx context.Context, id string) (*models.Criterion, error) {
	query := `
		SELECT id, contest_id, name, description, weight, due_at, created_at, updated_at
		FROM criteria
		WHERE id = $1`

	criterion := &models.Criterion{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&criterion.ID,
		&criterion.ContestID,
		&criterion.Name,
		&criterion.Description,
		&criterion.Weight,
		&criterion.DueAt,
		&criterion.CreatedAt,
		&criterion.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCriterionNotFound
		}
		return nil, err
	}
	return criterion, nil
}

func (r *postgresCriterionRepository) ListByContestID(ctx context.Context, contestID string) ([]*models.Criterion, error) {
	query := `
		SELECT id, contest_id, name, description, weight, due_at, created_at, updated_at
		FROM criteria
		WHERE contest_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	criteria := make([]*models.Criterion, 0)
	for rows.Next() {
		var criterion models.Criterion
		if scanErr := rows.Scan(
			&criterion.ID,
			&criterion.ContestID,
			&criterion.Name,
			&criterion.Description,
			&criterion.Weight,
			&criterion.DueAt,
			&criterion.CreatedAt,
			&criterion.UpdatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		criteria = append(criteria, &criterion)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return criteria, nil
}

func (r *postgresCriterionRepository) Update(ctx context.Context, criterion *models.Criterion) error {
	query := `
		UPDATE criteria
		SET name = $2, description = $3, weight = $4, due_at = $5, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		criterion.ID,
		criterion.Name,
		criterion.Description,
		criterion.Weight,
		criterion.DueAt,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrCriterionNotFound)
}

func (r *postgresCriterionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM criteria WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrCriterionNotFound)
}
