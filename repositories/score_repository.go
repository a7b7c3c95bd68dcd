package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/titlescore/titlescore/models"
)

var (
	ErrScoreNotFound       = errors.New("score not found")
	ErrScoreInvalidRef     = errors.New("score references unknown contest, contestant or criterion")
	ErrScoreNotSubmittable = errors.New("score has no value to submit")
)

// ScoreKey — естественный ключ оценки.
type ScoreKey struct {
	JudgeID      string
	ContestantID string
	CriteriaID   string
}

// ScoreRepository хранит по одной строке на тройку (судья, конкурсант, критерий).
type ScoreRepository interface {
	// Upsert вставляет или обновляет оценку по естественному ключу.
	// Идемпотентен: повторный вызов с теми же аргументами оставляет
	// то же сохраненное состояние. Возвращает результирующую строку.
	Upsert(ctx context.Context, score *models.Score) (*models.Score, error)

	// Get возвращает оценку. Отсутствующая строка — не ошибка:
	// возвращаются идентифицирующие поля с пустыми score/comment,
	// чтобы вызывающий мог отрисовать пустую форму.
	Get(ctx context.Context, key ScoreKey) (*models.Score, error)

	// MarkSubmitted фиксирует оценку судьи (выставляет submitted_at).
	MarkSubmitted(ctx context.Context, key ScoreKey, at time.Time) error

	// Delete удаляет оценку. Возвращает false, если строки не было:
	// "уже отсутствует" отличается от ошибки сервера.
	Delete(ctx context.Context, key ScoreKey) (bool, error)

	// ListByContestID возвращает все оценки конкурса для подведения итогов.
	ListByContestID(ctx context.Context, contestID string) ([]*models.Score, error)
}

type postgresScoreRepository struct {
	db *sql.DB
}

func NewPostgresScoreRepository(db *sql.DB) ScoreRepository {
	return &postgresScoreRepository{db: db}
}

func (r *postgresScoreRepository) Upsert(ctx context.Context, score *models.Score) (*models.Score, error) {
	query := `
		INSERT INTO scores (judge_id, contestant_id, criteria_id, contest_id, score, comment)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (judge_id, contestant_id, criteria_id)
		DO UPDATE SET score = EXCLUDED.score, comment = EXCLUDED.comment, updated_at = NOW()
		RETURNING judge_id, contestant_id, criteria_id, contest_id, score, comment, submitted_at, created_at, updated_at`

	stored := &models.Score{}
	err := r.db.QueryRowContext(ctx, query,
		score.JudgeID,
		score.ContestantID,
		score.CriteriaID,
		score.ContestID,
		score.Value,
		score.Comment,
	).Scan(
		&stored.JudgeID,
		&stored.ContestantID,
		&stored.CriteriaID,
		&stored.ContestID,
		&stored.Value,
		&stored.Comment,
		&stored.SubmittedAt,
		&stored.CreatedAt,
		&stored.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return nil, ErrScoreInvalidRef
		}
		return nil, err
	}
	return stored, nil
}

func (r *postgresScoreRepository) Get(ctx context.Context, key ScoreKey) (*models.Score, error) {
	query := `
		SELECT judge_id, contestant_id, criteria_id, contest_id, score, comment, submitted_at, created_at, updated_at
		FROM scores
		WHERE judge_id = $1 AND contestant_id = $2 AND criteria_id = $3`

	score := &models.Score{}
	err := r.db.QueryRowContext(ctx, query, key.JudgeID, key.ContestantID, key.CriteriaID).Scan(
		&score.JudgeID,
		&score.ContestantID,
		&score.CriteriaID,
		&score.ContestID,
		&score.Value,
		&score.Comment,
		&score.SubmittedAt,
		&score.CreatedAt,
		&score.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Пустая форма: только идентифицирующие поля.
			return &models.Score{
				JudgeID:      key.JudgeID,
				ContestantID: key.ContestantID,
				CriteriaID:   key.CriteriaID,
			}, nil
		}
		return nil, err
	}
	return score, nil
}

func (r *postgresScoreRepository) MarkSubmitted(ctx context.Context, key ScoreKey, at time.Time) error {
	query := `
		UPDATE scores
		SET submitted_at = $4, updated_at = NOW()
		WHERE judge_id = $1 AND contestant_id = $2 AND criteria_id = $3 AND score IS NOT NULL`

	result, err := r.db.ExecContext(ctx, query, key.JudgeID, key.ContestantID, key.CriteriaID, at)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrScoreNotSubmittable)
}

func (r *postgresScoreRepository) Delete(ctx context.Context, key ScoreKey) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM scores WHERE judge_id = $1 AND contestant_id = $2 AND criteria_id = $3`,
		key.JudgeID, key.ContestantID, key.CriteriaID,
	)
	if err != nil {
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

func (r *postgresScoreRepository) ListByContestID(ctx context.Context, contestID string) ([]*models.Score, error) {
	query := `
		SELECT judge_id, contestant_id, criteria_id, contest_id, score, comment, submitted_at, created_at, updated_at
		FROM scores
		WHERE contest_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := make([]*models.Score, 0)
	for rows.Next() {
		var score models.Score
		if scanErr := rows.Scan(
			&score.JudgeID,
			&score.ContestantID,
			&score.CriteriaID,
			&score.ContestID,
			&score.Value,
			&score.Comment,
			&score.SubmittedAt,
			&score.CreatedAt,
			&score.UpdatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		scores = append(scores, &score)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return scores, nil
}
