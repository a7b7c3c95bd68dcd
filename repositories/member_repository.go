package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/titlescore/titlescore/models"
)

var (
	ErrMemberNotFound       = errors.New("contest member not found")
	ErrMemberContestInvalid = errors.New("contest member references unknown contest")
)

// MemberRepository — локальный кэш участников конкурса (display name).
// Роли здесь не хранятся: их источник — relationship store.
type MemberRepository interface {
	// Upsert создает запись участника или обновляет display name.
	Upsert(ctx context.Context, member *models.ContestMember) error

	// Get возвращает запись участника.
	Get(ctx context.Context, contestID, userID string) (*models.ContestMember, error)

	// GetAnyByUserID возвращает любую запись пользователя (для display name
	// вне контекста конкретного конкурса).
	GetAnyByUserID(ctx context.Context, userID string) (*models.ContestMember, error)

	// ListByContestAndUserIDs возвращает записи участников конкурса
	// для заданных пользователей.
	ListByContestAndUserIDs(ctx context.Context, contestID string, userIDs []string) ([]*models.ContestMember, error)

	// Delete удаляет запись участника.
	Delete(ctx context.Context, contestID, userID string) error
}

type postgresMemberRepository struct {
	db *sql.DB
}

func NewPostgresMemberRepository(db *sql.DB) MemberRepository {
	return &postgresMemberRepository{db: db}
}

func (r *postgresMemberRepository) Upsert(ctx context.Context, member *models.ContestMember) error {
	query := `
		INSERT INTO contest_members (user_id, contest_id, display_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, contest_id) DO UPDATE SET display_name = EXCLUDED.display_name`

	_, err := r.db.ExecContext(ctx, query, member.UserID, member.ContestID, member.DisplayName)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrMemberContestInvalid
		}
		return err
	}
	return nil
}

func (r *postgresMemberRepository) Get(ctx context.Context, contestID, userID string) (*models.ContestMember, error) {
	query := `
		SELECT user_id, contest_id, display_name
		FROM contest_members
		WHERE contest_id = $1 AND user_id = $2`

	member := &models.ContestMember{}
	err := r.db.QueryRowContext(ctx, query, contestID, userID).Scan(
		&member.UserID,
		&member.ContestID,
		&member.DisplayName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return member, nil
}

func (r *postgresMemberRepository) GetAnyByUserID(ctx context.Context, userID string) (*models.ContestMember, error) {
	query := `
		SELECT user_id, contest_id, display_name
		FROM contest_members
		WHERE user_id = $1
		LIMIT 1`

	member := &models.ContestMember{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&member.UserID,
		&member.ContestID,
		&member.DisplayName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return member, nil
}

func (r *postgresMemberRepository) ListByContestAndUserIDs(ctx context.Context, contestID string, userIDs []string) ([]*models.ContestMember, error) {
	if len(userIDs) == 0 {
		return []*models.ContestMember{}, nil
	}

	query := `
		SELECT user_id, contest_id, display_name
		FROM contest_members
		WHERE contest_id = $1 AND user_id = ANY($2)`

	rows, err := r.db.QueryContext(ctx, query, contestID, pq.Array(userIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]*models.ContestMember, 0, len(userIDs))
	for rows.Next() {
		var member models.ContestMember
		if scanErr := rows.Scan(&member.UserID, &member.ContestID, &member.DisplayName); scanErr != nil {
			return nil, scanErr
		}
		members = append(members, &member)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}

func (r *postgresMemberRepository) Delete(ctx context.Context, contestID, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM contest_members WHERE contest_id = $1 AND user_id = $2`,
		contestID, userID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMemberNotFound)
}
