package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/titlescore/titlescore/authz"
	"github.com/titlescore/titlescore/identity"
	"github.com/titlescore/titlescore/models"
	"github.com/titlescore/titlescore/repositories"
)

// InviteMailer отправляет письмо-приглашение. Сбой отправки НЕ откатывает
// уже выполненную запись relation-а — это осознанный компромисс.
type InviteMailer interface {
	SendMemberInviteEmail(to, contestName string, role models.Role, verifyLink string) error
}

type MemberService interface {
	Invite(ctx context.Context, callerID string, input InviteMemberInput) error

	// ResendInvite повторно отправляет письмо. Повторная выдача роли —
	// явный идемпотентный no-op: если relation уже есть, запись пропускается.
	ResendInvite(ctx context.Context, callerID string, input InviteMemberInput) error

	// UpdateRole меняет роль через delete-then-create. Операция не атомарна;
	// при сбое create выполняется одна повторная попытка, а при ее неудаче —
	// попытка вернуть прежнюю роль, чтобы пользователь не остался совсем
	// без роли молча.
	UpdateRole(ctx context.Context, callerID, contestID, userID string, role models.Role) error

	// Remove удаляет участника. Самоудаление запрещено: иначе конкурс может
	// остаться без владельца.
	Remove(ctx context.Context, callerID, contestID, userID string) error

	List(ctx context.Context, callerID, contestID string, roleFilter string) ([]*models.Member, error)

	// Me возвращает роль и display name вызывающего на конкурсе.
	Me(ctx context.Context, callerID, contestID string) (*MeResult, error)

	// listMembers — выборка без авторизации, для композиции внутри уже
	// охраняемых операций.
	listMembers(ctx context.Context, contestID string, roleFilter string) ([]*models.Member, error)
}

type InviteMemberInput struct {
	ContestID   string      `json:"contest_id"`
	Email       string      `json:"email"`
	Role        models.Role `json:"role"`
	DisplayName string      `json:"display_name,omitempty"`
}

type MeResult struct {
	UserID      string      `json:"user_id"`
	Relation    models.Role `json:"relation,omitempty"`
	DisplayName string      `json:"display_name,omitempty"`
}

type memberService struct {
	memberRepo  repositories.MemberRepository
	contestRepo repositories.ContestRepository
	authzClient authz.Client
	authorizer  Authorizer
	idProvider  identity.Provider
	authService AuthService
	mailer      InviteMailer
	publicURL   string
	logger      *slog.Logger
}

func NewMemberService(
	memberRepo repositories.MemberRepository,
	contestRepo repositories.ContestRepository,
	authzClient authz.Client,
	authorizer Authorizer,
	idProvider identity.Provider,
	authService AuthService,
	mailer InviteMailer,
	publicURL string,
	logger *slog.Logger,
) MemberService {
	return &memberService{
		memberRepo:  memberRepo,
		contestRepo: contestRepo,
		authzClient: authzClient,
		authorizer:  authorizer,
		idProvider:  idProvider,
		authService: authService,
		mailer:      mailer,
		publicURL:   publicURL,
		logger:      logger,
	}
}

func (s *memberService) Invite(ctx context.Context, callerID string, input InviteMemberInput) error {
	if !input.Role.Valid() {
		return ErrInvalidRole
	}
	if err := s.authorizer.Authorize(ctx, callerID, input.ContestID, PermissionManage); err != nil {
		return err
	}

	contest, err := s.contestRepo.GetByID(ctx, input.ContestID)
	if err != nil {
		if errors.Is(err, repositories.ErrContestNotFound) {
			return ErrContestNotFound
		}
		return fmt.Errorf("failed to get contest %s: %w", input.ContestID, err)
	}

	// Ищем или создаем учетную запись у identity provider-а.
	user, err := s.idProvider.LookupByEmail(ctx, input.Email)
	if err != nil {
		if !errors.Is(err, identity.ErrUserNotFound) {
			return fmt.Errorf("%w: identity lookup failed: %w", ErrInternal, err)
		}
		user, err = s.idProvider.Create(ctx, input.Email, input.DisplayName)
		if err != nil {
			return fmt.Errorf("%w: identity create failed: %w", ErrInternal, err)
		}
	}

	token, err := authz.AddContestMembers(ctx, s.authzClient, input.ContestID, []authz.MemberRelation{
		{UserID: user.ID, Relation: string(input.Role)},
	})
	if err != nil {
		return fmt.Errorf("%w: failed to write member relation: %w", ErrInternal, err)
	}

	displayName := input.DisplayName
	if displayName == "" {
		displayName = user.FirstName
	}
	if displayName == "" {
		displayName = input.Email
	}

	// Дальше идут шаги без компенсации: relation уже записан, частично
	// примененное состояние при сбое здесь — известный принятый долг.
	if err := s.memberRepo.Upsert(ctx, &models.ContestMember{
		UserID:      user.ID,
		ContestID:   input.ContestID,
		DisplayName: displayName,
	}); err != nil {
		return fmt.Errorf("%w: failed to store member metadata: %w", ErrInternal, err)
	}

	if err := s.contestRepo.UpdateZedToken(ctx, input.ContestID, token); err != nil {
		return fmt.Errorf("%w: failed to persist consistency token: %w", ErrInternal, err)
	}

	return s.sendInvite(ctx, user.ID, input.Email, contest, input.Role)
}

func (s *memberService) ResendInvite(ctx context.Context, callerID string, input InviteMemberInput) error {
	if !input.Role.Valid() {
		return ErrInvalidRole
	}
	if err := s.authorizer.Authorize(ctx, callerID, input.ContestID, PermissionManage); err != nil {
		return err
	}

	contest, err := s.contestRepo.GetByID(ctx, input.ContestID)
	if err != nil {
		if errors.Is(err, repositories.ErrContestNotFound) {
			return ErrContestNotFound
		}
		return fmt.Errorf("failed to get contest %s: %w", input.ContestID, err)
	}

	user, err := s.idProvider.LookupByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("%w: identity lookup failed: %w", ErrInternal, err)
	}

	// Идемпотентная повторная выдача: пишем relation только если его нет.
	current, err := authz.GetRelation(ctx, s.authzClient, user.ID, input.ContestID)
	if err != nil {
		return fmt.Errorf("%w: failed to read member relation: %w", ErrInternal, err)
	}
	if current == "" {
		token, err := authz.AddContestMembers(ctx, s.authzClient, input.ContestID, []authz.MemberRelation{
			{UserID: user.ID, Relation: string(input.Role)},
		})
		if err != nil {
			return fmt.Errorf("%w: failed to write member relation: %w", ErrInternal, err)
		}
		if err := s.contestRepo.UpdateZedToken(ctx, input.ContestID, token); err != nil {
			return fmt.Errorf("%w: failed to persist consistency token: %w", ErrInternal, err)
		}
	}

	return s.sendInvite(ctx, user.ID, input.Email, contest, input.Role)
}

func (s *memberService) UpdateRole(ctx context.Context, callerID, contestID, userID string, role models.Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	if err := s.authorizer.Authorize(ctx, callerID, contestID, PermissionManage); err != nil {
		return err
	}

	oldRole, err := authz.GetRelation(ctx, s.authzClient, userID, contestID)
	if err != nil {
		return fmt.Errorf("%w: failed to read member relation: %w", ErrInternal, err)
	}
	if oldRole == "" {
		return ErrMemberNotFound
	}
	if oldRole == string(role) {
		return nil
	}

	if _, err := authz.RemoveContestMembers(ctx, s.authzClient, contestID, []authz.MemberRelation{
		{UserID: userID, Relation: oldRole},
	}); err != nil {
		return fmt.Errorf("%w: failed to remove old role: %w", ErrInternal, err)
	}

	// Между delete и create пользователь без роли. Store не умеет атомарной
	// замены, поэтому при сбое create пробуем еще раз, а затем пытаемся
	// вернуть прежнюю роль.
	token, err := authz.AddContestMembers(ctx, s.authzClient, contestID, []authz.MemberRelation{
		{UserID: userID, Relation: string(role)},
	})
	if err != nil {
		s.logger.Warn("role create failed after delete, retrying",
			slog.String("contest_id", contestID), slog.String("user_id", userID), slog.Any("error", err))
		token, err = authz.AddContestMembers(ctx, s.authzClient, contestID, []authz.MemberRelation{
			{UserID: userID, Relation: string(role)},
		})
	}
	if err != nil {
		if _, restoreErr := authz.AddContestMembers(ctx, s.authzClient, contestID, []authz.MemberRelation{
			{UserID: userID, Relation: oldRole},
		}); restoreErr != nil {
			s.logger.Error("failed to restore previous role, user left without role",
				slog.String("contest_id", contestID), slog.String("user_id", userID), slog.Any("error", restoreErr))
		}
		return fmt.Errorf("%w: failed to write new role: %w", ErrInternal, err)
	}

	if err := s.contestRepo.UpdateZedToken(ctx, contestID, token); err != nil {
		return fmt.Errorf("%w: failed to persist consistency token: %w", ErrInternal, err)
	}
	return nil
}

func (s *memberService) Remove(ctx context.Context, callerID, contestID, userID string) error {
	// Проверка до авторизации: самоудаление запрещено для любой роли.
	if userID == callerID {
		return ErrSelfRemovalForbidden
	}
	if err := s.authorizer.Authorize(ctx, callerID, contestID, PermissionManage); err != nil {
		return err
	}

	role, err := authz.GetRelation(ctx, s.authzClient, userID, contestID)
	if err != nil {
		return fmt.Errorf("%w: failed to read member relation: %w", ErrInternal, err)
	}
	if role == "" {
		return ErrMemberNotFound
	}

	token, err := authz.RemoveContestMembers(ctx, s.authzClient, contestID, []authz.MemberRelation{
		{UserID: userID, Relation: role},
	})
	if err != nil {
		return fmt.Errorf("%w: failed to remove member relation: %w", ErrInternal, err)
	}

	if err := s.contestRepo.UpdateZedToken(ctx, contestID, token); err != nil {
		return fmt.Errorf("%w: failed to persist consistency token: %w", ErrInternal, err)
	}

	if err := s.memberRepo.Delete(ctx, contestID, userID); err != nil && !errors.Is(err, repositories.ErrMemberNotFound) {
		return fmt.Errorf("%w: failed to delete member metadata: %w", ErrInternal, err)
	}
	return nil
}

func (s *memberService) List(ctx context.Context, callerID, contestID string, roleFilter string) ([]*models.Member, error) {
	if err := s.authorizer.Authorize(ctx, callerID, contestID, PermissionView); err != nil {
		return nil, err
	}
	return s.listMembers(ctx, contestID, roleFilter)
}

func (s *memberService) listMembers(ctx context.Context, contestID string, roleFilter string) ([]*models.Member, error) {
	stream, err := authz.GetContestMembers(ctx, s.authzClient, contestID, roleFilter)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read member relations: %w", ErrInternal, err)
	}
	relations, err := stream.Collect()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read member relations: %w", ErrInternal, err)
	}
	if len(relations) == 0 {
		return []*models.Member{}, nil
	}

	userIDs := make([]string, 0, len(relations))
	roleByUser := make(map[string]string, len(relations))
	for _, rel := range relations {
		if _, ok := roleByUser[rel.SubjectID]; !ok {
			userIDs = append(userIDs, rel.SubjectID)
		}
		roleByUser[rel.SubjectID] = rel.Relation
	}

	users, err := s.idProvider.GetBatch(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: identity batch lookup failed: %w", ErrInternal, err)
	}
	emailByUser := make(map[string]string, len(users))
	nameByUser := make(map[string]string, len(users))
	for _, u := range users {
		emailByUser[u.ID] = u.Email
		nameByUser[u.ID] = u.FirstName
	}

	meta, err := s.memberRepo.ListByContestAndUserIDs(ctx, contestID, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load member metadata: %w", err)
	}
	displayByUser := make(map[string]string, len(meta))
	for _, m := range meta {
		displayByUser[m.UserID] = m.DisplayName
	}

	// Порядок выдачи — порядок relation-ов из store.
	members := make([]*models.Member, 0, len(userIDs))
	for _, id := range userIDs {
		displayName := displayByUser[id]
		if displayName == "" {
			displayName = nameByUser[id]
		}
		if displayName == "" {
			displayName = emailByUser[id]
		}
		members = append(members, &models.Member{
			UserID:      id,
			DisplayName: displayName,
			Email:       emailByUser[id],
			Role:        models.Role(roleByUser[id]),
		})
	}
	return members, nil
}

func (s *memberService) Me(ctx context.Context, callerID, contestID string) (*MeResult, error) {
	relation, err := authz.GetRelation(ctx, s.authzClient, callerID, contestID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read member relation: %w", ErrInternal, err)
	}

	result := &MeResult{
		UserID:   callerID,
		Relation: models.Role(relation),
	}

	member, err := s.memberRepo.Get(ctx, contestID, callerID)
	if err == nil {
		result.DisplayName = member.DisplayName
	} else if !errors.Is(err, repositories.ErrMemberNotFound) {
		return nil, fmt.Errorf("failed to load member metadata: %w", err)
	}
	return result, nil
}

func (s *memberService) sendInvite(ctx context.Context, userID, email string, contest *models.Contest, role models.Role) error {
	rawToken, err := s.authService.CreateSignInToken(ctx, userID, contest.ID)
	if err != nil {
		return fmt.Errorf("%w: failed to create sign-in token: %w", ErrInternal, err)
	}

	verifyLink, err := url.Parse(s.publicURL + "/auth/verify")
	if err != nil {
		return fmt.Errorf("%w: invalid public URL: %w", ErrInternal, err)
	}
	query := verifyLink.Query()
	query.Set("token", rawToken)
	query.Set("redirectTo", "/app/"+contest.ID)
	verifyLink.RawQuery = query.Encode()

	if err := s.mailer.SendMemberInviteEmail(email, contest.Name, role, verifyLink.String()); err != nil {
		// Relation уже записан; откат не выполняется.
		return fmt.Errorf("%w: failed to send invite email: %w", ErrInternal, err)
	}
	return nil
}
