package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/titlescore/titlescore/authz"
	"github.com/titlescore/titlescore/repositories"
)

// Именованные права из схемы relationship store.
const (
	PermissionView   = "view"
	PermissionManage = "manage"
	PermissionScore  = "score"
	PermissionAdmin  = "admin"
)

// ResourceTypeContest — тип ресурса по умолчанию.
const ResourceTypeContest = "contest"

// Authorizer — охранник операций. Это advisory middleware, а не
// capability-токен: каждая операция обязана явно вызвать Authorize для
// каждого ресурса, которого касается (ровно один раз на contest id).
type Authorizer interface {
	// Authorize проверяет право вызывающего на конкурс.
	// Возвращает nil при явном разрешении, ErrContestNotFound для
	// несуществующего конкурса (без похода в relationship store),
	// ErrForbidden при любом другом исходе проверки.
	Authorize(ctx context.Context, userID, contestID, permission string) error

	// AuthorizeResource — то же для произвольного типа ресурса.
	// Локальная проверка существования выполняется только для конкурсов.
	AuthorizeResource(ctx context.Context, userID, resourceType, resourceID, permission string) error
}

type authorizer struct {
	authzClient authz.Client
	contestRepo repositories.ContestRepository
}

func NewAuthorizer(authzClient authz.Client, contestRepo repositories.ContestRepository) Authorizer {
	return &authorizer{
		authzClient: authzClient,
		contestRepo: contestRepo,
	}
}

func (a *authorizer) Authorize(ctx context.Context, userID, contestID, permission string) error {
	return a.AuthorizeResource(ctx, userID, ResourceTypeContest, contestID, permission)
}

func (a *authorizer) AuthorizeResource(ctx context.Context, userID, resourceType, resourceID, permission string) error {
	if resourceType == ResourceTypeContest {
		// Сначала локальная проверка существования: не раскрываем
		// информацию о правах на несуществующий ресурс и экономим
		// сетевой вызов.
		exists, err := a.contestRepo.Exists(ctx, resourceID)
		if err != nil {
			return fmt.Errorf("%w: failed to check contest existence: %w", ErrInternal, err)
		}
		if !exists {
			return ErrContestNotFound
		}
	}

	result, err := a.authzClient.CheckPermission(ctx, userID, resourceType, resourceID, permission)
	if err != nil {
		// Ошибка самого store уже типизирована — пропускаем как есть,
		// остальное заворачиваем во внутреннюю с причиной.
		var ae *authz.AuthzError
		if errors.As(err, &ae) {
			return err
		}
		return fmt.Errorf("%w: failed to check permissions: %w", ErrInternal, err)
	}

	// nil (unspecified) и false трактуются одинаково: отказ.
	if result.Granted == nil || !*result.Granted {
		return ErrForbidden
	}
	return nil
}
