package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Отказ в доступе: у вызывающего нет требуемого права на ресурс.
	// Намеренно без деталей — наружу не утекает ни политика,
	// ни существование ресурса (для не-контестных типов).
	ErrForbidden = errors.New("you do not have permission to perform this action")

	// Внутренняя ошибка: неожиданный сбой сети или хранилища.
	// Всегда оборачивается вместе с исходной причиной для диагностики;
	// текст причины не предназначен для показа конечным пользователям.
	ErrInternal = errors.New("internal error")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed        = errors.New("validation failed")
	ErrContestNameRequired     = errors.New("contest name is required")
	ErrContestInvalidDateRange = errors.New("contest end date must be after start date")
	ErrInvalidRole             = errors.New("invalid member role")
	ErrSelfRemovalForbidden    = errors.New("you cannot remove yourself from the contest")
	ErrCriterionInvalidWeight  = errors.New("criterion weight must be positive")
	ErrScoreOutOfRange         = errors.New("score must be between zero and the criterion weight")
	ErrScoreAlreadySubmitted   = errors.New("score has already been submitted")
	ErrScoreNotYetScored       = errors.New("score has no value yet")

	// Ошибки токенов входа
	ErrSignInTokenInvalid = errors.New("sign-in token is invalid")
	ErrSignInTokenExpired = errors.New("sign-in token has expired")

	// Ошибки, специфичные для сущностей (дают больше контекста, чем ErrNotFound)
	ErrContestNotFound    = errors.New("contest not found")
	ErrContestantNotFound = errors.New("contestant not found")
	ErrCriterionNotFound  = errors.New("criterion not found")
	ErrMemberNotFound     = errors.New("contest member not found")
)
