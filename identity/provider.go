package identity

import (
	"context"
	"errors"
)

var ErrUserNotFound = errors.New("identity user not found")

// User — учетная запись во внешнем identity provider-е.
// Единственное, что этой системе от нее нужно: проверенный id и email.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
}

// Provider — внешний identity provider. Сессии и проверка подписи токена —
// его зона ответственности; здесь только поиск и создание учетных записей.
type Provider interface {
	// LookupByEmail возвращает пользователя по email или ErrUserNotFound.
	LookupByEmail(ctx context.Context, email string) (*User, error)

	// Create создает учетную запись для email. Имя опционально.
	Create(ctx context.Context, email, firstName string) (*User, error)

	// GetBatch возвращает пользователей по списку id. Отсутствующие id
	// просто не попадают в результат.
	GetBatch(ctx context.Context, ids []string) ([]User, error)
}
