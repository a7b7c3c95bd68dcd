package authz

import (
	"errors"
	"fmt"
)

// AuthzError — ошибка, о которой сообщил сам relationship store.
// Несет его код и сообщение, чтобы вызывающий слой мог отличить ее от
// транспортных сбоев.
type AuthzError struct {
	Code    string
	Message string
}

func (e *AuthzError) Error() string {
	return fmt.Sprintf("authzed error [%s]: %s", e.Code, e.Message)
}

// AsAuthzError возвращает *AuthzError из цепочки ошибок, если он там есть.
func AsAuthzError(err error) (*AuthzError, bool) {
	var ae *AuthzError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
