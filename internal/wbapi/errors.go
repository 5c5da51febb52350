package wbapi

import (
	"errors"
	"fmt"
)

// ErrorKind — различимый класс ошибки WB API.
type ErrorKind string

const (
	KindAuth       ErrorKind = "auth"
	KindRateLimit  ErrorKind = "rate_limit"
	KindNotFound   ErrorKind = "not_found"
	KindValidation ErrorKind = "validation"
	KindServer     ErrorKind = "server"
	KindNetwork    ErrorKind = "network"
)

type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	RetryAfter int // секунды, только для rate limit
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("wb api: %s (%d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("wb api: %s: %s", e.Kind, e.Message)
}

func IsKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind == kind
	}
	return false
}

// Transient — стоит ли повторять запрос.
func Transient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind == KindServer || apiErr.Kind == KindNetwork
	}
	return false
}
