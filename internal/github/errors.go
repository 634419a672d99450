package github

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized is matched by API errors with status 401.
var ErrUnauthorized = errors.New("github: unauthorized")

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("github api %s %s: %d %s: %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	}
	return fmt.Sprintf("github api %s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// HTTPStatus exposes the status code to retry classification.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}
