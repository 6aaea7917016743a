package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrUpstream     = errors.New("upstream error")
	ErrUnavailable  = errors.New("service unavailable")
)

// Error describes a failed collaborator call. It unwraps to one of the
// sentinels above.
type Error struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("api %s: %v: %s", e.Op, e.Err, e.Message)
	}
	return fmt.Sprintf("api %s: %v (%d): %s", e.Op, e.Err, e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func fromStatus(status int) error {
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity, status == http.StatusConflict:
		return ErrInvalidInput
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusServiceUnavailable, status == http.StatusBadGateway, status == http.StatusGatewayTimeout:
		return ErrUnavailable
	default:
		return ErrUpstream
	}
}
