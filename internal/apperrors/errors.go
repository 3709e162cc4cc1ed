// Package apperrors declares the error kinds shared by the store, handlers and
// transports. Callers wrap them with fmt.Errorf and classify with errors.Is.
package apperrors

import "errors"

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not found")
	ErrBadRequest     = errors.New("bad request")
	ErrStorageFailure = errors.New("storage failure")
)
