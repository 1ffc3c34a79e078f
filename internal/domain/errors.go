package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalid      = errors.New("invalid input")
)

// InvalidError carries a user-facing message and unwraps to ErrInvalid.
type InvalidError struct{ Msg string }

func (e *InvalidError) Error() string { return e.Msg }
func (e *InvalidError) Unwrap() error { return ErrInvalid }

func Invalid(msg string) error { return &InvalidError{Msg: msg} }

// ErrUnavailable marks a feature whose backing service is not configured.
var ErrUnavailable = errors.New("unavailable")
