package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrLoginRequired indicates the operation needs an authenticated, hydrated session.
	ErrLoginRequired = errors.New("login required")
	// ErrUnavailable wraps transport failures towards the remote API.
	ErrUnavailable = errors.New("service unavailable, try again later")
	// ErrInvalidInput is returned when a request fails client-side validation.
	ErrInvalidInput = errors.New("invalid input")
)
