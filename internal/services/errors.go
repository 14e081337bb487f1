package services

import "errors"

// Error kinds callers map to responses with errors.Is.
var (
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
)

// Error is a client-facing failure of a given kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

var (
	ErrEmailTaken = &Error{Kind: ErrConflict, Message: "user with this email already exists"}

	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = &Error{Kind: ErrUnauthorized, Message: "invalid credentials"}
	ErrInvalidSession     = &Error{Kind: ErrUnauthorized, Message: "unauthorized"}
	ErrAccountNotFound    = &Error{Kind: ErrUnauthorized, Message: "user not found"}

	ErrAlreadyReviewed = &Error{Kind: ErrConflict, Message: "you have already reviewed this game"}
	ErrReviewNotFound  = &Error{Kind: ErrNotFound, Message: "review not found"}
	ErrNotReviewOwner  = &Error{Kind: ErrForbidden, Message: "you can only modify your own reviews"}
)
