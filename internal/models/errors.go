package models

import "errors"

// Business-rule errors surfaced by the repositories and services. Handlers map
// these onto HTTP statuses; anything unrecognized becomes a 500.
var (
	// ErrEmailTaken and ErrUsernameTaken signal a registration or email-change
	// conflict with an existing non-deleted account.
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already taken")

	// ErrInvalidCredentials covers both an unknown email/username pair and a
	// wrong password, deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken covers a missing, malformed, or revoked bearer token.
	ErrInvalidToken = errors.New("token is invalid or expired")

	// ErrCodeInvalidOrExpired covers a wrong, already-used, or expired
	// verification code. Callers must not reveal which case applied.
	ErrCodeInvalidOrExpired = errors.New("invalid or expired verification code")

	// ErrUserNotFound signals a referenced user that does not exist, or that
	// is not in the status the operation requires.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserNotPending is returned when email verification is attempted for
	// a user that is not awaiting verification.
	ErrUserNotPending = errors.New("user not found or already verified")

	// ErrPasswordMismatch signals a wrong current password on password change.
	ErrPasswordMismatch = errors.New("current password is incorrect")

	// ErrEmailMismatch signals that the supplied old email does not match the
	// authenticated user's current address.
	ErrEmailMismatch = errors.New("current email is incorrect")
)
