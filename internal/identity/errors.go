package identity

import "errors"

var (
	// ErrUnauthenticated is returned when a session token is missing,
	// invalid, expired or revoked
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidCredentials is returned on a failed password sign-in. The
	// message never distinguishes a wrong password from an unknown email.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken is returned when a sign-up collides with an existing
	// account
	ErrEmailTaken = errors.New("email already registered")

	// ErrTooManyAttempts is returned when the sign-in limiter refuses the
	// attempt
	ErrTooManyAttempts = errors.New("too many sign-in attempts, try again later")
)
