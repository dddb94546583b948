package services

import "errors"

var (
	// ErrUsernameTaken is returned when signing up with a username that
	// already has an account.
	ErrUsernameTaken = errors.New("username is already in use")

	// ErrInvalidCredentials is returned on a failed login. Wrong username
	// and wrong password are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInvalidToken is returned when a token fails verification.
	ErrInvalidToken = errors.New("invalid authentication token")
)
