package auth

import "errors"

var (
	// ErrInvalidCredentials covers both unknown username and wrong password,
	// uniformly, so login responses do not leak which usernames exist.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrMissingToken: no bearer token presented (maps to 401).
	ErrMissingToken = errors.New("missing token")

	// ErrInvalidToken: bad signature or expired (maps to 403).
	ErrInvalidToken = errors.New("invalid token")

	ErrUserExists = errors.New("username already taken")
)
