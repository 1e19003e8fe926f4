package adapter

import (
	"errors"
)

var (
	// ErrNotFound is returned when the requested Drive resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized is returned when the stored grant can no longer be used:
	// the refresh token was revoked or expired, or Drive answered 401.
	ErrUnauthorized = errors.New("drive authorization revoked")

	// ErrNotLinked is returned by a StorageProvider when the user has no
	// stored refresh token.
	ErrNotLinked = errors.New("drive account not linked")
)
