// Package store persists Drive link state and uploaded file metadata.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/schoolmaps/drivelink/internal/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("store: not found")

// LinkStore keeps the per-user Drive link: the encrypted refresh token in a
// private document and the linked flag in a public one.
type LinkStore interface {
	// GetLinkState returns ErrNotFound when the user has never been linked.
	GetLinkState(ctx context.Context, userID string) (*model.LinkState, error)

	// SaveLink stores the encrypted refresh token, sets linked=true and
	// lastLinkedAt in a single atomic write. Other attributes are preserved.
	SaveLink(ctx context.Context, userID, encryptedToken string, linkedAt time.Time) error

	// ClearLink removes the token and sets linked=false. It is idempotent and
	// does not create a record for a user that was never linked.
	ClearLink(ctx context.Context, userID string) error
}

// FileStore keeps UploadedFileRecords.
type FileStore interface {
	PutFileRecord(ctx context.Context, rec *model.UploadedFileRecord) error
	// GetFileRecord returns ErrNotFound when the record does not exist.
	GetFileRecord(ctx context.Context, id string) (*model.UploadedFileRecord, error)
	// DeleteFileRecord succeeds when the record does not exist.
	DeleteFileRecord(ctx context.Context, id string) error
	// ListFileRecords returns the owner's records, newest first.
	ListFileRecords(ctx context.Context, ownerID string) ([]model.UploadedFileRecord, error)
}

// Store is a backend providing both halves.
type Store interface {
	LinkStore
	FileStore
}
