package adapter

import (
	"context"
)

// StorageProvider builds a StorageAdapter authenticated as a specific user.
type StorageProvider interface {
	// GetAdapter returns ErrNotLinked when the user has no usable link.
	GetAdapter(ctx context.Context, userID string) (StorageAdapter, error)
}
