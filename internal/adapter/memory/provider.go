package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/schoolmaps/drivelink/internal/adapter"
	"github.com/schoolmaps/drivelink/internal/store"
)

// Provider hands out adapters on a shared Drive to linked users only.
type Provider struct {
	drive *Drive
	links store.LinkStore
}

func NewProvider(drive *Drive, links store.LinkStore) *Provider {
	return &Provider{drive: drive, links: links}
}

func (p *Provider) GetAdapter(ctx context.Context, userID string) (adapter.StorageAdapter, error) {
	state, err := p.links.GetLinkState(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, adapter.ErrNotLinked
		}
		return nil, fmt.Errorf("failed to load drive link: %w", err)
	}
	if !state.Linked || state.RefreshToken == "" {
		return nil, adapter.ErrNotLinked
	}
	return p.drive.ForUser(userID), nil
}
