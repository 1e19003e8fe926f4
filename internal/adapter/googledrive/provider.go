package googledrive

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/schoolmaps/drivelink/internal/adapter"
	"github.com/schoolmaps/drivelink/internal/crypto"
	"github.com/schoolmaps/drivelink/internal/store"
)

// Provider implements adapter.StorageProvider for Google Drive. Decrypted
// refresh tokens are cached by ciphertext so warm invocations skip KMS.
type Provider struct {
	oauthConfig *oauth2.Config
	links       store.LinkStore
	encryptor   crypto.Encryptor
	tokens      *lru.Cache[string, string]
	opts        []option.ClientOption
}

// NewProvider creates a Google Drive provider. opts are passed to every Drive
// service it builds.
func NewProvider(oauthConfig *oauth2.Config, links store.LinkStore, encryptor crypto.Encryptor, cacheSize int, opts ...option.ClientOption) (*Provider, error) {
	if cacheSize <= 0 {
		cacheSize = 1
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create token cache: %w", err)
	}
	return &Provider{
		oauthConfig: oauthConfig,
		links:       links,
		encryptor:   encryptor,
		tokens:      cache,
		opts:        opts,
	}, nil
}

// GetAdapter returns a DriveAdapter acting as userID.
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

	refreshToken, err := p.decrypt(ctx, state.RefreshToken)
	if err != nil {
		return nil, err
	}

	// No access token is kept, so the first request refreshes.
	token := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-1 * time.Hour),
	}
	client := oauth2.NewClient(ctx, p.oauthConfig.TokenSource(ctx, token))

	storage, err := NewDriveAdapter(ctx, client, p.opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive adapter: %w", err)
	}
	return storage, nil
}

func (p *Provider) decrypt(ctx context.Context, ciphertext string) (string, error) {
	if rt, ok := p.tokens.Get(ciphertext); ok {
		return rt, nil
	}
	rt, err := p.encryptor.Decrypt(ctx, ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt refresh token: %w", err)
	}
	p.tokens.Add(ciphertext, rt)
	return rt, nil
}
