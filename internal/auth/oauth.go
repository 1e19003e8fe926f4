// Package auth brokers the OAuth handshake with Google and owns the lifecycle
// of the stored Drive refresh token.
package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"

	"github.com/schoolmaps/drivelink/internal/apperr"
	"github.com/schoolmaps/drivelink/internal/crypto"
	"github.com/schoolmaps/drivelink/internal/logger"
	"github.com/schoolmaps/drivelink/internal/metrics"
	"github.com/schoolmaps/drivelink/internal/store"
)

// Status is the caller-visible link state.
type Status struct {
	Linked       bool       `json:"linked"`
	LastLinkedAt *time.Time `json:"lastLinkedAt,omitempty"`
}

// AuthService handles OAuth2 authorization flows and token storage.
type AuthService struct {
	oauthConfig *oauth2.Config
	links       store.LinkStore
	encryptor   crypto.Encryptor
	now         func() time.Time
}

// NewAuthService creates a new AuthService. The oauthConfig is built once by
// the caller and shared with the Drive provider.
func NewAuthService(oauthConfig *oauth2.Config, links store.LinkStore, encryptor crypto.Encryptor) *AuthService {
	return &AuthService{
		oauthConfig: oauthConfig,
		links:       links,
		encryptor:   encryptor,
		now:         time.Now,
	}
}

// Config returns the OAuth2 config.
func (s *AuthService) Config() *oauth2.Config {
	return s.oauthConfig
}

// CreateAuthorizationURL returns the consent URL for userID. The user id is
// echoed back as the state parameter.
func (s *AuthService) CreateAuthorizationURL(userID string) (string, error) {
	if userID == "" {
		return "", apperr.New(apperr.Unauthenticated, "User must be authenticated.")
	}
	return s.oauthConfig.AuthCodeURL(userID, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// ExchangeCode trades an authorization code for tokens and stores the
// encrypted refresh token.
func (s *AuthService) ExchangeCode(ctx context.Context, userID, code string) error {
	if userID == "" {
		return apperr.New(apperr.Unauthenticated, "User must be authenticated.")
	}
	if code == "" {
		return apperr.New(apperr.InvalidArgument, "Authorization code is required.")
	}

	log := logger.FromContext(ctx).WithField("user_id", userID)

	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		log.WithError(err).Warn("authorization code exchange failed")
		return apperr.Wrap(apperr.Internal, "Failed to exchange authorization code.", err)
	}
	if token.RefreshToken == "" {
		log.Warn("token response carried no refresh token")
		return apperr.New(apperr.FailedPrecondition, "No refresh token received. Please revoke access and try again.")
	}

	encrypted, err := s.encryptor.Encrypt(ctx, token.RefreshToken)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "Failed to store Google Drive credentials.", err)
	}
	if err := s.links.SaveLink(ctx, userID, encrypted, s.now().UTC()); err != nil {
		return apperr.Wrap(apperr.Internal, "Failed to store Google Drive credentials.", err)
	}

	metrics.LinkEvents.WithLabelValues(metrics.EventLinked).Inc()
	log.Info("google drive linked")
	return nil
}

// Disconnect forgets the refresh token. It succeeds for users that were
// never linked.
func (s *AuthService) Disconnect(ctx context.Context, userID string) error {
	if userID == "" {
		return apperr.New(apperr.Unauthenticated, "User must be authenticated.")
	}
	if err := s.links.ClearLink(ctx, userID); err != nil {
		return apperr.Wrap(apperr.Internal, "Failed to disconnect Google Drive.", err)
	}
	metrics.LinkEvents.WithLabelValues(metrics.EventUnlinked).Inc()
	logger.FromContext(ctx).WithField("user_id", userID).Info("google drive unlinked")
	return nil
}

// Status reports whether userID has a linked Drive.
func (s *AuthService) Status(ctx context.Context, userID string) (*Status, error) {
	if userID == "" {
		return nil, apperr.New(apperr.Unauthenticated, "User must be authenticated.")
	}
	state, err := s.links.GetLinkState(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return &Status{}, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Failed to read Google Drive link.", err)
	}

	st := &Status{Linked: state.Linked && state.RefreshToken != ""}
	if !state.LastLinkedAt.IsZero() {
		t := state.LastLinkedAt
		st.LastLinkedAt = &t
	}
	return st, nil
}
