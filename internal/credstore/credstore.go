// Package credstore persists the access token, user profile and OAuth state nonce
// in the key-value area.
package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"todosync/internal/kvstore"
	"todosync/internal/logging"
	"todosync/internal/service"
)

// ErrNoCredential is returned when no usable token is stored.
var ErrNoCredential = errors.New("not logged in")

// Store wraps a kvstore.Store with typed credential accessors.
type Store struct {
	kv     kvstore.Store
	logger *slog.Logger
}

// New creates a credential store on top of kv.
func New(kv kvstore.Store, logger *slog.Logger) *Store {
	return &Store{kv: kv, logger: logging.OrDefault(logger)}
}

// Token returns the stored OAuth token.
// A missing, empty or unparseable token yields an auth error wrapping ErrNoCredential.
func (s *Store) Token(ctx context.Context) (*oauth2.Token, error) {
	raw, err := s.kv.Get(ctx, kvstore.KeyAccessToken)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, service.AuthError("token", ErrNoCredential)
	}
	if err != nil {
		return nil, err
	}

	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil || tok.AccessToken == "" {
		s.logger.Warn("stored token is unreadable, ignoring", logging.Err(err))
		return nil, service.AuthError("token", ErrNoCredential)
	}
	return &tok, nil
}

// AccessToken returns the stored bearer token.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	tok, err := s.Token(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// SaveToken stores tok.
func (s *Store) SaveToken(ctx context.Context, tok *oauth2.Token) error {
	if tok == nil || tok.AccessToken == "" {
		return service.ValidationError("save token", "empty access token")
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	return s.kv.Set(ctx, kvstore.KeyAccessToken, string(data))
}

// Profile returns the cached profile. ok is false if none is stored.
// A corrupt profile is removed and reported as absent.
func (s *Store) Profile(ctx context.Context) (service.Profile, bool, error) {
	raw, err := s.kv.Get(ctx, kvstore.KeyUserInfo)
	if errors.Is(err, kvstore.ErrNotFound) {
		return service.Profile{}, false, nil
	}
	if err != nil {
		return service.Profile{}, false, err
	}

	var p service.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.logger.Warn("failed to parse stored user info, removing", logging.Err(err))
		if derr := s.kv.Delete(ctx, kvstore.KeyUserInfo); derr != nil {
			return service.Profile{}, false, derr
		}
		return service.Profile{}, false, nil
	}
	return p, true, nil
}

// SaveProfile stores p.
func (s *Store) SaveProfile(ctx context.Context, p service.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return s.kv.Set(ctx, kvstore.KeyUserInfo, string(data))
}

// Credential returns the stored token and profile.
func (s *Store) Credential(ctx context.Context) (service.Credential, error) {
	tok, err := s.Token(ctx)
	if err != nil {
		return service.Credential{}, err
	}
	p, _, err := s.Profile(ctx)
	if err != nil {
		return service.Credential{}, err
	}
	return service.Credential{Token: tok, Profile: p}, nil
}

// Save stores a full credential.
func (s *Store) Save(ctx context.Context, c service.Credential) error {
	if err := s.SaveToken(ctx, c.Token); err != nil {
		return err
	}
	return s.SaveProfile(ctx, c.Profile)
}

// SaveNonce stores the OAuth state nonce for the pending sign-in.
func (s *Store) SaveNonce(ctx context.Context, nonce string) error {
	return s.kv.Set(ctx, kvstore.KeyOAuthState, nonce)
}

// ConsumeNonce reports whether nonce matches the stored one and removes it.
func (s *Store) ConsumeNonce(ctx context.Context, nonce string) (bool, error) {
	stored, err := s.kv.Get(ctx, kvstore.KeyOAuthState)
	if errors.Is(err, kvstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := s.kv.Delete(ctx, kvstore.KeyOAuthState); err != nil {
		return false, err
	}
	return nonce != "" && stored == nonce, nil
}

// Clear removes the token, profile and nonce.
func (s *Store) Clear(ctx context.Context) error {
	var errs []error
	for _, key := range []string{kvstore.KeyAccessToken, kvstore.KeyUserInfo, kvstore.KeyOAuthState} {
		if err := s.kv.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TokenSource returns an oauth2.TokenSource that reads the store on every call,
// so a token replaced by a refresh is picked up by the next request.
func (s *Store) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &storeTokenSource{ctx: ctx, store: s}
}

type storeTokenSource struct {
	ctx   context.Context
	store *Store
}

func (t *storeTokenSource) Token() (*oauth2.Token, error) {
	tok, err := t.store.Token(t.ctx)
	if err != nil {
		return nil, err
	}
	// Expiry is handled by the gateway's refresh-and-retry; the remote decides validity.
	return &oauth2.Token{AccessToken: tok.AccessToken, TokenType: "Bearer"}, nil
}
