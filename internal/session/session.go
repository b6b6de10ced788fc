// Package session exposes the signed-in user's bearer token to the submission client.
//
// The token lives in a persistent Store under TokenKey. Issuing and refreshing
// it belongs to the auth flow; the form workflow only reads it.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/terrarium/internal/errs"
)

// TokenKey is the storage key of the bearer token.
const TokenKey = "jwt"

// TokenSource yields the bearer token to attach to a request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Session reads the bearer token from a Store on every call.
type Session struct {
	store Store
	now   func() time.Time
}

// New constructs a Session over store.
func New(store Store) *Session {
	return &Session{store: store, now: time.Now}
}

// Token returns the stored token. A missing or expired token yields errs.ErrUnauthorized.
// Tokens that are not JWTs are treated as opaque and returned as-is.
func (s *Session) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tok, err := s.store.Get(TokenKey)
	if errors.Is(err, errs.ErrNotFound) || (err == nil && strings.TrimSpace(tok) == "") {
		return "", fmt.Errorf("%w: %w", errs.ErrUnauthorized, errs.ErrNoToken)
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	tok = strings.TrimSpace(tok)
	if claims, ok := parseClaims(tok); ok {
		if exp, _ := claims.GetExpirationTime(); exp != nil && s.now().After(exp.Time) {
			return "", fmt.Errorf("%w: token expired at %s", errs.ErrUnauthorized, exp.UTC().Format(time.RFC3339))
		}
	}
	return tok, nil
}

// UserID returns the owner id carried by the token ("userId" claim, falling back to "sub").
func (s *Session) UserID(ctx context.Context) (string, error) {
	tok, err := s.Token(ctx)
	if err != nil {
		return "", err
	}
	claims, ok := parseClaims(tok)
	if !ok {
		return "", errors.New("token carries no claims")
	}
	if v, ok := claims["userId"].(string); ok && v != "" {
		return v, nil
	}
	if sub, _ := claims.GetSubject(); sub != "" {
		return sub, nil
	}
	return "", errors.New("token carries no user id")
}

// ExpiresAt returns the token expiry, or the zero time when it has none.
func (s *Session) ExpiresAt(ctx context.Context) (time.Time, error) {
	tok, err := s.Token(ctx)
	if err != nil {
		return time.Time{}, err
	}
	claims, ok := parseClaims(tok)
	if !ok {
		return time.Time{}, nil
	}
	exp, _ := claims.GetExpirationTime()
	if exp == nil {
		return time.Time{}, nil
	}
	return exp.Time, nil
}

// SetToken stores tok. Used by the CLI token command, not by the form workflow.
func (s *Session) SetToken(tok string) error {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return errors.New("empty token")
	}
	return s.store.Set(TokenKey, tok)
}

// Clear removes the stored token.
func (s *Session) Clear() error { return s.store.Delete(TokenKey) }

// parseClaims decodes JWT claims without verifying the signature; the server does that.
func parseClaims(tok string) (jwt.MapClaims, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// Static is a TokenSource returning a fixed token.
type Static string

// Token returns the fixed token, or errs.ErrUnauthorized when empty.
func (s Static) Token(context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("%w: %w", errs.ErrUnauthorized, errs.ErrNoToken)
	}
	return string(s), nil
}
