// Package auth verifies caller bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"

	"github.com/crystaldolphin/pantrychef/internal/schema"
)

// tokenVerifier is the subset of *fbauth.Client used here.
type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
	GetUser(ctx context.Context, uid string) (*fbauth.UserRecord, error)
}

// Firebase verifies Firebase ID tokens and resolves the user's display name.
type Firebase struct {
	client tokenVerifier
}

// NewFirebase builds a verifier from an already initialised Firebase app.
func NewFirebase(ctx context.Context, app *firebase.App) (*Firebase, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firebase auth client: %w", err)
	}
	return &Firebase{client: client}, nil
}

func (f *Firebase) VerifyToken(ctx context.Context, token string) (schema.Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return schema.Identity{}, schema.ErrInvalidToken
	}

	decoded, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return schema.Identity{}, fmt.Errorf("%w: %v", schema.ErrInvalidToken, err)
	}

	id := schema.Identity{UID: decoded.UID}
	if name, ok := decoded.Claims["name"].(string); ok {
		id.DisplayName = name
	}
	if id.DisplayName != "" {
		return id, nil
	}

	user, err := f.client.GetUser(ctx, decoded.UID)
	if err != nil {
		if fbauth.IsUserNotFound(err) {
			return schema.Identity{}, fmt.Errorf("%w: user %s not found", schema.ErrInvalidToken, decoded.UID)
		}
		// The token itself is valid; carry on without a name.
		slog.Warn("failed to look up user", "uid", decoded.UID, "err", err)
		return id, nil
	}
	id.DisplayName = user.DisplayName
	return id, nil
}

// Static accepts a fixed set of tokens. It backs local development when no
// Firebase project is configured.
type Static struct {
	tokens map[string]schema.Identity
}

func NewStatic(tokens map[string]schema.Identity) *Static {
	if tokens == nil {
		tokens = map[string]schema.Identity{}
	}
	return &Static{tokens: tokens}
}

func (s *Static) VerifyToken(_ context.Context, token string) (schema.Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	id, ok := s.tokens[token]
	if !ok || token == "" {
		return schema.Identity{}, schema.ErrInvalidToken
	}
	return id, nil
}

// IsInvalidToken reports whether err is a token rejection rather than an
// infrastructure failure.
func IsInvalidToken(err error) bool {
	return errors.Is(err, schema.ErrInvalidToken)
}
