package auth

import (
	"context"
	"errors"
	"testing"

	fbauth "firebase.google.com/go/v4/auth"

	"github.com/crystaldolphin/pantrychef/internal/schema"
)

type fakeClient struct {
	tokens  map[string]*fbauth.Token
	users   map[string]*fbauth.UserRecord
	userErr error
}

func (f *fakeClient) VerifyIDToken(_ context.Context, tok string) (*fbauth.Token, error) {
	if t, ok := f.tokens[tok]; ok {
		return t, nil
	}
	return nil, errors.New("ID token has expired")
}

func (f *fakeClient) GetUser(_ context.Context, uid string) (*fbauth.UserRecord, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	if u, ok := f.users[uid]; ok {
		return u, nil
	}
	return nil, errors.New("lookup failed")
}

func TestFirebase_VerifyToken(t *testing.T) {
	client := &fakeClient{
		tokens: map[string]*fbauth.Token{
			"good":    {UID: "u1"},
			"claimed": {UID: "u2", Claims: map[string]any{"name": "Ada"}},
		},
		users: map[string]*fbauth.UserRecord{
			"u1": {UserInfo: &fbauth.UserInfo{UID: "u1", DisplayName: "Grace"}},
		},
	}
	f := &Firebase{client: client}
	ctx := context.Background()

	id, err := f.VerifyToken(ctx, "Bearer good")
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if id.UID != "u1" || id.DisplayName != "Grace" {
		t.Errorf("got %+v", id)
	}

	id, err = f.VerifyToken(ctx, "claimed")
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if id.DisplayName != "Ada" {
		t.Errorf("expected name from claims, got %q", id.DisplayName)
	}

	if _, err := f.VerifyToken(ctx, "expired"); !IsInvalidToken(err) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := f.VerifyToken(ctx, "  "); !errors.Is(err, schema.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for blank token, got %v", err)
	}
}

func TestFirebase_LookupFailureKeepsIdentity(t *testing.T) {
	client := &fakeClient{
		tokens:  map[string]*fbauth.Token{"good": {UID: "u1"}},
		userErr: errors.New("backend unavailable"),
	}
	id, err := (&Firebase{client: client}).VerifyToken(context.Background(), "good")
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if id.UID != "u1" || id.DisplayName != "" {
		t.Errorf("got %+v", id)
	}
}

func TestStatic_VerifyToken(t *testing.T) {
	s := NewStatic(map[string]schema.Identity{"dev": {UID: "dev", DisplayName: "Dev"}})
	id, err := s.VerifyToken(context.Background(), "Bearer dev")
	if err != nil || id.DisplayName != "Dev" {
		t.Fatalf("got %+v, %v", id, err)
	}
	if _, err := s.VerifyToken(context.Background(), "other"); !IsInvalidToken(err) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}
