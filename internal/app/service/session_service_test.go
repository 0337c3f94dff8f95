package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"miniblog/internal/common"
	"miniblog/internal/common/security"
	"miniblog/internal/domain/repository"
)

func newTestSessionService(t *testing.T) (*SessionService, *AuthService) {
	t.Helper()
	auth := NewAuthService(repository.NewMemoryUserRepository(), bcrypt.MinCost)
	tokens := security.NewTokenAuthority([]byte("test-secret"), time.Hour)
	sessions := NewSessionService(auth, repository.NewMemorySessionRepository(), tokens)
	return sessions, auth
}

func registerAlice(t *testing.T, auth *AuthService) {
	t.Helper()
	if _, err := auth.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("register failed: %v", err)
	}
}

func TestLoginIssuesResolvableSession(t *testing.T) {
	sessions, auth := newTestSessionService(t)
	registerAlice(t, auth)
	ctx := context.Background()

	result, err := sessions.Login(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.Token == "" || result.CSRFToken == "" {
		t.Fatalf("expected session and csrf tokens")
	}

	// Decode the token the way the verifier would to recover the claims.
	decoded, err := sessions.tokens.JWTAuth.Decode(result.Token)
	if err != nil {
		t.Fatalf("decoding issued token: %v", err)
	}
	claims, err := decoded.AsMap(ctx)
	if err != nil {
		t.Fatalf("claims: %v", err)
	}
	sid := claims["sid"].(string)
	userID := claims["user_id"].(string)

	user, sess, err := sessions.Resolve(ctx, userID, sid)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("resolved wrong user: %s", user.Username)
	}
	if sess.CSRFToken != result.CSRFToken {
		t.Fatalf("csrf token mismatch between login and resolve")
	}
}

func TestLoginFailureLeavesAnonymous(t *testing.T) {
	sessions, auth := newTestSessionService(t)
	registerAlice(t, auth)

	if _, err := sessions.Login(context.Background(), "alice", "wrong"); !errors.Is(err, common.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	sessions, auth := newTestSessionService(t)
	registerAlice(t, auth)
	ctx := context.Background()

	result, err := sessions.Login(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	decoded, _ := sessions.tokens.JWTAuth.Decode(result.Token)
	claims, _ := decoded.AsMap(ctx)
	sid := claims["sid"].(string)
	userID := claims["user_id"].(string)

	if err := sessions.Logout(ctx, sid); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, _, err := sessions.Resolve(ctx, userID, sid); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("revoked session still resolves, err=%v", err)
	}

	// Logging out again is a no-op.
	if err := sessions.Logout(ctx, sid); err != nil {
		t.Fatalf("repeat logout should be a no-op, got %v", err)
	}
	if err := sessions.Logout(ctx, ""); err != nil {
		t.Fatalf("anonymous logout should be a no-op, got %v", err)
	}
}

func TestVerifyCSRF(t *testing.T) {
	sessions, auth := newTestSessionService(t)
	registerAlice(t, auth)
	ctx := context.Background()

	result, err := sessions.Login(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	decoded, _ := sessions.tokens.JWTAuth.Decode(result.Token)
	claims, _ := decoded.AsMap(ctx)
	sid := claims["sid"].(string)

	if err := sessions.VerifyCSRF(ctx, sid, result.CSRFToken); err != nil {
		t.Fatalf("matching csrf token rejected: %v", err)
	}
	if err := sessions.VerifyCSRF(ctx, sid, "forged"); !errors.Is(err, common.ErrCSRFRejected) {
		t.Fatalf("expected csrf rejection, got %v", err)
	}
	if err := sessions.VerifyCSRF(ctx, sid, ""); !errors.Is(err, common.ErrCSRFRejected) {
		t.Fatalf("expected csrf rejection for empty token, got %v", err)
	}
	if err := sessions.VerifyCSRF(ctx, "", result.CSRFToken); !errors.Is(err, common.ErrCSRFRejected) {
		t.Fatalf("expected csrf rejection without session, got %v", err)
	}
}

func TestSafeRedirectPath(t *testing.T) {
	cases := []struct {
		name string
		next string
		want string
	}{
		{"relative path", "/posts/new", "/posts/new"},
		{"root", "/", "/"},
		{"empty", "", "/"},
		{"absolute url", "https://evil.example/phish", "/"},
		{"protocol relative", "//evil.example", "/"},
		{"no leading slash", "posts/new", "/"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SafeRedirectPath(tc.next, "/"); got != tc.want {
				t.Fatalf("SafeRedirectPath(%q) = %q, want %q", tc.next, got, tc.want)
			}
		})
	}
}
