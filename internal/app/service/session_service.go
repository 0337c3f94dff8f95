package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"miniblog/internal/common"
	"miniblog/internal/common/security"
	"miniblog/internal/domain/model"
	"miniblog/internal/domain/repository"
)

// SessionService establishes and tears down authenticated sessions. A
// session is a signed cookie token plus a server-side record; the record is
// what makes logout effective before the token expires.
type SessionService struct {
	auth     *AuthService
	sessions repository.SessionRepository
	tokens   *security.TokenAuthority
}

func NewSessionService(auth *AuthService, sessions repository.SessionRepository, tokens *security.TokenAuthority) *SessionService {
	return &SessionService{auth: auth, sessions: sessions, tokens: tokens}
}

// LoginResult carries everything the web layer needs to establish the
// session cookie and render forms.
type LoginResult struct {
	User      *model.User
	Token     string
	CSRFToken string
}

// Login verifies credentials and, on success, issues a session token and
// registers the session server-side. On failure the caller stays anonymous.
func (s *SessionService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	user, err := s.auth.Verify(ctx, identifier, password)
	if err != nil {
		return nil, err
	}

	sid := uuid.NewString()
	csrfToken, err := security.NewRandomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate csrf token: %w", err)
	}

	token, err := s.tokens.GenerateSessionToken(user.ID, sid)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	sess := repository.Session{UserID: user.ID, CSRFToken: csrfToken}
	if err := s.sessions.Create(ctx, sid, sess, s.tokens.TTL()); err != nil {
		return nil, fmt.Errorf("failed to register session: %w", err)
	}

	return &LoginResult{User: user, Token: token, CSRFToken: csrfToken}, nil
}

// Logout revokes the session record. Revoking an unknown or already-revoked
// session is a no-op.
func (s *SessionService) Logout(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	return s.sessions.Delete(ctx, sid)
}

// Resolve maps verified token claims to the user they encode. Any gap in the
// chain (revoked sid, deleted user) resolves to anonymous via ErrNotFound.
func (s *SessionService) Resolve(ctx context.Context, userID, sid string) (*model.User, *repository.Session, error) {
	sess, err := s.sessions.Find(ctx, sid)
	if err != nil {
		return nil, nil, err
	}
	if sess.UserID != userID {
		return nil, nil, common.ErrNotFound
	}

	user, err := s.auth.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Stale session for a user that no longer exists.
			_ = s.sessions.Delete(ctx, sid)
		}
		return nil, nil, err
	}
	user.HashedPassword = ""
	return user, sess, nil
}

// VerifyCSRF checks a submitted anti-forgery token against the one issued
// with the session.
func (s *SessionService) VerifyCSRF(ctx context.Context, sid, submitted string) error {
	if sid == "" || submitted == "" {
		return common.ErrCSRFRejected
	}
	sess, err := s.sessions.Find(ctx, sid)
	if err != nil {
		return common.ErrCSRFRejected
	}
	if sess.CSRFToken == "" || sess.CSRFToken != submitted {
		return common.ErrCSRFRejected
	}
	return nil
}

// SafeRedirectPath returns next only when it is a same-origin relative path;
// absolute and protocol-relative URLs fall back to the default landing page.
func SafeRedirectPath(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return fallback
	}
	return next
}
