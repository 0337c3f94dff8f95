package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"github.com/google/uuid"

	"miniblog/internal/common"
	"miniblog/internal/common/security"
	"miniblog/internal/domain/model"
	"miniblog/internal/domain/repository"
)

// AuthService owns identity: registration and credential verification.
type AuthService struct {
	userRepo   repository.UserRepository
	bcryptCost int
}

func NewAuthService(userRepo repository.UserRepository, bcryptCost int) *AuthService {
	return &AuthService{userRepo: userRepo, bcryptCost: bcryptCost}
}

type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

func (r RegisterRequest) validate() map[string]string {
	fields := map[string]string{}
	if len(r.Username) < 4 || len(r.Username) > 64 {
		fields["username"] = "username must be 4-64 characters"
	}
	if _, err := mail.ParseAddress(r.Email); err != nil || r.Email == "" {
		fields["email"] = "email address is not valid"
	}
	if len(r.Password) < 6 {
		fields["password"] = "password must be at least 6 characters"
	}
	if r.Password != r.PasswordConfirm {
		fields["password_confirm"] = "passwords do not match"
	}
	return fields
}

// Register creates a new user. Username and email are globally unique;
// duplicates come back as distinct errors so the form can mark the right
// field. The plaintext password never reaches the repository.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	if fields := req.validate(); len(fields) > 0 {
		return nil, common.NewValidationError(fields)
	}

	// Pre-check both fields for friendly errors; the unique constraints in
	// the store remain the authority under concurrent registration.
	if _, err := s.userRepo.FindByUsername(ctx, req.Username); err == nil {
		return nil, common.ErrDuplicateUsername
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("checking username: %w", err)
	}
	if _, err := s.userRepo.FindByEmail(ctx, req.Email); err == nil {
		return nil, common.ErrDuplicateEmail
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("checking email: %w", err)
	}

	hashedPassword, err := security.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:             uuid.NewString(),
		Username:       req.Username,
		Email:          req.Email,
		HashedPassword: hashedPassword,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user.HashedPassword = "" // Clear password before returning
	return user, nil
}

// Verify matches the identifier against usernames first, then emails, and
// compares the password against the stored hash. Unknown identifier and
// wrong password are indistinguishable to the caller.
func (s *AuthService) Verify(ctx context.Context, identifier, password string) (*model.User, error) {
	if identifier == "" || password == "" {
		return nil, common.ErrInvalidCredentials
	}

	user, err := s.userRepo.FindByUsername(ctx, identifier)
	if errors.Is(err, common.ErrNotFound) {
		user, err = s.userRepo.FindByEmail(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !security.CheckPasswordHash(password, user.HashedPassword) {
		return nil, common.ErrInvalidCredentials
	}

	user.HashedPassword = ""
	return user, nil
}
