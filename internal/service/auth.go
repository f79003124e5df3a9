package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// User-facing auth messages.
const (
	MsgInvalidCredentials = "Invalid credentials"
	MsgAccountDisabled    = "Account is disabled"
	MsgTooManyAttempts    = "Too many failed login attempts, try again later"
	MsgWrongPassword      = "Current password is incorrect"
	MsgSamePassword       = "New password must differ from the current password"
)

// decoyPassword is hashed once so that logins for unknown identifiers spend
// the same hashing time as real ones.
const decoyPassword = "decoy-Password-0"

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	FirstName    string
	LastName     string
	Email        string
	Password     string
	Phone        string
	ProfileImage string
}

// LoginInput holds the parameters for user login. Identifier is an email or
// a phone number.
type LoginInput struct {
	Identifier string
	Password   string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User  *domain.User
	Token string
}

// Register creates a new user account and issues a token for it.
//
// Existence checks and the insert are separate steps; the unique indexes of
// the store decide concurrent registrations and their conflict is returned
// unchanged.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	user := &domain.User{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		Phone:        input.Phone,
		ProfileImage: input.ProfileImage,
	}
	user.Normalize()

	taken, err := s.userRepo.ExistsByEmail(ctx, user.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, apperrors.Conflict(repository.MsgEmailTaken)
	}

	if user.Phone != "" {
		taken, err := s.userRepo.ExistsByPhone(ctx, user.Phone)
		if err != nil {
			return nil, fmt.Errorf("check phone: %w", err)
		}
		if taken {
			return nil, apperrors.Conflict(repository.MsgPhoneTaken)
		}
	}

	if msg := domain.PasswordStrengthMessage(input.Password); msg != "" {
		return nil, apperrors.BadRequest(msg)
	}

	now := time.Now().UTC()
	user.ID = uuid.New().String()
	user.Role = domain.RoleUser
	user.Status = domain.StatusActive
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := user.SetPassword(s.hasher, input.Password); err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Generate(auth.ClaimsFor(user))
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", user.ID))

	user.PasswordHash = ""
	return &AuthResult{User: user, Token: token}, nil
}

// Login authenticates a user by email or phone and issues a token. Unknown
// identifiers and wrong passwords produce the same error.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	identifier := domain.NormalizeIdentifier(input.Identifier)

	if s.throttle != nil {
		if ok, retryAfter := s.throttle.Allow(ctx, identifier); !ok {
			s.logger.WarnContext(ctx, "login rejected by throttle",
				slog.Duration("retry_after", retryAfter),
			)
			return nil, apperrors.TooManyRequests(MsgTooManyAttempts)
		}
	}

	user, err := s.userRepo.FindByEmailOrPhoneWithPassword(ctx, identifier)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("find user: %w", err)
		}
		s.hasher.Verify(s.decoy(), input.Password)
		s.recordFailure(ctx, identifier)
		return nil, apperrors.Unauthorized(MsgInvalidCredentials)
	}

	if user.IsDisabled() {
		return nil, apperrors.Unauthorized(MsgAccountDisabled)
	}

	if !s.hasher.Verify(user.PasswordHash, input.Password) {
		s.recordFailure(ctx, identifier)
		return nil, apperrors.Unauthorized(MsgInvalidCredentials)
	}
	user.PasswordHash = ""

	if s.throttle != nil {
		s.throttle.Reset(ctx, identifier)
	}

	token, err := s.tokens.Generate(auth.ClaimsFor(user))
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))

	return &AuthResult{User: user, Token: token}, nil
}

// ChangePassword replaces the password of userID after verifying the current
// one.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.userRepo.FindByIDWithPassword(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	if !s.hasher.Verify(user.PasswordHash, current) {
		return apperrors.BadRequest(MsgWrongPassword)
	}
	if current == next {
		return apperrors.BadRequest(MsgSamePassword)
	}
	if msg := domain.PasswordStrengthMessage(next); msg != "" {
		return apperrors.BadRequest(msg)
	}

	if err := user.SetPassword(s.hasher, next); err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	s.logger.InfoContext(ctx, "password changed", slog.String("user_id", user.ID))
	return nil
}

func (s *UserService) recordFailure(ctx context.Context, identifier string) {
	if s.throttle != nil {
		s.throttle.RecordFailure(ctx, identifier)
	}
}

func (s *UserService) decoy() string {
	s.decoyOnce.Do(func() {
		hash, err := s.hasher.Hash(decoyPassword)
		if err != nil {
			s.logger.Error("failed to build decoy password hash", slog.String("error", err.Error()))
			return
		}
		s.decoyHash = hash
	})
	return s.decoyHash
}
