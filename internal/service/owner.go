package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// EnsureOwner makes the account with input.Email an active owner, creating it
// when it does not exist. Registration only creates user accounts, so this is
// how the first owner comes to be. An existing account keeps its password.
// created reports whether a new account was inserted.
func (s *UserService) EnsureOwner(ctx context.Context, input RegisterInput) (user *domain.User, created bool, err error) {
	email := domain.NormalizeEmail(input.Email)

	user, err = s.userRepo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if user.Role == domain.RoleOwner && user.Status == domain.StatusActive {
			return user, false, nil
		}
		user.Role = domain.RoleOwner
		user.Status = domain.StatusActive
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, false, fmt.Errorf("promote owner: %w", err)
		}
		if err := s.producer.PublishUserUpdated(ctx, user); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish user.updated event",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
		s.logger.InfoContext(ctx, "account promoted to owner", slog.String("user_id", user.ID))
		return user, false, nil

	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, false, fmt.Errorf("find owner: %w", err)
	}

	if msg := domain.PasswordStrengthMessage(input.Password); msg != "" {
		return nil, false, apperrors.BadRequest(msg)
	}

	now := time.Now().UTC()
	user = &domain.User{
		ID:           uuid.New().String(),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        email,
		Phone:        input.Phone,
		ProfileImage: input.ProfileImage,
		Role:         domain.RoleOwner,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	user.Normalize()
	if err := user.SetPassword(s.hasher, input.Password); err != nil {
		return nil, false, err
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, false, fmt.Errorf("create owner: %w", err)
	}
	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "owner account created", slog.String("user_id", user.ID))

	user.PasswordHash = ""
	return user, true, nil
}
