package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// MsgForbidden is returned when the actor may not act on the target account.
const MsgForbidden = auth.MsgForbidden

// UpdateProfileInput holds the parameters for updating a profile. Nil fields
// are left unchanged.
type UpdateProfileInput struct {
	FirstName    *string
	LastName     *string
	Email        *string
	Phone        *string
	ProfileImage *string
	Role         *string
	Status       *string
}

// authorize allows actors to act on themselves, and on others only with
// manage_users over an account that does not outrank them.
func authorize(actor auth.Identity, target *domain.User) error {
	if actor.UserID == target.ID {
		return nil
	}
	if !domain.CanManage(actor.Role, target.Role) {
		return apperrors.Forbidden(MsgForbidden)
	}
	return nil
}

// loadTarget fetches the account actor wants to act on. Callers without
// manage_users are refused before the lookup so they cannot discover which ids exist.
func (s *UserService) loadTarget(ctx context.Context, actor auth.Identity, id string) (*domain.User, error) {
	if id != actor.UserID && !actor.Can(domain.CapManageUsers) {
		return nil, apperrors.Forbidden(MsgForbidden)
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	if err := authorize(actor, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetProfile returns the account id as seen by actor.
func (s *UserService) GetProfile(ctx context.Context, actor auth.Identity, id string) (*domain.User, error) {
	return s.loadTarget(ctx, actor, id)
}

// UpdateProfile applies input to the account id. Changing status needs
// manage_users and changing role needs assign_roles.
func (s *UserService) UpdateProfile(ctx context.Context, actor auth.Identity, id string, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.loadTarget(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.ProfileImage != nil {
		user.ProfileImage = *input.ProfileImage
	}

	if input.Email != nil {
		email := domain.NormalizeEmail(*input.Email)
		if email != user.Email {
			taken, err := s.userRepo.ExistsByEmail(ctx, email)
			if err != nil {
				return nil, fmt.Errorf("check email: %w", err)
			}
			if taken {
				return nil, apperrors.Conflict(repository.MsgEmailTaken)
			}
			user.Email = email
			user.EmailVerifiedAt = nil
		}
	}

	if input.Phone != nil {
		phone := domain.NormalizePhone(*input.Phone)
		if phone != "" && phone != user.Phone {
			taken, err := s.userRepo.ExistsByPhone(ctx, phone)
			if err != nil {
				return nil, fmt.Errorf("check phone: %w", err)
			}
			if taken {
				return nil, apperrors.Conflict(repository.MsgPhoneTaken)
			}
		}
		user.Phone = phone
	}

	if input.Status != nil {
		status, err := domain.ParseStatus(*input.Status)
		if err != nil {
			return nil, apperrors.BadRequest("invalid status: " + *input.Status)
		}
		if status != user.Status {
			if !actor.Can(domain.CapManageUsers) {
				return nil, apperrors.Forbidden(MsgForbidden)
			}
			user.Status = status
		}
	}

	if input.Role != nil {
		role, err := domain.ParseRole(*input.Role)
		if err != nil {
			return nil, apperrors.BadRequest("invalid role: " + *input.Role)
		}
		if role != user.Role {
			if !actor.Can(domain.CapAssignRoles) || role.Outranks(actor.Role) {
				return nil, apperrors.Forbidden(MsgForbidden)
			}
			user.Role = role
		}
	}

	user.Normalize()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if err := s.producer.PublishUserUpdated(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.updated event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user profile updated",
		slog.String("user_id", user.ID),
		slog.String("actor_id", actor.UserID),
	)

	return user, nil
}

// DeleteUser removes the account id.
func (s *UserService) DeleteUser(ctx context.Context, actor auth.Identity, id string) error {
	user, err := s.loadTarget(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.userRepo.Delete(ctx, user.ID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if err := s.producer.PublishUserDeleted(ctx, user.ID, actor.UserID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.deleted event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user deleted",
		slog.String("user_id", user.ID),
		slog.String("actor_id", actor.UserID),
	)
	return nil
}

// ListUsers returns one page of accounts. It requires manage_users.
func (s *UserService) ListUsers(ctx context.Context, actor auth.Identity, params pagination.Params) ([]domain.User, int, error) {
	if !actor.Can(domain.CapManageUsers) {
		return nil, 0, apperrors.Forbidden(MsgForbidden)
	}

	users, total, err := s.userRepo.List(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}
