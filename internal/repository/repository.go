package repository

import (
	"context"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// Conflict messages shared by every backend.
const (
	MsgEmailTaken = "Email is already registered"
	MsgPhoneTaken = "Phone number is already registered"
)

// UserRepository defines the interface for user persistence operations.
//
// Lookups normalize their identifier the same way writes do. The plain Find
// methods never load the password hash; the WithPassword variants do. Missing
// users are reported as apperrors.ErrNotFound.
type UserRepository interface {
	// Create inserts a new user. A duplicate email or phone is a conflict.
	Create(ctx context.Context, user *domain.User) error

	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByIDWithPassword(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByEmailWithPassword(ctx context.Context, email string) (*domain.User, error)
	FindByPhone(ctx context.Context, phone string) (*domain.User, error)
	FindByPhoneWithPassword(ctx context.Context, phone string) (*domain.User, error)

	// FindByEmailOrPhone matches on email when identifier contains an "@",
	// otherwise on phone.
	FindByEmailOrPhone(ctx context.Context, identifier string) (*domain.User, error)
	FindByEmailOrPhoneWithPassword(ctx context.Context, identifier string) (*domain.User, error)

	// Update persists the mutable fields of user. An empty PasswordHash leaves
	// the stored hash untouched.
	Update(ctx context.Context, user *domain.User) error

	// Delete removes a user by identifier.
	Delete(ctx context.Context, id string) error

	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)

	// List returns one page of users ordered by creation time, newest first,
	// together with the total number of users.
	List(ctx context.Context, params pagination.Params) ([]domain.User, int, error)
}

// DuplicateError converts a unique index violation mentioning key into the
// matching conflict error. Any field other than phone is reported as email.
func DuplicateError(key string) *apperrors.AppError {
	if key == "phone" {
		return apperrors.Conflict(MsgPhoneTaken)
	}
	return apperrors.Conflict(MsgEmailTaken)
}
