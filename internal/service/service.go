package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/repository"
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(hash, plaintext string) bool
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Generate(c auth.Claims) (string, error)
}

// LoginThrottle tracks failed logins per identifier.
type LoginThrottle interface {
	Allow(ctx context.Context, identifier string) (bool, time.Duration)
	RecordFailure(ctx context.Context, identifier string)
	Reset(ctx context.Context, identifier string)
}

// UserService implements the business logic for user and auth operations.
type UserService struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
	producer event.Publisher
	throttle LoginThrottle
	logger   *slog.Logger

	decoyOnce sync.Once
	decoyHash string
}

// NewUserService creates a new user service. throttle may be nil, in which
// case failed logins are not limited.
func NewUserService(
	userRepo repository.UserRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	producer event.Publisher,
	throttle LoginThrottle,
	logger *slog.Logger,
) *UserService {
	if producer == nil {
		producer = event.Noop{}
	}
	return &UserService{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		producer: producer,
		throttle: throttle,
		logger:   logger,
	}
}
