package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/pagination"
)

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) user(args mock.Arguments) (*domain.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return m.user(m.Called(ctx, id))
}

func (m *mockUserRepository) FindByIDWithPassword(ctx context.Context, id string) (*domain.User, error) {
	return m.user(m.Called(ctx, id))
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.user(m.Called(ctx, email))
}

func (m *mockUserRepository) FindByEmailWithPassword(ctx context.Context, email string) (*domain.User, error) {
	return m.user(m.Called(ctx, email))
}

func (m *mockUserRepository) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return m.user(m.Called(ctx, phone))
}

func (m *mockUserRepository) FindByPhoneWithPassword(ctx context.Context, phone string) (*domain.User, error) {
	return m.user(m.Called(ctx, phone))
}

func (m *mockUserRepository) FindByEmailOrPhone(ctx context.Context, identifier string) (*domain.User, error) {
	return m.user(m.Called(ctx, identifier))
}

func (m *mockUserRepository) FindByEmailOrPhoneWithPassword(ctx context.Context, identifier string) (*domain.User, error) {
	return m.user(m.Called(ctx, identifier))
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	args := m.Called(ctx, phone)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepository) List(ctx context.Context, params pagination.Params) ([]domain.User, int, error) {
	args := m.Called(ctx, params)
	users, _ := args.Get(0).([]domain.User)
	return users, args.Int(1), args.Error(2)
}

// --- Mock Event Publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockPublisher) PublishUserUpdated(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockPublisher) PublishUserDeleted(ctx context.Context, userID, deletedBy string) error {
	return m.Called(ctx, userID, deletedBy).Error(0)
}

// --- Fake Throttle ---

type fakeThrottle struct {
	blocked  bool
	failures map[string]int
	resets   map[string]int
}

func newFakeThrottle() *fakeThrottle {
	return &fakeThrottle{failures: map[string]int{}, resets: map[string]int{}}
}

func (f *fakeThrottle) Allow(context.Context, string) (bool, time.Duration) {
	if f.blocked {
		return false, time.Minute
	}
	return true, 0
}

func (f *fakeThrottle) RecordFailure(_ context.Context, identifier string) {
	f.failures[identifier]++
}

func (f *fakeThrottle) Reset(_ context.Context, identifier string) {
	f.resets[identifier]++
}

// --- Test Helpers ---

const testSecret = "test-secret-key-for-testing-0123456789"

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHasher() *auth.PasswordHasher {
	return auth.NewPasswordHasher(auth.Argon2Params{Time: 1, MemoryKiB: 64, Threads: 1})
}

func newTestTokenManager(t *testing.T) *auth.TokenManager {
	t.Helper()
	tm, err := auth.NewTokenManager(testSecret, time.Hour, "storefront")
	require.NoError(t, err)
	return tm
}

type testDeps struct {
	repo      *mockUserRepository
	publisher *mockPublisher
	throttle  *fakeThrottle
	tokens    *auth.TokenManager
	hasher    *auth.PasswordHasher
}

func newTestService(t *testing.T) (*UserService, *testDeps) {
	t.Helper()
	d := &testDeps{
		repo:      new(mockUserRepository),
		publisher: new(mockPublisher),
		throttle:  newFakeThrottle(),
		tokens:    newTestTokenManager(t),
		hasher:    newTestHasher(),
	}
	svc := NewUserService(d.repo, d.hasher, d.tokens, d.publisher, d.throttle, newTestLogger())
	return svc, d
}

// storedUser returns a persisted account with password as its password.
func storedUser(t *testing.T, h *auth.PasswordHasher, role domain.Role, password string) *domain.User {
	t.Helper()
	now := time.Now().UTC()
	u := &domain.User{
		ID:        "11111111-1111-4111-8111-111111111111",
		FirstName: "John",
		LastName:  "Doe",
		Email:     "john@x.com",
		Role:      role,
		Status:    domain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, u.SetPassword(h, password))
	return u
}
