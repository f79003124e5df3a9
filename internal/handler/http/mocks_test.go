package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/pagination"
)

// ============================================================================
// Mock Repository
// ============================================================================

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
	return m.Called(ctx, user).Error(0)
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
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
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

// ============================================================================
// Test Helpers
// ============================================================================

const (
	testSecret = "test-secret-key-for-testing-0123456789"
	testIssuer = "storefront"
)

type testEnv struct {
	router http.Handler
	repo   *mockUserRepository
	tokens *auth.TokenManager
	hasher *auth.PasswordHasher
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithConfig(t, RouterConfig{})
}

func newTestEnvWithConfig(t *testing.T, cfg RouterConfig) *testEnv {
	t.Helper()

	tokens, err := auth.NewTokenManager(testSecret, time.Hour, testIssuer)
	require.NoError(t, err)

	env := &testEnv{
		repo:   new(mockUserRepository),
		tokens: tokens,
		hasher: auth.NewPasswordHasher(auth.Argon2Params{Time: 1, MemoryKiB: 64, Threads: 1}),
	}
	svc := service.NewUserService(env.repo, env.hasher, env.tokens, nil, nil, testLogger())
	env.router = NewRouter(svc, env.tokens, health.NewHandler(), testLogger(), cfg)
	return env
}

// do sends a request through the router. A non-empty body is sent as JSON.
func (e *testEnv) do(method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) tokenFor(t *testing.T, u *domain.User) string {
	t.Helper()
	token, err := e.tokens.Generate(auth.ClaimsFor(u))
	require.NoError(t, err)
	return token
}

func jsonBody(t *testing.T, v any) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(v))
	return buf.String()
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// dataMap returns the envelope data as a JSON object.
func dataMap(t *testing.T, resp httputil.Response) map[string]any {
	t.Helper()
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok, "expected object data, got %T", resp.Data)
	return data
}

func newAccount(t *testing.T, h *auth.PasswordHasher, id string, role domain.Role) *domain.User {
	t.Helper()
	now := time.Now().UTC()
	u := &domain.User{
		ID:        id,
		FirstName: "John",
		LastName:  "Doe",
		Email:     "john@x.com",
		Role:      role,
		Status:    domain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, u.SetPassword(h, "Password123"))
	return u
}

const (
	userID  = "11111111-1111-4111-8111-111111111111"
	adminID = "22222222-2222-4222-8222-222222222222"
	otherID = "33333333-3333-4333-8333-333333333333"
)
