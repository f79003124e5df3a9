package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
)

const testSecret = "test-secret-key-for-testing-only-0123456789"

func newTestTokenManager(t *testing.T, ttl time.Duration) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(testSecret, ttl, "storefront")
	require.NoError(t, err)
	return m
}

// at pins the manager's clock.
func at(m *TokenManager, ts time.Time) {
	m.now = func() time.Time { return ts }
}

func TestNewTokenManager_Validation(t *testing.T) {
	_, err := NewTokenManager("", time.Hour, "storefront")
	assert.Error(t, err)

	_, err = NewTokenManager(testSecret, 0, "storefront")
	assert.Error(t, err)
}

func TestTokenManager_RoundTrip(t *testing.T) {
	m := newTestTokenManager(t, time.Hour)

	in := Claims{ID: "u-1", Email: "john@x.com", Role: domain.RoleAdmin}
	token, err := m.Generate(in)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."))

	out, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Email, out.Email)
	assert.Equal(t, in.Role, out.Role)
	assert.Equal(t, "u-1", out.Subject)
	assert.Equal(t, "storefront", out.Issuer)
	require.NotNil(t, out.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), out.ExpiresAt.Time, 5*time.Second)
}

func TestTokenManager_Expired(t *testing.T) {
	m := newTestTokenManager(t, time.Hour)
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	at(m, issued)
	token, err := m.Generate(Claims{ID: "u-1", Email: "john@x.com", Role: domain.RoleUser})
	require.NoError(t, err)

	at(m, issued.Add(59*time.Minute))
	_, err = m.Verify(token)
	require.NoError(t, err, "still valid inside the ttl")

	at(m, issued.Add(61*time.Minute))
	_, err = m.Verify(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	m := newTestTokenManager(t, time.Hour)
	other, err := NewTokenManager("a-completely-different-secret-value", time.Hour, "storefront")
	require.NoError(t, err)

	token, err := other.Generate(Claims{ID: "u-1", Role: domain.RoleUser})
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_WrongIssuer(t *testing.T) {
	m := newTestTokenManager(t, time.Hour)
	other, err := NewTokenManager(testSecret, time.Hour, "someone-else")
	require.NoError(t, err)

	token, err := other.Generate(Claims{ID: "u-1", Role: domain.RoleUser})
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsOtherAlgorithms(t *testing.T) {
	m := newTestTokenManager(t, time.Hour)
	claims := &Claims{
		ID:   "u-1",
		Role: domain.RoleOwner,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "storefront",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Verify(none)
	assert.ErrorIs(t, err, ErrInvalidToken)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = m.Verify(hs512)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsMissingExpiry(t *testing.T) {
	m := newTestTokenManager(t, time.Hour)
	claims := &Claims{ID: "u-1", RegisteredClaims: jwt.RegisteredClaims{Issuer: "storefront"}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_Malformed(t *testing.T) {
	m := newTestTokenManager(t, time.Hour)
	for _, token := range []string{"", "abc", "a.b.c", "Bearer x.y.z"} {
		_, err := m.Verify(token)
		assert.True(t, errors.Is(err, ErrInvalidToken), "token %q: %v", token, err)
	}
}

func TestDecode(t *testing.T) {
	m := newTestTokenManager(t, time.Hour)
	token, err := m.Generate(Claims{ID: "u-7", Email: "jane@x.com", Role: domain.RoleUser})
	require.NoError(t, err)

	// Tamper with the signature: Decode still reads the claims.
	tampered := token[:strings.LastIndex(token, ".")+1] + "invalidsig"
	c := Decode(tampered)
	require.NotNil(t, c)
	assert.Equal(t, "u-7", c.ID)
	assert.Equal(t, "jane@x.com", c.Email)

	_, err = m.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)

	assert.Nil(t, Decode("not-a-token"))
}
