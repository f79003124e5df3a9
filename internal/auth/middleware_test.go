package auth

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/logger"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// identityEcho writes the identity the middleware attached.
func identityEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			httputil.WriteSuccess(w, http.StatusOK, "anonymous", nil)
			return
		}
		httputil.WriteSuccess(w, http.StatusOK, "ok", map[string]string{
			"userId": id.UserID,
			"role":   string(id.Role),
		})
	})
}

func TestAuthenticate_Rejections(t *testing.T) {
	m := newTestTokenManager(t, time.Hour)
	issued := time.Now().UTC().Add(-2 * time.Hour)
	at(m, issued)
	expired, err := m.Generate(Claims{ID: "u-1", Role: domain.RoleUser})
	require.NoError(t, err)
	at(m, time.Now().UTC())

	tests := []struct {
		name    string
		header  string
		message string
	}{
		{"no header", "", MsgMissingHeader},
		{"basic scheme", "Basic dXNlcjpwYXNz", MsgNotBearer},
		{"bearer without token", "Bearer ", MsgMissingToken},
		{"bearer only", "Bearer", MsgMissingToken},
		{"garbage token", "Bearer not-a-jwt", MsgInvalidToken},
		{"expired token", "Bearer " + expired, MsgInvalidToken},
	}

	h := Authenticate(m)(identityEcho())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			resp := decodeEnvelope(t, rec)
			assert.False(t, resp.Success)
			assert.Equal(t, "UNAUTHORIZED", resp.Error)
			assert.Equal(t, tt.message, resp.Message)
		})
	}
}

func TestAuthenticate_AttachesIdentityAndLogger(t *testing.T) {
	m := newTestTokenManager(t, time.Hour)
	token, err := m.Generate(Claims{ID: "u-42", Email: "john@x.com", Role: domain.RoleAdmin})
	require.NoError(t, err)

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	h := Authenticate(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, "u-42", id.UserID)
		assert.Equal(t, "john@x.com", id.Email)
		assert.Equal(t, domain.RoleAdmin, id.Role)
		assert.Equal(t, "u-42", logger.UserIDFromContext(r.Context()))

		logger.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	req.Header.Set("Authorization", "bearer "+token)
	req = req.WithContext(logger.NewContext(req.Context(), base))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, buf.String(), `"user_id":"u-42"`)
}

func TestOptionalAuthenticate(t *testing.T) {
	m := newTestTokenManager(t, time.Hour)
	token, err := m.Generate(Claims{ID: "u-1", Role: domain.RoleUser})
	require.NoError(t, err)

	h := OptionalAuthenticate(m)(identityEcho())

	for _, header := range []string{"", "Bearer garbage", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "anonymous", decodeEnvelope(t, rec).Message)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "ok", decodeEnvelope(t, rec).Message)
}

func TestRequireCapability(t *testing.T) {
	m := newTestTokenManager(t, time.Hour)
	h := Authenticate(m)(RequireCapability(domain.CapManageUsers)(identityEcho()))

	tests := []struct {
		role domain.Role
		want int
	}{
		{domain.RoleUser, http.StatusForbidden},
		{domain.RoleAdmin, http.StatusOK},
		{domain.RoleOwner, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			token, err := m.Generate(Claims{ID: "u-1", Role: tt.role})
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodGet, "/users", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusForbidden {
				resp := decodeEnvelope(t, rec)
				assert.Equal(t, "FORBIDDEN", resp.Error)
				assert.Equal(t, MsgForbidden, resp.Message)
			}
		})
	}
}

func TestRequireCapability_WithoutIdentity(t *testing.T) {
	h := RequireCapability(domain.CapAuthenticated)(identityEcho())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
