package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/logger"
)

// Rejection messages returned by Authenticate.
const (
	MsgMissingHeader = "Authorization header is required"
	MsgNotBearer     = "Authorization header must use the Bearer scheme"
	MsgMissingToken  = "Bearer token is required"
	MsgInvalidToken  = "Invalid or expired token"
	MsgForbidden     = "You do not have permission to perform this action"
)

// TokenVerifier verifies a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// bearerToken extracts the token from an Authorization header value. The
// returned message is empty on success.
func bearerToken(header string) (string, string) {
	if header == "" {
		return "", MsgMissingHeader
	}
	scheme, token, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return "", MsgNotBearer
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", MsgMissingToken
	}
	return token, ""
}

func withVerifiedIdentity(r *http.Request, claims *Claims) *http.Request {
	id := IdentityFromClaims(claims)
	ctx := WithIdentity(r.Context(), id)
	ctx = logger.WithUserID(ctx, id.UserID)
	ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(slog.String("user_id", id.UserID)))
	return r.WithContext(ctx)
}

// Authenticate rejects requests without a valid bearer token with 401 and
// otherwise stores the verified Identity in the request context.
func Authenticate(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, msg := bearerToken(r.Header.Get("Authorization"))
			if msg != "" {
				httputil.WriteFailure(w, r, http.StatusUnauthorized, "UNAUTHORIZED", msg)
				return
			}

			claims, err := tokens.Verify(token)
			if err != nil {
				logger.FromContext(r.Context()).DebugContext(r.Context(), "token rejected",
					slog.String("error", err.Error()),
				)
				httputil.WriteFailure(w, r, http.StatusUnauthorized, "UNAUTHORIZED", MsgInvalidToken)
				return
			}

			next.ServeHTTP(w, withVerifiedIdentity(r, claims))
		})
	}
}

// OptionalAuthenticate attaches an Identity when a valid bearer token is
// present and lets every request through.
func OptionalAuthenticate(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, msg := bearerToken(r.Header.Get("Authorization")); msg == "" {
				if claims, err := tokens.Verify(token); err == nil {
					r = withVerifiedIdentity(r, claims)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireCapability rejects callers whose role lacks c with 403. Mount it
// after Authenticate.
func RequireCapability(c domain.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				httputil.WriteFailure(w, r, http.StatusUnauthorized, "UNAUTHORIZED", MsgMissingHeader)
				return
			}
			if !id.Can(c) {
				httputil.WriteFailure(w, r, http.StatusForbidden, "FORBIDDEN", MsgForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
