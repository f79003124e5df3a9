package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

// AuthHandler handles HTTP requests for auth endpoints.
type AuthHandler struct {
	service *service.UserService
	errs    *httputil.ErrorWriter
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.UserService, errs *httputil.ErrorWriter, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, errs: errs, logger: logger}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for user registration. Password
// strength is checked by the service so its message can name every unmet rule.
type RegisterRequest struct {
	FirstName    string `json:"firstName" validate:"required,max=50"`
	LastName     string `json:"lastName" validate:"required,max=50"`
	Email        string `json:"email" validate:"required,email,max=254"`
	Password     string `json:"password" validate:"required,max=128"`
	Phone        string `json:"phone" validate:"omitempty,max=20"`
	ProfileImage string `json:"profileImage" validate:"omitempty,url,max=2048"`
}

// Normalize trims the text fields. Passwords are kept as sent.
func (r *RegisterRequest) Normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = domain.NormalizeEmail(r.Email)
	r.Phone = domain.NormalizePhone(r.Phone)
	r.ProfileImage = strings.TrimSpace(r.ProfileImage)
}

// LoginRequest is the JSON request body for login. Identifier is an email
// address or a phone number.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required,max=254"`
	Password   string `json:"password" validate:"required,max=128"`
}

func (r *LoginRequest) Normalize() {
	r.Identifier = domain.NormalizeIdentifier(r.Identifier)
}

// ChangePasswordRequest is the JSON request body for changing the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required,max=128"`
	NewPassword     string `json:"newPassword" validate:"required,max=128"`
}

// --- Response types ---

// AuthResponse is the public profile of the account with its access token
// alongside the profile fields.
type AuthResponse struct {
	domain.PublicProfile
	Token string `json:"token"`
}

func newAuthResponse(res *service.AuthResult) AuthResponse {
	return AuthResponse{PublicProfile: res.User.Public(), Token: res.Token}
}

// --- Handlers ---

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req RegisterRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		h.errs.WriteError(w, r, err)
		return
	}

	res, err := h.service.Register(r.Context(), service.RegisterInput{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Password:     req.Password,
		Phone:        req.Phone,
		ProfileImage: req.ProfileImage,
	})
	if err != nil {
		h.errs.WriteError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, "Registration successful", newAuthResponse(res))
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req LoginRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		h.errs.WriteError(w, r, err)
		return
	}

	res, err := h.service.Login(r.Context(), service.LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
	})
	if err != nil {
		h.errs.WriteError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "Login successful", newAuthResponse(res))
}

// ChangePassword handles PATCH /auth/profile/password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.errs.WriteError(w, r, apperrors.Unauthorized(auth.MsgMissingHeader))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req ChangePasswordRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		h.errs.WriteError(w, r, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), actor.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		h.errs.WriteError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "Password changed", nil)
}
