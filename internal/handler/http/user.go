package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/pkg/validator"
)

// UserHandler handles HTTP requests for profile and user management endpoints.
type UserHandler struct {
	service *service.UserService
	errs    *httputil.ErrorWriter
	logger  *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(svc *service.UserService, errs *httputil.ErrorWriter, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: svc, errs: errs, logger: logger}
}

// UpdateProfileRequest is the JSON request body for updating a profile.
// Omitted fields are left unchanged; an empty phone or profile image clears
// it. Names and email cannot be cleared.
type UpdateProfileRequest struct {
	FirstName    *string `json:"firstName" validate:"omitnil,min=1,max=50"`
	LastName     *string `json:"lastName" validate:"omitnil,min=1,max=50"`
	Email        *string `json:"email" validate:"omitnil,email,max=254"`
	Phone        *string `json:"phone" validate:"omitempty,max=20"`
	ProfileImage *string `json:"profileImage" validate:"omitempty,max=2048"`
	Role         *string `json:"role"`
	Status       *string `json:"status"`
}

// Normalize trims every field that was sent.
func (r *UpdateProfileRequest) Normalize() {
	normalizeField(r.FirstName, strings.TrimSpace)
	normalizeField(r.LastName, strings.TrimSpace)
	normalizeField(r.Email, domain.NormalizeEmail)
	normalizeField(r.Phone, domain.NormalizePhone)
	normalizeField(r.ProfileImage, strings.TrimSpace)
	normalizeField(r.Role, strings.TrimSpace)
	normalizeField(r.Status, strings.TrimSpace)
}

func normalizeField(s *string, fn func(string) string) {
	if s != nil {
		*s = fn(*s)
	}
}

// target resolves the actor and the account the request addresses: the {id}
// URL parameter when present, the actor otherwise.
func (h *UserHandler) target(r *http.Request) (auth.Identity, string, error) {
	actor, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return auth.Identity{}, "", apperrors.Unauthorized(auth.MsgMissingHeader)
	}

	param := chi.URLParam(r, "id")
	if param == "" {
		return actor, actor.UserID, nil
	}
	id, err := httputil.ParseUUID(param)
	if err != nil {
		return auth.Identity{}, "", apperrors.BadRequest("invalid user id")
	}
	return actor, id.String(), nil
}

// GetProfile handles GET /auth/profile and GET /auth/profile/{id}
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	actor, id, err := h.target(r)
	if err != nil {
		h.errs.WriteError(w, r, err)
		return
	}

	user, err := h.service.GetProfile(r.Context(), actor, id)
	if err != nil {
		h.errs.WriteError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "", user.Public())
}

// UpdateProfile handles PATCH /auth/profile/update and PATCH /auth/profile/update/{id}
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, id, err := h.target(r)
	if err != nil {
		h.errs.WriteError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req UpdateProfileRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		h.errs.WriteError(w, r, err)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), actor, id, service.UpdateProfileInput{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        req.Phone,
		ProfileImage: req.ProfileImage,
		Role:         req.Role,
		Status:       req.Status,
	})
	if err != nil {
		h.errs.WriteError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "Profile updated", user.Public())
}

// DeleteProfile handles DELETE /auth/profile/delete and DELETE /auth/profile/delete/{id}
func (h *UserHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	actor, id, err := h.target(r)
	if err != nil {
		h.errs.WriteError(w, r, err)
		return
	}

	if err := h.service.DeleteUser(r.Context(), actor, id); err != nil {
		h.errs.WriteError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "Account deleted", nil)
}

// ListUsers handles GET /users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.errs.WriteError(w, r, apperrors.Unauthorized(auth.MsgMissingHeader))
		return
	}

	params := pagination.FromRequest(r)
	users, total, err := h.service.ListUsers(r.Context(), actor, params)
	if err != nil {
		h.errs.WriteError(w, r, err)
		return
	}

	profiles := make([]domain.PublicProfile, 0, len(users))
	for i := range users {
		profiles = append(profiles, users[i].Public())
	}

	httputil.WriteSuccess(w, http.StatusOK, "", pagination.NewResult(profiles, total, params))
}
