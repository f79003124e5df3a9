package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/guard"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
)

// AccessHandler answers route guard questions for the storefront.
type AccessHandler struct {
	errs *httputil.ErrorWriter
}

// NewAccessHandler creates a new access HTTP handler.
func NewAccessHandler(errs *httputil.ErrorWriter) *AccessHandler {
	return &AccessHandler{errs: errs}
}

// Check handles GET /auth/access/{requirement}. It runs behind
// OptionalAuthenticate, so a missing or invalid token means an anonymous
// visitor rather than a 401.
func (h *AccessHandler) Check(w http.ResponseWriter, r *http.Request) {
	req, err := guard.ParseRequirement(chi.URLParam(r, "requirement"))
	if err != nil {
		h.errs.WriteError(w, r, apperrors.BadRequest(err.Error()))
		return
	}

	var state guard.State
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		state.Identity = &id
	}

	httputil.WriteSuccess(w, http.StatusOK, "", guard.Evaluate(req, state))
}
