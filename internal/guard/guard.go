// Package guard decides whether a storefront page may be shown to the
// current visitor. Its answers drive presentation only; the auth middleware
// remains the authority for every API call.
package guard

import (
	"fmt"

	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/domain"
)

// Requirement is what a page asks of its visitor.
type Requirement string

const (
	// RequireAuthenticated admits any signed-in account.
	RequireAuthenticated Requirement = "authenticated"
	// RequireAdmin admits staff accounts only.
	RequireAdmin Requirement = "admin"
	// RequireUser admits shopper accounts only.
	RequireUser Requirement = "user"
)

var capabilities = map[Requirement]domain.Capability{
	RequireAuthenticated: domain.CapAuthenticated,
	RequireAdmin:         domain.CapAdminArea,
	RequireUser:          domain.CapStorefront,
}

// ParseRequirement converts s into a Requirement.
func ParseRequirement(s string) (Requirement, error) {
	r := Requirement(s)
	if _, ok := capabilities[r]; !ok {
		return "", fmt.Errorf("unknown requirement %q", s)
	}
	return r, nil
}

// Capability returns the capability r is decided by.
func (r Requirement) Capability() domain.Capability {
	return capabilities[r]
}

// Outcome is the result of a guard evaluation.
type Outcome string

const (
	// OutcomeLoading means identity is still being resolved; render a
	// placeholder and do not redirect.
	OutcomeLoading Outcome = "loading"
	// OutcomeDenied means render an access-denied view with Decision.Link.
	OutcomeDenied Outcome = "denied"
	// OutcomeAllowed means render the page.
	OutcomeAllowed Outcome = "allowed"
)

// Paths linked from the access-denied view.
const (
	LoginPath     = "/login"
	AdminHomePath = "/admin"
)

// State is what the storefront knows about its visitor. Identity is nil for
// anonymous visitors.
type State struct {
	Loading  bool
	Identity *auth.Identity
}

// Decision tells the storefront how to render a guarded page.
type Decision struct {
	Requirement Requirement `json:"requirement"`
	Outcome     Outcome     `json:"outcome"`
	// Link is set for denied outcomes.
	Link      string `json:"link,omitempty"`
	LinkLabel string `json:"linkLabel,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Evaluate decides requirement for state. Denials never redirect; they name a
// link so the visitor cannot get caught in a redirect loop.
func Evaluate(requirement Requirement, state State) Decision {
	d := Decision{Requirement: requirement}

	if state.Loading {
		d.Outcome = OutcomeLoading
		return d
	}

	if state.Identity != nil && state.Identity.Can(requirement.Capability()) {
		d.Outcome = OutcomeAllowed
		return d
	}

	d.Outcome = OutcomeDenied
	switch {
	case state.Identity == nil:
		d.Message = "Please sign in to continue"
		d.Link, d.LinkLabel = LoginPath, "Sign in"
	case requirement == RequireUser && state.Identity.Can(domain.CapAdminArea):
		d.Message = "This area is for customer accounts"
		d.Link, d.LinkLabel = AdminHomePath, "Back to admin"
	default:
		d.Message = "You do not have access to this page"
		d.Link, d.LinkLabel = LoginPath, "Sign in with another account"
	}
	return d
}
