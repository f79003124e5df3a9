package domain

import "fmt"

// Role is the closed set of account roles.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	RoleOwner Role = "owner"
)

// ValidRoles returns the set of valid user roles.
func ValidRoles() []Role {
	return []Role{RoleUser, RoleAdmin, RoleOwner}
}

// ParseRole converts s into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	return r.rank() > 0
}

func (r Role) rank() int {
	switch r {
	case RoleUser:
		return 1
	case RoleAdmin:
		return 2
	case RoleOwner:
		return 3
	default:
		return 0
	}
}

// Outranks reports whether r sits strictly above other.
func (r Role) Outranks(other Role) bool {
	return r.rank() > other.rank()
}

// Capability is something a role may be allowed to do.
type Capability string

const (
	// CapAuthenticated is held by every valid role.
	CapAuthenticated Capability = "authenticated"
	// CapStorefront is held by shopper accounts only; staff use the admin area.
	CapStorefront Capability = "storefront"
	// CapAdminArea grants access to the admin dashboard.
	CapAdminArea Capability = "admin_area"
	// CapManageUsers allows reading, updating and deleting other accounts.
	CapManageUsers Capability = "manage_users"
	// CapAssignRoles allows changing the role of an account.
	CapAssignRoles Capability = "assign_roles"
)

var grants = map[Role][]Capability{
	RoleUser:  {CapAuthenticated, CapStorefront},
	RoleAdmin: {CapAuthenticated, CapAdminArea, CapManageUsers},
	RoleOwner: {CapAuthenticated, CapAdminArea, CapManageUsers, CapAssignRoles},
}

// Can reports whether role r holds capability c. Every authorization check in
// the service, server-side or presentational, goes through here.
func Can(r Role, c Capability) bool {
	for _, granted := range grants[r] {
		if granted == c {
			return true
		}
	}
	return false
}

// CanManage reports whether an actor with role actor may act on an account
// with role target. Nobody may act on an account that outranks them.
func CanManage(actor, target Role) bool {
	return Can(actor, CapManageUsers) && !target.Outranks(actor)
}
