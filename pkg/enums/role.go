package enums

import "fmt"

// Role represents a company-level permissions role.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

var validRoles = []Role{
	RoleAdmin,
	RoleOperator,
	RoleViewer,
}

// Capabilities describes what a role is allowed to do. Authorization
// decisions check capabilities, never the role name itself.
type Capabilities struct {
	CanCreateOrder   bool
	CanRetryOrder    bool
	CanRequestExport bool
	CanManageProfile bool
}

var capabilitiesByRole = map[Role]Capabilities{
	RoleAdmin: {
		CanCreateOrder:   true,
		CanRetryOrder:    true,
		CanRequestExport: true,
		CanManageProfile: true,
	},
	RoleOperator: {
		CanCreateOrder:   true,
		CanRetryOrder:    true,
		CanRequestExport: true,
		CanManageProfile: false,
	},
	RoleViewer: {
		CanCreateOrder:   false,
		CanRetryOrder:    false,
		CanRequestExport: false,
		CanManageProfile: false,
	},
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// Capabilities returns the capability set for the role. Unknown roles
// get an empty capability set.
func (r Role) Capabilities() Capabilities {
	return capabilitiesByRole[r]
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
