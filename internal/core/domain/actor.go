package domain

import (
	"github.com/google/uuid"
)

// Role is the coarse-grained role attached to every authenticated identity.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleMember  Role = "MEMBER"
	RolePartner Role = "PARTNER"
)

// rank orders roles by authority. Unknown roles rank below everything.
func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 4
	case RoleManager:
		return 3
	case RoleMember:
		return 2
	case RolePartner:
		return 1
	}
	return 0
}

// AtLeast reports whether r carries at least the authority of min.
func (r Role) AtLeast(min Role) bool {
	return r.rank() >= min.rank()
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r.rank() > 0
}

// Actor is the authenticated identity performing a request.
// PartnerID is set only for PARTNER-role actors that have a login binding;
// a PARTNER actor without one sees nothing.
type Actor struct {
	ID        uuid.UUID
	Role      Role
	PartnerID *uuid.UUID
}

// IsInternal reports whether the actor belongs to internal staff.
// Internal staff are never restricted by business-scoped grants.
func (a Actor) IsInternal() bool {
	return a.Role != RolePartner
}
