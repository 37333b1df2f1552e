package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserStatus is the account state of a login identity.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is a login identity. PartnerID binds PARTNER-role users to their
// partner record; it is nil until an administrator links them.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	PartnerID    *uuid.UUID `json:"partner_id,omitempty"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsActive reports whether the user may log in.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// AsActor converts the user to the request-scoped actor identity.
func (u *User) AsActor() Actor {
	return Actor{ID: u.ID, Role: u.Role, PartnerID: u.PartnerID}
}
