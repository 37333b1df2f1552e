package domain

import (
	"time"

	"github.com/google/uuid"
)

// ContentType tags the kinds of records a grant can expose to a partner.
type ContentType string

const (
	ContentCustomers ContentType = "customers"
	ContentTasks     ContentType = "tasks"
	ContentWorkflows ContentType = "workflows"
	ContentPayments  ContentType = "payments"
	ContentReports   ContentType = "reports"
)

// Valid reports whether ct is a known content type.
func (ct ContentType) Valid() bool {
	switch ct {
	case ContentCustomers, ContentTasks, ContentWorkflows, ContentPayments, ContentReports:
		return true
	}
	return false
}

// PermissionGrant exposes one business's records of the listed content types
// to one partner. At most one grant exists per (partner, business) pair.
type PermissionGrant struct {
	ID          uuid.UUID     `json:"id"`
	PartnerID   uuid.UUID     `json:"partner_id"`
	BusinessID  uuid.UUID     `json:"business_id"`
	Permissions []ContentType `json:"permissions"`
	CanEdit     bool          `json:"can_edit"`
	IsActive    bool          `json:"is_active"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Covers reports whether the grant exposes the given content type.
// Inactive grants cover nothing.
func (g *PermissionGrant) Covers(ct ContentType) bool {
	if !g.IsActive {
		return false
	}
	for _, p := range g.Permissions {
		if p == ct {
			return true
		}
	}
	return false
}
