package domain

import (
	"time"

	"github.com/google/uuid"
)

// ApprovalRule is an amount-range policy determining the required approver
// role and auto-approval eligibility. Rules are evaluated in SortOrder
// ascending; the first rule whose [MinAmount, MaxAmount) interval contains
// the candidate amount applies. MaxAmount nil means unbounded.
//
// Rules are deactivated rather than removed: prior payments reference the
// resolved role implicitly through their history.
type ApprovalRule struct {
	ID           uuid.UUID `json:"id"`
	MinAmount    int64     `json:"min_amount"`
	MaxAmount    *int64    `json:"max_amount,omitempty"`
	RequiredRole Role      `json:"required_role"`
	AutoApprove  bool      `json:"auto_approve"`
	SortOrder    int       `json:"sort_order"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Contains reports whether amount falls inside the rule's half-open interval.
func (r *ApprovalRule) Contains(amount int64) bool {
	if amount < r.MinAmount {
		return false
	}
	return r.MaxAmount == nil || amount < *r.MaxAmount
}
