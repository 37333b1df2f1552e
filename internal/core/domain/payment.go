package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentType distinguishes the business category of a payment.
type PaymentType string

const (
	PaymentTypeContractor PaymentType = "CONTRACTOR"
	PaymentTypeExpense    PaymentType = "EXPENSE"
	PaymentTypeOther      PaymentType = "OTHER"
)

// PaymentStatus is the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentStatusDraft     PaymentStatus = "DRAFT"
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusApproved  PaymentStatus = "APPROVED"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusDraft, PaymentStatusPending, PaymentStatusApproved,
		PaymentStatusPaid, PaymentStatusCancelled:
		return true
	}
	return false
}

// transitionRoles maps each permitted status transition to the minimum role
// allowed to perform it. PENDING -> APPROVED may be raised further by the
// approval rule matching the payment amount.
var transitionRoles = map[[2]PaymentStatus]Role{
	{PaymentStatusDraft, PaymentStatusPending}:    RoleManager,
	{PaymentStatusPending, PaymentStatusApproved}: RoleManager,
	{PaymentStatusApproved, PaymentStatusPaid}:    RoleAdmin,
	{PaymentStatusPaid, PaymentStatusCancelled}:   RoleAdmin,
}

// TransitionAllowed reports whether from -> to exists in the transition table.
func TransitionAllowed(from, to PaymentStatus) bool {
	_, ok := transitionRoles[[2]PaymentStatus{from, to}]
	return ok
}

// TransitionMinRole returns the baseline role required for from -> to.
// It must only be called for transitions present in the table.
func TransitionMinRole(from, to PaymentStatus) Role {
	return transitionRoles[[2]PaymentStatus{from, to}]
}

// Withholding tax brackets: 10.21% up to one million, 20.42% above it.
const (
	withholdingBracket = 1_000_000
	lowRateNumerator   = 1021
	highRateNumerator  = 2042
	rateDenominator    = 10_000
)

// ComputeWithholding maps a gross amount to its progressive withholding
// deduction using exact integer floor arithmetic. Non-positive amounts
// yield zero.
func ComputeWithholding(amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	if amount <= withholdingBracket {
		return amount * lowRateNumerator / rateDenominator
	}
	base := int64(withholdingBracket) * lowRateNumerator / rateDenominator
	return base + (amount-withholdingBracket)*highRateNumerator/rateDenominator
}

// DefaultTax returns the advisory 10% consumption tax on an amount.
// Clients may override it; the server never re-enforces it on edits.
func DefaultTax(amount int64) int64 {
	return amount / 10
}

// Payment is the core transactional entity. Amounts are integers in the
// smallest currency unit. TotalAmount and NetAmount are derived and stored.
type Payment struct {
	ID               uuid.UUID     `json:"id"`
	BusinessID       uuid.UUID     `json:"business_id"`
	PartnerID        *uuid.UUID    `json:"partner_id,omitempty"`
	CategoryID       *uuid.UUID    `json:"category_id,omitempty"`
	Type             PaymentType   `json:"type"`
	Amount           int64         `json:"amount"`
	Tax              int64         `json:"tax"`
	TotalAmount      int64         `json:"total_amount"`
	WithholdingTax   int64         `json:"withholding_tax"`
	NetAmount        int64         `json:"net_amount"`
	Status           PaymentStatus `json:"status"`
	Period           *string       `json:"period,omitempty"` // YYYY-MM
	DueDate          *time.Time    `json:"due_date,omitempty"`
	PaidAt           *time.Time    `json:"paid_at,omitempty"`
	AdjustmentReason *string       `json:"adjustment_reason,omitempty"`
	Note             *string       `json:"note,omitempty"`
	Version          int64         `json:"version"`
	CreatedBy        uuid.UUID     `json:"created_by"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
	DeletedAt        *time.Time    `json:"deleted_at,omitempty"`
}

// RecomputeTotals refreshes the derived TotalAmount and NetAmount after any
// change to Amount, Tax or WithholdingTax.
func (p *Payment) RecomputeTotals() {
	p.TotalAmount = p.Amount + p.Tax
	p.NetAmount = p.TotalAmount - p.WithholdingTax
}

// IsSettled reports whether the payment has been paid out.
func (p *Payment) IsSettled() bool {
	return p.Status == PaymentStatusPaid
}

// PaymentPatch is an explicit partial update: a nil field is absent and
// leaves the stored value untouched, a non-nil field overwrites it. This
// replaces ad-hoc conditional field spreading with a value type.
type PaymentPatch struct {
	Amount           *int64
	Tax              *int64
	WithholdingTax   *int64
	Type             *PaymentType
	CategoryID       *uuid.UUID
	Period           *string
	DueDate          *time.Time
	Note             *string
	AdjustmentReason *string
	// ExpectedVersion, when set, rejects the edit if the stored row has
	// moved on since the caller read it.
	ExpectedVersion *int64
}

// TouchesFinancials reports whether the patch changes any amount field.
// Such edits on a PAID payment require an adjustment reason.
func (pp *PaymentPatch) TouchesFinancials() bool {
	return pp.Amount != nil || pp.Tax != nil || pp.WithholdingTax != nil
}

// IsEmpty reports whether the patch changes nothing.
func (pp *PaymentPatch) IsEmpty() bool {
	return pp.Amount == nil && pp.Tax == nil && pp.WithholdingTax == nil &&
		pp.Type == nil && pp.CategoryID == nil && pp.Period == nil &&
		pp.DueDate == nil && pp.Note == nil && pp.AdjustmentReason == nil
}

// Apply writes the present fields onto the payment and recomputes the
// derived totals.
func (pp *PaymentPatch) Apply(p *Payment) {
	if pp.Amount != nil {
		p.Amount = *pp.Amount
	}
	if pp.Tax != nil {
		p.Tax = *pp.Tax
	}
	if pp.WithholdingTax != nil {
		p.WithholdingTax = *pp.WithholdingTax
	}
	if pp.Type != nil {
		p.Type = *pp.Type
	}
	if pp.CategoryID != nil {
		p.CategoryID = pp.CategoryID
	}
	if pp.Period != nil {
		p.Period = pp.Period
	}
	if pp.DueDate != nil {
		p.DueDate = pp.DueDate
	}
	if pp.Note != nil {
		p.Note = pp.Note
	}
	if pp.AdjustmentReason != nil {
		p.AdjustmentReason = pp.AdjustmentReason
	}
	p.RecomputeTotals()
}
