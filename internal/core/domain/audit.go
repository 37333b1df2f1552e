package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditAction classifies a mutating operation.
type AuditAction string

const (
	AuditActionCreate      AuditAction = "CREATE"
	AuditActionUpdate      AuditAction = "UPDATE"
	AuditActionCancel      AuditAction = "CANCEL"
	AuditActionSoftDelete  AuditAction = "SOFT_DELETE"
	AuditActionBatchUpdate AuditAction = "BATCH_UPDATE"
)

// AuditEntry is an immutable record of one mutating operation. Before and
// After hold full entity snapshots, never a pre-computed diff. Seq is a
// per-entity sequence number so history ordering stays deterministic even
// when two entries share a timestamp.
type AuditEntry struct {
	ID         uuid.UUID       `json:"id"`
	EntityType string          `json:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id"`
	Action     AuditAction     `json:"action"`
	ActorID    uuid.UUID       `json:"actor_id"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	Seq        int64           `json:"seq"`
	CreatedAt  time.Time       `json:"created_at"`
}

// PaymentSnapshot is the fixed set of financially and semantically relevant
// payment fields captured in audit entries and compared by the diff view.
type PaymentSnapshot struct {
	Status           PaymentStatus `json:"status"`
	Amount           int64         `json:"amount"`
	Tax              int64         `json:"tax"`
	TotalAmount      int64         `json:"total_amount"`
	WithholdingTax   int64         `json:"withholding_tax"`
	NetAmount        int64         `json:"net_amount"`
	Type             PaymentType   `json:"type"`
	Period           *string       `json:"period,omitempty"`
	DueDate          *time.Time    `json:"due_date,omitempty"`
	PaidAt           *time.Time    `json:"paid_at,omitempty"`
	AdjustmentReason *string       `json:"adjustment_reason,omitempty"`
	Note             *string       `json:"note,omitempty"`
}

// SnapshotPayment captures the auditable fields of a payment.
func SnapshotPayment(p *Payment) *PaymentSnapshot {
	return &PaymentSnapshot{
		Status:           p.Status,
		Amount:           p.Amount,
		Tax:              p.Tax,
		TotalAmount:      p.TotalAmount,
		WithholdingTax:   p.WithholdingTax,
		NetAmount:        p.NetAmount,
		Type:             p.Type,
		Period:           p.Period,
		DueDate:          p.DueDate,
		PaidAt:           p.PaidAt,
		AdjustmentReason: p.AdjustmentReason,
		Note:             p.Note,
	}
}

// FieldChange is one field-level difference between two snapshots.
type FieldChange struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// DiffSnapshots compares two payment snapshots field by field using
// stringified equality and returns one FieldChange per differing field.
// It is pure and used only at read time for history display.
func DiffSnapshots(before, after *PaymentSnapshot) []FieldChange {
	if before == nil || after == nil {
		return nil
	}

	var changes []FieldChange
	compare := func(field, b, a string) {
		if b != a {
			changes = append(changes, FieldChange{Field: field, Before: b, After: a})
		}
	}

	compare("status", string(before.Status), string(after.Status))
	compare("amount", formatInt(before.Amount), formatInt(after.Amount))
	compare("tax", formatInt(before.Tax), formatInt(after.Tax))
	compare("total_amount", formatInt(before.TotalAmount), formatInt(after.TotalAmount))
	compare("withholding_tax", formatInt(before.WithholdingTax), formatInt(after.WithholdingTax))
	compare("net_amount", formatInt(before.NetAmount), formatInt(after.NetAmount))
	compare("type", string(before.Type), string(after.Type))
	compare("period", formatStrPtr(before.Period), formatStrPtr(after.Period))
	compare("due_date", formatTimePtr(before.DueDate), formatTimePtr(after.DueDate))
	compare("paid_at", formatTimePtr(before.PaidAt), formatTimePtr(after.PaidAt))
	compare("note", formatStrPtr(before.Note), formatStrPtr(after.Note))

	return changes
}

func formatInt(v int64) string {
	return fmt.Sprintf("%d", v)
}

func formatStrPtr(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatTimePtr(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}
