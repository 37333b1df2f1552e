package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"backoffice-ops/internal/core/domain"
	"backoffice-ops/internal/core/ports"
	"backoffice-ops/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	auditEntityPayment = "payments"
	maxBatchSize       = 100

	defaultPageSize = 20
	maxPageSize     = 100
)

// PaymentServiceImpl implements ports.PaymentService. Every mutation runs in
// one database transaction together with its audit entry: an audit write
// failure aborts the mutation.
type PaymentServiceImpl struct {
	paymentRepo ports.PaymentRepository
	auditRepo   ports.AuditRepository
	ruleSvc     ports.RuleService
	access      ports.AccessService
	transactor  ports.DBTransactor
	log         zerolog.Logger
}

// NewPaymentService creates a new PaymentServiceImpl.
func NewPaymentService(
	paymentRepo ports.PaymentRepository,
	auditRepo ports.AuditRepository,
	ruleSvc ports.RuleService,
	access ports.AccessService,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *PaymentServiceImpl {
	return &PaymentServiceImpl{
		paymentRepo: paymentRepo,
		auditRepo:   auditRepo,
		ruleSvc:     ruleSvc,
		access:      access,
		transactor:  transactor,
		log:         log,
	}
}

func validPaymentType(t domain.PaymentType) bool {
	switch t {
	case domain.PaymentTypeContractor, domain.PaymentTypeExpense, domain.PaymentTypeOther:
		return true
	}
	return false
}

// Create registers a new payment. Tax defaults to the advisory 10% and
// withholding to the progressive calculation when the caller omits them.
// Submit requests PENDING instead of DRAFT; a matching auto-approve rule
// lifts the payment straight to APPROVED whether or not it was submitted.
func (s *PaymentServiceImpl) Create(ctx context.Context, actor domain.Actor, req ports.CreatePaymentRequest) (*domain.Payment, error) {
	if !actor.Role.AtLeast(domain.RoleManager) {
		return nil, apperror.ErrForbidden("payment creation requires at least manager role")
	}
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if !validPaymentType(req.Type) {
		return nil, apperror.Validation("invalid payment type")
	}

	tax := domain.DefaultTax(req.Amount)
	if req.Tax != nil {
		tax = *req.Tax
	}
	withholding := domain.ComputeWithholding(req.Amount)
	if req.WithholdingTax != nil {
		withholding = *req.WithholdingTax
	}
	if tax < 0 || withholding < 0 {
		return nil, apperror.Validation("tax amounts must not be negative")
	}

	status := domain.PaymentStatusDraft
	if req.Submit {
		status = domain.PaymentStatusPending
	}

	// An auto-approve match bypasses DRAFT and PENDING entirely.
	rule, err := s.ruleSvc.Resolve(ctx, req.Amount)
	if err != nil {
		return nil, err
	}
	if rule != nil && rule.AutoApprove {
		status = domain.PaymentStatusApproved
	}

	now := time.Now().UTC()
	payment := &domain.Payment{
		ID:             uuid.New(),
		BusinessID:     req.BusinessID,
		PartnerID:      req.PartnerID,
		CategoryID:     req.CategoryID,
		Type:           req.Type,
		Amount:         req.Amount,
		Tax:            tax,
		WithholdingTax: withholding,
		Status:         status,
		Period:         req.Period,
		DueDate:        req.DueDate,
		Note:           req.Note,
		Version:        1,
		CreatedBy:      actor.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	payment.RecomputeTotals()
	if payment.NetAmount < 0 {
		return nil, apperror.ErrNegativeNetAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.paymentRepo.Create(ctx, dbTx, payment); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create payment: %w", err))
	}

	if err := s.writeAudit(ctx, dbTx, payment.ID, domain.AuditActionCreate, actor.ID, nil, domain.SnapshotPayment(payment)); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("payment_id", payment.ID.String()).
		Str("business_id", payment.BusinessID.String()).
		Int64("amount", payment.Amount).
		Str("status", string(payment.Status)).
		Msg("payment created")

	return payment, nil
}

// Get returns one payment if it falls inside the actor's visible scope.
// Out-of-scope and absent payments are indistinguishable.
func (s *PaymentServiceImpl) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Payment, error) {
	scope, err := s.access.ResolveScope(ctx, actor, domain.ContentPayments)
	if err != nil {
		return nil, err
	}

	payment, err := s.paymentRepo.GetByID(ctx, id, scope)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get payment: %w", err))
	}
	if payment == nil {
		return nil, apperror.ErrNotFound("payment")
	}
	return payment, nil
}

// List returns payments inside the actor's scope with filters applied.
func (s *PaymentServiceImpl) List(ctx context.Context, actor domain.Actor, req ports.ListPaymentsRequest) ([]domain.Payment, int64, error) {
	scope, err := s.access.ResolveScope(ctx, actor, domain.ContentPayments)
	if err != nil {
		return nil, 0, err
	}
	if req.BusinessID != nil {
		scope = scope.Intersect(*req.BusinessID)
	}
	if scope.IsEmpty() {
		return []domain.Payment{}, 0, nil
	}

	page, pageSize := normalizePage(req.Page, req.PageSize)
	payments, total, err := s.paymentRepo.List(ctx, ports.PaymentListParams{
		Scope:    scope,
		Status:   req.Status,
		Type:     req.Type,
		Period:   req.Period,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list payments: %w", err))
	}
	return payments, total, nil
}

// Edit applies a partial update. The row is re-read under a lock so the
// status checks hold against the committed state, not a stale read. Amount
// changes on a PAID payment require an adjustment reason; CANCELLED
// payments reject every edit.
func (s *PaymentServiceImpl) Edit(ctx context.Context, actor domain.Actor, id uuid.UUID, patch domain.PaymentPatch) (*domain.Payment, error) {
	if patch.IsEmpty() {
		return nil, apperror.Validation("no fields to update")
	}

	scope, err := s.access.ResolveScope(ctx, actor, domain.ContentPayments)
	if err != nil {
		return nil, err
	}
	visible, err := s.paymentRepo.GetByID(ctx, id, scope)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get payment: %w", err))
	}
	if visible == nil {
		return nil, apperror.ErrNotFound("payment")
	}

	canWrite, err := s.access.CanWrite(ctx, actor, visible.BusinessID)
	if err != nil {
		return nil, err
	}
	if !canWrite {
		return nil, apperror.ErrForbidden("no write access to this business")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	payment, err := s.paymentRepo.GetByIDForUpdate(ctx, dbTx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock payment: %w", err))
	}
	if payment == nil {
		return nil, apperror.ErrNotFound("payment")
	}

	if payment.Status == domain.PaymentStatusCancelled {
		return nil, apperror.ErrPaymentLocked()
	}
	if patch.ExpectedVersion != nil && *patch.ExpectedVersion != payment.Version {
		return nil, apperror.ErrConflict()
	}
	if payment.IsSettled() && patch.TouchesFinancials() {
		if patch.AdjustmentReason == nil || strings.TrimSpace(*patch.AdjustmentReason) == "" {
			return nil, apperror.ErrAdjustmentReasonRequired()
		}
	}

	before := domain.SnapshotPayment(payment)
	patch.Apply(payment)

	if payment.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if payment.Tax < 0 || payment.WithholdingTax < 0 {
		return nil, apperror.Validation("tax amounts must not be negative")
	}
	if payment.NetAmount < 0 {
		return nil, apperror.ErrNegativeNetAmount()
	}
	payment.UpdatedAt = time.Now().UTC()

	if err := s.paymentRepo.Update(ctx, dbTx, payment, payment.Version); err != nil {
		if errors.Is(err, ports.ErrVersionConflict) {
			return nil, apperror.ErrConflict()
		}
		return nil, apperror.InternalError(fmt.Errorf("update payment: %w", err))
	}

	if err := s.writeAudit(ctx, dbTx, payment.ID, domain.AuditActionUpdate, actor.ID, before, domain.SnapshotPayment(payment)); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("payment_id", payment.ID.String()).
		Int64("version", payment.Version).
		Msg("payment updated")

	return payment, nil
}

// Transition moves one payment along the status graph. Partners never
// change payment status regardless of grants.
func (s *PaymentServiceImpl) Transition(ctx context.Context, actor domain.Actor, id uuid.UUID, target domain.PaymentStatus) (*domain.Payment, error) {
	if !actor.IsInternal() {
		return nil, apperror.ErrForbidden("partners cannot change payment status")
	}
	if !target.Valid() {
		return nil, apperror.Validation("invalid target status")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	payment, before, err := s.transitionLocked(ctx, dbTx, actor, id, target)
	if err != nil {
		return nil, err
	}

	action := domain.AuditActionUpdate
	if target == domain.PaymentStatusCancelled {
		action = domain.AuditActionCancel
	}
	if err := s.writeAudit(ctx, dbTx, payment.ID, action, actor.ID, before, domain.SnapshotPayment(payment)); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("payment_id", payment.ID.String()).
		Str("from", string(before.Status)).
		Str("to", string(target)).
		Msg("payment status changed")

	return payment, nil
}

// transitionLocked re-reads the payment under a row lock, validates the
// transition and the actor's role against the matching approval rule, and
// persists the status change. The caller owns the transaction and the
// audit entry.
func (s *PaymentServiceImpl) transitionLocked(ctx context.Context, dbTx pgx.Tx, actor domain.Actor, id uuid.UUID, target domain.PaymentStatus) (*domain.Payment, *domain.PaymentSnapshot, error) {
	payment, err := s.paymentRepo.GetByIDForUpdate(ctx, dbTx, id)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("lock payment: %w", err))
	}
	if payment == nil {
		return nil, nil, apperror.ErrNotFound("payment")
	}

	if !domain.TransitionAllowed(payment.Status, target) {
		return nil, nil, apperror.ErrInvalidTransition(string(payment.Status), string(target))
	}

	minRole := domain.TransitionMinRole(payment.Status, target)
	if payment.Status == domain.PaymentStatusPending && target == domain.PaymentStatusApproved {
		rule, err := s.ruleSvc.Resolve(ctx, payment.Amount)
		if err != nil {
			return nil, nil, err
		}
		if rule != nil {
			minRole = rule.RequiredRole
		}
	}
	if !actor.Role.AtLeast(minRole) {
		return nil, nil, apperror.ErrForbidden(fmt.Sprintf("transition requires at least %s role", minRole))
	}

	before := domain.SnapshotPayment(payment)
	now := time.Now().UTC()
	payment.Status = target
	if target == domain.PaymentStatusPaid {
		payment.PaidAt = &now
	}
	payment.UpdatedAt = now

	if err := s.paymentRepo.Update(ctx, dbTx, payment, payment.Version); err != nil {
		if errors.Is(err, ports.ErrVersionConflict) {
			return nil, nil, apperror.ErrConflict()
		}
		return nil, nil, apperror.InternalError(fmt.Errorf("update payment: %w", err))
	}

	return payment, before, nil
}

// SoftDelete hides a payment from all reads. Only DRAFT payments qualify;
// anything already in review or settled must be cancelled instead so the
// money trail stays visible.
func (s *PaymentServiceImpl) SoftDelete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if !actor.Role.AtLeast(domain.RoleManager) {
		return apperror.ErrForbidden("payment deletion requires at least manager role")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	payment, err := s.paymentRepo.GetByIDForUpdate(ctx, dbTx, id)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock payment: %w", err))
	}
	if payment == nil {
		return apperror.ErrNotFound("payment")
	}
	if payment.Status != domain.PaymentStatusDraft {
		return apperror.Validation("only draft payments can be deleted")
	}

	now := time.Now().UTC()
	if err := s.paymentRepo.SoftDelete(ctx, dbTx, id, now); err != nil {
		return apperror.InternalError(fmt.Errorf("soft delete payment: %w", err))
	}

	if err := s.writeAudit(ctx, dbTx, id, domain.AuditActionSoftDelete, actor.ID, domain.SnapshotPayment(payment), nil); err != nil {
		return err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Str("payment_id", id.String()).Msg("payment soft deleted")
	return nil
}

// History renders the audit trail of one visible payment. CREATE entries
// carry the initial snapshot; later entries carry the field-level diff
// computed from the stored before/after snapshots.
func (s *PaymentServiceImpl) History(ctx context.Context, actor domain.Actor, id uuid.UUID) ([]ports.PaymentEvent, error) {
	scope, err := s.access.ResolveScope(ctx, actor, domain.ContentPayments)
	if err != nil {
		return nil, err
	}
	visible, err := s.paymentRepo.GetByID(ctx, id, scope)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get payment: %w", err))
	}
	if visible == nil {
		return nil, apperror.ErrNotFound("payment")
	}

	entries, err := s.auditRepo.ListByEntity(ctx, auditEntityPayment, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list audit entries: %w", err))
	}

	events := make([]ports.PaymentEvent, 0, len(entries))
	for i := range entries {
		entry := &entries[i]

		before, err := unmarshalSnapshot(entry.Before)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("decode before snapshot: %w", err))
		}
		after, err := unmarshalSnapshot(entry.After)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("decode after snapshot: %w", err))
		}

		event := ports.PaymentEvent{
			ID:        entry.ID,
			Action:    entry.Action,
			ActorID:   entry.ActorID,
			Seq:       entry.Seq,
			CreatedAt: entry.CreatedAt,
		}
		if entry.Action == domain.AuditActionCreate {
			event.Initial = after
		} else {
			event.Changes = domain.DiffSnapshots(before, after)
		}
		events = append(events, event)
	}

	return events, nil
}

// ApplyBatch runs one transition per payment, each in its own transaction.
// Items fail independently: a cancelled payment in the batch fails alone
// and never rolls back its neighbors.
func (s *PaymentServiceImpl) ApplyBatch(ctx context.Context, actor domain.Actor, ids []uuid.UUID, target domain.PaymentStatus) (*ports.BatchResult, error) {
	if !actor.IsInternal() {
		return nil, apperror.ErrForbidden("partners cannot change payment status")
	}
	if !target.Valid() {
		return nil, apperror.Validation("invalid target status")
	}
	if len(ids) == 0 {
		return nil, apperror.Validation("no payment ids given")
	}
	if len(ids) > maxBatchSize {
		return nil, apperror.Validation(fmt.Sprintf("batch size exceeds %d", maxBatchSize))
	}

	result := &ports.BatchResult{Errors: []ports.BatchError{}}
	for _, id := range ids {
		if err := s.applyBatchItem(ctx, actor, id, target); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ports.BatchError{ID: id, Reason: errReason(err)})
			continue
		}
		result.Success++
	}

	s.log.Info().
		Str("target", string(target)).
		Int("success", result.Success).
		Int("failed", result.Failed).
		Msg("batch transition finished")

	return result, nil
}

func (s *PaymentServiceImpl) applyBatchItem(ctx context.Context, actor domain.Actor, id uuid.UUID, target domain.PaymentStatus) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	payment, before, err := s.transitionLocked(ctx, dbTx, actor, id, target)
	if err != nil {
		return err
	}

	if err := s.writeAudit(ctx, dbTx, payment.ID, domain.AuditActionBatchUpdate, actor.ID, before, domain.SnapshotPayment(payment)); err != nil {
		return err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// writeAudit records one mutation in the caller's transaction. Snapshots
// are stored whole; diffs are computed at read time.
func (s *PaymentServiceImpl) writeAudit(ctx context.Context, dbTx pgx.Tx, entityID uuid.UUID, action domain.AuditAction, actorID uuid.UUID, before, after *domain.PaymentSnapshot) error {
	entry := &domain.AuditEntry{
		ID:         uuid.New(),
		EntityType: auditEntityPayment,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
		CreatedAt:  time.Now().UTC(),
	}

	var err error
	if entry.Before, err = marshalSnapshot(before); err != nil {
		return apperror.InternalError(fmt.Errorf("marshal before snapshot: %w", err))
	}
	if entry.After, err = marshalSnapshot(after); err != nil {
		return apperror.InternalError(fmt.Errorf("marshal after snapshot: %w", err))
	}

	if err := s.auditRepo.Create(ctx, dbTx, entry); err != nil {
		return apperror.InternalError(fmt.Errorf("write audit entry: %w", err))
	}
	return nil
}

func marshalSnapshot(snap *domain.PaymentSnapshot) (json.RawMessage, error) {
	if snap == nil {
		return nil, nil
	}
	return json.Marshal(snap)
}

func unmarshalSnapshot(raw json.RawMessage) (*domain.PaymentSnapshot, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	snap := &domain.PaymentSnapshot{}
	if err := json.Unmarshal(raw, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize < 1:
		pageSize = defaultPageSize
	case pageSize > maxPageSize:
		pageSize = maxPageSize
	}
	return page, pageSize
}

// errReason extracts the client-facing message for a batch item failure.
func errReason(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal error"
}
