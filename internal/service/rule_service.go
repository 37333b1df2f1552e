package service

import (
	"context"
	"fmt"
	"time"

	"backoffice-ops/internal/core/domain"
	"backoffice-ops/internal/core/ports"
	"backoffice-ops/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RuleServiceImpl implements ports.RuleService.
type RuleServiceImpl struct {
	ruleRepo ports.ApprovalRuleRepository
	log      zerolog.Logger
}

// NewRuleService creates a new RuleServiceImpl.
func NewRuleService(ruleRepo ports.ApprovalRuleRepository, log zerolog.Logger) *RuleServiceImpl {
	return &RuleServiceImpl{
		ruleRepo: ruleRepo,
		log:      log,
	}
}

func validateRuleInput(req ports.RuleInput) error {
	if req.MinAmount < 0 {
		return apperror.Validation("min_amount must not be negative")
	}
	if req.MaxAmount != nil && *req.MaxAmount <= req.MinAmount {
		return apperror.Validation("max_amount must be greater than min_amount")
	}
	if !req.RequiredRole.Valid() || req.RequiredRole == domain.RolePartner {
		return apperror.Validation("required_role must be an internal role")
	}
	return nil
}

// Create adds a new approval rule. Administrators only.
func (s *RuleServiceImpl) Create(ctx context.Context, actor domain.Actor, req ports.RuleInput) (*domain.ApprovalRule, error) {
	if !actor.Role.AtLeast(domain.RoleAdmin) {
		return nil, apperror.ErrForbidden("only administrators may manage approval rules")
	}
	if err := validateRuleInput(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rule := &domain.ApprovalRule{
		ID:           uuid.New(),
		MinAmount:    req.MinAmount,
		MaxAmount:    req.MaxAmount,
		RequiredRole: req.RequiredRole,
		AutoApprove:  req.AutoApprove,
		SortOrder:    req.SortOrder,
		IsActive:     req.IsActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.ruleRepo.Create(ctx, rule); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create rule: %w", err))
	}

	s.log.Info().
		Str("rule_id", rule.ID.String()).
		Int64("min_amount", rule.MinAmount).
		Bool("auto_approve", rule.AutoApprove).
		Msg("approval rule created")

	return rule, nil
}

// Update replaces a rule's policy fields. Administrators only.
func (s *RuleServiceImpl) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, req ports.RuleInput) (*domain.ApprovalRule, error) {
	if !actor.Role.AtLeast(domain.RoleAdmin) {
		return nil, apperror.ErrForbidden("only administrators may manage approval rules")
	}
	if err := validateRuleInput(req); err != nil {
		return nil, err
	}

	rule, err := s.ruleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get rule: %w", err))
	}
	if rule == nil {
		return nil, apperror.ErrNotFound("approval rule")
	}

	rule.MinAmount = req.MinAmount
	rule.MaxAmount = req.MaxAmount
	rule.RequiredRole = req.RequiredRole
	rule.AutoApprove = req.AutoApprove
	rule.SortOrder = req.SortOrder
	rule.IsActive = req.IsActive
	rule.UpdatedAt = time.Now().UTC()

	if err := s.ruleRepo.Update(ctx, rule); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update rule: %w", err))
	}

	return rule, nil
}

// Deactivate retires a rule. Rules are never physically deleted so prior
// approval decisions remain explainable.
func (s *RuleServiceImpl) Deactivate(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if !actor.Role.AtLeast(domain.RoleAdmin) {
		return apperror.ErrForbidden("only administrators may manage approval rules")
	}

	rule, err := s.ruleRepo.GetByID(ctx, id)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get rule: %w", err))
	}
	if rule == nil {
		return apperror.ErrNotFound("approval rule")
	}

	if err := s.ruleRepo.Deactivate(ctx, id); err != nil {
		return apperror.InternalError(fmt.Errorf("deactivate rule: %w", err))
	}

	s.log.Info().Str("rule_id", id.String()).Msg("approval rule deactivated")
	return nil
}

// List returns rules ordered by sort_order. Internal staff only.
func (s *RuleServiceImpl) List(ctx context.Context, actor domain.Actor, includeInactive bool) ([]domain.ApprovalRule, error) {
	if !actor.IsInternal() {
		return nil, apperror.ErrForbidden("approval rules are internal")
	}

	rules, err := s.ruleRepo.List(ctx, includeInactive)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list rules: %w", err))
	}
	return rules, nil
}

// Resolve returns the first active rule whose interval contains amount,
// walking rules in sort_order. No match means the default managerial
// approval path applies.
func (s *RuleServiceImpl) Resolve(ctx context.Context, amount int64) (*domain.ApprovalRule, error) {
	rules, err := s.ruleRepo.List(ctx, false)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list rules: %w", err))
	}

	for i := range rules {
		if rules[i].Contains(amount) {
			return &rules[i], nil
		}
	}
	return nil, nil
}
