package handler

import (
	"backoffice-ops/internal/adapter/http/dto"
	"backoffice-ops/internal/core/domain"
	"backoffice-ops/internal/core/ports"
	"backoffice-ops/pkg/apperror"
	"backoffice-ops/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RuleHandler handles approval rule endpoints.
type RuleHandler struct {
	ruleSvc ports.RuleService
}

// NewRuleHandler creates a new RuleHandler.
func NewRuleHandler(ruleSvc ports.RuleService) *RuleHandler {
	return &RuleHandler{ruleSvc: ruleSvc}
}

// Create handles POST /api/v1/approval-rules.
func (h *RuleHandler) Create(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	rule, err := h.ruleSvc.Create(c.Request.Context(), actor, toRuleInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toRuleResponse(rule))
}

// Update handles PUT /api/v1/approval-rules/:id.
func (h *RuleHandler) Update(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid rule id"))
		return
	}

	var req dto.RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	rule, err := h.ruleSvc.Update(c.Request.Context(), actor, id, toRuleInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toRuleResponse(rule))
}

// Deactivate handles DELETE /api/v1/approval-rules/:id. Rules are
// deactivated, never removed.
func (h *RuleHandler) Deactivate(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid rule id"))
		return
	}

	if err := h.ruleSvc.Deactivate(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// List handles GET /api/v1/approval-rules.
func (h *RuleHandler) List(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	includeInactive := c.Query("include_inactive") == "true"

	rules, err := h.ruleSvc.List(c.Request.Context(), actor, includeInactive)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.RuleResponse, 0, len(rules))
	for i := range rules {
		out = append(out, toRuleResponse(&rules[i]))
	}
	response.OK(c, out)
}

func toRuleInput(req dto.RuleRequest) ports.RuleInput {
	return ports.RuleInput{
		MinAmount:    req.MinAmount,
		MaxAmount:    req.MaxAmount,
		RequiredRole: domain.Role(req.RequiredRole),
		AutoApprove:  req.AutoApprove,
		SortOrder:    req.SortOrder,
		IsActive:     req.IsActive,
	}
}

func toRuleResponse(r *domain.ApprovalRule) dto.RuleResponse {
	return dto.RuleResponse{
		ID:           r.ID.String(),
		MinAmount:    r.MinAmount,
		MaxAmount:    r.MaxAmount,
		RequiredRole: string(r.RequiredRole),
		AutoApprove:  r.AutoApprove,
		SortOrder:    r.SortOrder,
		IsActive:     r.IsActive,
	}
}
