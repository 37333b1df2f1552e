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

// GrantHandler handles partner permission grant endpoints.
type GrantHandler struct {
	grantSvc ports.GrantService
}

// NewGrantHandler creates a new GrantHandler.
func NewGrantHandler(grantSvc ports.GrantService) *GrantHandler {
	return &GrantHandler{grantSvc: grantSvc}
}

// Replace handles PUT /api/v1/partners/:partner_id/grants.
func (h *GrantHandler) Replace(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	partnerID, err := uuid.Parse(c.Param("partner_id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid partner id"))
		return
	}

	var req dto.ReplaceGrantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	inputs := make([]ports.GrantInput, 0, len(req.Accesses))
	for _, g := range req.Accesses {
		inputs = append(inputs, ports.GrantInput{
			BusinessID:  g.BusinessID,
			Permissions: g.ContentTypes(),
			CanEdit:     g.CanEdit,
			IsActive:    g.IsActive,
		})
	}

	grants, err := h.grantSvc.Replace(c.Request.Context(), actor, partnerID, inputs)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toGrantResponses(grants))
}

// List handles GET /api/v1/partners/:partner_id/grants.
func (h *GrantHandler) List(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	partnerID, err := uuid.Parse(c.Param("partner_id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid partner id"))
		return
	}

	grants, err := h.grantSvc.ListForPartner(c.Request.Context(), actor, partnerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toGrantResponses(grants))
}

func toGrantResponses(grants []domain.PermissionGrant) []dto.GrantResponse {
	out := make([]dto.GrantResponse, 0, len(grants))
	for i := range grants {
		g := &grants[i]
		perms := make([]string, 0, len(g.Permissions))
		for _, p := range g.Permissions {
			perms = append(perms, string(p))
		}
		out = append(out, dto.GrantResponse{
			ID:          g.ID.String(),
			PartnerID:   g.PartnerID.String(),
			BusinessID:  g.BusinessID.String(),
			Permissions: perms,
			CanEdit:     g.CanEdit,
			IsActive:    g.IsActive,
			UpdatedAt:   formatTime(g.UpdatedAt),
		})
	}
	return out
}
