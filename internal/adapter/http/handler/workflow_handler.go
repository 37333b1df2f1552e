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

// WorkflowHandler handles workflow endpoints.
type WorkflowHandler struct {
	workflowSvc ports.WorkflowService
}

// NewWorkflowHandler creates a new WorkflowHandler.
func NewWorkflowHandler(workflowSvc ports.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflowSvc: workflowSvc}
}

// Create handles POST /api/v1/workflows.
func (h *WorkflowHandler) Create(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	workflow, err := h.workflowSvc.Create(c.Request.Context(), actor, ports.CreateWorkflowRequest{
		BusinessID: req.BusinessID,
		Name:       req.Name,
		TotalSteps: req.TotalSteps,
		Note:       req.Note,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toWorkflowResponse(workflow))
}

// Get handles GET /api/v1/workflows/:id.
func (h *WorkflowHandler) Get(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid workflow id"))
		return
	}

	workflow, err := h.workflowSvc.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toWorkflowResponse(workflow))
}

// List handles GET /api/v1/workflows.
func (h *WorkflowHandler) List(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	businessID, err := queryUUID(c, "business_id")
	if err != nil {
		response.Error(c, apperror.Validation("invalid business_id"))
		return
	}

	req := ports.ListWorkflowsRequest{BusinessID: businessID}
	if raw := c.Query("status"); raw != "" {
		status := domain.WorkflowStatus(raw)
		if !status.Valid() {
			response.Error(c, apperror.Validation("unknown workflow status"))
			return
		}
		req.Status = &status
	}
	req.Page, req.PageSize = parsePagination(c)

	workflows, total, err := h.workflowSvc.List(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.WorkflowResponse, 0, len(workflows))
	for i := range workflows {
		items = append(items, toWorkflowResponse(&workflows[i]))
	}
	response.OK(c, dto.WorkflowListResponse{
		Items:      items,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages(total, req.PageSize),
	})
}

// Update handles PATCH /api/v1/workflows/:id.
func (h *WorkflowHandler) Update(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid workflow id"))
		return
	}

	var req dto.UpdateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	patch := domain.WorkflowPatch{
		Name:        req.Name,
		CurrentStep: req.CurrentStep,
		Note:        req.Note,
	}
	if req.Status != nil {
		status := domain.WorkflowStatus(*req.Status)
		patch.Status = &status
	}

	workflow, err := h.workflowSvc.Update(c.Request.Context(), actor, id, patch)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toWorkflowResponse(workflow))
}

// Delete handles DELETE /api/v1/workflows/:id.
func (h *WorkflowHandler) Delete(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid workflow id"))
		return
	}

	if err := h.workflowSvc.SoftDelete(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// toWorkflowResponse converts domain.Workflow to DTO.
func toWorkflowResponse(w *domain.Workflow) dto.WorkflowResponse {
	return dto.WorkflowResponse{
		ID:          w.ID.String(),
		BusinessID:  w.BusinessID.String(),
		Name:        w.Name,
		Status:      string(w.Status),
		CurrentStep: w.CurrentStep,
		TotalSteps:  w.TotalSteps,
		Note:        w.Note,
		CreatedAt:   formatTime(w.CreatedAt),
		UpdatedAt:   formatTime(w.UpdatedAt),
	}
}
