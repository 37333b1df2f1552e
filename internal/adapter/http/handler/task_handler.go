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

// TaskHandler handles task endpoints.
type TaskHandler struct {
	taskSvc ports.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskSvc ports.TaskService) *TaskHandler {
	return &TaskHandler{taskSvc: taskSvc}
}

// Create handles POST /api/v1/tasks.
func (h *TaskHandler) Create(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	task, err := h.taskSvc.Create(c.Request.Context(), actor, ports.CreateTaskRequest{
		BusinessID: req.BusinessID,
		Title:      req.Title,
		AssigneeID: req.AssigneeID,
		DueDate:    req.DueDate,
		Note:       req.Note,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTaskResponse(task))
}

// Get handles GET /api/v1/tasks/:id.
func (h *TaskHandler) Get(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid task id"))
		return
	}

	task, err := h.taskSvc.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toTaskResponse(task))
}

// List handles GET /api/v1/tasks.
func (h *TaskHandler) List(c *gin.Context) {
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

	req := ports.ListTasksRequest{BusinessID: businessID}
	if raw := c.Query("status"); raw != "" {
		status := domain.TaskStatus(raw)
		if !status.Valid() {
			response.Error(c, apperror.Validation("unknown task status"))
			return
		}
		req.Status = &status
	}
	req.Page, req.PageSize = parsePagination(c)

	tasks, total, err := h.taskSvc.List(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		items = append(items, toTaskResponse(&tasks[i]))
	}
	response.OK(c, dto.TaskListResponse{
		Items:      items,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages(total, req.PageSize),
	})
}

// Update handles PATCH /api/v1/tasks/:id.
func (h *TaskHandler) Update(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid task id"))
		return
	}

	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	patch := domain.TaskPatch{
		Title:      req.Title,
		AssigneeID: req.AssigneeID,
		DueDate:    req.DueDate,
		Note:       req.Note,
	}
	if req.Status != nil {
		status := domain.TaskStatus(*req.Status)
		patch.Status = &status
	}

	task, err := h.taskSvc.Update(c.Request.Context(), actor, id, patch)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toTaskResponse(task))
}

// Delete handles DELETE /api/v1/tasks/:id.
func (h *TaskHandler) Delete(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid task id"))
		return
	}

	if err := h.taskSvc.SoftDelete(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// toTaskResponse converts domain.Task to DTO.
func toTaskResponse(t *domain.Task) dto.TaskResponse {
	return dto.TaskResponse{
		ID:         t.ID.String(),
		BusinessID: t.BusinessID.String(),
		Title:      t.Title,
		Status:     string(t.Status),
		AssigneeID: uuidPtrString(t.AssigneeID),
		DueDate:    timePtrString(t.DueDate),
		Note:       t.Note,
		CreatedAt:  formatTime(t.CreatedAt),
		UpdatedAt:  formatTime(t.UpdatedAt),
	}
}
