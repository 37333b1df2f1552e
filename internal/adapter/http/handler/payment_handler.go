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

// PaymentHandler handles payment lifecycle endpoints.
type PaymentHandler struct {
	paymentSvc ports.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentSvc ports.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc}
}

// Create handles POST /api/v1/payments.
func (h *PaymentHandler) Create(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	payment, err := h.paymentSvc.Create(c.Request.Context(), actor, ports.CreatePaymentRequest{
		BusinessID:     req.BusinessID,
		PartnerID:      req.PartnerID,
		CategoryID:     req.CategoryID,
		Type:           domain.PaymentType(req.Type),
		Amount:         req.Amount,
		Tax:            req.Tax,
		WithholdingTax: req.WithholdingTax,
		Period:         req.Period,
		DueDate:        req.DueDate,
		Note:           req.Note,
		Submit:         req.Submit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toPaymentResponse(payment))
}

// Get handles GET /api/v1/payments/:id.
func (h *PaymentHandler) Get(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid payment id"))
		return
	}

	payment, err := h.paymentSvc.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toPaymentResponse(payment))
}

// List handles GET /api/v1/payments.
func (h *PaymentHandler) List(c *gin.Context) {
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

	req := ports.ListPaymentsRequest{BusinessID: businessID}
	if raw := c.Query("status"); raw != "" {
		status := domain.PaymentStatus(raw)
		if !status.Valid() {
			response.Error(c, apperror.Validation("unknown payment status"))
			return
		}
		req.Status = &status
	}
	if raw := c.Query("type"); raw != "" {
		ptype := domain.PaymentType(raw)
		req.Type = &ptype
	}
	if raw := c.Query("period"); raw != "" {
		req.Period = &raw
	}
	req.Page, req.PageSize = parsePagination(c)

	payments, total, err := h.paymentSvc.List(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.PaymentResponse, 0, len(payments))
	for i := range payments {
		items = append(items, toPaymentResponse(&payments[i]))
	}
	response.OK(c, dto.PaymentListResponse{
		Items:      items,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages(total, req.PageSize),
	})
}

// Edit handles PATCH /api/v1/payments/:id.
func (h *PaymentHandler) Edit(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid payment id"))
		return
	}

	var req dto.EditPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	patch := domain.PaymentPatch{
		Amount:           req.Amount,
		Tax:              req.Tax,
		WithholdingTax:   req.WithholdingTax,
		CategoryID:       req.CategoryID,
		Period:           req.Period,
		DueDate:          req.DueDate,
		Note:             req.Note,
		AdjustmentReason: req.AdjustmentReason,
		ExpectedVersion:  req.ExpectedVersion,
	}
	if req.Type != nil {
		ptype := domain.PaymentType(*req.Type)
		patch.Type = &ptype
	}

	payment, err := h.paymentSvc.Edit(c.Request.Context(), actor, id, patch)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toPaymentResponse(payment))
}

// Transition handles POST /api/v1/payments/:id/transition.
func (h *PaymentHandler) Transition(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid payment id"))
		return
	}

	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	payment, err := h.paymentSvc.Transition(c.Request.Context(), actor, id, domain.PaymentStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toPaymentResponse(payment))
}

// Delete handles DELETE /api/v1/payments/:id.
func (h *PaymentHandler) Delete(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid payment id"))
		return
	}

	if err := h.paymentSvc.SoftDelete(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// History handles GET /api/v1/payments/:id/history.
func (h *PaymentHandler) History(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid payment id"))
		return
	}

	events, err := h.paymentSvc.History(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.HistoryResponse{Items: events})
}

// Batch handles PUT /api/v1/payments/batch-status.
func (h *PaymentHandler) Batch(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.BatchTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.paymentSvc.ApplyBatch(c.Request.Context(), actor, req.IDs, domain.PaymentStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, result)
}

// toPaymentResponse converts domain.Payment to DTO.
func toPaymentResponse(p *domain.Payment) dto.PaymentResponse {
	return dto.PaymentResponse{
		ID:               p.ID.String(),
		BusinessID:       p.BusinessID.String(),
		PartnerID:        uuidPtrString(p.PartnerID),
		CategoryID:       uuidPtrString(p.CategoryID),
		Type:             string(p.Type),
		Amount:           p.Amount,
		Tax:              p.Tax,
		TotalAmount:      p.TotalAmount,
		WithholdingTax:   p.WithholdingTax,
		NetAmount:        p.NetAmount,
		Status:           string(p.Status),
		Period:           p.Period,
		DueDate:          timePtrString(p.DueDate),
		PaidAt:           timePtrString(p.PaidAt),
		AdjustmentReason: p.AdjustmentReason,
		Note:             p.Note,
		Version:          p.Version,
		CreatedBy:        p.CreatedBy.String(),
		CreatedAt:        formatTime(p.CreatedAt),
		UpdatedAt:        formatTime(p.UpdatedAt),
	}
}
