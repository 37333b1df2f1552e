package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backoffice-ops/internal/adapter/http/dto"
	"backoffice-ops/internal/adapter/http/middleware"
	"backoffice-ops/internal/core/domain"
	"backoffice-ops/internal/core/ports"
	"backoffice-ops/internal/core/ports/mocks"
	"backoffice-ops/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func adminActor() domain.Actor {
	return domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin}
}

func managerActor() domain.Actor {
	return domain.Actor{ID: uuid.New(), Role: domain.RoleManager}
}

func testContext(t *testing.T, method, target string, body any, actor *domain.Actor) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	if actor != nil {
		c.Set(middleware.CtxActor, *actor)
	}
	return c, w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %s", w.Body.String())
	return data
}

// --- Auth Handler Tests ---

func TestRegister_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	actor := adminActor()
	userID := uuid.New()
	mockAuth.EXPECT().Register(gomock.Any(), actor, ports.RegisterRequest{
		Username: "ops.tanaka",
		Password: "password123",
		Role:     domain.RoleManager,
	}).Return(&domain.User{
		ID:       userID,
		Username: "ops.tanaka",
		Role:     domain.RoleManager,
		Status:   domain.UserStatusActive,
	}, nil)

	c, w := testContext(t, http.MethodPost, "/api/v1/auth/register", dto.RegisterRequest{
		Username: "ops.tanaka",
		Password: "password123",
		Role:     "MANAGER",
	}, &actor)

	h.Register(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, userID.String(), data["id"])
	assert.Equal(t, "MANAGER", data["role"])
}

func TestRegister_UnknownRole(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)
	actor := adminActor()

	c, w := testContext(t, http.MethodPost, "/", dto.RegisterRequest{
		Username: "x.y",
		Password: "password123",
		Role:     "SUPERVISOR",
	}, &actor)

	h.Register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister_MissingActor(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	c, w := testContext(t, http.MethodPost, "/", dto.RegisterRequest{
		Username: "x.y",
		Password: "password123",
		Role:     "MEMBER",
	}, nil)

	h.Register(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	expiry := time.Now().Add(12 * time.Hour)
	mockAuth.EXPECT().Login(gomock.Any(), "ops.tanaka", "password123").Return("jwt-token-123", expiry, nil)

	c, w := testContext(t, http.MethodPost, "/", dto.LoginRequest{
		Username: "ops.tanaka",
		Password: "password123",
	}, nil)

	h.Login(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "jwt-token-123", data["token"])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	mockAuth.EXPECT().Login(gomock.Any(), "bad", "badpassword").
		Return("", time.Time{}, apperror.ErrInvalidCredentials())

	c, w := testContext(t, http.MethodPost, "/", dto.LoginRequest{
		Username: "bad",
		Password: "badpassword",
	}, nil)

	h.Login(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// --- Payment Handler Tests ---

func samplePayment() *domain.Payment {
	now := time.Now()
	return &domain.Payment{
		ID:             uuid.New(),
		BusinessID:     uuid.New(),
		Type:           domain.PaymentTypeContractor,
		Amount:         500_000,
		Tax:            50_000,
		TotalAmount:    550_000,
		WithholdingTax: 51_050,
		NetAmount:      498_950,
		Status:         domain.PaymentStatusDraft,
		Version:        1,
		CreatedBy:      uuid.New(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestPaymentCreate_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayment := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockPayment)

	actor := managerActor()
	payment := samplePayment()
	mockPayment.EXPECT().Create(gomock.Any(), actor, gomock.Any()).Return(payment, nil)

	c, w := testContext(t, http.MethodPost, "/", dto.CreatePaymentRequest{
		BusinessID: payment.BusinessID,
		Type:       "CONTRACTOR",
		Amount:     500_000,
	}, &actor)

	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, payment.ID.String(), data["id"])
	assert.Equal(t, float64(498_950), data["net_amount"])
	assert.Equal(t, "DRAFT", data["status"])
}

func TestPaymentCreate_BindingError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayment := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockPayment)
	actor := managerActor()

	// Missing amount and type => binding error
	c, w := testContext(t, http.MethodPost, "/", map[string]any{
		"business_id": uuid.New().String(),
	}, &actor)

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayment := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockPayment)

	actor := managerActor()
	id := uuid.New()
	mockPayment.EXPECT().Get(gomock.Any(), actor, id).Return(nil, apperror.ErrNotFound("Payment"))

	c, w := testContext(t, http.MethodGet, "/", nil, &actor)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPaymentGet_BadID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayment := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockPayment)
	actor := managerActor()

	c, w := testContext(t, http.MethodGet, "/", nil, &actor)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

	h.Get(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentList_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayment := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockPayment)

	actor := managerActor()
	payment := samplePayment()
	mockPayment.EXPECT().List(gomock.Any(), actor, gomock.Any()).DoAndReturn(
		func(_ interface{}, _ domain.Actor, req ports.ListPaymentsRequest) ([]domain.Payment, int64, error) {
			assert.Equal(t, 1, req.Page)
			assert.Equal(t, 20, req.PageSize)
			require.NotNil(t, req.Status)
			assert.Equal(t, domain.PaymentStatusDraft, *req.Status)
			return []domain.Payment{*payment}, 1, nil
		})

	c, w := testContext(t, http.MethodGet, "/?status=DRAFT", nil, &actor)

	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	items := data["items"].([]interface{})
	assert.Len(t, items, 1)
	assert.Equal(t, float64(1), data["total"])
	assert.Equal(t, float64(1), data["total_pages"])
}

func TestPaymentList_UnknownStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayment := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockPayment)
	actor := managerActor()

	c, w := testContext(t, http.MethodGet, "/?status=SHIPPED", nil, &actor)

	h.List(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentEdit_AdjustmentReasonRequired(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayment := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockPayment)

	actor := adminActor()
	id := uuid.New()
	mockPayment.EXPECT().Edit(gomock.Any(), actor, id, gomock.Any()).
		Return(nil, apperror.ErrAdjustmentReasonRequired())

	amount := int64(600_000)
	c, w := testContext(t, http.MethodPatch, "/", dto.EditPaymentRequest{Amount: &amount}, &actor)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.Edit(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "PAY_003", resp["error_code"])
}

func TestPaymentEdit_VersionConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayment := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockPayment)

	actor := adminActor()
	id := uuid.New()
	mockPayment.EXPECT().Edit(gomock.Any(), actor, id, gomock.Any()).
		Return(nil, apperror.ErrConflict())

	note := "updated note"
	c, w := testContext(t, http.MethodPatch, "/", dto.EditPaymentRequest{Note: &note}, &actor)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.Edit(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPaymentTransition_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayment := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockPayment)

	actor := managerActor()
	payment := samplePayment()
	payment.Status = domain.PaymentStatusPending
	mockPayment.EXPECT().Transition(gomock.Any(), actor, payment.ID, domain.PaymentStatusPending).
		Return(payment, nil)

	c, w := testContext(t, http.MethodPost, "/", dto.TransitionRequest{Status: "PENDING"}, &actor)
	c.Params = gin.Params{{Key: "id", Value: payment.ID.String()}}

	h.Transition(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "PENDING", data["status"])
}

func TestPaymentTransition_InvalidTransition(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayment := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockPayment)

	actor := managerActor()
	id := uuid.New()
	mockPayment.EXPECT().Transition(gomock.Any(), actor, id, domain.PaymentStatusPaid).
		Return(nil, apperror.ErrInvalidTransition("DRAFT", "PAID"))

	c, w := testContext(t, http.MethodPost, "/", dto.TransitionRequest{Status: "PAID"}, &actor)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.Transition(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestPaymentBatch_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayment := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockPayment)

	actor := adminActor()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	mockPayment.EXPECT().ApplyBatch(gomock.Any(), actor, ids, domain.PaymentStatusApproved).
		Return(&ports.BatchResult{
			Success: 2,
			Failed:  1,
			Errors:  []ports.BatchError{{ID: ids[2], Reason: "invalid transition"}},
		}, nil)

	c, w := testContext(t, http.MethodPost, "/", dto.BatchTransitionRequest{
		IDs:    ids,
		Status: "APPROVED",
	}, &actor)

	h.Batch(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(2), data["success"])
	assert.Equal(t, float64(1), data["failed"])
}

func TestPaymentBatch_EmptyIDsRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayment := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockPayment)
	actor := adminActor()

	c, w := testContext(t, http.MethodPost, "/", dto.BatchTransitionRequest{
		IDs:    []uuid.UUID{},
		Status: "APPROVED",
	}, &actor)

	h.Batch(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentHistory_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayment := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockPayment)

	actor := managerActor()
	id := uuid.New()
	mockPayment.EXPECT().History(gomock.Any(), actor, id).Return([]ports.PaymentEvent{
		{
			ID:      uuid.New(),
			Action:  domain.AuditActionCreate,
			ActorID: actor.ID,
			Seq:     1,
			Initial: &domain.PaymentSnapshot{Status: domain.PaymentStatusDraft, Amount: 100_000},
		},
		{
			ID:      uuid.New(),
			Action:  domain.AuditActionUpdate,
			ActorID: actor.ID,
			Seq:     2,
			Changes: []domain.FieldChange{{Field: "amount", Before: "100000", After: "150000"}},
		},
	}, nil)

	c, w := testContext(t, http.MethodGet, "/", nil, &actor)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.History(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	items := data["items"].([]interface{})
	require.Len(t, items, 2)
	first := items[0].(map[string]interface{})
	assert.Equal(t, "CREATE", first["action"])
}

// --- Grant Handler Tests ---

func TestGrantReplace_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGrant := mocks.NewMockGrantService(ctrl)
	h := NewGrantHandler(mockGrant)

	actor := adminActor()
	partnerID := uuid.New()
	businessID := uuid.New()

	mockGrant.EXPECT().Replace(gomock.Any(), actor, partnerID, gomock.Len(1)).
		Return([]domain.PermissionGrant{{
			ID:          uuid.New(),
			PartnerID:   partnerID,
			BusinessID:  businessID,
			Permissions: []domain.ContentType{domain.ContentPayments},
			CanEdit:     true,
			IsActive:    true,
		}}, nil)

	c, w := testContext(t, http.MethodPut, "/", dto.ReplaceGrantsRequest{
		Accesses: []dto.GrantItem{{
			BusinessID:  businessID,
			Permissions: []string{"payments"},
			CanEdit:     true,
			IsActive:    true,
		}},
	}, &actor)
	c.Params = gin.Params{{Key: "partner_id", Value: partnerID.String()}}

	h.Replace(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGrantList_ForbiddenForOtherPartner(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGrant := mocks.NewMockGrantService(ctrl)
	h := NewGrantHandler(mockGrant)

	ownID := uuid.New()
	actor := domain.Actor{ID: uuid.New(), Role: domain.RolePartner, PartnerID: &ownID}
	otherID := uuid.New()
	mockGrant.EXPECT().ListForPartner(gomock.Any(), actor, otherID).
		Return(nil, apperror.ErrForbidden("cannot view other partners' grants"))

	c, w := testContext(t, http.MethodGet, "/", nil, &actor)
	c.Params = gin.Params{{Key: "partner_id", Value: otherID.String()}}

	h.List(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

// --- Rule Handler Tests ---

func TestRuleCreate_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRule := mocks.NewMockRuleService(ctrl)
	h := NewRuleHandler(mockRule)

	actor := adminActor()
	max := int64(100_000)
	mockRule.EXPECT().Create(gomock.Any(), actor, ports.RuleInput{
		MinAmount:    0,
		MaxAmount:    &max,
		RequiredRole: domain.RoleManager,
		AutoApprove:  true,
		SortOrder:    1,
		IsActive:     true,
	}).Return(&domain.ApprovalRule{
		ID:           uuid.New(),
		MaxAmount:    &max,
		RequiredRole: domain.RoleManager,
		AutoApprove:  true,
		SortOrder:    1,
		IsActive:     true,
	}, nil)

	c, w := testContext(t, http.MethodPost, "/", dto.RuleRequest{
		MaxAmount:    &max,
		RequiredRole: "MANAGER",
		AutoApprove:  true,
		SortOrder:    1,
		IsActive:     true,
	}, &actor)

	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, true, data["auto_approve"])
}

func TestRuleDeactivate_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRule := mocks.NewMockRuleService(ctrl)
	h := NewRuleHandler(mockRule)

	actor := adminActor()
	id := uuid.New()
	mockRule.EXPECT().Deactivate(gomock.Any(), actor, id).Return(nil)

	c, w := testContext(t, http.MethodDelete, "/", nil, &actor)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.Deactivate(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, w.Code)
}

// --- Task Handler Tests ---

func TestTaskCreate_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTask := mocks.NewMockTaskService(ctrl)
	h := NewTaskHandler(mockTask)

	actor := managerActor()
	businessID := uuid.New()
	mockTask.EXPECT().Create(gomock.Any(), actor, gomock.Any()).Return(&domain.Task{
		ID:         uuid.New(),
		BusinessID: businessID,
		Title:      "reconcile invoices",
		Status:     domain.TaskStatusOpen,
	}, nil)

	c, w := testContext(t, http.MethodPost, "/", dto.CreateTaskRequest{
		BusinessID: businessID,
		Title:      "reconcile invoices",
	}, &actor)

	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "OPEN", data["status"])
}

func TestTaskUpdate_OutOfScopeNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTask := mocks.NewMockTaskService(ctrl)
	h := NewTaskHandler(mockTask)

	ownID := uuid.New()
	actor := domain.Actor{ID: uuid.New(), Role: domain.RolePartner, PartnerID: &ownID}
	id := uuid.New()
	mockTask.EXPECT().Update(gomock.Any(), actor, id, gomock.Any()).
		Return(nil, apperror.ErrNotFound("Task"))

	status := "DONE"
	c, w := testContext(t, http.MethodPatch, "/", dto.UpdateTaskRequest{Status: &status}, &actor)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.Update(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- Workflow Handler Tests ---

func TestWorkflowUpdate_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWorkflow := mocks.NewMockWorkflowService(ctrl)
	h := NewWorkflowHandler(mockWorkflow)

	actor := managerActor()
	id := uuid.New()
	step := 5
	mockWorkflow.EXPECT().Update(gomock.Any(), actor, id, gomock.Any()).Return(&domain.Workflow{
		ID:          id,
		BusinessID:  uuid.New(),
		Name:        "month-end close",
		Status:      domain.WorkflowStatusCompleted,
		CurrentStep: 5,
		TotalSteps:  5,
	}, nil)

	c, w := testContext(t, http.MethodPatch, "/", dto.UpdateWorkflowRequest{CurrentStep: &step}, &actor)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.Update(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "COMPLETED", data["status"])
}

// --- Health Check Test ---

func TestHealthCheck(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck()(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}
