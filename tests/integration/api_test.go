package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpHandler "backoffice-ops/internal/adapter/http/handler"
	redisStorage "backoffice-ops/internal/adapter/storage/redis"
	"backoffice-ops/internal/core/domain"
	"backoffice-ops/internal/service"
	"backoffice-ops/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp builds the full application stack on in-memory storage: real HTTP
// layer, middleware, handlers and services over map-backed repos and
// miniredis. Each test gets its own isolated instance.

type testApp struct {
	server *httptest.Server
	redis  *miniredis.Miniredis
}

const (
	adminUsername = "admin"
	adminPassword = "AdminPass123!"
)

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	// Core services with real implementations
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", 24*time.Hour, "test-issuer")

	// In-memory repos
	userRepo := newInMemoryUserRepo()
	grantRepo := newInMemoryGrantRepo()
	ruleRepo := newInMemoryRuleRepo()
	paymentRepo := newInMemoryPaymentRepo()
	auditRepo := newInMemoryAuditRepo()
	taskRepo := newInMemoryTaskRepo()
	workflowRepo := newInMemoryWorkflowRepo()
	transactor := newInMemoryTransactor()

	// Seed the bootstrap administrator
	hash, err := hashSvc.Hash(adminPassword)
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, userRepo.Create(context.Background(), &domain.User{
		ID:           uuid.New(),
		Username:     adminUsername,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		Status:       domain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}))

	// Business services
	log := logger.New("debug", false)
	authSvc := service.NewAuthService(userRepo, hashSvc, tokenSvc, log)
	accessSvc := service.NewAccessService(grantRepo, log)
	ruleSvc := service.NewRuleService(ruleRepo, log)
	paymentSvc := service.NewPaymentService(paymentRepo, auditRepo, ruleSvc, accessSvc, transactor, log)
	taskSvc := service.NewTaskService(taskRepo, auditRepo, accessSvc, transactor, log)
	workflowSvc := service.NewWorkflowService(workflowRepo, auditRepo, accessSvc, transactor, log)
	grantSvc := service.NewGrantService(grantRepo, transactor, log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		PaymentSvc:     paymentSvc,
		TaskSvc:        taskSvc,
		WorkflowSvc:    workflowSvc,
		GrantSvc:       grantSvc,
		RuleSvc:        ruleSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: redisStorage.NewRateLimitStore(rdb),
		Logger:         log,
	})

	server := httptest.NewServer(router)

	return &testApp{
		server: server,
		redis:  mr,
	}
}

func (a *testApp) close() {
	a.server.Close()
	a.redis.Close()
}

// do issues a request and decodes the envelope.
func (a *testApp) do(t *testing.T, method, path, token string, body any) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp.StatusCode, decoded
}

func data(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %v", body)
	return d
}

func (a *testApp) login(t *testing.T, username, password string) string {
	t.Helper()
	code, body := a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, code, "login failed: %v", body)
	return data(t, body)["token"].(string)
}

// register provisions a user through the API using the admin token and
// returns a fresh session token for the new user.
func (a *testApp) register(t *testing.T, adminToken, username, password, role string, partnerID *uuid.UUID) string {
	t.Helper()
	req := map[string]interface{}{
		"username": username,
		"password": password,
		"role":     role,
	}
	if partnerID != nil {
		req["partner_id"] = partnerID.String()
	}
	code, body := a.do(t, http.MethodPost, "/api/v1/auth/register", adminToken, req)
	require.Equal(t, http.StatusCreated, code, "register failed: %v", body)
	return a.login(t, username, password)
}

// --- Integration Tests ---

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestIntegration_RegisterAndLogin(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	adminToken := app.login(t, adminUsername, adminPassword)

	token := app.register(t, adminToken, "ops.manager", "ManagerPass1!", "MANAGER", nil)
	assert.NotEmpty(t, token)

	// Wrong password is rejected
	code, body := app.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "ops.manager",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "AUTH_003", body["error_code"])

	// Non-admins may not provision users
	code, body = app.do(t, http.MethodPost, "/api/v1/auth/register", token, map[string]string{
		"username": "sneaky",
		"password": "SneakyPass1!",
		"role":     "ADMIN",
	})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "ACC_001", body["error_code"])
}

func TestIntegration_PaymentCreate_DerivedAmounts(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	adminToken := app.login(t, adminUsername, adminPassword)
	managerToken := app.register(t, adminToken, "ops.manager", "ManagerPass1!", "MANAGER", nil)

	// 1.5M crosses the withholding bracket: 102,100 + 500,000*20.42% = 204,200
	code, body := app.do(t, http.MethodPost, "/api/v1/payments", managerToken, map[string]interface{}{
		"business_id": uuid.New().String(),
		"type":        "CONTRACTOR",
		"amount":      1_500_000,
	})
	require.Equal(t, http.StatusCreated, code, "create failed: %v", body)

	d := data(t, body)
	assert.Equal(t, "DRAFT", d["status"])
	assert.Equal(t, float64(150_000), d["tax"])
	assert.Equal(t, float64(204_200), d["withholding_tax"])
	assert.Equal(t, float64(1_650_000), d["total_amount"])
	assert.Equal(t, float64(1_445_800), d["net_amount"])
	assert.Equal(t, float64(1), d["version"])
}

func TestIntegration_AutoApproveRule(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	adminToken := app.login(t, adminUsername, adminPassword)

	code, body := app.do(t, http.MethodPost, "/api/v1/approval-rules", adminToken, map[string]interface{}{
		"min_amount":    0,
		"max_amount":    100_000,
		"required_role": "MANAGER",
		"auto_approve":  true,
		"sort_order":    1,
		"is_active":     true,
	})
	require.Equal(t, http.StatusCreated, code, "rule create failed: %v", body)

	// Small submitted payment goes straight to APPROVED
	code, body = app.do(t, http.MethodPost, "/api/v1/payments", adminToken, map[string]interface{}{
		"business_id": uuid.New().String(),
		"type":        "EXPENSE",
		"amount":      50_000,
		"submit":      true,
	})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "APPROVED", data(t, body)["status"])

	// A plain create under the rule also bypasses DRAFT
	code, body = app.do(t, http.MethodPost, "/api/v1/payments", adminToken, map[string]interface{}{
		"business_id": uuid.New().String(),
		"type":        "EXPENSE",
		"amount":      60_000,
	})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "APPROVED", data(t, body)["status"])

	// Above the rule's range: submitted payments stay PENDING
	code, body = app.do(t, http.MethodPost, "/api/v1/payments", adminToken, map[string]interface{}{
		"business_id": uuid.New().String(),
		"type":        "EXPENSE",
		"amount":      500_000,
		"submit":      true,
	})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "PENDING", data(t, body)["status"])
}

func TestIntegration_PaymentLifecycleAndAudit(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	adminToken := app.login(t, adminUsername, adminPassword)

	code, body := app.do(t, http.MethodPost, "/api/v1/payments", adminToken, map[string]interface{}{
		"business_id": uuid.New().String(),
		"type":        "CONTRACTOR",
		"amount":      300_000,
		"submit":      true,
	})
	require.Equal(t, http.StatusCreated, code)
	id := data(t, body)["id"].(string)

	// PENDING -> APPROVED -> PAID
	code, body = app.do(t, http.MethodPost, "/api/v1/payments/"+id+"/transition", adminToken, map[string]string{"status": "APPROVED"})
	require.Equal(t, http.StatusOK, code, "approve failed: %v", body)

	code, body = app.do(t, http.MethodPost, "/api/v1/payments/"+id+"/transition", adminToken, map[string]string{"status": "PAID"})
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, data(t, body)["paid_at"])

	// Skipping states is rejected
	code, body = app.do(t, http.MethodPost, "/api/v1/payments/"+id+"/transition", adminToken, map[string]string{"status": "DRAFT"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "PAY_005", body["error_code"])

	// Amount edits on a PAID payment need an adjustment reason
	code, body = app.do(t, http.MethodPatch, "/api/v1/payments/"+id, adminToken, map[string]interface{}{
		"amount": 310_000,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "PAY_003", body["error_code"])

	code, body = app.do(t, http.MethodPatch, "/api/v1/payments/"+id, adminToken, map[string]interface{}{
		"amount":            310_000,
		"adjustment_reason": "invoice correction after settlement",
	})
	require.Equal(t, http.StatusOK, code, "adjusted edit failed: %v", body)
	assert.Equal(t, float64(310_000), data(t, body)["amount"])

	// History: CREATE, two transitions, one UPDATE, in sequence order
	code, body = app.do(t, http.MethodGet, "/api/v1/payments/"+id+"/history", adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	items := data(t, body)["items"].([]interface{})
	require.Len(t, items, 4)

	first := items[0].(map[string]interface{})
	assert.Equal(t, "CREATE", first["action"])
	assert.NotNil(t, first["initial"])

	last := items[3].(map[string]interface{})
	assert.Equal(t, "UPDATE", last["action"])
	changes := last["changes"].([]interface{})
	var changedFields []string
	for _, c := range changes {
		changedFields = append(changedFields, c.(map[string]interface{})["field"].(string))
	}
	assert.Contains(t, changedFields, "amount")
}

func TestIntegration_PartnerScoping(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	adminToken := app.login(t, adminUsername, adminPassword)

	businessA := uuid.New()
	businessB := uuid.New()
	partnerID := uuid.New()

	partnerToken := app.register(t, adminToken, "partner.acme", "PartnerPass1!", "PARTNER", &partnerID)

	// Grant the partner read-only payments access to business A
	code, body := app.do(t, http.MethodPut, "/api/v1/partners/"+partnerID.String()+"/grants", adminToken, map[string]interface{}{
		"accesses": []map[string]interface{}{
			{
				"business_id": businessA.String(),
				"permissions": []string{"payments"},
				"can_edit":    false,
				"is_active":   true,
			},
		},
	})
	require.Equal(t, http.StatusOK, code, "grant replace failed: %v", body)

	// One payment per business
	var paymentA, paymentB string
	for _, biz := range []struct {
		id  uuid.UUID
		dst *string
	}{{businessA, &paymentA}, {businessB, &paymentB}} {
		code, body = app.do(t, http.MethodPost, "/api/v1/payments", adminToken, map[string]interface{}{
			"business_id": biz.id.String(),
			"type":        "EXPENSE",
			"amount":      80_000,
		})
		require.Equal(t, http.StatusCreated, code)
		*biz.dst = data(t, body)["id"].(string)
	}

	// Partner list sees only business A
	code, body = app.do(t, http.MethodGet, "/api/v1/payments", partnerToken, nil)
	require.Equal(t, http.StatusOK, code)
	d := data(t, body)
	assert.Equal(t, float64(1), d["total"])
	items := d["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, businessA.String(), items[0].(map[string]interface{})["business_id"])

	// Out-of-scope detail reads as absent, not forbidden
	code, body = app.do(t, http.MethodGet, "/api/v1/payments/"+paymentB, partnerToken, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "ACC_002", body["error_code"])

	// In-scope detail works
	code, _ = app.do(t, http.MethodGet, "/api/v1/payments/"+paymentA, partnerToken, nil)
	assert.Equal(t, http.StatusOK, code)

	// Read-only grant blocks edits
	code, body = app.do(t, http.MethodPatch, "/api/v1/payments/"+paymentA, partnerToken, map[string]interface{}{
		"note": "partner annotation",
	})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "ACC_001", body["error_code"])

	// Partners never transition payments, grants notwithstanding
	code, body = app.do(t, http.MethodPost, "/api/v1/payments/"+paymentA+"/transition", partnerToken, map[string]string{"status": "PENDING"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "ACC_001", body["error_code"])
}

func TestIntegration_BatchTransition_ItemIsolation(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	adminToken := app.login(t, adminUsername, adminPassword)

	createPayment := func(submit bool) string {
		code, body := app.do(t, http.MethodPost, "/api/v1/payments", adminToken, map[string]interface{}{
			"business_id": uuid.New().String(),
			"type":        "EXPENSE",
			"amount":      40_000,
			"submit":      submit,
		})
		require.Equal(t, http.StatusCreated, code)
		return data(t, body)["id"].(string)
	}

	pending1 := createPayment(true)
	pending2 := createPayment(true)
	draft := createPayment(false) // DRAFT cannot go straight to APPROVED

	code, body := app.do(t, http.MethodPut, "/api/v1/payments/batch-status", adminToken, map[string]interface{}{
		"payment_ids": []string{pending1, pending2, draft},
		"status":      "APPROVED",
	})
	require.Equal(t, http.StatusOK, code, "batch failed: %v", body)

	d := data(t, body)
	assert.Equal(t, float64(2), d["success"])
	assert.Equal(t, float64(1), d["failed"])
	errs := d["errors"].([]interface{})
	require.Len(t, errs, 1)
	assert.Equal(t, draft, errs[0].(map[string]interface{})["id"])

	// The failed item is untouched, the others moved
	code, body = app.do(t, http.MethodGet, "/api/v1/payments/"+draft, adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "DRAFT", data(t, body)["status"])

	code, body = app.do(t, http.MethodGet, "/api/v1/payments/"+pending1, adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "APPROVED", data(t, body)["status"])
}

func TestIntegration_OptimisticVersioning(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	adminToken := app.login(t, adminUsername, adminPassword)

	code, body := app.do(t, http.MethodPost, "/api/v1/payments", adminToken, map[string]interface{}{
		"business_id": uuid.New().String(),
		"type":        "OTHER",
		"amount":      25_000,
	})
	require.Equal(t, http.StatusCreated, code)
	id := data(t, body)["id"].(string)

	// First edit bumps the version
	code, body = app.do(t, http.MethodPatch, "/api/v1/payments/"+id, adminToken, map[string]interface{}{
		"note":             "first edit",
		"expected_version": 1,
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), data(t, body)["version"])

	// A stale expected_version is rejected
	code, body = app.do(t, http.MethodPatch, "/api/v1/payments/"+id, adminToken, map[string]interface{}{
		"note":             "second edit",
		"expected_version": 1,
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "PAY_006", body["error_code"])
}

func TestIntegration_TasksAndWorkflows(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	adminToken := app.login(t, adminUsername, adminPassword)
	businessID := uuid.New()

	code, body := app.do(t, http.MethodPost, "/api/v1/tasks", adminToken, map[string]interface{}{
		"business_id": businessID.String(),
		"title":       "reconcile September invoices",
	})
	require.Equal(t, http.StatusCreated, code, "task create failed: %v", body)
	taskID := data(t, body)["id"].(string)
	assert.Equal(t, "OPEN", data(t, body)["status"])

	code, body = app.do(t, http.MethodPatch, "/api/v1/tasks/"+taskID, adminToken, map[string]interface{}{
		"status": "DONE",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "DONE", data(t, body)["status"])

	code, body = app.do(t, http.MethodPost, "/api/v1/workflows", adminToken, map[string]interface{}{
		"business_id": businessID.String(),
		"name":        "month-end close",
		"total_steps": 4,
	})
	require.Equal(t, http.StatusCreated, code, "workflow create failed: %v", body)
	wfID := data(t, body)["id"].(string)
	assert.Equal(t, "ACTIVE", data(t, body)["status"])

	code, body = app.do(t, http.MethodPatch, "/api/v1/workflows/"+wfID, adminToken, map[string]interface{}{
		"current_step": 4,
		"status":       "COMPLETED",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(4), data(t, body)["current_step"])

	// Deleted records disappear from reads
	code, _ = app.do(t, http.MethodDelete, "/api/v1/tasks/"+taskID, adminToken, nil)
	require.Equal(t, http.StatusNoContent, code)
	code, body = app.do(t, http.MethodGet, "/api/v1/tasks/"+taskID, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "ACC_002", body["error_code"])
}

func TestIntegration_RateLimitLogin(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	// The login group allows 10 attempts per window per client
	var lastCode int
	for i := 0; i < 11; i++ {
		lastCode, _ = app.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"username": "nobody",
			"password": fmt.Sprintf("wrong-%d", i),
		})
	}
	assert.Equal(t, http.StatusTooManyRequests, lastCode)
}
