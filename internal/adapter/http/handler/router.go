package handler

import (
	"backoffice-ops/internal/adapter/http/middleware"
	redisStore "backoffice-ops/internal/adapter/storage/redis"
	"backoffice-ops/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	PaymentSvc     ports.PaymentService
	TaskSvc        ports.TaskService
	WorkflowSvc    ports.WorkflowService
	GrantSvc       ports.GrantService
	RuleSvc        ports.RuleService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep, verifies PostgreSQL and Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Auth routes ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/login", rl("auth_login"), authHandler.Login)
		// Provisioning requires an authenticated administrator.
		auth.POST("/register", jwtAuth, rl("auth_register"), authHandler.Register)
	}

	// --- Payment lifecycle ---
	paymentHandler := NewPaymentHandler(deps.PaymentSvc)
	payments := v1.Group("/payments", jwtAuth)
	{
		payments.POST("", rl("write"), paymentHandler.Create)
		payments.GET("", rl("read"), paymentHandler.List)
		payments.PUT("/batch-status", rl("batch"), paymentHandler.Batch)
		payments.GET("/:id", rl("read"), paymentHandler.Get)
		payments.PATCH("/:id", rl("write"), paymentHandler.Edit)
		payments.DELETE("/:id", rl("write"), paymentHandler.Delete)
		payments.POST("/:id/transition", rl("write"), paymentHandler.Transition)
		payments.GET("/:id/history", rl("read"), paymentHandler.History)
	}

	// --- Tasks ---
	taskHandler := NewTaskHandler(deps.TaskSvc)
	tasks := v1.Group("/tasks", jwtAuth)
	{
		tasks.POST("", rl("write"), taskHandler.Create)
		tasks.GET("", rl("read"), taskHandler.List)
		tasks.GET("/:id", rl("read"), taskHandler.Get)
		tasks.PATCH("/:id", rl("write"), taskHandler.Update)
		tasks.DELETE("/:id", rl("write"), taskHandler.Delete)
	}

	// --- Workflows ---
	workflowHandler := NewWorkflowHandler(deps.WorkflowSvc)
	workflows := v1.Group("/workflows", jwtAuth)
	{
		workflows.POST("", rl("write"), workflowHandler.Create)
		workflows.GET("", rl("read"), workflowHandler.List)
		workflows.GET("/:id", rl("read"), workflowHandler.Get)
		workflows.PATCH("/:id", rl("write"), workflowHandler.Update)
		workflows.DELETE("/:id", rl("write"), workflowHandler.Delete)
	}

	// --- Partner grants ---
	grantHandler := NewGrantHandler(deps.GrantSvc)
	partners := v1.Group("/partners", jwtAuth)
	{
		partners.GET("/:partner_id/grants", rl("read"), grantHandler.List)
		partners.PUT("/:partner_id/grants", rl("write"), grantHandler.Replace)
	}

	// --- Approval rules ---
	ruleHandler := NewRuleHandler(deps.RuleSvc)
	approvalRules := v1.Group("/approval-rules", jwtAuth)
	{
		approvalRules.POST("", rl("write"), ruleHandler.Create)
		approvalRules.GET("", rl("read"), ruleHandler.List)
		approvalRules.PUT("/:id", rl("write"), ruleHandler.Update)
		approvalRules.DELETE("/:id", rl("write"), ruleHandler.Deactivate)
	}

	return r
}
