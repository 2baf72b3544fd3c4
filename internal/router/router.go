package router

import (
	"time"

	"neuriax/internal/config"
	"neuriax/internal/handler"
	"neuriax/internal/middleware"
	"neuriax/internal/repository"
	"neuriax/internal/service"
	"neuriax/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, gateway service.ChargeConfirmer, dispatcher *worker.Dispatcher) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	cashRepo := repository.NewCashRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, cfg)
	cashSvc := service.NewCashService(cashRepo)
	invoiceSvc := service.NewInvoiceService(invoiceRepo, sequenceRepo, gateway, dispatcher)
	statsSvc := service.NewStatsService(statsRepo, rdb, time.Duration(cfg.StatsCacheSeconds)*time.Second)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	cashH := handler.NewCashHandler(cashSvc)
	invoiceH := handler.NewInvoiceHandler(invoiceSvc)
	statsH := handler.NewStatsHandler(statsSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles: operator, manager, admin — declared per-endpoint
		cash := v1.Group("/cash")
		{
			cash.POST("/open", middleware.RequireRole("operator", "manager", "admin"), cashH.Open)
			cash.POST("/movements", middleware.RequireRole("operator", "manager", "admin"), cashH.RegisterMovement)
			cash.GET("/:id/balance", middleware.RequireRole("operator", "manager", "admin"), cashH.Balance)
			cash.POST("/reconcile", middleware.RequireRole("operator", "manager", "admin"), cashH.Reconcile)
			cash.POST("/close", middleware.RequireRole("operator", "manager", "admin"), cashH.Close)
			cash.GET("/current", middleware.RequireRole("operator", "manager", "admin"), cashH.Current)
			cash.GET("/history", middleware.RequireRole("manager", "admin"), cashH.History)
		}

		invoices := v1.Group("/invoices")
		{
			invoices.POST("", middleware.RequireRole("operator", "manager", "admin"), invoiceH.Create)
			invoices.GET("", middleware.RequireRole("operator", "manager", "admin"), invoiceH.List)
			// static route before the :id wildcard
			invoices.GET("/overdue", middleware.RequireRole("manager", "admin"), invoiceH.ListOverdue)
			invoices.GET("/:id", middleware.RequireRole("operator", "manager", "admin"), invoiceH.Get)
			invoices.POST("/:id/payments", middleware.RequireRole("operator", "manager", "admin"), invoiceH.ApplyPayment)
			invoices.POST("/:id/void", middleware.RequireRole("manager", "admin"), invoiceH.Void)
			invoices.GET("/:id/export", middleware.RequireRole("operator", "manager", "admin"), invoiceH.Export)
		}

		v1.GET("/statistics", middleware.RequireRole("manager", "admin"), statsH.Summary)
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
