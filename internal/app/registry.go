package app

import (
	"database/sql"
	"net/http"

	"go-incentive/internal/approval"
	"go-incentive/internal/assignment"
	"go-incentive/internal/calculation"
	"go-incentive/internal/config"
	"go-incentive/internal/department"
	"go-incentive/internal/eligibility"
	"go-incentive/internal/employee"
	"go-incentive/internal/messaging/kafka"
	"go-incentive/internal/middleware"
	"go-incentive/internal/plan"
	"go-incentive/internal/shared/counter"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// services are shared between the HTTP API and the scheduler.
type services struct {
	plans        plan.Service
	assignments  assignment.Service
	calculations calculation.Service
	approvals    approval.Service
}

func buildServices(db *sql.DB, gormDB *gorm.DB, rdb *redis.Client, cfg config.AppConfig, logger *zap.Logger) services {
	// --- Repositories ---
	planRepo := plan.NewRepository(gormDB)
	assignmentRepo := assignment.NewRepository(gormDB)
	calculationRepo := calculation.NewRepository(gormDB)
	approvalRepo := approval.NewRepository(gormDB)
	employeeRepo := employee.NewRepository(gormDB)
	departmentRepo := department.NewRepository(gormDB)
	counterRepo := counter.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- Domain ---
	validator := plan.NewValidationService(cfg.Incentive, plan.WithSupportedTypes(calculation.SupportsPlanType))
	eligibilityService := eligibility.NewService(cfg.Incentive)
	engine := calculation.NewEngine(cfg.Incentive, eligibilityService)
	workflow := approval.NewWorkflowService(cfg.Incentive)
	hierarchy := approval.NewOrgHierarchy(departmentRepo, employeeRepo)

	// --- Services ---
	assignmentService := assignment.NewService(db, assignmentRepo, employeeRepo, planRepo, logger)
	return services{
		plans:       plan.NewService(db, planRepo, validator, rdb, logger),
		assignments: assignmentService,
		calculations: calculation.NewService(
			db, calculationRepo, employeeRepo, planRepo, assignmentService,
			engine, counterRepo, outboxRepo, approval.NewPendingCanceller(approvalRepo, logger), logger,
		),
		approvals: approval.NewService(
			db, approvalRepo, calculationRepo, planRepo, employeeRepo,
			hierarchy, workflow, outboxRepo, logger,
		),
	}
}

func registerModules(
	router *gin.Engine,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
	cfg config.AppConfig,
	logger *zap.Logger,
) error {
	svc := buildServices(db, gormDB, rdb, cfg, logger)

	// --- Handlers ---
	planHandler := plan.NewHandler(svc.plans, logger)
	assignmentHandler := assignment.NewHandler(svc.assignments, logger)
	calculationHandler := calculation.NewHandler(svc.calculations, logger)
	approvalHandler := approval.NewHandler(svc.approvals, logger)

	router.Use(middleware.RequestID())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	protected := []gin.HandlerFunc{
		middleware.AuthMiddleware(cfg.JWTSecret),
		middleware.ContextLogger(logger),
	}
	idempotent := middleware.Idempotency(rdb, logger)

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	{
		plan.RegisterRoutes(api, planHandler, protected...)
		assignment.RegisterRoutes(api, assignmentHandler, protected...)
		calculation.RegisterRoutes(api, calculationHandler, idempotent, protected...)
		approval.RegisterRoutes(api, approvalHandler, idempotent, protected...)
	}

	return nil
}
