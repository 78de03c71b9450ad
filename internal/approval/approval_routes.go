package approval

import (
	"time"

	"go-incentive/internal/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, idempotent gin.HandlerFunc, protected ...gin.HandlerFunc) {
	submit := middleware.RoleMiddleware(middleware.RoleAdmin, middleware.RoleHR)
	escalate := middleware.RoleMiddleware(middleware.RoleAdmin, middleware.RoleHR, middleware.RoleManager)
	bulkLimit := middleware.RateLimitByActor(rate.Every(2*time.Second), 3)

	approvals := r.Group("/approvals")
	approvals.Use(protected...)
	{
		approvals.GET("/pending", handler.GetMyPending)
		approvals.GET("/calculation/:calculationId", handler.GetByCalculation)
		approvals.POST("", submit, idempotent, handler.Submit)
		approvals.POST("/bulk-approve", bulkLimit, idempotent, handler.BulkApprove)
		approvals.POST("/:id/approve", idempotent, handler.Approve)
		approvals.POST("/:id/reject", handler.Reject)
		approvals.POST("/:id/delegate", handler.Delegate)
		approvals.POST("/:id/escalate", escalate, handler.Escalate)
	}
}
