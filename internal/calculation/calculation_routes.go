package calculation

import (
	"time"

	"go-incentive/internal/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, idempotent gin.HandlerFunc, protected ...gin.HandlerFunc) {
	compute := middleware.RoleMiddleware(middleware.RoleAdmin, middleware.RoleHR)
	finance := middleware.RoleMiddleware(middleware.RoleAdmin, middleware.RoleFinance)
	bulkLimit := middleware.RateLimitByActor(rate.Every(2*time.Second), 3)

	calculations := r.Group("/calculations")
	calculations.Use(protected...)
	{
		calculations.GET("", handler.GetAll)
		calculations.GET("/:id", handler.GetById)
		calculations.POST("", compute, idempotent, handler.Calculate)
		calculations.POST("/bulk", compute, bulkLimit, idempotent, handler.BulkCalculate)
		calculations.POST("/deferred", compute, handler.Defer)
		calculations.POST("/:id/recalculate", compute, handler.Recalculate)
		calculations.POST("/:id/adjust", finance, handler.Adjust)
		calculations.POST("/:id/void", finance, handler.Void)
		calculations.POST("/:id/paid", finance, idempotent, handler.MarkPaid)
	}
}
