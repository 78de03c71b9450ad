package plan

import (
	"go-incentive/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, protected ...gin.HandlerFunc) {
	manage := middleware.RoleMiddleware(middleware.RoleAdmin, middleware.RoleHR)

	plans := r.Group("/plans")
	plans.Use(protected...)
	{
		plans.GET("", handler.GetAll)
		plans.GET("/options", handler.GetActiveOptions)
		plans.GET("/:id", handler.GetById)
		plans.GET("/:id/validation", manage, handler.Validate)
		plans.POST("", manage, handler.Create)
		plans.PUT("/:id", manage, handler.Update)
		plans.POST("/:id/activate", manage, handler.Activate)
		plans.POST("/:id/suspend", manage, handler.Suspend)
		plans.POST("/:id/reactivate", manage, handler.Reactivate)
		plans.POST("/:id/cancel", manage, handler.Cancel)
		plans.POST("/:id/expire", manage, handler.Expire)
	}
}
