package assignment

import (
	"go-incentive/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, protected ...gin.HandlerFunc) {
	manage := middleware.RoleMiddleware(middleware.RoleAdmin, middleware.RoleHR)

	assignments := r.Group("/assignments")
	assignments.Use(protected...)
	{
		assignments.POST("", manage, handler.Assign)
		assignments.DELETE("/:id", manage, handler.Remove)
		assignments.GET("/employee/:employeeId", handler.ListByEmployee)
	}
}
