package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers category related routes.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, adminMiddleware gin.HandlerFunc) {
	group := g.Group("/categories")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.GET("", h.List)    // List categories
		group.GET("/:id", h.Get) // Get category details
	}

	// === Admin Routes ===
	admin := group.Group("", adminMiddleware)
	{
		admin.POST("", h.Create)       // Create category
		admin.PATCH("/:id", h.Update)  // Update category
		admin.DELETE("/:id", h.Delete) // Delete category
	}
}
