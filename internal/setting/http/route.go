package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, adminMiddleware gin.HandlerFunc) {
	group := g.Group("/settings")

	group.Use(authMiddleware)
	{
		group.GET("", h.Get)
		group.PUT("", adminMiddleware, h.Update)
	}
}
