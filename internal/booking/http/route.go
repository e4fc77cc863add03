package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers booking routes and the per-resource calendar routes.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, adminMiddleware gin.HandlerFunc) {
	group := g.Group("/bookings")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.GET("", h.List)               // Own bookings, or all for admins
		group.GET("/upcoming", h.Upcoming)  // Caller's next bookings
		group.GET("/:id", h.Get)            // Owner or admin
		group.POST("", h.Create)            // Request a booking
		group.PATCH("/:id", h.Update)       // Reschedule or edit
		group.POST("/:id/cancel", h.Cancel) // Owner or admin
	}

	// === Admin Routes ===
	admin := group.Group("", adminMiddleware)
	{
		admin.GET("/pending", h.Pending)
		admin.POST("/:id/approve", h.Approve)
		admin.POST("/:id/reject", h.Reject)
		admin.POST("/:id/complete", h.Complete)
		admin.DELETE("/:id", h.Delete)
	}

	resources := g.Group("/resources", authMiddleware)
	{
		resources.GET("/:id/availability", h.Availability)
		resources.GET("/:id/schedule", h.Schedule)
	}
}
