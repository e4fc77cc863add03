package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/resource-booking-backend/internal/auth"
	"github.com/nekogravitycat/resource-booking-backend/internal/booking"
	bookingHttp "github.com/nekogravitycat/resource-booking-backend/internal/booking/http"
	"github.com/nekogravitycat/resource-booking-backend/internal/category"
	catHttp "github.com/nekogravitycat/resource-booking-backend/internal/category/http"
	"github.com/nekogravitycat/resource-booking-backend/internal/resource"
	resHttp "github.com/nekogravitycat/resource-booking-backend/internal/resource/http"
	"github.com/nekogravitycat/resource-booking-backend/internal/setting"
	settingHttp "github.com/nekogravitycat/resource-booking-backend/internal/setting/http"
	"github.com/nekogravitycat/resource-booking-backend/internal/user"
	userHttp "github.com/nekogravitycat/resource-booking-backend/internal/user/http"
)

// Config holds everything the router needs to assemble middleware and routes.
type Config struct {
	Origins []string

	UserService     user.Service
	CategoryService category.Service
	ResourceService resource.Service
	BookingService  booking.Service
	SettingService  setting.Service
	JWTManager      *auth.JWTManager
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	r := gin.New()

	// Global Middleware:
	// - RequestLogger: structured access log with a request id.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	r.Use(RequestLogger(), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.Origins) > 0 {
		corsConfig.AllowOrigins = cfg.Origins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", headerRequestID}
	corsConfig.ExposeHeaders = []string{headerRequestID}
	r.Use(cors.New(corsConfig))

	// authMiddleware: Validates the JWT and that the account is still active.
	authMiddleware := RequireActiveUser(cfg.JWTManager, cfg.UserService)
	// adminMiddleware: Further checks if the authenticated user is an admin.
	adminMiddleware := RequireAdmin(cfg.UserService)

	// Initialize HTTP Handlers for each module (injecting Service dependencies).
	userHandler := userHttp.NewHandler(cfg.UserService, cfg.JWTManager)
	catHandler := catHttp.NewHandler(cfg.CategoryService)
	resHandler := resHttp.NewHandler(cfg.ResourceService)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService, cfg.UserService)
	settingHandler := settingHttp.NewHandler(cfg.SettingService)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		userHttp.RegisterRoutes(v1, userHandler, authMiddleware, adminMiddleware)
		catHttp.RegisterRoutes(v1, catHandler, authMiddleware, adminMiddleware)
		resHttp.RegisterRoutes(v1, resHandler, authMiddleware, adminMiddleware)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware, adminMiddleware)
		settingHttp.RegisterRoutes(v1, settingHandler, authMiddleware, adminMiddleware)
	}

	return r
}
