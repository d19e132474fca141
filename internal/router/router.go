package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/brotli"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/skolegrid/aula-bridge/internal/config"
	"github.com/skolegrid/aula-bridge/internal/handler"
	"github.com/skolegrid/aula-bridge/internal/middleware"
	"github.com/skolegrid/aula-bridge/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session  *handler.SessionHandler
	Child    *handler.ChildHandler
	Calendar *handler.CalendarHandler
	Message  *handler.MessageHandler
	Gallery  *handler.GalleryHandler
	Summary  *handler.SummaryHandler
	Stream   *handler.StreamHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Compress JSON payloads; WebSocket upgrades pass through untouched.
	router.Use(brotli.Brotli(brotli.DefaultCompression))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for login (10 attempts, one earned back per 6s).
	// The platform throttles failed logins hard; the bridge must never be
	// the reason a guardian account gets locked.
	loginLimiter := middleware.NewRateLimiter(10, 6*time.Second)

	// ─── 1. Session Group ──────────────────────────────────────────────
	session := router.Group("/api/v1/session")
	{
		session.POST("/login", loginLimiter.Middleware(), handlers.Session.Login)
		session.GET("", handlers.Session.Status)
	}

	// ─── 2. Resource Group ─────────────────────────────────────────────
	api := router.Group("/api/v1")
	{
		api.GET("/children", handlers.Child.GetChildren)
		api.GET("/children/:child_id", handlers.Child.GetChildByID)
		api.GET("/children/:child_id/presence", handlers.Child.GetPresence)
		api.GET("/children/:child_id/calendar", handlers.Calendar.GetEvents)
		api.GET("/children/:child_id/calendar/range", handlers.Calendar.GetEventsForRange)
		api.GET("/messages/unread", handlers.Message.GetUnread)
		api.GET("/gallery", handlers.Gallery.GetItems)
		api.GET("/summary", handlers.Summary.GetSummary)
		api.POST("/refresh", handlers.Summary.Refresh)
	}

	// ─── 3. WebSocket Group ────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/updates", handlers.Stream.UpdatesStream)
	}

	return router
}
