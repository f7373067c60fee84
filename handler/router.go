package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MichelMeloG/JurChat/config"
	"github.com/MichelMeloG/JurChat/middleware"
	"github.com/MichelMeloG/JurChat/service"
)

// Dependencies are the shared components the gateway routes use
type Dependencies struct {
	Backend service.Backend
	Store   *service.ConversationStore
	Tracker *service.AnalysisTracker
	Revoker *middleware.SessionRevoker
}

// NewRouter builds the gateway engine with its middleware chain and routes
func NewRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	router := gin.New()
	// document names may contain escaped slashes
	router.UseRawPath = true
	router.UnescapePathValues = true

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(cacheMiddleware())
	router.Use(middleware.RateLimit(cfg.Server.RateLimit, time.Minute))

	documents := service.NewDocumentService(deps.Backend, deps.Tracker, cfg)
	chat := service.NewChatService(deps.Backend, deps.Store)

	authHandler := NewAuthHandler(cfg, deps.Backend, deps.Revoker)
	documentHandler := NewDocumentHandler(documents, cfg)
	chatHandler := NewChatHandler(chat)
	callbackHandler := NewCallbackHandler(deps.Tracker)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":            "ok",
			"timestamp":         time.Now().Format(time.RFC3339),
			"conversations":     deps.Store.Count(),
			"tracked_documents": deps.Tracker.Len(),
		})
	})

	// Public routes
	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/register", authHandler.Register)
		api.POST("/analysis/callback", callbackHandler.HandleCallback)
	}

	// Protected routes
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth, deps.Revoker))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)
		protected.POST("/auth/logout", authHandler.Logout)
		protected.GET("/conversations", chatHandler.ListConversations)
		protected.GET("/documents", documentHandler.List)
		protected.POST("/documents", documentHandler.Upload)
		protected.GET("/documents/:name", documentHandler.Get)
		protected.GET("/documents/:name/status", documentHandler.Status)
		protected.GET("/documents/:name/messages", chatHandler.ListMessages)
		protected.POST("/documents/:name/messages", chatHandler.SendMessage)
		protected.DELETE("/documents/:name/messages", chatHandler.ClearMessages)
	}

	return router
}

// cacheMiddleware disables caching of API responses
func cacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
		}
		c.Next()
	}
}
