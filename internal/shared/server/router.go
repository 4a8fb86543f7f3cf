package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"archive-backend/internal/account"
	googleauth "archive-backend/internal/auth"
	"archive-backend/internal/chat"
	"archive-backend/internal/documents"
	"archive-backend/internal/families"
	"archive-backend/internal/services/health"
	"archive-backend/internal/settings"
	"archive-backend/internal/shared/config"
	"archive-backend/internal/shared/metrics"
	"archive-backend/internal/shared/server/middleware"
	"archive-backend/internal/shared/server/respond"
	"archive-backend/internal/uploads"
	"archive-backend/internal/usage"
	"archive-backend/internal/users"
)

// chatAskGroup throttles the model-backed ask endpoint; every other
// route passes through unlimited.
const chatAskGroup = "CHAT_ASK"

// RouterDeps carries the handlers the router wires up. Bootstrap builds
// them; tests may pass a subset.
type RouterDeps struct {
	Config           config.Config
	Health           *health.Service
	AccountHandler   *account.Handler
	ChatHandler      *chat.Handler
	DocumentsHandler *documents.Handler
	FamiliesHandler  *families.Handler
	SettingsHandler  *settings.Handler
	UsageHandler     *usage.Handler
	UsersHandler     *users.Handler
	GoogleAuth       *googleauth.GoogleService
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Registered before the middleware chain: probes and scrapers carry
	// no identity.
	r.GET("/health", func(c *gin.Context) {
		if deps.Health != nil {
			c.JSON(http.StatusOK, deps.Health.Status())
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", metrics.Handler())

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Config.Env),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				chatAskGroup: {Rate: 1, Burst: 5},
			},
			GroupFor: func(c *gin.Context) string {
				if c.Request.Method == http.MethodPost && c.FullPath() == "/api/v1/chat/ask" {
					return chatAskGroup
				}
				return ""
			},
		}),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.DocumentsHandler != nil {
		deps.DocumentsHandler.RegisterRoutes(api)
	}
	if deps.ChatHandler != nil {
		deps.ChatHandler.RegisterRoutes(api)
	}
	if deps.SettingsHandler != nil {
		deps.SettingsHandler.RegisterRoutes(api)
	}
	if deps.FamiliesHandler != nil {
		deps.FamiliesHandler.RegisterRoutes(api)
	}
	if deps.UsageHandler != nil {
		deps.UsageHandler.RegisterRoutes(api)
	}
	if deps.UsersHandler != nil {
		deps.UsersHandler.RegisterRoutes(api)
	}
	if deps.AccountHandler != nil {
		deps.AccountHandler.RegisterRoutes(api)
	}
	uploads.RegisterRoutes(api)
	if deps.Config.Env == "dev" && deps.UsageHandler != nil {
		dev := api.Group("/dev")
		deps.UsageHandler.RegisterDevRoutes(dev)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
