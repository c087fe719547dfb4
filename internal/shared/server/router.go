package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sheetinsight-backend/internal/admin"
	"sheetinsight-backend/internal/analyses"
	"sheetinsight-backend/internal/files"
	"sheetinsight-backend/internal/history"
	"sheetinsight-backend/internal/services/health"
	"sheetinsight-backend/internal/shared/config"
	"sheetinsight-backend/internal/shared/metrics"
	"sheetinsight-backend/internal/shared/server/middleware"
	"sheetinsight-backend/internal/shared/server/respond"
	"sheetinsight-backend/internal/users"
)

// Auth endpoints allow a small burst per client, refilled every few seconds.
var authRateLimit = middleware.RateLimitRule{Rate: 0.2, Burst: 10}

// RouterDeps carries everything NewRouter mounts.
type RouterDeps struct {
	Config          config.Config
	Tokens          middleware.TokenVerifier
	Principals      middleware.PrincipalLoader
	Health          *health.Service
	UserHandler     *users.Handler
	FileHandler     *files.Handler
	AnalysisHandler *analyses.Handler
	HistoryHandler  *history.Handler
	AdminHandler    *admin.Handler
	Now             func() time.Time
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		history.CaptureOrigin(),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		st := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !st.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, st)
	})

	authGroup := api.Group("/auth", middleware.RateLimit(middleware.RateLimitConfig{
		Rules:        map[string]middleware.RateLimitRule{"AUTH": authRateLimit},
		DefaultGroup: "AUTH",
		Limiter:      middleware.NewRateLimiter(deps.Now),
	}))
	deps.UserHandler.RegisterPublicRoutes(authGroup)

	requireAuth := middleware.Auth(deps.Tokens, deps.Principals)
	deps.UserHandler.RegisterRoutes(authGroup.Group("", requireAuth))

	data := api.Group("/data", requireAuth)
	deps.FileHandler.RegisterRoutes(data)
	deps.AnalysisHandler.RegisterDataRoutes(data)

	deps.AnalysisHandler.RegisterRoutes(api.Group("/analysis", requireAuth))
	deps.HistoryHandler.RegisterRoutes(api.Group("", requireAuth))
	deps.AdminHandler.RegisterRoutes(api.Group("/admin", requireAuth, middleware.RequireRole(users.RoleAdmin)))

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
