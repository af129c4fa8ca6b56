package routes

import (
	"net/http"
	"time"

	"civicbridge-be/config"
	"civicbridge-be/controllers"
	"civicbridge-be/middlewares"
	"civicbridge-be/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Issues   *services.IssueService
	Timeline *services.TimelineRecorder
	Users    *services.UserService
	Redis    *redis.Client
	Logger   *zap.Logger
}

// NewRouter assembles middleware and all route groups.
func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middlewares.RequestID(), middlewares.Recovery(deps.Logger), middlewares.RequestLogger(deps.Logger))

	if len(cfg.Server.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.Server.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middlewares.RequestIDHeader},
			ExposeHeaders:    []string{middlewares.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	timeout := cfg.Server.RequestTimeout
	requireAuth := middlewares.AuthMiddleware(cfg.Auth.JWTSecret, deps.Logger)
	rateLimit := middlewares.IssueRateLimiter(middlewares.IssueRateLimit{
		Client:    deps.Redis,
		KeyPrefix: cfg.Redis.IssueLimitKey,
		Limit:     cfg.Redis.IssueDailyLimit,
		Window:    24 * time.Hour,
	}, deps.Logger)

	ac := controllers.NewAuthController(deps.Users, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL,
		controllers.CookieSettings{Domain: cfg.Server.CookieDomain, Secure: cfg.IsProduction()},
		timeout, deps.Logger)
	ic := controllers.NewIssueController(deps.Issues, timeout, deps.Logger)
	tc := controllers.NewTimelineController(deps.Issues, deps.Timeline, timeout, deps.Logger)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	AuthRoutes(r, ac, requireAuth)
	IssueRoutes(r, ic, requireAuth, rateLimit)
	TimelineRoutes(r, tc, requireAuth)

	return r
}
