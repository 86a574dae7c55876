package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/compoundhabits/habits/config"
	"github.com/compoundhabits/habits/controllers"
	"github.com/compoundhabits/habits/middleware"
	"github.com/compoundhabits/habits/stats"
	"github.com/compoundhabits/habits/store"
	"github.com/compoundhabits/habits/utils"
)

// Deps are the collaborators the router wires into controllers.
type Deps struct {
	Config config.AppConfig
	DB     *gorm.DB
	// Redis may be nil; caching, OAuth state and the token blacklist then stay in process.
	Redis     *redis.Client
	Providers map[string]*controllers.OAuthProvider
	Now       func() time.Time
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps Deps) *gin.Engine {
	cfg := deps.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, true))
	} else {
		utils.Sugar.Warnf("gin access log disabled: %v", err)
		r.Use(utils.RecoveryWithZap(utils.Logger, true))
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	now := deps.Now
	if now == nil {
		now = time.Now
	}
	st := store.New(deps.DB, store.WithClock(now))
	svc := stats.NewService(st, stats.WithClock(now))
	cache := utils.NewCache(deps.Redis, time.Duration(cfg.StatsCacheTTLSecs)*time.Second)
	tokens := utils.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.SessionTTLHours)*time.Hour)
	blacklist := utils.NewTokenBlacklist(deps.Redis)
	providers := deps.Providers
	if providers == nil {
		providers = controllers.OAuthProviders(cfg)
	}

	authController := controllers.NewAuthController(st, tokens, blacklist, utils.NewStateStore(deps.Redis),
		providers, strings.HasPrefix(cfg.OAuthRedirectBase, "https://"))
	habitController := controllers.NewHabitController(st, svc, cache)
	statsController := controllers.NewStatsController(st, svc, cache)
	authRequired := middleware.AuthRequired(tokens, blacklist)

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitPerMinute))
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)
	authGroup.POST("/logout", authRequired, authController.Logout)
	authGroup.GET("/me", authRequired, authController.Me)

	protected := api.Group("")
	protected.Use(authRequired, middleware.RateLimitMiddleware(cfg.RateLimitPerMinute))
	protected.GET("/habits", habitController.ListHabits)
	protected.POST("/habits", habitController.CreateHabit)
	protected.GET("/habits/:id", habitController.GetHabit)
	protected.DELETE("/habits/:id", habitController.DeleteHabit)
	protected.POST("/habits/:id/entries", habitController.RecordEntry)
	protected.DELETE("/habits/:id/entries/last", habitController.DeleteLastEntry)
	protected.GET("/habits/:id/series/:kind", statsController.GetSeries)
	protected.GET("/heatmap", statsController.GetHeatmap)
	protected.GET("/plots", statsController.ListPlots)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
