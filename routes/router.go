package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/threadsense/config"
	"github.com/cppla/threadsense/controllers"
	"github.com/cppla/threadsense/middleware"
	"github.com/cppla/threadsense/utils"
)

// Deps are the collaborators the HTTP layer needs. DB and Writer may be nil, in
// which case the stats and write endpoints are not registered.
type Deps struct {
	Config    config.AppConfig
	Runner    controllers.Runner
	Writer    controllers.BatchWriter
	DB        *gorm.DB
	Cache     *utils.Cache
	AccessLog *zap.Logger
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
	accessLog := deps.AccessLog
	if accessLog == nil {
		accessLog = utils.NewRollingFileLogger(cfg.GinPath, cfg)
	}
	r.Use(utils.Ginzap(accessLog))
	r.Use(utils.RecoveryWithZap(accessLog))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "X-Run-Id", "X-Cache"},
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

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	redditController := controllers.NewRedditController(deps.Runner, deps.Cache, cfg.PipelineTimeout(), utils.L())

	api := r.Group("/api")
	api.Use(middleware.RateLimitMiddleware(cfg.RateLimitPerMinute))

	reddit := api.Group("/reddit")
	reddit.GET("/:subreddit", redditController.GetSubreddit)
	reddit.GET("/:subreddit/search", redditController.Search)

	if deps.Writer != nil {
		reddit.POST("/:subreddit/ingest", middleware.AuthRequired(cfg.JWTSecret), redditController.Ingest)

		dbController := controllers.NewDBController(deps.Writer)
		api.POST("/db/saveData", middleware.AuthRequired(cfg.JWTSecret), dbController.SaveData)
	}

	if deps.DB != nil {
		statsController := controllers.NewStatsController(deps.DB)
		api.GET("/stats", statsController.GetStats)
		api.GET("/stats/:subreddit", statsController.GetSubredditStats)
	}

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
