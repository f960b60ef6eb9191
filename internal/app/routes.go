package app

import (
	"time"

	"github.com/OkeahDavid/Metrics-hub/internal/middleware"
	"github.com/OkeahDavid/Metrics-hub/internal/modules/analytics"
	"github.com/OkeahDavid/Metrics-hub/internal/modules/project"
	"github.com/OkeahDavid/Metrics-hub/internal/modules/tracking"
	"github.com/OkeahDavid/Metrics-hub/internal/pkg/response"
	pkgredis "github.com/OkeahDavid/Metrics-hub/internal/pkg/redis"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *App) registerRoutes(rc *pkgredis.Client) {
	a.router.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "route not found")
	})
	a.router.NoMethod(func(c *gin.Context) {
		response.NotFound(c, "method not allowed")
	})

	api := a.router.Group("/api")
	api.GET("/health", a.health)

	dir := project.NewDirectory(a.db)

	var counter middleware.RateCounter
	if rc != nil {
		counter = middleware.NewRedisCounter(rc.Raw())
	} else {
		counter = middleware.NewMemoryCounter()
	}
	window := a.cfg.RateLimit.Window()
	limitMax := int64(a.cfg.RateLimit.Max)

	trackingH := tracking.NewHandler(
		tracking.NewService(a.db, dir),
		a.logger.Named("tracking"),
	)
	rl := middleware.RateLimit(counter, limitMax, window, a.logger, nil)
	rlPixel := middleware.RateLimit(counter, limitMax, window, a.logger, trackingH.RejectPixel)
	trackingH.RegisterRoutes(api, rl, rlPixel)

	dash := api.Group("")
	dash.Use(cors.New(a.dashboardCORS()))
	analyticsH := analytics.NewHandler(
		analytics.NewService(a.db, rc),
		dir,
		a.logger.Named("analytics"),
	)
	analyticsH.RegisterRoutes(dash)
}

func (a *App) dashboardCORS() cors.Config {
	conf := cors.Config{
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(a.cfg.AllowedOrigins) == 0 || a.cfg.IsDev() {
		conf.AllowCredentials = false
		conf.AllowAllOrigins = true
	} else {
		conf.AllowOrigins = a.cfg.AllowedOrigins
	}
	return conf
}

func (a *App) health(c *gin.Context) {
	sqlDB, err := a.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		a.logger.Error("health check failed", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"status": "ok"})
}
