package api

import (
	"github.com/hookguard/hookguard/config"

	"github.com/hookguard/hookguard/api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/hookguard/hookguard"
)

type Api struct {
	engine *hookguard.Hookguard
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router

	// Providers authenticate with signatures, not the dashboard key, so
	// the ingest route never sits behind the auth middleware.
	router.POST("/webhooks/:service", a.IngestWebhook)

	dashboard := router.Group("/")
	if conf, err := config.Fetch(); err == nil && conf.Server.Secure {
		dashboard.Use(middleware.SecretKeyAuthMiddleware())
	}

	dashboard.GET("/attempts", a.GetAllAttempts)
	dashboard.GET("/attempts/:id", a.GetAttempt)
	dashboard.POST("/attempts/:id/replay", a.ReplayAttempt)
	dashboard.DELETE("/cooldowns/:service/:event", a.ClearCooldown)

	return a.router
}

func NewAPI(engine *hookguard.Hookguard) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(middleware.RateLimitMiddleware(conf))

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{engine: engine, router: r}
}
