package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zlin-x/scrape-platform/internal/common"
	"github.com/zlin-x/scrape-platform/internal/config"
	"github.com/zlin-x/scrape-platform/internal/httpapi/handlers"
	"github.com/zlin-x/scrape-platform/internal/httpapi/middleware"
	"github.com/zlin-x/scrape-platform/internal/scraper"
	"github.com/zlin-x/scrape-platform/internal/store/rabbitmq"
	"github.com/zlin-x/scrape-platform/internal/store/redisstore"
)

func NewRouter(svc *scraper.Service, cfg config.Config, limits *redisstore.Store, rabbit *rabbitmq.Publisher) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, "method not allowed")
	})

	h := handlers.NewHandler(svc, limits, rabbit)

	r.GET("/ping", h.Ping)

	api := r.Group("/")
	api.Use(middleware.AuthRequired(cfg.APIJWTSecret))
	api.POST("/scrape", h.Scrape)
	api.POST("/scrape/async", h.ScrapeAsync)
	api.GET("/jobs", h.ListJobs)
	api.GET("/jobs/:job_id", h.GetJob)
	api.GET("/ratelimits", h.RateLimits)

	return r
}
