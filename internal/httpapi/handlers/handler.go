package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zlin-x/scrape-platform/internal/scraper"
	"github.com/zlin-x/scrape-platform/internal/store/rabbitmq"
	"github.com/zlin-x/scrape-platform/internal/store/redisstore"
)

type Handler struct {
	Svc    *scraper.Service
	Limits *redisstore.Store
	Rabbit *rabbitmq.Publisher
}

func NewHandler(svc *scraper.Service, limits *redisstore.Store, rabbit *rabbitmq.Publisher) *Handler {
	return &Handler{Svc: svc, Limits: limits, Rabbit: rabbit}
}

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "pong"})
}
