package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zlin-x/scrape-platform/internal/common"
	"github.com/zlin-x/scrape-platform/internal/provider"
	"github.com/zlin-x/scrape-platform/internal/scraper"
	"github.com/zlin-x/scrape-platform/internal/store/redisstore"
)

type scrapeReq struct {
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params"`
}

func scrapeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, scraper.ErrUnknownScrapeType):
		common.Fail(c, http.StatusBadRequest, "Invalid scrape type")
	case errors.Is(err, scraper.ErrInvalidRequest):
		common.Fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, provider.ErrUserNotFound):
		common.Fail(c, http.StatusNotFound, err.Error())
	default:
		common.Fail(c, http.StatusInternalServerError, err.Error())
	}
}

// Scrape executes a scrape request synchronously and reports the provider
// budget for the endpoint it touched.
func (h *Handler) Scrape(c *gin.Context) {
	var req scrapeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, "Invalid JSON parameters")
		return
	}
	if req.Type == "" || len(req.Params) == 0 {
		common.Fail(c, http.StatusBadRequest, "Missing required parameters")
		return
	}

	rl := redisstore.LimitFor(req.Type)

	result, err := h.Svc.Dispatch(c.Request.Context(), req.Type, req.Params)
	if err != nil {
		scrapeError(c, err)
		return
	}

	common.OK(c, http.StatusOK, gin.H{
		"success":    true,
		"jobId":      result.JobID,
		"tweetCount": result.TweetCount,
		"rateLimitInfo": gin.H{
			"endpoint":     rl.Endpoint,
			"limit":        rl.Limit,
			"resetMinutes": rl.ResetMinutes,
		},
	})
}

// ScrapeAsync queues the request instead of executing it inline.
func (h *Handler) ScrapeAsync(c *gin.Context) {
	if h.Rabbit == nil {
		common.Fail(c, http.StatusServiceUnavailable, "queue not configured")
		return
	}

	var req scrapeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, "Invalid JSON parameters")
		return
	}
	if req.Type == "" || len(req.Params) == 0 {
		common.Fail(c, http.StatusBadRequest, "Missing required parameters")
		return
	}
	switch req.Type {
	case scraper.TypeSearch, scraper.TypeHashtagTop, scraper.TypeHashtagLatest,
		scraper.TypeDateRange, scraper.TypeUserTweets:
	default:
		common.Fail(c, http.StatusBadRequest, "Invalid scrape type")
		return
	}

	if err := h.Rabbit.PublishScrape(c.Request.Context(), req.Type, req.Params); err != nil {
		log.Printf("publish_scrape_failed type=%s err=%v", req.Type, err)
		common.Fail(c, http.StatusInternalServerError, "enqueue failed")
		return
	}

	common.OK(c, http.StatusAccepted, gin.H{"success": true, "queued": true})
}

// RateLimits reports current usage for every tracked endpoint. Usage is
// counted per provider page fetch by the recording hook on the client.
func (h *Handler) RateLimits(c *gin.Context) {
	type usageView struct {
		Endpoint     string `json:"endpoint"`
		Limit        int    `json:"limit"`
		ResetMinutes int    `json:"resetMinutes"`
		Used         int    `json:"used"`
		Remaining    int    `json:"remaining"`
		ResetSeconds int    `json:"resetSeconds"`
	}

	seen := map[string]bool{}
	out := make([]usageView, 0, len(redisstore.Limits))
	for _, rl := range redisstore.Limits {
		if seen[rl.Endpoint] {
			continue
		}
		seen[rl.Endpoint] = true

		var used int
		var reset time.Duration
		if h.Limits != nil {
			var err error
			used, reset, err = h.Limits.Usage(c.Request.Context(), rl.Endpoint)
			if err != nil {
				common.Fail(c, http.StatusInternalServerError, err.Error())
				return
			}
		}

		remaining := rl.Limit - used
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, usageView{
			Endpoint:     rl.Endpoint,
			Limit:        rl.Limit,
			ResetMinutes: rl.ResetMinutes,
			Used:         used,
			Remaining:    remaining,
			ResetSeconds: int(reset.Seconds()),
		})
	}

	common.OK(c, http.StatusOK, gin.H{"success": true, "rateLimits": out})
}
