package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zlin-x/scrape-platform/internal/common"
)

// ListJobs returns every scrape job, most recent first.
func (h *Handler) ListJobs(c *gin.Context) {
	jobs, err := h.Svc.ListJobs(c.Request.Context())
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	common.OK(c, http.StatusOK, gin.H{"success": true, "jobs": jobs})
}

// GetJob returns one job plus its tweets, newest publication first.
func (h *Handler) GetJob(c *gin.Context) {
	jobID, err := strconv.ParseUint(c.Param("job_id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, "Job ID is required")
		return
	}

	job, tweets, err := h.Svc.GetJobWithTweets(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, "Job not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	common.OK(c, http.StatusOK, gin.H{"success": true, "job": job, "tweets": tweets})
}
