package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cuongbtq/mailsweep/internal/api/dto"
	"github.com/cuongbtq/mailsweep/internal/domain"
	"github.com/cuongbtq/mailsweep/internal/gmail"
	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// CreateFetchJob handles POST /api/v1/jobs/fetch
func (h *JobHandler) CreateFetchJob(c *gin.Context) {
	var req dto.CreateFetchJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	query := req.Query
	if query == "" && req.OlderThanDays > 0 {
		query = gmail.QueryBeforeDays(time.Now(), req.OlderThanDays)
	}
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query or older_than_days is required"})
		return
	}

	params, err := json.Marshal(domain.FetchParameters{Query: query})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode parameters"})
		return
	}

	jobID, err := h.jobs.Create(c.Request.Context(), domain.JobTypeFetch, string(params))
	if err != nil {
		h.logger.Error("Failed to create fetch job", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create job"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"job_id":   jobID,
		"job_type": domain.JobTypeFetch,
		"status":   domain.JobStatusPending,
		"query":    query,
	})
}

// CreateDeleteJob handles POST /api/v1/jobs/delete
func (h *JobHandler) CreateDeleteJob(c *gin.Context) {
	var req dto.CreateDeleteJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if len(req.Categories) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one category is required"})
		return
	}

	for _, label := range req.Categories {
		if domain.NormalizeCategory(label) == domain.CategoryUnclassified &&
			label != string(domain.CategoryUnclassified) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category: " + label})
			return
		}
	}

	params, err := json.Marshal(domain.DeleteParameters{Categories: req.Categories})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode parameters"})
		return
	}

	jobID, err := h.jobs.Create(c.Request.Context(), domain.JobTypeDelete, string(params))
	if err != nil {
		h.logger.Error("Failed to create delete job", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create job"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"job_id":     jobID,
		"job_type":   domain.JobTypeDelete,
		"status":     domain.JobStatusPending,
		"categories": req.Categories,
	})
}

// GetJob handles GET /api/v1/jobs/:job_id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := strconv.ParseInt(c.Param("job_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job_id must be an integer"})
		return
	}

	job, err := h.jobs.Get(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		h.logger.Error("Failed to get job", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get job"})
		return
	}

	c.JSON(http.StatusOK, toJobDTO(job))
}

// ListJobs handles GET /api/v1/jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	jobs, err := h.jobs.List(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list jobs"})
		return
	}

	out := make([]dto.JobDTO, len(jobs))
	for i := range jobs {
		out[i] = toJobDTO(&jobs[i])
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{Jobs: out})
}

// GetStats handles GET /api/v1/stats
func (h *JobHandler) GetStats(c *gin.Context) {
	stats, err := h.mail.GetStats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get mail stats", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get stats"})
		return
	}

	resp := dto.StatsResponse{
		StoredCount:       stats.StoredCount,
		StorageSavedBytes: stats.StorageSaved,
		StorageSavedMB:    float64(stats.StorageSaved) / 1_000_000,
	}
	if stats.OldestStored != nil {
		resp.OldestStored = stats.OldestStored.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, resp)
}

func toJobDTO(job *domain.Job) dto.JobDTO {
	out := dto.JobDTO{
		ID:              job.ID,
		JobType:         job.JobType,
		Parameters:      job.Parameters,
		Status:          job.Status,
		ProgressMessage: job.ProgressMessage,
		CreatedAt:       job.CreatedAt.Format(time.RFC3339),
	}
	if job.CompletedAt != nil {
		out.CompletedAt = job.CompletedAt.Format(time.RFC3339)
	}
	return out
}
