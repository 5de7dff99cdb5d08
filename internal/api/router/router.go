package router

import (
	"net/http"

	"github.com/cuongbtq/mailsweep/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "mailsweep-api-service",
		})
	})

	// Initialize job handler
	jobHandler := handler.NewJobHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			// POST /api/v1/jobs/fetch - Enqueue a fetch-and-classify job
			jobs.POST("/fetch", jobHandler.CreateFetchJob)

			// POST /api/v1/jobs/delete - Enqueue a delete-by-category job
			jobs.POST("/delete", jobHandler.CreateDeleteJob)

			// GET /api/v1/jobs - List recent jobs
			jobs.GET("", jobHandler.ListJobs)

			// GET /api/v1/jobs/:job_id - Get job details
			jobs.GET("/:job_id", jobHandler.GetJob)
		}

		// GET /api/v1/stats - Mailbox accounting
		v1.GET("/stats", jobHandler.GetStats)
	}

	return r
}
