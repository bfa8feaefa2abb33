package router

import (
	"github.com/gin-gonic/gin"

	"github.com/adverant/nexus/pdf-extractor/internal/server/middleware"
)

// HealthHandler serves the liveness endpoint.
type HealthHandler interface {
	HandleHealth(c *gin.Context)
}

// ExtractHandler serves synchronous extraction.
type ExtractHandler interface {
	HandleProcessPDF(c *gin.Context)
}

// ConvertHandler serves TIFF conversion.
type ConvertHandler interface {
	HandleConvert(c *gin.Context)
	HandleInfo(c *gin.Context)
}

// JobsHandler serves the asynchronous job API.
type JobsHandler interface {
	HandleCreate(c *gin.Context)
	HandleGet(c *gin.Context)
	HandleResult(c *gin.Context)
}

// Handlers groups the route handlers. Jobs may be nil.
type Handlers struct {
	Health  HealthHandler
	Extract ExtractHandler
	Convert ConvertHandler
	Jobs    JobsHandler
}

// New wires up handlers to the Gin engine.
func New(apiKey string, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.CORS())

	// Health check endpoint (no API key)
	r.GET("/health", h.Health.HandleHealth)

	auth := r.Group("/", middleware.WithAPIKey(apiKey))
	{
		auth.POST("/process-pdf", h.Extract.HandleProcessPDF)
		auth.POST("/convert", h.Convert.HandleConvert)
		auth.POST("/convert/info", h.Convert.HandleInfo)
	}

	v1 := r.Group("/api/v1", middleware.WithAPIKey(apiKey))
	{
		v1.POST("/ocr/process", h.Extract.HandleProcessPDF)

		if h.Jobs != nil {
			jobs := v1.Group("/jobs")
			jobs.POST("", h.Jobs.HandleCreate)
			jobs.GET("/:id", h.Jobs.HandleGet)
			jobs.GET("/:id/result", h.Jobs.HandleResult)
		}
	}

	return r
}
