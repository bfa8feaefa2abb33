package handler

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/adverant/nexus/pdf-extractor/internal/convert"
	apperrors "github.com/adverant/nexus/pdf-extractor/internal/errors"
	"github.com/adverant/nexus/pdf-extractor/internal/queue"
	"github.com/adverant/nexus/pdf-extractor/internal/sheet"
	"github.com/adverant/nexus/pdf-extractor/internal/storage"
)

// JobQueue accepts extraction jobs.
type JobQueue interface {
	Enqueue(ctx context.Context, payload *queue.JobPayload) (*asynq.TaskInfo, error)
}

// JobStore tracks job status and results.
type JobStore interface {
	UpdateJobStatus(ctx context.Context, update *storage.JobUpdate) error
	GetJobByID(ctx context.Context, jobID string) (map[string]interface{}, error)
	GetResult(ctx context.Context, jobID string) ([]byte, *storage.ResultMeta, error)
}

// Catalog lists the engines and profiles jobs may request.
type Catalog interface {
	Engines() []string
	Profiles() []string
}

// JobsHandler serves the asynchronous job API.
type JobsHandler struct {
	queue       JobQueue
	store       JobStore
	catalog     Catalog
	maxFileSize int64
}

// NewJobsHandler builds the handler.
func NewJobsHandler(q JobQueue, store JobStore, catalog Catalog, maxFileSize int64) *JobsHandler {
	return &JobsHandler{queue: q, store: store, catalog: catalog, maxFileSize: maxFileSize}
}

// HandleCreate enqueues an uploaded document and answers 202 with its job ID.
func (h *JobsHandler) HandleCreate(c *gin.Context) {
	if h.queue == nil || h.store == nil {
		abortWithError(c, apperrors.NewUnavailableError("job queue"))
		return
	}

	up, err := readUpload(c, h.maxFileSize)
	if err != nil {
		abortWithError(c, err)
		return
	}

	engine, profile := c.PostForm("engine"), c.PostForm("profile")
	if h.catalog != nil {
		if engine != "" && !slices.Contains(h.catalog.Engines(), engine) {
			abortWithError(c, apperrors.NewUnknownEngineError(engine, h.catalog.Engines()))
			return
		}
		if profile != "" && !slices.Contains(h.catalog.Profiles(), profile) {
			abortWithError(c, apperrors.NewUnknownProfileError(profile, h.catalog.Profiles()))
			return
		}
	}

	jobID := uuid.NewString()
	ctx := c.Request.Context()

	if err := h.store.UpdateJobStatus(ctx, &storage.JobUpdate{
		JobID:    jobID,
		Status:   storage.StatusQueued,
		Filename: up.Filename,
		MimeType: up.ContentType,
		FileSize: int64(len(up.Data)),
		Engine:   engine,
		Profile:  profile,
	}); err != nil {
		abortWithError(c, apperrors.NewStorageFailedError(jobID, err))
		return
	}

	if _, err := h.queue.Enqueue(ctx, &queue.JobPayload{
		JobID:      jobID,
		Filename:   up.Filename,
		MimeType:   up.ContentType,
		FileSize:   int64(len(up.Data)),
		FileBuffer: up.Data,
		Engine:     engine,
		Profile:    profile,
	}); err != nil {
		_ = h.store.UpdateJobStatus(ctx, &storage.JobUpdate{
			JobID:        jobID,
			Status:       storage.StatusFailed,
			ErrorCode:    string(apperrors.ErrorStorageFailed),
			ErrorMessage: err.Error(),
		})
		abortWithError(c, apperrors.NewStorageFailedError(jobID, err))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"jobId":  jobID,
		"status": storage.StatusQueued,
	})
}

// HandleGet reports a job's status.
func (h *JobsHandler) HandleGet(c *gin.Context) {
	if h.store == nil {
		abortWithError(c, apperrors.NewUnavailableError("job store"))
		return
	}

	jobID := c.Param("id")
	if _, err := uuid.Parse(jobID); err != nil {
		abortWithError(c, apperrors.NewInvalidInputError("job ID must be a UUID"))
		return
	}

	job, err := h.store.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		abortWithError(c, storeError(jobID, err))
		return
	}

	c.JSON(http.StatusOK, job)
}

// HandleResult downloads a finished workbook.
func (h *JobsHandler) HandleResult(c *gin.Context) {
	if h.store == nil {
		abortWithError(c, apperrors.NewUnavailableError("job store"))
		return
	}

	jobID := c.Param("id")
	if _, err := uuid.Parse(jobID); err != nil {
		abortWithError(c, apperrors.NewInvalidInputError("job ID must be a UUID"))
		return
	}

	data, meta, err := h.store.GetResult(c.Request.Context(), jobID)
	if err != nil {
		abortWithError(c, storeError(jobID, err))
		return
	}

	filename := "document_OCR.xlsx"
	if meta != nil && meta.Filename != "" {
		filename = convert.SanitizeFilename(meta.Filename)
	}
	attachment(c, filename, sheet.ContentType, data)
}

func storeError(jobID string, err error) error {
	switch {
	case errors.Is(err, storage.ErrJobNotFound):
		return apperrors.NewNotFoundError(jobID)
	case errors.Is(err, storage.ErrResultsDisabled):
		return apperrors.NewUnavailableError("result storage")
	default:
		return apperrors.NewDatabaseFailedError(jobID, err)
	}
}
