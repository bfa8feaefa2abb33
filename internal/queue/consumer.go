/**
 * Queue Consumer for the PDF extractor worker
 *
 * Consumes extraction jobs from Redis through asynq, runs them through the
 * document processor under a deadline and stores the finished workbook.
 */

package queue

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/adverant/nexus/pdf-extractor/internal/errors"
	"github.com/adverant/nexus/pdf-extractor/internal/logging"
	"github.com/adverant/nexus/pdf-extractor/internal/processor"
	"github.com/adverant/nexus/pdf-extractor/internal/storage"
)

// ResultSaver persists finished workbooks
type ResultSaver interface {
	SaveResult(ctx context.Context, jobID string, workbook []byte, meta storage.ResultMeta, ttl time.Duration) error
}

// Consumer handles job consumption from Redis queue
type Consumer struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor processor.DocumentProcessorInterface
	results   ResultSaver
	config    *ConsumerConfig
	logger    *logging.Logger
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	RedisURL          string
	QueueName         string
	Concurrency       int
	Processor         processor.DocumentProcessorInterface
	Results           ResultSaver   // optional; workbooks are dropped without it
	ProcessingTimeout int64         // Processing timeout in milliseconds (default: 300000 = 5 minutes)
	ResultTTL         time.Duration // how long workbooks are kept (default: 24h)
}

// Errors that no retry can fix
var permanentCodes = map[errors.ErrorCode]bool{
	errors.ErrorUnsupportedFormat: true,
	errors.ErrorFileTooLarge:      true,
	errors.ErrorUnknownEngine:     true,
	errors.ErrorUnknownProfile:    true,
	errors.ErrorInvalidInput:      true,
	errors.ErrorInvalidFragment:   true,
}

// NewConsumer creates a new queue consumer
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}

	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}

	if cfg.Processor == nil {
		return nil, fmt.Errorf("Processor is required")
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}

	// Parse Redis connection options
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := logging.NewLogger("QueueConsumer")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				cfg.QueueName: 10, // Priority 10 for main queue
				"default":     1,  // Priority 1 for fallback
			},
			// Exponential backoff: 5s, 10s, 20s, capped at 60s
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				delay := time.Duration(5*(1<<uint(n))) * time.Second
				if delay > 60*time.Second {
					delay = 60 * time.Second
				}
				return delay
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task processing error", "type", task.Type(), "error", err)
			}),
			Logger:   logger.AsynqLogger(),
			LogLevel: asynq.WarnLevel,
		},
	)

	// Create multiplexer for task routing
	mux := asynq.NewServeMux()

	consumer := &Consumer{
		server:    server,
		mux:       mux,
		processor: cfg.Processor,
		results:   cfg.Results,
		config:    cfg,
		logger:    logger,
	}

	mux.HandleFunc(TypeProcessDocument, consumer.handleProcessDocument)

	return consumer, nil
}

// Start starts the queue consumer
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("Starting queue consumer", "concurrency", c.config.Concurrency, "queue", c.config.QueueName)

	if err := c.server.Start(c.mux); err != nil {
		return fmt.Errorf("failed to start queue consumer: %w", err)
	}

	return nil
}

// Stop stops the queue consumer gracefully
func (c *Consumer) Stop(ctx context.Context) error {
	c.logger.Info("Stopping queue consumer...")
	c.server.Shutdown()
	c.logger.Info("Queue consumer stopped")
	return nil
}

func (c *Consumer) timeout() time.Duration {
	if c.config.ProcessingTimeout > 0 {
		return time.Duration(c.config.ProcessingTimeout) * time.Millisecond
	}
	return 300000 * time.Millisecond
}

// handleProcessDocument processes a document processing job
func (c *Consumer) handleProcessDocument(ctx context.Context, task *asynq.Task) error {
	startTime := time.Now()

	var job JobPayload
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job data: %v: %w", err, asynq.SkipRetry)
	}

	log := c.logger.With("job", job.JobID)
	log.Info("Processing document", "filename", job.Filename, "bytes", len(job.FileBuffer))

	if err := c.processor.UpdateJobStatus(ctx, job.JobID, storage.StatusProcessing, 0, map[string]interface{}{
		"filename": job.Filename,
		"engine":   job.Engine,
		"profile":  job.Profile,
	}); err != nil {
		log.Warn("Failed to update status to processing", "error", err)
	}

	timeout := c.timeout()
	processCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := c.processor.ProcessDocument(processCtx, &processor.ProcessRequest{
		JobID:      job.JobID,
		Filename:   job.Filename,
		MimeType:   job.MimeType,
		FileBuffer: job.FileBuffer,
		Engine:     job.Engine,
		Profile:    job.Profile,
	})

	duration := time.Since(startTime)

	if err != nil {
		if stderrors.Is(processCtx.Err(), context.DeadlineExceeded) {
			log.Error("Processing timed out", "duration", duration.String(), "timeout", timeout.String())
			err = errors.NewProcessingTimeoutError(job.JobID, timeout, err)
		} else {
			log.Error("Processing failed", "duration", duration.String(), "error", err)
		}

		c.recordFailure(ctx, job.JobID, err, duration)

		if permanentCodes[errors.CodeOf(err)] {
			return fmt.Errorf("document processing failed: %v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("document processing failed: %w", err)
	}

	if c.results != nil {
		meta := storage.ResultMeta{
			Filename:         result.Filename,
			Engine:           result.Engine,
			Profile:          result.Profile,
			Pages:            result.PageCount(),
			ProcessingTimeMs: result.ProcessingTimeMs,
		}
		if err := c.results.SaveResult(ctx, job.JobID, result.Workbook, meta, c.config.ResultTTL); err != nil {
			storeErr := errors.NewStorageFailedError(job.JobID, err)
			c.recordFailure(ctx, job.JobID, storeErr, duration)
			return fmt.Errorf("failed to store result: %w", storeErr)
		}
	} else {
		log.Warn("No result store configured; workbook discarded")
	}

	log.Info("Processing completed", "duration", duration.String(), "pages", result.PageCount())

	if err := c.processor.UpdateJobStatus(ctx, job.JobID, storage.StatusCompleted, 100, map[string]interface{}{
		"filename":       result.Filename,
		"engine":         result.Engine,
		"profile":        result.Profile,
		"pages":          result.PageCount(),
		"processingTime": duration.Milliseconds(),
	}); err != nil {
		log.Warn("Failed to update status to completed", "error", err)
	}

	return nil
}

func (c *Consumer) recordFailure(ctx context.Context, jobID string, err error, duration time.Duration) {
	metadata := map[string]interface{}{}
	var pe *errors.ProcessingError
	if stderrors.As(err, &pe) {
		metadata = pe.ToMap()
	}
	metadata["error"] = err.Error()
	metadata["processingTime"] = duration.Milliseconds()

	if updateErr := c.processor.UpdateJobStatus(ctx, jobID, storage.StatusFailed, 100, metadata); updateErr != nil {
		c.logger.Warn("Failed to update status to failed", "job", jobID, "error", updateErr)
	}
}

// GetStatistics returns consumer statistics
func (c *Consumer) GetStatistics() map[string]interface{} {
	return map[string]interface{}{
		"concurrency": c.config.Concurrency,
		"queue":       c.config.QueueName,
		"timeoutMs":   c.timeout().Milliseconds(),
	}
}
