package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/adverant/nexus/pdf-extractor/internal/logging"
)

// Producer submits extraction jobs to the queue
type Producer struct {
	client   *asynq.Client
	queue    string
	timeout  time.Duration
	maxRetry int
	logger   *logging.Logger
}

// ProducerConfig holds producer configuration
type ProducerConfig struct {
	RedisURL  string
	QueueName string
	Timeout   time.Duration // per-task processing deadline
	MaxRetry  int
}

// NewProducer creates a new queue producer
func NewProducer(cfg *ProducerConfig) (*Producer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	maxRetry := cfg.MaxRetry
	if maxRetry <= 0 {
		maxRetry = 3
	}

	return &Producer{
		client:   asynq.NewClient(redisOpt),
		queue:    cfg.QueueName,
		timeout:  cfg.Timeout,
		maxRetry: maxRetry,
		logger:   logging.NewLogger("QueueProducer"),
	}, nil
}

// Enqueue submits a job. The job ID doubles as the asynq task ID so a job
// cannot be enqueued twice.
func (p *Producer) Enqueue(ctx context.Context, payload *JobPayload) (*asynq.TaskInfo, error) {
	opts := []asynq.Option{
		asynq.Queue(p.queue),
		asynq.TaskID(payload.JobID),
		asynq.MaxRetry(p.maxRetry),
	}
	if p.timeout > 0 {
		// Leave the processor room to record its own timeout
		opts = append(opts, asynq.Timeout(p.timeout+30*time.Second))
	}

	task, err := NewProcessDocumentTask(payload, opts...)
	if err != nil {
		return nil, err
	}

	info, err := p.client.EnqueueContext(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue job %s: %w", payload.JobID, err)
	}

	p.logger.Info("Job enqueued",
		"job", payload.JobID,
		"queue", info.Queue,
		"filename", payload.Filename,
		"bytes", len(payload.FileBuffer))
	return info, nil
}

// Close closes the underlying client
func (p *Producer) Close() error {
	return p.client.Close()
}
