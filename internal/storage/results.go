/**
 * Redis result store for async extraction jobs
 *
 * Key layout under the queue name prefix:
 *   <prefix>:queued|processing|completed|failed   job ID sets
 *   <prefix>:errors                                 hash of failure payloads
 *   <prefix>:result:<id>, <prefix>:meta:<id>       workbook bytes + metadata (with TTL)
 *   <prefix>:events                                 pub/sub channel for status changes
 */

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Job statuses
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

var statusSets = []string{StatusQueued, StatusProcessing, StatusCompleted, StatusFailed}

// ResultMeta describes a stored workbook
type ResultMeta struct {
	JobID            string    `json:"jobId"`
	Filename         string    `json:"filename"`
	Engine           string    `json:"engine"`
	Profile          string    `json:"profile"`
	Pages            int       `json:"pages"`
	ProcessingTimeMs int64     `json:"processingTimeMs"`
	CompletedAt      time.Time `json:"completedAt"`
}

// JobEvent is published on every status change
type JobEvent struct {
	Event     string `json:"event"`
	JobID     string `json:"jobId"`
	Timestamp string `json:"timestamp"`
}

// ResultStore keeps job status and finished workbooks in Redis
type ResultStore struct {
	client *redis.Client
	prefix string
}

// NewResultStore connects to Redis and returns a store using prefix for keys
func NewResultStore(redisURL, prefix string) (*ResultStore, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewResultStoreWithClient(client, prefix), nil
}

// NewResultStoreWithClient wraps an existing client
func NewResultStoreWithClient(client *redis.Client, prefix string) *ResultStore {
	if prefix == "" {
		prefix = "pdfextractor:jobs"
	}
	return &ResultStore{client: client, prefix: prefix}
}

func (s *ResultStore) key(parts ...string) string {
	k := s.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

// EventsChannel returns the pub/sub channel status events are published on
func (s *ResultStore) EventsChannel() string {
	return s.key("events")
}

// SetStatus moves jobID into the set for status and publishes a job event.
// For failed jobs errInfo is stored in the errors hash.
func (s *ResultStore) SetStatus(ctx context.Context, jobID, status string, errInfo map[string]interface{}) error {
	if jobID == "" {
		return fmt.Errorf("job ID is required")
	}

	var errorData []byte
	if status == StatusFailed && errInfo != nil {
		data, err := json.Marshal(errInfo)
		if err != nil {
			return fmt.Errorf("failed to marshal error payload: %w", err)
		}
		errorData = data
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, set := range statusSets {
			if set != status {
				pipe.SRem(ctx, s.key(set), jobID)
			}
		}
		pipe.SAdd(ctx, s.key(status), jobID)
		if errorData != nil {
			pipe.HSet(ctx, s.key("errors"), jobID, errorData)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update job status in Redis: %w", err)
	}

	event, err := json.Marshal(JobEvent{
		Event:     "job:" + status,
		JobID:     jobID,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, s.EventsChannel(), event).Err()
}

// Status returns the current status of jobID and, for failed jobs, the
// stored error payload.
func (s *ResultStore) Status(ctx context.Context, jobID string) (string, map[string]interface{}, error) {
	for i := len(statusSets) - 1; i >= 0; i-- {
		status := statusSets[i]
		member, err := s.client.SIsMember(ctx, s.key(status), jobID).Result()
		if err != nil {
			return "", nil, fmt.Errorf("failed to read job status: %w", err)
		}
		if !member {
			continue
		}
		if status != StatusFailed {
			return status, nil, nil
		}

		data, err := s.client.HGet(ctx, s.key("errors"), jobID).Bytes()
		if errors.Is(err, redis.Nil) {
			return status, nil, nil
		}
		if err != nil {
			return "", nil, fmt.Errorf("failed to read job error: %w", err)
		}
		var info map[string]interface{}
		if err := json.Unmarshal(data, &info); err != nil {
			return status, nil, nil
		}
		return status, info, nil
	}
	return "", nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
}

// SaveResult stores a finished workbook and its metadata for ttl
func (s *ResultStore) SaveResult(ctx context.Context, jobID string, workbook []byte, meta ResultMeta, ttl time.Duration) error {
	if jobID == "" {
		return fmt.Errorf("job ID is required")
	}
	meta.JobID = jobID
	if meta.CompletedAt.IsZero() {
		meta.CompletedAt = time.Now().UTC()
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal result metadata: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key("result", jobID), workbook, ttl)
		pipe.Set(ctx, s.key("meta", jobID), metaJSON, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}
	return nil
}

// GetResult returns a stored workbook and its metadata
func (s *ResultStore) GetResult(ctx context.Context, jobID string) ([]byte, *ResultMeta, error) {
	workbook, err := s.client.Get(ctx, s.key("result", jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read result: %w", err)
	}

	meta := &ResultMeta{JobID: jobID}
	data, err := s.client.Get(ctx, s.key("meta", jobID)).Bytes()
	if err == nil {
		if err := json.Unmarshal(data, meta); err != nil {
			return nil, nil, fmt.Errorf("failed to decode result metadata: %w", err)
		}
	} else if !errors.Is(err, redis.Nil) {
		return nil, nil, fmt.Errorf("failed to read result metadata: %w", err)
	}

	return workbook, meta, nil
}

// GetStats returns the number of jobs per status
func (s *ResultStore) GetStats(ctx context.Context) (map[string]int64, error) {
	stats := make(map[string]int64, len(statusSets))
	for _, status := range statusSets {
		n, err := s.client.SCard(ctx, s.key(status)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s count: %w", status, err)
		}
		stats[status] = n
	}
	return stats, nil
}

// Ping checks Redis connectivity
func (s *ResultStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *ResultStore) Close() error {
	return s.client.Close()
}
