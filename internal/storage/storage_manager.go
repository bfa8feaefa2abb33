/**
 * Storage Manager for the PDF extractor
 *
 * Coordinates job tracking across PostgreSQL (durable job rows) and Redis
 * (status sets, events and finished workbooks). Either backend is optional.
 */

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrResultsDisabled is returned when a result operation is attempted
// without a Redis backend.
var ErrResultsDisabled = errors.New("result storage is not configured")

// StorageManager coordinates PostgreSQL and Redis operations
type StorageManager struct {
	postgres *PostgresClient
	results  *ResultStore
}

// NewStorageManager connects the configured backends. Empty URLs disable
// the corresponding backend.
func NewStorageManager(ctx context.Context, databaseURL, redisURL, prefix string) (*StorageManager, error) {
	sm := &StorageManager{}

	if databaseURL != "" {
		postgres, err := NewPostgresClient(databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL client: %w", err)
		}
		if err := postgres.EnsureSchema(ctx); err != nil {
			postgres.Close()
			return nil, err
		}
		sm.postgres = postgres
	}

	if redisURL != "" {
		results, err := NewResultStore(redisURL, prefix)
		if err != nil {
			sm.Close() // Cleanup on failure
			return nil, fmt.Errorf("failed to initialize Redis result store: %w", err)
		}
		sm.results = results
	}

	return sm, nil
}

// NewStorageManagerWith assembles a manager from existing clients. Either
// may be nil.
func NewStorageManagerWith(postgres *PostgresClient, results *ResultStore) *StorageManager {
	return &StorageManager{postgres: postgres, results: results}
}

// HasResults reports whether workbooks can be stored.
func (sm *StorageManager) HasResults() bool {
	return sm.results != nil
}

// HasDatabase reports whether jobs are persisted in PostgreSQL.
func (sm *StorageManager) HasDatabase() bool {
	return sm.postgres != nil
}

// Events returns the pub/sub channel job events are published on, or ""
// without Redis.
func (sm *StorageManager) Events() string {
	if sm.results == nil {
		return ""
	}
	return sm.results.EventsChannel()
}

// UpdateJobStatus records a status change in both backends
func (sm *StorageManager) UpdateJobStatus(ctx context.Context, update *JobUpdate) error {
	var errs []error

	if sm.results != nil {
		var errInfo map[string]interface{}
		if update.Status == StatusFailed {
			errInfo = map[string]interface{}{
				"error_code": update.ErrorCode,
				"error":      update.ErrorMessage,
			}
		}
		if err := sm.results.SetStatus(ctx, update.JobID, update.Status, errInfo); err != nil {
			errs = append(errs, err)
		}
	}

	if sm.postgres != nil {
		if err := sm.postgres.UpdateJobStatus(ctx, update); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// GetJobByID retrieves a job. PostgreSQL is authoritative when configured;
// otherwise the Redis status sets are consulted.
func (sm *StorageManager) GetJobByID(ctx context.Context, jobID string) (map[string]interface{}, error) {
	if sm.postgres != nil {
		return sm.postgres.GetJobByID(ctx, jobID)
	}
	if sm.results == nil {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	status, errInfo, err := sm.results.Status(ctx, jobID)
	if err != nil {
		return nil, err
	}
	job := map[string]interface{}{
		"id":     jobID,
		"status": status,
	}
	if errInfo != nil {
		if code, ok := errInfo["error_code"].(string); ok && code != "" {
			job["errorCode"] = code
		}
		if msg, ok := errInfo["error"].(string); ok && msg != "" {
			job["errorMessage"] = msg
		}
	}
	return job, nil
}

// SaveResult stores a finished workbook
func (sm *StorageManager) SaveResult(ctx context.Context, jobID string, workbook []byte, meta ResultMeta, ttl time.Duration) error {
	if sm.results == nil {
		return ErrResultsDisabled
	}
	return sm.results.SaveResult(ctx, jobID, workbook, meta, ttl)
}

// GetResult loads a finished workbook
func (sm *StorageManager) GetResult(ctx context.Context, jobID string) ([]byte, *ResultMeta, error) {
	if sm.results == nil {
		return nil, nil, ErrResultsDisabled
	}
	return sm.results.GetResult(ctx, jobID)
}

// Ping checks every configured backend
func (sm *StorageManager) Ping(ctx context.Context) map[string]string {
	status := map[string]string{}
	if sm.postgres != nil {
		status["postgres"] = pingStatus(sm.postgres.Ping(ctx))
	}
	if sm.results != nil {
		status["redis"] = pingStatus(sm.results.Ping(ctx))
	}
	return status
}

func pingStatus(err error) string {
	if err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

// GetStats returns statistics from both systems
func (sm *StorageManager) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{}

	if sm.postgres != nil {
		pgStats := sm.postgres.GetStats()
		stats["postgres"] = map[string]interface{}{
			"max_open_connections": pgStats.MaxOpenConnections,
			"open_connections":     pgStats.OpenConnections,
			"in_use":               pgStats.InUse,
			"idle":                 pgStats.Idle,
			"wait_count":           pgStats.WaitCount,
			"wait_duration":        pgStats.WaitDuration.String(),
		}
	}

	if sm.results != nil {
		jobStats, err := sm.results.GetStats(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get Redis stats: %w", err)
		}
		stats["jobs"] = jobStats
	}

	return stats, nil
}

// Close closes all connections
func (sm *StorageManager) Close() error {
	var pgErr, rdErr error

	if sm.postgres != nil {
		pgErr = sm.postgres.Close()
	}

	if sm.results != nil {
		rdErr = sm.results.Close()
	}

	if pgErr != nil {
		return fmt.Errorf("failed to close PostgreSQL: %w", pgErr)
	}

	if rdErr != nil {
		return fmt.Errorf("failed to close Redis: %w", rdErr)
	}

	return nil
}
