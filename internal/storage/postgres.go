/**
 * PostgreSQL Client for the PDF extractor
 *
 * Handles job persistence: one row per extraction job in
 * pdfextractor.processing_jobs, created or updated on every status change.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	_ "github.com/lib/pq"
)

// ErrJobNotFound is returned when no job row exists for an ID.
var ErrJobNotFound = errors.New("job not found")

// PostgresClient handles database operations
type PostgresClient struct {
	db *sql.DB
}

// JobUpdate represents a job status update
type JobUpdate struct {
	JobID            string
	Status           string
	Progress         int
	Filename         string
	MimeType         string
	FileSize         int64
	Engine           string
	Profile          string
	PageCount        int
	ProcessingTimeMs int64
	ErrorCode        string
	ErrorMessage     string
	Metadata         map[string]interface{}
}

const schemaSQL = `
	CREATE SCHEMA IF NOT EXISTS pdfextractor;

	CREATE TABLE IF NOT EXISTS pdfextractor.processing_jobs (
		id                 UUID PRIMARY KEY,
		filename           TEXT NOT NULL DEFAULT 'unknown.pdf',
		mime_type          TEXT,
		file_size          BIGINT,
		status             TEXT NOT NULL,
		progress           INTEGER NOT NULL DEFAULT 0,
		engine             TEXT,
		profile            TEXT,
		page_count         INTEGER,
		processing_time_ms BIGINT,
		error_code         TEXT,
		error_message      TEXT,
		metadata           JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS processing_jobs_status_idx ON pdfextractor.processing_jobs (status);
`

// NewPostgresClient creates a new PostgreSQL client
func NewPostgresClient(databaseURL string) (*PostgresClient, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	// Connect to database
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{db: db}, nil
}

// EnsureSchema creates the jobs schema and table when missing
func (p *PostgresClient) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// UpdateJobStatus updates job status in the database
func (p *PostgresClient) UpdateJobStatus(ctx context.Context, update *JobUpdate) error {
	if update.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	if update.Status == "" {
		return fmt.Errorf("status is required")
	}

	metadataJSON, err := json.Marshal(update.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	metadataJSON = sanitizeJSONForPostgres(metadataJSON)

	// UPSERT: the first status update creates the row
	query := `
		INSERT INTO pdfextractor.processing_jobs (
			id, filename, mime_type, file_size,
			status, progress, engine, profile, page_count, processing_time_ms,
			error_code, error_message, metadata,
			created_at, updated_at
		) VALUES (
			$1::uuid, COALESCE(NULLIF($2, ''), 'unknown.pdf'), NULLIF($3, ''), NULLIF($4, 0),
			$5, $6, NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, 0), NULLIF($10, 0),
			NULLIF($11, ''), NULLIF($12, ''),
			COALESCE(NULLIF($13, 'null')::jsonb, '{}'::jsonb),
			NOW(), NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			progress = EXCLUDED.progress,
			filename = CASE
				WHEN EXCLUDED.filename = 'unknown.pdf' THEN pdfextractor.processing_jobs.filename
				ELSE EXCLUDED.filename
			END,
			mime_type = COALESCE(EXCLUDED.mime_type, pdfextractor.processing_jobs.mime_type),
			file_size = COALESCE(EXCLUDED.file_size, pdfextractor.processing_jobs.file_size),
			engine = COALESCE(EXCLUDED.engine, pdfextractor.processing_jobs.engine),
			profile = COALESCE(EXCLUDED.profile, pdfextractor.processing_jobs.profile),
			page_count = COALESCE(EXCLUDED.page_count, pdfextractor.processing_jobs.page_count),
			processing_time_ms = COALESCE(EXCLUDED.processing_time_ms, pdfextractor.processing_jobs.processing_time_ms),
			error_code = EXCLUDED.error_code,
			error_message = EXCLUDED.error_message,
			metadata = pdfextractor.processing_jobs.metadata || EXCLUDED.metadata,
			updated_at = NOW()
		RETURNING id
	`

	var returnedID string
	err = p.db.QueryRowContext(
		ctx,
		query,
		update.JobID,            // $1
		update.Filename,         // $2
		update.MimeType,         // $3
		update.FileSize,         // $4
		update.Status,           // $5
		update.Progress,         // $6
		update.Engine,           // $7
		update.Profile,          // $8
		update.PageCount,        // $9
		update.ProcessingTimeMs, // $10
		update.ErrorCode,        // $11
		update.ErrorMessage,     // $12
		string(metadataJSON),    // $13
	).Scan(&returnedID)

	if err != nil {
		return fmt.Errorf("failed to update job status (job=%s, status=%s): %w",
			update.JobID, update.Status, err)
	}

	return nil
}

// GetJobByID retrieves a job by ID
func (p *PostgresClient) GetJobByID(ctx context.Context, jobID string) (map[string]interface{}, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job ID is required")
	}

	query := `
		SELECT
			id, filename, mime_type, file_size,
			status, progress, engine, profile, page_count, processing_time_ms,
			error_code, error_message, metadata,
			created_at, updated_at
		FROM pdfextractor.processing_jobs
		WHERE id = $1::uuid
	`

	var (
		id, filename, status       string
		mimeType, engine, profile  sql.NullString
		errorCode, errorMessage    sql.NullString
		fileSize, processingTimeMs sql.NullInt64
		progress                   int
		pageCount                  sql.NullInt32
		metadataJSON               []byte
		createdAt, updatedAt       time.Time
	)

	err := p.db.QueryRowContext(ctx, query, jobID).Scan(
		&id, &filename, &mimeType, &fileSize,
		&status, &progress, &engine, &profile, &pageCount, &processingTimeMs,
		&errorCode, &errorMessage, &metadataJSON,
		&createdAt, &updatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	// Parse metadata
	var metadata map[string]interface{}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	// Build result map
	result := map[string]interface{}{
		"id":        id,
		"filename":  filename,
		"status":    status,
		"progress":  progress,
		"createdAt": createdAt,
		"updatedAt": updatedAt,
		"metadata":  metadata,
	}

	if mimeType.Valid {
		result["mimeType"] = mimeType.String
	}
	if fileSize.Valid {
		result["fileSize"] = fileSize.Int64
	}
	if engine.Valid {
		result["engine"] = engine.String
	}
	if profile.Valid {
		result["profile"] = profile.String
	}
	if pageCount.Valid {
		result["pages"] = pageCount.Int32
	}
	if processingTimeMs.Valid {
		result["processingTimeMs"] = processingTimeMs.Int64
	}
	if errorCode.Valid {
		result["errorCode"] = errorCode.String
	}
	if errorMessage.Valid {
		result["errorMessage"] = errorMessage.String
	}

	return result, nil
}

// Ping checks database connectivity
func (p *PostgresClient) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database connection
func (p *PostgresClient) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// GetStats returns connection pool statistics
func (p *PostgresClient) GetStats() sql.DBStats {
	return p.db.Stats()
}

var (
	nullEscape    = regexp.MustCompile(`\\u0000`)
	controlEscape = regexp.MustCompile(`\\u00[01][0-9a-fA-F]`)
)

// sanitizeJSONForPostgres removes escape sequences PostgreSQL JSONB rejects.
// \u0000 is dropped, other control character escapes become a space.
func sanitizeJSONForPostgres(jsonBytes []byte) []byte {
	result := nullEscape.ReplaceAll(jsonBytes, []byte{})
	return controlEscape.ReplaceAll(result, []byte(" "))
}
