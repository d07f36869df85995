package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Upload is one stored outfit photo. The bytes live in the object
// store under ObjectKey; this row is the bookkeeping.
type Upload struct {
	ID           int64     `json:"id"`
	SessionID    int64     `json:"session_id"`
	OriginalName string    `json:"original_name"`
	StoredName   string    `json:"stored_name"`
	ObjectKey    string    `json:"object_key"`
	ContentType  string    `json:"content_type"`
	SizeBytes    int64     `json:"size_bytes"`
	Width        int       `json:"width,omitempty"`
	Height       int       `json:"height,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type UploadService struct {
	pool *pgxpool.Pool
}

// constructor ~
func NewUploadService(pool *pgxpool.Pool) *UploadService {
	return &UploadService{pool: pool}
}

// save upload record to db
func (s *UploadService) Create(ctx context.Context, upload *Upload) (*Upload, error) {
	query := `
		INSERT INTO uploads (session_id, original_name, stored_name, object_key, content_type, size_bytes, width, height)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, session_id, original_name, stored_name, object_key, content_type, size_bytes, width, height, created_at
	`

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result := &Upload{}
	err := s.pool.QueryRow(ctx, query,
		upload.SessionID,
		upload.OriginalName,
		upload.StoredName,
		upload.ObjectKey,
		upload.ContentType,
		upload.SizeBytes,
		upload.Width,
		upload.Height,
	).Scan(
		&result.ID,
		&result.SessionID,
		&result.OriginalName,
		&result.StoredName,
		&result.ObjectKey,
		&result.ContentType,
		&result.SizeBytes,
		&result.Width,
		&result.Height,
		&result.CreatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create upload: %w", err)
	}

	return result, nil
}

// ByID retrieves an upload by its ID.
func (s *UploadService) ByID(ctx context.Context, id int64) (*Upload, error) {
	query := `
		SELECT id, session_id, original_name, stored_name, object_key, content_type, size_bytes, width, height, created_at
		FROM uploads
		WHERE id = $1
	`

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	upload := &Upload{}
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&upload.ID,
		&upload.SessionID,
		&upload.OriginalName,
		&upload.StoredName,
		&upload.ObjectKey,
		&upload.ContentType,
		&upload.SizeBytes,
		&upload.Width,
		&upload.Height,
		&upload.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUploadNotFound
		}
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}

	return upload, nil
}

// Delete removes the bookkeeping row. The caller is responsible for
// removing the object from storage first.
func (s *UploadService) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM uploads WHERE id = $1`

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete upload: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrUploadNotFound
	}

	return nil
}

// Stale lists uploads older than maxAge that are not any session's
// current selection and not referenced by an analysis. These are the
// leftovers that a background sweep can safely remove.
func (s *UploadService) Stale(ctx context.Context, maxAge time.Duration) ([]*Upload, error) {
	query := `
		SELECT u.id, u.session_id, u.original_name, u.stored_name, u.object_key, u.content_type, u.size_bytes, u.width, u.height, u.created_at
		FROM uploads u
		WHERE u.created_at < NOW() - $1::interval
		  AND NOT EXISTS (SELECT 1 FROM sessions s WHERE s.current_upload_id = u.id)
		  AND NOT EXISTS (SELECT 1 FROM analyses a WHERE a.upload_id = u.id)
		ORDER BY u.created_at ASC
	`

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	interval := fmt.Sprintf("%d seconds", int64(maxAge.Seconds()))
	rows, err := s.pool.Query(ctx, query, interval)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale uploads: %w", err)
	}
	defer rows.Close()

	var uploads []*Upload
	for rows.Next() {
		upload := &Upload{}
		err := rows.Scan(
			&upload.ID,
			&upload.SessionID,
			&upload.OriginalName,
			&upload.StoredName,
			&upload.ObjectKey,
			&upload.ContentType,
			&upload.SizeBytes,
			&upload.Width,
			&upload.Height,
			&upload.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		uploads = append(uploads, upload)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating uploads: %w", err)
	}

	return uploads, nil
}

// UploadStats summarizes the stored photos for the health report.
type UploadStats struct {
	TotalFiles  int            `json:"total_files"`
	TotalSizeMB float64        `json:"total_size_mb"`
	FileTypes   map[string]int `json:"file_types"`
}

// Stats aggregates count, size and per-extension counts.
func (s *UploadService) Stats(ctx context.Context) (*UploadStats, error) {
	query := `
		SELECT COALESCE(lower(substring(stored_name from '\.[^.]*$')), ''), COUNT(*), COALESCE(SUM(size_bytes), 0)
		FROM uploads
		GROUP BY 1
	`

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate uploads: %w", err)
	}
	defer rows.Close()

	stats := &UploadStats{FileTypes: make(map[string]int)}
	var totalBytes int64
	for rows.Next() {
		var ext string
		var count int
		var size int64
		if err := rows.Scan(&ext, &count, &size); err != nil {
			return nil, fmt.Errorf("failed to scan upload stats: %w", err)
		}
		stats.TotalFiles += count
		totalBytes += size
		if ext != "" {
			stats.FileTypes[ext] = count
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating upload stats: %w", err)
	}

	stats.TotalSizeMB = float64(totalBytes) / (1024 * 1024)
	stats.TotalSizeMB = float64(int(stats.TotalSizeMB*100)) / 100

	return stats, nil
}

// HELPER FUNCS ------------------------------------------------------

// SizeMB returns the upload size in megabytes, rounded like the
// backend reports it.
func (u *Upload) SizeMB() float64 {
	mb := float64(u.SizeBytes) / (1024 * 1024)
	return float64(int(mb*100)) / 100
}
