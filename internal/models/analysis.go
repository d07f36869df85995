package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

type AnalysisStatus string

const (
	StatusPending    AnalysisStatus = "pending"
	StatusProcessing AnalysisStatus = "processing"
	StatusCompleted  AnalysisStatus = "completed"
	StatusFailed     AnalysisStatus = "failed"
)

// ItemColor is one dominant color of a detected clothing item.
type ItemColor struct {
	Name       string  `json:"name"`
	RGB        []int   `json:"rgb,omitempty"`
	Percentage float64 `json:"percentage,omitempty"`
}

// DetectedItem is one clothing item found in the photo.
type DetectedItem struct {
	Class      string      `json:"class"`
	Confidence float64     `json:"confidence"`
	BBox       []int       `json:"bbox,omitempty"`
	Colors     []ItemColor `json:"colors"`
}

// ScoringBreakdown holds the four component scores.
// json.Number keeps the backend's formatting so the values can be
// shown exactly as sent (80 stays 80, 76.5 stays 76.5).
type ScoringBreakdown struct {
	ClipContextual   json.Number `json:"clip_contextual"`
	ColorHarmony     json.Number `json:"color_harmony"`
	ItemCompleteness json.Number `json:"item_completeness"`
	StyleCoherence   json.Number `json:"style_coherence"`
}

// FileInfo is the backend's metadata about the analyzed file.
type FileInfo struct {
	Filename  string  `json:"filename"`
	SizeBytes int64   `json:"size_bytes"`
	SizeMB    float64 `json:"size_mb"`
	Extension string  `json:"extension"`
	MimeType  string  `json:"mime_type,omitempty"`
}

// AnalysisResult is the backend's /analyze response payload, jsonb
type AnalysisResult struct {
	StyleScore          json.Number      `json:"style_score"`
	Occasion            string           `json:"occasion"`
	OccasionDescription string           `json:"occasion_description,omitempty"`
	DetectedItems       []DetectedItem   `json:"detected_items"`
	ScoringBreakdown    ScoringBreakdown `json:"scoring_breakdown"`
	ContextualFeedback  string           `json:"contextual_feedback"`
	TotalItems          int              `json:"total_items"`
	UniqueColors        int              `json:"unique_colors"`
	AnalysisTimeSeconds float64          `json:"analysis_time_seconds"`

	// Suggestion fields, present when suggestions were requested
	WhatsWorking           string   `json:"whats_working,omitempty"`
	AreasForImprovement    string   `json:"areas_for_improvement,omitempty"`
	SpecificSuggestions    []string `json:"specific_suggestions,omitempty"`
	OccasionTips           string   `json:"occasion_tips,omitempty"`
	AISuggestionsAvailable bool     `json:"ai_suggestions_available,omitempty"`
	SuggestionError        string   `json:"suggestion_error,omitempty"`

	// Request metadata
	RequestID             string    `json:"request_id,omitempty"`
	Timestamp             string    `json:"timestamp,omitempty"`
	ProcessingTimeSeconds float64   `json:"processing_time_seconds,omitempty"`
	FileInfo              *FileInfo `json:"file_info,omitempty"`
}

// HasSuggestions reports whether any suggestion block is present.
func (r *AnalysisResult) HasSuggestions() bool {
	return r.WhatsWorking != "" ||
		r.AreasForImprovement != "" ||
		len(r.SpecificSuggestions) > 0 ||
		r.OccasionTips != ""
}

type Analysis struct {
	ID        int64          `json:"id"`
	UUID      string         `json:"uuid"`
	SessionID int64          `json:"session_id"`
	UserID    *int64         `json:"user_id,omitempty"`
	UploadID  *int64         `json:"upload_id,omitempty"`
	Status    AnalysisStatus `json:"status"`

	// What was asked
	Occasion        string `json:"occasion"`
	StylePreference string `json:"style_preference,omitempty"`
	Budget          string `json:"budget,omitempty"`
	AvoidItems      string `json:"avoid_items,omitempty"`

	// What came back, jsonb
	Result *AnalysisResult `json:"result,omitempty"`

	// Quick-access columns for lists and stats
	StyleScore   *float64 `json:"style_score,omitempty"`
	ErrorMessage *string  `json:"error_message,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Joined data
	Upload *Upload `json:"upload,omitempty"`
}

type AnalysisService struct {
	pool *pgxpool.Pool
}

func NewAnalysisService(pool *pgxpool.Pool) *AnalysisService {
	return &AnalysisService{pool: pool}
}

// Create inserts a pending analysis for a submission.
func (s *AnalysisService) Create(ctx context.Context, sessionID int64, userID *int64, uploadID int64, occasion, stylePreference, budget, avoidItems string) (*Analysis, error) {
	query := `
		INSERT INTO analyses (uuid, session_id, user_id, upload_id, status, occasion, style_preference, budget, avoid_items)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, uuid, session_id, user_id, upload_id, status, occasion, style_preference, budget, avoid_items, created_at
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	analysis := &Analysis{}
	err := s.pool.QueryRow(ctx, query,
		uuid.New().String(),
		sessionID,
		userID,
		uploadID,
		StatusPending,
		occasion,
		stylePreference,
		budget,
		avoidItems,
	).Scan(
		&analysis.ID,
		&analysis.UUID,
		&analysis.SessionID,
		&analysis.UserID,
		&analysis.UploadID,
		&analysis.Status,
		&analysis.Occasion,
		&analysis.StylePreference,
		&analysis.Budget,
		&analysis.AvoidItems,
		&analysis.CreatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create analysis: %w", err)
	}

	return analysis, nil
}

func (s *AnalysisService) MarkProcessing(ctx context.Context, analysisID int64) error {
	query := `
		UPDATE analyses
		SET status = $1, started_at = NOW()
		WHERE id = $2
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx, query, StatusProcessing, analysisID)
	if err != nil {
		return fmt.Errorf("failed to mark analysis as processing: %w", err)
	}

	return nil
}

// Complete stores the backend result and flips the status.
// The full payload goes into the jsonb column; the numeric score is
// duplicated into its own column for list pages and averages.
func (s *AnalysisService) Complete(ctx context.Context, analysisID int64, result *AnalysisResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	var score *float64
	if f, err := result.StyleScore.Float64(); err == nil {
		score = &f
	}

	query := `
		UPDATE analyses
		SET status = $1, result = $2, style_score = $3, completed_at = NOW()
		WHERE id = $4
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	_, err = s.pool.Exec(ctx, query, StatusCompleted, resultJSON, score, analysisID)
	if err != nil {
		return fmt.Errorf("failed to complete analysis: %w", err)
	}

	return nil
}

// Fail marks the analysis as failed with an error message.
func (s *AnalysisService) Fail(ctx context.Context, analysisID int64, errorMsg string) error {
	query := `
		UPDATE analyses
		SET status = $1, error_message = $2, completed_at = NOW()
		WHERE id = $3
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx, query, StatusFailed, errorMsg, analysisID)
	if err != nil {
		return fmt.Errorf("failed to mark analysis as failed: %w", err)
	}

	return nil
}

// ByUUID retrieves a single analysis with its upload joined in.
func (s *AnalysisService) ByUUID(ctx context.Context, id string) (*Analysis, error) {
	query := `
		SELECT a.id, a.uuid, a.session_id, a.user_id, a.upload_id, a.status,
		       a.occasion, a.style_preference, a.budget, a.avoid_items,
		       a.result, a.style_score, a.error_message, a.created_at, a.started_at, a.completed_at,
		       u.id, u.session_id, u.original_name, u.stored_name, u.object_key, u.content_type, u.size_bytes, u.created_at
		FROM analyses a
		LEFT JOIN uploads u ON a.upload_id = u.id
		WHERE a.uuid = $1
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	analysis := &Analysis{}
	var resultJSON []byte
	var up uploadRow

	err := s.pool.QueryRow(ctx, query, id).Scan(
		&analysis.ID,
		&analysis.UUID,
		&analysis.SessionID,
		&analysis.UserID,
		&analysis.UploadID,
		&analysis.Status,
		&analysis.Occasion,
		&analysis.StylePreference,
		&analysis.Budget,
		&analysis.AvoidItems,
		&resultJSON,
		&analysis.StyleScore,
		&analysis.ErrorMessage,
		&analysis.CreatedAt,
		&analysis.StartedAt,
		&analysis.CompletedAt,
		&up.ID,
		&up.SessionID,
		&up.OriginalName,
		&up.StoredName,
		&up.ObjectKey,
		&up.ContentType,
		&up.SizeBytes,
		&up.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAnalysisNotFound
		}
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}

	analysis.Upload = up.toUpload()

	if len(resultJSON) > 0 {
		var result AnalysisResult
		if err := json.Unmarshal(resultJSON, &result); err == nil {
			analysis.Result = &result
		}
	}

	return analysis, nil
}

// BySessionID lists a session's analyses, newest first.
func (s *AnalysisService) BySessionID(ctx context.Context, sessionID int64, limit int) ([]*Analysis, error) {
	return s.list(ctx, `a.session_id = $1`, sessionID, limit)
}

// ByUserID lists an account's analyses across all its sessions.
func (s *AnalysisService) ByUserID(ctx context.Context, userID int64, limit int) ([]*Analysis, error) {
	return s.list(ctx, `a.user_id = $1`, userID, limit)
}

func (s *AnalysisService) list(ctx context.Context, where string, ownerID int64, limit int) ([]*Analysis, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT a.id, a.uuid, a.session_id, a.user_id, a.upload_id, a.status,
		       a.occasion, a.style_preference, a.style_score, a.error_message,
		       a.created_at, a.started_at, a.completed_at,
		       u.id, u.session_id, u.original_name, u.stored_name, u.object_key, u.content_type, u.size_bytes, u.created_at
		FROM analyses a
		LEFT JOIN uploads u ON a.upload_id = u.id
		WHERE ` + where + `
		ORDER BY a.created_at DESC
		LIMIT $2
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var analyses []*Analysis
	for rows.Next() {
		analysis := &Analysis{}
		var up uploadRow
		err := rows.Scan(
			&analysis.ID,
			&analysis.UUID,
			&analysis.SessionID,
			&analysis.UserID,
			&analysis.UploadID,
			&analysis.Status,
			&analysis.Occasion,
			&analysis.StylePreference,
			&analysis.StyleScore,
			&analysis.ErrorMessage,
			&analysis.CreatedAt,
			&analysis.StartedAt,
			&analysis.CompletedAt,
			&up.ID,
			&up.SessionID,
			&up.OriginalName,
			&up.StoredName,
			&up.ObjectKey,
			&up.ContentType,
			&up.SizeBytes,
			&up.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		analysis.Upload = up.toUpload()
		analyses = append(analyses, analysis)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analyses: %w", err)
	}

	return analyses, nil
}

// CountByStatus returns counts of analyses grouped by status for a user.
func (s *AnalysisService) CountByStatus(ctx context.Context, userID int64) (map[AnalysisStatus]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM analyses
		WHERE user_id = $1
		GROUP BY status
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count analyses by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[AnalysisStatus]int)
	for rows.Next() {
		var status AnalysisStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}

	return counts, nil
}

// AverageScore returns the mean style score over a user's completed analyses.
func (s *AnalysisService) AverageScore(ctx context.Context, userID int64) (float64, error) {
	query := `
		SELECT COALESCE(AVG(style_score), 0)
		FROM analyses
		WHERE user_id = $1 AND status = $2 AND style_score IS NOT NULL
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	var avg float64
	err := s.pool.QueryRow(ctx, query, userID, StatusCompleted).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("failed to average scores: %w", err)
	}

	return avg, nil
}

func (s *AnalysisService) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM analyses WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	result, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrAnalysisNotFound
	}

	return nil
}

// DeleteOrphaned removes anonymous analyses whose session is gone.
// Analyses bound to an account are kept regardless of their session.
// Run from the background sweep after expired sessions are deleted.
func (s *AnalysisService) DeleteOrphaned(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM analyses a
		WHERE a.user_id IS NULL
		  AND NOT EXISTS (SELECT 1 FROM sessions s WHERE s.id = a.session_id)
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	result, err := s.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphaned analyses: %w", err)
	}

	return result.RowsAffected(), nil
}

// HELPER FUNCS --------------------------------

// Duration returns how long the analysis took.
// Returns 0 if not completed.
func (a *Analysis) Duration() time.Duration {
	if a.StartedAt == nil || a.CompletedAt == nil {
		return 0
	}
	return a.CompletedAt.Sub(*a.StartedAt)
}

func (a *Analysis) IsPending() bool {
	return a.Status == StatusPending
}

func (a *Analysis) IsProcessing() bool {
	return a.Status == StatusProcessing
}

func (a *Analysis) IsCompleted() bool {
	return a.Status == StatusCompleted
}

func (a *Analysis) IsFailed() bool {
	return a.Status == StatusFailed
}

// OwnedBySession reports whether the row belongs to the given session.
func (a *Analysis) OwnedBySession(sessionID int64) bool {
	return a.SessionID == sessionID
}

// OwnedByUser reports whether the row belongs to the given account.
func (a *Analysis) OwnedByUser(userID int64) bool {
	return a.UserID != nil && *a.UserID == userID
}

// DisplayScore returns the backend-formatted score for rendering, or
// the column value when the payload is gone.
func (a *Analysis) DisplayScore() string {
	if a.Result != nil {
		return a.Result.StyleScore.String()
	}
	if a.StyleScore != nil {
		return fmt.Sprintf("%g", *a.StyleScore)
	}
	return "-"
}

// uploadRow scans the nullable columns of a LEFT JOINed upload.
type uploadRow struct {
	ID           *int64
	SessionID    *int64
	OriginalName *string
	StoredName   *string
	ObjectKey    *string
	ContentType  *string
	SizeBytes    *int64
	CreatedAt    *time.Time
}

func (r uploadRow) toUpload() *Upload {
	if r.ID == nil {
		return nil
	}
	u := &Upload{
		ID:           *r.ID,
		SessionID:    *r.SessionID,
		OriginalName: *r.OriginalName,
		StoredName:   *r.StoredName,
		ObjectKey:    *r.ObjectKey,
		ContentType:  *r.ContentType,
		SizeBytes:    *r.SizeBytes,
		CreatedAt:    *r.CreatedAt,
	}
	return u
}
