package models

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

// Session is an anonymous browser session. Visitors get one on first
// contact; signing in binds it to an account. The session owns the
// currently selected photo, which is how a failed analysis keeps the
// selection across the error page.
type Session struct {
	ID     int64  `json:"id"`
	UserID *int64 `json:"user_id,omitempty"`
	//Token is only set when creating a new session. When looking up a
	//session this will be left empty, as we only store the hash of a
	//session token in our database and we cannot reverse it into a raw
	//token.
	Token           string
	TokenHash       string
	CurrentUploadID *int64
	CreatedAt       time.Time
	ExpiresAt       time.Time
}

const (
	// MinBytesPerToken is the minimum number of bytes for a session token
	MinBytesPerToken = 32
	// DefaultTokenLength is the default token length (32 bytes = 256 bits)
	DefaultTokenLength = 32
	// SessionDuration is how long a session lasts (24 hours)
	SessionDuration = 24 * time.Hour
)

type SessionService struct {
	DB *sql.DB

	BytesPerToken   int
	SessionDuration time.Duration
}

func NewSessionService(db *sql.DB) *SessionService {
	return &SessionService{
		DB:              db,
		BytesPerToken:   DefaultTokenLength,
		SessionDuration: SessionDuration,
	}
}

// Create starts a new anonymous session.
func (ss *SessionService) Create(ctx context.Context) (*Session, error) {
	// check token length
	bytesPerToken := ss.BytesPerToken
	if bytesPerToken < MinBytesPerToken {
		bytesPerToken = MinBytesPerToken
	}
	token, err := ss.generateToken(bytesPerToken)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	session := Session{
		Token:     token,
		TokenHash: ss.hash(token),
		ExpiresAt: time.Now().Add(ss.SessionDuration),
	}

	row := ss.DB.QueryRowContext(ctx, `
	INSERT INTO sessions (token_hash, expires_at)
	VALUES ($1, $2)
	RETURNING id, created_at, expires_at
	`, session.TokenHash, session.ExpiresAt)

	err = row.Scan(&session.ID, &session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &session, nil
}

// ByToken resolves a live session from its raw cookie token.
func (ss *SessionService) ByToken(ctx context.Context, token string) (*Session, error) {
	tokenHash := ss.hash(token)
	session := Session{TokenHash: tokenHash}
	row := ss.DB.QueryRowContext(ctx, `
	SELECT id, user_id, current_upload_id, created_at, expires_at
	FROM sessions
	WHERE token_hash = $1 AND expires_at > NOW();`, tokenHash)
	err := row.Scan(&session.ID, &session.UserID, &session.CurrentUploadID, &session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("session lookup: %w", err)
	}

	return &session, nil
}

// User returns the account bound to the session token, if any.
// Anonymous sessions come back as ErrSessionNotFound here, which the
// middleware treats as "no current user".
func (ss *SessionService) User(ctx context.Context, token string) (*User, error) {
	tokenHash := ss.hash(token)
	var user User
	row := ss.DB.QueryRowContext(ctx, `
	SELECT users.id,
		users.email,
		users.password_hash
	FROM sessions
	JOIN users ON users.id = sessions.user_id
	WHERE sessions.token_hash = $1 AND sessions.expires_at > NOW();`, tokenHash)
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("users: %w", err)
	}

	return &user, nil
}

// BindUser attaches an account to the session at sign-in so history
// made while browsing follows the account.
func (ss *SessionService) BindUser(ctx context.Context, sessionID, userID int64) error {
	_, err := ss.DB.ExecContext(ctx, `
	UPDATE sessions
	SET user_id = $1
	WHERE id = $2`, userID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to bind session user: %w", err)
	}
	return nil
}

// UnbindUser detaches the account at sign-out but keeps the session
// (and its selected photo) alive for anonymous browsing.
func (ss *SessionService) UnbindUser(ctx context.Context, sessionID int64) error {
	_, err := ss.DB.ExecContext(ctx, `
	UPDATE sessions
	SET user_id = NULL
	WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to unbind session user: %w", err)
	}
	return nil
}

// SetCurrentUpload replaces the session's selected photo. Passing nil
// clears the selection.
func (ss *SessionService) SetCurrentUpload(ctx context.Context, sessionID int64, uploadID *int64) error {
	result, err := ss.DB.ExecContext(ctx, `
	UPDATE sessions
	SET current_upload_id = $1
	WHERE id = $2`, uploadID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to set current upload: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (ss *SessionService) Delete(ctx context.Context, token string) error {
	tokenHash := ss.hash(token)
	result, err := ss.DB.ExecContext(ctx, `
	DELETE FROM sessions
	WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteExpired clears out dead sessions. Run from the background
// sweep alongside the stale upload cleanup.
func (ss *SessionService) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := ss.DB.ExecContext(ctx, `
	DELETE FROM sessions
	WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}

func (ss *SessionService) generateToken(length int) (string, error) {
	// Create byte slice
	b := make([]byte, length)

	// Fill with random bytes
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to read random: %w", err)
	}

	// Encode to base64 for URL-safe string
	token := base64.URLEncoding.EncodeToString(b)
	return token, nil
}

// Store hash in database
func (ss *SessionService) hash(token string) string {
	// Create SHA256 hash
	hash := sha256.Sum256([]byte(token))

	// Encode to base64
	tokenHash := base64.URLEncoding.EncodeToString(hash[:])
	return tokenHash
}
