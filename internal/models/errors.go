package models

import (
	"errors"
	"fmt"
)

// User related errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
)

// Session related errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// Upload related errors
var (
	ErrUploadNotFound = errors.New("upload not found")
	ErrNoSelection    = errors.New("no photo selected")
)

// Analysis related errors
var (
	ErrAnalysisNotFound   = errors.New("analysis not found")
	ErrInvalidOccasion    = errors.New("invalid occasion")
	ErrAnalysisInFlight   = errors.New("analysis already in progress")
	ErrAnalysisNotOwned   = errors.New("analysis belongs to someone else")
	ErrResultNotAvailable = errors.New("analysis result not available")
)

type FileError struct {
	Issue string
}

func (fe FileError) Error() string {
	return fmt.Sprintf("invalid file: %v", fe.Issue)
}
