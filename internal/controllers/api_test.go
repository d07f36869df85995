package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/models"
	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/services"
)

// stubBackend implements backendCatalog with canned responses.
type stubBackend struct {
	occasions *services.OccasionList
	classes   *services.ClassList
	tips      *services.OccasionTips
	health    *services.BackendHealth
	info      *services.BackendInfo
	err       error
}

func (s *stubBackend) Occasions(ctx context.Context) (*services.OccasionList, error) {
	return s.occasions, s.err
}

func (s *stubBackend) Classes(ctx context.Context) (*services.ClassList, error) {
	return s.classes, s.err
}

func (s *stubBackend) Tips(ctx context.Context, occasion string) (*services.OccasionTips, error) {
	return s.tips, s.err
}

func (s *stubBackend) Health(ctx context.Context) (*services.BackendHealth, error) {
	return s.health, s.err
}

func (s *stubBackend) Info(ctx context.Context) (*services.BackendInfo, error) {
	return s.info, s.err
}

type stubPinger struct {
	err error
}

func (s *stubPinger) Health(ctx context.Context) error { return s.err }

type stubUploads struct {
	stats *models.UploadStats
	err   error
}

func (s *stubUploads) Stats(ctx context.Context) (*models.UploadStats, error) {
	return s.stats, s.err
}

func TestGetHealthAllUp(t *testing.T) {
	c := NewApiController(
		&stubPinger{},
		&stubBackend{health: &services.BackendHealth{
			Status: "healthy",
			Models: map[string]bool{"yolo": true, "clip": true},
			Device: "cuda",
		}},
		&stubUploads{stats: &models.UploadStats{TotalFiles: 3, TotalSizeMB: 1.25}},
		nil,
	)

	w := httptest.NewRecorder()
	c.GetHealth(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("GetHealth() status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var resp struct {
		Status   string `json:"status"`
		Database string `json:"database"`
		Backend  struct {
			Status string          `json:"status"`
			Models map[string]bool `json:"models"`
		} `json:"backend"`
		Uploads struct {
			TotalFiles int `json:"total_files"`
		} `json:"uploads"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want %q", resp.Status, "ok")
	}
	if resp.Database != "ok" {
		t.Errorf("database = %q, want %q", resp.Database, "ok")
	}
	if resp.Backend.Status != "healthy" {
		t.Errorf("backend.status = %q, want %q", resp.Backend.Status, "healthy")
	}
	if !resp.Backend.Models["yolo"] {
		t.Error("backend.models.yolo = false, want true")
	}
	if resp.Uploads.TotalFiles != 3 {
		t.Errorf("uploads.total_files = %d, want 3", resp.Uploads.TotalFiles)
	}
}

func TestGetHealthDegraded(t *testing.T) {
	tests := []struct {
		name         string
		dbErr        error
		backendErr   error
		wantDatabase string
		wantBackend  string
	}{
		{
			name:         "database down",
			dbErr:        errors.New("connection refused"),
			wantDatabase: "unreachable",
			wantBackend:  "healthy",
		},
		{
			name:         "backend down",
			backendErr:   errors.New("connection refused"),
			wantDatabase: "ok",
			wantBackend:  "unreachable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &stubBackend{err: tt.backendErr}
			if tt.backendErr == nil {
				backend.health = &services.BackendHealth{Status: "healthy"}
			}
			c := NewApiController(&stubPinger{err: tt.dbErr}, backend, &stubUploads{}, nil)

			w := httptest.NewRecorder()
			c.GetHealth(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			var resp struct {
				Status   string `json:"status"`
				Database string `json:"database"`
				Backend  struct {
					Status string `json:"status"`
				} `json:"backend"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Status != "degraded" {
				t.Errorf("status = %q, want %q", resp.Status, "degraded")
			}
			if resp.Database != tt.wantDatabase {
				t.Errorf("database = %q, want %q", resp.Database, tt.wantDatabase)
			}
			if resp.Backend.Status != tt.wantBackend {
				t.Errorf("backend.status = %q, want %q", resp.Backend.Status, tt.wantBackend)
			}
		})
	}
}

func TestGetOccasionsPassthrough(t *testing.T) {
	c := NewApiController(&stubPinger{}, &stubBackend{
		occasions: &services.OccasionList{
			Occasions:    []string{"casual_hangout", "job_interview"},
			Descriptions: map[string]string{"casual_hangout": "Relaxed outing"},
			TotalCount:   2,
		},
	}, &stubUploads{}, nil)

	w := httptest.NewRecorder()
	c.GetOccasions(w, httptest.NewRequest(http.MethodGet, "/api/occasions", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("GetOccasions() status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp services.OccasionList
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Occasions) != 2 || resp.Occasions[0] != "casual_hangout" {
		t.Errorf("occasions = %v, want [casual_hangout job_interview]", resp.Occasions)
	}
	if resp.TotalCount != 2 {
		t.Errorf("total_count = %d, want 2", resp.TotalCount)
	}
}

func TestGetOccasionsBackendDown(t *testing.T) {
	c := NewApiController(&stubPinger{}, &stubBackend{err: errors.New("dial tcp: connection refused")}, &stubUploads{}, nil)

	w := httptest.NewRecorder()
	c.GetOccasions(w, httptest.NewRequest(http.MethodGet, "/api/occasions", nil))

	if w.Code != http.StatusBadGateway {
		t.Fatalf("GetOccasions() status = %d, want %d", w.Code, http.StatusBadGateway)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["detail"] != "Analysis backend unavailable" {
		t.Errorf("detail = %q, want %q", resp["detail"], "Analysis backend unavailable")
	}
}

func TestGetClassesKeepsBackendStatus(t *testing.T) {
	c := NewApiController(&stubPinger{}, &stubBackend{
		err: &services.StatusError{Code: http.StatusServiceUnavailable, Detail: "Models not loaded"},
	}, &stubUploads{}, nil)

	w := httptest.NewRecorder()
	c.GetClasses(w, httptest.NewRequest(http.MethodGet, "/api/classes", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("GetClasses() status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["detail"] != "Models not loaded" {
		t.Errorf("detail = %q, want %q", resp["detail"], "Models not loaded")
	}
}

func TestGetInfoIncludesBackend(t *testing.T) {
	c := NewApiController(&stubPinger{}, &stubBackend{
		info: &services.BackendInfo{Message: "Outfit Evaluator API", Version: "1.0.0"},
	}, &stubUploads{}, nil)

	w := httptest.NewRecorder()
	c.GetInfo(w, httptest.NewRequest(http.MethodGet, "/api/info", nil))

	body := w.Body.String()
	if !strings.Contains(body, `"GBC Outfit Evaluator"`) {
		t.Errorf("response missing service name: %s", body)
	}
	if !strings.Contains(body, `"Outfit Evaluator API"`) {
		t.Errorf("response missing backend info: %s", body)
	}
}

func TestGetInfoBackendDown(t *testing.T) {
	c := NewApiController(&stubPinger{}, &stubBackend{err: errors.New("connection refused")}, &stubUploads{}, nil)

	w := httptest.NewRecorder()
	c.GetInfo(w, httptest.NewRequest(http.MethodGet, "/api/info", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("GetInfo() status = %d, want %d", w.Code, http.StatusOK)
	}
	if strings.Contains(w.Body.String(), `"backend"`) {
		t.Errorf("backend block present despite backend being down: %s", w.Body.String())
	}
}

func TestOccasionDisplay(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"casual_hangout", "Casual Hangout"},
		{"job_interview", "Job Interview"},
		{"business_casual", "Business Casual"},
		{"formal_event", "Formal Event"},
		{"date_night", "Date Night"},
		{"beach_vacation", "Beach Vacation"},
	}

	for _, tt := range tests {
		if got := occasionDisplay(tt.key); got != tt.want {
			t.Errorf("occasionDisplay(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
