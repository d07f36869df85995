package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestOutfitClientAnalyze(t *testing.T) {
	t.Run("sends the form the backend expects", func(t *testing.T) {
		var gotFile, gotFileType string
		var gotForm map[string][]string

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != "POST" || r.URL.Path != "/analyze" {
				t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			}
			if err := r.ParseMultipartForm(32 << 20); err != nil {
				t.Fatalf("parse multipart: %v", err)
			}
			files := r.MultipartForm.File["file"]
			if len(files) != 1 {
				t.Fatalf("file parts = %d, want 1", len(files))
			}
			gotFile = files[0].Filename
			gotFileType = files[0].Header.Get("Content-Type")
			gotForm = r.MultipartForm.Value

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"style_score": 82, "occasion": "date_night", "contextual_feedback": "ok", "scoring_breakdown": {"clip_contextual": 80, "color_harmony": 75, "item_completeness": 90, "style_coherence": 85}}`))
		}))
		defer srv.Close()

		client := NewOutfitClient(srv.URL, 5*time.Second)
		result, err := client.Analyze(context.Background(), AnalyzeRequest{
			Filename:        "outfit.jpg",
			ContentType:     "image/jpeg",
			Photo:           strings.NewReader("fake image bytes"),
			Occasion:        "date_night",
			StylePreference: "minimalist",
		})
		if err != nil {
			t.Fatalf("Analyze() error = %v", err)
		}

		if gotFile != "outfit.jpg" {
			t.Errorf("file part filename = %q, want %q", gotFile, "outfit.jpg")
		}
		if gotFileType != "image/jpeg" {
			t.Errorf("file part content type = %q, want %q", gotFileType, "image/jpeg")
		}
		if got := gotForm["occasion"]; len(got) != 1 || got[0] != "date_night" {
			t.Errorf("occasion field = %v, want [date_night]", got)
		}
		if got := gotForm["include_suggestions"]; len(got) != 1 || got[0] != "true" {
			t.Errorf("include_suggestions field = %v, want [true]", got)
		}
		if got := gotForm["user_style_preference"]; len(got) != 1 || got[0] != "minimalist" {
			t.Errorf("user_style_preference field = %v, want [minimalist]", got)
		}

		if got := result.StyleScore.String(); got != "82" {
			t.Errorf("StyleScore = %q, want %q", got, "82")
		}
		if got := result.ScoringBreakdown.StyleCoherence.String(); got != "85" {
			t.Errorf("StyleCoherence = %q, want %q", got, "85")
		}
	})

	t.Run("skips the style field when nothing was picked", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseMultipartForm(32 << 20); err != nil {
				t.Fatalf("parse multipart: %v", err)
			}
			if _, ok := r.MultipartForm.Value["user_style_preference"]; ok {
				t.Errorf("user_style_preference sent for empty selection")
			}
			if _, ok := r.MultipartForm.Value["user_budget"]; ok {
				t.Errorf("user_budget sent for empty selection")
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"style_score": 70, "occasion": "casual_hangout", "contextual_feedback": "ok", "scoring_breakdown": {"clip_contextual": 70, "color_harmony": 70, "item_completeness": 70, "style_coherence": 70}}`))
		}))
		defer srv.Close()

		client := NewOutfitClient(srv.URL, 5*time.Second)
		_, err := client.Analyze(context.Background(), AnalyzeRequest{
			Filename: "fit.png",
			Photo:    strings.NewReader("png bytes"),
			Occasion: "casual_hangout",
		})
		if err != nil {
			t.Fatalf("Analyze() error = %v", err)
		}
	})

	t.Run("backend failure surfaces the status message", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"detail": "Analysis failed: model not loaded"}`))
		}))
		defer srv.Close()

		client := NewOutfitClient(srv.URL, 5*time.Second)
		_, err := client.Analyze(context.Background(), AnalyzeRequest{
			Filename: "fit.jpg",
			Photo:    strings.NewReader("bytes"),
			Occasion: "work_meeting",
		})
		if err == nil {
			t.Fatalf("Analyze() error = nil, want StatusError")
		}

		if got := err.Error(); got != "HTTP error! status: 500" {
			t.Errorf("error message = %q, want %q", got, "HTTP error! status: 500")
		}

		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("error %T is not a StatusError", err)
		}
		if statusErr.Code != 500 {
			t.Errorf("Code = %d, want 500", statusErr.Code)
		}
		if statusErr.Detail != "Analysis failed: model not loaded" {
			t.Errorf("Detail = %q, want backend detail", statusErr.Detail)
		}
	})

	t.Run("non-JSON error body lands in Detail", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream offline\n"))
		}))
		defer srv.Close()

		client := NewOutfitClient(srv.URL, 5*time.Second)
		_, err := client.Analyze(context.Background(), AnalyzeRequest{
			Filename: "fit.jpg",
			Photo:    strings.NewReader("bytes"),
			Occasion: "formal_event",
		})

		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("error %T is not a StatusError", err)
		}
		if got := err.Error(); got != "HTTP error! status: 502" {
			t.Errorf("error message = %q, want %q", got, "HTTP error! status: 502")
		}
		if statusErr.Detail != "upstream offline" {
			t.Errorf("Detail = %q, want %q", statusErr.Detail, "upstream offline")
		}
	})
}

func TestOutfitClientCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/occasions":
			w.Write([]byte(`{"occasions": ["casual_hangout", "job_interview"], "descriptions": {"casual_hangout": "Relaxed social gathering", "job_interview": "Professional interview setting"}, "total_count": 2}`))
		case "/classes":
			w.Write([]byte(`{"classes": ["shirt", "pants"], "total_count": 2}`))
		case "/tips/job_interview":
			w.Write([]byte(`{"occasion": "job_interview", "occasion_description": "Professional interview setting", "tips": ["Wear a blazer", "Keep colors muted"]}`))
		case "/health":
			w.Write([]byte(`{"status": "healthy", "models": {"yolo": true, "clip": true, "gemini": false, "analyzer_ready": true, "llm_ready": false}, "device": "cpu"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewOutfitClient(srv.URL, 5*time.Second)
	ctx := context.Background()

	t.Run("occasions", func(t *testing.T) {
		list, err := client.Occasions(ctx)
		if err != nil {
			t.Fatalf("Occasions() error = %v", err)
		}
		if list.TotalCount != 2 || len(list.Occasions) != 2 {
			t.Errorf("Occasions() = %+v, want 2 entries", list)
		}
		if list.Descriptions["job_interview"] != "Professional interview setting" {
			t.Errorf("description missing for job_interview")
		}
	})

	t.Run("tips", func(t *testing.T) {
		tips, err := client.Tips(ctx, "job_interview")
		if err != nil {
			t.Fatalf("Tips() error = %v", err)
		}
		if len(tips.Tips) != 2 || tips.Tips[0] != "Wear a blazer" {
			t.Errorf("Tips() = %+v, want the backend's tips", tips.Tips)
		}
	})

	t.Run("health", func(t *testing.T) {
		health, err := client.Health(ctx)
		if err != nil {
			t.Fatalf("Health() error = %v", err)
		}
		if health.Status != "healthy" {
			t.Errorf("Status = %q, want %q", health.Status, "healthy")
		}
		if !health.Models["yolo"] || health.Models["gemini"] {
			t.Errorf("Models = %v, want yolo=true gemini=false", health.Models)
		}
	})

	t.Run("unknown occasion bubbles the status", func(t *testing.T) {
		_, err := client.Tips(ctx, "space_walk")
		if err == nil {
			t.Fatalf("Tips() error = nil, want StatusError")
		}
		if got := err.Error(); got != "HTTP error! status: 404" {
			t.Errorf("error message = %q, want %q", got, "HTTP error! status: 404")
		}
	})
}
