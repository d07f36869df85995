package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestAnalysisResultHasSuggestions(t *testing.T) {
	tests := []struct {
		name   string
		result AnalysisResult
		want   bool
	}{
		{
			name:   "no suggestion fields",
			result: AnalysisResult{},
			want:   false,
		},
		{
			name:   "whats working only",
			result: AnalysisResult{WhatsWorking: "Nice color balance"},
			want:   true,
		},
		{
			name:   "areas for improvement only",
			result: AnalysisResult{AreasForImprovement: "Add a belt"},
			want:   true,
		},
		{
			name:   "specific suggestions only",
			result: AnalysisResult{SpecificSuggestions: []string{"Try darker shoes"}},
			want:   true,
		},
		{
			name:   "occasion tips only",
			result: AnalysisResult{OccasionTips: "Keep it simple"},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.HasSuggestions(); got != tt.want {
				t.Errorf("HasSuggestions() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnalysisResultKeepsScoreFormatting(t *testing.T) {
	// Integer scores must not grow a decimal point and fractional scores
	// must not lose one. The page shows these values exactly as sent.
	payload := `{
		"style_score": 82,
		"occasion": "casual_hangout",
		"contextual_feedback": "Solid casual look.",
		"scoring_breakdown": {
			"clip_contextual": 80,
			"color_harmony": 75.5,
			"item_completeness": 90,
			"style_coherence": 85
		}
	}`

	var result AnalysisResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got := result.StyleScore.String(); got != "82" {
		t.Errorf("StyleScore = %q, want %q", got, "82")
	}
	if got := result.ScoringBreakdown.ColorHarmony.String(); got != "75.5" {
		t.Errorf("ColorHarmony = %q, want %q", got, "75.5")
	}
	if got := result.ScoringBreakdown.ClipContextual.String(); got != "80" {
		t.Errorf("ClipContextual = %q, want %q", got, "80")
	}
}

func TestAnalysisDisplayScore(t *testing.T) {
	score := 78.0

	tests := []struct {
		name     string
		analysis Analysis
		want     string
	}{
		{
			name:     "payload wins over column",
			analysis: Analysis{Result: &AnalysisResult{StyleScore: json.Number("82.5")}, StyleScore: &score},
			want:     "82.5",
		},
		{
			name:     "column only",
			analysis: Analysis{StyleScore: &score},
			want:     "78",
		},
		{
			name:     "nothing recorded",
			analysis: Analysis{},
			want:     "-",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.analysis.DisplayScore(); got != tt.want {
				t.Errorf("DisplayScore() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnalysisDuration(t *testing.T) {
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	completed := started.Add(3 * time.Second)

	a := Analysis{StartedAt: &started, CompletedAt: &completed}
	if got := a.Duration(); got != 3*time.Second {
		t.Errorf("Duration() = %v, want %v", got, 3*time.Second)
	}

	if got := (&Analysis{StartedAt: &started}).Duration(); got != 0 {
		t.Errorf("Duration() before completion = %v, want 0", got)
	}
}

func TestAnalysisOwnership(t *testing.T) {
	userID := int64(7)
	a := Analysis{SessionID: 3, UserID: &userID}

	if !a.OwnedBySession(3) {
		t.Errorf("OwnedBySession(3) = false, want true")
	}
	if a.OwnedBySession(4) {
		t.Errorf("OwnedBySession(4) = true, want false")
	}
	if !a.OwnedByUser(7) {
		t.Errorf("OwnedByUser(7) = false, want true")
	}
	if (&Analysis{SessionID: 3}).OwnedByUser(7) {
		t.Errorf("OwnedByUser on anonymous analysis = true, want false")
	}
}

func TestFileErrorMessage(t *testing.T) {
	fe := &FileError{Issue: "file too large (max 10MB)"}
	if !strings.Contains(fe.Error(), "file too large") {
		t.Errorf("FileError message = %q, want it to carry the issue", fe.Error())
	}
}
