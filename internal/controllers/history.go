package controllers

import (
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/middleware"
	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/models"
	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/views"
)

// HistoryController lists the analyses of the current browser
// session. Works for anonymous visitors, no account needed.
type HistoryController struct {
	analysisService *models.AnalysisService
	template        *views.Template
}

// NewHistoryController creates a new HistoryController.
func NewHistoryController(analysisService *models.AnalysisService, template *views.Template) *HistoryController {
	return &HistoryController{
		analysisService: analysisService,
		template:        template,
	}
}

// HistoryData holds data for the history template.
type HistoryData struct {
	Analyses []*models.Analysis
}

// GetHistory renders the session's analysis history.
func (c *HistoryController) GetHistory(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustCurrentSession(r)

	analyses, err := c.analysisService.BySessionID(r.Context(), session.ID, 50)
	if err != nil {
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}

	data := &views.TemplateData{
		Title:       "Analysis History",
		CSRFToken:   csrf.Token(r),
		CurrentUser: middleware.CurrentUser(r),
		Data: HistoryData{
			Analyses: analyses,
		},
	}

	if msg := r.URL.Query().Get("success"); msg != "" {
		data.Success = msg
	}
	if msg := r.URL.Query().Get("error"); msg != "" {
		data.Error = msg
	}

	c.template.ExecuteHTTP(w, r, data)
}
