package controllers

import (
	"fmt"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/middleware"
	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/models"
	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/views"
)

// DashboardController handles the account dashboard.
type DashboardController struct {
	analysisService *models.AnalysisService
	template        *views.Template
}

// NewDashboardController creates a new DashboardController.
func NewDashboardController(
	analysisService *models.AnalysisService,
	template *views.Template,
) *DashboardController {
	return &DashboardController{
		analysisService: analysisService,
		template:        template,
	}
}

// DashboardData holds data for the dashboard template.
type DashboardData struct {
	Analyses       []*models.Analysis
	TotalAnalyses  int
	CompletedCount int
	FailedCount    int
	AverageScore   string
}

// GetDashboard renders the account dashboard.
func (c *DashboardController) GetDashboard(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustCurrentUser(r)

	// Get recent analyses
	analyses, err := c.analysisService.ByUserID(r.Context(), user.ID, 20)
	if err != nil {
		http.Error(w, "Failed to load analyses", http.StatusInternalServerError)
		return
	}

	// Get status counts
	statusCounts, err := c.analysisService.CountByStatus(r.Context(), user.ID)
	if err != nil {
		statusCounts = make(map[models.AnalysisStatus]int)
	}

	// Calculate total
	totalAnalyses := 0
	for _, count := range statusCounts {
		totalAnalyses += count
	}

	// Average score across completed analyses
	averageScore := "-"
	if avg, err := c.analysisService.AverageScore(r.Context(), user.ID); err == nil && statusCounts[models.StatusCompleted] > 0 {
		averageScore = fmt.Sprintf("%.1f", avg)
	}

	data := &views.TemplateData{
		Title:       "Dashboard",
		CSRFToken:   csrf.Token(r),
		CurrentUser: user,
		Data: DashboardData{
			Analyses:       analyses,
			TotalAnalyses:  totalAnalyses,
			CompletedCount: statusCounts[models.StatusCompleted],
			FailedCount:    statusCounts[models.StatusFailed],
			AverageScore:   averageScore,
		},
	}

	// Check for success/error messages from query params
	if msg := r.URL.Query().Get("success"); msg != "" {
		data.Success = msg
	}
	if msg := r.URL.Query().Get("error"); msg != "" {
		data.Error = msg
	}

	c.template.ExecuteHTTP(w, r, data)
}
