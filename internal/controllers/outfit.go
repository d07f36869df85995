package controllers

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/middleware"
	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/models"
	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/services"
	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/views"
)

// analysisBackend is the slice of the outfit client the controller
// needs. Tests swap in a stub.
type analysisBackend interface {
	Analyze(ctx context.Context, req services.AnalyzeRequest) (*models.AnalysisResult, error)
	Suggest(ctx context.Context, req services.SuggestionRequest) (*models.AnalysisResult, error)
	Occasions(ctx context.Context) (*services.OccasionList, error)
}

// photoStore is the object storage surface used by upload handling.
type photoStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// OutfitController handles photo upload and outfit analysis.
type OutfitController struct {
	analysisService *models.AnalysisService
	uploadService   *models.UploadService
	sessionService  *models.SessionService
	photoService    *services.PhotoService
	store           photoStore
	backend         analysisBackend
	inflight        *InflightRegistry
	templates       OutfitTemplates
}

// OutfitTemplates holds the templates for upload and result pages.
type OutfitTemplates struct {
	Home   *views.Template
	Result *views.Template
}

func NewOutfitController(
	analysisService *models.AnalysisService,
	uploadService *models.UploadService,
	sessionService *models.SessionService,
	photoService *services.PhotoService,
	store photoStore,
	backend analysisBackend,
	inflight *InflightRegistry,
	templates OutfitTemplates,
) *OutfitController {
	return &OutfitController{
		analysisService: analysisService,
		uploadService:   uploadService,
		sessionService:  sessionService,
		photoService:    photoService,
		store:           store,
		backend:         backend,
		inflight:        inflight,
		templates:       templates,
	}
}

// OccasionOption is one entry of the occasion dropdown.
type OccasionOption struct {
	Value       string
	Label       string
	Description string
}

// StyleOption is one entry of the style preference dropdown.
type StyleOption struct {
	Value string
	Label string
}

// fallbackOccasions keeps the form usable when the backend catalog is
// unreachable. Same set and order as the backend's defaults.
var fallbackOccasions = []string{
	"casual_hangout",
	"job_interview",
	"date_night",
	"work_meeting",
	"formal_event",
	"beach_vacation",
	"night_out",
	"business_casual",
}

// styleOptions is fixed; the backend takes the value as free text.
var styleOptions = []StyleOption{
	{Value: "", Label: "Select style..."},
	{Value: "minimalist", Label: "Minimalist"},
	{Value: "bold", Label: "Bold & Colorful"},
	{Value: "classic", Label: "Classic"},
	{Value: "trendy", Label: "Trendy"},
	{Value: "edgy", Label: "Edgy"},
}

// HomeData holds data for the upload form template.
type HomeData struct {
	Occasions     []OccasionOption
	StyleOptions  []StyleOption
	CurrentUpload *models.Upload

	// Sticky form values after an error
	Occasion        string
	StylePreference string
}

// GetHome renders the upload form, with the current photo selection if
// the session has one.
func (c *OutfitController) GetHome(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustCurrentSession(r)
	user := middleware.CurrentUser(r)

	data := &views.TemplateData{
		Title:       "AI Outfit Evaluator",
		CSRFToken:   csrf.Token(r),
		CurrentUser: user,
		Data: HomeData{
			Occasions:     c.occasionOptions(r.Context()),
			StyleOptions:  styleOptions,
			CurrentUpload: c.currentUpload(r.Context(), session),
		},
	}

	// Check for logout message
	if r.URL.Query().Get("msg") == "logged_out" {
		data.Success = "You have been logged out successfully."
	}
	if msg := r.URL.Query().Get("success"); msg != "" {
		data.Success = msg
	}
	if msg := r.URL.Query().Get("error"); msg != "" {
		data.Error = msg
	}

	c.templates.Home.ExecuteHTTP(w, r, data)
}

// occasionOptions fetches the occasion catalog, falling back to the
// fixed list when the backend is down so the form still renders.
func (c *OutfitController) occasionOptions(ctx context.Context) []OccasionOption {
	list, err := c.backend.Occasions(ctx)
	if err != nil {
		log.Printf("Occasion catalog unavailable, using fallback: %v", err)
		return occasionOptionsFrom(fallbackOccasions, nil)
	}
	return occasionOptionsFrom(list.Occasions, list.Descriptions)
}

func occasionOptionsFrom(keys []string, descriptions map[string]string) []OccasionOption {
	options := make([]OccasionOption, 0, len(keys))
	for _, key := range keys {
		options = append(options, OccasionOption{
			Value:       key,
			Label:       occasionDisplay(key),
			Description: descriptions[key],
		})
	}
	return options
}

// occasionDisplay turns "job_interview" into "Job Interview".
func occasionDisplay(key string) string {
	words := strings.Split(key, "_")
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

// currentUpload loads the session's selected photo, if any.
func (c *OutfitController) currentUpload(ctx context.Context, session *models.Session) *models.Upload {
	if session.CurrentUploadID == nil {
		return nil
	}
	upload, err := c.uploadService.ByID(ctx, *session.CurrentUploadID)
	if err != nil {
		return nil
	}
	return upload
}

// PostUpload takes the picked photo, validates and stores it, and
// makes it the session's current selection.
func (c *OutfitController) PostUpload(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustCurrentSession(r)

	// A little headroom over the photo limit for the form overhead
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxFileSize+(1<<20))
	if err := r.ParseMultipartForm(services.MaxFileSize); err != nil {
		c.renderHome(w, r, http.StatusRequestEntityTooLarge, "", "", "File too large. Maximum allowed: 10MB")
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		c.renderHome(w, r, http.StatusUnprocessableEntity, "", "", "Please choose a photo to upload")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		c.renderHome(w, r, http.StatusInternalServerError, "", "", "Failed to read the uploaded file")
		return
	}

	photo, err := c.photoService.Process(content, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		var fe *models.FileError
		if errors.As(err, &fe) {
			c.renderHome(w, r, http.StatusUnprocessableEntity, "", "", fe.Issue)
			return
		}
		log.Printf("Upload processing failed: %v", err)
		c.renderHome(w, r, http.StatusInternalServerError, "", "", "Failed to process the uploaded photo")
		return
	}

	objectKey := "uploads/" + photo.StoredName
	if err := c.store.Put(r.Context(), objectKey, photo.Data, photo.ContentType); err != nil {
		log.Printf("Upload storage failed: %v", err)
		c.renderHome(w, r, http.StatusInternalServerError, "", "", "Failed to store the uploaded photo")
		return
	}

	upload, err := c.uploadService.Create(r.Context(), &models.Upload{
		SessionID:    session.ID,
		OriginalName: photo.OriginalName,
		StoredName:   photo.StoredName,
		ObjectKey:    objectKey,
		ContentType:  photo.ContentType,
		SizeBytes:    int64(len(photo.Data)),
		Width:        photo.Width,
		Height:       photo.Height,
	})
	if err != nil {
		log.Printf("Upload record failed: %v", err)
		c.renderHome(w, r, http.StatusInternalServerError, "", "", "Failed to save the uploaded photo")
		return
	}

	// Replace the session's selection. The previous upload stays for
	// any analyses that reference it; the sweeper collects orphans.
	if err := c.sessionService.SetCurrentUpload(r.Context(), session.ID, &upload.ID); err != nil {
		log.Printf("Failed to set current upload: %v", err)
		c.renderHome(w, r, http.StatusInternalServerError, "", "", "Failed to select the uploaded photo")
		return
	}

	http.Redirect(w, r, "/?success=Photo+ready+for+analysis", http.StatusSeeOther)
}

// GetPreview streams the session's selected photo for the preview box.
func (c *OutfitController) GetPreview(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustCurrentSession(r)

	upload := c.currentUpload(r.Context(), session)
	if upload == nil {
		http.NotFound(w, r)
		return
	}

	obj, err := c.store.Get(r.Context(), upload.ObjectKey)
	if err != nil {
		log.Printf("Preview fetch failed: %v", err)
		http.Error(w, "Failed to load photo", http.StatusInternalServerError)
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", upload.ContentType)
	w.Header().Set("Cache-Control", "private, no-store")
	if _, err := io.Copy(w, obj); err != nil {
		log.Printf("Preview stream failed: %v", err)
	}
}

// PostClearUpload drops the session's photo selection.
func (c *OutfitController) PostClearUpload(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustCurrentSession(r)

	if err := c.sessionService.SetCurrentUpload(r.Context(), session.ID, nil); err != nil {
		log.Printf("Failed to clear current upload: %v", err)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// PostAnalyze runs the analysis pipeline for the selected photo.
func (c *OutfitController) PostAnalyze(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustCurrentSession(r)

	if err := r.ParseForm(); err != nil {
		c.renderHome(w, r, http.StatusUnprocessableEntity, "", "", "Invalid form data")
		return
	}

	occasion := r.FormValue("occasion")
	stylePreference := r.FormValue("user_style_preference")

	if occasion == "" {
		c.renderHome(w, r, http.StatusUnprocessableEntity, occasion, stylePreference, "Please select an occasion")
		return
	}

	if session.CurrentUploadID == nil {
		c.renderHome(w, r, http.StatusUnprocessableEntity, occasion, stylePreference, "Please select a photo first")
		return
	}

	// One analysis at a time per session. A second submit while the
	// first is in flight gets bounced instead of queued.
	if !c.inflight.Begin(session.ID) {
		c.renderHome(w, r, http.StatusConflict, occasion, stylePreference, "An analysis is already running. Please wait for it to finish.")
		return
	}
	defer c.inflight.End(session.ID)

	analysisUUID, err := c.performAnalysis(r, session, occasion, stylePreference)
	if err != nil {
		log.Printf("Analysis failed for session %d: %v", session.ID, err)
		// The selection is kept, so the user can retry right away
		c.renderHome(w, r, http.StatusBadGateway, occasion, stylePreference, fmt.Sprintf("Error analyzing outfit: %v", err))
		return
	}

	http.Redirect(w, r, "/analysis/"+analysisUUID, http.StatusSeeOther)
}

// performAnalysis executes the full analysis pipeline.
func (c *OutfitController) performAnalysis(r *http.Request, session *models.Session, occasion, stylePreference string) (string, error) {
	ctx := r.Context()

	// Step 1: Load the selected photo
	upload, err := c.uploadService.ByID(ctx, *session.CurrentUploadID)
	if err != nil {
		return "", fmt.Errorf("failed to load selected photo: %w", err)
	}
	if upload.SessionID != session.ID {
		return "", models.ErrAnalysisNotOwned
	}

	// Step 2: Create the analysis record
	var userID *int64
	if user := middleware.CurrentUser(r); user != nil {
		userID = &user.ID
	}
	analysis, err := c.analysisService.Create(ctx, session.ID, userID, upload.ID, occasion, stylePreference, "", "")
	if err != nil {
		return "", fmt.Errorf("failed to create analysis: %w", err)
	}

	// Step 3: Mark as processing
	if err := c.analysisService.MarkProcessing(ctx, analysis.ID); err != nil {
		log.Printf("Failed to mark analysis as processing: %v", err)
	}

	// Step 4: Pull the photo out of storage
	obj, err := c.store.Get(ctx, upload.ObjectKey)
	if err != nil {
		_ = c.analysisService.Fail(ctx, analysis.ID, fmt.Sprintf("Failed to read photo: %v", err))
		return "", fmt.Errorf("failed to read photo: %w", err)
	}
	defer obj.Close()

	// Step 5: Send it to the backend
	log.Printf("Analyzing %s for %s (session %d)", upload.OriginalName, occasion, session.ID)
	result, err := c.backend.Analyze(ctx, services.AnalyzeRequest{
		Filename:        upload.OriginalName,
		ContentType:     upload.ContentType,
		Photo:           obj,
		Occasion:        occasion,
		StylePreference: stylePreference,
	})
	if err != nil {
		_ = c.analysisService.Fail(ctx, analysis.ID, err.Error())
		return "", err
	}

	// Step 6: Store the result
	if err := c.analysisService.Complete(ctx, analysis.ID, result); err != nil {
		return "", fmt.Errorf("failed to store results: %w", err)
	}
	log.Printf("Analysis %s completed with score %s", analysis.UUID, result.StyleScore.String())

	return analysis.UUID, nil
}

// ResultPageData holds data for the result template. The four regions
// come in pre-rendered.
type ResultPageData struct {
	Analysis       *models.Analysis
	Score          template.HTML
	Breakdown      template.HTML
	Items          template.HTML
	Suggestions    template.HTML
	HasSuggestions bool
}

// GetAnalysis renders a finished analysis.
func (c *OutfitController) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustCurrentSession(r)
	user := middleware.CurrentUser(r)

	analysis, err := c.loadOwnedAnalysis(r, session)
	if err != nil {
		if errors.Is(err, models.ErrAnalysisNotFound) {
			http.Error(w, "Analysis not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, models.ErrAnalysisNotOwned) {
			http.Error(w, "Access denied", http.StatusForbidden)
			return
		}
		http.Error(w, "Failed to load analysis", http.StatusInternalServerError)
		return
	}

	data := &views.TemplateData{
		Title:       "Outfit Analysis",
		CSRFToken:   csrf.Token(r),
		CurrentUser: user,
		Data:        c.resultPage(analysis),
	}

	if msg := r.URL.Query().Get("error"); msg != "" {
		data.Error = msg
	}

	c.templates.Result.ExecuteHTTP(w, r, data)
}

// resultPage renders the analysis into the page regions.
func (c *OutfitController) resultPage(analysis *models.Analysis) ResultPageData {
	page := ResultPageData{Analysis: analysis}

	if analysis.Result == nil {
		return page
	}

	var score, breakdown, items, suggestions strings.Builder
	err := views.Render(views.Regions{
		Score:       &score,
		Breakdown:   &breakdown,
		Items:       &items,
		Suggestions: &suggestions,
	}, analysis.Result)
	if err != nil {
		log.Printf("Failed to render analysis %s: %v", analysis.UUID, err)
		return page
	}

	page.Score = template.HTML(score.String())
	page.Breakdown = template.HTML(breakdown.String())
	page.Items = template.HTML(items.String())
	page.Suggestions = template.HTML(suggestions.String())
	page.HasSuggestions = analysis.Result.HasSuggestions()
	return page
}

// PostSuggest re-runs the suggestion step for a completed analysis,
// for results saved while the suggestion model was unavailable.
func (c *OutfitController) PostSuggest(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustCurrentSession(r)

	analysis, err := c.loadOwnedAnalysis(r, session)
	if err != nil {
		http.Redirect(w, r, "/history?error=Analysis+not+found", http.StatusSeeOther)
		return
	}
	if !analysis.IsCompleted() || analysis.Result == nil {
		http.Redirect(w, r, "/analysis/"+analysis.UUID, http.StatusSeeOther)
		return
	}

	prefs := make(map[string]string)
	if analysis.StylePreference != "" {
		prefs["style_preference"] = analysis.StylePreference
	}
	if analysis.Budget != "" {
		prefs["budget"] = analysis.Budget
	}
	if analysis.AvoidItems != "" {
		prefs["avoid_items"] = analysis.AvoidItems
	}

	result, err := c.backend.Suggest(r.Context(), services.SuggestionRequest{
		AnalysisResult:  analysis.Result,
		UserPreferences: prefs,
	})
	if err != nil {
		log.Printf("Suggestion refresh failed for %s: %v", analysis.UUID, err)
		http.Redirect(w, r, "/analysis/"+analysis.UUID+"?error=Could+not+fetch+suggestions", http.StatusSeeOther)
		return
	}

	if err := c.analysisService.Complete(r.Context(), analysis.ID, result); err != nil {
		log.Printf("Failed to store refreshed suggestions for %s: %v", analysis.UUID, err)
	}

	http.Redirect(w, r, "/analysis/"+analysis.UUID, http.StatusSeeOther)
}

// PostDelete removes one analysis from the history.
func (c *OutfitController) PostDelete(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustCurrentSession(r)

	analysis, err := c.loadOwnedAnalysis(r, session)
	if err != nil {
		http.Redirect(w, r, "/history?error=Analysis+not+found", http.StatusSeeOther)
		return
	}

	if err := c.analysisService.Delete(r.Context(), analysis.ID); err != nil {
		http.Redirect(w, r, "/history?error=Failed+to+delete", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/history?success=Analysis+deleted", http.StatusSeeOther)
}

// loadOwnedAnalysis fetches the analysis from the URL and checks that
// it belongs to the caller's session or account.
func (c *OutfitController) loadOwnedAnalysis(r *http.Request, session *models.Session) (*models.Analysis, error) {
	id := chi.URLParam(r, "uuid")
	if id == "" {
		return nil, models.ErrAnalysisNotFound
	}

	analysis, err := c.analysisService.ByUUID(r.Context(), id)
	if err != nil {
		return nil, err
	}

	if analysis.OwnedBySession(session.ID) {
		return analysis, nil
	}
	if user := middleware.CurrentUser(r); user != nil && analysis.OwnedByUser(user.ID) {
		return analysis, nil
	}
	return nil, models.ErrAnalysisNotOwned
}

// renderHome re-renders the upload form with an error, keeping the
// photo selection and form values.
func (c *OutfitController) renderHome(w http.ResponseWriter, r *http.Request, status int, occasion, stylePreference, errMsg string) {
	session := middleware.MustCurrentSession(r)

	data := &views.TemplateData{
		Title:       "AI Outfit Evaluator",
		CSRFToken:   csrf.Token(r),
		CurrentUser: middleware.CurrentUser(r),
		Error:       errMsg,
		Data: HomeData{
			Occasions:       c.occasionOptions(r.Context()),
			StyleOptions:    styleOptions,
			CurrentUpload:   c.currentUpload(r.Context(), session),
			Occasion:        occasion,
			StylePreference: stylePreference,
		},
	}
	c.templates.Home.ExecuteHTTPWithStatus(w, r, status, data)
}
