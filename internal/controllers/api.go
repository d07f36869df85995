package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/middleware"
	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/models"
	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/services"
	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/views"
)

// backendCatalog is the read-only slice of the outfit client used by
// the catalog and health endpoints. Tests swap in a stub.
type backendCatalog interface {
	Occasions(ctx context.Context) (*services.OccasionList, error)
	Classes(ctx context.Context) (*services.ClassList, error)
	Tips(ctx context.Context, occasion string) (*services.OccasionTips, error)
	Health(ctx context.Context) (*services.BackendHealth, error)
	Info(ctx context.Context) (*services.BackendInfo, error)
}

// healthPinger reports whether the database is reachable.
type healthPinger interface {
	Health(ctx context.Context) error
}

// uploadCounter reports upload storage statistics.
type uploadCounter interface {
	Stats(ctx context.Context) (*models.UploadStats, error)
}

// ApiController serves the JSON endpoints and the tips page.
type ApiController struct {
	db           healthPinger
	backend      backendCatalog
	uploads      uploadCounter
	tipsTemplate *views.Template
}

func NewApiController(db healthPinger, backend backendCatalog, uploads uploadCounter, tipsTemplate *views.Template) *ApiController {
	return &ApiController{
		db:           db,
		backend:      backend,
		uploads:      uploads,
		tipsTemplate: tipsTemplate,
	}
}

// healthResponse is the composite health report.
type healthResponse struct {
	Status   string                  `json:"status"`
	Database string                  `json:"database"`
	Backend  *services.BackendHealth `json:"backend,omitempty"`
	Uploads  *models.UploadStats     `json:"uploads,omitempty"`
}

// GetHealth reports the health of this service, the database and the
// analysis backend in one response.
func (c *ApiController) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Database: "ok"}

	if err := c.db.Health(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Database = "unreachable"
	}

	backend, err := c.backend.Health(r.Context())
	if err != nil {
		resp.Status = "degraded"
		resp.Backend = &services.BackendHealth{Status: "unreachable"}
	} else {
		resp.Backend = backend
	}

	if resp.Database == "ok" {
		if stats, err := c.uploads.Stats(r.Context()); err == nil {
			resp.Uploads = stats
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// infoResponse describes this service and the backend behind it.
type infoResponse struct {
	Name    string                `json:"name"`
	Version string                `json:"version"`
	Status  string                `json:"status"`
	Backend *services.BackendInfo `json:"backend,omitempty"`
}

// GetInfo describes the service and passes the backend's own info
// block through when reachable.
func (c *ApiController) GetInfo(w http.ResponseWriter, r *http.Request) {
	resp := infoResponse{
		Name:    "GBC Outfit Evaluator",
		Version: "1.0.0",
		Status:  "running",
	}

	if info, err := c.backend.Info(r.Context()); err == nil {
		resp.Backend = info
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetOccasions passes the backend occasion catalog through as JSON.
func (c *ApiController) GetOccasions(w http.ResponseWriter, r *http.Request) {
	list, err := c.backend.Occasions(r.Context())
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetClasses passes the detectable clothing classes through as JSON.
func (c *ApiController) GetClasses(w http.ResponseWriter, r *http.Request) {
	list, err := c.backend.Classes(r.Context())
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetTipsJSON passes one occasion's styling tips through as JSON.
func (c *ApiController) GetTipsJSON(w http.ResponseWriter, r *http.Request) {
	tips, err := c.backend.Tips(r.Context(), chi.URLParam(r, "occasion"))
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tips)
}

// TipsData holds data for the tips page template.
type TipsData struct {
	Occasion    string
	Label       string
	Description string
	Tips        []string
}

// GetTips renders the styling tips page for one occasion.
func (c *ApiController) GetTips(w http.ResponseWriter, r *http.Request) {
	occasion := chi.URLParam(r, "occasion")

	tips, err := c.backend.Tips(r.Context(), occasion)
	if err != nil {
		var se *services.StatusError
		if errors.As(err, &se) && se.Code == http.StatusBadRequest {
			http.Redirect(w, r, "/?error=Unknown+occasion", http.StatusSeeOther)
			return
		}
		log.Printf("Tips fetch failed for %q: %v", occasion, err)
		http.Error(w, "Failed to load tips", http.StatusBadGateway)
		return
	}

	data := &views.TemplateData{
		Title:       "Styling Tips",
		CSRFToken:   csrf.Token(r),
		CurrentUser: middleware.CurrentUser(r),
		Data: TipsData{
			Occasion:    tips.Occasion,
			Label:       occasionDisplay(tips.Occasion),
			Description: tips.OccasionDescription,
			Tips:        tips.Tips,
		},
	}

	c.tipsTemplate.ExecuteHTTP(w, r, data)
}

// HELPER FUNCS ----------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to write JSON response: %v", err)
	}
}

// writeBackendError maps a backend failure onto this service's JSON
// error shape, keeping the backend's status code when it sent one.
func writeBackendError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	detail := "Analysis backend unavailable"

	var se *services.StatusError
	if errors.As(err, &se) {
		status = se.Code
		if se.Detail != "" {
			detail = se.Detail
		}
	}

	writeJSON(w, status, map[string]string{"detail": detail})
}
