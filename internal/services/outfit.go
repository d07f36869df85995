package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/models"
)

// OutfitClient talks to the outfit analysis backend, the FastAPI
// service that runs the vision models. Everything the result page
// shows comes back through this client.
type OutfitClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewOutfitClient(baseURL string, timeout time.Duration) *OutfitClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OutfitClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// StatusError is a non-2xx reply from the backend. Error() renders the
// exact message shown on the error banner; Detail keeps the backend's
// own explanation for the server log.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.Code)
}

// backendError is the JSON body the backend sends with error statuses.
type backendError struct {
	Detail string `json:"detail"`
}

// AnalyzeRequest is one outfit photo plus the form selections.
type AnalyzeRequest struct {
	Filename    string
	ContentType string
	Photo       io.Reader

	Occasion        string
	StylePreference string
	Budget          string
	AvoidItems      string
}

// OccasionList is the backend's catalog of supported occasions.
type OccasionList struct {
	Occasions    []string          `json:"occasions"`
	Descriptions map[string]string `json:"descriptions"`
	TotalCount   int               `json:"total_count"`
}

// ClassList is the set of clothing classes the detector can find.
type ClassList struct {
	Classes    []string `json:"classes"`
	TotalCount int      `json:"total_count"`
}

// OccasionTips is the quick styling tips for one occasion.
type OccasionTips struct {
	Occasion            string   `json:"occasion"`
	OccasionDescription string   `json:"occasion_description"`
	Tips                []string `json:"tips"`
}

// BackendHealth is the backend's own health report.
type BackendHealth struct {
	Status      string          `json:"status"`
	Models      map[string]bool `json:"models"`
	Device      string          `json:"device"`
	UploadStats json.RawMessage `json:"upload_stats,omitempty"`
}

// BackendInfo describes the backend API version and endpoints.
type BackendInfo struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Status    string            `json:"status"`
	Docs      string            `json:"docs"`
	Endpoints map[string]string `json:"endpoints"`
}

// SuggestionRequest re-submits an analysis for LLM suggestions.
type SuggestionRequest struct {
	AnalysisResult  *models.AnalysisResult `json:"analysis_result"`
	UserPreferences map[string]string      `json:"user_preferences,omitempty"`
}

// Analyze submits the photo and form selections and returns the scored
// analysis. Suggestions are always requested; optional selections are
// only sent when the user picked one.
func (c *OutfitClient) Analyze(ctx context.Context, req AnalyzeRequest) (*models.AnalysisResult, error) {
	// Build the multipart body in the same field order as the form
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := createPhotoPart(mw, req.Filename, req.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, req.Photo); err != nil {
		return nil, fmt.Errorf("failed to write photo: %w", err)
	}

	if err := mw.WriteField("occasion", req.Occasion); err != nil {
		return nil, fmt.Errorf("failed to write occasion field: %w", err)
	}
	if err := mw.WriteField("include_suggestions", "true"); err != nil {
		return nil, fmt.Errorf("failed to write suggestions field: %w", err)
	}
	if req.StylePreference != "" {
		if err := mw.WriteField("user_style_preference", req.StylePreference); err != nil {
			return nil, fmt.Errorf("failed to write style field: %w", err)
		}
	}
	if req.Budget != "" {
		if err := mw.WriteField("user_budget", req.Budget); err != nil {
			return nil, fmt.Errorf("failed to write budget field: %w", err)
		}
	}
	if req.AvoidItems != "" {
		if err := mw.WriteField("avoid_items", req.AvoidItems); err != nil {
			return nil, fmt.Errorf("failed to write avoid field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	// Create HTTP request -> Set Headers -> Send Request
	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/analyze", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call analysis backend: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkResponse(resp); err != nil {
		return nil, err
	}

	var result models.AnalysisResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode analysis: %w", err)
	}

	return &result, nil
}

// Suggest asks the backend's LLM for suggestions on an existing
// analysis, returning the enhanced result.
func (c *OutfitClient) Suggest(ctx context.Context, req SuggestionRequest) (*models.AnalysisResult, error) {
	jsonBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/suggest", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call analysis backend: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkResponse(resp); err != nil {
		return nil, err
	}

	var result models.AnalysisResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode suggestions: %w", err)
	}

	return &result, nil
}

// Occasions fetches the occasion catalog for the form dropdown.
func (c *OutfitClient) Occasions(ctx context.Context) (*OccasionList, error) {
	var list OccasionList
	if err := c.getJSON(ctx, "/occasions", &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Classes fetches the detectable clothing classes.
func (c *OutfitClient) Classes(ctx context.Context) (*ClassList, error) {
	var list ClassList
	if err := c.getJSON(ctx, "/classes", &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Tips fetches quick styling tips for one occasion.
func (c *OutfitClient) Tips(ctx context.Context, occasion string) (*OccasionTips, error) {
	var tips OccasionTips
	if err := c.getJSON(ctx, "/tips/"+occasion, &tips); err != nil {
		return nil, err
	}
	return &tips, nil
}

// Health fetches the backend's health report.
func (c *OutfitClient) Health(ctx context.Context) (*BackendHealth, error) {
	var health BackendHealth
	if err := c.getJSON(ctx, "/health", &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// Info fetches the backend API description.
func (c *OutfitClient) Info(ctx context.Context) (*BackendInfo, error) {
	var info BackendInfo
	if err := c.getJSON(ctx, "/api/info", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// getJSON runs a GET against the backend and decodes the reply.
func (c *OutfitClient) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call analysis backend: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkResponse(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return nil
}

// checkResponse turns non-2xx replies into a StatusError, keeping the
// backend's detail message when the body carries one.
func (c *OutfitClient) checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(resp.Body)

	statusErr := &StatusError{Code: resp.StatusCode}
	var beErr backendError
	if err := json.Unmarshal(body, &beErr); err == nil && beErr.Detail != "" {
		statusErr.Detail = beErr.Detail
	} else {
		statusErr.Detail = strings.TrimSpace(string(body))
	}

	return statusErr
}

// createPhotoPart adds the file part with the photo's real content
// type. CreateFormFile would stamp application/octet-stream.
func createPhotoPart(mw *multipart.Writer, filename, contentType string) (io.Writer, error) {
	if contentType == "" {
		return mw.CreateFormFile("file", filename)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filename)))
	h.Set("Content-Type", contentType)
	return mw.CreatePart(h)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
