package views

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/models"
)

// Template wraps a parsed template with helper methods for rendering.
type Template struct {
	tmpl *template.Template
}

// TemplateData is the standard data structure passed to all templates.
// It contains common fields that every page might need.
type TemplateData struct {
	// Current signed-in user (nil when browsing anonymously)
	CurrentUser *models.User

	// CSRF token for forms
	CSRFToken string

	// Flash messages
	Error   string
	Success string
	Warning string
	Info    string

	// Page-specific data
	Data interface{}

	// Additional metadata
	Title       string
	Description string

	// Request info (useful for active nav highlighting)
	CurrentPath string
}

// DefaultFuncMap returns the template functions available in all templates.
func DefaultFuncMap() template.FuncMap {
	return template.FuncMap{
		// String manipulation
		"upper":    strings.ToUpper,
		"lower":    strings.ToLower,
		"title":    toTitle,
		"trim":     strings.TrimSpace,
		"truncate": truncate,

		// Date/time formatting
		"formatDate":     formatDate,
		"formatDateTime": formatDateTime,
		"timeAgo":        timeAgo,

		// Slice/map helpers
		"contains": strings.Contains,
		"join":     strings.Join,

		// HTML helpers
		"safeHTML": func(s string) template.HTML { return template.HTML(s) },
		"safeURL":  func(s string) template.URL { return template.URL(s) },

		// Outfit rendering helpers
		"itemIcon":      ItemIcon,
		"colorLabel":    ColorLabel,
		"colorClass":    ColorClass,
		"confidencePct": ConfidencePct,
		"occasionLabel": occasionLabel,

		// Status styling
		"statusClass": statusClass,

		// Default value
		"default": defaultValue,
	}
}

// ParseFS parses templates from the given filesystem.
// It automatically includes the base layout and any partials.
//
// Usage:
//
//	tmpl, err := views.ParseFS(templates.FS, "pages/home.gohtml")
//	// This will parse:
//	// - layouts/base.gohtml
//	// - partials/*.gohtml
//	// - pages/home.gohtml
func ParseFS(fsys fs.FS, patterns ...string) (*Template, error) {
	// Start with function map
	tmpl := template.New("").Funcs(DefaultFuncMap())

	// Parse base layout first
	basePath := "layouts/base.gohtml"
	baseContent, err := fs.ReadFile(fsys, basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read base template: %w", err)
	}

	tmpl, err = tmpl.Parse(string(baseContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base template: %w", err)
	}

	// Parse all partials - they define their own names with {{define "name"}}
	partialMatches, err := fs.Glob(fsys, "partials/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("failed to glob partials: %w", err)
	}

	for _, match := range partialMatches {
		content, err := fs.ReadFile(fsys, match)
		if err != nil {
			return nil, fmt.Errorf("failed to read partial %s: %w", match, err)
		}

		tmpl, err = tmpl.Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse partial %s: %w", match, err)
		}
	}

	// Parse the requested page templates - they define their own "content" block
	for _, pattern := range patterns {
		content, err := fs.ReadFile(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", pattern, err)
		}

		tmpl, err = tmpl.Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", pattern, err)
		}
	}

	return &Template{tmpl: tmpl}, nil
}

// MustParseFS is like ParseFS but panics on error.
// Use this during initialization when templates must be valid.
func MustParseFS(fsys fs.FS, patterns ...string) *Template {
	tmpl, err := ParseFS(fsys, patterns...)
	if err != nil {
		panic(fmt.Sprintf("failed to parse templates: %v", err))
	}
	return tmpl
}

// Execute renders the template to the given writer with the provided data.
func (t *Template) Execute(w io.Writer, data *TemplateData) error {
	return t.tmpl.ExecuteTemplate(w, "base", data)
}

// ExecuteHTTP renders the template as an HTTP response.
// It handles errors gracefully and sets appropriate headers.
func (t *Template) ExecuteHTTP(w http.ResponseWriter, r *http.Request, data *TemplateData) {
	t.ExecuteHTTPWithStatus(w, r, http.StatusOK, data)
}

// ExecuteHTTPWithStatus renders the template with a custom HTTP status code.
func (t *Template) ExecuteHTTPWithStatus(w http.ResponseWriter, r *http.Request, status int, data *TemplateData) {
	if data != nil {
		data.CurrentPath = r.URL.Path
	}

	// Render to buffer first to catch errors
	buf := &bytes.Buffer{}
	err := t.Execute(buf, data)
	if err != nil {
		log.Printf("Template execution error: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// Template function implementations

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

// toTitle converts a string to title case.
// Example: "hello world" -> "Hello World"
func toTitle(s string) string {
	if s == "" {
		return s
	}
	words := strings.Fields(s)
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(string(word[0])) + strings.ToLower(word[1:])
		}
	}
	return strings.Join(words, " ")
}

// occasionLabel turns an occasion key into its display label.
// Example: "job_interview" -> "Job Interview"
func occasionLabel(occasion string) string {
	return toTitle(strings.ReplaceAll(occasion, "_", " "))
}

func formatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

func formatDateTime(t time.Time) string {
	return t.Format("Jan 2, 2006 3:04 PM")
}

func timeAgo(t time.Time) string {
	duration := time.Since(t)

	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		mins := int(duration.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case duration < 24*time.Hour:
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case duration < 7*24*time.Hour:
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "yesterday"
		}
		return fmt.Sprintf("%d days ago", days)
	case duration < 30*24*time.Hour:
		weeks := int(duration.Hours() / 24 / 7)
		if weeks == 1 {
			return "1 week ago"
		}
		return fmt.Sprintf("%d weeks ago", weeks)
	default:
		return formatDate(t)
	}
}

func statusClass(status interface{}) string {
	switch fmt.Sprintf("%v", status) {
	case "pending":
		return "status-pending"
	case "processing":
		return "status-processing"
	case "completed":
		return "status-completed"
	case "failed":
		return "status-failed"
	default:
		return "status-unknown"
	}
}

func defaultValue(value, defaultVal interface{}) interface{} {
	if value == nil || value == "" || value == 0 {
		return defaultVal
	}
	return value
}
