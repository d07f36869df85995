package views

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"math"
	"strings"

	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/models"
)

// Regions are the four areas of the results page. Render writes into
// whatever writers the caller hands over, so the full rendering
// pipeline runs against plain buffers in tests.
type Regions struct {
	Score       io.Writer
	Breakdown   io.Writer
	Items       io.Writer
	Suggestions io.Writer
}

// itemIcons maps detected clothing classes to their display emoji.
// The map stays private; ItemIcon is the only way in.
var itemIcons = map[string]string{
	"shirt":    "👔",
	"pants":    "👖",
	"jacket":   "🧥",
	"dress":    "👗",
	"skirt":    "🩱",
	"shorts":   "🩳",
	"shoe":     "👟",
	"bag":      "👜",
	"hat":      "👒",
	"sunglass": "🕶️",
}

const defaultItemIcon = "👕"

// ItemIcon returns the emoji for a detected clothing class.
func ItemIcon(class string) string {
	if icon, ok := itemIcons[class]; ok {
		return icon
	}
	return defaultItemIcon
}

// ConfidencePct converts a detector confidence to a whole percentage.
func ConfidencePct(confidence float64) int {
	return int(math.Round(confidence * 100))
}

// ColorLabel turns a backend color name into its display label.
// "dark_blue" becomes "dark blue".
func ColorLabel(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}

// ColorClass turns a backend color name into a CSS class token.
// "Dark_Blue" becomes "dark-blue".
func ColorClass(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "-")
}

const regionTemplates = `
{{define "region-score"}}<div class="score-number" id="scoreNumber">{{.Score}}</div>
<div class="score-text" id="scoreText">{{.Feedback}}</div>{{end}}

{{define "region-breakdown"}}{{range .}}<div class="breakdown-item">
    <div class="breakdown-score">{{.Score}}</div>
    <div>{{.Name}}</div>
</div>
{{end}}{{end}}

{{define "region-items"}}{{if not .}}<p>No clothing items detected</p>{{else}}{{range .}}<div class="item-card">
    <div class="item-name">{{.Icon}} {{.Class}}</div>
    <div class="item-confidence">Confidence: {{.Confidence}}%</div>
    <div class="colors-section">
        <div class="colors-label">Detected Colors:</div>
        <div class="color-tags">{{if .Colors}}{{range .Colors}}<span class="color-tag {{.Class}}">{{.Label}}</span>{{end}}{{else}}<span class="color-tag">No colors detected</span>{{end}}</div>
    </div>
</div>
{{end}}{{end}}{{end}}

{{define "region-suggestions"}}{{if .WhatsWorking}}<div class="suggestion-item"><strong>✅ What's Working:</strong> {{.WhatsWorking}}</div>
{{end}}{{if .AreasForImprovement}}<div class="suggestion-item"><strong>🔧 Areas for Improvement:</strong> {{.AreasForImprovement}}</div>
{{end}}{{range .SpecificSuggestions}}<div class="suggestion-item"><strong>💡 Suggestion:</strong> {{.}}</div>
{{end}}{{if .OccasionTips}}<div class="suggestion-item"><strong>🎯 Occasion Tips:</strong> {{.OccasionTips}}</div>
{{end}}{{end}}
`

var resultTmpl = template.Must(template.New("results").Parse(regionTemplates))

type scoreView struct {
	Score    json.Number
	Feedback string
}

type breakdownEntry struct {
	Name  string
	Score json.Number
}

type colorTag struct {
	Label string
	Class string
}

type itemCard struct {
	Icon       string
	Class      string
	Confidence int
	Colors     []colorTag
}

// Render writes one analysis into the page regions. Scores pass
// through with the backend's own formatting. The Suggestions writer is
// left untouched when the result carries no suggestion text at all;
// within it, empty blocks are skipped and the rest keep their order.
func Render(regions Regions, result *models.AnalysisResult) error {
	score := scoreView{
		Score:    result.StyleScore,
		Feedback: result.ContextualFeedback,
	}
	if err := resultTmpl.ExecuteTemplate(regions.Score, "region-score", score); err != nil {
		return fmt.Errorf("failed to render score: %w", err)
	}

	if err := resultTmpl.ExecuteTemplate(regions.Breakdown, "region-breakdown", breakdownEntries(result.ScoringBreakdown)); err != nil {
		return fmt.Errorf("failed to render breakdown: %w", err)
	}

	if err := resultTmpl.ExecuteTemplate(regions.Items, "region-items", itemCards(result.DetectedItems)); err != nil {
		return fmt.Errorf("failed to render items: %w", err)
	}

	if result.HasSuggestions() {
		if err := resultTmpl.ExecuteTemplate(regions.Suggestions, "region-suggestions", result); err != nil {
			return fmt.Errorf("failed to render suggestions: %w", err)
		}
	}

	return nil
}

// breakdownEntries flattens the component scores into the four fixed
// rows of the breakdown grid, always in the same order.
func breakdownEntries(sb models.ScoringBreakdown) []breakdownEntry {
	return []breakdownEntry{
		{Name: "Contextual", Score: sb.ClipContextual},
		{Name: "Color Harmony", Score: sb.ColorHarmony},
		{Name: "Completeness", Score: sb.ItemCompleteness},
		{Name: "Coherence", Score: sb.StyleCoherence},
	}
}

func itemCards(items []models.DetectedItem) []itemCard {
	var cards []itemCard
	for _, item := range items {
		card := itemCard{
			Icon:       ItemIcon(item.Class),
			Class:      item.Class,
			Confidence: ConfidencePct(item.Confidence),
		}
		for _, color := range item.Colors {
			card.Colors = append(card.Colors, colorTag{
				Label: ColorLabel(color.Name),
				Class: ColorClass(color.Name),
			})
		}
		cards = append(cards, card)
	}
	return cards
}
