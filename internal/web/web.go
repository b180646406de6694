package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"losertrack/internal/ranking"
	"losertrack/internal/watchlist"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer renders the HTML pages from embedded templates
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded templates
func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"add": func(a, b int) int { return a + b },
	}

	tmpl, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &Renderer{templates: tmpl}, nil
}

// HomeData is the template data for the home page
type HomeData struct {
	Stocks      []ranking.LoserEntry
	LastUpdated string
	Limit       int
}

// EvaluationData is the template data for the evaluation page
type EvaluationData struct {
	StocksToAdd []ranking.LoserEntry
	Tracked     []watchlist.TrackedPerformance
}

// RenderHome renders the top-losers home page
func (r *Renderer) RenderHome(w io.Writer, data HomeData) error {
	return r.templates.ExecuteTemplate(w, "home.html", data)
}

// RenderEvaluation renders the watchlist evaluation page
func (r *Renderer) RenderEvaluation(w io.Writer, data EvaluationData) error {
	return r.templates.ExecuteTemplate(w, "evaluation.html", data)
}
