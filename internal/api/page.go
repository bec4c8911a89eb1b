package api

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"

	"sentiment-dashboard/internal/analysis"
	"sentiment-dashboard/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// Dashboard tabs.
const (
	tabCharts   = "charts"
	tabExplorer = "explorer"
	tabChat     = "chat"
)

type pageRenderer struct {
	templates *template.Template
	markdown  goldmark.Markdown
	policy    *bluemonday.Policy
}

func newPageRenderer() *pageRenderer {
	return &pageRenderer{
		templates: template.Must(template.ParseFS(templateFS, "templates/*.html")),
		markdown:  goldmark.New(),
		policy:    bluemonday.UGCPolicy(),
	}
}

type turnView struct {
	Role string
	HTML template.HTML
}

type dashboardView struct {
	Tab      string
	Rows     int
	Columns  int
	Products []string
	Selected string

	MeansAvailable bool
	MeansMessage   string

	TableColumns []string
	TableRows    [][]string

	DistAvailable bool
	DistMessage   string

	Turns    []turnView
	Thinking bool
}

type errorView struct {
	Status  int
	Title   string
	Message string
}

// markdownHTML renders chat content as sanitised HTML.
func (p *pageRenderer) markdownHTML(content string) template.HTML {
	var buf bytes.Buffer
	if err := p.markdown.Convert([]byte(content), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(content))
	}
	return template.HTML(p.policy.SanitizeBytes(buf.Bytes()))
}

func (p *pageRenderer) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := p.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("failed to render page")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func (p *pageRenderer) renderError(w http.ResponseWriter, status int, err error) {
	title := "Failed to load data"
	if errors.Is(err, models.ErrConnection) {
		title = "Warehouse connection failed"
	}
	p.render(w, status, "error.html", errorView{Status: status, Title: title, Message: err.Error()})
}

// Dashboard renders the three-tab page from the session's table and
// transcript. Rendering has no side effects on either.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	table := sess.Dataset.Table

	tab := r.URL.Query().Get("tab")
	switch tab {
	case tabCharts, tabExplorer, tabChat:
	default:
		tab = tabCharts
	}

	product := selection(r)
	subset := analysis.FilterByCategory(table, product)

	view := dashboardView{
		Tab:          tab,
		Rows:         table.Len(),
		Columns:      len(table.Columns()),
		Products:     productOptions(table),
		Selected:     product,
		TableColumns: subset.Columns(),
	}

	// Charts are drawn once here so a failure shows the tab's placeholder
	// instead of a broken image.
	if err := drawMeans(table); err != nil {
		view.MeansMessage = "Could not generate visualization: " + err.Error()
	} else {
		view.MeansAvailable = true
	}

	switch err := drawDistribution(subset, h.HistogramBins); {
	case errors.Is(err, analysis.ErrNoData):
		view.DistMessage = "No reviews for " + product
	case err != nil:
		view.DistMessage = "Could not generate visualization: " + err.Error()
	default:
		view.DistAvailable = true
	}

	for _, rec := range subset.Records() {
		row := make([]string, len(view.TableColumns))
		for i, col := range view.TableColumns {
			row[i] = rec.Fields[col]
		}
		view.TableRows = append(view.TableRows, row)
	}

	for _, turn := range sess.Conversation.Transcript().Turns() {
		view.Turns = append(view.Turns, turnView{Role: turn.Role, HTML: h.page.markdownHTML(turn.Content)})
	}
	_, view.Thinking = sess.Conversation.Pending()

	h.page.render(w, http.StatusOK, "dashboard.html", view)
}

func drawMeans(table *models.ReviewTable) error {
	means, err := analysis.MeanByCategory(table)
	if err != nil {
		return err
	}
	return analysis.RenderMeanChart(io.Discard, means)
}

func drawDistribution(table *models.ReviewTable, bins int) error {
	dist, err := analysis.Histogram(table, bins)
	if err != nil {
		return err
	}
	return analysis.RenderHistogram(io.Discard, dist)
}
