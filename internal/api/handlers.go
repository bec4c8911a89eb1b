package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"sentiment-dashboard/internal/analysis"
	"sentiment-dashboard/internal/models"
	"sentiment-dashboard/internal/service"
	"sentiment-dashboard/internal/state"
)

const (
	sessionCookie = "session_id"
	sessionHeader = "X-Session-ID"
)

type Handler struct {
	Source        *service.ReviewSource
	Orchestrator  *service.Orchestrator
	Sessions      *state.Store
	ContextRows   int
	HistogramBins int

	page *pageRenderer
}

func NewHandler(src *service.ReviewSource, orch *service.Orchestrator, sessions *state.Store, contextRows, bins int) *Handler {
	return &Handler{
		Source:        src,
		Orchestrator:  orch,
		Sessions:      sessions,
		ContextRows:   contextRows,
		HistogramBins: bins,
		page:          newPageRenderer(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HealthCheck)
	r.Post("/api/session", h.CreateSession)
	r.Delete("/api/session", h.DeleteSession)

	// The dashboard is the only page that starts a session implicitly.
	r.With(h.withSession(true)).Get("/", h.Dashboard)

	r.Group(func(r chi.Router) {
		r.Use(h.withSession(false))

		r.Post("/chat", h.SubmitChatForm)

		r.Get("/api/status", h.GetStatus)
		r.Get("/api/products", h.GetProducts)
		r.Get("/api/reviews", h.GetReviews)
		r.Get("/api/charts/sentiment", h.GetSentimentChart)
		r.Get("/api/charts/sentiment.png", h.GetSentimentChartPNG)
		r.Get("/api/charts/distribution", h.GetDistribution)
		r.Get("/api/charts/distribution.png", h.GetDistributionPNG)
		r.Get("/api/chat", h.GetChat)
		r.Post("/api/chat", h.PostChat)
	})
}

// ============================================================================
// Sessions
// ============================================================================

var errNoSession = errors.New("unknown or missing session; start one with POST /api/session")

type sessionKey struct{}

func sessionID(r *http.Request) string {
	if id := r.Header.Get(sessionHeader); id != "" {
		return id
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func sessionFrom(ctx context.Context) *state.Session {
	sess, _ := ctx.Value(sessionKey{}).(*state.Session)
	return sess
}

// withSession resolves the caller's session. When create is false an
// unknown session is rejected without touching the warehouse.
func (h *Handler) withSession(create bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := h.Sessions.Get(sessionID(r))
			if !ok {
				if !create {
					h.noSession(w, r)
					return
				}

				var err error
				if sess, err = h.startSession(w, r); err != nil {
					h.loadFailed(w, r, err)
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
		})
	}
}

// startSession loads the table once and registers a session for it.
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) (*state.Session, error) {
	ds, err := h.Source.LoadDataset(r.Context(), h.ContextRows)
	if err != nil {
		log.Error().Err(err).Msg("failed to load reviews")
		return nil, err
	}

	sess := h.Sessions.Create(ds, service.NewConversation(h.Orchestrator, ds.PromptContext))
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID.String(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(sessionHeader, sess.ID.String())

	log.Info().Str("session", sess.ID.String()).Int("rows", ds.Table.Len()).Msg("session started")
	return sess, nil
}

func (h *Handler) noSession(w http.ResponseWriter, r *http.Request) {
	if wantsHTML(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeError(w, http.StatusUnauthorized, errNoSession)
}

// loadFailed is terminal for the request: nothing else is rendered.
func (h *Handler) loadFailed(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if wantsHTML(r) {
		h.page.renderError(w, status, err)
		return
	}
	writeError(w, status, err)
}

// CreateSession loads the table into a new session and reports it.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.startSession(w, r)
	if err != nil {
		h.loadFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, statusOf(sess))
}

// DeleteSession ends the caller's session.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	if !h.Sessions.Delete(id) {
		writeError(w, http.StatusNotFound, errors.New("no such session"))
		return
	}

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	log.Info().Str("session", id).Msg("session ended")
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// Health
// ============================================================================

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

// ============================================================================
// Data
// ============================================================================

// GetStatus reports the loaded table and the session's chat length.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusOf(sessionFrom(r.Context())))
}

func statusOf(sess *state.Session) models.StatusResponse {
	table := sess.Dataset.Table
	resp := models.StatusResponse{
		SessionID:   sess.ID.String(),
		Rows:        table.Len(),
		Columns:     len(table.Columns()),
		ColumnNames: table.Columns(),
		Products:    analysis.Categories(table),
		ChatTurns:   sess.Conversation.Transcript().Len(),
	}
	if stats, err := analysis.Stats(table); err == nil {
		resp.Scores = &stats
	}
	return resp
}

// GetProducts lists the selector options, "All" first.
func (h *Handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	table := sessionFrom(r.Context()).Dataset.Table
	writeJSON(w, http.StatusOK, productOptions(table))
}

// GetReviews returns the rows for the selected product.
func (h *Handler) GetReviews(w http.ResponseWriter, r *http.Request) {
	product := selection(r)
	subset := analysis.FilterByCategory(sessionFrom(r.Context()).Dataset.Table, product)

	records := subset.Records()
	resp := models.ReviewsResponse{
		Product: product,
		Rows:    len(records),
		Data:    make([]models.ReviewRow, len(records)),
	}
	for i, rec := range records {
		resp.Data[i] = models.ReviewRow{
			Product:        rec.Product,
			SentimentScore: rec.SentimentScore,
			ReviewDate:     rec.ReviewDate,
			ShippingDate:   rec.ShippingDate,
			Fields:         rec.Fields,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// ============================================================================
// Charts
// ============================================================================

func (h *Handler) GetSentimentChart(w http.ResponseWriter, r *http.Request) {
	means, err := analysis.MeanByCategory(sessionFrom(r.Context()).Dataset.Table)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	resp := models.SentimentChartResponse{Means: make([]models.CategoryMeanItem, len(means))}
	for i, m := range means {
		resp.Means[i] = models.CategoryMeanItem{Product: m.Category, Mean: m.Mean, Count: m.Count}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetSentimentChartPNG(w http.ResponseWriter, r *http.Request) {
	means, err := analysis.MeanByCategory(sessionFrom(r.Context()).Dataset.Table)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	var buf bytes.Buffer
	if err := analysis.RenderMeanChart(&buf, means); err != nil {
		log.Error().Err(err).Msg("failed to render sentiment chart")
		writeError(w, statusFor(err), err)
		return
	}
	writePNG(w, buf.Bytes())
}

func (h *Handler) distribution(r *http.Request) (string, *analysis.Distribution, int, error) {
	bins := h.HistogramBins
	if raw := r.URL.Query().Get("bins"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			return "", nil, http.StatusBadRequest, errors.New("bins must be an integer between 1 and 200")
		}
		bins = n
	}

	product := selection(r)
	subset := analysis.FilterByCategory(sessionFrom(r.Context()).Dataset.Table, product)
	dist, err := analysis.Histogram(subset, bins)
	if err != nil {
		return product, nil, statusFor(err), err
	}
	return product, dist, http.StatusOK, nil
}

func (h *Handler) GetDistribution(w http.ResponseWriter, r *http.Request) {
	product, dist, status, err := h.distribution(r)
	if err != nil {
		writeError(w, status, err)
		return
	}

	writeJSON(w, http.StatusOK, models.DistributionResponse{
		Product: product,
		Min:     dist.Min,
		Max:     dist.Max,
		Edges:   dist.Edges,
		Counts:  dist.Counts,
	})
}

func (h *Handler) GetDistributionPNG(w http.ResponseWriter, r *http.Request) {
	_, dist, status, err := h.distribution(r)
	if err != nil {
		writeError(w, status, err)
		return
	}

	var buf bytes.Buffer
	if err := analysis.RenderHistogram(&buf, dist); err != nil {
		log.Error().Err(err).Msg("failed to render distribution chart")
		writeError(w, statusFor(err), err)
		return
	}
	writePNG(w, buf.Bytes())
}

// ============================================================================
// Chat
// ============================================================================

func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) {
	conv := sessionFrom(r.Context()).Conversation
	writeJSON(w, http.StatusOK, models.ChatResponse{Transcript: conv.Transcript()})
}

func (h *Handler) PostChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid JSON"))
		return
	}

	conv := sessionFrom(r.Context()).Conversation
	reply, err := conv.Submit(r.Context(), req.Question)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, models.ChatResponse{Reply: reply, Transcript: conv.Transcript()})
}

// SubmitChatForm handles the dashboard's chat box and returns to the chat tab.
func (h *Handler) SubmitChatForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	conv := sessionFrom(r.Context()).Conversation
	if _, err := conv.Submit(r.Context(), r.PostForm.Get("question")); err != nil && !errors.Is(err, service.ErrEmptyQuestion) {
		log.Warn().Err(err).Msg("chat submission rejected")
	}

	http.Redirect(w, r, "/?tab=chat", http.StatusSeeOther)
}

// ============================================================================
// Helpers
// ============================================================================

func selection(r *http.Request) string {
	if p := r.URL.Query().Get("product"); p != "" {
		return p
	}
	return analysis.AllCategories
}

func productOptions(table *models.ReviewTable) []string {
	return append([]string{analysis.AllCategories}, analysis.Categories(table)...)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrConnection), errors.Is(err, models.ErrQuery):
		return http.StatusServiceUnavailable
	case errors.Is(err, analysis.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, analysis.ErrUnplottable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, service.ErrConversationClosed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func wantsHTML(r *http.Request) bool {
	return r.URL.Path == "/" || r.URL.Path == "/chat"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, models.ErrorResponse{Error: err.Error()})
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}
