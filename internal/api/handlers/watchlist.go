package handlers

import (
	"net/http"

	"losertrack/internal/ranking"
	"losertrack/internal/watchlist"
	"losertrack/internal/web"
	"losertrack/pkg/logger"
)

// WatchlistHandler handles the evaluation page and watchlist mutations
type WatchlistHandler struct {
	store     *watchlist.Store
	evaluator *watchlist.Evaluator
	cache     *ranking.Cache
	renderer  *web.Renderer
	logger    *logger.Logger
}

// NewWatchlistHandler creates a new watchlist handler
func NewWatchlistHandler(store *watchlist.Store, evaluator *watchlist.Evaluator, cache *ranking.Cache, renderer *web.Renderer, log *logger.Logger) *WatchlistHandler {
	return &WatchlistHandler{
		store:     store,
		evaluator: evaluator,
		cache:     cache,
		renderer:  renderer,
		logger:    log,
	}
}

// ShowEvaluation renders the evaluation page
// GET /evaluation
func (h *WatchlistHandler) ShowEvaluation(w http.ResponseWriter, r *http.Request) {
	// Candidates come from the full ranking, not just the displayed slice
	currentLosers := h.cache.CurrentRanking(0)

	data := web.EvaluationData{
		StocksToAdd: h.evaluator.Candidates(currentLosers),
		Tracked:     h.evaluator.Evaluate(r.Context()),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.RenderEvaluation(w, data); err != nil {
		h.logger.WithError(err).Error("Failed to render evaluation page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	}
}

// UpdateWatchlist tracks or untracks tickers from the evaluation form
// POST /evaluation
func (h *WatchlistHandler) UpdateWatchlist(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	if tickers := r.Form["track_ticker"]; len(tickers) > 0 {
		if err := h.store.AddFromRanking(tickers, h.cache.CurrentRanking(0)); err != nil {
			h.logger.WithError(err).Error("Failed to track tickers")
		}
	}

	if ticker := r.Form.Get("untrack_ticker"); ticker != "" {
		if err := h.store.Remove(ticker); err != nil {
			h.logger.WithError(err).Error("Failed to untrack ticker")
		}
	}

	http.Redirect(w, r, "/evaluation", http.StatusSeeOther)
}
