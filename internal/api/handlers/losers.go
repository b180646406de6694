package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"losertrack/internal/ranking"
	"losertrack/internal/universe"
	"losertrack/internal/web"
	"losertrack/pkg/logger"
)

// notYetUpdated is shown before the first successful cache refresh
const notYetUpdated = "Not yet updated"

// LosersHandler handles the top-losers page and API endpoint
type LosersHandler struct {
	cache        *ranking.Cache
	universe     *universe.Cache
	renderer     *web.Renderer
	defaultLimit int
	logger       *logger.Logger
}

// NewLosersHandler creates a new losers handler
func NewLosersHandler(cache *ranking.Cache, uni *universe.Cache, renderer *web.Renderer, defaultLimit int, log *logger.Logger) *LosersHandler {
	return &LosersHandler{
		cache:        cache,
		universe:     uni,
		renderer:     renderer,
		defaultLimit: defaultLimit,
		logger:       log,
	}
}

// parseLimit reads the limit query parameter. Missing, malformed or
// non-positive values fall back to the default rather than erroring.
func (h *LosersHandler) parseLimit(r *http.Request) int {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return h.defaultLimit
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		return h.defaultLimit
	}

	return limit
}

// lastUpdatedLabel formats the cache timestamp for display
func (h *LosersHandler) lastUpdatedLabel() string {
	updated, ok := h.cache.LastUpdated()
	if !ok {
		return notYetUpdated
	}
	return updated.Format("2006-01-02 15:04:05 MST")
}

// Home renders the top-losers page
// GET /?limit=10
func (h *LosersHandler) Home(w http.ResponseWriter, r *http.Request) {
	// Serving a page view also warms the cache for the next one
	h.cache.RefreshAsync()

	limit := h.parseLimit(r)

	data := web.HomeData{
		Stocks:      h.cache.CurrentRanking(limit),
		LastUpdated: h.lastUpdatedLabel(),
		Limit:       limit,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.RenderHome(w, data); err != nil {
		h.logger.WithError(err).Error("Failed to render home page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	}
}

// TopLosersResponse is the data payload of the top-losers API endpoint
type TopLosersResponse struct {
	Count       int                  `json:"count"`
	LastUpdated string               `json:"last_updated"`
	Losers      []ranking.LoserEntry `json:"losers"`
}

// GetTopLosers returns the current ranking as JSON
// GET /api/top-losers?limit=10
func (h *LosersHandler) GetTopLosers(w http.ResponseWriter, r *http.Request) {
	// An empty universe means nothing has loaded yet, which is different
	// from a day with zero qualifying losers
	if !h.universe.Ready() {
		respondError(w, http.StatusServiceUnavailable, "Ticker universe not loaded yet")
		return
	}

	losers := h.cache.CurrentRanking(h.parseLimit(r))

	respondJSON(w, http.StatusOK, TopLosersResponse{
		Count:       len(losers),
		LastUpdated: h.lastUpdatedLabel(),
		Losers:      losers,
	})
}

// respondJSON writes a success envelope
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// respondError writes an error envelope
func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
