package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"losertrack/internal/external/polygon"
	"losertrack/internal/ranking"
	"losertrack/internal/universe"
	"losertrack/internal/watchlist"
	"losertrack/internal/web"
	"losertrack/pkg/logger"
)

// fakeMarket serves canned reference listings, snapshot quotes and daily
// bars in place of the Polygon client
type fakeMarket struct {
	listings []polygon.ReferenceTicker
	quotes   []polygon.SnapshotTicker
	bars     []polygon.AggBar
}

func (f *fakeMarket) ListTickers(ctx context.Context, exchange string) ([]polygon.ReferenceTicker, error) {
	return f.listings, nil
}

func (f *fakeMarket) FullMarketSnapshot(ctx context.Context) ([]polygon.SnapshotTicker, error) {
	return f.quotes, nil
}

func (f *fakeMarket) DailyAggregates(ctx context.Context, ticker string, from, to time.Time) ([]polygon.AggBar, error) {
	return f.bars, nil
}

func loserQuote(ticker string, last, prevClose float64) polygon.SnapshotTicker {
	return polygon.SnapshotTicker{
		Ticker:    ticker,
		LastTrade: polygon.SnapshotTrade{Price: last},
		PrevDay:   polygon.SnapshotDay{Close: prevClose},
	}
}

// testEnv wires real caches around a fakeMarket the way serve does
type testEnv struct {
	market   *fakeMarket
	universe *universe.Cache
	cache    *ranking.Cache
	store    *watchlist.Store
	renderer *web.Renderer
	logger   *logger.Logger
}

func newTestEnv(t *testing.T, market *fakeMarket) *testEnv {
	t.Helper()

	log := logger.NewWithWriter(io.Discard)

	renderer, err := web.NewRenderer()
	require.NoError(t, err)

	uni := universe.NewCache(market, []string{"XNYS"}, log)
	cache := ranking.NewCache(market, uni, 15.0, log)
	store := watchlist.NewStore(filepath.Join(t.TempDir(), "tracked.json"), log)

	return &testEnv{
		market:   market,
		universe: uni,
		cache:    cache,
		store:    store,
		renderer: renderer,
		logger:   log,
	}
}

func (env *testEnv) refresh(t *testing.T) {
	t.Helper()

	env.universe.Refresh(context.Background())
	require.NoError(t, env.cache.Refresh(context.Background()))
}

func defaultMarket() *fakeMarket {
	return &fakeMarket{
		listings: []polygon.ReferenceTicker{
			{Ticker: "AAA", Name: "Alpha Corp", PrimaryExchange: "XNYS"},
			{Ticker: "BBB", Name: "Beta Inc", PrimaryExchange: "XNYS"},
			{Ticker: "CCC", Name: "Gamma Ltd", PrimaryExchange: "XNYS"},
		},
		quotes: []polygon.SnapshotTicker{
			loserQuote("AAA", 24.0, 30.0), // -20%
			loserQuote("BBB", 27.0, 30.0), // -10%
			loserQuote("CCC", 28.5, 30.0), // -5%
		},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decodeEnvelope(t *testing.T, body io.Reader) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.NewDecoder(body).Decode(&env))
	return env
}

func TestGetTopLosersReturnsRanking(t *testing.T) {
	env := newTestEnv(t, defaultMarket())
	env.refresh(t)

	h := NewLosersHandler(env.cache, env.universe, env.renderer, 10, env.logger)

	req := httptest.NewRequest("GET", "/api/top-losers", nil)
	rec := httptest.NewRecorder()
	h.GetTopLosers(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decodeEnvelope(t, rec.Body)
	require.True(t, resp.Success)

	var data TopLosersResponse
	require.NoError(t, json.Unmarshal(resp.Data, &data))

	require.Equal(t, 3, data.Count)
	require.Len(t, data.Losers, 3)
	assert.Equal(t, "AAA", data.Losers[0].Ticker)
	assert.Equal(t, -20.0, data.Losers[0].ChangePct)
	assert.Equal(t, "Alpha Corp", data.Losers[0].Name)
	assert.Equal(t, "CCC", data.Losers[2].Ticker)
	assert.NotEqual(t, notYetUpdated, data.LastUpdated)
}

func TestGetTopLosersLimitFallback(t *testing.T) {
	env := newTestEnv(t, defaultMarket())
	env.refresh(t)

	h := NewLosersHandler(env.cache, env.universe, env.renderer, 2, env.logger)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"missing limit uses default", "", 2},
		{"malformed limit uses default", "?limit=abc", 2},
		{"zero limit uses default", "?limit=0", 2},
		{"negative limit uses default", "?limit=-3", 2},
		{"explicit limit respected", "?limit=1", 1},
		{"limit beyond ranking returns all", "?limit=50", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/top-losers"+tt.query, nil)
			rec := httptest.NewRecorder()
			h.GetTopLosers(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)

			resp := decodeEnvelope(t, rec.Body)
			var data TopLosersResponse
			require.NoError(t, json.Unmarshal(resp.Data, &data))
			assert.Len(t, data.Losers, tt.want)
		})
	}
}

func TestGetTopLosersUniverseNotReady(t *testing.T) {
	env := newTestEnv(t, defaultMarket())
	// No refresh: the universe cache is still empty

	h := NewLosersHandler(env.cache, env.universe, env.renderer, 10, env.logger)

	req := httptest.NewRequest("GET", "/api/top-losers", nil)
	rec := httptest.NewRecorder()
	h.GetTopLosers(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	resp := decodeEnvelope(t, rec.Body)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "universe")
}

func TestHomeRendersRanking(t *testing.T) {
	env := newTestEnv(t, defaultMarket())
	env.refresh(t)

	h := NewLosersHandler(env.cache, env.universe, env.renderer, 10, env.logger)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	h.Home(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body := rec.Body.String()
	assert.Contains(t, body, "AAA")
	assert.Contains(t, body, "Alpha Corp")
	assert.Contains(t, body, "-20.00")
	assert.True(t, strings.Index(body, "AAA") < strings.Index(body, "CCC"),
		"biggest loser should render first")
}

func TestHomeRendersEmptyState(t *testing.T) {
	market := defaultMarket()
	market.quotes = nil
	env := newTestEnv(t, market)
	env.refresh(t)

	h := NewLosersHandler(env.cache, env.universe, env.renderer, 10, env.logger)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	h.Home(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
