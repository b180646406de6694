package polygon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"losertrack/pkg/httputil"
	"losertrack/pkg/logger"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	httpClient := httputil.New(logger.NewWithWriter(io.Discard), time.Second).DisableRetry()
	return NewClient(httpClient, "test-key", server.URL, logger.NewWithWriter(io.Discard)), server
}

func TestListTickersFollowsPagination(t *testing.T) {
	var server *httptest.Server

	mux := http.NewServeMux()
	mux.HandleFunc("/v3/reference/tickers", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-key", r.URL.Query().Get("apiKey"))
		require.Equal(t, "CS", r.URL.Query().Get("type"))
		require.Equal(t, "true", r.URL.Query().Get("active"))

		// The cursor URL intentionally carries no apiKey, as Polygon's does
		json.NewEncoder(w).Encode(tickersResponse{
			Results: []ReferenceTicker{
				{Ticker: "IBM", Name: "International Business Machines", PrimaryExchange: "XNYS"},
				{Ticker: "GE", Name: "General Electric", PrimaryExchange: "XNYS"},
			},
			NextURL: server.URL + "/v3/reference/tickers/page2",
		})
	})
	mux.HandleFunc("/v3/reference/tickers/page2", func(w http.ResponseWriter, r *http.Request) {
		// Key must be re-attached when following the cursor
		require.Equal(t, "test-key", r.URL.Query().Get("apiKey"))

		json.NewEncoder(w).Encode(tickersResponse{
			Results: []ReferenceTicker{
				{Ticker: "F", Name: "Ford Motor", PrimaryExchange: "XNYS"},
			},
		})
	})

	client, srv := newTestClient(t, mux)
	server = srv

	tickers, err := client.ListTickers(context.Background(), "XNYS")
	require.NoError(t, err)

	assert.Len(t, tickers, 3)
	assert.Equal(t, "IBM", tickers[0].Ticker)
	assert.Equal(t, "F", tickers[2].Ticker)
}

func TestListTickersNonSuccessStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := client.ListTickers(context.Background(), "XNAS")
	assert.Error(t, err)
}

func TestFullMarketSnapshot(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/snapshot/locale/us/markets/stocks/tickers", r.URL.Path)
		require.Equal(t, "false", r.URL.Query().Get("include_otc"))

		fmt.Fprint(w, `{
			"tickers": [
				{
					"ticker": "AAA",
					"lastTrade": {"p": 20.0},
					"day": {"o": 24.5, "c": 20.1},
					"prevDay": {"c": 25.0}
				},
				{
					"ticker": "BBB",
					"day": {"o": 9.1, "c": 9.0},
					"prevDay": {"c": 9.5}
				}
			]
		}`)
	}))

	quotes, err := client.FullMarketSnapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	assert.Equal(t, 20.0, quotes[0].LastTrade.Price)
	assert.Equal(t, 25.0, quotes[0].PrevDay.Close)

	// Missing lastTrade decodes to zero
	assert.Equal(t, 0.0, quotes[1].LastTrade.Price)
	assert.Equal(t, 9.0, quotes[1].Day.Close)
}

func TestDailyAggregates(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/aggs/ticker/AAA/range/1/day/2026-08-01/2026-08-10", r.URL.Path)

		fmt.Fprint(w, `{
			"results": [
				{"o": 20.5, "h": 21.0, "l": 19.5, "c": 20.0, "v": 100000, "t": 1754006400000},
				{"o": 20.0, "h": 22.5, "l": 18.0, "c": 22.0, "v": 120000, "t": 1754092800000}
			]
		}`)
	}))

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)

	bars, err := client.DailyAggregates(context.Background(), "AAA", from, to)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, 22.5, bars[1].High)
	assert.Equal(t, 18.0, bars[1].Low)
}
