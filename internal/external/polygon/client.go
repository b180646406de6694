package polygon

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"losertrack/pkg/httputil"
	"losertrack/pkg/logger"
)

// Client handles communication with the Polygon.io REST API
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	apiKey     string
	baseURL    string
}

// NewClient creates a new Polygon.io client
func NewClient(httpClient *httputil.Client, apiKey, baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// buildURL joins path and query parameters onto the base URL, always
// attaching the API key
func (c *Client) buildURL(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apiKey", c.apiKey)
	return fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
}

// withKey re-attaches the API key to a cursor URL returned by the API.
// Polygon next_url values carry every parameter except the credential.
func (c *Client) withKey(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid cursor URL: %w", err)
	}

	q := u.Query()
	q.Set("apiKey", c.apiKey)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// ListTickers fetches all active common-stock tickers listed on the given
// exchange, following the pagination cursor until exhausted
func (c *Client) ListTickers(ctx context.Context, exchange string) ([]ReferenceTicker, error) {
	params := url.Values{}
	params.Set("type", "CS")
	params.Set("market", "stocks")
	params.Set("exchange", exchange)
	params.Set("active", "true")
	params.Set("limit", "1000")

	nextURL := c.buildURL("/v3/reference/tickers", params)

	var tickers []ReferenceTicker
	pages := 0

	for nextURL != "" {
		var page tickersResponse
		if err := c.httpClient.GetJSON(ctx, nextURL, &page); err != nil {
			return nil, fmt.Errorf("list tickers for %s: %w", exchange, err)
		}

		tickers = append(tickers, page.Results...)
		pages++

		if page.NextURL == "" {
			break
		}

		withKey, err := c.withKey(page.NextURL)
		if err != nil {
			return nil, err
		}
		nextURL = withKey
	}

	c.logger.WithFields(map[string]interface{}{
		"exchange": exchange,
		"tickers":  len(tickers),
		"pages":    pages,
	}).Info("Fetched reference tickers")

	return tickers, nil
}

// FullMarketSnapshot fetches the current snapshot for every US stock ticker,
// excluding OTC listings
func (c *Client) FullMarketSnapshot(ctx context.Context) ([]SnapshotTicker, error) {
	params := url.Values{}
	params.Set("include_otc", "false")

	var resp snapshotResponse
	u := c.buildURL("/v2/snapshot/locale/us/markets/stocks/tickers", params)
	if err := c.httpClient.GetJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("full market snapshot: %w", err)
	}

	c.logger.WithField("tickers", len(resp.Tickers)).Debug("Fetched market snapshot")

	return resp.Tickers, nil
}

// DailyAggregates fetches daily OHLC bars for a ticker over a date range
// (inclusive on both ends)
func (c *Client) DailyAggregates(ctx context.Context, ticker string, from, to time.Time) ([]AggBar, error) {
	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s",
		url.PathEscape(ticker), from.Format("2006-01-02"), to.Format("2006-01-02"))

	var resp aggsResponse
	if err := c.httpClient.GetJSON(ctx, c.buildURL(path, nil), &resp); err != nil {
		return nil, fmt.Errorf("daily aggregates for %s: %w", ticker, err)
	}

	return resp.Results, nil
}
