package universe

import (
	"context"
	"strings"
	"sync"

	"losertrack/internal/external/polygon"
	"losertrack/pkg/logger"
)

// TickerLister fetches the ticker listing for one exchange partition
type TickerLister interface {
	ListTickers(ctx context.Context, exchange string) ([]polygon.ReferenceTicker, error)
}

// Metadata holds the display information kept per universe symbol
type Metadata struct {
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
}

// View is a point-in-time copy of the universe, safe to read without
// locking while a concurrent reload is in progress
type View struct {
	symbols  map[string]struct{}
	metadata map[string]Metadata
}

// Contains reports whether symbol is in the view
func (v View) Contains(symbol string) bool {
	_, ok := v.symbols[strings.ToUpper(symbol)]
	return ok
}

// MetadataFor returns the display metadata for symbol
func (v View) MetadataFor(symbol string) (Metadata, bool) {
	meta, ok := v.metadata[strings.ToUpper(symbol)]
	return meta, ok
}

// Len returns the number of symbols in the view
func (v View) Len() int {
	return len(v.symbols)
}

// Cache holds the set of common-stock symbols eligible for loser ranking,
// together with per-symbol display metadata
type Cache struct {
	mu       sync.RWMutex
	symbols  map[string]struct{}
	metadata map[string]Metadata

	lister    TickerLister
	exchanges []string
	logger    *logger.Logger
}

// NewCache creates an empty universe cache over the given exchange partitions
func NewCache(lister TickerLister, exchanges []string, log *logger.Logger) *Cache {
	return &Cache{
		symbols:   make(map[string]struct{}),
		metadata:  make(map[string]Metadata),
		lister:    lister,
		exchanges: exchanges,
		logger:    log,
	}
}

// eligible reports whether a listing is a plain common-stock symbol.
// Symbols carrying spaces or dots denote units, warrants and share
// classes under the provider's conventions and are excluded.
func eligible(ticker string) bool {
	if ticker == "" {
		return false
	}
	return !strings.ContainsAny(ticker, " .")
}

// Refresh loads every exchange partition and union-merges the results into
// the cache. A partition that fails to load is logged and skipped; the
// partitions that did load are still merged. Safe to call repeatedly and
// concurrently with readers.
func (c *Cache) Refresh(ctx context.Context) {
	loaded := make(map[string]Metadata)

	for _, exchange := range c.exchanges {
		tickers, err := c.lister.ListTickers(ctx, exchange)
		if err != nil {
			c.logger.WithError(err).WithField("exchange", exchange).
				Error("Failed to load universe partition, skipping")
			continue
		}

		accepted := 0
		for _, t := range tickers {
			if !eligible(t.Ticker) {
				continue
			}

			symbol := strings.ToUpper(t.Ticker)
			exch := t.PrimaryExchange
			if exch == "" {
				exch = exchange
			}

			// Later records overwrite earlier ones for the same symbol
			loaded[symbol] = Metadata{Name: t.Name, Exchange: exch}
			accepted++
		}

		c.logger.WithFields(map[string]interface{}{
			"exchange": exchange,
			"listed":   len(tickers),
			"accepted": accepted,
		}).Info("Loaded universe partition")
	}

	if len(loaded) == 0 {
		c.logger.Warn("Universe refresh produced no symbols, keeping existing universe")
		return
	}

	c.mu.Lock()
	for symbol, meta := range loaded {
		c.symbols[symbol] = struct{}{}
		c.metadata[symbol] = meta
	}
	total := len(c.symbols)
	c.mu.Unlock()

	c.logger.WithField("total", total).Info("Universe refreshed")
}

// Contains reports whether symbol is in the universe
func (c *Cache) Contains(symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.symbols[strings.ToUpper(symbol)]
	return ok
}

// MetadataFor returns the display metadata for symbol
func (c *Cache) MetadataFor(symbol string) (Metadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	meta, ok := c.metadata[strings.ToUpper(symbol)]
	return meta, ok
}

// Len returns the number of symbols in the universe
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.symbols)
}

// Ready reports whether at least one partition has ever loaded. An empty
// universe means "not ready", never "no listings exist".
func (c *Cache) Ready() bool {
	return c.Len() > 0
}

// View returns a copied snapshot of the universe. Ranking runs against a
// View so a concurrent reload cannot expose a half-updated universe.
func (c *Cache) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()

	symbols := make(map[string]struct{}, len(c.symbols))
	for s := range c.symbols {
		symbols[s] = struct{}{}
	}

	metadata := make(map[string]Metadata, len(c.metadata))
	for s, m := range c.metadata {
		metadata[s] = m
	}

	return View{symbols: symbols, metadata: metadata}
}

// NewView builds a View directly from symbol metadata (used in tests)
func NewView(metadata map[string]Metadata) View {
	symbols := make(map[string]struct{}, len(metadata))
	meta := make(map[string]Metadata, len(metadata))
	for s, m := range metadata {
		upper := strings.ToUpper(s)
		symbols[upper] = struct{}{}
		meta[upper] = m
	}
	return View{symbols: symbols, metadata: meta}
}
