package watchlist

import (
	"context"
	"time"

	"losertrack/internal/external/polygon"
	"losertrack/internal/ranking"
	"losertrack/pkg/logger"
)

// MarketDataProvider supplies the quotes the evaluator needs
type MarketDataProvider interface {
	FullMarketSnapshot(ctx context.Context) ([]polygon.SnapshotTicker, error)
	DailyAggregates(ctx context.Context, ticker string, from, to time.Time) ([]polygon.AggBar, error)
}

// TrackedPerformance is a tracked entry with its performance since tracking
type TrackedPerformance struct {
	Entry
	CurrentPrice      float64 `json:"current_price"`
	CurrentChangePct  float64 `json:"current_change_pct"`
	AvgDailyChangePct float64 `json:"avg_daily_change_pct"`
	// MaxSwing is the widest high-to-low range observed across the daily
	// bars since tracking started
	MaxSwing float64 `json:"max_swing"`
}

// Evaluator computes the evaluation page data: which current losers could
// be tracked, and how the already-tracked entries have performed
type Evaluator struct {
	store    *Store
	provider MarketDataProvider
	logger   *logger.Logger

	// now is swappable in tests
	now func() time.Time
}

// NewEvaluator creates a new watchlist evaluator
func NewEvaluator(store *Store, provider MarketDataProvider, log *logger.Logger) *Evaluator {
	return &Evaluator{
		store:    store,
		provider: provider,
		logger:   log,
		now:      time.Now,
	}
}

// maxCandidates caps the "stocks to add" list on the evaluation page
const maxCandidates = 10

// Candidates returns the current losers not yet tracked, at most
// maxCandidates, preserving ranking order
func (e *Evaluator) Candidates(currentLosers []ranking.LoserEntry) []ranking.LoserEntry {
	tracked := make(map[string]struct{})
	for _, entry := range e.store.Load() {
		tracked[entry.Ticker] = struct{}{}
	}

	candidates := make([]ranking.LoserEntry, 0, maxCandidates)
	for _, loser := range currentLosers {
		if _, ok := tracked[loser.Ticker]; ok {
			continue
		}
		candidates = append(candidates, loser)
		if len(candidates) == maxCandidates {
			break
		}
	}

	return candidates
}

// Evaluate computes performance for every tracked entry. Upstream failures
// degrade per the error taxonomy: a failed snapshot leaves current prices at
// their start price, a failed history fetch leaves the swing at zero.
func (e *Evaluator) Evaluate(ctx context.Context) []TrackedPerformance {
	entries := e.store.Load()
	if len(entries) == 0 {
		return []TrackedPerformance{}
	}

	snapshotMap := e.fetchSnapshotMap(ctx)
	today := e.now().Truncate(24 * time.Hour)

	results := make([]TrackedPerformance, 0, len(entries))
	for _, entry := range entries {
		results = append(results, e.evaluateEntry(ctx, entry, snapshotMap, today))
	}

	return results
}

func (e *Evaluator) fetchSnapshotMap(ctx context.Context) map[string]polygon.SnapshotTicker {
	quotes, err := e.provider.FullMarketSnapshot(ctx)
	if err != nil {
		e.logger.WithError(err).Warn("Snapshot unavailable for evaluation, using start prices")
		return map[string]polygon.SnapshotTicker{}
	}

	snapshotMap := make(map[string]polygon.SnapshotTicker, len(quotes))
	for _, q := range quotes {
		snapshotMap[q.Ticker] = q
	}
	return snapshotMap
}

func (e *Evaluator) evaluateEntry(ctx context.Context, entry Entry, snapshotMap map[string]polygon.SnapshotTicker, today time.Time) TrackedPerformance {
	startDate, err := time.Parse("2006-01-02", entry.StartDate)
	if err != nil {
		e.logger.WithError(err).WithField("ticker", entry.Ticker).
			Warn("Invalid start date on watchlist entry")
		startDate = today
	}

	// At least one day, so the average never divides by zero
	daysTracked := int(today.Sub(startDate).Hours() / 24)
	if daysTracked < 1 {
		daysTracked = 1
	}

	currentPrice := entry.StartPrice
	if snap, ok := snapshotMap[entry.Ticker]; ok {
		if snap.LastTrade.Price > 0 {
			currentPrice = snap.LastTrade.Price
		} else if snap.Day.Close > 0 {
			currentPrice = snap.Day.Close
		}
	}

	changePct := 0.0
	if entry.StartPrice != 0 {
		changePct = (currentPrice - entry.StartPrice) / entry.StartPrice * 100
	}

	return TrackedPerformance{
		Entry:             entry,
		CurrentPrice:      currentPrice,
		CurrentChangePct:  changePct,
		AvgDailyChangePct: changePct / float64(daysTracked),
		MaxSwing:          e.maxSwing(ctx, entry.Ticker, startDate, today),
	}
}

// maxSwing fetches the daily bars since tracking started and returns the
// widest high-to-low range. Only meaningful once at least one full day has
// passed; failures and empty histories yield zero.
func (e *Evaluator) maxSwing(ctx context.Context, ticker string, startDate, today time.Time) float64 {
	if !today.After(startDate) {
		return 0
	}

	bars, err := e.provider.DailyAggregates(ctx, ticker, startDate, today)
	if err != nil {
		e.logger.WithError(err).WithField("ticker", ticker).
			Warn("History unavailable, swing set to zero")
		return 0
	}
	if len(bars) == 0 {
		return 0
	}

	maxHigh := bars[0].High
	minLow := bars[0].Low
	for _, bar := range bars[1:] {
		if bar.High > maxHigh {
			maxHigh = bar.High
		}
		if bar.Low < minLow {
			minLow = bar.Low
		}
	}

	return maxHigh - minLow
}
