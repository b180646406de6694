package ranking

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"losertrack/internal/external/polygon"
	"losertrack/internal/universe"
)

// LoserEntry is one ranked loser, ready for presentation
type LoserEntry struct {
	Ticker       string  `json:"ticker"`
	Name         string  `json:"name"`
	Exchange     string  `json:"exchange"`
	CurrentPrice float64 `json:"currentPrice"`  // rounded to 2 decimals
	ChangePct    float64 `json:"changePct"`     // rounded to 2 decimals, always negative
	PrevClose    float64 `json:"previousClose"` // unrounded reference price
	YahooLink    string  `json:"yahooLink"`
}

// RankingSnapshot is the unit published to readers: the ordered loser list
// plus the time it was computed
type RankingSnapshot struct {
	Entries   []LoserEntry
	UpdatedAt time.Time
}

// round2 rounds v to two decimal places for display
func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// currentPrice picks the most recent usable price from a snapshot quote:
// the last trade price, falling back to the day's close. Zero means no
// usable price.
func currentPrice(quote polygon.SnapshotTicker) float64 {
	if quote.LastTrade.Price > 0 {
		return quote.LastTrade.Price
	}
	return quote.Day.Close
}

// ComputeRanking filters snapshot quotes down to qualifying losers and ranks
// them ascending by percentage change, most negative first.
//
// A quote qualifies when its symbol is in the universe view, its current
// price and its previous close are both present and at or above minPrice,
// and its change against the previous close is strictly negative. The
// previous close is always the reference price; the day's open is never
// used as a baseline.
//
// The sort is stable, so ties keep snapshot order. A positive limit
// truncates the result; limit <= 0 keeps the full ranking. Pure function:
// identical inputs yield identical output.
func ComputeRanking(quotes []polygon.SnapshotTicker, view universe.View, minPrice float64, limit int) []LoserEntry {
	losers := make([]LoserEntry, 0, 64)

	for _, quote := range quotes {
		symbol := strings.ToUpper(quote.Ticker)
		if !view.Contains(symbol) {
			continue
		}

		current := currentPrice(quote)
		if current <= 0 || current < minPrice {
			continue
		}

		// Previous close is the reference price; a missing or sub-threshold
		// baseline makes the comparison meaningless
		prevClose := quote.PrevDay.Close
		if prevClose <= 0 || prevClose < minPrice {
			continue
		}

		changePct := (current - prevClose) / prevClose * 100
		if changePct >= 0 {
			continue
		}

		meta, _ := view.MetadataFor(symbol)

		losers = append(losers, LoserEntry{
			Ticker:       symbol,
			Name:         meta.Name,
			Exchange:     meta.Exchange,
			CurrentPrice: round2(current),
			ChangePct:    round2(changePct),
			PrevClose:    prevClose,
			YahooLink:    fmt.Sprintf("https://finance.yahoo.com/quote/%s", symbol),
		})
	}

	sort.SliceStable(losers, func(i, j int) bool {
		return losers[i].ChangePct < losers[j].ChangePct
	})

	if limit > 0 && len(losers) > limit {
		losers = losers[:limit]
	}

	return losers
}
