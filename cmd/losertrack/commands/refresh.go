package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"losertrack/internal/external/polygon"
	"losertrack/internal/ranking"
	"losertrack/internal/universe"
	"losertrack/pkg/config"
	"losertrack/pkg/httputil"
	"losertrack/pkg/logger"
)

// refreshCmd represents the refresh command
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Compute the losers ranking once and print it",
	Long: `Loads the ticker universe, fetches a full market snapshot and
prints the resulting losers ranking to stdout.

Example:
  go run ./cmd/losertrack refresh
  go run ./cmd/losertrack refresh --limit 20`,
	RunE: runRefresh,
}

var refreshLimit int

func init() {
	rootCmd.AddCommand(refreshCmd)

	refreshCmd.Flags().IntVar(&refreshLimit, "limit", 0, "number of entries to print (0 = config default)")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	httpClient := httputil.New(log, cfg.Polygon.Timeout).
		WithRateLimit(cfg.Polygon.RateLimitRPS)
	polyClient := polygon.NewClient(httpClient, cfg.Polygon.APIKey, cfg.Polygon.BaseURL, log)

	universeCache := universe.NewCache(polyClient, cfg.Market.Exchanges, log)
	losersCache := ranking.NewCache(polyClient, universeCache, cfg.Market.MinPrice, log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	universeCache.Refresh(ctx)
	if err := losersCache.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh ranking: %w", err)
	}

	limit := refreshLimit
	if limit <= 0 {
		limit = cfg.Market.DefaultLimit
	}

	losers := losersCache.CurrentRanking(limit)
	fmt.Printf("Top %d losers (universe: %d tickers)\n\n", len(losers), universeCache.Len())
	for i, entry := range losers {
		fmt.Printf("%3d. %-8s %-30.30s %10.2f  %7.2f%%\n",
			i+1, entry.Ticker, entry.Name, entry.CurrentPrice, entry.ChangePct)
	}
	if len(losers) == 0 {
		fmt.Println("No losers matched the filter criteria")
	}

	return nil
}
