package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"losertrack/internal/external/polygon"
	"losertrack/internal/universe"
	"losertrack/pkg/config"
	"losertrack/pkg/httputil"
	"losertrack/pkg/logger"
)

// universeCmd represents the universe command
var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "Load the ticker universe and print its size",
	Long: `Fetches the common-stock listings for the configured exchanges
from Polygon reference data and prints the universe size.

Example:
  go run ./cmd/losertrack universe`,
	RunE: runUniverse,
}

func init() {
	rootCmd.AddCommand(universeCmd)
}

func runUniverse(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	httpClient := httputil.New(log, cfg.Polygon.Timeout).
		WithRateLimit(cfg.Polygon.RateLimitRPS)
	polyClient := polygon.NewClient(httpClient, cfg.Polygon.APIKey, cfg.Polygon.BaseURL, log)

	universeCache := universe.NewCache(polyClient, cfg.Market.Exchanges, log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	universeCache.Refresh(ctx)
	if !universeCache.Ready() {
		return fmt.Errorf("universe load failed for all exchanges")
	}

	fmt.Printf("Universe loaded: %d common stocks across %v\n",
		universeCache.Len(), cfg.Market.Exchanges)
	return nil
}
