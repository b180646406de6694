package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"losertrack/internal/api"
	"losertrack/internal/api/handlers"
	"losertrack/internal/external/polygon"
	"losertrack/internal/ranking"
	"losertrack/internal/scheduler"
	"losertrack/internal/scheduler/jobs"
	"losertrack/internal/universe"
	"losertrack/internal/watchlist"
	"losertrack/internal/web"
	"losertrack/pkg/config"
	"losertrack/pkg/httputil"
	"losertrack/pkg/logger"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the top-losers HTTP server",
	Long: `Starts the HTTP server and the background jobs.

This command:
- Loads the ticker universe from Polygon reference data
- Computes the initial losers ranking
- Schedules periodic ranking refreshes and universe reloads
- Serves JSON and HTML endpoints

Endpoints:
  GET  /health              - Health check
  GET  /                    - Top losers HTML page
  GET  /evaluation          - Watchlist evaluation page
  POST /evaluation          - Track/untrack watchlist tickers
  GET  /api/top-losers      - Top losers JSON

Example:
  go run ./cmd/losertrack serve
  go run ./cmd/losertrack serve --port 8080`,
	RunE: runServer,
}

var servePort string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "HTTP server port (overrides PORT)")
}

func runServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Losertrack Server ===")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Override port if flag is set
	if servePort != "" {
		cfg.Port = servePort
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing server")

	// 3. Create HTTP client for Polygon
	httpClient := httputil.New(log, cfg.Polygon.Timeout).
		WithRateLimit(cfg.Polygon.RateLimitRPS)

	// 4. Create Polygon client
	polyClient := polygon.NewClient(httpClient, cfg.Polygon.APIKey, cfg.Polygon.BaseURL, log)

	// 5. Create caches
	universeCache := universe.NewCache(polyClient, cfg.Market.Exchanges, log)
	losersCache := ranking.NewCache(polyClient, universeCache, cfg.Market.MinPrice, log)

	// 6. Create watchlist store and evaluator
	store := watchlist.NewStore(cfg.Watchlist.FilePath, log)
	evaluator := watchlist.NewEvaluator(store, polyClient, log)

	// 7. Create HTML renderer
	renderer, err := web.NewRenderer()
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	// 8. Create handlers and router
	losersHandler := handlers.NewLosersHandler(losersCache, universeCache, renderer, cfg.Market.DefaultLimit, log)
	watchlistHandler := handlers.NewWatchlistHandler(store, evaluator, losersCache, renderer, log)
	router := api.NewRouter(losersHandler, watchlistHandler, log)

	// 9. Create server
	server := api.New(cfg, log, router)

	// 10. Initial universe load and ranking refresh before serving traffic
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 5*time.Minute)
	universeCache.Refresh(bootCtx)
	if err := losersCache.Refresh(bootCtx); err != nil {
		log.WithError(err).Warn("Initial ranking refresh failed, will retry on schedule")
	}
	bootCancel()

	// 11. Schedule background jobs
	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewRefreshJob(losersCache, cfg.Market.RefreshSchedule, log)); err != nil {
		return fmt.Errorf("register refresh job: %w", err)
	}
	if err := sched.AddJob(jobs.NewUniverseJob(universeCache, cfg.Market.UniverseSchedule, log)); err != nil {
		return fmt.Errorf("register universe job: %w", err)
	}
	sched.Start()

	// 12. Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("Server started successfully")
	fmt.Printf("\nServer running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /")
	fmt.Println("  GET  /evaluation")
	fmt.Println("  GET  /api/top-losers")
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	sched.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
