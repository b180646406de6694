package ranking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"losertrack/internal/external/polygon"
	"losertrack/internal/universe"
	"losertrack/pkg/logger"
)

// SnapshotProvider fetches a full-market snapshot of quotes
type SnapshotProvider interface {
	FullMarketSnapshot(ctx context.Context) ([]polygon.SnapshotTicker, error)
}

// UniverseSource supplies a consistent view of the ticker universe
type UniverseSource interface {
	View() universe.View
	Ready() bool
}

// Cache publishes the most recently computed RankingSnapshot. Readers are
// never blocked by an in-flight refresh and never observe a partially
// written ranking: the snapshot is computed off-lock and swapped in whole.
type Cache struct {
	mu       sync.RWMutex
	snapshot RankingSnapshot

	provider SnapshotProvider
	universe UniverseSource
	minPrice float64
	timeout  time.Duration
	logger   *logger.Logger
}

// NewCache creates an empty top-losers cache
func NewCache(provider SnapshotProvider, uni UniverseSource, minPrice float64, log *logger.Logger) *Cache {
	return &Cache{
		provider: provider,
		universe: uni,
		minPrice: minPrice,
		timeout:  2 * time.Minute,
		logger:   log,
	}
}

// Refresh fetches a fresh market snapshot, recomputes the full loser ranking
// against a stable view of the universe, and atomically replaces the
// published snapshot. On any failure the previously published snapshot is
// left untouched. No lock is held while waiting on the network.
func (c *Cache) Refresh(ctx context.Context) error {
	if !c.universe.Ready() {
		c.logger.Warn("Skipping losers refresh, universe not loaded yet")
		return fmt.Errorf("universe not ready")
	}

	quotes, err := c.provider.FullMarketSnapshot(ctx)
	if err != nil {
		c.logger.WithError(err).Error("Losers refresh failed, keeping previous snapshot")
		return fmt.Errorf("fetch market snapshot: %w", err)
	}

	// Stable universe view for the whole cycle; the full ranking is kept so
	// readers can slice to any limit
	view := c.universe.View()
	entries := ComputeRanking(quotes, view, c.minPrice, 0)

	snapshot := RankingSnapshot{
		Entries:   entries,
		UpdatedAt: time.Now(),
	}

	c.mu.Lock()
	c.snapshot = snapshot
	c.mu.Unlock()

	c.logger.WithFields(map[string]interface{}{
		"losers":   len(entries),
		"universe": view.Len(),
	}).Info("Top losers cache updated")

	return nil
}

// RefreshAsync triggers a refresh in the background. The caller does not
// wait for it and does not see its error; a failed refresh only means the
// next read still returns the previous snapshot.
func (c *Cache) RefreshAsync() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		// Error already logged inside Refresh
		_ = c.Refresh(ctx)
	}()
}

// CurrentRanking returns up to limit entries of the published ranking as a
// copy. limit <= 0 returns the full ranking. Non-blocking for readers.
func (c *Cache) CurrentRanking(limit int) []LoserEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := c.snapshot.Entries
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	out := make([]LoserEntry, len(entries))
	copy(out, entries)
	return out
}

// LastUpdated returns when the published snapshot was computed. ok is false
// before the first successful refresh.
func (c *Cache) LastUpdated() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.snapshot.UpdatedAt, !c.snapshot.UpdatedAt.IsZero()
}
