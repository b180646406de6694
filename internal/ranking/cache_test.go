package ranking

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"losertrack/internal/external/polygon"
	"losertrack/internal/universe"
	"losertrack/pkg/logger"
)

// fakeProvider serves a configurable snapshot and can fail or stall
type fakeProvider struct {
	mu     sync.Mutex
	quotes []polygon.SnapshotTicker
	err    error
	delay  time.Duration
}

func (f *fakeProvider) FullMarketSnapshot(ctx context.Context) ([]polygon.SnapshotTicker, error) {
	f.mu.Lock()
	quotes, err, delay := f.quotes, f.err, f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return quotes, nil
}

func (f *fakeProvider) set(quotes []polygon.SnapshotTicker, err error) {
	f.mu.Lock()
	f.quotes, f.err = quotes, err
	f.mu.Unlock()
}

// fakeUniverse wraps a fixed view
type fakeUniverse struct {
	view universe.View
}

func (f *fakeUniverse) View() universe.View { return f.view }
func (f *fakeUniverse) Ready() bool         { return f.view.Len() > 0 }

func newTestCache(provider *fakeProvider) *Cache {
	uni := &fakeUniverse{view: testView()}
	return NewCache(provider, uni, 15, logger.NewWithWriter(io.Discard))
}

func TestRefreshPublishesRanking(t *testing.T) {
	provider := &fakeProvider{quotes: []polygon.SnapshotTicker{
		quote("AAA", 20, 0, 25),
		quote("BBB", 45, 0, 50),
	}}
	cache := newTestCache(provider)

	// Before the first refresh: empty ranking, sentinel timestamp
	assert.Empty(t, cache.CurrentRanking(10))
	_, ok := cache.LastUpdated()
	assert.False(t, ok)

	require.NoError(t, cache.Refresh(context.Background()))

	entries := cache.CurrentRanking(10)
	require.Len(t, entries, 2)
	assert.Equal(t, "AAA", entries[0].Ticker)

	updated, ok := cache.LastUpdated()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now(), updated, 5*time.Second)
}

func TestRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	provider := &fakeProvider{quotes: []polygon.SnapshotTicker{quote("AAA", 20, 0, 25)}}
	cache := newTestCache(provider)

	require.NoError(t, cache.Refresh(context.Background()))
	before, _ := cache.LastUpdated()

	provider.set(nil, errors.New("upstream returned 502"))
	err := cache.Refresh(context.Background())
	assert.Error(t, err)

	// Previous snapshot untouched
	entries := cache.CurrentRanking(10)
	require.Len(t, entries, 1)
	assert.Equal(t, "AAA", entries[0].Ticker)

	after, ok := cache.LastUpdated()
	assert.True(t, ok)
	assert.Equal(t, before, after)
}

func TestRefreshRequiresUniverse(t *testing.T) {
	provider := &fakeProvider{}
	cache := NewCache(provider, &fakeUniverse{view: universe.NewView(nil)}, 15,
		logger.NewWithWriter(io.Discard))

	err := cache.Refresh(context.Background())
	assert.Error(t, err)
}

func TestCurrentRankingLimit(t *testing.T) {
	provider := &fakeProvider{quotes: []polygon.SnapshotTicker{
		quote("AAA", 20, 0, 25),  // -20%
		quote("BBB", 45, 0, 50),  // -10%
		quote("CCC", 97, 0, 100), // -3%
	}}
	cache := newTestCache(provider)
	require.NoError(t, cache.Refresh(context.Background()))

	assert.Len(t, cache.CurrentRanking(2), 2)
	assert.Len(t, cache.CurrentRanking(10), 3)
	assert.Len(t, cache.CurrentRanking(0), 3)
}

func TestCurrentRankingReturnsCopy(t *testing.T) {
	provider := &fakeProvider{quotes: []polygon.SnapshotTicker{quote("AAA", 20, 0, 25)}}
	cache := newTestCache(provider)
	require.NoError(t, cache.Refresh(context.Background()))

	entries := cache.CurrentRanking(10)
	entries[0].Ticker = "MUTATED"

	fresh := cache.CurrentRanking(10)
	assert.Equal(t, "AAA", fresh[0].Ticker)
}

// TestConcurrentReadersNeverSeeMixedSnapshot stresses readers against
// continuous slow refreshes alternating between two disjoint result sets.
// Every read must be wholly one generation or wholly the other.
func TestConcurrentReadersNeverSeeMixedSnapshot(t *testing.T) {
	genA := []polygon.SnapshotTicker{
		quote("AAA", 20, 0, 25), // -20%
		quote("BBB", 45, 0, 50), // -10%
	}
	genB := []polygon.SnapshotTicker{
		quote("CCC", 80, 0, 100), // -20%
		quote("DDD", 27, 0, 30),  // -10%
	}

	provider := &fakeProvider{quotes: genA, delay: 100 * time.Microsecond}
	cache := newTestCache(provider)
	require.NoError(t, cache.Refresh(context.Background()))

	done := make(chan struct{})
	var wg sync.WaitGroup

	// Writer: alternate generations as fast as the provider delay allows
	wg.Add(1)
	go func() {
		defer wg.Done()
		useA := false
		for {
			select {
			case <-done:
				return
			default:
			}
			if useA {
				provider.set(genA, nil)
			} else {
				provider.set(genB, nil)
			}
			useA = !useA
			_ = cache.Refresh(context.Background())
		}
	}()

	generation := func(ticker string) string {
		if ticker == "AAA" || ticker == "BBB" {
			return "A"
		}
		return "B"
	}

	// Readers: every observed ranking must be internally consistent
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 2000; i++ {
				entries := cache.CurrentRanking(10)
				if len(entries) == 0 {
					continue
				}
				gen := generation(entries[0].Ticker)
				for _, e := range entries {
					if generation(e.Ticker) != gen {
						t.Errorf("Mixed snapshot observed: %+v", entries)
						return
					}
				}
				if len(entries) != 2 {
					t.Errorf("Partial snapshot observed: %d entries", len(entries))
					return
				}
			}
		}()
	}

	// Let readers finish, then stop the writer
	time.Sleep(50 * time.Millisecond)
	close(done)
	wg.Wait()
}

func TestRefreshAsyncIsFireAndForget(t *testing.T) {
	provider := &fakeProvider{
		quotes: []polygon.SnapshotTicker{quote("AAA", 20, 0, 25)},
		delay:  10 * time.Millisecond,
	}
	cache := newTestCache(provider)

	cache.RefreshAsync()

	// The trigger returns immediately; the result shows up on a later read
	assert.Empty(t, cache.CurrentRanking(10))

	deadline := time.After(2 * time.Second)
	for {
		if len(cache.CurrentRanking(10)) == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("Async refresh never landed")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
