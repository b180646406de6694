package watchlist

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"losertrack/internal/ranking"
	"losertrack/pkg/logger"
)

// Entry is one tracked ticker as persisted in the watchlist file
type Entry struct {
	Ticker    string `json:"ticker"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"` // ISO date (2006-01-02)
	// StartPrice is the previous close recorded at tracking time, matching
	// the ranking engine's reference-price convention
	StartPrice float64 `json:"start_price"`
}

// Store persists the watchlist as a single JSON file. The file is read
// fully into memory and rewritten wholesale on every mutation.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *logger.Logger
}

// NewStore creates a watchlist store backed by the file at path
func NewStore(path string, log *logger.Logger) *Store {
	return &Store{path: path, logger: log}
}

// Load reads all tracked entries. A missing or unreadable file yields an
// empty list rather than an error, so a fresh deployment starts clean.
func (s *Store) Load() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load()
}

func (s *Store) load() []Entry {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithError(err).Warn("Failed to read watchlist file, starting empty")
		}
		return []Entry{}
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.WithError(err).Warn("Corrupt watchlist file, starting empty")
		return []Entry{}
	}

	return entries
}

func (s *Store) save(entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal watchlist: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write watchlist file: %w", err)
	}

	return nil
}

// AddFromRanking tracks the requested tickers, looking each one up in the
// given loser list. Tickers already tracked or absent from the list are
// skipped. The entry's start price is the loser's previous close and the
// start date is today.
func (s *Store) AddFromRanking(tickers []string, losers []ranking.LoserEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()

	tracked := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		tracked[e.Ticker] = struct{}{}
	}

	byTicker := make(map[string]ranking.LoserEntry, len(losers))
	for _, l := range losers {
		byTicker[l.Ticker] = l
	}

	added := 0
	for _, ticker := range tickers {
		if _, ok := tracked[ticker]; ok {
			continue
		}

		loser, ok := byTicker[ticker]
		if !ok {
			s.logger.WithField("ticker", ticker).Warn("Ticker not in current ranking, not tracking")
			continue
		}

		entries = append(entries, Entry{
			Ticker:     loser.Ticker,
			Name:       loser.Name,
			StartDate:  time.Now().Format("2006-01-02"),
			StartPrice: loser.PrevClose,
		})
		tracked[ticker] = struct{}{}
		added++
	}

	if added == 0 {
		return nil
	}

	if err := s.save(entries); err != nil {
		return err
	}

	s.logger.WithField("added", added).Info("Tracked new watchlist entries")
	return nil
}

// Remove untracks a ticker. Removing a ticker that is not tracked is a no-op.
func (s *Store) Remove(ticker string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()

	kept := entries[:0]
	for _, e := range entries {
		if e.Ticker != ticker {
			kept = append(kept, e)
		}
	}

	if len(kept) == len(entries) {
		return nil
	}

	if err := s.save(kept); err != nil {
		return err
	}

	s.logger.WithField("ticker", ticker).Info("Untracked watchlist entry")
	return nil
}
