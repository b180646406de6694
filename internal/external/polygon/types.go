package polygon

// ReferenceTicker is one listing record from the reference tickers endpoint
type ReferenceTicker struct {
	Ticker          string `json:"ticker"`
	Name            string `json:"name"`
	PrimaryExchange string `json:"primary_exchange"`
}

// tickersResponse is one page of the reference tickers endpoint
type tickersResponse struct {
	Results []ReferenceTicker `json:"results"`
	NextURL string            `json:"next_url"`
}

// SnapshotTicker is one per-ticker quote from the full market snapshot.
// Absent prices decode as zero; zero means "no usable value" everywhere
// downstream, matching how the API omits fields outside trading hours.
type SnapshotTicker struct {
	Ticker    string        `json:"ticker"`
	LastTrade SnapshotTrade `json:"lastTrade"`
	Day       SnapshotDay   `json:"day"`
	PrevDay   SnapshotDay   `json:"prevDay"`
}

// SnapshotTrade holds the most recent trade of a snapshot ticker
type SnapshotTrade struct {
	Price float64 `json:"p"`
}

// SnapshotDay holds a daily OHLC summary of a snapshot ticker
type SnapshotDay struct {
	Open  float64 `json:"o"`
	Close float64 `json:"c"`
}

// snapshotResponse is the full market snapshot envelope
type snapshotResponse struct {
	Tickers []SnapshotTicker `json:"tickers"`
}

// aggsResponse is the daily aggregates envelope
type aggsResponse struct {
	Results []AggBar `json:"results"`
}

// AggBar is one daily OHLC bar from the aggregates endpoint
type AggBar struct {
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Close     float64 `json:"c"`
	Volume    float64 `json:"v"`
	Timestamp int64   `json:"t"` // Unix millis of the bar's start
}
