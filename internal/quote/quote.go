package quote

import (
	"context"
	"errors"
	"time"
)

// Interval identifies which fallback tier produced a quote.
type Interval string

const (
	Interval1m       Interval = "1m"
	Interval5m       Interval = "5m"
	Interval15m      Interval = "15m"
	IntervalDaily    Interval = "daily"
	IntervalSnapshot Interval = "snapshot"
)

// MarketState is the venue state at query time.
type MarketState string

const (
	MarketOpen   MarketState = "open"
	MarketPre    MarketState = "pre"
	MarketPost   MarketState = "post"
	MarketClosed MarketState = "closed"
)

// Quote is the normalized result of one price lookup. Stale is set by the
// caller when the value was served from cache past the refresh window.
type Quote struct {
	Symbol      string      `json:"symbol"`
	Price       float64     `json:"price"`
	AsOf        time.Time   `json:"as_of"`
	Interval    Interval    `json:"interval_used"`
	MarketState MarketState `json:"market_state"`
	Stale       bool        `json:"is_stale"`
}

// Bar is a single sampled close, intraday or daily.
type Bar struct {
	Time  time.Time
	Close float64
}

// Snapshot is a provider's last-price view, including the extended-hours
// fields used when the exchange is not in a regular session. Timestamps may
// be zero when the provider omits them.
type Snapshot struct {
	Price       float64
	Time        time.Time
	MarketState MarketState
	PrePrice    float64
	PreTime     time.Time
	PostPrice   float64
	PostTime    time.Time
}

// MarketData abstracts the market-data backend the resolver draws from.
type MarketData interface {
	Name() string
	Intraday(ctx context.Context, symbol string, interval Interval) ([]Bar, error)
	DailyClose(ctx context.Context, symbol string) (Bar, error)
	Snapshot(ctx context.Context, symbol string) (Snapshot, error)
}

// ErrUnavailable is returned only when every fallback tier has failed.
// Stale-cache fallback is layered on top by the cache gate, so a caller going
// through the gate sees this error only when no cached value exists either.
var ErrUnavailable = errors.New("quote unavailable")
