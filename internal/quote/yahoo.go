package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/ptarver/homedash/internal/fetch"
)

// chartRanges maps an intraday interval to the chart range requested for it.
var chartRanges = map[Interval]string{
	Interval1m:  "1d",
	Interval5m:  "1d",
	Interval15m: "1d",
}

// YahooClient implements MarketData against the Yahoo Finance chart and quote
// endpoints. Quotes are delayed; that is acceptable here.
type YahooClient struct {
	name     string
	chartURL string
	quoteURL string
	client   *fetch.Client
	circuit  *gobreaker.CircuitBreaker
}

// YahooOption customizes a YahooClient.
type YahooOption func(*YahooClient)

// WithYahooBaseURL points both endpoints at the given base (used in tests):
// base+"/v8/finance/chart" and base+"/v7/finance/quote".
func WithYahooBaseURL(base string) YahooOption {
	return func(c *YahooClient) {
		c.chartURL = base + "/v8/finance/chart"
		c.quoteURL = base + "/v7/finance/quote"
	}
}

func NewYahooClient(client *fetch.Client, opts ...YahooOption) *YahooClient {
	c := &YahooClient{
		name:     "yahoo",
		chartURL: "https://query1.finance.yahoo.com/v8/finance/chart",
		quoteURL: "https://query1.finance.yahoo.com/v7/finance/quote",
		client:   client,
		circuit:  fetch.NewBreaker("quote-yahoo"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *YahooClient) Name() string {
	return c.name
}

// Intraday returns the close series for one trading day at the given
// interval. Null closes are skipped.
func (c *YahooClient) Intraday(ctx context.Context, symbol string, interval Interval) ([]Bar, error) {
	rng, ok := chartRanges[interval]
	if !ok {
		return nil, fmt.Errorf("unsupported intraday interval %q", interval)
	}
	return c.chart(ctx, symbol, rng, string(interval))
}

// DailyClose returns the most recent daily close.
func (c *YahooClient) DailyClose(ctx context.Context, symbol string) (Bar, error) {
	bars, err := c.chart(ctx, symbol, "5d", "1d")
	if err != nil {
		return Bar{}, err
	}
	return bars[len(bars)-1], nil
}

func (c *YahooClient) chart(ctx context.Context, symbol, rng, interval string) ([]Bar, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("range", rng)
		values.Set("interval", interval)

		u := fmt.Sprintf("%s/%s?%s", c.chartURL, url.PathEscape(symbol), values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := c.client.Do(ctx, c.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Chart struct {
			Result []struct {
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Close []*float64 `json:"close"`
					} `json:"quote"`
				} `json:"indicators"`
			} `json:"result"`
		} `json:"chart"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if len(payload.Chart.Result) == 0 || len(payload.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: no chart data for %s", fetch.ErrEmptyResult, symbol)
	}

	result := payload.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close

	var bars []Bar
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		bars = append(bars, Bar{Time: time.Unix(ts, 0).UTC(), Close: *closes[i]})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no usable bars for %s", fetch.ErrEmptyResult, symbol)
	}
	return bars, nil
}

// Snapshot returns the provider's last-price view with extended-hours fields.
func (c *YahooClient) Snapshot(ctx context.Context, symbol string) (Snapshot, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("symbols", symbol)

		u := fmt.Sprintf("%s?%s", c.quoteURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := c.client.Do(ctx, c.circuit, buildRequest)
	if err != nil {
		return Snapshot{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		QuoteResponse struct {
			Result []struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
				MarketState        string  `json:"marketState"`
				PreMarketPrice     float64 `json:"preMarketPrice"`
				PreMarketTime      int64   `json:"preMarketTime"`
				PostMarketPrice    float64 `json:"postMarketPrice"`
				PostMarketTime     int64   `json:"postMarketTime"`
			} `json:"result"`
		} `json:"quoteResponse"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Snapshot{}, err
	}
	if len(payload.QuoteResponse.Result) == 0 {
		return Snapshot{}, fmt.Errorf("%w: no quote for %s", fetch.ErrEmptyResult, symbol)
	}

	r := payload.QuoteResponse.Result[0]
	snap := Snapshot{
		Price:       r.RegularMarketPrice,
		MarketState: mapMarketState(r.MarketState),
		PrePrice:    r.PreMarketPrice,
		PostPrice:   r.PostMarketPrice,
	}
	if r.RegularMarketTime > 0 {
		snap.Time = time.Unix(r.RegularMarketTime, 0).UTC()
	}
	if r.PreMarketTime > 0 {
		snap.PreTime = time.Unix(r.PreMarketTime, 0).UTC()
	}
	if r.PostMarketTime > 0 {
		snap.PostTime = time.Unix(r.PostMarketTime, 0).UTC()
	}
	return snap, nil
}

func mapMarketState(s string) MarketState {
	switch s {
	case "REGULAR":
		return MarketOpen
	case "PRE", "PREPRE":
		return MarketPre
	case "POST":
		return MarketPost
	case "POSTPOST", "CLOSED", "":
		return MarketClosed
	default:
		return MarketClosed
	}
}
