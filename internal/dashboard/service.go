// Package dashboard orchestrates the resolver pipelines behind the cache
// gate. All reads from handlers and the refresh scheduler go through here, so
// the configured TTLs are the only thing deciding when network calls happen.
package dashboard

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ptarver/homedash/internal/cache"
	"github.com/ptarver/homedash/internal/geo"
	"github.com/ptarver/homedash/internal/quote"
	"github.com/ptarver/homedash/internal/weather"
)

// Service holds the resolvers and the shared result cache.
type Service struct {
	locations *geo.Resolver
	reader    *weather.Reader
	quotes    *quote.Resolver
	cache     *cache.Cache

	// refreshTTL gates weather and quote fetches; geoTTL gates geocoding,
	// which changes far less often.
	refreshTTL time.Duration
	geoTTL     time.Duration
}

func New(locations *geo.Resolver, reader *weather.Reader, quotes *quote.Resolver, c *cache.Cache, refreshTTL, geoTTL time.Duration) *Service {
	return &Service{
		locations:  locations,
		reader:     reader,
		quotes:     quotes,
		cache:      c,
		refreshTTL: refreshTTL,
		geoTTL:     geoTTL,
	}
}

// WeatherSection is the weather block handed to the UI, with a staleness
// indicator for conditional display.
type WeatherSection struct {
	Report weather.Report `json:"report"`
	Stale  bool           `json:"is_stale"`
}

// Weather resolves the location (manual override wins and skips the network)
// and fetches conditions plus the forecast for it, both through the cache.
func (s *Service) Weather(ctx context.Context, query string, manual *geo.Coordinate, units string) (WeatherSection, error) {
	var coord geo.Coordinate
	var coordStale bool
	var err error

	if manual != nil {
		coord, err = s.locations.Resolve(ctx, "", manual)
	} else {
		key := "geo:" + geo.SanitizeQuery(query)
		coord, coordStale, err = cache.GetOrFetch(ctx, s.cache, key, s.geoTTL, func(ctx context.Context) (geo.Coordinate, error) {
			return s.locations.Resolve(ctx, query, nil)
		})
	}
	if err != nil {
		return WeatherSection{}, err
	}

	key := fmt.Sprintf("weather:%.4f,%.4f,%s", coord.Lat, coord.Lon, units)
	report, stale, err := cache.GetOrFetch(ctx, s.cache, key, s.refreshTTL, func(ctx context.Context) (weather.Report, error) {
		return s.reader.Fetch(ctx, coord, units)
	})
	if err != nil {
		return WeatherSection{}, err
	}
	return WeatherSection{Report: report, Stale: stale || coordStale}, nil
}

// ResolveLocation resolves a free-text place through the cache, for the
// "test this location" endpoint.
func (s *Service) ResolveLocation(ctx context.Context, query string) (geo.Coordinate, error) {
	key := "geo:" + geo.SanitizeQuery(query)
	coord, _, err := cache.GetOrFetch(ctx, s.cache, key, s.geoTTL, func(ctx context.Context) (geo.Coordinate, error) {
		return s.locations.Resolve(ctx, query, nil)
	})
	return coord, err
}

// Quote fetches one symbol through the cache. A stale cached value is
// returned flagged rather than hidden when every tier fails.
func (s *Service) Quote(ctx context.Context, symbol string) (quote.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	q, stale, err := cache.GetOrFetch(ctx, s.cache, "quote:"+symbol, s.refreshTTL, func(ctx context.Context) (quote.Quote, error) {
		return s.quotes.Fetch(ctx, symbol)
	})
	if err != nil {
		return quote.Quote{}, err
	}
	q.Stale = stale
	return q, nil
}

// QuoteResult pairs a symbol with either its quote or a terminal error, so
// one dead ticker never hides the others.
type QuoteResult struct {
	Symbol string       `json:"symbol"`
	Quote  *quote.Quote `json:"quote,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// Quotes fetches each symbol sequentially, collecting per-symbol outcomes.
func (s *Service) Quotes(ctx context.Context, symbols []string) []QuoteResult {
	out := make([]QuoteResult, 0, len(symbols))
	for _, sym := range symbols {
		q, err := s.Quote(ctx, sym)
		if err != nil {
			out = append(out, QuoteResult{Symbol: sym, Error: err.Error()})
			continue
		}
		out = append(out, QuoteResult{Symbol: sym, Quote: &q})
	}
	return out
}

// Refresh warms the caches for the configured city and tickers. Failures are
// logged, not surfaced: the next tick will try again.
func (s *Service) Refresh(ctx context.Context, city string, units string, symbols []string) {
	if _, err := s.Weather(ctx, city, nil, units); err != nil {
		log.Printf("refresh: weather for %q failed: %v", city, err)
	}
	for _, r := range s.Quotes(ctx, symbols) {
		if r.Error != "" {
			log.Printf("refresh: quote for %s failed: %s", r.Symbol, r.Error)
		}
	}
}
