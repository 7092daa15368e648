package quote

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// intradayTiers is the strict order of intraday sampling intervals tried
// before falling back to daily history and the last-price snapshot.
var intradayTiers = []Interval{Interval1m, Interval5m, Interval15m}

// Resolver retrieves a current or near-current quote through an ordered chain
// of progressively coarser tiers. Every tier failure is caught and converted
// into "advance to the next tier"; only full exhaustion surfaces an error.
type Resolver struct {
	md MarketData
}

func NewResolver(md MarketData) *Resolver {
	return &Resolver{md: md}
}

// Fetch resolves one symbol. After a base price is obtained, the snapshot's
// pre/post-market fields may overlay price and market state, but never
// overwrite a more recent regular-session result.
func (r *Resolver) Fetch(ctx context.Context, symbol string) (Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return Quote{}, fmt.Errorf("%w: empty symbol", ErrUnavailable)
	}

	q, snap, err := r.base(ctx, symbol)
	if err != nil {
		return Quote{}, err
	}

	if snap == nil {
		// Base came from an intraday or daily tier; ask the snapshot for the
		// market state. A snapshot failure here is not fatal: the base price
		// stands and the market is assumed open.
		s, serr := r.md.Snapshot(ctx, symbol)
		if serr != nil {
			log.Printf("quote %s: snapshot for market state failed: %v", symbol, serr)
			q.MarketState = MarketOpen
			return q, nil
		}
		snap = &s
	}

	q.MarketState = snap.MarketState
	if q.MarketState == "" {
		q.MarketState = MarketOpen
	}
	if q.MarketState != MarketOpen {
		q = overlayExtendedHours(q, *snap)
	}
	return q, nil
}

// base walks the tier chain and returns the first success. The returned
// *Snapshot is non-nil only when the snapshot tier itself supplied the price.
func (r *Resolver) base(ctx context.Context, symbol string) (Quote, *Snapshot, error) {
	for _, iv := range intradayTiers {
		bars, err := r.md.Intraday(ctx, symbol, iv)
		if err != nil {
			log.Printf("quote %s: %s tier failed: %v", symbol, iv, err)
			continue
		}
		if len(bars) == 0 {
			log.Printf("quote %s: %s tier returned no bars", symbol, iv)
			continue
		}
		last := bars[len(bars)-1]
		return Quote{Symbol: symbol, Price: last.Close, AsOf: last.Time, Interval: iv}, nil, nil
	}

	if bar, err := r.md.DailyClose(ctx, symbol); err == nil {
		return Quote{Symbol: symbol, Price: bar.Close, AsOf: bar.Time, Interval: IntervalDaily}, nil, nil
	} else {
		log.Printf("quote %s: daily tier failed: %v", symbol, err)
	}

	if snap, err := r.md.Snapshot(ctx, symbol); err == nil && snap.Price > 0 {
		q := Quote{Symbol: symbol, Price: snap.Price, AsOf: snap.Time, Interval: IntervalSnapshot}
		return q, &snap, nil
	} else if err != nil {
		log.Printf("quote %s: snapshot tier failed: %v", symbol, err)
	}

	return Quote{}, nil, fmt.Errorf("%w: %s", ErrUnavailable, symbol)
}

// overlayExtendedHours applies the pre/post-market price matching the current
// market state. "More recent" is decided by the provider timestamp; an absent
// timestamp is assumed less recent than a timestamped regular-session price
// and never overlays it.
func overlayExtendedHours(q Quote, snap Snapshot) Quote {
	var price float64
	var ts time.Time
	var state MarketState

	switch snap.MarketState {
	case MarketPre:
		price, ts, state = snap.PrePrice, snap.PreTime, MarketPre
	case MarketPost:
		price, ts, state = snap.PostPrice, snap.PostTime, MarketPost
	case MarketClosed:
		// After hours the post-market print is the freshest candidate.
		price, ts, state = snap.PostPrice, snap.PostTime, MarketPost
	default:
		return q
	}

	if price <= 0 {
		return q
	}
	if ts.IsZero() {
		if q.AsOf.IsZero() {
			q.Price = price
			q.MarketState = state
		}
		return q
	}
	if q.AsOf.IsZero() || ts.After(q.AsOf) {
		q.Price = price
		q.AsOf = ts
		q.MarketState = state
	}
	return q
}
