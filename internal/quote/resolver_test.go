package quote_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ptarver/homedash/internal/fetch"
	"github.com/ptarver/homedash/internal/quote"
)

// fakeMarketData scripts each tier's answer.
type fakeMarketData struct {
	intraday    map[quote.Interval][]quote.Bar
	intradayErr map[quote.Interval]error
	daily       quote.Bar
	dailyErr    error
	snap        quote.Snapshot
	snapErr     error

	intradayCalls []quote.Interval
	snapCalls     int
}

func (f *fakeMarketData) Name() string { return "fake" }

func (f *fakeMarketData) Intraday(_ context.Context, _ string, iv quote.Interval) ([]quote.Bar, error) {
	f.intradayCalls = append(f.intradayCalls, iv)
	if err := f.intradayErr[iv]; err != nil {
		return nil, err
	}
	return f.intraday[iv], nil
}

func (f *fakeMarketData) DailyClose(_ context.Context, _ string) (quote.Bar, error) {
	if f.dailyErr != nil {
		return quote.Bar{}, f.dailyErr
	}
	return f.daily, nil
}

func (f *fakeMarketData) Snapshot(_ context.Context, _ string) (quote.Snapshot, error) {
	f.snapCalls++
	if f.snapErr != nil {
		return quote.Snapshot{}, f.snapErr
	}
	return f.snap, nil
}

func bars(ts time.Time, closes ...float64) []quote.Bar {
	out := make([]quote.Bar, 0, len(closes))
	for i, c := range closes {
		out = append(out, quote.Bar{Time: ts.Add(time.Duration(i) * time.Minute), Close: c})
	}
	return out
}

func TestFetch_FirstTierWins(t *testing.T) {
	ts := time.Date(2025, 3, 3, 15, 0, 0, 0, time.UTC)
	md := &fakeMarketData{
		intraday: map[quote.Interval][]quote.Bar{
			quote.Interval1m: bars(ts, 101.0, 101.5),
			quote.Interval5m: bars(ts, 99.0),
		},
		snap: quote.Snapshot{MarketState: quote.MarketOpen},
	}

	q, err := quote.NewResolver(md).Fetch(context.Background(), "aapl")
	require.NoError(t, err)
	require.Equal(t, "AAPL", q.Symbol)
	require.Equal(t, quote.Interval1m, q.Interval)
	require.Equal(t, 101.5, q.Price)
	require.Equal(t, quote.MarketOpen, q.MarketState)
	require.Equal(t, []quote.Interval{quote.Interval1m}, md.intradayCalls)
}

func TestFetch_EmptyOneMinute_FallsTo5m(t *testing.T) {
	ts := time.Date(2025, 3, 3, 15, 0, 0, 0, time.UTC)
	md := &fakeMarketData{
		intraday: map[quote.Interval][]quote.Bar{
			quote.Interval5m:  bars(ts, 55.5),
			quote.Interval15m: bars(ts, 54.0),
		},
		snap: quote.Snapshot{MarketState: quote.MarketOpen},
	}

	q, err := quote.NewResolver(md).Fetch(context.Background(), "XYZ")
	require.NoError(t, err)
	require.Equal(t, quote.Interval5m, q.Interval)
	require.Equal(t, 55.5, q.Price)
	require.Equal(t, []quote.Interval{quote.Interval1m, quote.Interval5m}, md.intradayCalls)
}

func TestFetch_IntradayErrorsFallToDaily(t *testing.T) {
	ts := time.Date(2025, 2, 28, 21, 0, 0, 0, time.UTC)
	md := &fakeMarketData{
		intradayErr: map[quote.Interval]error{
			quote.Interval1m:  errors.New("timeout"),
			quote.Interval5m:  fetch.ErrEmptyResult,
			quote.Interval15m: fetch.ErrEmptyResult,
		},
		daily: quote.Bar{Time: ts, Close: 210.40},
		snap:  quote.Snapshot{MarketState: quote.MarketOpen},
	}

	q, err := quote.NewResolver(md).Fetch(context.Background(), "XYZ")
	require.NoError(t, err)
	require.Equal(t, quote.IntervalDaily, q.Interval)
	require.Equal(t, 210.40, q.Price)
}

func TestFetch_SnapshotTier(t *testing.T) {
	md := &fakeMarketData{
		intradayErr: map[quote.Interval]error{
			quote.Interval1m:  fetch.ErrEmptyResult,
			quote.Interval5m:  fetch.ErrEmptyResult,
			quote.Interval15m: fetch.ErrEmptyResult,
		},
		dailyErr: fetch.ErrEmptyResult,
		snap:     quote.Snapshot{Price: 42.10, MarketState: quote.MarketOpen},
	}

	q, err := quote.NewResolver(md).Fetch(context.Background(), "XYZ")
	require.NoError(t, err)
	require.Equal(t, quote.IntervalSnapshot, q.Interval)
	require.Equal(t, 42.10, q.Price)
	// The snapshot tier's own data also answers the market-state question.
	require.Equal(t, 1, md.snapCalls)
}

func TestFetch_AllTiersFail_Unavailable(t *testing.T) {
	md := &fakeMarketData{
		intradayErr: map[quote.Interval]error{
			quote.Interval1m:  errors.New("down"),
			quote.Interval5m:  errors.New("down"),
			quote.Interval15m: errors.New("down"),
		},
		dailyErr: errors.New("down"),
		snapErr:  errors.New("down"),
	}

	_, err := quote.NewResolver(md).Fetch(context.Background(), "XYZ")
	require.ErrorIs(t, err, quote.ErrUnavailable)
}

func TestFetch_PostMarketOverlay_MoreRecentWins(t *testing.T) {
	regular := time.Date(2025, 3, 3, 21, 0, 0, 0, time.UTC)
	post := regular.Add(2 * time.Hour)
	md := &fakeMarketData{
		intraday: map[quote.Interval][]quote.Bar{
			quote.Interval1m: bars(regular, 100.0),
		},
		snap: quote.Snapshot{
			MarketState: quote.MarketPost,
			PostPrice:   101.2,
			PostTime:    post,
		},
	}

	q, err := quote.NewResolver(md).Fetch(context.Background(), "XYZ")
	require.NoError(t, err)
	require.Equal(t, quote.MarketPost, q.MarketState)
	require.Equal(t, 101.2, q.Price)
	require.Equal(t, post, q.AsOf)
	// The base still came from the 1m tier.
	require.Equal(t, quote.Interval1m, q.Interval)
}

func TestFetch_StaleOverlayNeverBeatsNewerRegularSession(t *testing.T) {
	regular := time.Date(2025, 3, 3, 21, 0, 0, 0, time.UTC)
	md := &fakeMarketData{
		intraday: map[quote.Interval][]quote.Bar{
			quote.Interval1m: bars(regular, 100.0),
		},
		snap: quote.Snapshot{
			MarketState: quote.MarketPost,
			PostPrice:   99.0,
			PostTime:    regular.Add(-3 * time.Hour),
		},
	}

	q, err := quote.NewResolver(md).Fetch(context.Background(), "XYZ")
	require.NoError(t, err)
	require.Equal(t, 100.0, q.Price, "older post-market print must not overlay the regular session")
	require.Equal(t, regular, q.AsOf)
}

func TestFetch_UntimestampedOverlayDoesNotBeatTimestampedBase(t *testing.T) {
	regular := time.Date(2025, 3, 3, 21, 0, 0, 0, time.UTC)
	md := &fakeMarketData{
		intraday: map[quote.Interval][]quote.Bar{
			quote.Interval1m: bars(regular, 100.0),
		},
		snap: quote.Snapshot{
			MarketState: quote.MarketClosed,
			PostPrice:   98.5,
			// No PostTime: assumed less recent than the timestamped base.
		},
	}

	q, err := quote.NewResolver(md).Fetch(context.Background(), "XYZ")
	require.NoError(t, err)
	require.Equal(t, 100.0, q.Price)
	require.Equal(t, quote.MarketClosed, q.MarketState)
}

func TestFetch_PreMarketOverlay(t *testing.T) {
	prevClose := time.Date(2025, 3, 3, 21, 0, 0, 0, time.UTC)
	pre := prevClose.Add(16 * time.Hour)
	md := &fakeMarketData{
		intradayErr: map[quote.Interval]error{
			quote.Interval1m:  fetch.ErrEmptyResult,
			quote.Interval5m:  fetch.ErrEmptyResult,
			quote.Interval15m: fetch.ErrEmptyResult,
		},
		daily: quote.Bar{Time: prevClose, Close: 212.0},
		snap: quote.Snapshot{
			MarketState: quote.MarketPre,
			PrePrice:    214.7,
			PreTime:     pre,
		},
	}

	q, err := quote.NewResolver(md).Fetch(context.Background(), "XYZ")
	require.NoError(t, err)
	require.Equal(t, quote.IntervalDaily, q.Interval)
	require.Equal(t, quote.MarketPre, q.MarketState)
	require.Equal(t, 214.7, q.Price)
}

func TestFetch_SnapshotFailureAfterBase_KeepsBase(t *testing.T) {
	ts := time.Date(2025, 3, 3, 15, 0, 0, 0, time.UTC)
	md := &fakeMarketData{
		intraday: map[quote.Interval][]quote.Bar{
			quote.Interval1m: bars(ts, 100.0),
		},
		snapErr: errors.New("down"),
	}

	q, err := quote.NewResolver(md).Fetch(context.Background(), "XYZ")
	require.NoError(t, err)
	require.Equal(t, 100.0, q.Price)
	require.Equal(t, quote.MarketOpen, q.MarketState)
}
