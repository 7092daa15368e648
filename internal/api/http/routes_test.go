package httpapi_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	httpapi "github.com/ptarver/homedash/internal/api/http"
	"github.com/ptarver/homedash/internal/cache"
	"github.com/ptarver/homedash/internal/dashboard"
	"github.com/ptarver/homedash/internal/fetch"
	"github.com/ptarver/homedash/internal/geo"
	"github.com/ptarver/homedash/internal/quote"
	"github.com/ptarver/homedash/internal/store"
	"github.com/ptarver/homedash/internal/weather"
)

const geoBody = `{"results":[{"latitude":38.7907,"longitude":-121.2358,"name":"Rocklin","admin1":"California","country":"United States"}]}`

const weatherBody = `{
	"current":{"time":"2025-03-03T14:30","temperature_2m":61.3,"wind_speed_10m":7.2,"weather_code":2},
	"daily":{
		"time":["2025-03-03","2025-03-04","2025-03-05"],
		"weather_code":[2,61,0],
		"temperature_2m_max":[65.1,58.2,66.0],
		"temperature_2m_min":[44.0,41.3,42.8],
		"precipitation_probability_max":[10,85,0]
	}
}`

const chartBody = `{"chart":{"result":[{
	"timestamp":[1741014000,1741014060],
	"indicators":{"quote":[{"close":[187.1,187.4]}]}
}]}}`

const snapshotBody = `{"quoteResponse":{"result":[{
	"regularMarketPrice":187.4,"regularMarketTime":1741014060,"marketState":"REGULAR"
}]}}`

type fixture struct {
	app      *fiber.App
	store    *store.FileStore
	geoCalls atomic.Int32
}

// newFixture wires the full handler stack against stub provider servers.
func newFixture(t *testing.T, geoPayload string) *fixture {
	t.Helper()
	f := &fixture{}

	geoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.geoCalls.Add(1)
		w.Write([]byte(geoPayload))
	}))
	t.Cleanup(geoSrv.Close)

	nominatimSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(nominatimSrv.Close)

	weatherSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(weatherBody))
	}))
	t.Cleanup(weatherSrv.Close)

	yahooSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v8/finance/chart/") {
			w.Write([]byte(chartBody))
			return
		}
		w.Write([]byte(snapshotBody))
	}))
	t.Cleanup(yahooSrv.Close)

	client := fetch.New(2 * time.Second)
	locations := geo.NewResolver(
		geo.NewOpenMeteoGeocoder(client, geo.WithOpenMeteoBaseURL(geoSrv.URL)),
		geo.NewNominatimGeocoder(client, geo.WithNominatimBaseURL(nominatimSrv.URL)),
	)
	reader := weather.NewReader(client, weather.WithBaseURL(weatherSrv.URL))
	quotes := quote.NewResolver(quote.NewYahooClient(client, quote.WithYahooBaseURL(yahooSrv.URL)))

	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	f.store = st

	service := dashboard.New(locations, reader, quotes, cache.New(), time.Minute, time.Hour)

	f.app = fiber.New()
	httpapi.RegisterRoutes(f.app, service, st)
	return f
}

func (f *fixture) do(t *testing.T, method, target, body string) *http.Response {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestGetWeather_DefaultsFromSettings(t *testing.T) {
	f := newFixture(t, geoBody)

	resp := f.do(t, http.MethodGet, "/api/v1/weather", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	section := decode[dashboard.WeatherSection](t, resp)
	require.Equal(t, "F", section.Report.Units)
	require.Len(t, section.Report.Forecast, 3)
	require.False(t, section.Stale)
	require.Equal(t, geo.SourceOpenMeteo, section.Report.Coord.Source)
}

func TestGetWeather_UnknownCity_NotFound(t *testing.T) {
	f := newFixture(t, `{"results":[]}`)

	resp := f.do(t, http.MethodGet, "/api/v1/weather?city=Atlantis", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetWeather_LatWithoutLon_BadRequest(t *testing.T) {
	f := newFixture(t, geoBody)

	resp := f.do(t, http.MethodGet, "/api/v1/weather?lat=38.79", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetWeather_InvalidUnits_BadRequest(t *testing.T) {
	f := newFixture(t, geoBody)

	resp := f.do(t, http.MethodGet, "/api/v1/weather?units=K", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetWeather_ManualCoordinates_SkipGeocoding(t *testing.T) {
	f := newFixture(t, geoBody)

	resp := f.do(t, http.MethodGet, "/api/v1/weather?lat=38.79&lon=-121.23", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	section := decode[dashboard.WeatherSection](t, resp)
	require.Equal(t, geo.SourceManual, section.Report.Coord.Source)
	require.Zero(t, f.geoCalls.Load())
}

func TestGetQuotes_MissingSymbols_BadRequest(t *testing.T) {
	f := newFixture(t, geoBody)

	resp := f.do(t, http.MethodGet, "/api/v1/quotes", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/v1/quotes?symbols=,%20,", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetQuotes_NormalizesSymbols(t *testing.T) {
	f := newFixture(t, geoBody)

	resp := f.do(t, http.MethodGet, "/api/v1/quotes?symbols=aapl,%20msft", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decode[struct {
		Quotes []dashboard.QuoteResult `json:"quotes"`
	}](t, resp)
	require.Len(t, payload.Quotes, 2)
	require.Equal(t, "AAPL", payload.Quotes[0].Symbol)
	require.Equal(t, "MSFT", payload.Quotes[1].Symbol)
	require.NotNil(t, payload.Quotes[0].Quote)
	require.Equal(t, quote.Interval1m, payload.Quotes[0].Quote.Interval)
	require.Equal(t, 187.4, payload.Quotes[0].Quote.Price)
}

func TestResolveLocation(t *testing.T) {
	f := newFixture(t, geoBody)

	resp := f.do(t, http.MethodGet, "/api/v1/location/resolve", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/v1/location/resolve?q=Rocklin,%20CA", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	coord := decode[geo.Coordinate](t, resp)
	require.Equal(t, 38.7907, coord.Lat)
	require.Equal(t, "Rocklin, California, United States", coord.DisplayName)
}

func TestGetDashboard(t *testing.T) {
	f := newFixture(t, geoBody)

	resp := f.do(t, http.MethodGet, "/api/v1/dashboard", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decode[struct {
		Clock struct {
			Date     string `json:"date"`
			Time     string `json:"time"`
			Timezone string `json:"timezone"`
		} `json:"clock"`
		WeatherOK bool                    `json:"weather_available"`
		Quotes    []dashboard.QuoteResult `json:"quotes"`
		Settings  store.Settings          `json:"settings"`
	}](t, resp)

	require.True(t, payload.WeatherOK)
	require.NotEmpty(t, payload.Clock.Date)
	require.Equal(t, "America/Los_Angeles", payload.Clock.Timezone)
	require.Len(t, payload.Quotes, 3)
	require.Equal(t, "Rocklin, CA", payload.Settings.City)
}

func TestReminders_EndToEnd(t *testing.T) {
	f := newFixture(t, geoBody)

	resp := f.do(t, http.MethodPost, "/api/v1/reminders", `{"text":"dentist","due":"not-a-date"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/v1/reminders", `{"text":"   ","due":"2026-09-01"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/v1/reminders", `{"text":"dentist","due":"2026-09-01"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[store.Reminder](t, resp)
	require.NotEmpty(t, created.ID)

	resp = f.do(t, http.MethodGet, "/api/v1/reminders", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	payload := decode[struct {
		Reminders []store.Reminder `json:"reminders"`
	}](t, resp)
	require.Len(t, payload.Reminders, 1)

	resp = f.do(t, http.MethodGet, "/api/v1/reminders?range=bogus", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, "/api/v1/reminders/does-not-exist", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, "/api/v1/reminders/"+created.ID, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestReminders_Export(t *testing.T) {
	f := newFixture(t, geoBody)

	resp := f.do(t, http.MethodPost, "/api/v1/reminders", `{"text":"water plants","due":"2026-08-24"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodGet, "/api/v1/reminders/export", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	require.Contains(t, resp.Header.Get("Content-Disposition"), "reminders.csv")

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(body), "text,due,created\n"))
	require.Contains(t, string(body), "water plants,2026-08-24,")
}

func TestFavorites_EndToEnd(t *testing.T) {
	f := newFixture(t, geoBody)

	resp := f.do(t, http.MethodPost, "/api/v1/favorites", `{"name":"news","url":"not a url"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/v1/favorites", `{"name":"news","url":"https://news.ycombinator.com"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodGet, "/api/v1/favorites", "")
	payload := decode[struct {
		Favorites []store.Favorite `json:"favorites"`
	}](t, resp)
	require.Len(t, payload.Favorites, 1)
	require.Equal(t, "news", payload.Favorites[0].Name)

	resp = f.do(t, http.MethodDelete, "/api/v1/favorites/abc", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, "/api/v1/favorites/0", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, "/api/v1/favorites/0", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSettings_UpdateAndGet(t *testing.T) {
	f := newFixture(t, geoBody)

	resp := f.do(t, http.MethodPut, "/api/v1/settings",
		`{"city":"Paris","units":"C","tickers":["A","B","C","D"],"timezone":"Europe/Paris"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, "more than three tickers")

	resp = f.do(t, http.MethodPut, "/api/v1/settings",
		`{"city":"Paris","units":"C","tickers":["TSLA"],"timezone":"Not/AZone"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, "unknown timezone")

	resp = f.do(t, http.MethodPut, "/api/v1/settings",
		`{"city":"Paris","units":"C","tickers":["tsla"],"timezone":"Europe/Paris","dark_mode":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	saved := decode[store.Settings](t, resp)
	require.Equal(t, []string{"TSLA"}, saved.Tickers, "tickers are uppercased")

	resp = f.do(t, http.MethodGet, "/api/v1/settings", "")
	got := decode[store.Settings](t, resp)
	require.Equal(t, "Paris", got.City)
	require.True(t, got.DarkMode)
}
