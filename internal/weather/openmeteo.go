package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/ptarver/homedash/internal/fetch"
	"github.com/ptarver/homedash/internal/geo"
)

// ForecastDays is how many days of forecast one fetch requests.
const ForecastDays = 10

// Reader fetches current conditions and the daily forecast from Open-Meteo.
type Reader struct {
	baseURL string
	client  *fetch.Client
	circuit *gobreaker.CircuitBreaker
}

// ReaderOption customizes a Reader.
type ReaderOption func(*Reader)

// WithBaseURL overrides the forecast endpoint (used in tests).
func WithBaseURL(u string) ReaderOption {
	return func(r *Reader) { r.baseURL = u }
}

func NewReader(client *fetch.Client, opts ...ReaderOption) *Reader {
	r := &Reader{
		baseURL: "https://api.open-meteo.com/v1/forecast",
		client:  client,
		circuit: fetch.NewBreaker("weather-openmeteo"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fetch retrieves current conditions plus the 10-day forecast for coord.
// units is "F" or "C" and selects both temperature and wind-speed units.
func (r *Reader) Fetch(ctx context.Context, coord geo.Coordinate, units string) (Report, error) {
	fahrenheit := strings.EqualFold(units, "F")

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", coord.Lat))
		values.Set("longitude", fmt.Sprintf("%f", coord.Lon))
		values.Set("current", "temperature_2m,wind_speed_10m,weather_code")
		values.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,precipitation_probability_max")
		values.Set("timezone", "auto")
		values.Set("forecast_days", fmt.Sprintf("%d", ForecastDays))
		if fahrenheit {
			values.Set("temperature_unit", "fahrenheit")
			values.Set("windspeed_unit", "mph")
		} else {
			values.Set("temperature_unit", "celsius")
			values.Set("windspeed_unit", "kmh")
		}

		u := fmt.Sprintf("%s?%s", r.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := r.client.Do(ctx, r.circuit, buildRequest)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var payload struct {
		Current struct {
			Time        string  `json:"time"`
			Temperature float64 `json:"temperature_2m"`
			WindSpeed   float64 `json:"wind_speed_10m"`
			WeatherCode int     `json:"weather_code"`
		} `json:"current"`
		Daily struct {
			Time        []string   `json:"time"`
			WeatherCode []int      `json:"weather_code"`
			TempMax     []float64  `json:"temperature_2m_max"`
			TempMin     []float64  `json:"temperature_2m_min"`
			PrecipProb  []*float64 `json:"precipitation_probability_max"`
		} `json:"daily"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Report{}, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if payload.Current.Time == "" && len(payload.Daily.Time) == 0 {
		return Report{}, fmt.Errorf("%w: %v", ErrUnavailable, fetch.ErrEmptyResult)
	}

	curTime, err := time.Parse("2006-01-02T15:04", payload.Current.Time)
	if err != nil {
		curTime = time.Now().UTC()
	}

	unitLabel := "C"
	if fahrenheit {
		unitLabel = "F"
	}

	report := Report{
		Coord: coord,
		Units: unitLabel,
		Current: Current{
			Time:        curTime,
			Temperature: payload.Current.Temperature,
			WindSpeed:   payload.Current.WindSpeed,
			Code:        payload.Current.WeatherCode,
			Label:       CodeLabel(payload.Current.WeatherCode),
			Icon:        CodeIcon(payload.Current.WeatherCode),
			Condition:   CodeCondition(payload.Current.WeatherCode),
		},
	}

	for i, date := range payload.Daily.Time {
		day := ForecastDay{Date: date}
		if i < len(payload.Daily.WeatherCode) {
			day.Code = payload.Daily.WeatherCode[i]
		}
		if i < len(payload.Daily.TempMax) {
			day.TempMax = payload.Daily.TempMax[i]
		}
		if i < len(payload.Daily.TempMin) {
			day.TempMin = payload.Daily.TempMin[i]
		}
		if i < len(payload.Daily.PrecipProb) {
			day.PrecipProb = payload.Daily.PrecipProb[i]
		}
		day.Label = CodeLabel(day.Code)
		day.Icon = CodeIcon(day.Code)
		day.Condition = CodeCondition(day.Code)
		report.Forecast = append(report.Forecast, day)
	}

	return report, nil
}
