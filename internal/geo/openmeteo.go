package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/ptarver/homedash/internal/fetch"
)

// OpenMeteoGeocoder is the primary geocoding source. It is keyless and fast.
type OpenMeteoGeocoder struct {
	name    string
	baseURL string
	client  *fetch.Client
	circuit *gobreaker.CircuitBreaker
}

// OpenMeteoOption customizes an OpenMeteoGeocoder.
type OpenMeteoOption func(*OpenMeteoGeocoder)

// WithOpenMeteoBaseURL overrides the search endpoint (used in tests).
func WithOpenMeteoBaseURL(u string) OpenMeteoOption {
	return func(g *OpenMeteoGeocoder) { g.baseURL = u }
}

func NewOpenMeteoGeocoder(client *fetch.Client, opts ...OpenMeteoOption) *OpenMeteoGeocoder {
	g := &OpenMeteoGeocoder{
		name:    "open-meteo",
		baseURL: "https://geocoding-api.open-meteo.com/v1/search",
		client:  client,
		circuit: fetch.NewBreaker("geo-openmeteo"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *OpenMeteoGeocoder) Name() string {
	return g.name
}

func (g *OpenMeteoGeocoder) Geocode(ctx context.Context, query string) (Coordinate, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("name", query)
		values.Set("count", "1")
		values.Set("language", "en")

		u := fmt.Sprintf("%s?%s", g.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := g.client.Do(ctx, g.circuit, buildRequest)
	if err != nil {
		return Coordinate{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Results []struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
			Name      string  `json:"name"`
			Admin1    string  `json:"admin1"`
			Country   string  `json:"country"`
		} `json:"results"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Coordinate{}, err
	}
	if len(payload.Results) == 0 {
		return Coordinate{}, fmt.Errorf("%w: no matches for %q", fetch.ErrEmptyResult, query)
	}

	// Disambiguation is provider-defined: take the first match as-is.
	first := payload.Results[0]
	return Coordinate{
		Lat:         first.Latitude,
		Lon:         first.Longitude,
		DisplayName: joinNonEmpty(", ", first.Name, first.Admin1, first.Country),
		Source:      SourceOpenMeteo,
	}, nil
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
