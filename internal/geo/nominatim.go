package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"

	"github.com/ptarver/homedash/internal/fetch"
)

// NominatimGeocoder is the secondary geocoding source (OpenStreetMap).
// Nominatim requires an identifying User-Agent; the shared fetch client
// supplies one.
type NominatimGeocoder struct {
	name    string
	baseURL string
	client  *fetch.Client
	circuit *gobreaker.CircuitBreaker
}

// NominatimOption customizes a NominatimGeocoder.
type NominatimOption func(*NominatimGeocoder)

// WithNominatimBaseURL overrides the search endpoint (used in tests).
func WithNominatimBaseURL(u string) NominatimOption {
	return func(g *NominatimGeocoder) { g.baseURL = u }
}

func NewNominatimGeocoder(client *fetch.Client, opts ...NominatimOption) *NominatimGeocoder {
	g := &NominatimGeocoder{
		name:    "nominatim",
		baseURL: "https://nominatim.openstreetmap.org/search",
		client:  client,
		circuit: fetch.NewBreaker("geo-nominatim"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *NominatimGeocoder) Name() string {
	return g.name
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, query string) (Coordinate, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("q", query)
		values.Set("format", "json")
		values.Set("limit", "1")
		values.Set("addressdetails", "1")

		u := fmt.Sprintf("%s?%s", g.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := g.client.Do(ctx, g.circuit, buildRequest)
	if err != nil {
		return Coordinate{}, err
	}
	defer resp.Body.Close()

	// Nominatim returns lat/lon as strings.
	var payload []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Coordinate{}, err
	}
	if len(payload) == 0 {
		return Coordinate{}, fmt.Errorf("%w: no matches for %q", fetch.ErrEmptyResult, query)
	}

	first := payload[0]
	lat, err := strconv.ParseFloat(first.Lat, 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("parse lat: %w", err)
	}
	lon, err := strconv.ParseFloat(first.Lon, 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("parse lon: %w", err)
	}

	return Coordinate{
		Lat:         lat,
		Lon:         lon,
		DisplayName: first.DisplayName,
		Source:      SourceNominatim,
	}, nil
}
