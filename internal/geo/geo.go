package geo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// Source identifies which link of the geocoding chain produced a coordinate.
type Source string

const (
	SourceOpenMeteo Source = "open-meteo"
	SourceNominatim Source = "nominatim"
	SourceManual    Source = "manual"
)

// Coordinate is the normalized geocoding result. Latitude is in [-90,90],
// longitude in [-180,180].
type Coordinate struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"display_name"`
	Source      Source  `json:"source"`
}

// ErrUnresolved is returned only when every geocoder in the chain failed or
// returned zero matches.
var ErrUnresolved = errors.New("location could not be resolved")

// Geocoder abstracts a single geocoding source.
type Geocoder interface {
	Name() string
	Geocode(ctx context.Context, query string) (Coordinate, error)
}

// Resolver resolves a free-text place into a Coordinate by trying an ordered
// chain of geocoders. The chain exits at the first success; partial results
// from different sources are never merged.
type Resolver struct {
	chain []Geocoder
}

// NewResolver creates a Resolver over the given geocoders, tried in order.
func NewResolver(chain ...Geocoder) *Resolver {
	return &Resolver{chain: chain}
}

// Resolve turns query into a Coordinate. A non-nil manual override wins
// immediately and causes no network call. Each chain failure (transport
// error, timeout, or empty match list) advances to the next geocoder.
func (r *Resolver) Resolve(ctx context.Context, query string, manual *Coordinate) (Coordinate, error) {
	if manual != nil {
		c := *manual
		c.Source = SourceManual
		if c.DisplayName == "" {
			c.DisplayName = fmt.Sprintf("%.4f, %.4f", c.Lat, c.Lon)
		}
		return c, nil
	}

	cleaned := SanitizeQuery(query)
	if cleaned == "" {
		return Coordinate{}, fmt.Errorf("%w: empty query", ErrUnresolved)
	}

	for _, g := range r.chain {
		c, err := g.Geocode(ctx, cleaned)
		if err != nil {
			log.Printf("geocoder %s failed for %q: %v", g.Name(), cleaned, err)
			continue
		}
		return c, nil
	}

	return Coordinate{}, fmt.Errorf("%w: %q", ErrUnresolved, query)
}

// SanitizeQuery cleans a user-entered place so geocoders are happier:
// slashes become a comma+space, runs of whitespace collapse, and the result
// is trimmed.
func SanitizeQuery(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "/", ", ")
	return strings.Join(strings.Fields(s), " ")
}
