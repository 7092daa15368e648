package weather

import (
	"errors"
	"time"

	"github.com/ptarver/homedash/internal/geo"
)

// Condition is a normalized high-level weather category.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionFog     Condition = "fog"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
)

// ErrUnavailable is returned when the weather provider call fails. There is
// no secondary weather source; only location resolution has a fallback chain.
var ErrUnavailable = errors.New("weather data unavailable")

// Current is the present-moment snapshot.
type Current struct {
	Time        time.Time `json:"time"`
	Temperature float64   `json:"temperature"`
	WindSpeed   float64   `json:"wind_speed"`
	Code        int       `json:"code"`
	Label       string    `json:"label"`
	Icon        string    `json:"icon"`
	Condition   Condition `json:"condition"`
}

// ForecastDay is one day of the forecast sequence.
type ForecastDay struct {
	Date       string    `json:"date"` // YYYY-MM-DD
	TempMin    float64   `json:"temp_min"`
	TempMax    float64   `json:"temp_max"`
	PrecipProb *float64  `json:"precip_prob,omitempty"`
	Code       int       `json:"code"`
	Label      string    `json:"label"`
	Icon       string    `json:"icon"`
	Condition  Condition `json:"condition"`
}

// Report is the full result of one weather fetch. Forecast is regenerated
// wholesale on each successful fetch, never partially updated.
type Report struct {
	Coord    geo.Coordinate `json:"coord"`
	Units    string         `json:"units"` // "F" or "C"
	Current  Current        `json:"current"`
	Forecast []ForecastDay  `json:"forecast"`
}

// codeLabels maps WMO weather codes to human-friendly labels.
var codeLabels = map[int]string{
	0: "Clear sky", 1: "Mainly clear", 2: "Partly cloudy", 3: "Overcast",
	45: "Fog", 48: "Rime fog",
	51: "Light drizzle", 53: "Drizzle", 55: "Heavy drizzle",
	61: "Light rain", 63: "Rain", 65: "Heavy rain",
	71: "Light snow", 73: "Snow", 75: "Heavy snow",
	80: "Rain showers", 81: "Heavy showers", 82: "Violent showers",
	95: "Thunderstorm", 96: "Thunderstorm w/ hail", 99: "Severe thunderstorm/hail",
}

var codeIcons = map[int]string{
	0: "☀️", 1: "🌤️", 2: "⛅", 3: "☁️",
	45: "🌫️", 48: "🌫️",
	51: "🌦️", 53: "🌦️", 55: "🌧️",
	61: "🌧️", 63: "🌧️", 65: "🌧️",
	71: "🌨️", 73: "🌨️", 75: "❄️",
	80: "🌧️", 81: "🌧️", 82: "⛈️",
	95: "⛈️", 96: "⛈️", 99: "⛈️",
}

// CodeLabel returns the display label for a WMO weather code. Unknown codes
// fall back to a neutral label, never an error.
func CodeLabel(code int) string {
	if l, ok := codeLabels[code]; ok {
		return l
	}
	return "Conditions"
}

// CodeIcon returns the display icon for a WMO weather code.
func CodeIcon(code int) string {
	if i, ok := codeIcons[code]; ok {
		return i
	}
	return "🌡️"
}

// CodeCondition maps a WMO weather code onto a normalized Condition.
func CodeCondition(code int) Condition {
	switch {
	case code == 0:
		return ConditionClear
	case code >= 1 && code <= 3:
		return ConditionCloudy
	case code == 45 || code == 48:
		return ConditionFog
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return ConditionRain
	case code >= 71 && code <= 77:
		return ConditionSnow
	case code >= 95:
		return ConditionStorm
	default:
		return ConditionUnknown
	}
}
