package httpapi

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ptarver/homedash/internal/dashboard"
	"github.com/ptarver/homedash/internal/geo"
	"github.com/ptarver/homedash/internal/store"
	"github.com/ptarver/homedash/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *dashboard.Service, st *store.FileStore) {
	h := &handlers{service: service, store: st}

	v1 := app.Group("/api/v1")

	v1.Get("/dashboard", h.getDashboard)
	v1.Get("/weather", h.getWeather)
	v1.Get("/quotes", h.getQuotes)
	v1.Get("/location/resolve", h.resolveLocation)

	v1.Get("/reminders", h.listReminders)
	v1.Post("/reminders", h.addReminder)
	v1.Delete("/reminders/:id", h.deleteReminder)
	v1.Get("/reminders/export", h.exportReminders)

	v1.Get("/favorites", h.listFavorites)
	v1.Post("/favorites", h.addFavorite)
	v1.Delete("/favorites/:index", h.deleteFavorite)

	v1.Get("/settings", h.getSettings)
	v1.Put("/settings", h.updateSettings)
}

type handlers struct {
	service *dashboard.Service
	store   *store.FileStore
}

// weatherQuery holds query parameters for the weather endpoint. Supplying
// both lat and lon is the manual coordinate override and skips geocoding.
type weatherQuery struct {
	City  string   `validate:"omitempty"`
	Units string   `validate:"omitempty,oneof=F C"`
	Lat   *float64 `validate:"omitempty,gte=-90,lte=90"`
	Lon   *float64 `validate:"omitempty,gte=-180,lte=180"`
}

func (q *weatherQuery) bind(c *fiber.Ctx) error {
	q.City = c.Query("city")
	q.Units = strings.ToUpper(c.Query("units"))

	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if (latStr == "") != (lonStr == "") {
		return errors.New("lat and lon must be supplied together")
	}
	if latStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return errors.New("invalid lat")
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return errors.New("invalid lon")
		}
		q.Lat, q.Lon = &lat, &lon
	}

	return validate.Struct(q)
}

func (q weatherQuery) manual() *geo.Coordinate {
	if q.Lat == nil || q.Lon == nil {
		return nil
	}
	return &geo.Coordinate{Lat: *q.Lat, Lon: *q.Lon}
}

func (h *handlers) getWeather(c *fiber.Ctx) error {
	var q weatherQuery
	if err := q.bind(c); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	settings := h.store.Settings()
	if q.City == "" {
		q.City = settings.City
	}
	if q.Units == "" {
		q.Units = settings.Units
	}

	section, err := h.service.Weather(c.Context(), q.City, q.manual(), q.Units)
	if err != nil {
		if errors.Is(err, geo.ErrUnresolved) {
			return fiber.NewError(fiber.StatusNotFound, "city not found; try 'City, State/Country' or manual coordinates")
		}
		if errors.Is(err, weather.ErrUnavailable) {
			return fiber.NewError(fiber.StatusBadGateway, "weather service unavailable")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather")
	}
	return c.JSON(section)
}

func (h *handlers) getQuotes(c *fiber.Ctx) error {
	raw := c.Query("symbols")
	if strings.TrimSpace(raw) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "symbols query parameter is required")
	}

	var symbols []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			symbols = append(symbols, s)
		}
	}
	if len(symbols) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "symbols query parameter is required")
	}

	return c.JSON(fiber.Map{"quotes": h.service.Quotes(c.Context(), symbols)})
}

func (h *handlers) resolveLocation(c *fiber.Ctx) error {
	q := c.Query("q")
	if strings.TrimSpace(q) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "q query parameter is required")
	}

	coord, err := h.service.ResolveLocation(c.Context(), q)
	if err != nil {
		if errors.Is(err, geo.ErrUnresolved) {
			return fiber.NewError(fiber.StatusNotFound, "location not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to resolve location")
	}
	return c.JSON(coord)
}

// dashboardResponse is the whole-page payload. Weather and quote sections
// degrade to an unavailable flag instead of failing the request.
type dashboardResponse struct {
	Clock     clockInfo                 `json:"clock"`
	Weather   *dashboard.WeatherSection `json:"weather,omitempty"`
	WeatherOK bool                      `json:"weather_available"`
	Quotes    []dashboard.QuoteResult   `json:"quotes"`
	Settings  store.Settings            `json:"settings"`
}

type clockInfo struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	UTCOffset string `json:"utc_offset"`
	Timezone  string `json:"timezone"`
}

func (h *handlers) getDashboard(c *fiber.Ctx) error {
	settings := h.store.Settings()

	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		loc = time.UTC
	}
	now := time.Now().In(loc)

	resp := dashboardResponse{
		Clock: clockInfo{
			Date:      now.Format("Monday, Jan 02, 2006"),
			Time:      now.Format("03:04 PM"),
			UTCOffset: now.Format("UTC-0700"),
			Timezone:  settings.Timezone,
		},
		Settings: settings,
	}

	if section, err := h.service.Weather(c.Context(), settings.City, nil, settings.Units); err == nil {
		resp.Weather = &section
		resp.WeatherOK = true
	}
	resp.Quotes = h.service.Quotes(c.Context(), settings.Tickers)

	return c.JSON(resp)
}

func (h *handlers) listReminders(c *fiber.Ctx) error {
	var reminders []store.Reminder
	today := time.Now().UTC().Truncate(24 * time.Hour)

	switch c.Query("range", "all") {
	case "today":
		reminders = h.store.RemindersDueBetween(today, today)
	case "week":
		reminders = h.store.RemindersDueBetween(today, today.AddDate(0, 0, 6))
	case "all":
		reminders = h.store.Reminders()
	default:
		return fiber.NewError(fiber.StatusBadRequest, "range must be today, week or all")
	}

	return c.JSON(fiber.Map{"reminders": reminders})
}

type reminderBody struct {
	Text string `json:"text" validate:"required"`
	Due  string `json:"due" validate:"required,datetime=2006-01-02"`
}

func (h *handlers) addReminder(c *fiber.Ctx) error {
	var body reminderBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	body.Text = strings.TrimSpace(body.Text)
	if err := validate.Struct(body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	r, err := h.store.AddReminder(body.Text, body.Due)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to save reminder")
	}
	return c.Status(fiber.StatusCreated).JSON(r)
}

func (h *handlers) deleteReminder(c *fiber.Ctx) error {
	if err := h.store.DeleteReminder(c.Params("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "reminder not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to delete reminder")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) exportReminders(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="reminders.csv"`)
	return h.store.WriteRemindersCSV(c.Response().BodyWriter())
}

func (h *handlers) listFavorites(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"favorites": h.store.Favorites()})
}

type favoriteBody struct {
	Name string `json:"name" validate:"required"`
	URL  string `json:"url" validate:"required,url"`
}

func (h *handlers) addFavorite(c *fiber.Ctx) error {
	var body favoriteBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	body.Name = strings.TrimSpace(body.Name)
	body.URL = strings.TrimSpace(body.URL)
	if err := validate.Struct(body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	f, err := h.store.AddFavorite(body.Name, body.URL)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to save favorite")
	}
	return c.Status(fiber.StatusCreated).JSON(f)
}

func (h *handlers) deleteFavorite(c *fiber.Ctx) error {
	index, err := c.ParamsInt("index")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "index must be an integer")
	}
	if err := h.store.DeleteFavorite(index); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "favorite not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to delete favorite")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) getSettings(c *fiber.Ctx) error {
	return c.JSON(h.store.Settings())
}

type settingsBody struct {
	City     string   `json:"city" validate:"required"`
	Units    string   `json:"units" validate:"required,oneof=F C"`
	Tickers  []string `json:"tickers" validate:"required,max=3,dive,required"`
	Timezone string   `json:"timezone" validate:"required,timezone"`
	DarkMode bool     `json:"dark_mode"`
}

func (h *handlers) updateSettings(c *fiber.Ctx) error {
	var body settingsBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	for i, t := range body.Tickers {
		body.Tickers[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	if err := validate.Struct(body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	settings := store.Settings{
		City:     body.City,
		Units:    body.Units,
		Tickers:  body.Tickers,
		Timezone: body.Timezone,
		DarkMode: body.DarkMode,
	}
	if err := h.store.SaveSettings(settings); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to save settings")
	}
	return c.JSON(settings)
}
