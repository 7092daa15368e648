// Package store persists the dashboard's small bits of user state (settings,
// reminders, favorites) as pretty-printed JSON files. Resolver output is
// never persisted here; it lives in the in-process cache only.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a referenced item does not exist.
	ErrNotFound = errors.New("item not found")
)

// Settings are the user's persisted preferences.
type Settings struct {
	City     string   `json:"city"`
	Units    string   `json:"units"` // "F" or "C"
	Tickers  []string `json:"tickers"`
	Timezone string   `json:"timezone"` // IANA name
	DarkMode bool     `json:"dark_mode"`
}

// DefaultSettings returns the first-run defaults.
func DefaultSettings() Settings {
	return Settings{
		City:     "Rocklin, CA",
		Units:    "F",
		Tickers:  []string{"AAPL", "MSFT", "NVDA"},
		Timezone: "America/Los_Angeles",
		DarkMode: false,
	}
}

// Reminder is a dated note. Due is a calendar date (YYYY-MM-DD); Created is
// stamped in UTC to avoid timezone surprises.
type Reminder struct {
	ID      string    `json:"id"`
	Text    string    `json:"text"`
	Due     string    `json:"due"`
	Created time.Time `json:"created"`
}

// Favorite is a named link.
type Favorite struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// FileStore keeps settings, reminders and favorites in memory and mirrors
// every mutation to JSON files under dir.
type FileStore struct {
	dir string

	mu        sync.Mutex
	settings  Settings
	reminders []Reminder
	favorites []Favorite
}

const (
	settingsFile  = "settings.json"
	remindersFile = "reminders.json"
	favoritesFile = "favorites.json"
)

// Open loads existing JSON files from dir, falling back to defaults for any
// file that is missing or unreadable.
func Open(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &FileStore{dir: dir, settings: DefaultSettings()}
	loadJSON(filepath.Join(dir, settingsFile), &s.settings)
	loadJSON(filepath.Join(dir, remindersFile), &s.reminders)
	loadJSON(filepath.Join(dir, favoritesFile), &s.favorites)
	return s, nil
}

// loadJSON decodes path into v, leaving v untouched when the file is missing
// or corrupt.
func loadJSON(path string, v any) {
	b, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("store: could not read %s, using defaults: %v", filepath.Base(path), err)
		}
		return
	}
	if err := json.Unmarshal(b, v); err != nil {
		log.Printf("store: could not parse %s, using defaults: %v", filepath.Base(path), err)
	}
}

// saveJSON writes v as indented JSON via a temp file and rename, so a crash
// mid-write never leaves a truncated file.
func (s *FileStore) saveJSON(name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Settings returns a copy of the current settings.
func (s *FileStore) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.settings
	out.Tickers = append([]string(nil), s.settings.Tickers...)
	return out
}

// SaveSettings replaces and persists the settings.
func (s *FileStore) SaveSettings(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	return s.saveJSON(settingsFile, s.settings)
}

// Reminders returns all reminders sorted by due date.
func (s *FileStore) Reminders() []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]Reminder(nil), s.reminders...)
	sort.Slice(out, func(i, j int) bool { return out[i].Due < out[j].Due })
	return out
}

// AddReminder validates the due date, stamps the reminder and persists it.
func (s *FileStore) AddReminder(text, due string) (Reminder, error) {
	if _, err := time.Parse("2006-01-02", due); err != nil {
		return Reminder{}, fmt.Errorf("invalid due date %q: %w", due, err)
	}
	r := Reminder{
		ID:      uuid.NewString(),
		Text:    text,
		Due:     due,
		Created: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders = append(s.reminders, r)
	if err := s.saveJSON(remindersFile, s.reminders); err != nil {
		return Reminder{}, err
	}
	return r, nil
}

// DeleteReminder removes the reminder with the given id.
func (s *FileStore) DeleteReminder(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.reminders {
		if r.ID == id {
			s.reminders = append(s.reminders[:i], s.reminders[i+1:]...)
			return s.saveJSON(remindersFile, s.reminders)
		}
	}
	return ErrNotFound
}

// RemindersDueBetween returns reminders whose due date falls in [from, to]
// inclusive, sorted by due date. Reminders with unparsable dates are skipped.
func (s *FileStore) RemindersDueBetween(from, to time.Time) []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Reminder
	for _, r := range s.reminders {
		due, err := time.Parse("2006-01-02", r.Due)
		if err != nil {
			continue
		}
		if due.Before(from) || due.After(to) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Due < out[j].Due })
	return out
}

// Favorites returns all favorites in insertion order.
func (s *FileStore) Favorites() []Favorite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Favorite(nil), s.favorites...)
}

// AddFavorite appends and persists a link.
func (s *FileStore) AddFavorite(name, url string) (Favorite, error) {
	f := Favorite{Name: name, URL: url}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.favorites = append(s.favorites, f)
	if err := s.saveJSON(favoritesFile, s.favorites); err != nil {
		return Favorite{}, err
	}
	return f, nil
}

// DeleteFavorite removes the favorite at index.
func (s *FileStore) DeleteFavorite(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.favorites) {
		return ErrNotFound
	}
	s.favorites = append(s.favorites[:index], s.favorites[index+1:]...)
	return s.saveJSON(favoritesFile, s.favorites)
}
