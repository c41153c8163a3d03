// Package settings persists the backend base URL.
package settings

import (
	"strings"

	"fyne.io/fyne/v2"

	"livevision/internal/config"
)

// BackendURLKey is the preferences key the GUI stores the URL under.
const BackendURLKey = "vision-backend-url"

type Store interface {
	Get() string
	Set(url string)
}

// Normalize strips trailing slashes. It does no other validation.
func Normalize(url string) string {
	return strings.TrimRight(strings.TrimSpace(url), "/")
}

// PreferencesStore keeps the URL in the fyne app preferences, which fyne
// writes to disk on its own. With a backing store, every Set is written
// through and Get prefers the backing value, so the GUI and the backend-url
// command always agree on one URL.
type PreferencesStore struct {
	prefs   fyne.Preferences
	backing Store
}

func NewPreferencesStore(prefs fyne.Preferences, backing Store) *PreferencesStore {
	return &PreferencesStore{prefs: prefs, backing: backing}
}

func (s *PreferencesStore) Get() string {
	if s.backing != nil {
		if v := s.backing.Get(); v != "" {
			return v
		}
	}
	return s.prefs.String(BackendURLKey)
}

func (s *PreferencesStore) Set(url string) {
	url = Normalize(url)

	s.prefs.SetString(BackendURLKey, url)
	if s.backing != nil {
		s.backing.Set(url)
	}
}

// ConfigStore keeps the URL in the JSON config file and saves on every Set.
type ConfigStore struct {
	cfg  *config.Config
	path string

	// OnSaveError is called when the file could not be written.
	OnSaveError func(error)
}

func NewConfigStore(cfg *config.Config, path string) *ConfigStore {
	return &ConfigStore{cfg: cfg, path: path}
}

func (s *ConfigStore) Get() string {
	return s.cfg.GetBackendURL()
}

func (s *ConfigStore) Set(url string) {
	s.cfg.SetBackendURL(Normalize(url))
	if s.path == "" {
		return
	}
	if err := s.cfg.Save(s.path); err != nil && s.OnSaveError != nil {
		s.OnSaveError(err)
	}
}

// FixedStore always returns the same URL and ignores writes.
type FixedStore string

func (s FixedStore) Get() string { return string(s) }

func (s FixedStore) Set(string) {}
