// theme.go
// ThemeStore owns the light/dark mode. Only the mode is persisted; the
// palette is recomputed from it on rehydrate.

package stores

import (
	"errors"
	"log"
	"sync"

	"odyssea/cache"
	"odyssea/models"
)

const themeCacheNamespace = "odyssea-theme"

// ThemeStore holds the theme slice of application state.
type ThemeStore struct {
	cache *cache.Store

	watchers
	mu   sync.Mutex
	mode models.ThemeMode
}

type themeCacheState struct {
	Mode models.ThemeMode `json:"mode"`
}

// NewThemeStore builds a theme store, rehydrating the persisted mode
// (cache may be nil; the default mode is light).
func NewThemeStore(c *cache.Store) *ThemeStore {
	s := &ThemeStore{cache: c, mode: models.ThemeLight}
	if c != nil {
		var state themeCacheState
		err := c.Load(themeCacheNamespace, &state)
		switch {
		case err == nil:
			if state.Mode == models.ThemeDark {
				s.mode = models.ThemeDark
			}
		case !errors.Is(err, cache.ErrMiss):
			log.Printf("Warning: failed to rehydrate theme: %v", err)
		}
	}
	return s
}

// SetMode switches to the given mode.
func (s *ThemeStore) SetMode(mode models.ThemeMode) {
	s.mu.Lock()
	s.mode = mode
	s.persistLocked()
	s.mu.Unlock()
	s.notify()
}

// Toggle flips between light and dark.
func (s *ThemeStore) Toggle() {
	s.mu.Lock()
	if s.mode == models.ThemeLight {
		s.mode = models.ThemeDark
	} else {
		s.mode = models.ThemeLight
	}
	s.persistLocked()
	s.mu.Unlock()
	s.notify()
}

// Mode returns the active mode.
func (s *ThemeStore) Mode() models.ThemeMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Theme returns the full palette for the active mode.
func (s *ThemeStore) Theme() models.Theme {
	return models.ThemeForMode(s.Mode())
}

// IsDark reports whether dark mode is active.
func (s *ThemeStore) IsDark() bool {
	return s.Mode() == models.ThemeDark
}

func (s *ThemeStore) persistLocked() {
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(themeCacheNamespace, themeCacheState{Mode: s.mode}); err != nil {
		log.Printf("Warning: failed to persist theme: %v", err)
	}
}
