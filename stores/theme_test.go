package stores_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"odyssea/cache"
	"odyssea/models"
	"odyssea/stores"
)

func TestThemeStore_DefaultsToLight(t *testing.T) {
	s := stores.NewThemeStore(nil)

	assert.Equal(t, models.ThemeLight, s.Mode())
	assert.False(t, s.IsDark())
	assert.Equal(t, models.LightTheme, s.Theme())
}

func TestThemeStore_Toggle(t *testing.T) {
	s := stores.NewThemeStore(nil)

	s.Toggle()
	assert.Equal(t, models.ThemeDark, s.Mode())
	assert.True(t, s.IsDark())
	assert.Equal(t, models.DarkTheme, s.Theme())

	s.Toggle()
	assert.Equal(t, models.ThemeLight, s.Mode())
}

func TestThemeStore_NotifiesWatchers(t *testing.T) {
	s := stores.NewThemeStore(nil)

	updates := 0
	unwatch := s.Watch(func() { updates++ })
	defer unwatch()

	s.SetMode(models.ThemeDark)
	s.Toggle()

	assert.Equal(t, 2, updates)
}

func TestThemeStore_PersistsModeOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odyssea.db")
	c, err := cache.Open(path)
	require.NoError(t, err)
	defer c.Close()

	first := stores.NewThemeStore(c)
	first.SetMode(models.ThemeDark)

	// Only the mode round-trips; the palette is recomputed on rehydrate.
	second := stores.NewThemeStore(c)
	assert.Equal(t, models.ThemeDark, second.Mode())
	assert.Equal(t, models.DarkTheme, second.Theme())
}
