// theme.go
// Theme palettes. Only the mode is persisted; the palette is derived.

package models

// ThemeMode selects between the two palettes.
type ThemeMode string

const (
	ThemeLight ThemeMode = "light"
	ThemeDark  ThemeMode = "dark"
)

// Palette holds the color tokens a themed UI consumes.
type Palette struct {
	Primary       string `json:"primary"`
	PrimarySoft   string `json:"primarySoft"`
	Background    string `json:"background"`
	BackgroundAlt string `json:"backgroundAlt"`
	Card          string `json:"card"`
	CardSoft      string `json:"cardSoft"`
	Border        string `json:"border"`
	Text          string `json:"text"`
	TextSoft      string `json:"textSoft"`
	TextMuted     string `json:"textMuted"`
	Danger        string `json:"danger"`
	Success       string `json:"success"`
	Overlay       string `json:"overlay"`
}

// Theme is a mode plus its palette.
type Theme struct {
	Mode   ThemeMode `json:"mode"`
	Colors Palette   `json:"colors"`
}

var LightTheme = Theme{
	Mode: ThemeLight,
	Colors: Palette{
		Primary:       "#10B981",
		PrimarySoft:   "#D1FAE5",
		Background:    "#FFFFFF",
		BackgroundAlt: "#FFFFFF",
		Card:          "#FFFFFF",
		CardSoft:      "#ECFDF5",
		Border:        "#D1D5DB",
		Text:          "#065F46",
		TextSoft:      "#047857",
		TextMuted:     "#6B7280",
		Danger:        "#EF4444",
		Success:       "#10B981",
		Overlay:       "rgba(6, 95, 70, 0.6)",
	},
}

var DarkTheme = Theme{
	Mode: ThemeDark,
	Colors: Palette{
		Primary:       "#34D399",
		PrimarySoft:   "#064E3B",
		Background:    "#022C22",
		BackgroundAlt: "#0F172A",
		Card:          "#064E3B",
		CardSoft:      "#065F46",
		Border:        "#1F2937",
		Text:          "#ECFDF5",
		TextSoft:      "#A7F3D0",
		TextMuted:     "#9CA3AF",
		Danger:        "#F87171",
		Success:       "#34D399",
		Overlay:       "rgba(2, 44, 34, 0.85)",
	},
}

// ThemeForMode returns the palette for a mode, defaulting to light for
// anything unrecognized (e.g. stale persisted values).
func ThemeForMode(mode ThemeMode) Theme {
	if mode == ThemeDark {
		return DarkTheme
	}
	return LightTheme
}
