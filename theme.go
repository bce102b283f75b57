package main

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	envTheme    = "MQ_THEME"
	envSurfaces = "MQ_SURFACES"
	envPalette  = "MQ_PALETTE"

	defaultPalette = "dracula-soft"
)

// Theme holds the colours the views draw with.
type Theme struct {
	TextMuted    lipgloss.TerminalColor
	TextStrong   lipgloss.TerminalColor
	TextOnAccent lipgloss.TerminalColor
	TextDim      lipgloss.TerminalColor
	Accent       lipgloss.TerminalColor
	Border       lipgloss.TerminalColor
	Surface      lipgloss.TerminalColor

	AccentOrange lipgloss.TerminalColor
	AccentGreen  lipgloss.TerminalColor
	AccentBlue   lipgloss.TerminalColor
	Danger       lipgloss.TerminalColor
}

// shade is a light/dark hex pair.
type shade struct{ light, dark string }

type palette struct {
	muted, strong, onAccent, dim, accent, border, surface shade

	// Status colours read on either background.
	orange, green, blue, danger string
}

var palettes = map[string]palette{
	"dracula-soft": {
		muted:    shade{"#6B7394", "#B6B8C9"},
		strong:   shade{"#0B0D19", "#F8F8F2"},
		onAccent: shade{"#F8FBFF", "#282A36"},
		dim:      shade{"#8890A8", "#7D8297"},
		accent:   shade{"#6C63FF", "#A78BFA"},
		border:   shade{"#D7DBF5", "#44475A"},
		surface:  shade{"#F7F8FE", "#282A36"},
		orange:   "#FFB86C",
		green:    "#50FA7B",
		blue:     "#6EA8FE",
		danger:   "#FF5555",
	},
	"classic": {
		muted:    shade{"#6B7394", "#9BA3BC"},
		strong:   shade{"#0B0D19", "#F8FBFF"},
		onAccent: shade{"#F8FBFF", "#0B0D19"},
		dim:      shade{"#8890A8", "#7E869E"},
		accent:   shade{"#6C63FF", "#A8A0FF"},
		border:   shade{"#D7DBF5", "#454B66"},
		surface:  shade{"#F7F8FE", "#11121C"},
		orange:   "#FFB347",
		green:    "#2BD19F",
		blue:     "#5D9CFF",
		danger:   "#FF5F6D",
	},
}

var theme = loadTheme()

// loadTheme reads MQ_THEME (auto, dark, light), MQ_SURFACES (solid,
// transparent) and MQ_PALETTE. Unknown values fall back to the defaults.
func loadTheme() Theme {
	mode := themeMode(os.Getenv(envTheme))
	switch mode {
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	case "light":
		lipgloss.SetHasDarkBackground(false)
	}
	solid := normalizeSetting(os.Getenv(envSurfaces)) == "solid"
	return newTheme(mode, solid, os.Getenv(envPalette))
}

func normalizeSetting(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func themeMode(value string) string {
	switch v := normalizeSetting(value); v {
	case "dark", "light":
		return v
	default:
		return "auto"
	}
}

func lookupPalette(name string) palette {
	if p, ok := palettes[normalizeSetting(name)]; ok {
		return p
	}
	return palettes[defaultPalette]
}

func newTheme(mode string, solid bool, paletteName string) Theme {
	p := lookupPalette(paletteName)
	pick := func(s shade) lipgloss.TerminalColor {
		switch mode {
		case "dark":
			return lipgloss.Color(s.dark)
		case "light":
			return lipgloss.Color(s.light)
		default:
			return lipgloss.AdaptiveColor{Light: s.light, Dark: s.dark}
		}
	}

	t := Theme{
		TextMuted:    pick(p.muted),
		TextStrong:   pick(p.strong),
		TextOnAccent: pick(p.onAccent),
		TextDim:      pick(p.dim),
		Accent:       pick(p.accent),
		Border:       pick(p.border),
		Surface:      lipgloss.NoColor{},
		AccentOrange: lipgloss.Color(p.orange),
		AccentGreen:  lipgloss.Color(p.green),
		AccentBlue:   lipgloss.Color(p.blue),
		Danger:       lipgloss.Color(p.danger),
	}
	if solid {
		t.Surface = pick(p.surface)
	}
	return t
}
