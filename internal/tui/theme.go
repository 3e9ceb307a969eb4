// Package tui provides terminal user interface components.
package tui

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ResolveTheme loads a theme with the following precedence:
//  1. NO_COLOR env var set → returns NoColorTheme (industry standard)
//  2. INKWELL_THEME env var → parse custom colors.toml file
//  3. User theme from ~/.config/inkwell/theme/colors.toml
//  4. Default inkwell theme
//
// On systems like Omarchy, users can symlink to their system theme:
//
//	ln -s ~/.config/omarchy/current/theme ~/.config/inkwell/theme
func ResolveTheme() Theme {
	// NO_COLOR support (industry standard for disabling colors)
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return NoColorTheme()
	}

	// INKWELL_THEME allows custom theme file path
	if path := os.Getenv("INKWELL_THEME"); path != "" {
		if theme, err := LoadThemeFromFile(path); err == nil {
			return theme
		}
		// Fall through on error
	}

	// Try user theme config
	if theme, err := LoadUserTheme(); err == nil {
		return theme
	}

	// Fall back to default
	return DefaultTheme()
}

// NoColorTheme returns a theme with empty colors (honors NO_COLOR standard).
// Lipgloss treats empty strings as "no color", resulting in plain text output.
func NoColorTheme() Theme {
	empty := lipgloss.AdaptiveColor{Light: "", Dark: ""}
	return Theme{
		Primary:    empty,
		Secondary:  empty,
		Success:    empty,
		Warning:    empty,
		Error:      empty,
		Muted:      empty,
		Background: empty,
		Foreground: empty,
		Border:     empty,
	}
}

// LoadUserTheme attempts to load a theme from the user's inkwell config.
// The theme directory can be a symlink to another theme system.
func LoadUserTheme() (Theme, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Theme{}, err
	}

	path := filepath.Join(home, ".config", "inkwell", "theme", "colors.toml")
	return LoadThemeFromFile(path)
}

// LoadThemeFromFile parses a colors.toml file and returns a Theme.
func LoadThemeFromFile(path string) (Theme, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Path from trusted config
	if err != nil {
		return Theme{}, err
	}

	colors, err := parseSimpleTOML(data)
	if err != nil {
		return Theme{}, err
	}

	return mapColorsToTheme(colors), nil
}

// parseSimpleTOML parses a simple TOML file with key = "value" format.
// This is a lightweight parser for colors.toml theme files.
func parseSimpleTOML(data []byte) (map[string]string, error) { //nolint:unparam // error return for future extensibility
	result := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if key, value, ok := parseColorLine(line); ok {
			result[key] = value
		}
	}
	return result, nil
}

// parseColorLine extracts one key/color pair from a colors.toml line.
// Blank lines, comments, malformed lines, and non-hex values all report
// ok=false and are skipped by the caller.
func parseColorLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}

	k, v, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}

	value = stripInlineComment(strings.TrimSpace(v))
	value = strings.Trim(value, `"'`)
	if !isValidHexColor(value) {
		return "", "", false
	}

	return strings.TrimSpace(k), value, true
}

// stripInlineComment drops a trailing # comment that appears outside of
// quotes. A # at position zero is left alone: an unquoted hex color like
// #91a7ff starts with one.
func stripInlineComment(s string) string {
	inQuote := false
	var quoteChar rune
	for i, c := range s {
		switch {
		case !inQuote && (c == '"' || c == '\''):
			inQuote = true
			quoteChar = c
		case inQuote && c == quoteChar:
			inQuote = false
		case !inQuote && c == '#' && i > 0:
			return strings.TrimSpace(s[:i])
		}
	}
	return s
}

// isValidHexColor checks if a string is a valid hex color (#RGB or #RRGGBB).
func isValidHexColor(s string) bool {
	if !strings.HasPrefix(s, "#") {
		return false
	}
	hex := s[1:]
	if len(hex) != 3 && len(hex) != 6 {
		return false
	}
	for _, c := range hex {
		if !isHexDigit(c) {
			return false
		}
	}
	return true
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// mapColorsToTheme maps colors.toml color names to inkwell Theme semantics.
//
// Supported color keys (compatible with terminal theme formats):
//
//	accent = "#91a7ff"       → Primary
//	foreground = "#e6e8ef"   → Foreground
//	background = "#1a1b26"   → Background
//	color0 = "#3b4048"       → (black)
//	color1 = "#ffa8a8"       → Error (red)
//	color2 = "#8ce99a"       → Success (green)
//	color3 = "#ffd43b"       → Warning (yellow)
//	color4 = "#91a7ff"       → Primary fallback (blue)
//	color7 = "#9aa5b1"       → Secondary (white/light)
//	color8 = "#6c7380"       → Muted, Border (bright black)
func mapColorsToTheme(colors map[string]string) Theme {
	defaults := DefaultTheme()

	pick := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := colors[k]; ok {
				return v
			}
		}
		return ""
	}

	// Terminal themes are typically dark, so only the Dark variant is
	// overridden; Light keeps the default palette.
	dark := func(fallback lipgloss.AdaptiveColor, keys ...string) lipgloss.AdaptiveColor {
		return lipgloss.AdaptiveColor{
			Light: fallback.Light,
			Dark:  getOrDefault(pick(keys...), fallback.Dark),
		}
	}

	return Theme{
		Primary:    dark(defaults.Primary, "accent", "color4"),
		Secondary:  dark(defaults.Secondary, "color7"),
		Success:    dark(defaults.Success, "color2"),
		Warning:    dark(defaults.Warning, "color3"),
		Error:      dark(defaults.Error, "color1"),
		Muted:      dark(defaults.Muted, "color8", "color0"),
		Background: dark(defaults.Background, "background"),
		Foreground: dark(defaults.Foreground, "foreground"),
		Border:     dark(defaults.Border, "color8", "color0"),
	}
}

// getOrDefault returns value if non-empty, otherwise returns defaultValue.
func getOrDefault(value, defaultValue string) string {
	if value != "" {
		return value
	}
	return defaultValue
}
