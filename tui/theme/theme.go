// Package theme holds the shared lipgloss styles of the command line and
// the live view.
package theme

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/repoview/config"
)

const defaultThemeName = "kanagawa"

// --- Kanagawa palette, dark and light ---
const (
	kanagawaDarkGreen      = "#98BB6C"
	kanagawaDarkYellow     = "#FF9E3B"
	kanagawaDarkRed        = "#FF5D62"
	kanagawaDarkOrange     = "#FFA066"
	kanagawaDarkCyan       = "#7E9CD8"
	kanagawaDarkBlue       = "#7FB4CA"
	kanagawaDarkViolet     = "#957FB8"
	kanagawaDarkMutedText  = "#727169"
	kanagawaDarkBorder     = "#363646"
	kanagawaDarkSelectedBg = "#223249"

	kanagawaLightGreen      = "#4E7C5A"
	kanagawaLightYellow     = "#A68A64"
	kanagawaLightRed        = "#C34043"
	kanagawaLightOrange     = "#CC6B4E"
	kanagawaLightCyan       = "#5B8BBE"
	kanagawaLightBlue       = "#4F7CAC"
	kanagawaLightViolet     = "#674D7A"
	kanagawaLightMutedText  = "#6C7086"
	kanagawaLightBorder     = "#B5BDC5"
	kanagawaLightSelectedBg = "#E2E6F3"
)

// Colors is the palette of a theme.
type Colors struct {
	Green      lipgloss.TerminalColor
	Yellow     lipgloss.TerminalColor
	Red        lipgloss.TerminalColor
	Orange     lipgloss.TerminalColor
	Cyan       lipgloss.TerminalColor
	Blue       lipgloss.TerminalColor
	Violet     lipgloss.TerminalColor
	MutedText  lipgloss.TerminalColor
	Border     lipgloss.TerminalColor
	SelectedBg lipgloss.TerminalColor
}

// Theme holds the pre-configured styles.
type Theme struct {
	Name   string
	Colors Colors

	Header lipgloss.Style
	Title  lipgloss.Style

	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	Bold     lipgloss.Style
	Italic   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style

	Box       lipgloss.Style
	Highlight lipgloss.Style
	Accent    lipgloss.Style
}

var themeRegistry = map[string]func() Colors{
	"kanagawa": newKanagawaColors,
	"terminal": newTerminalColors,
}

// DefaultTheme is selected from REPOVIEW_THEME or the tui.theme setting.
var DefaultTheme = NewThemeWithName(getThemeName())

// NewThemeWithName builds the theme of a palette name. Unknown names fall
// back to the default palette.
func NewThemeWithName(name string) *Theme {
	key := normalizeThemeName(name)
	build, ok := themeRegistry[key]
	if !ok {
		key = defaultThemeName
		build = themeRegistry[key]
	}
	colors := build()
	return &Theme{
		Name:   key,
		Colors: colors,

		Header: lipgloss.NewStyle().Bold(true).Foreground(colors.Orange),
		Title:  lipgloss.NewStyle().Bold(true).Underline(true),

		Success: lipgloss.NewStyle().Foreground(colors.Green).Bold(true),
		Error:   lipgloss.NewStyle().Foreground(colors.Red).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(colors.Yellow).Bold(true),
		Info:    lipgloss.NewStyle().Foreground(colors.Cyan).Bold(true),

		Bold:     lipgloss.NewStyle().Bold(true),
		Italic:   lipgloss.NewStyle().Italic(true),
		Muted:    lipgloss.NewStyle().Faint(true),
		Selected: lipgloss.NewStyle().Background(colors.SelectedBg),

		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Border).
			Padding(0, 1),
		Highlight: lipgloss.NewStyle().Foreground(colors.Orange).Bold(true),
		Accent:    lipgloss.NewStyle().Foreground(colors.Violet).Bold(true),
	}
}

func normalizeThemeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, " ", "-")
	return strings.ReplaceAll(normalized, "_", "-")
}

func getThemeName() string {
	if theme := normalizeThemeName(os.Getenv("REPOVIEW_THEME")); theme != "" {
		return theme
	}

	cfg, err := config.LoadDefault()
	if err != nil || cfg == nil {
		return defaultThemeName
	}

	var tuiCfg struct {
		Theme string `yaml:"theme"`
	}
	if err := cfg.UnmarshalExtension("tui", &tuiCfg); err == nil {
		if theme := normalizeThemeName(tuiCfg.Theme); theme != "" {
			return theme
		}
	}
	return defaultThemeName
}

func newKanagawaColors() Colors {
	return Colors{
		Green:      lipgloss.AdaptiveColor{Light: kanagawaLightGreen, Dark: kanagawaDarkGreen},
		Yellow:     lipgloss.AdaptiveColor{Light: kanagawaLightYellow, Dark: kanagawaDarkYellow},
		Red:        lipgloss.AdaptiveColor{Light: kanagawaLightRed, Dark: kanagawaDarkRed},
		Orange:     lipgloss.AdaptiveColor{Light: kanagawaLightOrange, Dark: kanagawaDarkOrange},
		Cyan:       lipgloss.AdaptiveColor{Light: kanagawaLightCyan, Dark: kanagawaDarkCyan},
		Blue:       lipgloss.AdaptiveColor{Light: kanagawaLightBlue, Dark: kanagawaDarkBlue},
		Violet:     lipgloss.AdaptiveColor{Light: kanagawaLightViolet, Dark: kanagawaDarkViolet},
		MutedText:  lipgloss.AdaptiveColor{Light: kanagawaLightMutedText, Dark: kanagawaDarkMutedText},
		Border:     lipgloss.AdaptiveColor{Light: kanagawaLightBorder, Dark: kanagawaDarkBorder},
		SelectedBg: lipgloss.AdaptiveColor{Light: kanagawaLightSelectedBg, Dark: kanagawaDarkSelectedBg},
	}
}

func newTerminalColors() Colors {
	return Colors{
		Green:      lipgloss.Color("2"),
		Yellow:     lipgloss.Color("3"),
		Red:        lipgloss.Color("1"),
		Orange:     lipgloss.Color("208"),
		Cyan:       lipgloss.Color("6"),
		Blue:       lipgloss.Color("4"),
		Violet:     lipgloss.Color("5"),
		MutedText:  lipgloss.Color("8"),
		Border:     lipgloss.Color("8"),
		SelectedBg: lipgloss.Color("8"),
	}
}
