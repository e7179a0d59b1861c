// Package ui provides the pages and visual styling of the testhub terminal client.
// Uses a light/dark palette chosen from config or the terminal.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	// Light Mode Colors (Default)
	LightBackground = lipgloss.Color("#f4f5f6")
	LightForeground = lipgloss.Color("#1b2a41")
	LightPrimary    = lipgloss.Color("#1b2a41") // Navy
	LightAccent     = lipgloss.Color("#61dafb") // Sky blue
	LightMuted      = lipgloss.Color("#8a94a6")
	LightBorder     = lipgloss.Color("#dce0e5")
	LightCard       = lipgloss.Color("#ffffff")

	// Dark Mode Colors
	DarkBackground = lipgloss.Color("#141d2b")
	DarkForeground = lipgloss.Color("#f2f2f2")
	DarkPrimary    = lipgloss.Color("#61dafb") // Sky blue (flipped)
	DarkAccent     = lipgloss.Color("#1b2a41") // Navy (flipped)
	DarkMuted      = lipgloss.Color("#5c6b82")
	DarkBorder     = lipgloss.Color("#2a3850")
	DarkCard       = lipgloss.Color("#1a2536")

	// Semantic Colors (same in both modes)
	Destructive = lipgloss.Color("#e53935") // Red
	Success     = lipgloss.Color("#43a047") // Green
	Info        = lipgloss.Color("#2196F3") // Blue
)

// Theme holds the current color scheme
type Theme struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Card       lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{
		Background: LightBackground,
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Muted:      LightMuted,
		Border:     LightBorder,
		Card:       LightCard,
		IsDark:     false,
	}
}

// DarkTheme returns the dark mode theme
func DarkTheme() Theme {
	return Theme{
		Background: DarkBackground,
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		Card:       DarkCard,
		IsDark:     true,
	}
}

// DetectTheme auto-detects based on terminal or returns light mode.
// An explicit dark theme comes from config (ui.theme or TESTHUB_DARK_MODE).
func DetectTheme() Theme {
	// Format is usually "foreground;background"; 0-6 and 8 are dark backgrounds.
	if parts := strings.Split(os.Getenv("COLORFGBG"), ";"); len(parts) == 2 {
		if bgIdx, err := strconv.Atoi(parts[1]); err == nil {
			if (bgIdx >= 0 && bgIdx <= 6) || bgIdx == 8 {
				return DarkTheme()
			}
		}
	}

	return LightTheme()
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	// Layout
	Header    lipgloss.Style
	NavItem   lipgloss.Style
	NavActive lipgloss.Style
	Banner    lipgloss.Style
	Content   lipgloss.Style
	Footer    lipgloss.Style

	// Text
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style

	// Form
	Focused  lipgloss.Style
	Slot     lipgloss.Style
	Button   lipgloss.Style
	Disabled lipgloss.Style

	// Status
	Success lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style

	// Code
	CodeBlock lipgloss.Style

	// Components
	Spinner lipgloss.Style
	Divider lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Header: lipgloss.NewStyle().
			Background(theme.Primary).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1),

		NavItem: lipgloss.NewStyle().
			Padding(0, 1),

		NavActive: lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true).
			Underline(true),

		Banner: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			Padding(1, 2),

		Content: lipgloss.NewStyle().
			Padding(0, 2),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 2),

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Subtitle: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),

		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Focused: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Slot: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		Button: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Primary).
			Padding(0, 2).
			Bold(true),

		Disabled: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Muted).
			Foreground(theme.Muted).
			Padding(0, 2),

		Success: lipgloss.NewStyle().
			Foreground(Success).
			Italic(true),

		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Italic(true),

		Info: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Italic(true),

		CodeBlock: lipgloss.NewStyle().
			Background(theme.Card).
			Foreground(theme.Foreground).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		Spinner: lipgloss.NewStyle().
			Foreground(theme.Primary),

		Divider: lipgloss.NewStyle().
			Foreground(theme.Border),
	}
}

// DefaultStyles returns styles for the detected theme
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// GlamourStyle names the glamour style matching the theme.
func (s Styles) GlamourStyle() string {
	if s.Theme.IsDark {
		return "dark"
	}
	return "light"
}

// RenderDivider returns a horizontal divider
func (s Styles) RenderDivider(width int) string {
	if width < 1 {
		width = 1
	}
	return s.Divider.Render(strings.Repeat("─", width))
}
