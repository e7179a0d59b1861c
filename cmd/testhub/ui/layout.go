// Package ui layout constants for consistent spacing and dimensions
package ui

// Layout constants for viewport and panel sizing
const (
	// Shell chrome around the active page
	HeaderHeight = 1
	BannerHeight = 3
	FooterHeight = 2

	// Viewport padding
	ViewportHorizontalPadding = 4

	// Panel borders and spacing
	PanelBorderWidth = 1
	PanelPaddingH    = 1

	// Generate page sections
	FormHeight       = 14
	PickerMinHeight  = 5
	ScriptMinHeight  = 3
	InputMinWidth    = 20
	MarkdownMaxWidth = 100
)

// LayoutConfig provides computed layout dimensions based on terminal size
type LayoutConfig struct {
	TerminalWidth  int
	TerminalHeight int
}

// NewLayoutConfig creates a layout configuration for the given terminal size
func NewLayoutConfig(width, height int) LayoutConfig {
	return LayoutConfig{
		TerminalWidth:  width,
		TerminalHeight: height,
	}
}

// PageWidth returns the width handed to the active page.
func (l LayoutConfig) PageWidth() int {
	return clampMin(l.TerminalWidth-ViewportHorizontalPadding, 1)
}

// PageHeight returns the height left for the active page under the shell chrome.
func (l LayoutConfig) PageHeight() int {
	return clampMin(l.TerminalHeight-HeaderHeight-BannerHeight-FooterHeight, 1)
}

// PanelContentWidth returns the content width inside a bordered panel
func PanelContentWidth(panelWidth int) int {
	return clampMin(panelWidth-(PanelBorderWidth*2)-(PanelPaddingH*2), 1)
}

// MarkdownWidth caps the glamour word-wrap width.
func MarkdownWidth(width int) int {
	if width > MarkdownMaxWidth {
		return MarkdownMaxWidth
	}
	return clampMin(width, InputMinWidth)
}

func clampMin(v, lo int) int {
	if v < lo {
		return lo
	}
	return v
}
