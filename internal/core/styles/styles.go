// Package styles provides shared lipgloss styles for CLI output.
package styles

import (
	glamouransi "github.com/charmbracelet/glamour/ansi"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

// Tokyo Night palette.
var (
	ColorPrimary    = lipgloss.Color("#7aa2f7")
	ColorSecondary  = lipgloss.Color("#7dcfff")
	ColorForeground = lipgloss.Color("#c0caf5")
	ColorMuted      = lipgloss.Color("#565f89")
	ColorSurface    = lipgloss.Color("#3b4261")
	ColorSuccess    = lipgloss.Color("#9ece6a")
	ColorWarning    = lipgloss.Color("#e0af68")
	ColorError      = lipgloss.Color("#f7768e")
)

var (
	TextPrimaryBoldStyle    = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	TextForegroundBoldStyle = lipgloss.NewStyle().Foreground(ColorForeground).Bold(true)
	TextMutedStyle          = lipgloss.NewStyle().Foreground(ColorMuted)
	TextSuccessStyle        = lipgloss.NewStyle().Foreground(ColorSuccess)
	TextWarningStyle        = lipgloss.NewStyle().Foreground(ColorWarning)
	TextErrorStyle          = lipgloss.NewStyle().Foreground(ColorError)
)

func hexPtr(c lipgloss.Color) *string {
	s := string(c)
	return &s
}

// GlamourStyle returns a Glamour style config derived from the palette.
func GlamourStyle() glamouransi.StyleConfig {
	cfg := glamourstyles.DarkStyleConfig

	fg := hexPtr(ColorForeground)
	primary := hexPtr(ColorPrimary)
	secondary := hexPtr(ColorSecondary)
	muted := hexPtr(ColorMuted)
	surface := hexPtr(ColorSurface)

	cfg.Document.Color = fg
	cfg.Paragraph.Color = fg

	cfg.Heading.Color = primary
	cfg.H1.Color = fg
	cfg.H1.BackgroundColor = surface
	cfg.H2.Color = primary
	cfg.H3.Color = primary
	cfg.H4.Color = primary
	cfg.H5.Color = primary
	cfg.H6.Color = primary

	cfg.BlockQuote.Color = muted
	cfg.HorizontalRule.Color = muted

	cfg.Link.Color = secondary
	cfg.LinkText.Color = secondary

	cfg.Code.Color = secondary
	cfg.CodeBlock.Color = muted

	cfg.Table.Color = fg

	return cfg
}
