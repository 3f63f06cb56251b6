package report

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/insajin/appeyes/internal/branding"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(branding.ColorBorderGray)).
			Padding(0, 1)

	failedPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color(branding.ColorCoral)).
				Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(branding.ColorWhite)).
			Background(lipgloss.Color(branding.ColorDeepViolet)).
			Padding(0, 1)
)

// Test status styles.
var (
	statusPass = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorTeal)).
			Bold(true)

	statusFail = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorCoral)).
			Bold(true)

	statusNew = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorAmber)).
			Bold(true)
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(branding.ColorWhite)).
			BorderBottom(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color(branding.ColorRichPurple))

	rowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorLightGray))

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorMutedGray)).
			PaddingLeft(2)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorLightGray)).
			Width(18)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorWhite))

	docStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorMutedGray))
)
