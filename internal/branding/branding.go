// Package branding centralizes the AppEyes identity constants and the
// colors used by the terminal report.
package branding

// Application identity constants.
const (
	AppName    = "AppEyes"
	CLIName    = "AppEyes Visual Checkpoints"
	BinaryName = "appeyes"
)

// Brand colors in hex format for Lipgloss true color support.
const (
	// ColorPrimary is the main brand color.
	ColorPrimary = "#8B5CF6"
	// ColorDeepViolet is a darker purple for title backgrounds.
	ColorDeepViolet = "#4C1D95"
	// ColorRichPurple is used for table header rules.
	ColorRichPurple = "#6D28D9"
	// ColorTeal marks passing tests and matches.
	ColorTeal = "#14B8A6"
	// ColorCoral marks failures and mismatches.
	ColorCoral = "#E11D48"
	// ColorAmber marks new baselines.
	ColorAmber = "#F59E0B"
	ColorWhite = "#FFFFFF"
	// ColorLightGray is a light gray for labels.
	ColorLightGray = "#A1A1AA"
	// ColorMutedGray is a muted gray for help text.
	ColorMutedGray = "#71717A"
	// ColorBorderGray is the panel border gray.
	ColorBorderGray = "#52525B"
)

// Banner is a small ASCII eye shown by the version command.
const Banner = `
    .-"""-.
   /  .-.  \
  |  ( o )  |
   \  '-'  /
    '-...-'`

// StartupBanner returns the banner with the application name below it.
func StartupBanner() string {
	return Banner + "\n" +
		"  " + CLIName + "\n"
}
