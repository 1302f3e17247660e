package ui

import "github.com/charmbracelet/lipgloss"

var (
	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}
	gray      = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	fuchsia   = lipgloss.Color("#EE6FF8")
	red       = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}

	statusBarNoteFg = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	statusBarBg     = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}

	statusBarStyle = lipgloss.NewStyle().
			Foreground(statusBarNoteFg).
			Background(statusBarBg)

	statusBarPhaseStyle = lipgloss.NewStyle().
				Bold(true).
				Padding(0, 1)

	statusBarMessageStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Background(darkGreen).
				Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(fuchsia).
			Padding(0, 1)

	wordStyle = lipgloss.NewStyle().
			Foreground(fuchsia).
			Bold(true)

	textStyle = lipgloss.NewStyle().
			Bold(true)

	translationStyle = lipgloss.NewStyle().
				Foreground(gray).
				Italic(true)

	celebrationStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(red)

	subtleStyle = lipgloss.NewStyle().
			Foreground(gray)

	appStyle = lipgloss.NewStyle().Padding(1, 2)
)
