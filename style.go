package main

import "github.com/charmbracelet/lipgloss"

var (
	keyword   = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Render
	paragraph = lipgloss.NewStyle().Width(78).Padding(0, 0, 0, 2).Render
	faint     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}).Render
	highlight = lipgloss.NewStyle().Foreground(lipgloss.Color("#EE6FF8")).Bold(true).Render
)
