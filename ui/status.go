package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/drill/internal/session"
	"github.com/dgnsrekt/drill/internal/tts"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
)

const ellipsis = "…"

func phaseIcon(p session.Phase) string {
	switch p {
	case session.PhasePlaying:
		return "▶"
	case session.PhasePaused:
		return "⏸"
	case session.PhaseStopping:
		return "◼"
	default:
		return "■"
	}
}

func phaseColor(p session.Phase) lipgloss.Color {
	switch p {
	case session.PhasePlaying:
		return lipgloss.Color("#00FF00") // Green
	case session.PhasePaused:
		return lipgloss.Color("#FFFF00") // Yellow
	case session.PhaseStopping:
		return lipgloss.Color("#FF8800") // Orange
	default:
		return lipgloss.Color("#888888") // Gray
	}
}

// counter renders "item/total · round r/n" for an active session.
func counter(st session.State) string {
	if !st.IsActive() || st.Total == 0 {
		return ""
	}
	s := fmt.Sprintf("%d/%d", min(st.Item+1, st.Total), st.Total)
	if st.Rounds > 1 {
		s += fmt.Sprintf(" · round %d/%d", st.Round+1, st.Rounds)
	}
	return s
}

// statusBar renders the bottom line: phase, position, speed and an optional
// message on the right. Segments are measured before styling so that
// escape sequences do not count towards the width.
func statusBar(width int, st session.State, rate float64, message string) string {
	phase := fmt.Sprintf("%s %s", phaseIcon(st.Phase), st.Phase)
	count := counter(st)
	speed := strings.Fields(tts.RateLabel(rate))[0]
	msg := message

	used := runewidth.StringWidth(phase) + 2 // phase padding
	if count != "" {
		used += runewidth.StringWidth(count) + 2
	}
	used += runewidth.StringWidth(speed) + 2

	if msg != "" {
		avail := width - used - 2
		if avail < 1 {
			msg = ""
		} else if runewidth.StringWidth(msg) > avail {
			msg = truncate.StringWithTail(msg, uint(avail), ellipsis) //nolint:gosec
		}
	}

	var b strings.Builder
	b.WriteString(statusBarPhaseStyle.Foreground(phaseColor(st.Phase)).Background(statusBarBg).Render(phase))
	if count != "" {
		b.WriteString(statusBarStyle.Padding(0, 1).Render(count))
	}
	b.WriteString(statusBarStyle.Padding(0, 1).Render(speed))

	fill := width - used
	if msg != "" {
		fill -= runewidth.StringWidth(msg) + 2
	}
	if fill > 0 {
		b.WriteString(statusBarStyle.Render(strings.Repeat(" ", fill)))
	}
	if msg != "" {
		b.WriteString(statusBarMessageStyle.Render(msg))
	}
	return b.String()
}
