package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/drill/internal/deck"
	"github.com/dgnsrekt/drill/internal/session"
	"github.com/dgnsrekt/drill/internal/srs"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/wordwrap"
)

type (
	pickedMsg struct {
		item deck.Item
		err  error
	}

	spokenMsg struct {
		err error
	}

	gradedMsg struct {
		item    deck.Item
		outcome srs.Outcome
		err     error
	}
)

type reviewModel struct {
	ctx  context.Context
	cfg  Config
	rev  *session.Reviewer
	deck *deck.Deck
	now  func() time.Time

	keys reviewKeyMap
	help help.Model

	item            deck.Item
	hasItem         bool
	showTranslation bool
	speaking        bool
	done            bool // nothing due

	width         int
	statusMessage string
	statusID      int
}

func newReviewModel(ctx context.Context, cfg Config, rev *session.Reviewer, d *deck.Deck) reviewModel {
	m := reviewModel{
		ctx:  ctx,
		cfg:  cfg,
		rev:  rev,
		deck: d,
		now:  time.Now,
		keys: newReviewKeyMap(),
		help: help.New(),
	}
	m.keys.sync(false)
	return m
}

func (m reviewModel) Init() tea.Cmd {
	return m.pick()
}

func (m reviewModel) pick() tea.Cmd {
	rev := m.rev
	return func() tea.Msg {
		it, err := rev.Pick()
		return pickedMsg{item: it, err: err}
	}
}

func (m reviewModel) speak() tea.Cmd {
	ctx, rev := m.ctx, m.rev
	return func() tea.Msg {
		return spokenMsg{err: rev.Replay(ctx)}
	}
}

func (m reviewModel) grade(o srs.Outcome) tea.Cmd {
	ctx, rev := m.ctx, m.rev
	return func() tea.Msg {
		it, err := rev.Grade(ctx, o)
		return gradedMsg{item: it, outcome: o, err: err}
	}
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case tea.KeyMsg:
		return m.handleKey(msg)

	case pickedMsg:
		if msg.err != nil {
			m.item, m.hasItem = deck.Item{}, false
			m.keys.sync(false)
			if errors.Is(msg.err, srs.ErrNoItemsDue) {
				m.done = true
				return m, nil
			}
			log.Error("unable to pick an item", "error", msg.err)
			return m, m.setStatus(msg.err.Error())
		}
		m.item, m.hasItem = msg.item, true
		m.done = false
		m.showTranslation = false
		m.speaking = true
		m.keys.sync(true)
		return m, m.speak()

	case spokenMsg:
		m.speaking = false
		if msg.err != nil && !errors.Is(msg.err, session.ErrNoCurrentItem) {
			return m, m.setStatus(msg.err.Error())
		}

	case gradedMsg:
		if msg.err != nil {
			return m, m.setStatus(msg.err.Error())
		}
		m.item, m.hasItem = deck.Item{}, false
		m.keys.sync(false)
		status := m.setStatus(fmt.Sprintf("%s · due %s", msg.outcome,
			humanize.RelTime(time.UnixMilli(msg.item.NextDueAt), m.now(), "ago", "from now")))
		return m, tea.Batch(status, m.pick())

	case statusMessageTimeoutMsg:
		if msg.id == m.statusID {
			m.statusMessage = ""
		}
	}
	return m, nil
}

func (m reviewModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		rev := m.rev
		return m, func() tea.Msg {
			rev.Stop()
			return tea.Quit()
		}
	case key.Matches(msg, m.keys.Again):
		return m, m.grade(srs.Again)
	case key.Matches(msg, m.keys.Good):
		return m, m.grade(srs.Good)
	case key.Matches(msg, m.keys.Replay):
		if m.speaking {
			return m, nil
		}
		m.speaking = true
		return m, m.speak()
	case key.Matches(msg, m.keys.Translate):
		m.showTranslation = !m.showTranslation
	}
	return m, nil
}

func (m *reviewModel) setStatus(msg string) tea.Cmd {
	m.statusID++
	m.statusMessage = msg
	return statusTimeout(m.statusID)
}

// nextDue returns when the earliest scheduled item becomes due.
func (m reviewModel) nextDue() (time.Time, bool) {
	var next int64
	for _, it := range m.deck.Items() {
		if it.NextDueAt > 0 && (next == 0 || it.NextDueAt < next) {
			next = it.NextDueAt
		}
	}
	if next == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(next), true
}

func (m reviewModel) View() string {
	var b strings.Builder

	st := m.rev.Stats()
	b.WriteString(titleStyle.Render("review"))
	b.WriteString(subtleStyle.Render(fmt.Sprintf("  drilled %d · unique %d · due %d",
		st.Drilled, st.Unique, m.rev.Due())))
	b.WriteString("\n\n")

	width := m.width - 4
	if m.cfg.MaxWidth > 0 && (width <= 0 || width > m.cfg.MaxWidth) {
		width = m.cfg.MaxWidth
	}
	if width <= 0 {
		width = 80
	}

	switch {
	case m.done:
		b.WriteString(celebrationStyle.Render("All done for now"))
		if t, ok := m.nextDue(); ok {
			b.WriteString(subtleStyle.Render("\nNext item due " +
				humanize.RelTime(t, m.now(), "ago", "from now")))
		}
	case m.hasItem:
		if m.item.Word != "" {
			b.WriteString(wordStyle.Render(m.item.Word) + "\n")
		}
		b.WriteString(textStyle.Render(wordwrap.String(m.item.Text, width)))
		if m.item.HasTranslation() {
			b.WriteString("\n")
			if m.showTranslation {
				b.WriteString(translationStyle.Render(wordwrap.String(m.item.Translation, width)))
			} else {
				b.WriteString(subtleStyle.Render("(t to reveal the translation)"))
			}
		}
		if m.speaking {
			b.WriteString(subtleStyle.Render("\n\n♪ speaking"))
		}
	default:
		b.WriteString(subtleStyle.Render("Picking the next item" + ellipsis))
	}
	b.WriteString("\n\n")

	if m.statusMessage != "" {
		b.WriteString(statusBarMessageStyle.Render(m.statusMessage))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))

	return appStyle.Render(b.String())
}
