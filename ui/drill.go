package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/drill/internal/deck"
	"github.com/dgnsrekt/drill/internal/session"
	"github.com/dgnsrekt/drill/internal/tts"
	"github.com/muesli/reflow/wordwrap"
)

type drillModel struct {
	ctx    context.Context
	cfg    Config
	ctrl   *session.Controller
	deck   *deck.Deck
	events <-chan session.Event

	opts  session.Options
	state session.State

	keys     drillKeyMap
	help     help.Model
	progress progress.Model

	width  int
	height int

	celebration   string
	lastErr       error
	statusMessage string
	statusID      int
}

func newDrillModel(ctx context.Context, cfg Config, ctrl *session.Controller, d *deck.Deck, opts session.Options, events <-chan session.Event) drillModel {
	opts.Rate = tts.ClampRate(opts.Rate)
	m := drillModel{
		ctx:      ctx,
		cfg:      cfg,
		ctrl:     ctrl,
		deck:     d,
		events:   events,
		opts:     opts,
		state:    ctrl.State(),
		keys:     newDrillKeyMap(),
		help:     help.New(),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
	m.keys.sync(m.state)
	return m
}

func (m drillModel) Init() tea.Cmd {
	cmds := []tea.Cmd{listen(m.ctx, m.events)}
	if m.cfg.AutoStart {
		cmds = append(cmds, m.intent("start", func() error {
			return m.ctrl.Start(m.ctx, m.opts)
		}))
	}
	return tea.Batch(cmds...)
}

func (m drillModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.progress.Width = max(10, min(msg.Width-4, 60))

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sessionEventMsg:
		cmd := m.applyEvent(session.Event(msg))
		return m, tea.Batch(cmd, listen(m.ctx, m.events))

	case intentDoneMsg:
		m.state = m.ctrl.State()
		m.keys.sync(m.state)
		if msg.err != nil {
			log.Debug("intent rejected", "intent", msg.intent, "error", msg.err)
			return m, m.setStatus(msg.err.Error())
		}

	case deckReloadedMsg:
		return m, m.reload(deck.ImportResult(msg))

	case statusMessageTimeoutMsg:
		if msg.id == m.statusID {
			m.statusMessage = ""
		}
	}
	return m, nil
}

func (m drillModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.state = m.ctrl.State()
	m.keys.sync(m.state)

	switch {
	case key.Matches(msg, m.keys.Quit):
		ctrl := m.ctrl
		return m, func() tea.Msg {
			if err := ctrl.Stop(); err != nil {
				log.Warn("unable to stop session", "error", err)
			}
			return tea.Quit()
		}

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Start):
		m.celebration = ""
		m.lastErr = nil
		ctx, ctrl, opts := m.ctx, m.ctrl, m.opts
		return m, m.intent("start", func() error { return ctrl.Start(ctx, opts) })

	case key.Matches(msg, m.keys.Pause):
		return m, m.intent("pause", m.ctrl.Pause)

	case key.Matches(msg, m.keys.Resume):
		return m, m.intent("resume", m.ctrl.Resume)

	case key.Matches(msg, m.keys.Skip):
		return m, m.intent("skip", m.ctrl.Skip)

	case key.Matches(msg, m.keys.Stop):
		return m, m.intent("stop", m.ctrl.Stop)

	case key.Matches(msg, m.keys.Faster):
		return m, m.changeRate(tts.FasterRate(m.opts.Rate))

	case key.Matches(msg, m.keys.Slower):
		return m, m.changeRate(tts.SlowerRate(m.opts.Rate))

	case key.Matches(msg, m.keys.Copy):
		if err := clipboard.WriteAll(itemClipboardText(m.state.Current)); err != nil {
			log.Warn("unable to copy to clipboard", "error", err)
			return m, m.setStatus("Copy failed")
		}
		return m, m.setStatus("Copied!")
	}
	return m, nil
}

// intent runs a controller intent off the update loop; Stop in particular
// blocks until the session loop has exited.
func (m drillModel) intent(name string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return intentDoneMsg{intent: name, err: fn()}
	}
}

func (m *drillModel) changeRate(rate float64) tea.Cmd {
	m.opts.Rate = rate
	m.ctrl.SetRate(rate)
	return m.setStatus("Speed " + tts.RateLabel(rate))
}

func (m *drillModel) applyEvent(ev session.Event) tea.Cmd {
	m.state = ev.State
	m.keys.sync(m.state)

	switch ev.Type {
	case session.EventItemStarted:
		m.lastErr = nil
	case session.EventNarrationFailed:
		m.lastErr = ev.Err
	case session.EventRoundCompleted:
		if ev.State.Rounds > 1 {
			return m.setStatus(fmt.Sprintf("Round %d of %d done", ev.State.Round+1, ev.State.Rounds))
		}
	case session.EventSessionCompleted:
		m.celebration = ev.Message
	}
	return nil
}

func (m *drillModel) reload(res deck.ImportResult) tea.Cmd {
	if len(res.Items) == 0 {
		return m.setStatus("Reload ignored: no items found")
	}
	if err := m.deck.Replace(res.Items); err != nil {
		log.Warn("unable to apply reloaded deck", "error", err)
		return m.setStatus("Reload failed: " + err.Error())
	}
	msg := fmt.Sprintf("Deck reloaded: %d items", len(res.Items))
	if res.Skipped > 0 {
		msg += fmt.Sprintf(", %d lines skipped", res.Skipped)
	}
	return m.setStatus(msg)
}

func (m *drillModel) setStatus(msg string) tea.Cmd {
	m.statusID++
	m.statusMessage = msg
	return statusTimeout(m.statusID)
}

func (m drillModel) View() string {
	var b strings.Builder

	title := "drill"
	if m.cfg.DeckPath != "" {
		title += " · " + filepath.Base(m.cfg.DeckPath)
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString(subtleStyle.Render(fmt.Sprintf("  %d items", m.deck.Len())))
	b.WriteString("\n\n")

	b.WriteString(m.itemView())
	b.WriteString("\n\n")

	if m.state.IsActive() || m.state.Phase == session.PhaseStopping {
		b.WriteString(m.progress.ViewAs(m.state.Progress()))
		b.WriteString("\n\n")
	}
	if m.lastErr != nil && !tts.IsCanceled(m.lastErr) {
		b.WriteString(errorStyle.Render("⚠ " + m.lastErr.Error()))
		b.WriteString("\n\n")
	}

	b.WriteString(statusBar(m.contentWidth()+4, m.state, m.opts.Rate, m.statusMessage))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return appStyle.Render(b.String())
}

func (m drillModel) itemView() string {
	it := m.state.Current
	width := m.contentWidth()

	if it.ID == "" {
		switch {
		case m.celebration != "":
			return celebrationStyle.Render(m.celebration)
		case m.deck.Len() == 0:
			return subtleStyle.Render("The deck is empty. Import some sentences with `drill import`.")
		case m.state.Phase == session.PhaseIdle:
			return subtleStyle.Render("Press space to start.")
		default:
			return ""
		}
	}

	var lines []string
	if it.Word != "" {
		lines = append(lines, wordStyle.Render(it.Word))
	}
	lines = append(lines, textStyle.Render(wordwrap.String(it.Text, width)))
	if it.HasTranslation() {
		lines = append(lines, translationStyle.Render(wordwrap.String(it.Translation, width)))
	}
	return strings.Join(lines, "\n")
}

func (m drillModel) contentWidth() int {
	w := m.width - 4
	if m.cfg.MaxWidth > 0 && (w <= 0 || w > m.cfg.MaxWidth) {
		w = m.cfg.MaxWidth
	}
	if w <= 0 {
		w = 80
	}
	return w
}

func itemClipboardText(it deck.Item) string {
	parts := []string{it.Text}
	if it.HasTranslation() {
		parts = append(parts, it.Translation)
	}
	return strings.Join(parts, "\n")
}
