// Package ui provides the terminal interface for drill sessions and
// reviews.
package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/drill/internal/deck"
	"github.com/dgnsrekt/drill/internal/session"
)

const (
	statusMessageTimeout = time.Second * 3 // how long to show status messages like "copied!"
	eventBuffer          = 64
)

type (
	// sessionEventMsg carries a controller event into the update loop.
	sessionEventMsg session.Event

	// deckReloadedMsg is sent when the watched deck file was re-imported.
	deckReloadedMsg deck.ImportResult

	// intentDoneMsg reports the result of a controller intent.
	intentDoneMsg struct {
		intent string
		err    error
	}

	// statusMessageTimeoutMsg clears the status message it was scheduled
	// for, unless a newer one replaced it.
	statusMessageTimeoutMsg struct{ id int }
)

// DrillProgram bundles the tea program with what has to be torn down when
// it exits.
type DrillProgram struct {
	*tea.Program
	ctrl   *session.Controller
	cancel context.CancelFunc
}

// NewDrillProgram returns a Tea program that plays d through ctrl. Events
// emitted by the controller are forwarded to the program until it exits.
func NewDrillProgram(cfg Config, ctrl *session.Controller, d *deck.Deck, opts session.Options) *DrillProgram {
	log.Debug("starting drill ui", "deck", cfg.DeckPath, "items", d.Len(), "watch", cfg.Watch)

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan session.Event, eventBuffer)
	ctrl.OnEvent(func(ev session.Event) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	})

	m := newDrillModel(ctx, cfg, ctrl, d, opts, events)
	return &DrillProgram{
		Program: tea.NewProgram(m, programOptions(cfg)...),
		ctrl:    ctrl,
		cancel:  cancel,
	}
}

// Run runs the program, then releases the event forwarder and stops the
// session. It returns the options as last adjusted in the UI.
func (p *DrillProgram) Run() (session.Options, error) {
	final, err := p.Program.Run()
	p.shutdown()
	var opts session.Options
	if m, ok := final.(drillModel); ok {
		opts = m.opts
	}
	return opts, err //nolint:wrapcheck
}

// shutdown stops the session. Nothing drains the event channel once the
// program has exited, so the forwarder is released first.
func (p *DrillProgram) shutdown() {
	p.cancel()
	if err := p.ctrl.Stop(); err != nil {
		log.Warn("unable to stop session", "error", err)
	}
}

// DeckReloaded forwards a re-imported deck to the program. It is safe to
// call from any goroutine.
func (p *DrillProgram) DeckReloaded(res deck.ImportResult) {
	p.Send(deckReloadedMsg(res))
}

// NewReviewProgram returns a Tea program that walks the due items of d
// through rev.
func NewReviewProgram(cfg Config, rev *session.Reviewer, d *deck.Deck) *tea.Program {
	log.Debug("starting review ui", "items", d.Len(), "due", rev.Due())
	m := newReviewModel(context.Background(), cfg, rev, d)
	return tea.NewProgram(m, programOptions(cfg)...)
}

func programOptions(cfg Config) []tea.ProgramOption {
	var opts []tea.ProgramOption
	if cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return opts
}

// listen waits for the next controller event.
func listen(ctx context.Context, events <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-events:
			return sessionEventMsg(ev)
		case <-ctx.Done():
			return nil
		}
	}
}

func statusTimeout(id int) tea.Cmd {
	return tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
		return statusMessageTimeoutMsg{id: id}
	})
}
