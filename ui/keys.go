package ui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/dgnsrekt/drill/internal/session"
)

type drillKeyMap struct {
	Start  key.Binding
	Pause  key.Binding
	Resume key.Binding
	Skip   key.Binding
	Stop   key.Binding
	Faster key.Binding
	Slower key.Binding
	Copy   key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func newDrillKeyMap() drillKeyMap {
	return drillKeyMap{
		Start: key.NewBinding(
			key.WithKeys(" ", "enter"),
			key.WithHelp("space", "start"),
		),
		Pause: key.NewBinding(
			key.WithKeys(" ", "p"),
			key.WithHelp("space", "pause"),
		),
		Resume: key.NewBinding(
			key.WithKeys(" ", "p"),
			key.WithHelp("space", "resume"),
		),
		Skip: key.NewBinding(
			key.WithKeys("n", "right", "l"),
			key.WithHelp("→/n", "skip"),
		),
		Stop: key.NewBinding(
			key.WithKeys("s", "x"),
			key.WithHelp("s", "stop"),
		),
		Faster: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "faster"),
		),
		Slower: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "slower"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// sync enables exactly the intents the phase allows, so that help only
// lists what can be done right now.
func (k *drillKeyMap) sync(st session.State) {
	k.Start.SetEnabled(st.CanStart())
	k.Pause.SetEnabled(st.CanPause())
	k.Resume.SetEnabled(st.CanResume())
	k.Skip.SetEnabled(st.CanSkip())
	k.Stop.SetEnabled(st.CanStop())
	k.Copy.SetEnabled(st.Current.ID != "")
}

func (k drillKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Pause, k.Resume, k.Skip, k.Stop, k.Help, k.Quit}
}

func (k drillKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Pause, k.Resume, k.Skip, k.Stop},
		{k.Faster, k.Slower, k.Copy},
		{k.Help, k.Quit},
	}
}

type reviewKeyMap struct {
	Again     key.Binding
	Good      key.Binding
	Replay    key.Binding
	Translate key.Binding
	Quit      key.Binding
}

func newReviewKeyMap() reviewKeyMap {
	return reviewKeyMap{
		Again: key.NewBinding(
			key.WithKeys("a", "1"),
			key.WithHelp("a", "again"),
		),
		Good: key.NewBinding(
			key.WithKeys("g", "2", "enter"),
			key.WithHelp("g", "good"),
		),
		Replay: key.NewBinding(
			key.WithKeys("r", " "),
			key.WithHelp("r", "replay"),
		),
		Translate: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "translation"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k *reviewKeyMap) sync(hasItem bool) {
	k.Again.SetEnabled(hasItem)
	k.Good.SetEnabled(hasItem)
	k.Replay.SetEnabled(hasItem)
	k.Translate.SetEnabled(hasItem)
}

func (k reviewKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Again, k.Good, k.Replay, k.Translate, k.Quit}
}

func (k reviewKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
