package ui

import "github.com/dgnsrekt/drill/internal/deck"

// Config contains TUI-specific configuration.
type Config struct {
	// Deck file the session was loaded from. Empty when the deck came from
	// the progress store.
	DeckPath string
	Layout   deck.Layout

	// Watch reloads the deck file when it changes on disk.
	Watch bool

	// AutoStart begins the session as soon as the program starts.
	AutoStart bool `env:"DRILL_AUTOSTART" envDefault:"false"`

	EnableMouse bool `env:"DRILL_ENABLE_MOUSE"`
	AltScreen   bool `env:"DRILL_ALT_SCREEN" envDefault:"true"`

	// MaxWidth caps the width of the item text.
	MaxWidth int `env:"DRILL_MAX_WIDTH" envDefault:"100"`
}
