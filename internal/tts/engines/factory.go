package engines

import (
	"fmt"
	"strings"

	"github.com/dgnsrekt/drill/internal/tts"
	"github.com/dgnsrekt/drill/internal/tts/engines/mock"
)

// Options selects and configures an engine.
type Options struct {
	Engine string
	Piper  PiperConfig
	GTTS   GTTSConfig
}

// New returns the engine named by opts.Engine. Aliases: "google" for gtts.
func New(opts Options) (tts.Engine, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Engine)) {
	case "":
		return nil, tts.ErrNoEngineConfigured
	case "piper":
		return NewPiperEngine(opts.Piper)
	case "gtts", "google":
		return NewGTTSEngine(opts.GTTS), nil
	case "mock":
		return mock.New(), nil
	default:
		return nil, fmt.Errorf("%w: %s\n\nSupported engines:\n  - piper (offline TTS)\n  - gtts (Google TTS)\n  - mock (silence)", tts.ErrInvalidEngine, opts.Engine)
	}
}
