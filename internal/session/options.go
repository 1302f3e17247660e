package session

import (
	"time"

	"github.com/dgnsrekt/drill/internal/config"
	"github.com/dgnsrekt/drill/internal/tts"
)

// Options configure one session. They are passed to Start and fixed for
// the lifetime of that session.
type Options struct {
	Rounds             int
	RepetitionsPerItem int

	// ShadowDelay is inserted between repetitions of the primary text.
	ShadowDelay time.Duration
	// PairGap separates the primary from the secondary text.
	PairGap time.Duration
	// ItemGap follows each item.
	ItemGap time.Duration

	SourceVoice tts.VoiceSelector
	TargetVoice tts.VoiceSelector
	Rate        float64

	// Shuffle draws a new permutation for every round.
	Shuffle bool

	// BatchSize limits a session to the window of items starting at the
	// durable cursor. Zero plays the whole deck.
	BatchSize int
}

// DefaultOptions returns the options used when nothing was configured.
func DefaultOptions() Options {
	return OptionsFromSettings(config.Default())
}

// OptionsFromSettings maps persisted settings to session options. An
// explicit voice id applies to the primary text only.
func OptionsFromSettings(s config.Settings) Options {
	return Options{
		Rounds:             s.Rounds,
		RepetitionsPerItem: s.RepetitionsPerItem,
		ShadowDelay:        s.ShadowDelay(),
		PairGap:            s.PairGap(),
		ItemGap:            s.ItemGap(),
		SourceVoice:        tts.VoiceSelector{ID: s.Voice, Language: s.SourceLang},
		TargetVoice:        tts.VoiceSelector{Language: s.TargetLang},
		Rate:               s.Rate,
		Shuffle:            s.Shuffle,
		BatchSize:          s.BatchSize,
	}
}

func (o Options) normalize() Options {
	if o.Rounds < 1 {
		o.Rounds = 1
	}
	if o.RepetitionsPerItem < 1 {
		o.RepetitionsPerItem = 1
	}
	if o.Rate <= 0 {
		o.Rate = tts.DefaultRate
	}
	if o.ShadowDelay < 0 {
		o.ShadowDelay = 0
	}
	if o.PairGap < 0 {
		o.PairGap = 0
	}
	if o.ItemGap < 0 {
		o.ItemGap = 0
	}
	if o.BatchSize < 0 {
		o.BatchSize = 0
	}
	return o
}
