// Package config defines the learner-adjustable drill settings and how they
// are read from viper and validated.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// DefaultShadowDelay is the pause inserted between repetitions when
// shadowing is switched on without an explicit delay.
const DefaultShadowDelay = 700 * time.Millisecond

var (
	// ErrInvalidSettings wraps every validation failure.
	ErrInvalidSettings = errors.New("invalid settings")
)

// Settings are the drill preferences. They are persisted between runs and
// may be overridden from the config file, the environment or flags.
type Settings struct {
	Engine             string  `json:"engine"             yaml:"engine"`
	Voice              string  `json:"voice,omitempty"    yaml:"voice"`
	SourceLang         string  `json:"sourceLang"         yaml:"source_lang"`
	TargetLang         string  `json:"targetLang"         yaml:"target_lang"`
	Rate               float64 `json:"rate"               yaml:"rate"`
	RepetitionsPerItem int     `json:"repetitionsPerItem" yaml:"repetitions"`
	Rounds             int     `json:"rounds"             yaml:"rounds"`
	ShadowDelayMs      int     `json:"shadowDelayMs"      yaml:"shadow_delay_ms"`
	PairGapMs          int     `json:"pairGapMs"          yaml:"pair_gap_ms"`
	ItemGapMs          int     `json:"itemGapMs"          yaml:"item_gap_ms"`
	Shuffle            bool    `json:"shuffle"            yaml:"shuffle"`
	BatchSize          int     `json:"batchSize"          yaml:"batch_size"`
}

// Default returns the settings used when nothing was configured.
func Default() Settings {
	return Settings{
		Engine:             "piper",
		SourceLang:         "es",
		TargetLang:         "en",
		Rate:               1.0,
		RepetitionsPerItem: 1,
		Rounds:             1,
		PairGapMs:          300,
		ItemGapMs:          400,
		Shuffle:            true,
	}
}

// Validate checks value ranges.
func (s Settings) Validate() error {
	switch {
	case s.RepetitionsPerItem < 1:
		return fmt.Errorf("%w: repetitions must be at least 1, got %d", ErrInvalidSettings, s.RepetitionsPerItem)
	case s.Rounds < 1:
		return fmt.Errorf("%w: rounds must be at least 1, got %d", ErrInvalidSettings, s.Rounds)
	case s.Rate <= 0 || s.Rate > 4:
		return fmt.Errorf("%w: rate must be in (0, 4], got %.2f", ErrInvalidSettings, s.Rate)
	case s.ShadowDelayMs < 0, s.PairGapMs < 0, s.ItemGapMs < 0:
		return fmt.Errorf("%w: delays must not be negative", ErrInvalidSettings)
	case s.BatchSize < 0:
		return fmt.Errorf("%w: batch size must not be negative, got %d", ErrInvalidSettings, s.BatchSize)
	}
	return nil
}

// ShadowDelay returns the delay between repetitions.
func (s Settings) ShadowDelay() time.Duration {
	return time.Duration(s.ShadowDelayMs) * time.Millisecond
}

// PairGap returns the delay between primary and secondary text.
func (s Settings) PairGap() time.Duration {
	return time.Duration(s.PairGapMs) * time.Millisecond
}

// ItemGap returns the delay after an item.
func (s Settings) ItemGap() time.Duration {
	return time.Duration(s.ItemGapMs) * time.Millisecond
}

// Viper keys for the drill settings.
const (
	KeyEngine      = "drill.engine"
	KeyVoice       = "drill.voice"
	KeySourceLang  = "drill.source_lang"
	KeyTargetLang  = "drill.target_lang"
	KeyRate        = "drill.rate"
	KeyRepetitions = "drill.repetitions"
	KeyRounds      = "drill.rounds"
	KeyShadowDelay = "drill.shadow_delay_ms"
	KeyPairGap     = "drill.pair_gap_ms"
	KeyItemGap     = "drill.item_gap_ms"
	KeyShuffle     = "drill.shuffle"
	KeyBatchSize   = "drill.batch_size"
)

// Merge layers settings: base is what the learner saved last time, and
// every key that v has an explicit value for (config file, environment or a
// changed flag) overrides it. No viper defaults are registered for these
// keys, so IsSet only reports values the user actually supplied.
func Merge(base Settings, v *viper.Viper) Settings {
	s := base
	overrideString(v, KeyEngine, &s.Engine)
	overrideString(v, KeyVoice, &s.Voice)
	overrideString(v, KeySourceLang, &s.SourceLang)
	overrideString(v, KeyTargetLang, &s.TargetLang)
	if v.IsSet(KeyRate) {
		s.Rate = v.GetFloat64(KeyRate)
	}
	overrideInt(v, KeyRepetitions, &s.RepetitionsPerItem)
	overrideInt(v, KeyRounds, &s.Rounds)
	overrideInt(v, KeyShadowDelay, &s.ShadowDelayMs)
	overrideInt(v, KeyPairGap, &s.PairGapMs)
	overrideInt(v, KeyItemGap, &s.ItemGapMs)
	overrideInt(v, KeyBatchSize, &s.BatchSize)
	if v.IsSet(KeyShuffle) {
		s.Shuffle = v.GetBool(KeyShuffle)
	}
	return s
}

func overrideString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		*dst = v.GetString(key)
	}
}

func overrideInt(v *viper.Viper, key string, dst *int) {
	if v.IsSet(key) {
		*dst = v.GetInt(key)
	}
}
