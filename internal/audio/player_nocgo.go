//go:build nocgo
// +build nocgo

package audio

import (
	"context"

	"github.com/dgnsrekt/drill/internal/tts"
)

// Player is a stub for builds without cgo; no audio device is available.
type Player struct{}

// NewPlayer always fails in nocgo builds.
func NewPlayer(config PlayerConfig) (*Player, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return nil, tts.NewTTSError(tts.ErrorCodeAudioDevice, "audio not available in nocgo build", tts.ErrAudioDeviceUnavailable)
}

func (p *Player) Play(context.Context, tts.Audio) error {
	return tts.ErrAudioDeviceUnavailable
}

func (p *Player) Stop() error  { return nil }
func (p *Player) Close() error { return nil }

var _ tts.Player = (*Player)(nil)
