package audio

import (
	"errors"
	"fmt"
)

// PlayerConfig contains configuration for the audio player.
type PlayerConfig struct {
	SampleRate int // 44100 or 48000 Hz only
	Channels   int // 1 = mono, 2 = stereo
	BufferSize int // bytes buffered by the device
}

// DefaultPlayerConfig returns mono 44.1kHz, which every engine can be
// resampled to.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate: 44100,
		Channels:   1,
		BufferSize: 4096,
	}
}

func validateConfig(config PlayerConfig) error {
	// oto only supports these rates reliably
	if config.SampleRate != 44100 && config.SampleRate != 48000 {
		return fmt.Errorf("sample rate must be 44100 or 48000 Hz, got %d", config.SampleRate)
	}
	if config.Channels != 1 && config.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", config.Channels)
	}
	if config.BufferSize <= 0 {
		return errors.New("buffer size must be positive")
	}
	return nil
}
