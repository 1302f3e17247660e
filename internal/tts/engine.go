package tts

import (
	"context"
	"time"
)

// Engine defines the contract for text-to-speech engines.
// Implementations include Piper (offline), gTTS (online) and a mock used in tests.
type Engine interface {
	// Synthesize converts text to 16-bit PCM audio.
	// A zero Voice selects the engine default.
	// The implementation must honor ctx and stop work when it is canceled.
	Synthesize(ctx context.Context, text string, voice Voice, rate float64) (Audio, error)

	// Voices lists the voices the engine can speak with.
	Voices() []Voice

	// Info returns engine capabilities.
	Info() EngineInfo

	// Validate checks if the engine is properly configured and available.
	Validate() error

	// Close releases any resources held by the engine.
	Close() error
}

// EngineInfo describes engine capabilities and configuration.
type EngineInfo struct {
	Name        string // Engine name (e.g., "piper", "gtts")
	Version     string // Engine version
	SampleRate  int    // Default audio sample rate in Hz
	Channels    int    // Number of audio channels (1=mono, 2=stereo)
	BitDepth    int    // Bits per sample (typically 16)
	MaxTextSize int    // Maximum text size in bytes, 0 for no limit
	IsOnline    bool   // Whether the engine requires internet
}

// Player plays synthesized audio.
type Player interface {
	// Play blocks until the audio finished playing, ctx is canceled or
	// Stop is called. An interrupted playback returns a non-nil error.
	Play(ctx context.Context, audio Audio) error

	// Stop interrupts the current playback, if any.
	Stop() error

	// Close releases the audio device.
	Close() error
}

// Audio is a block of signed 16-bit little endian PCM.
type Audio struct {
	Data       []byte
	SampleRate int
	Channels   int
}

// Duration returns the playing time of the audio.
func (a Audio) Duration() time.Duration {
	if a.SampleRate <= 0 {
		return 0
	}
	channels := a.Channels
	if channels <= 0 {
		channels = 1
	}
	frames := len(a.Data) / (2 * channels)
	return time.Duration(frames) * time.Second / time.Duration(a.SampleRate)
}

// AudioCache stores synthesized audio between utterances.
type AudioCache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
}
