//go:build !nocgo
// +build !nocgo

package audio

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgnsrekt/drill/internal/tts"
	"github.com/ebitengine/oto/v3"
)

const pollInterval = 10 * time.Millisecond

// Player implements tts.Player on top of an oto context. oto allows a single
// context per process, so create one Player and share it.
type Player struct {
	context    *oto.Context
	sampleRate int
	channels   int

	// playMu serializes Play calls.
	playMu sync.Mutex

	mu     sync.Mutex
	stop   chan struct{}
	closed bool
}

// NewPlayer opens the audio device.
func NewPlayer(config PlayerConfig) (*Player, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	op := &oto.NewContextOptions{
		SampleRate:   config.SampleRate,
		ChannelCount: config.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   time.Duration(config.BufferSize) * time.Second / time.Duration(config.SampleRate*config.Channels*2),
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, tts.NewTTSError(tts.ErrorCodeAudioDevice, "failed to create oto context",
			fmt.Errorf("%w: %w", tts.ErrAudioDeviceUnavailable, err))
	}
	<-ready

	return &Player{
		context:    ctx,
		sampleRate: config.SampleRate,
		channels:   config.Channels,
	}, nil
}

// Play blocks until the clip has been heard, ctx is done, or Stop is called.
func (p *Player) Play(ctx context.Context, audio tts.Audio) error {
	data, err := convert(audio, p.sampleRate, p.channels)
	if err != nil {
		return err
	}

	p.playMu.Lock()
	defer p.playMu.Unlock()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return tts.NewTTSError(tts.ErrorCodeAudioDevice, "player is closed", tts.ErrAudioDeviceUnavailable)
	}
	stop := make(chan struct{})
	p.stop = stop
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		if p.stop == stop {
			p.stop = nil
		}
		p.mu.Unlock()
	}()

	// The reader keeps data alive for the whole playback.
	player := p.context.NewPlayer(bytes.NewReader(data))
	defer player.Close() //nolint:errcheck
	player.Play()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-stop:
			player.Pause()
			return tts.ErrCanceled
		case <-ticker.C:
			if err := player.Err(); err != nil {
				return tts.NewTTSError(tts.ErrorCodeAudioFailure, "playback failed", err)
			}
			if !player.IsPlaying() {
				return nil
			}
		}
	}
}

// Stop interrupts the clip currently playing, if any.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	return nil
}

// Close stops playback and rejects further clips. The oto context itself
// lives until the process exits.
func (p *Player) Close() error {
	p.Stop() //nolint:errcheck

	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

var _ tts.Player = (*Player)(nil)
