package tts

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/drill/internal/cache"
)

// Narrator speaks text through an engine and a player. It keeps at most one
// utterance in flight and can cancel it from any goroutine.
type Narrator struct {
	engine Engine
	player Player
	cache  AudioCache
	logger *log.Logger

	// speakMu serializes utterances.
	speakMu sync.Mutex

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	voices []Voice
}

// NarratorOption configures a Narrator.
type NarratorOption func(*Narrator)

// WithCache stores synthesized audio in c.
func WithCache(c AudioCache) NarratorOption {
	return func(n *Narrator) {
		n.cache = c
	}
}

// WithLogger sets the logger used for narration diagnostics.
func WithLogger(l *log.Logger) NarratorOption {
	return func(n *Narrator) {
		if l != nil {
			n.logger = l
		}
	}
}

// NewNarrator returns a narrator that owns engine and player.
func NewNarrator(engine Engine, player Player, opts ...NarratorOption) *Narrator {
	n := &Narrator{
		engine: engine,
		player: player,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Info returns the engine description.
func (n *Narrator) Info() EngineInfo {
	return n.engine.Info()
}

// Voices returns the engine voices, fetched once.
func (n *Narrator) Voices() []Voice {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.voices == nil {
		n.voices = n.engine.Voices()
		if n.voices == nil {
			n.voices = []Voice{}
		}
	}
	return n.voices
}

// SpeakOnce speaks text a single time and blocks until the utterance
// finished (nil) or failed. A canceled utterance returns an error matching
// ErrCanceled.
func (n *Narrator) SpeakOnce(ctx context.Context, text string, sel VoiceSelector, rate float64) error {
	gen := n.generation()

	cleaned := CleanText(text)
	if cleaned == "" {
		return NewTTSError(ErrorCodeInvalidInput, "empty text", ErrEmptyText)
	}
	info := n.engine.Info()
	if info.MaxTextSize > 0 && len(cleaned) > info.MaxTextSize {
		return NewTTSError(ErrorCodeTextTooLong, fmt.Sprintf("%d bytes (max %d)", len(cleaned), info.MaxTextSize), ErrTextTooLong)
	}

	n.speakMu.Lock()
	defer n.speakMu.Unlock()

	if err := ctx.Err(); err != nil {
		return canceledError(err)
	}

	uctx, cancel := context.WithCancel(ctx)
	defer cancel()

	n.mu.Lock()
	if n.gen != gen {
		n.mu.Unlock()
		return canceledError(nil)
	}
	n.cancel = cancel
	n.mu.Unlock()

	defer func() {
		n.mu.Lock()
		n.cancel = nil
		n.mu.Unlock()
	}()

	voice, ok := SelectVoice(n.Voices(), sel)
	if !ok && !sel.IsZero() {
		n.logger.Debug("no matching voice, using engine default", "voice", sel.String())
	}
	rate = ClampRate(rate)

	audio, err := n.synthesize(uctx, info, cleaned, voice, rate)
	if err != nil {
		if uctx.Err() != nil || n.stale(gen) {
			return canceledError(uctx.Err())
		}
		var ttsErr *TTSError
		switch {
		case errors.As(err, &ttsErr):
			return ttsErr
		case errors.Is(err, ErrEngineNotAvailable):
			return NewTTSError(ErrorCodeEngineUnavailable, "engine unavailable", err).
				WithContext("engine", info.Name)
		}
		return NewTTSError(ErrorCodeEngineFailure, "synthesis failed", err).
			WithContext("engine", info.Name)
	}

	if err := n.player.Play(uctx, audio); err != nil {
		if uctx.Err() != nil || n.stale(gen) {
			return canceledError(uctx.Err())
		}
		var ttsErr *TTSError
		switch {
		case errors.As(err, &ttsErr):
			return ttsErr
		case errors.Is(err, ErrAudioDeviceUnavailable):
			return NewTTSError(ErrorCodeAudioDevice, "audio device lost", err)
		}
		return NewTTSError(ErrorCodeAudioFailure, "playback failed", err)
	}

	// A completion that raced with CancelAll belongs to the canceled call.
	if n.stale(gen) {
		return canceledError(nil)
	}
	return nil
}

// SpeakRepeated speaks text repetitions times, waiting gap between two
// repetitions. A failed repetition does not stop the loop; the failures are
// joined into the returned error. Cancellation and fatal errors stop
// immediately.
func (n *Narrator) SpeakRepeated(ctx context.Context, text string, sel VoiceSelector, rate float64, repetitions int, gap time.Duration) error {
	if repetitions < 1 {
		repetitions = 1
	}
	gen := n.generation()

	var errs []error
	for i := 0; i < repetitions; i++ {
		if i > 0 && gap > 0 {
			if err := sleep(ctx, gap); err != nil {
				return canceledError(err)
			}
		}
		if n.stale(gen) {
			return canceledError(nil)
		}

		err := n.SpeakOnce(ctx, text, sel, rate)
		switch {
		case err == nil:
			continue
		case IsCanceled(err), IsFatal(err):
			return err
		case errors.Is(err, ErrEmptyText), errors.Is(err, ErrTextTooLong):
			// Input errors repeat identically.
			return err
		}

		n.logger.Warn("repetition failed", "repetition", i+1, "of", repetitions, "error", err)
		errs = append(errs, fmt.Errorf("repetition %d: %w", i+1, err))
	}
	return errors.Join(errs...)
}

// CancelAll halts the utterance in flight. Every call issued before
// CancelAll reports ErrCanceled, even if its audio completes afterwards.
func (n *Narrator) CancelAll() {
	n.mu.Lock()
	n.gen++
	cancel := n.cancel
	n.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if err := n.player.Stop(); err != nil {
		n.logger.Debug("stop playback", "error", err)
	}
}

// Close cancels narration and releases the engine and the player.
func (n *Narrator) Close() error {
	n.CancelAll()
	return errors.Join(n.engine.Close(), n.player.Close())
}

func (n *Narrator) generation() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.gen
}

func (n *Narrator) stale(gen uint64) bool {
	return n.generation() != gen
}

// synthesize returns audio from the cache or the engine.
func (n *Narrator) synthesize(ctx context.Context, info EngineInfo, text string, voice Voice, rate float64) (Audio, error) {
	var key string
	if n.cache != nil {
		key = cache.Key(info.Name, voice.ID+"|"+voice.Language, text, rate)
		if data, ok := n.cache.Get(key); ok {
			if audio, err := decodeAudio(data); err == nil {
				n.logger.Debug("audio cache hit", "key", key)
				return audio, nil
			}
		}
	}

	start := time.Now()
	audio, err := n.engine.Synthesize(ctx, text, voice, rate)
	if err != nil {
		return Audio{}, err
	}
	if len(audio.Data) == 0 {
		return Audio{}, NewTTSError(ErrorCodeAudioFormat, "engine returned no audio", ErrSynthesisFailed)
	}
	n.logger.Debug("synthesized", "engine", info.Name, "bytes", len(audio.Data), "took", time.Since(start))

	if n.cache != nil {
		if err := n.cache.Put(key, encodeAudio(audio)); err != nil {
			n.logger.Debug("audio cache put", "error", err)
		}
	}
	return audio, nil
}

// Cached audio carries its format in a small header.
const audioHeaderSize = 6

func encodeAudio(a Audio) []byte {
	buf := make([]byte, audioHeaderSize+len(a.Data))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(a.SampleRate))
	binary.LittleEndian.PutUint16(buf[4:6], uint16(a.Channels))
	copy(buf[audioHeaderSize:], a.Data)
	return buf
}

func decodeAudio(b []byte) (Audio, error) {
	if len(b) <= audioHeaderSize {
		return Audio{}, NewTTSError(ErrorCodeAudioFormat, "short cached audio", nil)
	}
	a := Audio{
		SampleRate: int(binary.LittleEndian.Uint32(b[0:4])),
		Channels:   int(binary.LittleEndian.Uint16(b[4:6])),
		Data:       b[audioHeaderSize:],
	}
	if a.SampleRate <= 0 || a.Channels <= 0 {
		return Audio{}, NewTTSError(ErrorCodeAudioFormat, "bad cached audio header", nil)
	}
	return a, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
