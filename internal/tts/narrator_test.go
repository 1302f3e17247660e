package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

type synthCall struct {
	text  string
	voice Voice
	rate  float64
}

type fakeEngine struct {
	mu      sync.Mutex
	calls   []synthCall
	failOn  map[int]error
	maxSize int
}

func (e *fakeEngine) Synthesize(ctx context.Context, text string, voice Voice, rate float64) (Audio, error) {
	e.mu.Lock()
	e.calls = append(e.calls, synthCall{text, voice, rate})
	err := e.failOn[len(e.calls)]
	e.mu.Unlock()
	if err != nil {
		return Audio{}, err
	}
	if ctx.Err() != nil {
		return Audio{}, ctx.Err()
	}
	return Audio{Data: make([]byte, 441*2), SampleRate: 44100, Channels: 1}, nil
}

func (e *fakeEngine) Voices() []Voice {
	return []Voice{
		{ID: "en-amy", Language: "en-US"},
		{ID: "es-carlos", Language: "es-ES"},
	}
}

func (e *fakeEngine) Info() EngineInfo {
	return EngineInfo{Name: "fake", SampleRate: 44100, Channels: 1, BitDepth: 16, MaxTextSize: e.maxSize}
}

func (e *fakeEngine) Validate() error { return nil }
func (e *fakeEngine) Close() error    { return nil }

func (e *fakeEngine) Calls() []synthCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]synthCall(nil), e.calls...)
}

type fakePlayer struct {
	mu       sync.Mutex
	duration time.Duration
	played   int
	stops    int
	stopCh   chan struct{}
}

func (p *fakePlayer) Play(ctx context.Context, _ Audio) error {
	p.mu.Lock()
	p.played++
	stop := make(chan struct{})
	p.stopCh = stop
	d := p.duration
	p.mu.Unlock()

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-stop:
		return errors.New("stopped")
	}
}

func (p *fakePlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	if p.stopCh != nil {
		close(p.stopCh)
		p.stopCh = nil
	}
	return nil
}

func (p *fakePlayer) Close() error { return nil }

func (p *fakePlayer) Played() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.played
}

type mapCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func (c *mapCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *mapCache) Put(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSpeakOnce(t *testing.T) {
	engine := &fakeEngine{}
	player := &fakePlayer{}
	n := NewNarrator(engine, player)

	err := n.SpeakOnce(context.Background(), "Hola **mundo**", VoiceSelector{Language: "es-MX"}, 3)
	if err != nil {
		t.Fatalf("SpeakOnce() error = %v", err)
	}

	calls := engine.Calls()
	if len(calls) != 1 {
		t.Fatalf("engine calls = %d, want 1", len(calls))
	}
	if calls[0].text != "Hola mundo" {
		t.Errorf("text = %q, want %q", calls[0].text, "Hola mundo")
	}
	if calls[0].voice.ID != "es-carlos" {
		t.Errorf("voice = %q, want es-carlos", calls[0].voice.ID)
	}
	if calls[0].rate != MaxRate {
		t.Errorf("rate = %v, want %v", calls[0].rate, MaxRate)
	}
	if player.Played() != 1 {
		t.Errorf("played = %d, want 1", player.Played())
	}
}

func TestSpeakOnceUnknownVoiceUsesDefault(t *testing.T) {
	engine := &fakeEngine{}
	n := NewNarrator(engine, &fakePlayer{})

	if err := n.SpeakOnce(context.Background(), "Bonjour", VoiceSelector{Language: "fr-FR"}, 1); err != nil {
		t.Fatalf("SpeakOnce() error = %v", err)
	}
	if v := engine.Calls()[0].voice; !v.IsZero() {
		t.Errorf("voice = %+v, want engine default", v)
	}
}

func TestSpeakOnceInputErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want error
		code ErrorCode
	}{
		{"empty", "", 0, ErrEmptyText, ErrorCodeInvalidInput},
		{"only whitespace", " \n\t ", 0, ErrEmptyText, ErrorCodeInvalidInput},
		{"too long", strings.Repeat("a", 20), 10, ErrTextTooLong, ErrorCodeTextTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fakeEngine{maxSize: tt.max}
			n := NewNarrator(engine, &fakePlayer{})

			err := n.SpeakOnce(context.Background(), tt.text, VoiceSelector{}, 1)
			if !errors.Is(err, tt.want) {
				t.Fatalf("SpeakOnce() error = %v, want %v", err, tt.want)
			}
			var ttsErr *TTSError
			if !errors.As(err, &ttsErr) || ttsErr.Code != tt.code {
				t.Errorf("error code = %v, want %v", err, tt.code)
			}
			if len(engine.Calls()) != 0 {
				t.Error("engine should not be called")
			}
		})
	}
}

func TestSpeakOnceEngineFailure(t *testing.T) {
	boom := errors.New("boom")
	engine := &fakeEngine{failOn: map[int]error{1: boom}}
	n := NewNarrator(engine, &fakePlayer{})

	err := n.SpeakOnce(context.Background(), "hello", VoiceSelector{}, 1)
	if !errors.Is(err, boom) {
		t.Fatalf("SpeakOnce() error = %v, want %v", err, boom)
	}
	var ttsErr *TTSError
	if !errors.As(err, &ttsErr) || ttsErr.Code != ErrorCodeEngineFailure {
		t.Errorf("error = %v, want code %v", err, ErrorCodeEngineFailure)
	}
	if IsCanceled(err) {
		t.Error("engine failure must not look canceled")
	}
}

func TestCancelAll(t *testing.T) {
	player := &fakePlayer{duration: 10 * time.Second}
	n := NewNarrator(&fakeEngine{}, player)

	done := make(chan error, 1)
	go func() {
		done <- n.SpeakOnce(context.Background(), "long sentence", VoiceSelector{}, 1)
	}()
	waitFor(t, func() bool { return player.Played() == 1 })

	n.CancelAll()

	select {
	case err := <-done:
		if !errors.Is(err, ErrCanceled) {
			t.Errorf("SpeakOnce() error = %v, want ErrCanceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("SpeakOnce did not return after CancelAll")
	}

	// Later utterances are not affected.
	player.mu.Lock()
	player.duration = 0
	player.mu.Unlock()
	if err := n.SpeakOnce(context.Background(), "next", VoiceSelector{}, 1); err != nil {
		t.Errorf("SpeakOnce() after cancel error = %v", err)
	}
}

func TestSpeakOnceContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	engine := &fakeEngine{}
	n := NewNarrator(engine, &fakePlayer{})

	err := n.SpeakOnce(ctx, "hello", VoiceSelector{}, 1)
	if !IsCanceled(err) {
		t.Fatalf("SpeakOnce() error = %v, want canceled", err)
	}
	if len(engine.Calls()) != 0 {
		t.Error("engine should not be called")
	}
}

func TestSpeakRepeated(t *testing.T) {
	engine := &fakeEngine{}
	player := &fakePlayer{}
	n := NewNarrator(engine, player)

	start := time.Now()
	if err := n.SpeakRepeated(context.Background(), "otra vez", VoiceSelector{}, 1, 3, 20*time.Millisecond); err != nil {
		t.Fatalf("SpeakRepeated() error = %v", err)
	}
	if got := len(engine.Calls()); got != 3 {
		t.Errorf("engine calls = %d, want 3", got)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("elapsed = %v, want at least two gaps", elapsed)
	}
}

func TestSpeakRepeatedContinuesAfterFailure(t *testing.T) {
	boom := errors.New("boom")
	engine := &fakeEngine{failOn: map[int]error{2: boom}}
	player := &fakePlayer{}
	n := NewNarrator(engine, player)

	err := n.SpeakRepeated(context.Background(), "hello", VoiceSelector{}, 1, 3, 0)
	if !errors.Is(err, boom) {
		t.Fatalf("SpeakRepeated() error = %v, want aggregate containing boom", err)
	}
	if got := len(engine.Calls()); got != 3 {
		t.Errorf("engine calls = %d, want 3", got)
	}
	if got := player.Played(); got != 2 {
		t.Errorf("played = %d, want 2", got)
	}
}

func TestSpeakRepeatedStopsOnFatalError(t *testing.T) {
	missing := fmt.Errorf("%w: piper not found in PATH", ErrEngineNotAvailable)
	engine := &fakeEngine{failOn: map[int]error{1: missing}}
	player := &fakePlayer{}
	n := NewNarrator(engine, player)

	err := n.SpeakRepeated(context.Background(), "hello", VoiceSelector{}, 1, 3, 0)
	var ttsErr *TTSError
	if !errors.As(err, &ttsErr) || ttsErr.Code != ErrorCodeEngineUnavailable {
		t.Fatalf("SpeakRepeated() error = %v, want code %v", err, ErrorCodeEngineUnavailable)
	}
	if !IsFatal(err) {
		t.Error("missing engine should be fatal")
	}
	if got := len(engine.Calls()); got != 1 {
		t.Errorf("engine calls = %d, want 1", got)
	}
	if got := player.Played(); got != 0 {
		t.Errorf("played = %d, want 0", got)
	}
}

func TestSpeakRepeatedStopsOnCancel(t *testing.T) {
	engine := &fakeEngine{}
	player := &fakePlayer{duration: 10 * time.Second}
	n := NewNarrator(engine, player)

	done := make(chan error, 1)
	go func() {
		done <- n.SpeakRepeated(context.Background(), "hello", VoiceSelector{}, 1, 5, 0)
	}()
	waitFor(t, func() bool { return player.Played() == 1 })
	n.CancelAll()

	select {
	case err := <-done:
		if !errors.Is(err, ErrCanceled) {
			t.Errorf("SpeakRepeated() error = %v, want ErrCanceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("SpeakRepeated did not return after CancelAll")
	}
	if got := len(engine.Calls()); got != 1 {
		t.Errorf("engine calls = %d, want 1", got)
	}
}

func TestNarratorCache(t *testing.T) {
	engine := &fakeEngine{}
	c := &mapCache{m: map[string][]byte{}}
	n := NewNarrator(engine, &fakePlayer{}, WithCache(c))

	for i := 0; i < 3; i++ {
		if err := n.SpeakOnce(context.Background(), "cached", VoiceSelector{ID: "en-amy"}, 1); err != nil {
			t.Fatalf("SpeakOnce() error = %v", err)
		}
	}
	if got := len(engine.Calls()); got != 1 {
		t.Errorf("engine calls = %d, want 1", got)
	}

	// A different rate is a different entry.
	if err := n.SpeakOnce(context.Background(), "cached", VoiceSelector{ID: "en-amy"}, 1.5); err != nil {
		t.Fatalf("SpeakOnce() error = %v", err)
	}
	if got := len(engine.Calls()); got != 2 {
		t.Errorf("engine calls = %d, want 2", got)
	}
}

func TestAudioCodec(t *testing.T) {
	in := Audio{Data: []byte{1, 2, 3, 4}, SampleRate: 22050, Channels: 1}
	out, err := decodeAudio(encodeAudio(in))
	if err != nil {
		t.Fatalf("decodeAudio() error = %v", err)
	}
	if out.SampleRate != in.SampleRate || out.Channels != in.Channels || string(out.Data) != string(in.Data) {
		t.Errorf("decodeAudio() = %+v, want %+v", out, in)
	}

	if _, err := decodeAudio([]byte{1, 2}); err == nil {
		t.Error("decodeAudio() should reject short input")
	}
}
