// Package mock provides a mock TTS engine for tests and for running drill
// without any speech software installed.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/dgnsrekt/drill/internal/tts"
)

// SampleRate of the silence the mock engine produces.
const SampleRate = 44100

// Call records one Synthesize invocation.
type Call struct {
	Text  string
	Voice tts.Voice
	Rate  float64
}

// Engine implements tts.Engine by returning silence.
type Engine struct {
	mu sync.Mutex

	delay        time.Duration
	msPerChar    time.Duration
	failure      error
	textFailures map[string]error
	calls        []Call
	closed       bool
}

// New creates a mock engine without delay that produces 1ms of silence per
// character.
func New() *Engine {
	return &Engine{
		msPerChar:    time.Millisecond,
		textFailures: make(map[string]error),
	}
}

// Synthesize returns silence sized to the text. It honors ctx while
// simulating the processing delay.
func (e *Engine) Synthesize(ctx context.Context, text string, voice tts.Voice, rate float64) (tts.Audio, error) {
	e.mu.Lock()
	e.calls = append(e.calls, Call{Text: text, Voice: voice, Rate: rate})
	delay := e.delay
	err := e.failure
	if textErr, ok := e.textFailures[text]; ok {
		err = textErr
	}
	perChar := e.msPerChar
	e.mu.Unlock()

	if err != nil {
		return tts.Audio{}, err
	}

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return tts.Audio{}, ctx.Err()
		case <-t.C:
		}
	}

	duration := time.Duration(len(text)) * perChar
	samples := int(duration.Seconds() * SampleRate)
	return tts.Audio{
		Data:       make([]byte, samples*2),
		SampleRate: SampleRate,
		Channels:   1,
	}, nil
}

// Voices returns the mock voices.
func (e *Engine) Voices() []tts.Voice {
	return []tts.Voice{
		{ID: "mock-en", Name: "Mock English", Language: "en-US", Gender: "neutral"},
		{ID: "mock-es", Name: "Mock Spanish", Language: "es-ES", Gender: "female"},
		{ID: "mock-fr", Name: "Mock French", Language: "fr-FR", Gender: "male"},
	}
}

// Info returns the mock engine's capabilities.
func (e *Engine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:        "mock",
		Version:     "1",
		SampleRate:  SampleRate,
		Channels:    1,
		BitDepth:    16,
		MaxTextSize: 10000,
	}
}

// Validate always succeeds.
func (e *Engine) Validate() error { return nil }

// Close marks the engine closed.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// Test control methods

// SetDelay sets the simulated processing delay.
func (e *Engine) SetDelay(delay time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.delay = delay
}

// SetDurationPerChar sets how much silence each character produces.
func (e *Engine) SetDurationPerChar(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msPerChar = d
}

// SetFailure makes every call fail with err.
func (e *Engine) SetFailure(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failure = err
}

// FailText makes calls for exactly text fail with err.
func (e *Engine) FailText(text string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.textFailures[text] = err
}

// ClearFailure resets the engine to normal operation.
func (e *Engine) ClearFailure() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failure = nil
	e.textFailures = make(map[string]error)
}

// Calls returns a copy of the recorded calls.
func (e *Engine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

// CallCount returns how many times Synthesize was called.
func (e *Engine) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

// Closed reports whether Close was called.
func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

var _ tts.Engine = (*Engine)(nil)
